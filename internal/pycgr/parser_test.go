package pycgr

import (
	"strings"
	"testing"

	"github.com/evacroute/evacroute_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFile(nodeCount, edgeCount string, body ...string) string {
	lines := []string{
		"# Road Graph File v.0.4",
		"# number of nodes",
		"# number of edges",
		"# node_properties",
		"# ...",
		"# edge_properties",
		"# ...",
		nodeCount,
		edgeCount,
	}
	lines = append(lines, body...)
	return strings.Join(lines, "\n") + "\n"
}

func TestParse(t *testing.T) {
	t.Run("Parses nodes and edges", func(t *testing.T) {
		input := sampleFile("2", "1",
			"0 -7.800000 110.360000",
			"1 -7.801000 110.361000",
			"0 1 153.5 residential 30 1",
		)

		net, err := Parse(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, net.Nodes, 2)
		require.Len(t, net.Edges, 1)

		assert.Equal(t, int64(0), net.Nodes[0].ID)
		assert.InDelta(t, -7.8, net.Nodes[0].Lat, 1e-9)
		assert.InDelta(t, 110.36, net.Nodes[0].Lon, 1e-9)

		edge := net.Edges[0]
		assert.Equal(t, int64(0), edge.FromNodeID)
		assert.Equal(t, int64(1), edge.ToNodeID)
		assert.InDelta(t, 153.5, edge.Length, 1e-9)
		assert.Equal(t, models.ClassResidential, edge.Class)
		assert.InDelta(t, 30.0, edge.MaxSpeed, 1e-9)
		assert.True(t, edge.Bidirectional)
	})

	t.Run("One-way flag parses to false", func(t *testing.T) {
		input := sampleFile("2", "1",
			"0 -7.8 110.36",
			"1 -7.81 110.37",
			"0 1 100 primary 60 0",
		)
		net, err := Parse(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, net.Edges, 1)
		assert.False(t, net.Edges[0].Bidirectional)
	})

	t.Run("Malformed node line is skipped without shifting edges", func(t *testing.T) {
		input := sampleFile("3", "1",
			"0 -7.8 110.36",
			"banana",
			"2 -7.82 110.38",
			"0 2 100 primary 60 1",
		)
		net, err := Parse(strings.NewReader(input))
		require.NoError(t, err)
		assert.Len(t, net.Nodes, 2)
		require.Len(t, net.Edges, 1)
		assert.Equal(t, int64(0), net.Edges[0].FromNodeID)
	})

	t.Run("Malformed edge line is skipped", func(t *testing.T) {
		input := sampleFile("2", "2",
			"0 -7.8 110.36",
			"1 -7.81 110.37",
			"0 1 not-a-length primary 60 1",
			"1 0 100 primary 60 0",
		)
		net, err := Parse(strings.NewReader(input))
		require.NoError(t, err)
		assert.Len(t, net.Edges, 1)
	})

	t.Run("Invalid node count is fatal", func(t *testing.T) {
		_, err := Parse(strings.NewReader(sampleFile("many", "1")))
		assert.Error(t, err)
	})

	t.Run("Truncated header is fatal", func(t *testing.T) {
		_, err := Parse(strings.NewReader("# just\n# some\n# comments\n"))
		assert.Error(t, err)
	})

	t.Run("Empty input is fatal", func(t *testing.T) {
		_, err := Parse(strings.NewReader(""))
		assert.Error(t, err)
	})

	t.Run("Excess edge lines are dropped at the declared count", func(t *testing.T) {
		input := sampleFile("2", "1",
			"0 -7.8 110.36",
			"1 -7.81 110.37",
			"0 1 100 primary 60 1",
			"1 0 100 primary 60 1",
		)
		net, err := Parse(strings.NewReader(input))
		require.NoError(t, err)
		assert.Len(t, net.Edges, 1)
	})
}

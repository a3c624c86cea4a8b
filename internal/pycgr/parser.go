package pycgr

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/evacroute/evacroute_core/internal/models"
)

// PYCGR is a plain-text road network format: seven header lines,
// a node count line, an edge count line, then one node per line
// (id lat lon) followed by one edge per line
// (source target length street_type max_speed bidirectional).
const headerLines = 7

// Network is a parsed PYCGR road network
type Network struct {
	Nodes []models.NodeRecord
	Edges []models.EdgeRecord
}

// ParseFile reads and parses a PYCGR network file
func ParseFile(path string) (*Network, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open network file: %w", err)
	}
	defer file.Close()

	log.Printf("Reading PYCGR file: %s", path)
	return Parse(file)
}

// Parse parses a PYCGR network from a reader. Malformed node or edge
// lines are skipped with a warning; header corruption is fatal.
func Parse(r io.Reader) (*Network, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	nodeLines := 0
	totalNodes, totalEdges := -1, -1
	net := &Network{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case lineNo < headerLines:
			// header comment lines, ignored
		case lineNo == headerLines:
			n, err := strconv.Atoi(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid node count %q: %w", lineNo+1, line, err)
			}
			totalNodes = n
		case lineNo == headerLines+1:
			n, err := strconv.Atoi(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid edge count %q: %w", lineNo+1, line, err)
			}
			totalEdges = n
		case nodeLines < totalNodes:
			nodeLines++
			if rec, err := parseNodeLine(line); err != nil {
				log.Printf("Warning: skipping malformed node line %d: %v", lineNo+1, err)
			} else {
				net.Nodes = append(net.Nodes, rec)
			}
		default:
			if rec, err := parseEdgeLine(line); err != nil {
				log.Printf("Warning: skipping malformed edge line %d: %v", lineNo+1, err)
			} else {
				net.Edges = append(net.Edges, rec)
			}
		}
		lineNo++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read network file: %w", err)
	}

	if totalNodes < 0 || totalEdges < 0 {
		return nil, fmt.Errorf("truncated PYCGR file: missing node/edge counts")
	}

	log.Printf("Parsed %d nodes and %d edges (declared %d/%d)",
		len(net.Nodes), len(net.Edges), totalNodes, totalEdges)

	if len(net.Edges) > totalEdges {
		net.Edges = net.Edges[:totalEdges]
	}

	return net, nil
}

func parseNodeLine(line string) (models.NodeRecord, error) {
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return models.NodeRecord{}, fmt.Errorf("expected 'id lat lon', got %d fields", len(parts))
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return models.NodeRecord{}, fmt.Errorf("invalid node id %q: %w", parts[0], err)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return models.NodeRecord{}, fmt.Errorf("invalid latitude %q: %w", parts[1], err)
	}
	lon, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return models.NodeRecord{}, fmt.Errorf("invalid longitude %q: %w", parts[2], err)
	}

	return models.NodeRecord{ID: id, Lat: lat, Lon: lon}, nil
}

func parseEdgeLine(line string) (models.EdgeRecord, error) {
	parts := strings.Fields(line)
	if len(parts) < 6 {
		return models.EdgeRecord{}, fmt.Errorf("expected 'source target length type speed bidi', got %d fields", len(parts))
	}

	from, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return models.EdgeRecord{}, fmt.Errorf("invalid source id %q: %w", parts[0], err)
	}
	to, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return models.EdgeRecord{}, fmt.Errorf("invalid target id %q: %w", parts[1], err)
	}
	length, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return models.EdgeRecord{}, fmt.Errorf("invalid length %q: %w", parts[2], err)
	}
	maxSpeed, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return models.EdgeRecord{}, fmt.Errorf("invalid max speed %q: %w", parts[4], err)
	}
	bidi, err := strconv.Atoi(parts[5])
	if err != nil {
		return models.EdgeRecord{}, fmt.Errorf("invalid bidirectional flag %q: %w", parts[5], err)
	}

	return models.EdgeRecord{
		FromNodeID:    from,
		ToNodeID:      to,
		Length:        length,
		Class:         models.RoadClass(parts[3]),
		MaxSpeed:      maxSpeed,
		Bidirectional: bidi != 0,
	}, nil
}

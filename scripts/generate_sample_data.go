package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// Generates a small synthetic road grid and POI file for local testing:
//
//	go run scripts/generate_sample_data.go --out=testdata --size=5
//
// The grid spans a square near Yogyakarta with bidirectional residential
// roads, a handful of villages on grid corners and shelters near the center.
func main() {
	outDir := flag.String("out", "testdata", "Output directory")
	size := flag.Int("size", 5, "Grid dimension (size x size nodes)")
	seed := flag.Int64("seed", 42, "Random seed")
	flag.Parse()

	if *size < 2 {
		fmt.Println("Error: size must be at least 2")
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))

	networkPath := filepath.Join(*outDir, "sample_network.pycgr")
	if err := writeNetwork(networkPath, *size, rng); err != nil {
		fmt.Printf("Error writing network: %v\n", err)
		os.Exit(1)
	}

	poisPath := filepath.Join(*outDir, "sample_pois.csv")
	if err := writePOIs(poisPath, *size); err != nil {
		fmt.Printf("Error writing POIs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s and %s\n", networkPath, poisPath)
}

const (
	baseLat    = -7.80
	baseLon    = 110.36
	gridStep   = 0.005
	edgeLength = 556.0 // meters per grid step at this latitude
)

func nodeID(size, row, col int) int { return row*size + col }

func nodeLat(row int) float64 { return baseLat + float64(row)*gridStep }
func nodeLon(col int) float64 { return baseLon + float64(col)*gridStep }

func writeNetwork(path string, size int, rng *rand.Rand) error {
	var b strings.Builder

	for i := 0; i < 7; i++ {
		b.WriteString(fmt.Sprintf("# synthetic grid network line %d\n", i+1))
	}

	nodeCount := size * size
	edgeCount := 2 * size * (size - 1)
	b.WriteString(fmt.Sprintf("%d\n", nodeCount))
	b.WriteString(fmt.Sprintf("%d\n", edgeCount))

	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			b.WriteString(fmt.Sprintf("%d %.6f %.6f\n", nodeID(size, row, col), nodeLat(row), nodeLon(col)))
		}
	}

	classes := []string{"primary", "secondary", "tertiary", "residential"}
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			street := classes[rng.Intn(len(classes))]
			if col+1 < size {
				b.WriteString(fmt.Sprintf("%d %d %.1f %s 50 1\n",
					nodeID(size, row, col), nodeID(size, row, col+1), edgeLength, street))
			}
			if row+1 < size {
				b.WriteString(fmt.Sprintf("%d %d %.1f %s 50 1\n",
					nodeID(size, row, col), nodeID(size, row+1, col), edgeLength, street))
			}
		}
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func writePOIs(path string, size int) error {
	var b strings.Builder
	b.WriteString("name,category,lat,lng\n")

	b.WriteString(fmt.Sprintf("Desa Barat,village,%.6f,%.6f\n", nodeLat(0), nodeLon(0)))
	b.WriteString(fmt.Sprintf("Desa Timur,village,%.6f,%.6f\n", nodeLat(0), nodeLon(size-1)))
	b.WriteString(fmt.Sprintf("Desa Utara,village,%.6f,%.6f\n", nodeLat(size-1), nodeLon(0)))

	mid := size / 2
	b.WriteString(fmt.Sprintf("RSUD Pusat,hospital,%.6f,%.6f\n", nodeLat(mid), nodeLon(mid)))
	b.WriteString(fmt.Sprintf("Gudang Logistik,warehouse,%.6f,%.6f\n", nodeLat(size-1), nodeLon(size-1)))

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

//go:build ignore

// generate_testdata.go creates synthetic cluster datasets for manual runs
// and benchmarking.
// Usage: go run scripts/generate_testdata.go [-out testdata/datasets]
//
// Creates, per dataset, under <out>/<name>/:
//
//	cluster_data.json
//	cluster_data_rich.json
//	cluster_data.json.zst  (same records, zstd-compressed)
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/vanderheijden86/taxview/pkg/testutil"
)

type datasetSpec struct {
	name string
	size int
}

var datasets = []datasetSpec{
	{"small", 50},
	{"medium", 1000},
	{"large", 20000},
}

func main() {
	outputDir := flag.String("out", "testdata/datasets", "output directory")
	flag.Parse()

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d clusters)...\n", ds.name, ds.size)

		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(ds.size) // Reproducible per-size
		cfg.StringKeyEvery = 7
		gen := testutil.New(cfg)

		clusters := gen.Clusters(ds.size)
		data := gen.ToClusterJSON(clusters)
		rich := testutil.ToRichJSON(gen.Rich(clusters))

		dir := filepath.Join(*outputDir, ds.name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fail(err)
		}
		write(filepath.Join(dir, "cluster_data.json"), data)
		write(filepath.Join(dir, "cluster_data_rich.json"), rich)

		enc, err := zstd.NewWriter(nil)
		if err != nil {
			fail(err)
		}
		write(filepath.Join(dir, "cluster_data.json.zst"), enc.EncodeAll(data, nil))
		_ = enc.Close()
	}

	fmt.Println("\nDone! Run: taxview --data", filepath.Join(*outputDir, "medium", "cluster_data.json"))
}

func write(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fail(err)
	}
	fmt.Printf("  Written %s (%d bytes)\n", path, len(data))
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "generate_testdata: %v\n", err)
	os.Exit(1)
}

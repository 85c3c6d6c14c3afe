package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"frunk-store/internal/catalog"
)

func main() {
	var (
		filePath string
		mapPath  string
		outPath  string
		strict   bool
	)
	flag.StringVar(&filePath, "file", "", "Path to catalog YAML (embedded catalog when empty)")
	flag.StringVar(&mapPath, "map", "", "Path to variant_id,sync_variant_id CSV")
	flag.StringVar(&outPath, "out", "", "Write the merged catalog here instead of stdout")
	flag.BoolVar(&strict, "strict", false, "Fail when any variant has no vendor variant id")
	flag.Parse()

	logger := log.New(os.Stderr, "[catalog] ", log.LstdFlags|log.LUTC)

	cat, err := catalog.Load(filePath)
	if err != nil {
		logger.Fatalf("load catalog: %v", err)
	}
	updated, err := cat.ApplyVariantMappingFile(mapPath)
	if err != nil {
		logger.Fatalf("apply variant map: %v", err)
	}

	var total, missing int
	for _, p := range cat.Products() {
		for _, v := range p.Variants {
			total++
			if v.VendorVariantID == "" {
				missing++
				logger.Printf("unmapped variant product=%s variant=%s", p.ID, v.ID)
			}
		}
	}
	logger.Printf("products=%d variants=%d applied=%d unmapped=%d", len(cat.Products()), total, updated, missing)
	if strict && missing > 0 {
		logger.Fatalf("%d variant(s) have no vendor variant id", missing)
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			logger.Fatalf("create %s: %v", outPath, err)
		}
		defer f.Close()
		out = f
	}
	if err := cat.Encode(out); err != nil {
		logger.Fatalf("%v", err)
	}
	if outPath != "" {
		fmt.Fprintf(os.Stderr, "wrote %s\n", outPath)
	}
}

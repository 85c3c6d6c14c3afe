package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ApplyVariantMapping reads a CSV export with variant_id and sync_variant_id
// columns and stores each sync id on the matching variant. Rows with an empty
// sync id are skipped. It returns the number of variants updated.
func (c *Catalog) ApplyVariantMapping(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	variantCol, ok := index["variant_id"]
	if !ok {
		return 0, errors.New("mapping: missing variant_id column")
	}
	syncCol, ok := index["sync_variant_id"]
	if !ok {
		return 0, errors.New("mapping: missing sync_variant_id column")
	}

	locations := c.variantLocations()
	updated := 0
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return updated, fmt.Errorf("read row %d: %w", line, err)
		}
		variantID := field(record, variantCol)
		syncID := field(record, syncCol)
		if variantID == "" || syncID == "" {
			continue
		}
		if n, err := strconv.ParseInt(syncID, 10, 64); err != nil || n <= 0 {
			return updated, fmt.Errorf("mapping row %d: sync_variant_id %q is not a positive integer", line, syncID)
		}
		loc, ok := locations[variantID]
		if !ok {
			return updated, fmt.Errorf("mapping row %d: unknown variant %q", line, variantID)
		}
		c.products[loc[0]].Variants[loc[1]].VendorVariantID = syncID
		updated++
	}
	return updated, nil
}

// ApplyVariantMappingFile is ApplyVariantMapping for a file path; an empty
// path is a no-op.
func (c *Catalog) ApplyVariantMappingFile(path string) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open variant map: %w", err)
	}
	defer f.Close()
	return c.ApplyVariantMapping(f)
}

// Encode writes the catalog, including vendor variant ids, as YAML.
func (c *Catalog) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file{Products: c.products}); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}

// variantLocations maps variant id to [product index, variant index].
func (c *Catalog) variantLocations() map[string][2]int {
	out := make(map[string][2]int)
	for pi, p := range c.products {
		for vi, v := range p.Variants {
			out[v.ID] = [2]int{pi, vi}
		}
	}
	return out
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

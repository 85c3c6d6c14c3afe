package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"frunk-store/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Category string

const (
	CategoryTShirt  Category = "tshirt"
	CategoryHoodie  Category = "hoodie"
	CategoryMug     Category = "mug"
	CategorySticker Category = "sticker"
	CategoryOther   Category = "other"
)

// Variant is one purchasable size/color combination of a product.
type Variant struct {
	ID              string `yaml:"id" json:"id"`
	Size            string `yaml:"size" json:"size"`
	Color           string `yaml:"color" json:"color"`
	ColorHex        string `yaml:"colorHex" json:"colorHex"`
	VendorVariantID string `yaml:"vendorVariantId,omitempty" json:"-"`
	InStock         bool   `yaml:"inStock" json:"inStock"`
}

// Product is a catalog entry. Price is in cents.
type Product struct {
	ID          string    `yaml:"id" json:"id"`
	Slug        string    `yaml:"slug" json:"slug"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Price       int64     `yaml:"price" json:"price"`
	Category    Category  `yaml:"category" json:"category"`
	Images      []string  `yaml:"images" json:"images"`
	Variants    []Variant `yaml:"variants" json:"variants"`
}

type file struct {
	Products []Product `yaml:"products"`
}

// Catalog is the read-only product list served by the store. It must not be
// mutated (ApplyVariantMapping) once it is shared between requests.
type Catalog struct {
	products []Product
	byID     map[string]int
	bySlug   map[string]int
}

// Load returns the embedded catalog, or the catalog at path when it is set.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML catalog data and validates it.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	return New(f.Products)
}

// New validates products and builds the lookup indexes.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
		bySlug:   make(map[string]int, len(products)),
	}
	variantOwner := make(map[string]string)
	for _, p := range products {
		if err := validateProduct(p); err != nil {
			return nil, err
		}
		for _, v := range p.Variants {
			if owner, dup := variantOwner[v.ID]; dup {
				return nil, fmt.Errorf("catalog: variant id %q used by %q and %q", v.ID, owner, p.ID)
			}
			variantOwner[v.ID] = p.ID
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product id %q", p.ID)
		}
		if p.Slug == "" {
			p.Slug = p.ID
		}
		if _, dup := c.bySlug[p.Slug]; dup {
			return nil, fmt.Errorf("catalog: duplicate product slug %q", p.Slug)
		}
		if p.Category == "" {
			p.Category = CategoryOther
		}
		c.byID[p.ID] = len(c.products)
		c.bySlug[p.Slug] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

func validateProduct(p Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("catalog: product id required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("catalog: product %q: name required", p.ID)
	}
	if p.Price <= 0 {
		return fmt.Errorf("catalog: product %q: price must be positive", p.ID)
	}
	ids := make(map[string]struct{}, len(p.Variants))
	options := make(map[[2]string]string, len(p.Variants))
	for _, v := range p.Variants {
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("catalog: product %q: variant id required", p.ID)
		}
		if _, dup := ids[v.ID]; dup {
			return fmt.Errorf("catalog: product %q: duplicate variant id %q", p.ID, v.ID)
		}
		ids[v.ID] = struct{}{}
		key := [2]string{v.Size, v.Color}
		if other, dup := options[key]; dup {
			return fmt.Errorf("catalog: product %q: variants %q and %q share size=%s color=%s", p.ID, other, v.ID, v.Size, v.Color)
		}
		options[key] = v.ID
	}
	return nil
}

// Products returns every product in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// ByCategory returns the products of one category in catalog order.
func (c *Catalog) ByCategory(cat Category) []Product {
	var out []Product
	for _, p := range c.products {
		if p.Category == cat {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) ProductByID(id string) (Product, error) {
	idx, ok := c.byID[id]
	if !ok {
		return Product{}, domain.ErrNotFound
	}
	return c.products[idx], nil
}

func (c *Catalog) ProductBySlug(slug string) (Product, error) {
	idx, ok := c.bySlug[slug]
	if !ok {
		return Product{}, domain.ErrNotFound
	}
	return c.products[idx], nil
}

// Variant looks up a variant by product and variant id. It does not check stock.
func (c *Catalog) Variant(productID, variantID string) (Variant, error) {
	p, err := c.ProductByID(productID)
	if err != nil {
		return Variant{}, err
	}
	for _, v := range p.Variants {
		if v.ID == variantID {
			return v, nil
		}
	}
	return Variant{}, domain.ErrNotFound
}

// VariantByOptions finds the in-stock variant with the given size and color.
func VariantByOptions(p Product, size, color string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.Size == size && v.Color == color && v.InStock {
			return v, true
		}
	}
	return Variant{}, false
}

// AvailableSizes lists the distinct sizes that have stock, in catalog order.
func AvailableSizes(p Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range p.Variants {
		if !v.InStock {
			continue
		}
		if _, ok := seen[v.Size]; ok {
			continue
		}
		seen[v.Size] = struct{}{}
		out = append(out, v.Size)
	}
	return out
}

type ColorOption struct {
	Color string `json:"color"`
	Hex   string `json:"hex"`
}

// AvailableColors lists the distinct colors that have stock, in catalog order.
func AvailableColors(p Product) []ColorOption {
	seen := make(map[string]int)
	var out []ColorOption
	for _, v := range p.Variants {
		if !v.InStock {
			continue
		}
		if idx, ok := seen[v.Color]; ok {
			out[idx].Hex = v.ColorHex
			continue
		}
		seen[v.Color] = len(out)
		out = append(out, ColorOption{Color: v.Color, Hex: v.ColorHex})
	}
	return out
}

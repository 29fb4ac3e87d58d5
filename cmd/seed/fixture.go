package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Fixture is a catalogue snapshot: categories first, then products that
// reference categories by slug
type Fixture struct {
	Categories []CategoryFixture `yaml:"categories"`
	Products   []ProductFixture  `yaml:"products"`
}

// CategoryFixture describes one category. Parent names another category's slug
// declared earlier in the file or already in the database.
type CategoryFixture struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Parent      string `yaml:"parent"`
	SortOrder   int    `yaml:"sort_order"`
}

// ProductFixture describes one product with its variants
type ProductFixture struct {
	Name             string           `yaml:"name"`
	SKU              string           `yaml:"sku"`
	Price            string           `yaml:"price"`
	CompareAtPrice   string           `yaml:"compare_at_price"`
	Stock            int              `yaml:"stock"`
	Untracked        bool             `yaml:"untracked"`
	Inactive         bool             `yaml:"inactive"`
	Brand            string           `yaml:"brand"`
	Description      string           `yaml:"description"`
	ShortDescription string           `yaml:"short_description"`
	Categories       []string         `yaml:"categories"`
	Images           []string         `yaml:"images"`
	Attributes       map[string]any   `yaml:"attributes"`
	Variants         []VariantFixture `yaml:"variants"`
}

// VariantFixture is a size or colour of a product. An empty price inherits the
// product price.
type VariantFixture struct {
	SKU     string            `yaml:"sku"`
	Name    string            `yaml:"name"`
	Price   string            `yaml:"price"`
	Stock   int               `yaml:"stock"`
	Options map[string]string `yaml:"options"`
}

// LoadFixture decodes and validates a YAML catalogue. Unknown keys are errors
// so typos do not silently drop data.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks prices, duplicate SKUs and category references
func (f *Fixture) Validate() error {
	var errs []error

	for i, c := range f.Categories {
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, fmt.Errorf("categories[%d]: name is required", i))
		}
	}

	skus := make(map[string]bool, len(f.Products))
	for i, p := range f.Products {
		where := fmt.Sprintf("products[%d] (%s)", i, p.SKU)
		sku := strings.ToUpper(strings.TrimSpace(p.SKU))
		switch {
		case sku == "":
			errs = append(errs, fmt.Errorf("products[%d]: sku is required", i))
		case skus[sku]:
			errs = append(errs, fmt.Errorf("%s: duplicate sku", where))
		}
		skus[sku] = true

		if _, err := parsePrice(p.Price); err != nil {
			errs = append(errs, fmt.Errorf("%s: price: %w", where, err))
		}
		if p.CompareAtPrice != "" {
			if _, err := parsePrice(p.CompareAtPrice); err != nil {
				errs = append(errs, fmt.Errorf("%s: compare_at_price: %w", where, err))
			}
		}
		if p.Stock < 0 {
			errs = append(errs, fmt.Errorf("%s: stock cannot be negative", where))
		}
		for j, v := range p.Variants {
			if v.Price == "" {
				continue
			}
			if _, err := parsePrice(v.Price); err != nil {
				errs = append(errs, fmt.Errorf("%s: variants[%d]: price: %w", where, j, err))
			}
		}
	}
	return errors.Join(errs...)
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	return d.Round(2), nil
}

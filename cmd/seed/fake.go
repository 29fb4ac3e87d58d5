package main

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	fakeStyles  = []string{"Žabky", "Pantofle", "Sandály", "Plážové žabky", "Domácí pantofle"}
	fakeSizes   = []string{"36", "37", "38", "39", "40", "41", "42", "43", "44", "45"}
	fakeBrands  = []string{"Havaianas", "Ipanema", "Crocs", "Reef", "Rider", "FlipFlop"}
	fakeColours = []string{"černá", "bílá", "modrá", "červená", "zelená", "růžová", "žlutá"}
)

// FakeOptions controls FakeCatalog
type FakeOptions struct {
	Products   int
	Categories int
	// MaxVariants caps the size variants per product; 0 generates none
	MaxVariants int
	// SKUPrefix keeps generated SKUs apart from real ones
	SKUPrefix string
}

// FakeCatalog builds a fixture of random flip-flop products. The same faker
// seed always yields the same catalogue.
func FakeCatalog(f *gofakeit.Faker, opts FakeOptions) *Fixture {
	if opts.SKUPrefix == "" {
		opts.SKUPrefix = "FAKE"
	}
	fx := &Fixture{}
	title := cases.Title(language.Czech)

	for i := 0; i < opts.Categories; i++ {
		name := fmt.Sprintf("%s %s", f.RandomString(fakeStyles), title.String(f.Adjective()))
		fx.Categories = append(fx.Categories, CategoryFixture{
			Name:        name,
			Slug:        fmt.Sprintf("fake-%d-%s", i+1, strings.ToLower(f.LetterN(5))),
			Description: f.Sentence(12),
			SortOrder:   i,
		})
	}

	for i := 0; i < opts.Products; i++ {
		style := f.RandomString(fakeStyles)
		colour := f.RandomString(fakeColours)
		price := f.Price(149, 1499)

		p := ProductFixture{
			Name:             fmt.Sprintf("%s %s %s", style, f.RandomString(fakeBrands), colour),
			SKU:              fmt.Sprintf("%s-%05d", opts.SKUPrefix, i+1),
			Price:            fmt.Sprintf("%.2f", price),
			Stock:            f.Number(0, 120),
			Brand:            f.RandomString(fakeBrands),
			Description:      f.Paragraph(2, 3, 12, " "),
			ShortDescription: f.Sentence(8),
			Attributes: map[string]any{
				"colour":   colour,
				"material": f.RandomString([]string{"guma", "EVA", "kůže", "textil"}),
			},
		}
		if f.Bool() {
			p.CompareAtPrice = fmt.Sprintf("%.2f", price*1.2)
		}
		if len(fx.Categories) > 0 {
			p.Categories = []string{fx.Categories[f.Number(0, len(fx.Categories)-1)].Slug}
		}
		if opts.MaxVariants > 0 {
			p.Variants = fakeVariants(f, p.SKU, f.Number(0, opts.MaxVariants))
		}
		fx.Products = append(fx.Products, p)
	}
	return fx
}

func fakeVariants(f *gofakeit.Faker, sku string, n int) []VariantFixture {
	if n > len(fakeSizes) {
		n = len(fakeSizes)
	}
	start := f.Number(0, len(fakeSizes)-n)
	variants := make([]VariantFixture, 0, n)
	for _, size := range fakeSizes[start : start+n] {
		variants = append(variants, VariantFixture{
			SKU:     sku + "-" + size,
			Name:    size,
			Stock:   f.Number(0, 30),
			Options: map[string]string{"size": size},
		})
	}
	return variants
}

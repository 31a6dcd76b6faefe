package projection

import (
	"fmt"
	"sort"
	"strings"

	"country-feed-sync/core/utils"
	"country-feed-sync/feature/catalog"
	"country-feed-sync/feature/mapping"

	"go.uber.org/zap"
)

// Availability is the stock fact derived for one (variant, country) pair.
type Availability string

const (
	InStock    Availability = "in stock"
	OutOfStock Availability = "out of stock"
)

// CountryVariant is the join product of the catalog graph and the country
// mapping: one row per (variant, country) with the resolved stock fact.
// It is the unit the diff, feed and upload stages operate on.
type CountryVariant struct {
	VariantID   string // numeric variant id
	CountryCode string
	CountryName string
	Quantity    int
	SKU         string
	Price       string
	UpdatedAt   string
	ProductID   string // numeric product id
}

// Key is the composite (variant id, country code) identity of the row.
func (v CountryVariant) Key() string {
	return fmt.Sprintf("%s-%s", v.VariantID, v.CountryCode)
}

// Availability derives the stock fact from the summed quantity.
func (v CountryVariant) Availability() Availability {
	if v.Quantity > 0 {
		return InStock
	}
	return OutOfStock
}

// Result carries the projected rows plus counters for the run summary.
type Result struct {
	Variants []CountryVariant
	// Countries is the sorted set of countries that received non-zero
	// inventory somewhere; only these appear in Variants.
	Countries []string
	// SkippedNoSKU counts variants dropped for lacking a resolvable SKU.
	SkippedNoSKU int
}

// Projector joins variants and inventory facts with a country mapping.
type Projector struct {
	logger *zap.Logger
}

// NewProjector creates a variant projector.
func NewProjector(logger *zap.Logger) *Projector {
	return &Projector{logger: logger}
}

// Project sums each variant's available quantity per country: every
// inventory fact at a known, mapped location contributes its full quantity
// to every country that location serves. Countries where no variant has any
// stock are dropped from the output entirely. Variants without a SKU are
// skipped and counted; downstream identifier composition requires one.
func (p *Projector) Project(graph *catalog.Graph, m *mapping.Mapping) *Result {
	// quantity per composite key, first pass over inventory facts
	quantities := make(map[string]int)
	warnedLocations := make(map[string]struct{})

	for variantGID, levels := range graph.InventoryByVariant {
		for _, level := range levels {
			locationID := utils.NumericGID(level.LocationID)
			served, known := m.Locations[locationID]
			if !known {
				if _, warned := warnedLocations[locationID]; !warned && locationID != "" {
					p.logger.Warn("Inventory at unmapped location", zap.String("location_id", locationID))
					warnedLocations[locationID] = struct{}{}
				}
				continue
			}
			// Oversold locations report negative availability; they must not
			// cancel real stock elsewhere.
			if level.Available <= 0 {
				continue
			}
			// Full quantity attributed to every served country, no splitting.
			for _, code := range served.Countries {
				quantities[variantGID+"-"+code] += level.Available
			}
		}
	}

	// Output countries: exactly those with non-zero stock somewhere.
	// Composite keys end in "-<code>"; country codes never contain a dash.
	withInventory := make(map[string]struct{})
	for key, qty := range quantities {
		if qty > 0 {
			code := key[strings.LastIndex(key, "-")+1:]
			withInventory[code] = struct{}{}
		}
	}
	countries := make([]string, 0, len(withInventory))
	for code := range withInventory {
		countries = append(countries, code)
	}
	sort.Strings(countries)

	result := &Result{Countries: countries}

	for variantGID, variant := range graph.Variants {
		if variant.SKU == "" {
			result.SkippedNoSKU++
			continue
		}

		for _, code := range countries {
			country := m.ActiveCountries[code]
			result.Variants = append(result.Variants, CountryVariant{
				VariantID:   utils.NumericGID(variantGID),
				CountryCode: code,
				CountryName: country.Name,
				Quantity:    quantities[variantGID+"-"+code],
				SKU:         variant.SKU,
				Price:       variant.Price,
				UpdatedAt:   variant.UpdatedAt,
				ProductID:   utils.NumericGID(variant.ProductID),
			})
		}
	}

	inStock := 0
	for _, v := range result.Variants {
		if v.Quantity > 0 {
			inStock++
		}
	}

	p.logger.Info("Projected country variants",
		zap.Int("rows", len(result.Variants)),
		zap.Int("in_stock", inStock),
		zap.Strings("countries", countries),
		zap.Int("skipped_no_sku", result.SkippedNoSKU))

	return result
}

// Package projection joins the catalog record graph with the country
// mapping to produce one CountryVariant row per (variant, country) pair.
//
// Each inventory fact contributes its full quantity to every country its
// location serves; a location serving two countries counts toward both.
// Countries with zero observed inventory across the whole run do not appear
// in the output at all, even when technically active.
//
// The pass is pure computation over in-memory inputs; it makes no external
// calls.
package projection

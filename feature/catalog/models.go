package catalog

import "country-feed-sync/core/utils"

// Kind discriminates the closed set of record types appearing in a product
// export stream. It is resolved once at parse time from the record's gid;
// downstream code switches on the kind instead of probing fields.
type Kind int

const (
	KindUnknown Kind = iota
	KindProduct
	KindVariant
	KindInventoryLevel
)

// KindOf derives the record kind from a Shopify global id. Inventory level
// lines carry no own gid and are recognized by shape, not by id.
func KindOf(gid string) Kind {
	switch utils.GIDType(gid) {
	case "Product":
		return KindProduct
	case "ProductVariant":
		return KindVariant
	case "InventoryLevel":
		return KindInventoryLevel
	default:
		return KindUnknown
	}
}

// Product is one product revealed by the export. Products are usually
// embedded in variant records rather than listed standalone.
type Product struct {
	ID          string
	Title       string
	Handle      string
	Description string
	ImageURL    string
}

// Variant is one product variant with its owning product resolved.
type Variant struct {
	ID        string
	SKU       string
	Price     string
	UpdatedAt string
	ProductID string
}

// InventoryLevel is the available quantity of one variant at one stocking
// location. A variant accumulates zero or more of these as the stream
// progresses.
type InventoryLevel struct {
	VariantID  string
	LocationID string
	Available  int
}

// Graph is the relational record graph reconstructed from a flat export
// stream: products and variants keyed by gid, inventory levels grouped by
// their owning variant.
type Graph struct {
	Products           map[string]Product
	Variants           map[string]Variant
	InventoryByVariant map[string][]InventoryLevel
	// SkippedLines counts malformed lines that were logged and dropped.
	SkippedLines int
}

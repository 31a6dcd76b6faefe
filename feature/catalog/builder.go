package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// maxLineBytes bounds a single export line; product descriptions can be
// large but a JSONL line beyond this is considered malformed.
const maxLineBytes = 4 * 1024 * 1024

// rawLine is the superset of fields a single export line may carry. Which
// subset is populated depends on the record kind.
type rawLine struct {
	ID            string            `json:"id"`
	ParentID      string            `json:"__parentId"`
	SKU           string            `json:"sku"`
	Price         string            `json:"price"`
	UpdatedAt     string            `json:"updatedAt"`
	Title         string            `json:"title"`
	Handle        string            `json:"handle"`
	Description   string            `json:"description"`
	FeaturedImage *rawImage         `json:"featuredImage"`
	Product       *rawProduct       `json:"product"`
	InventoryItem *rawInventoryItem `json:"inventoryItem"`
	Location      *rawRef           `json:"location"`
	Quantities    []rawQuantity     `json:"quantities"`
}

type rawImage struct {
	URL string `json:"url"`
}

type rawProduct struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Handle        string    `json:"handle"`
	Description   string    `json:"description"`
	FeaturedImage *rawImage `json:"featuredImage"`
}

type rawInventoryItem struct {
	ID  string `json:"id"`
	SKU string `json:"sku"`
}

type rawRef struct {
	ID string `json:"id"`
}

type rawQuantity struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Builder reconstructs the relational record graph from a flat JSONL export
// stream in a single pass.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a record graph builder.
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build parses the stream line by line, accumulating products, variants and
// inventory levels. A malformed line is logged and skipped; it never fails
// the whole build. State is accumulated in the three graph maps and never
// revisited or rolled back.
func (b *Builder) Build(r io.Reader) (*Graph, error) {
	graph := &Graph{
		Products:           make(map[string]Product),
		Variants:           make(map[string]Variant),
		InventoryByVariant: make(map[string][]InventoryLevel),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record rawLine
		if err := json.Unmarshal(line, &record); err != nil {
			b.logger.Warn("Skipping malformed export line",
				zap.Int("line", lineNo),
				zap.Error(err))
			graph.SkippedLines++
			continue
		}

		b.process(&record, graph)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read export stream: %w", err)
	}

	b.logger.Info("Record graph built",
		zap.Int("lines", lineNo),
		zap.Int("products", len(graph.Products)),
		zap.Int("variants", len(graph.Variants)),
		zap.Int("variants_with_inventory", len(graph.InventoryByVariant)),
		zap.Int("skipped_lines", graph.SkippedLines))

	return graph, nil
}

func (b *Builder) process(record *rawLine, graph *Graph) {
	// Top-level records carry their own gid and no parent.
	if record.ID != "" && record.ParentID == "" {
		switch KindOf(record.ID) {
		case KindVariant:
			graph.Variants[record.ID] = variantFromRaw(record)
			// Products are revealed only through their variants in this
			// export shape; the embedded payload populates the product table.
			if p := record.Product; p != nil && p.ID != "" {
				graph.Products[p.ID] = productFromRaw(p)
			}
		case KindProduct:
			graph.Products[record.ID] = Product{
				ID:          record.ID,
				Title:       record.Title,
				Handle:      record.Handle,
				Description: record.Description,
				ImageURL:    imageURL(record.FeaturedImage),
			}
		}
		return
	}

	// A child line may still carry a variant gid of its own, depending on
	// how the export nests connections. Keep it as a variant.
	if record.ParentID != "" && KindOf(record.ID) == KindVariant {
		graph.Variants[record.ID] = variantFromRaw(record)
		if p := record.Product; p != nil && p.ID != "" {
			graph.Products[p.ID] = productFromRaw(p)
		}
		return
	}

	// Remaining child records reference their parent and have no gid of
	// their own; an inventory level is recognized by its shape.
	if record.ParentID != "" && record.Location != nil {
		graph.InventoryByVariant[record.ParentID] = append(
			graph.InventoryByVariant[record.ParentID],
			InventoryLevel{
				VariantID:  record.ParentID,
				LocationID: record.Location.ID,
				Available:  availableQuantity(record.Quantities),
			})
	}
}

func variantFromRaw(record *rawLine) Variant {
	sku := record.SKU
	if sku == "" && record.InventoryItem != nil {
		sku = record.InventoryItem.SKU
	}

	productID := ""
	if record.Product != nil {
		productID = record.Product.ID
	}

	return Variant{
		ID:        record.ID,
		SKU:       sku,
		Price:     record.Price,
		UpdatedAt: record.UpdatedAt,
		ProductID: productID,
	}
}

func productFromRaw(p *rawProduct) Product {
	return Product{
		ID:          p.ID,
		Title:       p.Title,
		Handle:      p.Handle,
		Description: p.Description,
		ImageURL:    imageURL(p.FeaturedImage),
	}
}

func imageURL(img *rawImage) string {
	if img == nil {
		return ""
	}
	return img.URL
}

func availableQuantity(quantities []rawQuantity) int {
	for _, q := range quantities {
		if q.Name == "available" {
			return q.Quantity
		}
	}
	return 0
}

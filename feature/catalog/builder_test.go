package catalog_test

import (
	"strings"
	"testing"

	"country-feed-sync/feature/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const variantLine = `{"id":"gid://shopify/ProductVariant/1001","sku":"TEE-M","price":"19.90","updatedAt":"2026-08-01T10:00:00Z","product":{"id":"gid://shopify/Product/42","title":"Tee","handle":"tee","description":"<p>Soft</p>","featuredImage":{"url":"https://cdn.example.com/tee.jpg"}},"inventoryItem":{"id":"gid://shopify/InventoryItem/501","sku":"TEE-M"}}`

const levelLine1 = `{"location":{"id":"gid://shopify/Location/77"},"quantities":[{"name":"available","quantity":5}],"__parentId":"gid://shopify/ProductVariant/1001"}`
const levelLine2 = `{"location":{"id":"gid://shopify/Location/78"},"quantities":[{"name":"available","quantity":0}],"__parentId":"gid://shopify/ProductVariant/1001"}`

func build(t *testing.T, lines ...string) *catalog.Graph {
	t.Helper()
	graph, err := catalog.NewBuilder(zap.NewNop()).Build(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	return graph
}

func TestBuild_VariantWithEmbeddedProduct(t *testing.T) {
	graph := build(t, variantLine)

	require.Len(t, graph.Variants, 1)
	variant := graph.Variants["gid://shopify/ProductVariant/1001"]
	assert.Equal(t, "TEE-M", variant.SKU)
	assert.Equal(t, "19.90", variant.Price)
	assert.Equal(t, "gid://shopify/Product/42", variant.ProductID)

	// The embedded payload populates the product table as a side effect.
	require.Len(t, graph.Products, 1)
	product := graph.Products["gid://shopify/Product/42"]
	assert.Equal(t, "Tee", product.Title)
	assert.Equal(t, "https://cdn.example.com/tee.jpg", product.ImageURL)
}

func TestBuild_InventoryLevelsAccumulateInArrivalOrder(t *testing.T) {
	graph := build(t, variantLine, levelLine1, levelLine2)

	levels := graph.InventoryByVariant["gid://shopify/ProductVariant/1001"]
	require.Len(t, levels, 2)
	assert.Equal(t, "gid://shopify/Location/77", levels[0].LocationID)
	assert.Equal(t, 5, levels[0].Available)
	assert.Equal(t, "gid://shopify/Location/78", levels[1].LocationID)
	assert.Equal(t, 0, levels[1].Available)
}

func TestBuild_ChildVariantLineIsKeptAsVariant(t *testing.T) {
	// Some connection shapes emit variants as children of their product
	// instead of top level; the gid still identifies them.
	childVariant := `{"id":"gid://shopify/ProductVariant/2002","sku":"TEE-L","price":"21.90","product":{"id":"gid://shopify/Product/42","title":"Tee"},"__parentId":"gid://shopify/Product/42"}`

	graph := build(t, childVariant)

	require.Len(t, graph.Variants, 1)
	variant := graph.Variants["gid://shopify/ProductVariant/2002"]
	assert.Equal(t, "TEE-L", variant.SKU)
	assert.Equal(t, "gid://shopify/Product/42", variant.ProductID)
	assert.Empty(t, graph.InventoryByVariant)
}

func TestBuild_MalformedLineIsSkippedNotFatal(t *testing.T) {
	lines := []string{
		variantLine,
		levelLine1,
		`{"id": not-valid-json`,
		levelLine2,
		`{"id":"gid://shopify/ProductVariant/2002","sku":"TEE-L","price":"19.90","product":{"id":"gid://shopify/Product/42","title":"Tee"}}`,
	}

	graph := build(t, lines...)

	assert.Equal(t, 1, graph.SkippedLines)
	assert.Len(t, graph.Variants, 2)
	assert.Len(t, graph.InventoryByVariant["gid://shopify/ProductVariant/1001"], 2)
}

func TestBuild_SKUFallsBackToInventoryItem(t *testing.T) {
	graph := build(t, `{"id":"gid://shopify/ProductVariant/3003","price":"9.90","inventoryItem":{"id":"gid://shopify/InventoryItem/900","sku":"FALLBACK"}}`)

	assert.Equal(t, "FALLBACK", graph.Variants["gid://shopify/ProductVariant/3003"].SKU)
}

func TestBuild_EmptyAndBlankLines(t *testing.T) {
	graph := build(t, "", variantLine, "")

	assert.Len(t, graph.Variants, 1)
	assert.Equal(t, 0, graph.SkippedLines)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, catalog.KindProduct, catalog.KindOf("gid://shopify/Product/1"))
	assert.Equal(t, catalog.KindVariant, catalog.KindOf("gid://shopify/ProductVariant/1"))
	assert.Equal(t, catalog.KindInventoryLevel, catalog.KindOf("gid://shopify/InventoryLevel/1"))
	assert.Equal(t, catalog.KindUnknown, catalog.KindOf("gid://shopify/Collection/1"))
}

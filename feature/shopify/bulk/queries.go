package bulk

import "fmt"

// ProductVariantsQuery returns the bulk document fetching all active product
// variants with embedded product data and per-location inventory levels.
// A non-empty sinceISO narrows the export to variants updated after that
// instant (incremental mode).
func ProductVariantsQuery(sinceISO string) string {
	filter := "product_status:active"
	if sinceISO != "" {
		filter = fmt.Sprintf("product_status:active updated_at:>%s", sinceISO)
	}

	return fmt.Sprintf(`{
  productVariants(query: "%s") {
    edges {
      node {
        id
        sku
        price
        updatedAt
        product {
          id
          title
          handle
          description
          featuredImage { url }
        }
        inventoryItem {
          id
          sku
          inventoryLevels {
            edges {
              node {
                location { id }
                quantities(names: ["available"]) {
                  name
                  quantity
                }
              }
            }
          }
        }
      }
    }
  }
}`, filter)
}

// LocationsQuery is the bulk document fetching every stocking location.
const LocationsQuery = `{
  locations {
    edges {
      node {
        id
        name
        address { countryCode }
        isActive
      }
    }
  }
}`

// submitMutation wraps a bulk document in a bulkOperationRunQuery mutation.
func submitMutation(query string) string {
	return fmt.Sprintf(`mutation {
  bulkOperationRunQuery(
    query: """
%s
"""
  ) {
    bulkOperation {
      id
      status
    }
    userErrors {
      field
      message
    }
  }
}`, query)
}

// currentOperationQuery polls the single outstanding bulk operation slot.
const currentOperationQuery = `query {
  currentBulkOperation {
    id
    status
    errorCode
    createdAt
    completedAt
    objectCount
    fileSize
    url
    partialDataUrl
  }
}`

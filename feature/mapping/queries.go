package mapping

import "fmt"

// marketsQuery lists every market with its regions. A store can have at most
// 237 regions and a region belongs to one market, so a single page suffices.
const marketsQuery = `query getMarketsComplete {
  markets(first: 250) {
    edges {
      node {
        id
        regions(first: 250) {
          edges {
            node {
              ... on MarketRegionCountry {
                code
                name
              }
            }
          }
        }
      }
    }
  }
}`

// deliveryProfilesQuery fetches location groups and their shipping zones.
// Location groups cannot exceed 200 locations on any plan; zone pages beyond
// the first 250 are fetched through zonesPageQuery.
const deliveryProfilesQuery = `{
  deliveryProfiles(first: 100) {
    edges {
      node {
        id
        profileLocationGroups {
          locationGroup {
            locations(first: 200) {
              edges {
                node { id }
              }
            }
          }
          locationGroupZones(first: 250) {
            edges {
              node {
                zone {
                  countries {
                    code { countryCode }
                  }
                }
              }
            }
            pageInfo {
              hasNextPage
              endCursor
            }
          }
        }
      }
    }
  }
}`

// zonesPageQuery resumes zone pagination for one profile. The continuation
// cursor is scoped to that profile's locationGroupZones sub-field; the group
// index disambiguates which group the page belongs to on the caller side.
func zonesPageQuery(profileID, cursor string) string {
	return fmt.Sprintf(`{
  node(id: "%s") {
    ... on DeliveryProfile {
      profileLocationGroups {
        locationGroupZones(first: 250, after: "%s") {
          pageInfo {
            hasNextPage
            endCursor
          }
          edges {
            node {
              zone {
                countries {
                  code { countryCode }
                }
              }
            }
          }
        }
      }
    }
  }
}`, profileID, cursor)
}

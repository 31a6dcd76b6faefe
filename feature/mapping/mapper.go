package mapping

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"country-feed-sync/core/utils"
	"country-feed-sync/feature/shopify"
	"country-feed-sync/feature/shopify/bulk"

	"go.uber.org/zap"
)

// BulkClient runs one bulk export document and returns the local path of its
// JSONL result. Satisfied by *bulk.Runner.
type BulkClient interface {
	Run(ctx context.Context, query string) (string, error)
}

// FingerprintStore persists the structural fingerprint between runs.
// Satisfied by the state store.
type FingerprintStore interface {
	LoadFingerprint() (string, error)
	SaveFingerprint(fingerprint string) error
	ClearFingerprint() error
}

// Mapper resolves the active country set and location→country associations,
// and detects structural change between runs through a persisted fingerprint.
type Mapper struct {
	client *shopify.Client
	bulk   BulkClient
	store  FingerprintStore
	cfg    Config
	logger *zap.Logger
}

// NewMapper creates a country mapper.
func NewMapper(client *shopify.Client, bulkClient BulkClient, store FingerprintStore, cfg Config, logger *zap.Logger) *Mapper {
	return &Mapper{
		client: client,
		bulk:   bulkClient,
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Resolve builds a fresh mapping from the markets, locations and delivery
// profile queries. A delivery profile failure degrades to declared-country
// mapping with a warning instead of failing the build.
func (m *Mapper) Resolve(ctx context.Context) (*Mapping, error) {
	countries, err := m.activeCountries(ctx)
	if err != nil {
		return nil, err
	}

	locations, err := m.locations(ctx)
	if err != nil {
		return nil, err
	}

	served, err := m.deliveryRelationships(ctx)
	if err != nil {
		m.logger.Warn("Delivery profile query failed, falling back to declared location countries", zap.Error(err))
		served = map[string][]string{}
	}

	mapped := make(map[string]ServedCountries)
	for id, loc := range locations {
		if !loc.Active {
			continue
		}

		if zoneCountries, ok := served[id]; ok {
			inActive := make([]string, 0, len(zoneCountries))
			for _, code := range zoneCountries {
				if _, active := countries[code]; active {
					inActive = append(inActive, code)
				}
			}
			if len(inActive) > 0 {
				mapped[id] = ServedCountries{Name: loc.Name, Countries: inActive}
				continue
			}
		}

		// No usable fulfillment-zone entry: the location serves only its
		// own declared country, if that country is active.
		if _, active := countries[loc.CountryCode]; active {
			mapped[id] = ServedCountries{Name: loc.Name, Countries: []string{loc.CountryCode}}
		}
	}

	mapping := &Mapping{
		ActiveCountries: countries,
		Locations:       mapped,
		CreatedAt:       time.Now().UTC(),
	}
	mapping.Fingerprint = Fingerprint(countries, mapped)

	m.logger.Info("Country mapping resolved",
		zap.Int("countries", len(countries)),
		zap.Int("locations", len(mapped)))

	return mapping, nil
}

// HasChanged compares the mapping's fingerprint against the persisted one
// and reports whether a structural change occurred, with a reason. The new
// fingerprint is persisted unconditionally so staleness never accumulates.
func (m *Mapper) HasChanged(current *Mapping) (bool, string, error) {
	previous, err := m.store.LoadFingerprint()
	if err != nil {
		return false, "", fmt.Errorf("failed to load previous mapping fingerprint: %w", err)
	}

	var changed bool
	var reason string
	switch {
	case previous == "":
		changed, reason = true, "no previous mapping fingerprint - first run"
	case previous != current.Fingerprint:
		changed, reason = true, "mapping structure changed - fingerprint mismatch"
	default:
		changed, reason = false, "mapping unchanged - fingerprint match"
	}

	if err := m.store.SaveFingerprint(current.Fingerprint); err != nil {
		return false, "", fmt.Errorf("failed to save mapping fingerprint: %w", err)
	}

	m.logger.Info("Mapping change detection",
		zap.Bool("changed", changed),
		zap.String("reason", reason),
		zap.String("fingerprint", short(current.Fingerprint)),
		zap.String("previous", short(previous)))

	return changed, reason, nil
}

// ClearCache drops the persisted fingerprint so the next run detects change.
func (m *Mapper) ClearCache() error {
	return m.store.ClearFingerprint()
}

func short(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}

type marketsView struct {
	Markets struct {
		Edges []struct {
			Node struct {
				ID      string `json:"id"`
				Regions struct {
					Edges []struct {
						Node struct {
							Code string `json:"code"`
							Name string `json:"name"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"regions"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"markets"`
}

func (m *Mapper) activeCountries(ctx context.Context) (map[string]Country, error) {
	var view marketsView
	if err := m.client.Execute(ctx, marketsQuery, nil, &view); err != nil {
		return nil, fmt.Errorf("markets query failed: %w", err)
	}

	allowlist := m.cfg.CountryMode == CountryModeAllowlist
	targets := m.cfg.targets()

	countries := make(map[string]Country)
	for _, market := range view.Markets.Edges {
		for _, region := range market.Node.Regions.Edges {
			code, name := region.Node.Code, region.Node.Name
			if code == "" || name == "" {
				continue
			}
			if allowlist {
				if _, ok := targets[code]; !ok {
					continue
				}
			}
			countries[code] = Country{Code: code, Name: name, MarketID: market.Node.ID}
		}
	}

	m.logger.Info("Active countries resolved",
		zap.Int("count", len(countries)),
		zap.String("mode", m.cfg.CountryMode))

	return countries, nil
}

// locationLine is one record of the locations bulk export.
type locationLine struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address struct {
		CountryCode string `json:"countryCode"`
	} `json:"address"`
	IsActive bool `json:"isActive"`
}

func (m *Mapper) locations(ctx context.Context) (map[string]Location, error) {
	path, err := m.bulk.Run(ctx, bulk.LocationsQuery)
	if err != nil {
		if errors.Is(err, bulk.ErrNoResult) {
			return map[string]Location{}, nil
		}
		return nil, fmt.Errorf("locations export failed: %w", err)
	}
	defer os.Remove(path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open locations export: %w", err)
	}
	defer file.Close()

	locations := make(map[string]Location)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record locationLine
		if err := json.Unmarshal(line, &record); err != nil {
			m.logger.Warn("Skipping malformed location line", zap.Error(err))
			continue
		}
		if utils.GIDType(record.ID) != "Location" {
			continue
		}

		id := utils.NumericGID(record.ID)
		locations[id] = Location{
			ID:          id,
			GID:         record.ID,
			Name:        record.Name,
			CountryCode: record.Address.CountryCode,
			Active:      record.IsActive,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read locations export: %w", err)
	}

	return locations, nil
}

type zoneCountry struct {
	Code struct {
		CountryCode string `json:"countryCode"`
	} `json:"code"`
}

type zoneEdge struct {
	Node struct {
		Zone struct {
			Countries []zoneCountry `json:"countries"`
		} `json:"zone"`
	} `json:"node"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type zonePage struct {
	Edges    []zoneEdge `json:"edges"`
	PageInfo pageInfo   `json:"pageInfo"`
}

type profileLocationGroup struct {
	LocationGroup struct {
		Locations struct {
			Edges []struct {
				Node struct {
					ID string `json:"id"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"locations"`
	} `json:"locationGroup"`
	LocationGroupZones zonePage `json:"locationGroupZones"`
}

type deliveryProfilesView struct {
	DeliveryProfiles struct {
		Edges []struct {
			Node struct {
				ID                    string                 `json:"id"`
				ProfileLocationGroups []profileLocationGroup `json:"profileLocationGroups"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"deliveryProfiles"`
}

type zonesPageView struct {
	Node struct {
		ProfileLocationGroups []struct {
			LocationGroupZones zonePage `json:"locationGroupZones"`
		} `json:"profileLocationGroups"`
	} `json:"node"`
}

// deliveryRelationships maps numeric location ids to the country codes their
// fulfillment zones permit. Zone lists longer than one page are resumed with
// a continuation cursor scoped to the owning profile and group.
func (m *Mapper) deliveryRelationships(ctx context.Context) (map[string][]string, error) {
	var view deliveryProfilesView
	if err := m.client.Execute(ctx, deliveryProfilesQuery, nil, &view); err != nil {
		return nil, fmt.Errorf("delivery profiles query failed: %w", err)
	}

	served := make(map[string][]string)
	seen := make(map[string]map[string]struct{})

	for _, profile := range view.DeliveryProfiles.Edges {
		for groupIndex, group := range profile.Node.ProfileLocationGroups {
			countries := collectZoneCountries(group.LocationGroupZones.Edges)

			page := group.LocationGroupZones.PageInfo
			for page.HasNextPage {
				next, err := m.zonesPage(ctx, profile.Node.ID, groupIndex, page.EndCursor)
				if err != nil {
					return nil, err
				}
				countries = append(countries, collectZoneCountries(next.Edges)...)
				page = next.PageInfo
			}

			for _, edge := range group.LocationGroup.Locations.Edges {
				id := utils.NumericGID(edge.Node.ID)
				if seen[id] == nil {
					seen[id] = make(map[string]struct{})
				}
				for _, code := range countries {
					if _, dup := seen[id][code]; dup {
						continue
					}
					seen[id][code] = struct{}{}
					served[id] = append(served[id], code)
				}
			}
		}
	}

	m.logger.Info("Delivery relationships resolved", zap.Int("locations", len(served)))
	return served, nil
}

func (m *Mapper) zonesPage(ctx context.Context, profileID string, groupIndex int, cursor string) (*zonePage, error) {
	var view zonesPageView
	if err := m.client.Execute(ctx, zonesPageQuery(profileID, cursor), nil, &view); err != nil {
		return nil, fmt.Errorf("delivery zone pagination failed for profile %s: %w", profileID, err)
	}
	groups := view.Node.ProfileLocationGroups
	if groupIndex >= len(groups) {
		return nil, fmt.Errorf("delivery zone pagination: profile %s has no location group %d", profileID, groupIndex)
	}
	page := groups[groupIndex].LocationGroupZones
	return &page, nil
}

func collectZoneCountries(edges []zoneEdge) []string {
	var countries []string
	for _, edge := range edges {
		for _, country := range edge.Node.Zone.Countries {
			if code := country.Code.CountryCode; code != "" {
				countries = append(countries, code)
			}
		}
	}
	return countries
}

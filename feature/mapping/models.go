package mapping

import (
	"fmt"
	"strings"
	"time"
)

// Country is one active market region.
type Country struct {
	Code     string
	Name     string
	MarketID string
}

// Location is a stocking location as reported by the locations export.
type Location struct {
	ID          string // numeric id
	GID         string
	Name        string
	CountryCode string // declared address country
	Active      bool
}

// ServedCountries is the set of countries one location ships to.
type ServedCountries struct {
	Name      string
	Countries []string
}

// Mapping is the resolved country/location structure one sync run operates
// on: the active country set and, per location, the countries it serves.
// The fingerprint is a stable hash over the structural identity (country
// codes and location ids, never quantities) used for change detection.
type Mapping struct {
	ActiveCountries map[string]Country
	Locations       map[string]ServedCountries // keyed by numeric location id
	Fingerprint     string
	CreatedAt       time.Time
}

// CountryModeAll accepts every region the markets query returns.
// CountryModeAllowlist restricts regions to the configured target countries.
// The deployment picks exactly one mode; there is no implicit branching on
// whether a target list happens to be set.
const (
	CountryModeAll       = "all"
	CountryModeAllowlist = "allowlist"
)

// Config holds configuration for country/location mapping resolution.
type Config struct {
	// CountryMode selects active-country resolution: "all" or "allowlist".
	CountryMode string `mapstructure:"country_mode" default:"all"`
	// TargetCountries is the comma-separated allow-list, required when
	// CountryMode is "allowlist".
	TargetCountries string `mapstructure:"target_countries" default:""`
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	switch c.CountryMode {
	case CountryModeAll, "":
		return nil
	case CountryModeAllowlist:
		if len(c.targets()) == 0 {
			return fmt.Errorf("mapping country_mode=allowlist requires a non-empty target_countries list")
		}
		return nil
	default:
		return fmt.Errorf("unsupported mapping country_mode: %s", c.CountryMode)
	}
}

func (c Config) targets() map[string]struct{} {
	set := make(map[string]struct{})
	for _, code := range strings.Split(c.TargetCountries, ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code != "" {
			set[code] = struct{}{}
		}
	}
	return set
}

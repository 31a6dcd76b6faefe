package mapping

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// fingerprintInput is the canonical structure hashed for change detection.
// Only structural identity participates: quantities never influence it.
type fingerprintInput struct {
	Countries []string `json:"countries"`
	Locations []string `json:"locations"`
}

// Fingerprint computes a stable hash over the sorted active country codes
// and sorted location ids of a mapping. Two mappings fingerprint equal
// exactly when those two identity sets are equal.
func Fingerprint(countries map[string]Country, locations map[string]ServedCountries) string {
	input := fingerprintInput{
		Countries: make([]string, 0, len(countries)),
		Locations: make([]string, 0, len(locations)),
	}
	for code := range countries {
		input.Countries = append(input.Countries, code)
	}
	for id := range locations {
		input.Locations = append(input.Locations, id)
	}
	sort.Strings(input.Countries)
	sort.Strings(input.Locations)

	canonical, _ := json.Marshal(input)
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// internal/models/claims.go
package models

import "strings"

// ClaimsStatistic is one historical aggregate from the claims database.
// The recommendation core treats these as read-only reference data; records
// with out-of-range values are skipped by consumers, never fatal.
type ClaimsStatistic struct {
	Destination   string  `json:"destination"`
	ClaimType     string  `json:"claimType"`
	Activity      string  `json:"activity,omitempty"`
	IncidenceRate float64 `json:"incidenceRate"`
	AverageCost   float64 `json:"averageCost"`
	SampleSize    int     `json:"sampleSize"`
}

// Valid reports whether the record is usable for risk estimation.
func (s ClaimsStatistic) Valid() bool {
	if s.Destination == "" {
		return false
	}
	if s.IncidenceRate < 0 || s.IncidenceRate > 1 {
		return false
	}
	return s.AverageCost >= 0 && s.SampleSize > 0
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// destinationAliases folds common city and region names onto the country
// keys the claims database uses.
var destinationAliases = map[string]string{
	"tokyo":        "japan",
	"osaka":        "japan",
	"bangkok":      "thailand",
	"phuket":       "thailand",
	"bali":         "indonesia",
	"kuala lumpur": "malaysia",
	"beijing":      "china",
	"shanghai":     "china",
	"sydney":       "australia",
	"melbourne":    "australia",
	"chennai":      "india",
	"coimbatore":   "india",
	"uk":           "united kingdom",
	"usa":          "united states",
}

// NormalizeDestination lower-cases, trims and resolves aliases so that
// "Tokyo", "tokyo " and "Japan" all select the same claims partition.
func NormalizeDestination(dest string) string {
	d := normalizeToken(dest)
	if mapped, ok := destinationAliases[d]; ok {
		return mapped
	}
	for alias, mapped := range destinationAliases {
		if strings.Contains(d, alias) {
			return mapped
		}
	}
	return d
}

// Package taxonomy holds the insurance product catalog and the immutable
// snapshot store the recommendation workers read from.
package taxonomy

import "strings"

// Tier is the product positioning used to seed composite scores.
type Tier string

const (
	TierBudget   Tier = "budget"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Benefit is one coverage line of a product.
type Benefit struct {
	LimitAmount       float64            `json:"limitAmount"`
	Currency          string             `json:"currency"`
	SubLimits         map[string]float64 `json:"subLimits,omitempty"`
	Exclusions        []string           `json:"exclusions,omitempty"`
	WaitingPeriodDays int                `json:"waitingPeriodDays,omitempty"`
}

// Conditions are the underwriting rules that gate eligibility.
type Conditions struct {
	MinAge             int      `json:"minAge"`
	MaxAge             int      `json:"maxAge"`
	AcceptsPreExisting bool     `json:"acceptsPreExisting"`
	CoveredConditions  []string `json:"coveredConditions,omitempty"`
	ExcludedActivities []string `json:"excludedActivities,omitempty"`
	ExcludedCountries  []string `json:"excludedCountries,omitempty"`
	MaxTripDays        int      `json:"maxTripDays,omitempty"`
}

// Product is one catalog entry. Products are value types; the store hands
// out copies so callers can never mutate the active snapshot.
type Product struct {
	ID          string             `json:"id"`
	DisplayName string             `json:"displayName"`
	Insurer     string             `json:"insurer"`
	Tier        Tier               `json:"tier"`
	Segments    []string           `json:"segments,omitempty"`
	Conditions  Conditions         `json:"conditions"`
	Benefits    map[string]Benefit `json:"benefits"`
	Riders      []string           `json:"riders,omitempty"`
}

// MedicalLimit returns the overseas medical benefit cap, 0 when absent.
func (p Product) MedicalLimit() float64 {
	if b, ok := p.Benefits["medical"]; ok {
		return b.LimitAmount
	}
	return 0
}

// AgeEligible checks the underwriting age window. MaxAge 0 means no upper bound.
func (p Product) AgeEligible(age int) bool {
	if age < p.Conditions.MinAge {
		return false
	}
	if p.Conditions.MaxAge > 0 && age > p.Conditions.MaxAge {
		return false
	}
	return true
}

// ExcludesActivity checks the exclusion list case-insensitively.
func (p Product) ExcludesActivity(activity string) bool {
	a := strings.ToLower(strings.TrimSpace(activity))
	for _, excluded := range p.Conditions.ExcludedActivities {
		if strings.ToLower(strings.TrimSpace(excluded)) == a {
			return true
		}
	}
	return false
}

// ExcludesCountry checks the destination exclusion list. Callers pass the
// normalized country name.
func (p Product) ExcludesCountry(country string) bool {
	c := strings.ToLower(strings.TrimSpace(country))
	for _, excluded := range p.Conditions.ExcludedCountries {
		if strings.ToLower(strings.TrimSpace(excluded)) == c {
			return true
		}
	}
	return false
}

// HasRiderFor reports whether an optional rider names the activity, e.g.
// "golf-cover" for golf. Rider ids are hyphenated slugs.
func (p Product) HasRiderFor(activity string) bool {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(activity)), " ", "-")
	if slug == "" {
		return false
	}
	for _, rider := range p.Riders {
		if strings.Contains(strings.ToLower(rider), slug) {
			return true
		}
	}
	return false
}

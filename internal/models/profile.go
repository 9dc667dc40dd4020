// internal/models/profile.go
package models

import "time"

const dateLayout = "2006-01-02"

// UserProfile carries the traveler data the recommendation workers score
// against. It is built per request from onboarding data and never persisted
// here. Absent fields keep their zero value and contribute neutrally.
type UserProfile struct {
	Age               int      `json:"age"`
	MedicalConditions []string `json:"medicalConditions,omitempty"`
	Interests         []string `json:"interests,omitempty"`
}

// HasMedicalConditions reports whether the profile declares any real
// pre-existing condition. Placeholder answers ("none", "no") from the
// onboarding flow do not count.
func (p UserProfile) HasMedicalConditions() bool {
	for _, c := range p.MedicalConditions {
		switch normalizeToken(c) {
		case "", "none", "no", "n/a":
		default:
			return true
		}
	}
	return false
}

// TripContext describes one trip. Dates are calendar dates in YYYY-MM-DD;
// end >= start is validated upstream, not here.
type TripContext struct {
	Destination   string   `json:"destination"`
	Source        string   `json:"source,omitempty"`
	DepartureDate string   `json:"departureDate,omitempty"`
	ReturnDate    string   `json:"returnDate,omitempty"`
	TravelerCount int      `json:"travelerCount"`
	Activities    []string `json:"activities,omitempty"`
	TripCost      float64  `json:"tripCost,omitempty"`
}

// DurationDays derives the trip length from the two dates. Unparseable or
// missing dates yield 0 so the trip-length factors stay neutral.
func (t TripContext) DurationDays() int {
	dep, err := time.Parse(dateLayout, t.DepartureDate)
	if err != nil {
		return 0
	}
	ret, err := time.Parse(dateLayout, t.ReturnDate)
	if err != nil {
		return 0
	}
	days := int(ret.Sub(dep).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

package entities

import "time"

// NoLocationStrategy decides how the loop backs out of an empty location list
type NoLocationStrategy string

const (
	// NoLocationGoBack clicks the portal's own back buttons
	NoLocationGoBack NoLocationStrategy = "indietro"
	// NoLocationRefresh reloads the page
	NoLocationRefresh NoLocationStrategy = "ricarica"
)

// SlotStrategy decides which time slot is booked among the available ones
type SlotStrategy string

const (
	SlotFirst  SlotStrategy = "prima"
	SlotRandom SlotStrategy = "casuale"
)

// Settings holds the operator configuration, loaded once at startup
type Settings struct {
	Facility   string
	Name       string
	Surname    string
	TaxCode    string
	CardNumber string
	Email      string
	Phone      string

	// Preferences lists location substrings, most wanted first
	Preferences []string
	Blacklist   []string

	MinDate  time.Time
	MaxDate  time.Time
	BaseWait time.Duration

	PortalURL          string
	ServiceLabel       string
	NoLocationStrategy NoLocationStrategy
	SlotStrategy       SlotStrategy
}

// FacilityURL returns the portal page of the configured ULSS
func (s *Settings) FacilityURL() string {
	return s.PortalURL + "/ulss" + s.Facility
}

// UniquePreferences drops repeated substrings. A substring listed twice keeps
// its first position, which is its rank.
func UniquePreferences(preferences []string) []string {
	ordered := make([]string, 0, len(preferences))
	seen := make(map[string]struct{}, len(preferences))
	for _, p := range preferences {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		ordered = append(ordered, p)
	}
	return ordered
}

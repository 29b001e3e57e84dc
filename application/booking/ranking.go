package booking

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"vaccine_booker/domain/interfaces"
)

// activationAttribute marks a candidate button the portal will respond to
const activationAttribute = "onclick"

// Candidate is a clickable choice together with its visible text
type Candidate struct {
	Element interfaces.Element
	Text    string
}

// Priority returns the rank of the first preference contained in text, or
// len(preferences) when none matches
func Priority(text string, preferences []string) int {
	for rank, p := range preferences {
		if strings.Contains(text, p) {
			return rank
		}
	}
	return len(preferences)
}

// SortByPriority returns the candidates ordered by Priority. Equal ranks keep
// their page order.
func SortByPriority(candidates []Candidate, preferences []string) []Candidate {
	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		return Priority(a.Text, preferences) - Priority(b.Text, preferences)
	})
	return sorted
}

// FilterBlacklist drops candidates whose text contains any blacklisted substring
func FilterBlacklist(candidates []Candidate, blacklist []string) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !containsAny(c.Text, blacklist) {
			kept = append(kept, c)
		}
	}
	return kept
}

// RankCandidates applies ordering then blacklist filtering
func RankCandidates(candidates []Candidate, preferences, blacklist []string) []Candidate {
	return FilterBlacklist(SortByPriority(candidates, preferences), blacklist)
}

// activeCandidates reads the text of every element that still carries an
// activation attribute; disabled buttons are skipped
func activeCandidates(ctx context.Context, elements []interfaces.Element) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(elements))
	for _, el := range elements {
		_, active, err := el.Attribute(ctx, activationAttribute)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s attribute: %w", activationAttribute, err)
		}
		if !active {
			continue
		}

		text, err := el.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read candidate text: %w", err)
		}
		candidates = append(candidates, Candidate{Element: el, Text: text})
	}
	return candidates, nil
}

func containsAny(text string, substrings []string) bool {
	for _, s := range substrings {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

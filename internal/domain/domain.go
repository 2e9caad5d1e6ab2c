// Package domain holds the persisted models.
package domain

import (
	"fmt"
	"sort"
)

// Per-user record collections.
const (
	CollectionGeneratedResumes     = "generatedResumes"
	CollectionProjectSuggestions   = "projectSuggestions"
	CollectionAptitudeTestAttempts = "aptitudeTestAttempts"
	CollectionNotes                = "notes"
	CollectionSuggestedJobs        = "suggestedJobs"
)

var collections = map[string]struct{}{
	CollectionGeneratedResumes:     {},
	CollectionProjectSuggestions:   {},
	CollectionAptitudeTestAttempts: {},
	CollectionNotes:                {},
	CollectionSuggestedJobs:        {},
}

// ErrUnknownCollection is returned for a collection name outside the fixed set.
type ErrUnknownCollection struct {
	Name string
}

func (e ErrUnknownCollection) Error() string {
	return fmt.Sprintf("unknown collection %q", e.Name)
}

func ValidCollection(name string) bool {
	_, ok := collections[name]
	return ok
}

func CheckCollection(name string) error {
	if !ValidCollection(name) {
		return ErrUnknownCollection{Name: name}
	}
	return nil
}

// Collections returns the known collection names, sorted.
func Collections() []string {
	out := make([]string, 0, len(collections))
	for k := range collections {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

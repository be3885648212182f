package models

import (
	"errors"
	"strings"
)

var ErrIncompleteService = errors.New("please fill all the fields")

// ProviderService is one offering in a provider's catalog. ProviderName and
// ProviderImage are copies of the owner's profile and follow its renames.
type ProviderService struct {
	ID            string  `json:"id"`
	ProviderID    string  `json:"providerId"`
	ProviderName  string  `json:"providerName"`
	ProviderImage string  `json:"providerImage"`
	Service       string  `json:"service"` // category, e.g. "Plumbing"
	Task          string  `json:"task"`
	Price         float64 `json:"price"`
	Description   string  `json:"description"`
}

func (s *ProviderService) Validate() error {
	if strings.TrimSpace(s.Service) == "" || strings.TrimSpace(s.Task) == "" ||
		strings.TrimSpace(s.Description) == "" || s.Price <= 0 {
		return ErrIncompleteService
	}
	return nil
}

// MatchesText reports whether the task or provider name contains text, ignoring case.
func (s *ProviderService) MatchesText(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Task), text) ||
		strings.Contains(strings.ToLower(s.ProviderName), text)
}

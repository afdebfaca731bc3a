package handler

import (
	"time"

	"dcaf/internal/identity/models"
)

// AuthorizeResponse is the HTTP response for POST /identity/authorize.
type AuthorizeResponse struct {
	UniqueID            string                   `json:"unique_id"`
	ContentFingerprint  string                   `json:"content_fingerprint"`
	ConfidenceScores    ConfidenceScoresResponse `json:"confidence_scores"`
	CompatibilityRating float64                  `json:"compatibility_rating"`
	Timestamp           time.Time                `json:"timestamp"`
}

type ConfidenceScoresResponse struct {
	Overall      float64 `json:"overall"`
	Domain       float64 `json:"domain"`
	Authenticity float64 `json:"authenticity"`
}

// FromResult converts a domain AuthenticationResult to an HTTP response.
func FromResult(result *models.AuthenticationResult) *AuthorizeResponse {
	return &AuthorizeResponse{
		UniqueID:           result.UniqueID,
		ContentFingerprint: result.ContentFingerprint,
		ConfidenceScores: ConfidenceScoresResponse{
			Overall:      result.ConfidenceScores.Overall,
			Domain:       result.ConfidenceScores.Domain,
			Authenticity: result.ConfidenceScores.Authenticity,
		},
		CompatibilityRating: result.CompatibilityRating,
		Timestamp:           result.Timestamp,
	}
}

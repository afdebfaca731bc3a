package security

import "dcaf/internal/login/models"

// Decision thresholds on the risk score. Bounds are inclusive.
const (
	ApproveThreshold   = 0.9
	ChallengeThreshold = 0.7
)

// DecideStatus maps a risk score to a terminal status.
func DecideStatus(score float64) models.Status {
	switch {
	case score >= ApproveThreshold:
		return models.StatusApproved
	case score >= ChallengeThreshold:
		return models.StatusChallenged
	default:
		return models.StatusDenied
	}
}

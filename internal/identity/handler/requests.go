package handler

import (
	"strings"

	"dcaf/internal/identity/models"
	dErrors "dcaf/pkg/domain-errors"
)

const maxFieldLength = 200

// AuthorizeRequest is the HTTP request body for POST /identity/authorize.
type AuthorizeRequest struct {
	OwnerName           string `json:"owner_name"`
	OwnerProfileRef     string `json:"owner_profile_ref"`
	AgentSpecialization string `json:"agent_specialization"`
}

// Normalize trims whitespace from all fields.
func (r *AuthorizeRequest) Normalize() {
	if r == nil {
		return
	}
	r.OwnerName = strings.Join(strings.Fields(r.OwnerName), " ")
	r.OwnerProfileRef = strings.TrimSpace(r.OwnerProfileRef)
	r.AgentSpecialization = strings.TrimSpace(r.AgentSpecialization)
}

// Validate implements httputil.Validatable.
func (r *AuthorizeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	for name, v := range map[string]string{
		"owner_name":           r.OwnerName,
		"owner_profile_ref":    r.OwnerProfileRef,
		"agent_specialization": r.AgentSpecialization,
	} {
		if len(v) > maxFieldLength {
			return dErrors.New(dErrors.CodeValidation, name+" is too long")
		}
	}
	return r.toModel().Validate()
}

func (r *AuthorizeRequest) toModel() models.AuthorizeRequest {
	return models.AuthorizeRequest{
		OwnerName:           r.OwnerName,
		OwnerProfileRef:     r.OwnerProfileRef,
		AgentSpecialization: r.AgentSpecialization,
	}
}

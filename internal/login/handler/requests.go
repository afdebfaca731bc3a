package handler

import (
	"strings"

	"dcaf/internal/login/models"
	dErrors "dcaf/pkg/domain-errors"
)

const (
	maxEmailLength      = 254
	maxSignatureLength  = 512
	maxCredentialLength = 1024
	maxAttributes       = 32
)

// SecureLoginRequest is the HTTP request body for POST /auth/secure-login.
type SecureLoginRequest struct {
	Email           string         `json:"email"`
	Credentials     string         `json:"credentials"`
	DeviceSignature string         `json:"device_signature"`
	Context         ContextPayload `json:"context"`
}

type ContextPayload struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	Locale     string            `json:"locale"`
	Timezone   string            `json:"timezone"`
	Attributes map[string]string `json:"attributes"`
}

// Normalize trims identifying fields. Credentials are left untouched.
func (r *SecureLoginRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = strings.TrimSpace(r.Email)
	r.DeviceSignature = strings.TrimSpace(r.DeviceSignature)
	r.Context.IPAddress = strings.TrimSpace(r.Context.IPAddress)
	r.Context.UserAgent = strings.TrimSpace(r.Context.UserAgent)
	r.Context.Locale = strings.TrimSpace(r.Context.Locale)
	r.Context.Timezone = strings.TrimSpace(r.Context.Timezone)
}

// Validate implements httputil.Validatable.
func (r *SecureLoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	switch {
	case len(r.Email) > maxEmailLength:
		return dErrors.New(dErrors.CodeValidation, "email is too long")
	case len(r.Credentials) > maxCredentialLength:
		return dErrors.New(dErrors.CodeValidation, "credentials are too long")
	case len(r.DeviceSignature) > maxSignatureLength:
		return dErrors.New(dErrors.CodeValidation, "device_signature is too long")
	case len(r.Context.Attributes) > maxAttributes:
		return dErrors.New(dErrors.CodeValidation, "too many context attributes")
	}
	return r.toModel().Validate()
}

func (r *SecureLoginRequest) toModel() models.LoginRequest {
	return models.LoginRequest{
		Email:           r.Email,
		Credentials:     r.Credentials,
		DeviceSignature: r.DeviceSignature,
		Context: models.ContextualData{
			IPAddress:  r.Context.IPAddress,
			UserAgent:  r.Context.UserAgent,
			Locale:     r.Context.Locale,
			Timezone:   r.Context.Timezone,
			Attributes: r.Context.Attributes,
		},
	}
}

// IntrospectRequest is the HTTP request body for POST /auth/token/introspect.
type IntrospectRequest struct {
	Token string `json:"token"`
}

func (r *IntrospectRequest) Normalize() {
	if r != nil {
		r.Token = strings.TrimSpace(r.Token)
	}
}

func (r *IntrospectRequest) Validate() error {
	if r == nil || r.Token == "" {
		return dErrors.New(dErrors.CodeValidation, "token is required")
	}
	return nil
}

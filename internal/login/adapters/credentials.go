// Package adapters holds the in-process EmailVerifier and ContextualAnalyzer
// implementations.
package adapters

import (
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v2"

	"dcaf/internal/login/models"
	"dcaf/pkg/email"
)

// Confidence levels reported by the credential directory.
const (
	ConfidenceVerified = 1.0
	ConfidenceRejected = 0.0
)

// CredentialDirectory verifies credentials against bcrypt hashes keyed by
// normalized email. Unknown emails and wrong credentials both report zero
// confidence so the caller cannot tell them apart.
type CredentialDirectory struct {
	mu     sync.RWMutex
	hashes map[string][]byte
	cost   int

	decoyOnce sync.Once
	decoy     []byte
}

type DirectoryOption func(*CredentialDirectory)

// WithBcryptCost sets the cost used by Register. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) DirectoryOption {
	return func(d *CredentialDirectory) { d.cost = cost }
}

func NewCredentialDirectory(opts ...DirectoryOption) *CredentialDirectory {
	d := &CredentialDirectory{
		hashes: make(map[string][]byte),
		cost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type credentialFile struct {
	Credentials map[string]string `yaml:"credentials"`
}

// LoadCredentials reads a YAML file mapping email to bcrypt hash.
func LoadCredentials(path string, opts ...DirectoryOption) (*CredentialDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials %s: %w", path, err)
	}
	return ParseCredentials(raw, opts...)
}

// ParseCredentials builds a directory from YAML. Hashes must already be
// bcrypt encoded.
func ParseCredentials(raw []byte, opts ...DirectoryOption) (*CredentialDirectory, error) {
	var f credentialFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	d := NewCredentialDirectory(opts...)
	for addr, hash := range f.Credentials {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("credential for %s is not a bcrypt hash: %w", email.Mask(addr), err)
		}
		d.hashes[email.Normalize(addr)] = []byte(hash)
	}
	return d, nil
}

// Register hashes and stores a secret for address, replacing any previous one.
func (d *CredentialDirectory) Register(address, secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), d.cost)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hashes[email.Normalize(address)] = hash
	return nil
}

func (d *CredentialDirectory) Verify(ctx context.Context, address, credentials string) (*models.EmailVerification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	hash, ok := d.hashes[email.Normalize(address)]
	d.mu.RUnlock()

	if !ok {
		// Spend the same work as a real comparison.
		_ = bcrypt.CompareHashAndPassword(d.decoyHash(), []byte(credentials))
		return &models.EmailVerification{Confidence: ConfidenceRejected}, nil
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(credentials)); err != nil {
		return &models.EmailVerification{Confidence: ConfidenceRejected}, nil
	}
	return &models.EmailVerification{Confidence: ConfidenceVerified}, nil
}

func (d *CredentialDirectory) decoyHash() []byte {
	d.decoyOnce.Do(func() {
		d.decoy, _ = bcrypt.GenerateFromPassword([]byte("dcaf-decoy"), d.cost)
	})
	return d.decoy
}

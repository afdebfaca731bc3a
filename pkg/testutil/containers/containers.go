//go:build integration

// Package containers starts throwaway backing services for integration tests.
// Every container is terminated through t.Cleanup.
package containers

import (
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// mustStart registers cleanup for c and fails the test if err is set.
func mustStart[C testcontainers.Container](t *testing.T, name string, c C, err error) C {
	t.Helper()
	testcontainers.CleanupContainer(t, c)
	if err != nil {
		t.Fatalf("start %s container: %v", name, err)
	}
	return c
}

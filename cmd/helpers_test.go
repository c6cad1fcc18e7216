package cmd

import (
	"testing"
)

// setGlobalFlags sets the shared persistent flags for one test.
func setGlobalFlags(t *testing.T, user, store, dir string) {
	t.Helper()
	prevUser, prevStore, prevDir := userID, tokenStoreKind, tokenDir
	userID, tokenStoreKind, tokenDir = user, store, dir
	t.Cleanup(func() {
		userID, tokenStoreKind, tokenDir = prevUser, prevStore, prevDir
	})

	for _, key := range []string{"GRAPHCAL_USER", "GRAPHCAL_TOKEN_STORE", "GRAPHCAL_TOKEN_DIR"} {
		t.Setenv(key, "")
	}
}

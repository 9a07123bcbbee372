package integration

import (
	"os"
	"testing"
)

// TestMain runs before any tests and handles shared container cleanup
func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

// Package testing is imported for its side effects by package tests: it puts
// the process in test mode and supplies throwaway secrets so configuration
// loads without a .env file.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

var testDefaults = map[string]string{
	"SESSION_SECRET": "test-session-secret",
	"CSRF_SECRET":    "test-csrf-secret",
	"JWT_SECRET":     "test-jwt-secret-0123456789abcdefghij",
}

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("PRESSROOM_TEST_MODE", "1")
		for key, value := range testDefaults {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}

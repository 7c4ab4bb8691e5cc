// Package testing is blank-imported by test packages that load the app
// configuration. Importing it marks the process as a test run and supplies
// the secrets config validation requires.
package testing

import (
	"os"
	stdtesting "testing"
)

var testEnv = map[string]string{
	"ODYSSEY_TEST_MODE": "1",
	"JWT_SECRET":        "test-secret",
	"LOG_FORMAT":        "json",
}

func init() {
	for key, val := range testEnv {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, val)
		}
	}
}

func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}

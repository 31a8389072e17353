// Package testdb provides a migrated Postgres database for integration tests,
// either from an externally provided URL or a throwaway container, and
// rollback-only transactions for test isolation.
package testdb

import (
	"os"
	"strings"
)

// EnvTestDatabaseURL names the variable holding an existing test database.
// When unset, integration tests start a container.
const EnvTestDatabaseURL = "VOCAB_TEST_DATABASE_URL"

// ciVariables are set by the CI providers we run on.
var ciVariables = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// IsCI reports whether the tests run under a CI provider.
func IsCI() bool {
	for _, name := range ciVariables {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// DatabaseURL returns the configured test database URL, or "" when a
// container should be started. Postgres URLs without an sslmode get
// sslmode=disable, which is what CI service containers expect.
func DatabaseURL() string {
	url := strings.TrimSpace(os.Getenv(EnvTestDatabaseURL))
	if url == "" {
		return ""
	}
	if strings.HasPrefix(url, "postgres") && !strings.Contains(url, "sslmode=") {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "sslmode=disable"
	}
	return url
}

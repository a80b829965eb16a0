package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs the gherkin suite against a live server. It needs
// CORPATLAS_E2E_URL pointing at one, for example:
//
//	CORPATLAS_E2E_URL=http://localhost:8080 go test ./e2e
//
// CORPATLAS_E2E_API_KEY must carry the plain key when the server enforces
// authentication.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("CORPATLAS_E2E_URL")
	if baseURL == "" {
		t.Skip("CORPATLAS_E2E_URL not set, skipping end to end suite")
	}

	tc := NewTestContext(baseURL, os.Getenv("CORPATLAS_E2E_API_KEY"))

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("end to end suite failed")
	}
}

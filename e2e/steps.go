package e2e

import (
	"github.com/cucumber/godog"

	"corpatlas/e2e/steps/common"
	"corpatlas/e2e/steps/company"
	"corpatlas/e2e/steps/providers"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (health, generic response assertions)
	common.RegisterSteps(ctx, tc)

	// Register company search, lookup and sub-resource steps
	company.RegisterSteps(ctx, tc)

	// Register provider catalog steps
	providers.RegisterSteps(ctx, tc)
}

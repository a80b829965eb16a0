package providers

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers provider catalog step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &providerSteps{tc: tc}

	ctx.Step(`^I list providers for country "([^"]*)"$`, steps.listForCountry)
	ctx.Step(`^I list providers with capability "([^"]*)"$`, steps.listWithCapability)
	ctx.Step(`^provider "([^"]*)" should be listed as available$`, steps.providerShouldBeAvailable)
}

type providerSteps struct {
	tc TestContext
}

func (s *providerSteps) listForCountry(country string) error {
	return s.tc.GET("/v1/providers?country=" + url.QueryEscape(country))
}

func (s *providerSteps) listWithCapability(capability string) error {
	return s.tc.GET("/v1/providers?capability=" + url.QueryEscape(capability))
}

func (s *providerSteps) providerShouldBeAvailable(name string) error {
	var listing struct {
		Providers []struct {
			Name      string `json:"name"`
			Available bool   `json:"is_available"`
		} `json:"providers"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &listing); err != nil {
		return fmt.Errorf("response is not a provider listing: %w", err)
	}
	for _, p := range listing.Providers {
		if p.Name == name {
			if !p.Available {
				return fmt.Errorf("provider %q is listed but not available", name)
			}
			return nil
		}
	}
	return fmt.Errorf("provider %q is not in the listing, body: %s", name, s.tc.GetLastResponseBody())
}

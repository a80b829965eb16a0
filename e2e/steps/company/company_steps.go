package company

import (
	"bytes"
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
	GetResponseField(name string) (interface{}, error)
	SaveLastResponse()
	GetSavedResponseBody() []byte
}

// RegisterSteps registers company search, lookup and sub-resource steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &companySteps{tc: tc}

	ctx.Step(`^I look up company "([^"]*)" in country "([^"]*)"$`, steps.lookupWithCountry)
	ctx.Step(`^I look up company "([^"]*)" without a country$`, steps.lookupWithoutCountry)
	ctx.Step(`^I look up company "([^"]*)" in country "([^"]*)" twice$`, steps.lookupTwice)
	ctx.Step(`^both lookups should return identical payloads$`, steps.lookupsShouldBeIdentical)
	ctx.Step(`^the company name should not be empty$`, steps.companyNameShouldNotBeEmpty)
	ctx.Step(`^the response should list classification candidates$`, steps.responseShouldListCandidates)

	ctx.Step(`^I search for "([^"]*)" companies in country "([^"]*)"$`, steps.searchWithCountry)
	ctx.Step(`^I search for "([^"]*)" companies without a country$`, steps.searchWithoutCountry)
	ctx.Step(`^I search for "([^"]*)" companies in country "([^"]*)" with limit "([^"]*)"$`, steps.searchWithLimit)

	ctx.Step(`^I fetch the "([^"]*)" of company "([^"]*)" in country "([^"]*)"$`, steps.fetchSubResource)
}

type companySteps struct {
	tc TestContext
}

func (s *companySteps) lookupWithCountry(identifier, country string) error {
	return s.tc.GET(fmt.Sprintf("/v1/companies/%s?country=%s",
		url.PathEscape(identifier), url.QueryEscape(country)))
}

func (s *companySteps) lookupWithoutCountry(identifier string) error {
	return s.tc.GET("/v1/companies/" + url.PathEscape(identifier))
}

func (s *companySteps) lookupTwice(identifier, country string) error {
	if err := s.lookupWithCountry(identifier, country); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return fmt.Errorf("first lookup returned %d, body: %s",
			s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	s.tc.SaveLastResponse()
	return s.lookupWithCountry(identifier, country)
}

func (s *companySteps) lookupsShouldBeIdentical() error {
	first := s.tc.GetSavedResponseBody()
	second := s.tc.GetLastResponseBody()
	if first == nil {
		return fmt.Errorf("no saved response to compare against")
	}
	if !bytes.Equal(first, second) {
		return fmt.Errorf("payloads differ:\nfirst:  %s\nsecond: %s", first, second)
	}
	return nil
}

func (s *companySteps) companyNameShouldNotBeEmpty() error {
	name, err := s.tc.GetResponseField("name")
	if err != nil {
		return err
	}
	if str, ok := name.(string); !ok || str == "" {
		return fmt.Errorf("expected a non-empty company name, got %v", name)
	}
	return nil
}

func (s *companySteps) responseShouldListCandidates() error {
	var envelope struct {
		Details struct {
			Candidates []struct {
				CountryCode string `json:"country_code"`
				Type        string `json:"type"`
			} `json:"candidates"`
		} `json:"details"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &envelope); err != nil {
		return fmt.Errorf("response is not an error envelope: %w", err)
	}
	if len(envelope.Details.Candidates) < 2 {
		return fmt.Errorf("expected at least two classification candidates, body: %s",
			s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *companySteps) searchWithCountry(query, country string) error {
	return s.tc.GET(fmt.Sprintf("/v1/search?q=%s&country=%s",
		url.QueryEscape(query), url.QueryEscape(country)))
}

func (s *companySteps) searchWithoutCountry(query string) error {
	return s.tc.GET("/v1/search?q=" + url.QueryEscape(query))
}

func (s *companySteps) searchWithLimit(query, country, limit string) error {
	return s.tc.GET(fmt.Sprintf("/v1/search?q=%s&country=%s&limit=%s",
		url.QueryEscape(query), url.QueryEscape(country), url.QueryEscape(limit)))
}

func (s *companySteps) fetchSubResource(resource, identifier, country string) error {
	return s.tc.GET(fmt.Sprintf("/v1/companies/%s/%s?country=%s",
		url.PathEscape(identifier), url.PathEscape(resource), url.QueryEscape(country)))
}

package common

import (
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetResponseField(name string) (interface{}, error)
}

// RegisterSteps registers health and generic response assertions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the corpatlas API is reachable$`, steps.apiIsReachable)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be a non-empty list$`, steps.responseFieldShouldBeNonEmptyList)
	ctx.Step(`^the response field "([^"]*)" should be a list$`, steps.responseFieldShouldBeList)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) apiIsReachable() error {
	if err := s.tc.GET("/healthz"); err != nil {
		return err
	}
	if got := s.tc.GetLastResponseStatus(); got != 200 {
		return fmt.Errorf("healthz returned %d, body: %s", got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) responseStatusShouldBe(want int) error {
	if got := s.tc.GetLastResponseStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d, body: %s", want, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(want string) error {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &envelope); err != nil {
		return fmt.Errorf("response is not an error envelope: %w", err)
	}
	if envelope.Error != want {
		return fmt.Errorf("expected error code %q, got %q", want, envelope.Error)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(field, want string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	got := fmt.Sprintf("%v", value)
	if got != want {
		return fmt.Errorf("expected field %q to equal %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeNonEmptyList(field string) error {
	list, err := s.fieldAsList(field)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("expected field %q to be a non-empty list", field)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeList(field string) error {
	_, err := s.fieldAsList(field)
	return err
}

func (s *commonSteps) fieldAsList(field string) ([]interface{}, error) {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return nil, err
	}
	list, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("field %q is %T, not a list", field, value)
	}
	return list, nil
}

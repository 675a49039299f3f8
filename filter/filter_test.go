package filter

import (
	"errors"
	"testing"

	"github.com/dhcgn/flight-price-tracker/model"
)

func message(header, body string) model.Message {
	return model.Message{Header: header, Body: body}
}

func TestFilter_Allows_IncludeMode(t *testing.T) {
	f, err := New(Options{IncludeHeader: []string{`(?m)^From:.*skyscanner`}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !f.Allows(message("From: Skyscanner <no-reply@skyscanner.net>\n", "body")) {
		t.Error("Expected message to be allowed (header matches)")
	}
	if f.Allows(message("From: someone@example.com\n", "skyscanner in body")) {
		t.Error("Expected message to be filtered out (header doesn't match)")
	}
}

func TestFilter_Allows_ExcludeMode(t *testing.T) {
	f, err := New(Options{ExcludeBody: []string{"(?i)unsubscribe"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !f.Allows(message("Subject: Price alert\n", "Prices have gone down")) {
		t.Error("Expected price alert to be allowed")
	}
	if f.Allows(message("Subject: Deals\n", "Click to Unsubscribe")) {
		t.Error("Expected newsletter to be filtered out")
	}
}

func TestFilter_MutuallyExclusive(t *testing.T) {
	_, err := New(Options{IncludeHeader: []string{"a"}, ExcludeBody: []string{"b"}})
	if !errors.Is(err, ErrModeConflict) {
		t.Errorf("err = %v, want ErrModeConflict", err)
	}
}

func TestFilter_InvalidPattern(t *testing.T) {
	if _, err := New(Options{IncludeBody: []string{"("}}); err == nil {
		t.Error("Expected error for invalid regex")
	}
}

func TestFilter_NoFilters(t *testing.T) {
	f, err := New(Options{IncludeHeader: []string{"  "}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if f.Active() {
		t.Error("blank patterns should not activate the filter")
	}
	if !f.Allows(message("Subject: Any\n", "Any body")) {
		t.Error("Expected message to be allowed when no filters are active")
	}

	var nilFilter *Filter
	if !nilFilter.Allows(message("", "")) || nilFilter.Active() {
		t.Error("nil filter should allow everything")
	}
}

package errors

import (
	"fmt"
	"testing"
)

func TestFastPathNoReporting(t *testing.T) {
	t.Parallel()

	// Ensure no hooks are registered
	ClearErrorHooks()

	// Create an error - should use fast path
	err := fmt.Errorf("test error")
	ee := New(err).Build()

	if ee.Err.Error() != "test error" {
		t.Errorf("Expected error message 'test error', got '%s'", ee.Err.Error())
	}

	if ee.GetComponent() != "unknown" {
		t.Errorf("Expected component 'unknown' in fast path, got '%s'", ee.GetComponent())
	}

	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category 'generic' in fast path, got '%s'", ee.Category)
	}
}

func TestCategoryPreservedOnFastPath(t *testing.T) {
	t.Parallel()

	ClearErrorHooks()

	ee := Newf("missing MYSQL_HOST").
		Component("configuration").
		Category(CategoryConfiguration).
		Build()

	if ee.GetComponent() != "configuration" {
		t.Errorf("Expected component 'configuration', got '%s'", ee.GetComponent())
	}
	if ee.Category != CategoryConfiguration {
		t.Errorf("Expected category 'configuration', got '%s'", ee.Category)
	}
}

func TestHookReceivesBuiltError(t *testing.T) {
	// Not parallel: mutates global hook state
	ClearErrorHooks()
	defer ClearErrorHooks()

	var got *EnhancedError
	AddErrorHook(func(ee *EnhancedError) {
		got = ee
	})

	ee := Newf("duplicate entry '42' for key 'PRIMARY'").
		Component("datastore").
		Build()

	if got == nil {
		t.Fatal("hook was not invoked")
	}
	if got != ee {
		t.Error("hook received a different error instance")
	}
	if !ee.IsReported() {
		t.Error("error should be marked reported after hooks ran")
	}
	// With reporting active, the integrity heuristic should classify the message
	if ee.Category != CategoryIntegrity {
		t.Errorf("Expected category 'integrity', got '%s'", ee.Category)
	}
}

func TestIsCategoryHelpers(t *testing.T) {
	t.Parallel()

	ClearErrorHooks()

	notFound := Newf("thermal event 7 not found").Category(CategoryNotFound).Build()
	integrity := Newf("fk violation").Category(CategoryIntegrity).Build()
	wrapped := fmt.Errorf("query failed: %w", notFound)

	if !IsNotFound(notFound) {
		t.Error("IsNotFound should match a not-found enhanced error")
	}
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should match through wrapping")
	}
	if IsNotFound(integrity) {
		t.Error("IsNotFound should not match an integrity error")
	}
	if !IsIntegrity(integrity) {
		t.Error("IsIntegrity should match an integrity enhanced error")
	}
}

func TestDetectCategoryHeuristics(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		msg  string
		want ErrorCategory
	}{
		{"integrity duplicate", "Error 1062: Duplicate entry 'device 1' for key 'PRIMARY'", CategoryIntegrity},
		{"integrity fk", "FOREIGN KEY constraint failed", CategoryIntegrity},
		{"connectivity refused", "dial tcp 10.0.0.1:3306: connection refused", CategoryConnectivity},
		{"connectivity auth", "Error 1045: Access denied for user 'ir'@'%'", CategoryConnectivity},
		{"timeout", "context deadline exceeded", CategoryTimeout},
		{"configuration", "required environment variable not set", CategoryConfiguration},
		{"validation", "invalid confidence value", CategoryValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := detectCategory(fmt.Errorf("%s", tc.msg), "")
			if got != tc.want {
				t.Errorf("detectCategory(%q) = %s, want %s", tc.msg, got, tc.want)
			}
		})
	}
}

package env

import "testing"

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("GARAGE_ENV_TEST", "   ")
	if got := Get("GARAGE_ENV_TEST", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("GARAGE_ENV_TEST", " console ")
	if got := Get("GARAGE_ENV_TEST", "json"); got != "console" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("GARAGE_BOOL_TEST", "true")
	if !Bool("GARAGE_BOOL_TEST", false) {
		t.Fatal("expected true")
	}
	t.Setenv("GARAGE_BOOL_TEST", "nope")
	if Bool("GARAGE_BOOL_TEST", false) {
		t.Fatal("expected fallback for malformed value")
	}
}

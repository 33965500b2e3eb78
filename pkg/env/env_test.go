package env

import "testing"

func TestGetPrefersSetVariable(t *testing.T) {
	t.Setenv("IFOODSYNC_TEST_PORT", "9090")
	if got := Get("IFOODSYNC_TEST_PORT", "8080"); got != "9090" {
		t.Fatalf("expected set value, got %q", got)
	}
}

func TestGetFallsBack(t *testing.T) {
	if got := Get("IFOODSYNC_TEST_UNSET", "8080"); got != "8080" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

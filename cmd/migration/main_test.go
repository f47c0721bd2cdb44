package main

import (
	"strings"
	"testing"
)

func TestParseSteps(t *testing.T) {
	if steps, err := parseSteps(nil); err != nil || steps != 1 {
		t.Fatalf("expected default 1 step, got %d err=%v", steps, err)
	}
	if steps, err := parseSteps([]string{" 3 "}); err != nil || steps != 3 {
		t.Fatalf("expected 3 steps, got %d err=%v", steps, err)
	}
	for _, raw := range []string{"0", "-2", "x"} {
		if _, err := parseSteps([]string{raw}); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseVersionAndTarget(t *testing.T) {
	if v, err := parseVersion("1"); err != nil || v != 1 {
		t.Fatalf("expected version 1, got %d err=%v", v, err)
	}
	if _, err := parseVersion("-5"); err == nil {
		t.Fatalf("expected error for negative version")
	}
	if v, err := parseTarget("2"); err != nil || v != 2 {
		t.Fatalf("expected target 2, got %d err=%v", v, err)
	}
	if _, err := parseTarget("-1"); err == nil {
		t.Fatalf("expected error for negative target")
	}
}

func TestNormalizeDBURL(t *testing.T) {
	got := normalizeDBURL("postgres://u:p@localhost:5432/match_export?sslmode=disable", true)
	if !strings.Contains(got, "disable_prepared_binary_result=yes") {
		t.Fatalf("expected flag appended, got %q", got)
	}

	in := "postgres://u:p@localhost:5432/match_export?sslmode=disable"
	if got := normalizeDBURL(in, false); got != in {
		t.Fatalf("expected url unchanged, got %q", got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("MIGRATION_TEST_FLAG", "")
	if !envBool("MIGRATION_TEST_FLAG", true) {
		t.Fatalf("expected fallback for empty value")
	}
	t.Setenv("MIGRATION_TEST_FLAG", "false")
	if envBool("MIGRATION_TEST_FLAG", true) {
		t.Fatalf("expected false")
	}
	t.Setenv("MIGRATION_TEST_FLAG", "maybe")
	if envBool("MIGRATION_TEST_FLAG", false) {
		t.Fatalf("expected fallback for invalid value")
	}
}

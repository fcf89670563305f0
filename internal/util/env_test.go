package util

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("VOXA_TEST_STR", "value")
	if got := GetEnv("VOXA_TEST_STR", "fallback"); got != "value" {
		t.Errorf("expected value, got %q", got)
	}
	if got := GetEnv("VOXA_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
}

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		val  string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"off", true, false},
		{"garbage", true, true},
		{"", false, false},
	}
	for _, c := range cases {
		t.Setenv("VOXA_TEST_BOOL", c.val)
		if got := ParseBoolEnv("VOXA_TEST_BOOL", c.def); got != c.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", c.val, c.def, got, c.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("VOXA_TEST_INT", "42")
	if got := ParseIntEnv("VOXA_TEST_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	t.Setenv("VOXA_TEST_INT", "not-a-number")
	if got := ParseIntEnv("VOXA_TEST_INT", 7); got != 7 {
		t.Errorf("expected default 7, got %d", got)
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("VOXA_TEST_DUR", "250ms")
	if got := ParseDurationEnv("VOXA_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", got)
	}
	t.Setenv("VOXA_TEST_DUR", "bogus")
	if got := ParseDurationEnv("VOXA_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("expected default 1s, got %v", got)
	}
}

package onboarding

import "testing"

func TestValidName(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"   ", false},
		{"j", false},
		{"jo", true},
		{"  jo  ", true},
		{"Alex Smith", true},
	}
	for _, c := range cases {
		if got := ValidName(c.in); got != c.want {
			t.Errorf("ValidName(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestValidEmail(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"not-an-email", false},
		{"abc@x", false},
		{"abc.def", false},
		{"a@b.com", true},
		{"alex@x.com", true},
	}
	for _, c := range cases {
		if got := ValidEmail(c.in); got != c.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestValidPhone(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"555-1234", false},
		{"123456789", false},
		{"1234567890", true},
		{"+1 (555) 123-4567", true},
		{"call me maybe", false},
	}
	for _, c := range cases {
		if got := ValidPhone(c.in); got != c.want {
			t.Errorf("ValidPhone(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestDigitsOf(t *testing.T) {
	if got := DigitsOf("+1 (555) 123-4567"); got != "15551234567" {
		t.Errorf("DigitsOf: expected 15551234567, got %q", got)
	}
	if got := DigitsOf("no digits"); got != "" {
		t.Errorf("DigitsOf: expected empty, got %q", got)
	}
}

func TestValidLocation(t *testing.T) {
	if ValidLocation("x") {
		t.Error("single character location must fail")
	}
	if !ValidLocation("Toronto") {
		t.Error("expected Toronto to pass")
	}
}

package normalize

import (
	"testing"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		" mercedes  benz ": "MERCEDES BENZ",
		"Toyota":           "TOYOTA",
		"citroën":          "CITROËN",
		"BYD\t":            "BYD",
		"":                 "",
	}
	for in, want := range cases {
		if got := Make(in); got != want {
			t.Fatalf("Make(%q)=%q; want %q", in, got, want)
		}
	}
}

func TestLabel(t *testing.T) {
	if got := Label("  Petrol-Electric   (Plug-In) "); got != "Petrol-Electric (Plug-In)" {
		t.Fatalf("Label=%q", got)
	}
}

func TestMakeStrict(t *testing.T) {
	if _, err := MakeStrict("   "); err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if m, err := MakeStrict("honda"); err != nil || m != "HONDA" {
		t.Fatalf("got %q %v", m, err)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string][]string{
		"coe-2024-01":           {"coe", "2024-01"},
		"registrations-2024-02": {"Registrations", " 2024-02 "},
		"a-b":                   {"a!!", "b--"},
	}
	for want, parts := range cases {
		if got := Slug(parts...); got != want {
			t.Fatalf("Slug(%v)=%q; want %q", parts, got, want)
		}
	}
}

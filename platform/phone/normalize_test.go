package phone

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+1 555 0100", "+15550100"},
		{"  0612345678\t", "0612345678"},
		{"555 0100", "5550100"},
		{"555-0100", "555-0100"},
		{"(555) 0100", "(555)0100"},
		{"", ""},
		{" \n ", ""},
	}

	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeKeepsCountryCodeVariantsDistinct(t *testing.T) {
	if Normalize("+1 555 0100") == Normalize("1 555 0100") {
		t.Fatal("numbers differing only by a leading plus must not collapse")
	}
}

func TestE164Hint(t *testing.T) {
	if got := E164Hint("06 12345678", "nl"); got != "+31612345678" {
		t.Errorf("E164Hint NL mobile = %q", got)
	}
	if got := E164Hint("not a number", "US"); got != "" {
		t.Errorf("expected empty hint for garbage, got %q", got)
	}
	if got := E164Hint("", ""); got != "" {
		t.Errorf("expected empty hint for empty input, got %q", got)
	}
}

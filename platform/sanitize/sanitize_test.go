package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "call back after 5", want: "call back after 5"},
		{name: "tags", in: "<b>Alice</b> Smith", want: "Alice Smith"},
		{name: "encoded tag", in: "&lt;script&gt;x&lt;/script&gt;ok", want: "xok"},
		{name: "ampersand kept", in: "Smith &amp; Sons", want: "Smith & Sons"},
		{name: "whitespace", in: "  too \n many\tspaces ", want: "too many spaces"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in); got != tt.want {
				t.Fatalf("Text(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextPtr(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("nil input should stay nil")
	}
	blank := " <br/> "
	if got := TextPtr(&blank); got != nil {
		t.Fatalf("blank input = %q, want nil", *got)
	}
	note := "<i>busy</i>"
	if got := TextPtr(&note); got == nil || *got != "busy" {
		t.Fatalf("TextPtr = %v, want busy", got)
	}
}

package config

import "testing"

func TestResolveValue(t *testing.T) {
	t.Setenv("TERM_CHAT_TEST_SECRET", "s3cret")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty", input: "  ", want: ""},
		{name: "literal", input: "sk-literal", want: "sk-literal"},
		{name: "braced env", input: "${TERM_CHAT_TEST_SECRET}", want: "s3cret"},
		{name: "bare env", input: "$TERM_CHAT_TEST_SECRET", want: "s3cret"},
		{name: "command", input: "$(echo from-shell)", want: "from-shell"},
		{name: "failing command", input: "$(exit 3)", wantErr: true},
		{name: "srv without host", input: "srv:///v1", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveValue(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("ResolveValue(%q)=%q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

package orchestrate_test

import (
	"testing"

	"tonearm/internal/orchestrate"
)

func TestResolveTemplate(t *testing.T) {
	cases := []struct {
		name     string
		template string
		values   map[string]string
		want     string
	}{
		{
			name:     "simple substitution",
			template: "%(artist)s - %(title)s",
			values:   map[string]string{"artist": "Orbital", "title": "Halcyon"},
			want:     "Orbital - Halcyon",
		},
		{
			name:     "fallback key chain",
			template: "%(artist)s - %(track|title)s",
			values:   map[string]string{"artist": "Orbital", "title": "Halcyon (raw upload)"},
			want:     "Orbital - Halcyon (raw upload)",
		},
		{
			name:     "first fallback wins",
			template: "%(track|title)s",
			values:   map[string]string{"track": "Halcyon", "title": "noise"},
			want:     "Halcyon",
		},
		{
			name:     "missing keys render empty",
			template: "%(artist)s - %(title)s",
			values:   map[string]string{"title": "Halcyon"},
			want:     " - Halcyon",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := orchestrate.ResolveTemplate(tc.template, tc.values); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

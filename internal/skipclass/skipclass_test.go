package skipclass_test

import (
	"testing"

	"tonearm/internal/skipclass"
)

func TestClassifyPatterns(t *testing.T) {
	cases := []struct {
		line string
		want skipclass.Category
	}{
		{"ERROR: Private video. Sign in if you've been granted access", skipclass.Skip},
		{"This video is available to this channel's members only", skipclass.Skip},
		{"The uploader has not made this video available in your country", skipclass.Skip},
		{"Video unavailable. This video contains content from UMG, who has blocked it in your country on copyright grounds", skipclass.Skip},
		{"Sign in to confirm your age. This video may be age-restricted", skipclass.Skip},
		{"This video has been removed by the uploader", skipclass.Skip},
		{"ERROR: unable to download video data: HTTP Error 403", skipclass.Error},
		{"[download] Destination: work/001 - song.webm", skipclass.None},
		{"[download]  42.0% of 3.4MiB at 1.2MiB/s", skipclass.None},
	}
	for _, tc := range cases {
		if got := skipclass.Classify(tc.line); got != tc.want {
			t.Fatalf("Classify(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestObserveDeduplicatesByNormalizedLine(t *testing.T) {
	c := skipclass.NewClassifier()

	c.Observe("ERROR: Private video")
	c.Observe("error:   private VIDEO")
	c.Observe("ERROR: Private video")

	if c.Skips() != 1 {
		t.Fatalf("expected single deduplicated skip, got %d", c.Skips())
	}

	c.Observe("ERROR: unable to download video data")
	c.Observe("ERROR: unable to download video data")
	if c.Errors() != 1 {
		t.Fatalf("expected single deduplicated error, got %d", c.Errors())
	}

	if c.LastLog() != "ERROR: unable to download video data" {
		t.Fatalf("unexpected last log: %q", c.LastLog())
	}
}

func TestObserveCountsDistinctDiagnostics(t *testing.T) {
	c := skipclass.NewClassifier()
	c.Observe("ERROR: Private video")
	c.Observe("Video unavailable. This video has been removed")
	c.Observe("geo-restricted content")

	if c.Skips() != 3 {
		t.Fatalf("expected 3 distinct skips, got %d", c.Skips())
	}
}

func TestReconcileTrustsShortfallWhenLarger(t *testing.T) {
	c := skipclass.NewClassifier()
	c.Observe("ERROR: Private video")

	// 5 declared, 2 succeeded, none errored: two items vanished silently.
	if got := c.Reconcile(5, 2); got != 3 {
		t.Fatalf("expected reconciled skips 3, got %d", got)
	}

	// Live count already explains the shortfall.
	if got := c.Reconcile(3, 2); got != 1 {
		t.Fatalf("expected live count 1, got %d", got)
	}
}

func TestReconcileExcludesCountedErrors(t *testing.T) {
	c := skipclass.NewClassifier()
	c.Observe("ERROR: Private video")
	c.Observe("ERROR: unable to download video data")

	// 4 declared, 2 succeeded: one skip, one counted error, no silent loss.
	if got := c.Reconcile(4, 2); got != 1 {
		t.Fatalf("expected errored item not double-counted, got %d", got)
	}
}

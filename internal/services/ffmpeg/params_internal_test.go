package ffmpeg

import (
	"math"
	"testing"
)

func TestNormalizeSampleRateNearestDiscrete(t *testing.T) {
	spec := formatTable["mp3"]
	cases := []struct{ in, want int }{
		{44100, 44100},
		{44000, 44100},
		{46000, 44100},
		{47000, 48000},
		{99999, 48000},
		{1000, 8000},
		{0, 0},
	}
	for _, tc := range cases {
		if got := normalizeSampleRate(spec, tc.in); got != tc.want {
			t.Fatalf("normalizeSampleRate(mp3, %d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeSampleRateContinuousCeiling(t *testing.T) {
	spec := formatTable["flac"]
	if got := normalizeSampleRate(spec, 44100); got != 44100 {
		t.Fatalf("expected passthrough, got %d", got)
	}
	if got := normalizeSampleRate(spec, 500000); got != 192000 {
		t.Fatalf("expected ceiling 192000, got %d", got)
	}
}

func TestTempoChainFactorsStayBounded(t *testing.T) {
	for _, ratio := range []float64{0.1, 0.43, 0.959, 1.0427, 3.5, 7.9} {
		chain := tempoChain(ratio)
		product := 1.0
		for _, factor := range chain {
			if factor < 0.5 || factor > 2.0 {
				t.Fatalf("factor %v out of bounds for ratio %v", factor, ratio)
			}
			product *= factor
		}
		if math.Abs(product-ratio) > 1e-6 {
			t.Fatalf("chain product %v does not reach ratio %v", product, ratio)
		}
	}
}

func TestTempoChainIdentityIsEmpty(t *testing.T) {
	if chain := tempoChain(1.0); chain != nil {
		t.Fatalf("expected no chain for ratio 1, got %v", chain)
	}
	if filter := tempoFilter(1.0); filter != "" {
		t.Fatalf("expected empty filter, got %q", filter)
	}
}

func TestTempoRatioTable(t *testing.T) {
	got := TempoRatio("23.976", "25")
	want := 25.0 / (24000.0 / 1001.0)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("TempoRatio(23.976, 25) = %v, want %v", got, want)
	}
	got = TempoRatio("30", "23.976")
	want = (24000.0 / 1001.0) / 30.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("TempoRatio(30, 23.976) = %v, want %v", got, want)
	}
	if TempoRatio("60", "25") != 1 {
		t.Fatal("unrecognized pair must return 1")
	}
}

func TestMetadataArgsFormatsTrackAndDisc(t *testing.T) {
	args := metadataArgs(Tags{
		Title:       "Song",
		Artist:      "Band",
		TrackNumber: 3,
		TrackTotal:  12,
		DiscNumber:  1,
		ISRC:        "USUM71703861",
	})
	joined := ""
	for _, arg := range args {
		joined += arg + "|"
	}
	for _, want := range []string{"title=Song", "artist=Band", "track=3/12", "disc=1", "TSRC=USUM71703861"} {
		if !contains(args, want) {
			t.Fatalf("expected %q in %v", want, args)
		}
	}
	if contains(args, "album=") {
		t.Fatalf("empty fields must be omitted: %s", joined)
	}
}

func contains(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}

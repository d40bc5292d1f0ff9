package ffmpeg

import (
	"fmt"
	"math"
	"strconv"
)

// formatSpec describes how one target format maps onto encoder parameters.
type formatSpec struct {
	extension   string
	audioCodec  string
	videoCodec  string
	container   string
	legalRates  []int
	maxRate     int
	supportsArt bool
}

var formatTable = map[string]formatSpec{
	"mp3": {
		extension:   "mp3",
		audioCodec:  "libmp3lame",
		legalRates:  []int{8000, 11025, 12000, 16000, 22050, 24000, 32000, 44100, 48000},
		supportsArt: true,
	},
	"flac": {
		extension:   "flac",
		audioCodec:  "flac",
		maxRate:     192000,
		supportsArt: true,
	},
	"wav": {
		extension:  "wav",
		audioCodec: "pcm_s16le",
		maxRate:    192000,
	},
	"ogg": {
		extension:  "ogg",
		audioCodec: "libvorbis",
		legalRates: []int{8000, 11025, 16000, 22050, 32000, 44100, 48000},
	},
	"m4a": {
		extension:  "m4a",
		audioCodec: "aac",
		container:  "ipod",
		legalRates: []int{8000, 11025, 12000, 16000, 22050, 24000, 32000, 44100, 48000, 96000},
	},
	"mp4": {
		extension:  "mp4",
		audioCodec: "aac",
		videoCodec: "libx264",
		legalRates: []int{8000, 11025, 12000, 16000, 22050, 24000, 32000, 44100, 48000, 96000},
	},
}

// SupportedFormat reports whether the target format is known.
func SupportedFormat(format string) bool {
	_, ok := formatTable[format]
	return ok
}

// Extension returns the output file extension for a format, or the format
// itself when unknown.
func Extension(format string) string {
	if spec, ok := formatTable[format]; ok {
		return spec.extension
	}
	return format
}

// normalizeSampleRate clamps a requested rate into the format's legal set:
// nearest match for discrete sets, ceiling for continuous ranges. Zero
// means "keep the source rate".
func normalizeSampleRate(spec formatSpec, requested int) int {
	if requested <= 0 {
		return 0
	}
	if len(spec.legalRates) > 0 {
		nearest := spec.legalRates[0]
		for _, rate := range spec.legalRates[1:] {
			if abs(rate-requested) < abs(nearest-requested) {
				nearest = rate
			}
		}
		return nearest
	}
	if spec.maxRate > 0 && requested > spec.maxRate {
		return spec.maxRate
	}
	return requested
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// frameRatePairs maps recognized source/target frame-rate conversions to
// their playback tempo ratio. Used when retiming PAL/NTSC sourced media.
var frameRatePairs = map[[2]string]float64{
	{"23.976", "25"}: 25.0 / (24000.0 / 1001.0),
	{"25", "23.976"}: (24000.0 / 1001.0) / 25.0,
	{"24", "25"}:     25.0 / 24.0,
	{"25", "24"}:     24.0 / 25.0,
	{"23.976", "24"}: 24.0 / (24000.0 / 1001.0),
	{"24", "23.976"}: (24000.0 / 1001.0) / 24.0,
	{"30", "23.976"}: (24000.0 / 1001.0) / 30.0,
	{"30", "24"}:     24.0 / 30.0,
	{"30", "25"}:     25.0 / 30.0,
}

// TempoRatio looks up the tempo adjustment for a frame-rate conversion
// pair. Returns 1 when the pair is not recognized.
func TempoRatio(sourceFPS, targetFPS string) float64 {
	if ratio, ok := frameRatePairs[[2]string{sourceFPS, targetFPS}]; ok {
		return ratio
	}
	return 1
}

// tempoChain decomposes a tempo ratio into atempo factors, each within the
// filter's accepted [0.5, 2.0] range, chained until the full ratio is
// reached.
func tempoChain(ratio float64) []float64 {
	if ratio <= 0 || math.Abs(ratio-1) < 1e-9 {
		return nil
	}
	var chain []float64
	remaining := ratio
	for remaining > 2.0 {
		chain = append(chain, 2.0)
		remaining /= 2.0
	}
	for remaining < 0.5 {
		chain = append(chain, 0.5)
		remaining /= 0.5
	}
	chain = append(chain, remaining)
	return chain
}

// tempoFilter renders the atempo chain as an ffmpeg audio filter string,
// or "" when no adjustment is needed.
func tempoFilter(ratio float64) string {
	chain := tempoChain(ratio)
	if len(chain) == 0 {
		return ""
	}
	out := ""
	for i, factor := range chain {
		if i > 0 {
			out += ","
		}
		out += "atempo=" + strconv.FormatFloat(factor, 'f', 6, 64)
	}
	return out
}

// Tags carries the descriptive metadata written into the output container.
type Tags struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	TrackNumber int
	TrackTotal  int
	DiscNumber  int
	DiscTotal   int
	Date        string
	Genre       string
	ISRC        string
	Comment     string
}

// metadataArgs renders non-empty tag fields as -metadata arguments.
func metadataArgs(tags Tags) []string {
	var args []string
	add := func(key, value string) {
		if value != "" {
			args = append(args, "-metadata", key+"="+value)
		}
	}
	add("title", tags.Title)
	add("artist", tags.Artist)
	add("album", tags.Album)
	add("album_artist", tags.AlbumArtist)
	if tags.TrackNumber > 0 {
		value := strconv.Itoa(tags.TrackNumber)
		if tags.TrackTotal > 0 {
			value = fmt.Sprintf("%d/%d", tags.TrackNumber, tags.TrackTotal)
		}
		args = append(args, "-metadata", "track="+value)
	}
	if tags.DiscNumber > 0 {
		value := strconv.Itoa(tags.DiscNumber)
		if tags.DiscTotal > 0 {
			value = fmt.Sprintf("%d/%d", tags.DiscNumber, tags.DiscTotal)
		}
		args = append(args, "-metadata", "disc="+value)
	}
	add("date", tags.Date)
	add("genre", tags.Genre)
	add("TSRC", tags.ISRC)
	add("comment", tags.Comment)
	return args
}

package jobs

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status describes a job's coarse lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCanceled  Status = "canceled"
)

// IsTerminal reports whether the status ends the job's lifecycle.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCanceled:
		return true
	default:
		return false
	}
}

// Phase describes where in the pipeline a running job currently is. Purely
// observational; status is the authoritative lifecycle field.
type Phase string

const (
	PhasePreparing   Phase = "preparing"
	PhaseMapping     Phase = "mapping"
	PhaseDownloading Phase = "downloading"
	PhaseConverting  Phase = "converting"
	PhaseFinalizing  Phase = "finalizing"
	PhaseCompleted   Phase = "completed"
	PhaseError       Phase = "error"
	PhaseCanceled    Phase = "canceled"
)

// Request captures the user-supplied options a job was created with.
type Request struct {
	Source          string `json:"source"`
	Format          string `json:"format"`
	Bitrate         string `json:"bitrate"`
	SampleRate      int    `json:"sampleRate"`
	SourceFPS       string `json:"sourceFps,omitempty"`
	TargetFPS       string `json:"targetFps,omitempty"`
	IsPlaylist      bool   `json:"isPlaylist"`
	SelectedIndices []int  `json:"selectedIndices,omitempty"`
	AllIndices      bool   `json:"allIndices,omitempty"`
	IncludeLyrics   bool   `json:"includeLyrics"`
	Market          string `json:"market,omitempty"`
	TitleHint       string `json:"titleHint,omitempty"`
}

// PlaylistEntry is one item of a source listing. Entries frozen into a job
// are immutable afterwards so retries resolve to the same source items.
type PlaylistEntry struct {
	Index      int    `json:"index"`
	ID         string `json:"id"`
	Title      string `json:"title"`
	Uploader   string `json:"uploader,omitempty"`
	WebpageURL string `json:"webpage_url,omitempty"`
	HasLyrics  bool   `json:"hasLyrics,omitempty"`
}

// PlaylistState tracks per-item completion for multi-item jobs.
type PlaylistState struct {
	Total   int    `json:"total"`
	Done    int    `json:"done"`
	Current string `json:"current,omitempty"`
}

// Counters hold monotonically non-decreasing per-phase item counts.
type Counters struct {
	DownloadTotal int `json:"dlTotal"`
	DownloadDone  int `json:"dlDone"`
	ConvertTotal  int `json:"cvTotal"`
	ConvertDone   int `json:"cvDone"`
}

// ItemResult records one finished output file.
type ItemResult struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Title string `json:"title,omitempty"`
}

// LyricsStats summarizes sidecar lyric retrieval for a job.
type LyricsStats struct {
	Synced    int `json:"synced"`
	Plain     int `json:"plain"`
	Missing   int `json:"missing"`
	Attempted int `json:"attempted"`
}

// Job is one acquisition and conversion request. A job is mutated only by
// the goroutine orchestrating it; Cancel is the single cross-goroutine
// write. Snapshot provides a consistent read for everyone else.
type Job struct {
	ID        string
	CreatedAt time.Time
	Request   Request

	canceled atomic.Bool

	mu               sync.Mutex
	status           Status
	phase            Phase
	progress         int
	downloadProgress int
	convertProgress  int
	playlist         *PlaylistState
	counters         Counters
	frozenEntries    []PlaylistEntry
	results          []ItemResult
	zipPath          string
	skippedCount     int
	errorsCount      int
	lastLog          string
	lyricsStats      *LyricsStats
	errMessage       string
	finishedAt       time.Time
}

// New creates a queued job with a fresh id.
func New(req Request) *Job {
	return &Job{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Request:   req,
		status:    StatusQueued,
		phase:     PhasePreparing,
	}
}

// Cancel flips the cancellation flag. Idempotent; returns true on the first
// call for a non-terminal job.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	terminal := j.status.IsTerminal()
	j.mu.Unlock()
	if terminal {
		return false
	}
	return j.canceled.CompareAndSwap(false, true)
}

// Canceled reports whether cancellation has been requested. Polled at every
// cooperative checkpoint.
func (j *Job) Canceled() bool {
	return j.canceled.Load()
}

// SetPhase moves the job into a new observational phase. Entering a phase
// marks the job running if it was still queued.
func (j *Job) SetPhase(phase Phase) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.phase = phase
	if j.status == StatusQueued {
		j.status = StatusRunning
	}
}

// Phase returns the current pipeline phase.
func (j *Job) Phase() Phase {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase
}

// Status returns the current lifecycle status.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// SetDownloadProgress updates acquisition progress and re-derives the
// combined percentage. Values are clamped to the 0-100 range and never
// move backwards.
func (j *Job) SetDownloadProgress(percent int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	percent = clampPercent(percent)
	if percent > j.downloadProgress {
		j.downloadProgress = percent
	}
	j.deriveProgress()
}

// SetConvertProgress updates conversion progress and re-derives the
// combined percentage.
func (j *Job) SetConvertProgress(percent int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	percent = clampPercent(percent)
	if percent > j.convertProgress {
		j.convertProgress = percent
	}
	j.deriveProgress()
}

// deriveProgress averages the two phase percentages. Count-weighted, not
// work-weighted. Callers hold j.mu.
func (j *Job) deriveProgress() {
	derived := (j.downloadProgress + j.convertProgress) / 2
	if derived > j.progress {
		j.progress = derived
	}
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// InitPlaylist sets up multi-item tracking and download/convert totals.
func (j *Job) InitPlaylist(total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.playlist = &PlaylistState{Total: total}
	j.counters.DownloadTotal = total
	j.counters.ConvertTotal = total
}

// SetCurrentItem records the title of the item being processed.
func (j *Job) SetCurrentItem(title string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.playlist != nil {
		j.playlist.Current = title
	}
}

// AdvancePlaylist increments playlist.done, capped at total.
func (j *Job) AdvancePlaylist() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.playlist != nil && j.playlist.Done < j.playlist.Total {
		j.playlist.Done++
	}
}

// MarkDownloadDone advances the acquisition counter.
func (j *Job) MarkDownloadDone() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.counters.DownloadDone < j.counters.DownloadTotal || j.counters.DownloadTotal == 0 {
		j.counters.DownloadDone++
	}
}

// MarkConvertDone advances the conversion counter.
func (j *Job) MarkConvertDone() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.counters.ConvertDone < j.counters.ConvertTotal || j.counters.ConvertTotal == 0 {
		j.counters.ConvertDone++
	}
}

// SetCounterTotals sets the expected item counts for both phases.
func (j *Job) SetCounterTotals(download, convert int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.counters.DownloadTotal = download
	j.counters.ConvertTotal = convert
}

// FreezeEntries records the resolved playlist entries. The first call wins;
// later calls are ignored so retries reuse the original resolution.
func (j *Job) FreezeEntries(entries []PlaylistEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.frozenEntries != nil {
		return
	}
	frozen := make([]PlaylistEntry, len(entries))
	copy(frozen, entries)
	j.frozenEntries = frozen
}

// FrozenEntries returns the frozen playlist entries, or nil before freezing.
func (j *Job) FrozenEntries() []PlaylistEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.frozenEntries == nil {
		return nil
	}
	entries := make([]PlaylistEntry, len(j.frozenEntries))
	copy(entries, j.frozenEntries)
	return entries
}

// AddResult appends a finished output file.
func (j *Job) AddResult(result ItemResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, result)
}

// Results returns the recorded outputs in insertion order.
func (j *Job) Results() []ItemResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	results := make([]ItemResult, len(j.results))
	copy(results, j.results)
	return results
}

// SetZipPath records the archive bundle produced for multi-item jobs.
func (j *Job) SetZipPath(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.zipPath = path
}

// AddSkipped increments the intentionally-unavailable item count.
func (j *Job) AddSkipped(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if n > 0 {
		j.skippedCount += n
	}
}

// SetSkipped overwrites the skip count when reconciliation raises it.
func (j *Job) SetSkipped(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if n > j.skippedCount {
		j.skippedCount = n
	}
}

// AddErrors increments the unexpected per-item failure count.
func (j *Job) AddErrors(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if n > 0 {
		j.errorsCount += n
	}
}

// SetLastLog records the most recent notable subprocess line.
func (j *Job) SetLastLog(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if line != "" {
		j.lastLog = line
	}
}

// SetLyricsStats records the sidecar lyric summary.
func (j *Job) SetLyricsStats(stats LyricsStats) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lyricsStats = &stats
}

// Complete moves the job to its successful terminal state with full
// progress.
func (j *Job) Complete() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.IsTerminal() {
		return
	}
	j.status = StatusCompleted
	j.phase = PhaseCompleted
	j.progress = 100
	j.downloadProgress = 100
	j.convertProgress = 100
	if j.playlist != nil {
		j.playlist.Done = j.playlist.Total
		j.playlist.Current = ""
	}
	j.finishedAt = time.Now().UTC()
}

// Fail moves the job to the error terminal state with a message.
func (j *Job) Fail(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.IsTerminal() {
		return
	}
	j.status = StatusError
	j.phase = PhaseError
	j.errMessage = message
	j.finishedAt = time.Now().UTC()
}

// MarkCanceled moves the job to the canceled terminal state. The error
// field stays empty; cancellation is not a failure.
func (j *Job) MarkCanceled() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.IsTerminal() {
		return
	}
	j.status = StatusCanceled
	j.phase = PhaseCanceled
	j.finishedAt = time.Now().UTC()
}

// FinishedAt returns when the job reached a terminal state, or the zero
// time if it has not.
func (j *Job) FinishedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finishedAt
}

// Snapshot is an immutable view of a job for API responses.
type Snapshot struct {
	ID               string         `json:"id"`
	Status           Status         `json:"status"`
	Phase            Phase          `json:"currentPhase"`
	Progress         int            `json:"progress"`
	DownloadProgress int            `json:"downloadProgress"`
	ConvertProgress  int            `json:"convertProgress"`
	Playlist         *PlaylistState `json:"playlist,omitempty"`
	Counters         Counters       `json:"counters"`
	Results          []ItemResult   `json:"results,omitempty"`
	ZipPath          string         `json:"zipPath,omitempty"`
	SkippedCount     int            `json:"skippedCount"`
	ErrorsCount      int            `json:"errorsCount"`
	LastLog          string         `json:"lastLog,omitempty"`
	LyricsStats      *LyricsStats   `json:"lyricsStats,omitempty"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	FinishedAt       *time.Time     `json:"finishedAt,omitempty"`
	Request          Request        `json:"request"`
}

// Snapshot returns a consistent copy of the job's observable state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := Snapshot{
		ID:               j.ID,
		Status:           j.status,
		Phase:            j.phase,
		Progress:         j.progress,
		DownloadProgress: j.downloadProgress,
		ConvertProgress:  j.convertProgress,
		Counters:         j.counters,
		ZipPath:          j.zipPath,
		SkippedCount:     j.skippedCount,
		ErrorsCount:      j.errorsCount,
		LastLog:          j.lastLog,
		Error:            j.errMessage,
		CreatedAt:        j.CreatedAt,
		Request:          j.Request,
	}
	if j.playlist != nil {
		playlist := *j.playlist
		snap.Playlist = &playlist
	}
	if len(j.results) > 0 {
		snap.Results = make([]ItemResult, len(j.results))
		copy(snap.Results, j.results)
	}
	if j.lyricsStats != nil {
		stats := *j.lyricsStats
		snap.LyricsStats = &stats
	}
	if !j.finishedAt.IsZero() {
		finished := j.finishedAt
		snap.FinishedAt = &finished
	}
	return snap
}

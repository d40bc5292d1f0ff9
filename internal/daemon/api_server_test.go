package daemon_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tonearm/internal/config"
	"tonearm/internal/daemon"
	"tonearm/internal/jobs"
	"tonearm/internal/services"
)

// fakeExecutor satisfies every external tool invocation with canned
// behavior keyed on the binary name.
type fakeExecutor struct {
	mu          sync.Mutex
	listing     string
	listingHits int
	inspect     string
	failFetch   bool
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, onStart func(*os.Process), onStdout, onStderr func(string)) error {
	switch filepath.Base(binary) {
	case "yt-dlp":
		if hasArg(args, "-J") {
			if hasArg(args, "--flat-playlist") {
				f.mu.Lock()
				f.listingHits++
				f.mu.Unlock()
				onStdout(f.listing)
			} else {
				onStdout(f.inspect)
			}
			return nil
		}
		if f.failFetch {
			if onStderr != nil {
				onStderr("ERROR: unable to download video data")
			}
			return &services.ExitError{Code: 1}
		}
		template := ""
		for i, arg := range args {
			if arg == "-o" && i+1 < len(args) {
				template = args[i+1]
			}
		}
		name := strings.ReplaceAll(filepath.Base(template), "%(title)s", "Sample Track")
		name = strings.ReplaceAll(name, "%(ext)s", "webm")
		path := filepath.Join(filepath.Dir(template), name)
		if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
			return err
		}
		onStdout("[download] Destination: " + path)
		return nil
	case "ffprobe":
		onStdout(`{"format":{"duration":"180.0"},"streams":[{"codec_type":"audio","sample_rate":"44100"}]}`)
		return nil
	case "ffmpeg":
		return os.WriteFile(args[len(args)-1], []byte("converted"), 0o644)
	}
	return fmt.Errorf("unexpected binary %s", binary)
}

func hasArg(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}

func newTestDaemon(t *testing.T, exec *fakeExecutor) (*daemon.Daemon, *httptest.Server) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Paths.WorkDir = filepath.Join(t.TempDir(), "work")
	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Workflow.DownloadConcurrency = 2
	cfg.Workflow.JobRetentionHours = 1
	cfg.Preview.TTLMinutes = 5
	cfg.Preview.MaxListings = 8

	d, err := daemon.New(cfg, nil, daemon.WithExecutor(exec))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	server := httptest.NewServer(d.Routes())
	t.Cleanup(server.Close)
	t.Cleanup(func() { _ = d.Close() })
	return d, server
}

func waitTerminal(t *testing.T, server *httptest.Server, id string) jobs.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(server.URL + "/api/jobs/" + id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		var snap jobs.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		resp.Body.Close()
		if snap.Status.IsTerminal() {
			return snap
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return jobs.Snapshot{}
}

func TestCreateAndFetchJob(t *testing.T) {
	exec := &fakeExecutor{
		inspect: `{"id":"abc","title":"Sample Track","uploader":"Uploads","webpage_url":"https://www.youtube.com/watch?v=abc"}`,
	}
	_, server := newTestDaemon(t, exec)

	body := `{"source":"https://www.youtube.com/watch?v=abc","format":"mp3","bitrate":"192k"}`
	resp, err := http.Post(server.URL+"/api/jobs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post job: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" {
		t.Fatal("missing job id")
	}

	snap := waitTerminal(t, server, created.ID)
	if snap.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s (error %q)", snap.Status, snap.Error)
	}
	if len(snap.Results) != 1 {
		t.Fatalf("results = %d", len(snap.Results))
	}
}

func TestCreateJobValidation(t *testing.T) {
	_, server := newTestDaemon(t, &fakeExecutor{})

	cases := []struct {
		name string
		body string
	}{
		{"missing source", `{"format":"mp3"}`},
		{"bad format", `{"source":"https://example.com/x","format":"aiff"}`},
		{"malformed json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(server.URL+"/api/jobs", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d", resp.StatusCode)
			}
		})
	}
}

func TestCancelJobIdempotent(t *testing.T) {
	exec := &fakeExecutor{
		inspect:   `{"id":"abc","title":"Sample Track","webpage_url":"https://www.youtube.com/watch?v=abc"}`,
		failFetch: true,
	}
	d, server := newTestDaemon(t, exec)

	job := d.Submit(jobs.Request{Source: "https://www.youtube.com/watch?v=abc", Format: "mp3"})
	waitTerminal(t, server, job.ID)

	for i := 0; i < 2; i++ {
		resp, err := http.Post(server.URL+"/api/jobs/"+job.ID+"/cancel", "application/json", nil)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("cancel attempt %d status = %d", i+1, resp.StatusCode)
		}
	}

	resp, err := http.Post(server.URL+"/api/jobs/no-such-job/cancel", "application/json", nil)
	if err != nil {
		t.Fatalf("cancel missing: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing job cancel status = %d", resp.StatusCode)
	}
}

func TestPreviewPagingUsesCache(t *testing.T) {
	entries := make([]string, 0, 6)
	for i := 1; i <= 6; i++ {
		entries = append(entries, fmt.Sprintf(
			`{"id":"v%d","title":"Video %d","playlist_index":%d,"url":"https://www.youtube.com/watch?v=v%d"}`, i, i, i, i))
	}
	exec := &fakeExecutor{
		listing: `{"_type":"playlist","title":"Mix","playlist_count":6,"entries":[` +
			strings.Join(entries, ",") + `]}`,
	}
	_, server := newTestDaemon(t, exec)

	post := func(page, pageSize int) previewResult {
		body := fmt.Sprintf(`{"url":"https://www.youtube.com/playlist?list=PL9","page":%d,"pageSize":%d}`, page, pageSize)
		resp, err := http.Post(server.URL+"/api/preview", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("preview: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("preview status = %d", resp.StatusCode)
		}
		var result previewResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode preview: %v", err)
		}
		return result
	}

	first := post(1, 3)
	if first.Playlist.Title != "Mix" || first.Playlist.Count != 6 {
		t.Fatalf("playlist header = %+v", first.Playlist)
	}
	if len(first.Items) != 3 || first.Items[0].Index != 1 {
		t.Fatalf("page 1 items = %+v", first.Items)
	}

	second := post(2, 3)
	if len(second.Items) != 3 || second.Items[0].Index != 4 {
		t.Fatalf("page 2 items = %+v", second.Items)
	}

	exec.mu.Lock()
	hits := exec.listingHits
	exec.mu.Unlock()
	if hits != 1 {
		t.Fatalf("listing fetched %d times, cache expected to serve page 2", hits)
	}
}

type previewResult struct {
	Playlist struct {
		Title string `json:"title"`
		Count int    `json:"count"`
	} `json:"playlist"`
	Page  int                  `json:"page"`
	Items []jobs.PlaylistEntry `json:"items"`
}

func TestStreamClosesOnTerminalJob(t *testing.T) {
	exec := &fakeExecutor{
		inspect: `{"id":"abc","title":"Sample Track","webpage_url":"https://www.youtube.com/watch?v=abc"}`,
	}
	d, server := newTestDaemon(t, exec)

	job := d.Submit(jobs.Request{Source: "https://www.youtube.com/watch?v=abc", Format: "mp3"})
	waitTerminal(t, server, job.ID)

	resp, err := http.Get(server.URL + "/api/jobs/" + job.ID + "/stream")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	var frames int
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		frames++
		var snap jobs.Snapshot
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if !snap.Status.IsTerminal() {
			t.Fatalf("expected terminal snapshot, got %s", snap.Status)
		}
	}
	if frames != 1 {
		t.Fatalf("expected exactly one frame for a terminal job, got %d", frames)
	}
}

func TestDownloadRejectsTraversal(t *testing.T) {
	d, server := newTestDaemon(t, &fakeExecutor{})

	outDir := d.OutputDir()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "song.mp3"), []byte("media"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(server.URL + "/download/song.mp3")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.Equal(body, []byte("media")) {
		t.Fatalf("download status = %d body = %q", resp.StatusCode, body)
	}

	resp, err = http.Get(server.URL + "/download/..%2Fsecret.txt")
	if err != nil {
		t.Fatalf("traversal request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Fatal("traversal must not succeed")
	}
}

func TestHistoryEmptyWhenDisabled(t *testing.T) {
	_, server := newTestDaemon(t, &fakeExecutor{})

	resp, err := http.Get(server.URL + "/api/history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var entries []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d", len(entries))
	}
}

package e2e

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	startupTimeout = 10 * time.Second
	pollInterval   = 100 * time.Millisecond
)

// stubFFmpeg writes a marker into its last argument, the output path. Proxy
// encodes (recognised by -vf) print a few progress and log lines slowly so
// they can be observed live.
const stubFFmpeg = `#!/bin/sh
for a; do last=$a; done
case " $* " in
*" -vf "*)
	echo "out_time_ms=1000000"
	sleep 0.3
	echo "proxy pass 1"
	sleep 0.3
	echo "proxy pass 2"
	echo "progress=end"
	;;
esac
echo ok > "$last"
`

const stubFFprobe = "#!/bin/sh\necho 4\n"

// lockedBuffer is a thread-safe wrapper around bytes.Buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (lb *lockedBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.Write(p)
}

func (lb *lockedBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.String()
}

// serverProc holds the running server subprocess and its output.
type serverProc struct {
	cmd       *exec.Cmd
	stdout    *lockedBuffer
	url       string
	workspace string
	dbPath    string
}

var (
	builtBinary string
	buildOnce   sync.Once
	buildErr    error
)

func getBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "podfree-e2e-*")
		if err != nil {
			buildErr = err
			return
		}
		binary := filepath.Join(dir, "podfree")
		cmd := exec.Command("go", "build", "-o", binary, "./cmd/podfree")
		cmd.Dir = findRepoRoot(t)
		out, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("go build failed: %w\n%s", err, out)
			return
		}
		builtBinary = binary
	})
	if buildErr != nil {
		t.Fatal(buildErr)
	}
	return builtBinary
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find repo root")
		}
		dir = parent
	}
}

// toolsDir writes the stub encoder and prober into a fresh directory.
func toolsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{"ffmpeg": stubFFmpeg, "ffprobe": stubFFprobe} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

// startServer runs "podfree serve" against a fresh workspace. dbPath may be
// empty for a new database.
func startServer(t *testing.T, binary, dbPath string) *serverProc {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if dbPath == "" {
		dbPath = filepath.Join(t.TempDir(), "test.db")
	}
	workspace := t.TempDir()
	tools := toolsDir(t)

	stdout := &lockedBuffer{}
	cmd := exec.Command(binary, "serve")
	cmd.Env = append(os.Environ(),
		"PODFREE_LISTEN_ADDR="+addr,
		"PODFREE_DB_PATH="+dbPath,
		"PODFREE_LOG_LEVEL=info",
		"PODFREE_WORKSPACE="+workspace,
		"PODFREE_SCRIPTS_DIR="+t.TempDir(),
		"PODFREE_FFMPEG="+filepath.Join(tools, "ffmpeg"),
		"PODFREE_FFPROBE="+filepath.Join(tools, "ffprobe"),
	)
	cmd.Stdout = stdout
	cmd.Stderr = stdout

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}

	sp := &serverProc{
		cmd:       cmd,
		stdout:    stdout,
		url:       "http://" + addr,
		workspace: workspace,
		dbPath:    dbPath,
	}

	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})

	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(sp.url + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == 200 {
				return sp
			}
		}
		time.Sleep(pollInterval)
	}
	t.Fatalf("server did not become ready within %v\nstdout:\n%s", startupTimeout, stdout.String())
	return nil
}

// stop shuts the server down and waits for it to exit.
func (sp *serverProc) stop(t *testing.T) {
	t.Helper()
	sp.cmd.Process.Signal(os.Interrupt)
	done := make(chan error, 1)
	go func() { done <- sp.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(startupTimeout):
		t.Fatalf("server did not stop\nstdout:\n%s", sp.stdout.String())
	}
}

func (sp *serverProc) writeFile(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(sp.workspace, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func (sp *serverProc) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, sp.url+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s %s: %v\nbody: %s", method, path, err, raw)
		}
	}
	return resp.StatusCode, out
}

// pollStatus waits for job id to reach expected and returns its snapshot.
func (sp *serverProc) pollStatus(t *testing.T, id, expected string, timeout time.Duration) map[string]any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var job map[string]any
	for time.Now().Before(deadline) {
		_, job = sp.do(t, "GET", "/v1/jobs/"+id, "")
		if job["status"] == expected {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach %q within %v: %v", id, expected, timeout, job)
	return nil
}

func TestBinaryBuildsAndStarts(t *testing.T) {
	binary := getBinary(t)
	if _, err := os.Stat(binary); os.IsNotExist(err) {
		t.Fatal("binary does not exist after build")
	}

	sp := startServer(t, binary, "")
	if sp == nil {
		t.Fatal("server did not start")
	}
}

func TestHealthzReportsTools(t *testing.T) {
	sp := startServer(t, getBinary(t), "")

	status, body := sp.do(t, "GET", "/healthz", "")
	if status != 200 {
		t.Errorf("status = %d, want 200", status)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok (stub tools are configured)", body["status"])
	}

	_, tools := sp.do(t, "GET", "/v1/tools", "")
	list, ok := tools["tools"].([]any)
	if !ok || len(list) != 3 {
		t.Fatalf("tools = %v", tools)
	}
}

func TestMetrics(t *testing.T) {
	sp := startServer(t, getBinary(t), "")

	resp, err := http.Get(sp.url + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	body := string(bodyBytes)

	for _, name := range []string{
		"podfree_http_requests_total",
		"podfree_http_request_duration_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

// Structured JSON logs are written to stdout on every request.
func TestStructuredJSONLogs(t *testing.T) {
	sp := startServer(t, getBinary(t), "")

	resp, err := http.Get(sp.url + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(sp.stdout.String(), `"msg":"request"`) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	scanner := bufio.NewScanner(strings.NewReader(sp.stdout.String()))
	foundRequestLog := false
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if msg, ok := entry["msg"].(string); ok && msg == "request" {
			foundRequestLog = true
			for _, key := range []string{"method", "path", "status", "duration_ms", "request_id"} {
				if _, ok := entry[key]; !ok {
					t.Errorf("request log missing field %q", key)
				}
			}
		}
	}
	if !foundRequestLog {
		t.Errorf("no structured request log found in stdout\noutput:\n%s", sp.stdout.String())
	}
}

// Transcript edits live in SQLite and survive a restart.
func TestTranscriptEditsPersistAcrossRestart(t *testing.T) {
	binary := getBinary(t)
	sp := startServer(t, binary, "")

	status, _ := sp.do(t, "PUT", "/v1/transcript-edits/",
		`{"projectName":"ep1","transcriptFile":"t.json","deletedIndices":[4,2]}`)
	if status != 200 {
		t.Fatalf("save status = %d, want 200", status)
	}
	sp.stop(t)

	sp2 := startServer(t, binary, sp.dbPath)
	_, body := sp2.do(t, "GET", "/v1/transcript-edits/?project=ep1&file=t.json", "")
	got, _ := body["deletedIndices"].([]any)
	if len(got) != 2 || got[0] != float64(2) || got[1] != float64(4) {
		t.Errorf("deletedIndices = %v, want [2 4]", body["deletedIndices"])
	}
}

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

// board is a 5x5 game where the snake's neck is directly above its head, so
// the first safe move is "left".
const board = `{
  "game": {"id": "e2e-game", "timeout": 500},
  "turn": 12,
  "board": {
    "height": 5, "width": 5, "food": [], "hazards": [],
    "snakes": [{"id": "me", "body": [{"x": 2, "y": 4}, {"x": 2, "y": 3}, {"x": 2, "y": 2}]}]
  },
  "you": {"id": "me", "head": {"x": 2, "y": 4}, "body": [{"x": 2, "y": 4}, {"x": 2, "y": 3}, {"x": 2, "y": 2}]}
}`

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
	cmd    *exec.Cmd
	stdout *lockedBuffer
	url    string
}

var (
	builtBinary string
	buildOnce   sync.Once
	buildErr    error
)

func getBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "snakebridge-e2e-*")
		if err != nil {
			buildErr = err
			return
		}
		binary := filepath.Join(dir, "snakebridge")
		cmd := exec.Command("go", "build", "-o", binary, "./cmd/snakebridge")
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

func startServer(t *testing.T, binary string, extraEnv ...string) *serverProc {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	dir := t.TempDir()

	stdout := &lockedBuffer{}
	cmd := exec.Command(binary)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"SNAKEBRIDGE_LISTEN_ADDR="+addr,
		"SNAKEBRIDGE_DB_PATH="+filepath.Join(dir, "test.db"),
		"SNAKEBRIDGE_LOG_LEVEL=info",
		"SNAKEBRIDGE_OTEL_ENABLED=false",
	)
	cmd.Env = append(cmd.Env, extraEnv...)
	cmd.Stdout = stdout
	cmd.Stderr = stdout

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}

	sp := &serverProc{
		cmd:    cmd,
		stdout: stdout,
		url:    "http://" + addr,
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

func postJSON(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s response: %v", url, err)
	}
	return resp.StatusCode, out
}

// AC1: the binary builds and serves /healthz with a ready engine.
func TestAC1_BinaryBuildsAndStarts(t *testing.T) {
	binary := getBinary(t)
	sp := startServer(t, binary)

	resp, err := http.Get(sp.url + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" || body["engine"] != "ready" {
		t.Errorf("healthz = %v, want ok/ready", body)
	}
}

// AC2: /start returns the snake's appearance from the engine.
func TestAC2_Start(t *testing.T) {
	binary := getBinary(t)
	sp := startServer(t, binary)

	status, body := postJSON(t, sp.url+"/start", board)
	if status != 200 {
		t.Fatalf("status = %d, want 200 (%v)", status, body)
	}
	if body["color"] == nil || body["headType"] == nil || body["tailType"] == nil {
		t.Errorf("start reply = %v, want color/headType/tailType", body)
	}
}

// AC3: /move returns a safe move chosen by the engine.
func TestAC3_Move(t *testing.T) {
	binary := getBinary(t)
	sp := startServer(t, binary)

	status, body := postJSON(t, sp.url+"/move", board)
	if status != 200 {
		t.Fatalf("status = %d, want 200 (%v)", status, body)
	}
	if body["move"] != "left" {
		t.Errorf("move = %v, want left", body["move"])
	}
}

// AC4: /end and /ping answer with an empty object.
func TestAC4_EndAndPing(t *testing.T) {
	binary := getBinary(t)
	sp := startServer(t, binary)

	for _, path := range []string{"/end", "/ping"} {
		status, body := postJSON(t, sp.url+path, board)
		if status != 200 {
			t.Errorf("%s status = %d, want 200", path, status)
		}
		if len(body) != 0 {
			t.Errorf("%s reply = %v, want {}", path, body)
		}
	}
}

// AC5: concurrent moves from different games each get an answer.
func TestAC5_ConcurrentMoves(t *testing.T) {
	binary := getBinary(t)
	sp := startServer(t, binary, "SNAKEBRIDGE_DECIDER=echo")

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Go(func() {
			payload := fmt.Sprintf(`{"game":{"id":"game-%d"},"turn":%d}`, i, i)
			resp, err := http.Post(sp.url+"/move", "application/json", strings.NewReader(payload))
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			got, _ := io.ReadAll(resp.Body)
			if string(got) != payload {
				errs <- fmt.Errorf("move %d got %s, want %s", i, got, payload)
			}
		})
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

// AC6: handled calls appear in the journal and stats.
func TestAC6_Journal(t *testing.T) {
	binary := getBinary(t)
	sp := startServer(t, binary)

	postJSON(t, sp.url+"/start", board)
	postJSON(t, sp.url+"/move", board)

	resp, err := http.Get(sp.url + "/v1/calls?kind=move")
	if err != nil {
		t.Fatalf("GET /v1/calls: %v", err)
	}
	var list struct {
		Calls []map[string]any `json:"calls"`
		Total int              `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()

	if list.Total != 1 || len(list.Calls) != 1 {
		t.Fatalf("move calls = %d, want 1", list.Total)
	}
	call := list.Calls[0]
	if call["game_id"] != "e2e-game" || call["status"] != "resolved" {
		t.Errorf("journal entry = %v", call)
	}
	if id, ok := call["id"].(string); !ok || len(id) != 26 {
		t.Errorf("id = %v, expected 26-char ULID", call["id"])
	}

	resp, err = http.Get(sp.url + "/v1/stats")
	if err != nil {
		t.Fatalf("GET /v1/stats: %v", err)
	}
	defer resp.Body.Close()
	var stats map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["total"] != float64(2) {
		t.Errorf("total = %v, want 2", stats["total"])
	}
}

// AC7: GET /metrics exposes HTTP and bridge metrics.
func TestAC7_Metrics(t *testing.T) {
	binary := getBinary(t)
	sp := startServer(t, binary)

	postJSON(t, sp.url+"/move", board)

	resp, err := http.Get(sp.url + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	body := string(bodyBytes)

	for _, name := range []string{
		"snakebridge_http_requests_total",
		"snakebridge_http_request_duration_seconds",
		"snakebridge_bridge_calls_total",
		"snakebridge_engine_messages_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

// AC8: structured JSON logs are written to stdout on every request.
func TestAC8_StructuredJSONLogs(t *testing.T) {
	binary := getBinary(t)
	sp := startServer(t, binary)

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

// AC9: every response names the server.
func TestAC9_PoweredByHeader(t *testing.T) {
	binary := getBinary(t)
	sp := startServer(t, binary)

	resp, err := http.Get(sp.url + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()

	if v := resp.Header.Get("X-Powered-By"); v != "snakebridge" {
		t.Errorf("X-Powered-By = %q, want snakebridge", v)
	}
}

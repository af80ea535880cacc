// Package e2e is an end-to-end harness for the perch CLI. It builds real
// perch and perchd binaries, runs the server against a temp database, and
// registers actors with isolated HOME and cache directories so tests can
// exercise full command round trips, including offline failure paths.
package e2e

import (
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// Harness manages a perchd server and per-actor perch client environments.
type Harness struct {
	ServerURL string
	WorkDir   string

	PerchBin  string
	ServerBin string

	homeDirs map[string]string // actor -> HOME dir
	dataDirs map[string]string // actor -> PERCH_DATA_DIR

	serverCmd  *exec.Cmd
	serverLog  string
	serverPort int
	serverData string
	t          *testing.T
}

// actors are registered in this order during Setup.
var actors = []string{"alice", "bob"}

// Setup builds the binaries, starts perchd on a random port, and registers
// alice and bob. Teardown runs via t.Cleanup.
func Setup(t *testing.T) *Harness {
	t.Helper()

	h := &Harness{
		homeDirs: make(map[string]string),
		dataDirs: make(map[string]string),
		t:        t,
	}

	workDir, err := os.MkdirTemp("", "perch-e2e-")
	if err != nil {
		t.Fatalf("mktemp: %v", err)
	}
	h.WorkDir = workDir
	t.Cleanup(func() { h.Teardown() })

	h.serverData = filepath.Join(workDir, "server-data")
	if err := os.MkdirAll(h.serverData, 0755); err != nil {
		t.Fatalf("mkdir server-data: %v", err)
	}

	for _, actor := range actors {
		homeDir := filepath.Join(workDir, "home-"+actor)
		dataDir := filepath.Join(workDir, "data-"+actor)
		for _, dir := range []string{homeDir, dataDir} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				t.Fatalf("mkdir %s: %v", dir, err)
			}
		}
		h.homeDirs[actor] = homeDir
		h.dataDirs[actor] = dataDir
	}

	repoDir := findRepoRoot()
	h.PerchBin = filepath.Join(workDir, "perch")
	h.ServerBin = filepath.Join(workDir, "perchd")

	t.Log("building perch binary")
	if out, err := runCmd(repoDir, "go", "build", "-o", h.PerchBin, "."); err != nil {
		t.Fatalf("build perch: %v\n%s", err, out)
	}
	t.Log("building perchd binary")
	if out, err := runCmd(repoDir, "go", "build", "-o", h.ServerBin, "./cmd/perchd"); err != nil {
		t.Fatalf("build perchd: %v\n%s", err, out)
	}

	port, err := randomPort()
	if err != nil {
		t.Fatalf("random port: %v", err)
	}
	h.serverPort = port
	h.ServerURL = fmt.Sprintf("http://localhost:%d", port)
	h.serverLog = filepath.Join(workDir, "server.log")

	if err := h.StartServer(); err != nil {
		t.Fatalf("start server: %v\nServer log:\n%s", err, h.ServerLogContents())
	}
	t.Logf("server ready on port %d", port)

	for _, actor := range actors {
		if out, err := h.Register(actor); err != nil {
			t.Fatalf("register %s: %v\n%s", actor, err, out)
		}
	}

	t.Logf("ready: actors=%v", actors)
	return h
}

// Teardown kills the server and removes the temp tree.
func (h *Harness) Teardown() {
	if h.serverCmd != nil && h.serverCmd.Process != nil {
		h.serverCmd.Process.Kill()
		h.serverCmd.Wait()
	}
	if h.WorkDir != "" {
		os.RemoveAll(h.WorkDir)
	}
}

// StartServer starts perchd against the harness data directory and blocks
// until it passes a health check. Safe to call again after StopServer.
func (h *Harness) StartServer() error {
	logFile, err := os.OpenFile(h.serverLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open server log: %w", err)
	}

	h.serverCmd = exec.Command(h.ServerBin)
	h.serverCmd.Env = append(os.Environ(),
		fmt.Sprintf("PERCH_LISTEN_ADDR=:%d", h.serverPort),
		fmt.Sprintf("PERCH_DB_PATH=%s/perchd.db", h.serverData),
		fmt.Sprintf("PERCH_MEDIA_DIR=%s/media", h.serverData),
		"PERCH_ALLOW_SIGNUP=true",
		"PERCH_LOG_FORMAT=text",
		"PERCH_LOG_LEVEL=info",
	)
	h.serverCmd.Stdout = logFile
	h.serverCmd.Stderr = logFile

	if err := h.serverCmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("start perchd: %w", err)
	}
	logFile.Close()

	if err := h.waitForHealth(30 * time.Second); err != nil {
		return fmt.Errorf("perchd not healthy: %w", err)
	}
	return nil
}

// StopServer kills the server process and waits for it to exit. The data
// directory is kept so StartServer resumes with the same feed.
func (h *Harness) StopServer() error {
	if h.serverCmd == nil || h.serverCmd.Process == nil {
		return fmt.Errorf("server not running")
	}
	if err := h.serverCmd.Process.Kill(); err != nil {
		return fmt.Errorf("kill server: %w", err)
	}
	// Kill causes a non-zero exit status; only the wait matters here.
	h.serverCmd.Wait()
	h.serverCmd = nil
	return nil
}

// Register runs `perch register` for an actor, answering the login,
// password, confirmation, and display name prompts over stdin.
func (h *Harness) Register(actor string) (string, error) {
	stdin := fmt.Sprintf("%s\n%s-pass\n%s-pass\n%s\n", actor, actor, actor, actor)
	return h.PerchIn(actor, stdin, "register", "--server", h.ServerURL)
}

// Perch runs the perch binary as the given actor and returns combined output.
func (h *Harness) Perch(actor string, args ...string) (string, error) {
	return h.perchRun(actor, "", nil, args...)
}

// PerchIn runs perch with the given stdin, for commands that prompt.
func (h *Harness) PerchIn(actor, stdin string, args ...string) (string, error) {
	return h.perchRun(actor, stdin, nil, args...)
}

// PerchEnv runs perch with extra environment variables appended after the
// actor defaults, so tests can override PERCH_PAGE_SIZE and friends.
func (h *Harness) PerchEnv(actor string, env []string, args ...string) (string, error) {
	return h.perchRun(actor, "", env, args...)
}

func (h *Harness) perchRun(actor, stdin string, extraEnv []string, args ...string) (string, error) {
	homeDir, ok := h.homeDirs[actor]
	if !ok {
		return "", fmt.Errorf("unknown actor: %s", actor)
	}

	cmd := exec.Command(h.PerchBin, args...)
	cmd.Dir = h.WorkDir
	cmd.Env = append(os.Environ(),
		"HOME="+homeDir,
		"PERCH_DATA_DIR="+h.dataDirs[actor],
		"PERCH_SERVER_URL="+h.ServerURL,
	)
	cmd.Env = append(cmd.Env, extraEnv...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	out, err := cmd.CombinedOutput()
	return string(out), err
}

// PerchA runs perch as alice.
func (h *Harness) PerchA(args ...string) (string, error) {
	return h.Perch("alice", args...)
}

// PerchB runs perch as bob.
func (h *Harness) PerchB(args ...string) (string, error) {
	return h.Perch("bob", args...)
}

// ServerLogContents returns the server log file contents.
func (h *Harness) ServerLogContents() string {
	data, _ := os.ReadFile(h.serverLog)
	return string(data)
}

// CacheDBPath returns the path to an actor's feed cache database.
func (h *Harness) CacheDBPath(actor string) string {
	dataDir, ok := h.dataDirs[actor]
	if !ok {
		return ""
	}
	return filepath.Join(dataDir, "feed.db")
}

// QueryCache runs a read-only SQL query against an actor's cache database
// and returns the rows, columns pipe-separated and one row per line. Only
// call between perch invocations so the cache file is quiescent.
func (h *Harness) QueryCache(actor, query string) (string, error) {
	db, err := sql.Open("sqlite", h.CacheDBPath(actor)+"?mode=ro")
	if err != nil {
		return "", fmt.Errorf("open %s cache: %w", actor, err)
	}
	defer db.Close()

	rows, err := db.Query(query)
	if err != nil {
		return "", fmt.Errorf("query %s cache: %w", actor, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var out []string
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}
		fields := make([]string, len(cols))
		for i, v := range vals {
			switch x := v.(type) {
			case nil:
				fields[i] = ""
			case []byte:
				fields[i] = string(x)
			default:
				fields[i] = fmt.Sprintf("%v", x)
			}
		}
		out = append(out, strings.Join(fields, "|"))
	}
	return strings.Join(out, "\n"), rows.Err()
}

// ExtractPostID pulls the first "#<digits>" post ID out of command output,
// e.g. from "Posted #113272163886045184".
func ExtractPostID(out string) string {
	_, rest, found := strings.Cut(out, "#")
	if !found {
		return ""
	}
	var id strings.Builder
	for _, r := range rest {
		if r < '0' || r > '9' {
			break
		}
		id.WriteRune(r)
	}
	return id.String()
}

// --- internal helpers ---

func findRepoRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func randomPort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port, nil
}

func runCmd(dir string, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (h *Harness) waitForHealth(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	healthURL := h.ServerURL + "/healthz"
	client := &http.Client{Timeout: 2 * time.Second}

	for time.Now().Before(deadline) {
		if h.serverCmd.ProcessState != nil {
			return fmt.Errorf("server process exited")
		}
		resp, err := client.Get(healthURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("health check timed out after %v", timeout)
}

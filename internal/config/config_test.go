package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolateHome points HOME at a temp dir so tests never touch real config.
func isolateHome(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("PERCH_SERVER_URL", "")
	t.Setenv("PERCH_TOKEN", "")
	t.Setenv("PERCH_PAGE_SIZE", "")
	t.Setenv("PERCH_POLL_INTERVAL", "")
	t.Setenv("PERCH_DATA_DIR", "")
	return tmp
}

func writeTestConfig(t *testing.T, cfg *Config) {
	t.Helper()
	dir := filepath.Join(os.Getenv("HOME"), ".config", "perch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestServerURLDefault(t *testing.T) {
	isolateHome(t)
	if got := ServerURL(); got != "http://localhost:8466" {
		t.Errorf("server url = %q, want default", got)
	}
}

func TestServerURLFromConfig(t *testing.T) {
	isolateHome(t)
	writeTestConfig(t, &Config{ServerURL: "https://feed.example.net"})
	if got := ServerURL(); got != "https://feed.example.net" {
		t.Errorf("server url = %q, want config value", got)
	}
}

func TestServerURLEnvOverridesConfig(t *testing.T) {
	isolateHome(t)
	writeTestConfig(t, &Config{ServerURL: "https://feed.example.net"})
	t.Setenv("PERCH_SERVER_URL", "https://other.example.net")
	if got := ServerURL(); got != "https://other.example.net" {
		t.Errorf("server url = %q, want env value", got)
	}
}

func TestServerURLFallsBackToAuth(t *testing.T) {
	isolateHome(t)
	creds := &AuthCredentials{Token: "perch_x", Login: "casey", ServerURL: "https://home.example.net"}
	if err := SaveAuth(creds); err != nil {
		t.Fatalf("save auth: %v", err)
	}
	if got := ServerURL(); got != "https://home.example.net" {
		t.Errorf("server url = %q, want the logged-in server", got)
	}
}

func TestAuthRoundTrip(t *testing.T) {
	isolateHome(t)

	if creds, err := LoadAuth(); err != nil || creds != nil {
		t.Fatalf("load auth before login = %v, %v; want nil, nil", creds, err)
	}

	in := &AuthCredentials{Token: "perch_secret", UserID: 7, Login: "casey", Name: "Casey", ServerURL: "http://localhost:8466"}
	if err := SaveAuth(in); err != nil {
		t.Fatalf("save auth: %v", err)
	}

	out, err := LoadAuth()
	if err != nil {
		t.Fatalf("load auth: %v", err)
	}
	if out.Token != in.Token || out.UserID != in.UserID || out.Login != in.Login {
		t.Errorf("loaded auth = %+v, want %+v", out, in)
	}

	// Session file must not be world readable.
	dir, _ := ConfigDir()
	info, err := os.Stat(filepath.Join(dir, "auth.json"))
	if err != nil {
		t.Fatalf("stat auth.json: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("auth.json perms = %o, want 0600", perm)
	}

	if err := ClearAuth(); err != nil {
		t.Fatalf("clear auth: %v", err)
	}
	if creds, _ := LoadAuth(); creds != nil {
		t.Error("auth still present after clear")
	}
	if err := ClearAuth(); err != nil {
		t.Errorf("second clear errored: %v", err)
	}
}

func TestTokenEnvOverridesAuth(t *testing.T) {
	isolateHome(t)
	if err := SaveAuth(&AuthCredentials{Token: "perch_file"}); err != nil {
		t.Fatalf("save auth: %v", err)
	}
	t.Setenv("PERCH_TOKEN", "perch_env")
	if got := Token(); got != "perch_env" {
		t.Errorf("token = %q, want env value", got)
	}
}

func TestPageSizeDefault(t *testing.T) {
	isolateHome(t)
	if got := PageSize(); got != 10 {
		t.Errorf("page size = %d, want 10", got)
	}
}

func TestPageSizeInvalidEnvFallsThrough(t *testing.T) {
	isolateHome(t)
	writeTestConfig(t, &Config{PageSize: 25})
	t.Setenv("PERCH_PAGE_SIZE", "not-a-number")
	if got := PageSize(); got != 25 {
		t.Errorf("page size = %d, want config value 25", got)
	}
}

func TestPollIntervalPrecedence(t *testing.T) {
	isolateHome(t)
	if got := PollInterval(); got != 2*time.Minute {
		t.Errorf("poll interval = %v, want default 2m", got)
	}

	writeTestConfig(t, &Config{PollInterval: "5m"})
	if got := PollInterval(); got != 5*time.Minute {
		t.Errorf("poll interval = %v, want config 5m", got)
	}

	t.Setenv("PERCH_POLL_INTERVAL", "30s")
	if got := PollInterval(); got != 30*time.Second {
		t.Errorf("poll interval = %v, want env 30s", got)
	}
}

func TestDataDirPrecedence(t *testing.T) {
	home := isolateHome(t)

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("data dir: %v", err)
	}
	if want := filepath.Join(home, ".local", "share", "perch"); dir != want {
		t.Errorf("data dir = %q, want %q", dir, want)
	}

	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	if dir, _ := DataDir(); dir != filepath.Join("/tmp/xdg", "perch") {
		t.Errorf("data dir = %q, want XDG location", dir)
	}

	t.Setenv("PERCH_DATA_DIR", "/tmp/perch-data")
	if dir, _ := DataDir(); dir != "/tmp/perch-data" {
		t.Errorf("data dir = %q, want env value", dir)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	isolateHome(t)
	in := &Config{ServerURL: "https://feed.example.net", PageSize: 20, PollInterval: "90s"}
	if err := Save(in); err != nil {
		t.Fatalf("save config: %v", err)
	}
	out, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if out.ServerURL != in.ServerURL || out.PageSize != in.PageSize || out.PollInterval != in.PollInterval {
		t.Errorf("loaded config = %+v, want %+v", out, in)
	}
}

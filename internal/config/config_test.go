package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/helpmebuyapp/helpmebuy/internal/task"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := load("", dir)
	if err != nil {
		t.Fatalf("load() failed: %v", err)
	}

	if cfg.File != "" {
		t.Errorf("File = %q, want none", cfg.File)
	}
	if want := filepath.Join(dir, "hmb.db"); cfg.DB.Path != want {
		t.Errorf("DB.Path = %q, want %q", cfg.DB.Path, want)
	}
	if cfg.Sync.Interval != 5*time.Minute || cfg.Sync.Debounce != 2*time.Second {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.Tasks.Deadline != task.DefaultDeadline || cfg.Tasks.MaxInFlight != task.DefaultMaxInFlight {
		t.Errorf("Tasks = %+v", cfg.Tasks)
	}
	if cfg.Dashboard.Port != 8080 || cfg.Offline {
		t.Errorf("Dashboard = %+v, Offline = %v", cfg.Dashboard, cfg.Offline)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")

	content := `
offline = true

[db]
path = "/tmp/elsewhere.db"

[sync]
interval = "30s"
debounce = "500ms"

[tasks]
max_inflight = 4
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("HMB_SYNC_INTERVAL", "1m")
	t.Setenv("HMB_DASHBOARD_PORT", "9090")

	cfg, err := load(path, dir)
	if err != nil {
		t.Fatalf("load() failed: %v", err)
	}

	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
	if !cfg.Offline || cfg.DB.Path != "/tmp/elsewhere.db" {
		t.Errorf("file values not applied: offline=%v db=%q", cfg.Offline, cfg.DB.Path)
	}
	if cfg.Sync.Interval != time.Minute {
		t.Errorf("Sync.Interval = %v, want env override 1m", cfg.Sync.Interval)
	}
	if cfg.Sync.Debounce != 500*time.Millisecond {
		t.Errorf("Sync.Debounce = %v, want 500ms", cfg.Sync.Debounce)
	}
	if cfg.Tasks.MaxInFlight != 4 {
		t.Errorf("Tasks.MaxInFlight = %d, want 4", cfg.Tasks.MaxInFlight)
	}
	if cfg.Dashboard.Port != 9090 {
		t.Errorf("Dashboard.Port = %d, want 9090", cfg.Dashboard.Port)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "explicit missing file", path: filepath.Join(dir, "missing.toml")},
		{name: "malformed toml", path: write("bad.toml", "[db\npath = ")},
		{name: "zero inflight", path: write("zero.toml", "[tasks]\nmax_inflight = 0\n")},
		{name: "negative debounce", path: write("neg.toml", "[sync]\ndebounce = \"-1s\"\n")},
		{name: "port out of range", path: write("port.toml", "[dashboard]\nport = 70000\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := load(tt.path, dir); err == nil {
				t.Error("load() succeeded, want error")
			}
		})
	}
}

func TestRemoteFromEnv(t *testing.T) {
	t.Setenv("HMB_DDB_TABLE", "StagingLists")
	t.Setenv("AWS_ENDPOINT", "http://dynamo.local:8000")
	t.Setenv("AWS_DEFAULT_REGION", "eu-west-1")
	t.Setenv("HMB_REMOTE_TIMEOUT", "3s")

	rc, err := RemoteFromEnv()
	if err != nil {
		t.Fatalf("RemoteFromEnv() failed: %v", err)
	}
	if rc.Table != "StagingLists" || rc.Endpoint != "http://dynamo.local:8000" || rc.Region != "eu-west-1" {
		t.Errorf("RemoteFromEnv() = %+v", rc)
	}
	if rc.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", rc.Timeout)
	}
}

func TestRemoteFromEnv_BadTimeout(t *testing.T) {
	t.Setenv("HMB_REMOTE_TIMEOUT", "soon")
	if _, err := RemoteFromEnv(); err == nil {
		t.Error("RemoteFromEnv() succeeded with an invalid timeout")
	}
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	if err := writeDefault(path, dir, false); err != nil {
		t.Fatalf("writeDefault() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	for _, want := range []string{"[db]", "[sync]", `interval = "5m0s"`, "max_inflight = 16"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("config file missing %q:\n%s", want, data)
		}
	}

	// The written file loads back to the defaults.
	cfg, err := load(path, dir)
	if err != nil {
		t.Fatalf("load() of written defaults failed: %v", err)
	}
	want := defaultIn(dir)
	if cfg.DB != want.DB || cfg.Sync != want.Sync || cfg.Tasks != want.Tasks || cfg.Dashboard != want.Dashboard {
		t.Errorf("reloaded config = %+v, want %+v", cfg, want)
	}

	if err := writeDefault(path, dir, false); !errors.Is(err, ErrExists) {
		t.Errorf("second writeDefault() error = %v, want ErrExists", err)
	}
	if err := writeDefault(path, dir, true); err != nil {
		t.Errorf("forced writeDefault() failed: %v", err)
	}
}

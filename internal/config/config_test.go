package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(envProjectsDir, "")
	t.Setenv(envDBPath, "")
	t.Setenv(envTopicsDir, "")
	os.Unsetenv(envProjectsDir)
	os.Unsetenv(envDBPath)
	os.Unsetenv(envTopicsDir)
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := setHome(t)

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ProjectsDir != filepath.Join(home, ".claude", "projects") {
		t.Errorf("ProjectsDir = %q", cfg.ProjectsDir)
	}
	if cfg.DBPath != filepath.Join(home, ".sessionidx", "sessions.db") {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
}

func TestLoadConfigFile(t *testing.T) {
	home := setHome(t)
	dir := filepath.Join(home, ".sessionidx")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `
projects_dir = "~/transcripts"
workers = 8
clients = ["alpha", "beta"]

[project_names]
"-Users-me-x" = "Project X"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ProjectsDir != filepath.Join(home, "transcripts") {
		t.Errorf("ProjectsDir = %q, tilde should expand", cfg.ProjectsDir)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d", cfg.Workers)
	}
	if len(cfg.Clients) != 2 {
		t.Errorf("Clients = %v", cfg.Clients)
	}
	if cfg.ProjectNames["-Users-me-x"] != "Project X" {
		t.Errorf("ProjectNames = %v", cfg.ProjectNames)
	}
}

func TestLoadPrecedence(t *testing.T) {
	home := setHome(t)
	dir := filepath.Join(home, ".sessionidx")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte(`db_path = "/from/file.db"`), 0o644); err != nil {
		t.Fatal(err)
	}

	// env beats file
	t.Setenv(envDBPath, "/from/env.db")
	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/from/env.db" {
		t.Errorf("DBPath = %q, env should beat file", cfg.DBPath)
	}

	// explicit override beats env
	cfg, err = Load(Overrides{DBPath: "/from/flag.db"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/from/flag.db" {
		t.Errorf("DBPath = %q, override should beat env", cfg.DBPath)
	}
}

func TestProjectName(t *testing.T) {
	cfg := Config{ProjectNames: map[string]string{"-Users-me-special": "Special"}}

	tests := []struct{ dir, want string }{
		{"-Users-me-special", "Special"},
		{"-Users-lee-CC-LFI", "CC LFI"},
		{"-tmp", "tmp"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cfg.ProjectName(tt.dir); got != tt.want {
			t.Errorf("ProjectName(%q) = %q, want %q", tt.dir, got, tt.want)
		}
	}
}

func TestWorkersFloor(t *testing.T) {
	home := setHome(t)
	dir := filepath.Join(home, ".sessionidx")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte(`workers = -3`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 1 {
		t.Errorf("Workers = %d, want floor of 1", cfg.Workers)
	}
}

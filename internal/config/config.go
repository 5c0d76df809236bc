package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is resolved once at startup and passed by value everywhere.
// Resolution precedence: explicit override > environment > config file > default.
type Config struct {
	ProjectsDir  string            `toml:"projects_dir"`
	DBPath       string            `toml:"db_path"`
	TopicsDir    string            `toml:"topics_dir"`
	StrictHash   bool              `toml:"strict_hash"`
	Workers      int               `toml:"workers"`
	Clients      []string          `toml:"clients"`
	ProjectNames map[string]string `toml:"project_names"`
}

// Overrides carries explicit values (typically CLI flags). Empty fields
// fall through to the next resolution layer.
type Overrides struct {
	ProjectsDir string
	DBPath      string
	TopicsDir   string
}

const (
	envProjectsDir = "SESSIONS_PROJECTS_DIR"
	envDBPath      = "SESSIONS_DB_PATH"
	envTopicsDir   = "SESSIONS_TOPICS_DIR"
)

func Load(ov Overrides) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ProjectsDir: filepath.Join(home, ".claude", "projects"),
		DBPath:      filepath.Join(home, ".sessionidx", "sessions.db"),
		TopicsDir:   filepath.Join(home, ".claude", "session-topics"),
		Workers:     4,
	}

	cfgPath := filepath.Join(home, ".sessionidx", "config.toml")
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	if v := os.Getenv(envProjectsDir); v != "" {
		cfg.ProjectsDir = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envTopicsDir); v != "" {
		cfg.TopicsDir = v
	}

	if ov.ProjectsDir != "" {
		cfg.ProjectsDir = ov.ProjectsDir
	}
	if ov.DBPath != "" {
		cfg.DBPath = ov.DBPath
	}
	if ov.TopicsDir != "" {
		cfg.TopicsDir = ov.TopicsDir
	}

	cfg.ProjectsDir = expandHome(cfg.ProjectsDir, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.TopicsDir = expandHome(cfg.TopicsDir, home)

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return cfg, nil
}

// ProjectName maps an encoded project directory name to a friendly label.
// Configured mappings win; otherwise the last one or two path segments of
// the encoded name ("-Users-lee-CC-LFI" -> "CC LFI") are used.
func (c Config) ProjectName(dir string) string {
	if name, ok := c.ProjectNames[dir]; ok {
		return name
	}
	var parts []string
	for _, p := range strings.Split(dir, "-") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	switch len(parts) {
	case 0:
		return dir
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[len(parts)-2:], " ")
	}
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Package scan discovers session transcript files under the projects root.
package scan

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo identifies one source transcript: sessions are one file per
// session ID, grouped under per-project directories.
type FileInfo struct {
	Path      string
	Project   string
	SessionID string
	Mtime     time.Time
	Size      int64
}

// Root lists every session file under the projects root. Unreadable
// directories are skipped rather than failing the walk; a missing root
// yields an empty list.
func Root(root string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if filepath.Base(path) == "subagents" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".jsonl" {
			return nil
		}
		if strings.Contains(filepath.Base(path), "sessions-index") {
			return nil
		}
		files = append(files, fileInfo(path, info))
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return files, err
}

// FindSession locates a session file by ID across all project directories.
func FindSession(root, sessionID string) (FileInfo, bool) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return FileInfo{}, false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(root, e.Name(), sessionID+".jsonl")
		if info, err := os.Stat(candidate); err == nil {
			return fileInfo(candidate, info), true
		}
	}
	return FileInfo{}, false
}

// Stat refreshes one path into a FileInfo, with ok=false when the file is
// gone.
func Stat(path string) (FileInfo, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, false
	}
	return fileInfo(path, info), true
}

func fileInfo(path string, info os.FileInfo) FileInfo {
	return FileInfo{
		Path:      path,
		Project:   filepath.Base(filepath.Dir(path)),
		SessionID: strings.TrimSuffix(filepath.Base(path), ".jsonl"),
		Mtime:     info.ModTime(),
		Size:      info.Size(),
	}
}

// Package syncer diffs rendered target files against disk and applies the
// result: classification, scoped backups, conflict handling, and per-target
// sync state.
package syncer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// SyncState records what the last successful apply wrote for one target:
// a content hash per relative path. Classification uses it to tell "we
// wrote this" apart from "someone else changed this".
type SyncState struct {
	Target    model.Target      `json:"target"`
	Run       string            `json:"run"`
	UpdatedAt time.Time         `json:"updated_at"`
	Entries   map[string]string `json:"entries"`
}

// NewSyncState returns an empty state for the target.
func NewSyncState(target model.Target) *SyncState {
	return &SyncState{Target: target, Entries: map[string]string{}}
}

// stateFile returns the state document path for a target.
func stateFile(dir string, target model.Target) string {
	return filepath.Join(dir, fmt.Sprintf("state-%s.json", target))
}

// LoadState reads the recorded state for a target. A missing document
// means nothing was ever synced and yields an empty state. A document
// that exists but cannot be decoded is a ConfigError: the diff basis is
// untrustworthy, so the caller must abort the target before mutating
// anything.
func LoadState(dir string, target model.Target) (*SyncState, error) {
	file := stateFile(dir, target)
	// #nosec G304 - path is derived from the configured state directory
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return NewSyncState(target), nil
		}
		return nil, err
	}

	state := NewSyncState(target)
	if err := json.Unmarshal(data, state); err != nil {
		return nil, syncerr.NewConfig(file, "sync state is unreadable (%v); restore it from a backup or delete it to re-baseline", err)
	}
	if state.Entries == nil {
		state.Entries = map[string]string{}
	}
	return state, nil
}

// SaveState writes the state document for a target.
func SaveState(dir string, state *SyncState) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	// #nosec G306 - state documents hold no secrets
	return os.WriteFile(stateFile(dir, state.Target), data, 0o644)
}

// hashBytes returns the hex sha256 of content.
func hashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// hashFile returns the hex sha256 of a file's content, or "" if the file
// does not exist.
func hashFile(path string) (string, error) {
	// #nosec G304 - path is inside a configured target root
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return hashBytes(data), nil
}

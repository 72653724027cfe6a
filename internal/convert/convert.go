// Package convert projects canonical records into target-platform file
// trees and parses them back. Every converter is a pure function of its
// inputs: identical canonical records always yield byte-identical output,
// with no timestamps or environment leaking into generated files.
package convert

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agentsync/agentsync/internal/model"
)

// File is one generated output file, path relative to the target root.
type File struct {
	// Path is slash-separated and relative to the target root.
	Path string
	// Body is the exact content to place on disk. Empty when CopyFrom is
	// set.
	Body []byte
	// CopyFrom is an absolute source path for opaque blobs copied verbatim
	// (skill resources). Converters stay pure; the sync engine performs
	// the copy.
	CopyFrom string
	// Category and Name identify the canonical record (or aggregate) the
	// file derives from, for reporting and conflict attribution.
	Category model.Category
	Name     string
}

// Converter projects a filtered canonical set into a target's file tree.
// Implementations must be deterministic and must not read the clock.
type Converter interface {
	// Target identifies the platform this converter serves.
	Target() model.Target

	// Render projects the whole set into target files. Per-record
	// conversion failures are returned as issues; they never abort the
	// remaining records.
	Render(set *model.Set) ([]File, []Issue)
}

// Issue records a canonical record that could not be projected.
type Issue struct {
	Category model.Category
	Name     string
	Err      error
}

var (
	registryMu sync.RWMutex
	registry   = map[model.Target]Converter{}
)

// Register installs a converter for its target. Later registrations for
// the same target replace earlier ones.
func Register(c Converter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Target()] = c
}

// For returns the converter registered for the target.
func For(t model.Target) (Converter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("no converter registered for target %q", t)
	}
	return c, nil
}

// Registered returns the targets with an installed converter, sorted.
func Registered() []model.Target {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]model.Target, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func init() {
	Register(NewGemini())
	Register(NewAntigravity())
	Register(NewCodex())
}

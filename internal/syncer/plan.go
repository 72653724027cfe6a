package syncer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/agentsync/agentsync/internal/convert"
	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// DiskState classifies what is on disk relative to the last recorded sync.
type DiskState string

const (
	// StateAbsent means no file exists at the path.
	StateAbsent DiskState = "absent"
	// StateMatching means the on-disk content equals the desired content.
	StateMatching DiskState = "present-matching"
	// StateOwned means the on-disk content differs from desired but equals
	// what the last apply wrote, so overwriting loses nothing.
	StateOwned DiskState = "present-owned"
	// StateDivergent means the on-disk content was changed by something
	// else since the last apply. Overwriting requires force.
	StateDivergent DiskState = "present-divergent"
)

// Action is the pending operation for one plan entry.
type Action string

const (
	ActionNone   Action = "none"
	ActionCreate Action = "pending-create"
	ActionUpdate Action = "pending-update"
	ActionDelete Action = "pending-delete"
)

// Entry is one (file, target) cell of a sync plan.
type Entry struct {
	Target   model.Target
	Path     string // relative, slash-separated
	Abs      string // absolute on-disk path
	Category model.Category
	Name     string
	State    DiskState
	Action   Action
	Diff     string // unified diff for updates of text content

	desired  []byte
	copyFrom string
}

// Plan is the classified work for one target.
type Plan struct {
	Target  model.Target
	Root    string
	Entries []Entry
	// Issues are conversion failures carried through for the report.
	Issues []convert.Issue

	// vanished holds recorded paths that are gone from disk and no longer
	// rendered; apply drops them from the state without an entry.
	vanished []string
}

// Pending reports how many entries require a mutation.
func (p *Plan) Pending() int {
	n := 0
	for _, e := range p.Entries {
		if e.Action != ActionNone {
			n++
		}
	}
	return n
}

// Conflicts returns the divergent entries that a plain apply will skip.
func (p *Plan) Conflicts() []Entry {
	var out []Entry
	for _, e := range p.Entries {
		if e.State == StateDivergent {
			out = append(out, e)
		}
	}
	return out
}

// buildPlan classifies rendered files against the target root and the
// recorded sync state. It reads disk but never writes.
func buildPlan(target model.Target, root string, files []convert.File, issues []convert.Issue, state *SyncState) (*Plan, error) {
	plan := &Plan{Target: target, Root: root, Issues: issues}

	desired := map[string]bool{}
	for _, f := range files {
		desired[f.Path] = true

		body := f.Body
		if f.CopyFrom != "" {
			// #nosec G304 - copy sources come from the canonical tree
			data, err := os.ReadFile(f.CopyFrom)
			if err != nil {
				return nil, syncerr.NewIO(f.CopyFrom, "read", err)
			}
			body = data
		}

		entry := Entry{
			Target:   target,
			Path:     f.Path,
			Abs:      filepath.Join(root, filepath.FromSlash(f.Path)),
			Category: f.Category,
			Name:     f.Name,
			desired:  body,
			copyFrom: f.CopyFrom,
		}

		diskHash, err := hashFile(entry.Abs)
		if err != nil {
			return nil, syncerr.NewIO(entry.Abs, "hash", err)
		}
		wantHash := hashBytes(body)
		lastHash := state.Entries[f.Path]

		switch {
		case diskHash == "":
			entry.State = StateAbsent
			entry.Action = ActionCreate
		case diskHash == wantHash:
			entry.State = StateMatching
			entry.Action = ActionNone
		case diskHash == lastHash:
			entry.State = StateOwned
			entry.Action = ActionUpdate
			entry.Diff = unifiedDiff(entry.Abs, entry.desired)
		default:
			entry.State = StateDivergent
			entry.Action = ActionUpdate
			entry.Diff = unifiedDiff(entry.Abs, entry.desired)
		}

		plan.Entries = append(plan.Entries, entry)
	}

	// Paths we wrote before but no longer render are deletions. A path
	// someone else edited since is a divergent delete.
	var stale []string
	for rel := range state.Entries {
		if !desired[rel] {
			stale = append(stale, rel)
		}
	}
	sort.Strings(stale)
	for _, rel := range stale {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		diskHash, err := hashFile(abs)
		if err != nil {
			return nil, syncerr.NewIO(abs, "hash", err)
		}
		if diskHash == "" {
			// Already gone; apply drops the record silently.
			plan.vanished = append(plan.vanished, rel)
			continue
		}
		entry := Entry{
			Target: target,
			Path:   rel,
			Abs:    abs,
			Action: ActionDelete,
			State:  StateOwned,
		}
		if diskHash != state.Entries[rel] {
			entry.State = StateDivergent
		}
		plan.Entries = append(plan.Entries, entry)
	}

	sort.Slice(plan.Entries, func(i, j int) bool { return plan.Entries[i].Path < plan.Entries[j].Path })
	return plan, nil
}

// unifiedDiff renders a unified diff between the on-disk file and the
// desired content. Binary content yields a short placeholder.
func unifiedDiff(abs string, desired []byte) string {
	// #nosec G304 - abs is inside a configured target root
	current, err := os.ReadFile(abs)
	if err != nil {
		current = nil
	}
	if !utf8.Valid(current) || !utf8.Valid(desired) {
		return "(binary content differs)"
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current)),
		B:        difflib.SplitLines(string(desired)),
		FromFile: "on-disk",
		ToFile:   "rendered",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return strings.TrimRight(diff, "\n")
}

package syncer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/agentsync/agentsync/internal/config"
	"github.com/agentsync/agentsync/internal/convert"
	"github.com/agentsync/agentsync/internal/logging"
	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// Options tune a single engine run.
type Options struct {
	// DryRun plans and reports without touching disk.
	DryRun bool
	// Force overwrites divergent entries after backing them up.
	Force bool
}

// EntryResult is the outcome for one plan entry after apply.
type EntryResult struct {
	Entry   Entry
	Outcome Outcome
	Err     error
}

// Outcome is the terminal state of an entry.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomePlanned  Outcome = "planned"
	OutcomeSkipped  Outcome = "skipped-conflict"
	OutcomeFailed   Outcome = "failed"
	OutcomeDeadline Outcome = "deadline"
)

// TargetResult aggregates one target's run.
type TargetResult struct {
	Target   model.Target
	BackupID string
	Entries  []EntryResult
	Issues   []convert.Issue
	// Err is a run-level failure for this target (planning, state I/O).
	Err error
}

// Engine orchestrates plan and apply across targets. The canonical set is
// read-only throughout; each target owns a disjoint subtree so targets can
// run in parallel.
type Engine struct {
	cfg     *config.Config
	backups *BackupManager
}

// NewEngine creates an engine over the given configuration.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{
		cfg:     cfg,
		backups: NewBackupManager(cfg.Backup.Dir, cfg.Backup.Keep),
	}
}

// Backups exposes the engine's backup manager for restore and listing.
func (e *Engine) Backups() *BackupManager { return e.backups }

// Plan classifies every target without mutating anything.
func (e *Engine) Plan(ctx context.Context, set *model.Set, targets []model.Target) ([]*Plan, error) {
	plans := make([]*Plan, len(targets))

	p := e.newPool(ctx)
	for i, target := range targets {
		p.Go(func(ctx context.Context) error {
			plan, err := e.planTarget(target, set)
			if err != nil {
				return err
			}
			plans[i] = plan
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

// planTarget renders and classifies one target.
func (e *Engine) planTarget(target model.Target, set *model.Set) (*Plan, error) {
	converter, err := convert.For(target)
	if err != nil {
		return nil, err
	}
	root, err := e.cfg.TargetRoot(target)
	if err != nil {
		return nil, err
	}
	state, err := LoadState(e.cfg.Sync.StateDir, target)
	if err != nil {
		return nil, err
	}

	files, issues := converter.Render(set)
	plan, err := buildPlan(target, root, files, issues, state)
	if err != nil {
		return nil, err
	}

	logging.Debug("planned target",
		logging.Target(string(target)),
		logging.Count(plan.Pending()),
	)
	return plan, nil
}

// Run plans and, unless dry-run, applies every target. Target results come
// back in input order; a failing target never aborts its siblings.
func (e *Engine) Run(ctx context.Context, set *model.Set, targets []model.Target, opts Options) []TargetResult {
	results := make([]TargetResult, len(targets))

	p := e.newPool(ctx)
	for i, target := range targets {
		p.Go(func(ctx context.Context) error {
			results[i] = e.runTarget(ctx, target, set, opts)
			return nil
		})
	}
	// Per-target errors live in the results; the pool only propagates
	// context cancellation, which the entry loop already honors.
	_ = p.Wait()

	return results
}

// newPool builds the target pool honoring the parallelism setting.
func (e *Engine) newPool(ctx context.Context) *pool.ContextPool {
	p := pool.New().WithContext(ctx)
	if !e.cfg.Sync.Parallel {
		p = p.WithMaxGoroutines(1)
	}
	return p
}

// runTarget executes one target end to end.
func (e *Engine) runTarget(ctx context.Context, target model.Target, set *model.Set, opts Options) TargetResult {
	result := TargetResult{Target: target}

	plan, err := e.planTarget(target, set)
	if err != nil {
		result.Err = err
		return result
	}
	result.Issues = plan.Issues

	if opts.DryRun {
		for _, entry := range plan.Entries {
			outcome := OutcomePlanned
			if entry.State == StateDivergent && !opts.Force {
				outcome = OutcomeSkipped
			}
			if entry.Action == ActionNone {
				continue
			}
			result.Entries = append(result.Entries, EntryResult{Entry: entry, Outcome: outcome})
		}
		return result
	}

	applied, backupID, err := e.apply(ctx, plan, opts)
	result.Entries = applied
	result.BackupID = backupID
	result.Err = err
	return result
}

// apply executes a plan: backup, write, record. Per-entry failures keep
// the batch going; an expired deadline stops new entries while letting the
// current one finish.
func (e *Engine) apply(ctx context.Context, plan *Plan, opts Options) ([]EntryResult, string, error) {
	// Start from what the old state knew so untouched entries survive. An
	// unreadable state document aborts before any mutation.
	old, err := LoadState(e.cfg.Sync.StateDir, plan.Target)
	if err != nil {
		return nil, "", err
	}

	run, err := e.backups.Begin(plan.Target)
	if err != nil {
		return nil, "", err
	}

	state := NewSyncState(plan.Target)
	state.Run = run.ID()
	for rel, h := range old.Entries {
		state.Entries[rel] = h
	}
	// Recorded paths that vanished from disk and are no longer rendered
	// have nothing left to delete; drop them so they do not linger.
	for _, rel := range plan.vanished {
		delete(state.Entries, rel)
	}

	var results []EntryResult
	deadlineHit := false

	for _, entry := range plan.Entries {
		if entry.Action == ActionNone {
			// Refresh the hash so later runs keep recognizing the file.
			state.Entries[entry.Path] = hashBytes(entry.desired)
			continue
		}

		if deadlineHit || ctx.Err() != nil {
			deadlineHit = true
			results = append(results, EntryResult{Entry: entry, Outcome: OutcomeDeadline})
			continue
		}

		if entry.State == StateDivergent && !opts.Force {
			results = append(results, EntryResult{
				Entry:   entry,
				Outcome: OutcomeSkipped,
				Err:     syncerr.NewConflict(entry.Name, entry.Abs),
			})
			logging.Warn("divergent entry skipped",
				logging.Target(string(plan.Target)),
				logging.Path(entry.Path),
			)
			continue
		}

		if err := e.applyEntry(run, entry, state); err != nil {
			results = append(results, EntryResult{Entry: entry, Outcome: OutcomeFailed, Err: err})
			logging.Error("entry failed",
				logging.Target(string(plan.Target)),
				logging.Path(entry.Path),
				logging.Err(err),
			)
			continue
		}
		results = append(results, EntryResult{Entry: entry, Outcome: OutcomeApplied})
	}

	if err := run.Commit(); err != nil {
		return results, run.ID(), err
	}
	if err := e.backups.Prune(); err != nil {
		logging.Warn("backup pruning failed", logging.Err(err))
	}

	state.UpdatedAt = time.Now().UTC()
	if err := SaveState(e.cfg.Sync.StateDir, state); err != nil {
		return results, run.ID(), syncerr.NewIO(e.cfg.Sync.StateDir, "write state", err)
	}

	backupID := run.ID()
	if run.Empty() {
		backupID = ""
	}

	logging.Info("target applied",
		logging.Target(string(plan.Target)),
		logging.Count(len(results)),
		logging.Run(state.Run),
	)
	return results, backupID, nil
}

// applyEntry performs one mutation, backing up whatever it overwrites or
// deletes first.
func (e *Engine) applyEntry(run *BackupRun, entry Entry, state *SyncState) error {
	if entry.State != StateAbsent {
		if err := run.Save(entry.Path, entry.Abs); err != nil {
			return err
		}
	}

	switch entry.Action {
	case ActionDelete:
		if err := os.Remove(entry.Abs); err != nil && !os.IsNotExist(err) {
			return syncerr.NewIO(entry.Abs, "remove", err)
		}
		delete(state.Entries, entry.Path)
		removeEmptyParents(entry.Abs)
		return nil

	case ActionCreate, ActionUpdate:
		if err := os.MkdirAll(filepath.Dir(entry.Abs), 0o750); err != nil {
			return syncerr.NewIO(entry.Abs, "mkdir", err)
		}
		if entry.copyFrom != "" {
			if err := copyFile(entry.copyFrom, entry.Abs); err != nil {
				return err
			}
		} else {
			// #nosec G306 - generated configuration is user-readable
			if err := os.WriteFile(entry.Abs, entry.desired, 0o644); err != nil {
				return syncerr.NewIO(entry.Abs, "write", err)
			}
		}
		state.Entries[entry.Path] = hashBytes(entry.desired)
		return nil

	default:
		return nil
	}
}

// removeEmptyParents prunes directories a deletion left empty. Stops at
// the first non-empty ancestor.
func removeEmptyParents(abs string) {
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
	}
}

// SortTargets returns a stable ordering for display.
func SortTargets(targets []model.Target) []model.Target {
	out := make([]model.Target, len(targets))
	copy(out, targets)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

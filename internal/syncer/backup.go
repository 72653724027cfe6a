package syncer

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/agentsync/agentsync/internal/logging"
	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// BackupManager takes scoped backups before destructive writes and restores
// them on demand. Each run gets a ULID-stamped directory mirroring the
// original relative paths, plus a manifest mapping them back to their
// absolute origins.
type BackupManager struct {
	dir  string
	keep int
}

// NewBackupManager creates a manager rooted at dir, retaining keep runs
// per target (0 keeps everything).
func NewBackupManager(dir string, keep int) *BackupManager {
	return &BackupManager{dir: dir, keep: keep}
}

// backupManifest records where each backed-up file came from.
type backupManifest struct {
	ID        string            `json:"id"`
	Target    model.Target      `json:"target"`
	CreatedAt time.Time         `json:"created_at"`
	Files     map[string]string `json:"files"` // relative path -> absolute origin
}

// BackupRun is one in-progress backup directory.
type BackupRun struct {
	dir      string
	manifest backupManifest
}

// ID returns the run's ULID.
func (r *BackupRun) ID() string { return r.manifest.ID }

// Begin opens a new backup run for a target.
func (b *BackupManager) Begin(target model.Target) (*BackupRun, error) {
	id := ulid.Make().String()
	run := &BackupRun{
		dir: filepath.Join(b.dir, string(target), id),
		manifest: backupManifest{
			ID:        id,
			Target:    target,
			CreatedAt: time.Now().UTC(),
			Files:     map[string]string{},
		},
	}
	if err := os.MkdirAll(run.dir, 0o750); err != nil {
		return nil, syncerr.NewIO(run.dir, "mkdir", err)
	}
	return run, nil
}

// Save copies the file at origin into the run, keyed by its relative path.
// A missing origin is a no-op: only existing content needs preserving.
func (r *BackupRun) Save(rel, origin string) error {
	// #nosec G304 - origin is inside a configured target root
	src, err := os.Open(origin)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return syncerr.NewIO(origin, "open", err)
	}
	defer src.Close()

	dest := filepath.Join(r.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return syncerr.NewIO(dest, "mkdir", err)
	}
	// #nosec G304 - dest is inside the backup directory
	out, err := os.Create(dest)
	if err != nil {
		return syncerr.NewIO(dest, "create", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return syncerr.NewIO(dest, "copy", err)
	}
	r.manifest.Files[rel] = origin
	return nil
}

// Empty reports whether the run saved nothing.
func (r *BackupRun) Empty() bool { return len(r.manifest.Files) == 0 }

// Commit finalizes the run by writing its manifest. Empty runs are removed
// instead, so dry conflicts never litter the backup directory.
func (r *BackupRun) Commit() error {
	if r.Empty() {
		return os.RemoveAll(r.dir)
	}
	data, err := json.MarshalIndent(r.manifest, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	// #nosec G306 - manifests are plain metadata
	return os.WriteFile(filepath.Join(r.dir, "manifest.json"), data, 0o644)
}

// BackupInfo describes one committed backup run.
type BackupInfo struct {
	ID        string
	Target    model.Target
	CreatedAt time.Time
	Files     int
}

// List returns committed backups, newest first.
func (b *BackupManager) List() ([]BackupInfo, error) {
	var out []BackupInfo
	targets, err := os.ReadDir(b.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	for _, tdir := range targets {
		if !tdir.IsDir() {
			continue
		}
		runs, err := os.ReadDir(filepath.Join(b.dir, tdir.Name()))
		if err != nil {
			continue
		}
		for _, run := range runs {
			m, err := b.readManifest(tdir.Name(), run.Name())
			if err != nil {
				continue
			}
			out = append(out, BackupInfo{
				ID:        m.ID,
				Target:    m.Target,
				CreatedAt: m.CreatedAt,
				Files:     len(m.Files),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// readManifest loads one run's manifest.
func (b *BackupManager) readManifest(target, id string) (*backupManifest, error) {
	// #nosec G304 - path is inside the backup directory
	data, err := os.ReadFile(filepath.Join(b.dir, target, id, "manifest.json"))
	if err != nil {
		return nil, err
	}
	var m backupManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Restore copies every file of the identified run back to its origin.
func (b *BackupManager) Restore(id string) error {
	targets, err := os.ReadDir(b.dir)
	if err != nil {
		return syncerr.NewIO(b.dir, "read", err)
	}

	for _, tdir := range targets {
		if !tdir.IsDir() {
			continue
		}
		m, err := b.readManifest(tdir.Name(), id)
		if err != nil {
			continue
		}

		for rel, origin := range m.Files {
			src := filepath.Join(b.dir, tdir.Name(), id, filepath.FromSlash(rel))
			if err := copyFile(src, origin); err != nil {
				return err
			}
			logging.Debug("restored file", logging.Path(origin), logging.Run(id))
		}
		logging.Info("backup restored",
			logging.Target(string(m.Target)),
			logging.Run(id),
			logging.Count(len(m.Files)),
		)
		return nil
	}
	return syncerr.NewIO(filepath.Join(b.dir, id), "restore", os.ErrNotExist)
}

// Prune removes the oldest runs beyond the retention limit, per target.
func (b *BackupManager) Prune() error {
	if b.keep <= 0 {
		return nil
	}
	targets, err := os.ReadDir(b.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, tdir := range targets {
		if !tdir.IsDir() {
			continue
		}
		runs, err := os.ReadDir(filepath.Join(b.dir, tdir.Name()))
		if err != nil {
			continue
		}
		var ids []string
		for _, run := range runs {
			if run.IsDir() {
				ids = append(ids, run.Name())
			}
		}
		// ULIDs sort chronologically; newest last.
		sort.Strings(ids)
		for len(ids) > b.keep {
			victim := ids[0]
			ids = ids[1:]
			if err := os.RemoveAll(filepath.Join(b.dir, tdir.Name(), victim)); err != nil {
				return err
			}
			logging.Debug("pruned old backup", logging.Run(victim))
		}
	}
	return nil
}

// copyFile copies src to dest, creating parent directories.
func copyFile(src, dest string) error {
	// #nosec G304 - both ends are inside configured directories
	in, err := os.Open(src)
	if err != nil {
		return syncerr.NewIO(src, "open", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return syncerr.NewIO(dest, "mkdir", err)
	}
	// #nosec G304 - both ends are inside configured directories
	out, err := os.Create(dest)
	if err != nil {
		return syncerr.NewIO(dest, "create", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return syncerr.NewIO(dest, "copy", err)
	}
	return nil
}

package source

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// skillFrontmatter is the frontmatter shape of a SKILL.md file.
type skillFrontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// resourceDirs are the skill subdirectories carried along as resources.
var resourceDirs = []string{"scripts", "references", "assets"}

// loadSkills reads skills/<name>/SKILL.md plus resource trees.
func (l *Loader) loadSkills(dir string) ([]model.Skill, []Issue) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil
	}

	var skills []model.Skill
	var issues []Issue
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		skillDir := filepath.Join(dir, e.Name())
		skill, err := l.parseSkillDir(skillDir, e.Name())
		if err != nil {
			issues = append(issues, Issue{Category: model.CategorySkill, Path: skillDir, Err: err})
			continue
		}
		skills = append(skills, skill)
	}

	sortByName(skills, func(s model.Skill) string { return s.Name })
	return skills, issues
}

// parseSkillDir parses a single skill directory. The directory name is the
// skill identifier; frontmatter may restate it but must not contradict it.
func (l *Loader) parseSkillDir(dir, dirName string) (model.Skill, error) {
	manifest := filepath.Join(dir, "SKILL.md")
	// #nosec G304 - manifest path is derived from the configured root
	content, err := os.ReadFile(manifest)
	if err != nil {
		return model.Skill{}, syncerr.NewValidation(dirName, "missing SKILL.md: %v", err)
	}

	split := splitFrontmatter(content)
	var fm skillFrontmatter
	if split.Found {
		if err := parseFrontmatter(split.Frontmatter, &fm); err != nil {
			return model.Skill{}, syncerr.NewValidation(dirName, "%v", err)
		}
	}

	if fm.Name != "" && fm.Name != dirName {
		return model.Skill{}, syncerr.NewValidation(dirName, "frontmatter name %q contradicts directory name", fm.Name)
	}

	resources, err := collectResources(dir)
	if err != nil {
		return model.Skill{}, err
	}

	info, err := os.Stat(manifest)
	if err != nil {
		return model.Skill{}, err
	}

	skill := model.Skill{
		Name:        dirName,
		Description: fm.Description,
		Body:        normalizeBody(split.Body),
		Dir:         dir,
		Resources:   resources,
		ModifiedAt:  newestModTime(info.ModTime(), dir, resources),
	}

	if err := skill.Validate(); err != nil {
		return model.Skill{}, syncerr.NewValidation(dirName, "%v", err)
	}
	return skill, nil
}

// collectResources walks the known resource subdirectories and returns
// slash-separated paths relative to the skill directory, sorted.
func collectResources(skillDir string) ([]string, error) {
	var resources []string
	for _, sub := range resourceDirs {
		root := filepath.Join(skillDir, sub)
		if _, err := os.Stat(root); err != nil {
			continue
		}
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
				return nil
			}
			rel, err := filepath.Rel(skillDir, p)
			if err != nil {
				return err
			}
			resources = append(resources, filepath.ToSlash(rel))
			return nil
		})
		if err != nil {
			return nil, syncerr.NewIO(root, "walk", err)
		}
	}
	sort.Strings(resources)
	return resources, nil
}

// newestModTime returns the most recent modification time across the
// manifest and all resource files, so a touched script marks the skill
// as changed.
func newestModTime(base time.Time, dir string, resources []string) time.Time {
	newest := base
	for _, r := range resources {
		if info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(r))); err == nil {
			if info.ModTime().After(newest) {
				newest = info.ModTime()
			}
		}
	}
	return newest
}

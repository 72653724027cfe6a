// Package exclusion filters components against user-declared exclusion
// rules. Rules are read once at the start of a run and never mutated by the
// sync core; the CLI owns rule editing.
package exclusion

import (
	"os"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentsync/agentsync/internal/logging"
	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// Rule defines what to exclude from sync. Pattern supports the * and ?
// wildcards and matches case-insensitively against component names.
type Rule struct {
	ID        string         `yaml:"id"`
	Category  model.Category `yaml:"category"`
	Pattern   string         `yaml:"pattern"`
	Reason    string         `yaml:"reason,omitempty"`
	CreatedAt time.Time      `yaml:"created_at,omitempty"`
}

// Matches reports whether the rule applies to the named component.
func (r Rule) Matches(category model.Category, name string) bool {
	if !r.Category.Matches(category) {
		return false
	}
	ok, err := path.Match(strings.ToLower(r.Pattern), strings.ToLower(name))
	return err == nil && ok
}

// document is the on-disk shape of the exclusion rules file.
type document struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// Filter holds the loaded rule set for a run.
type Filter struct {
	rules []Rule
}

// New creates a filter over the given rules.
func New(rules []Rule) *Filter {
	return &Filter{rules: rules}
}

// DefaultRules returns the rules applied when no document exists: private,
// local, and personal components stay out of every target.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "default-private", Category: model.CategoryAll, Pattern: "*-private", Reason: "components ending with -private are excluded by default"},
		{ID: "default-local", Category: model.CategoryAll, Pattern: "*-local", Reason: "components ending with -local are excluded by default"},
		{ID: "default-secret", Category: model.CategorySkill, Pattern: "*-secret*", Reason: "skills containing 'secret' in the name are excluded"},
		{ID: "default-personal", Category: model.CategoryAgent, Pattern: "my-*", Reason: "agents starting with my- are personal"},
	}
}

// Load reads the exclusion document at file. A missing file yields the
// default rules; a malformed file is a ConfigError and aborts the run,
// since syncing with a wrong rule basis could leak excluded components.
func Load(file string) (*Filter, error) {
	// #nosec G304 - file comes from the run configuration
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Debug("no exclusion document, using defaults", logging.Path(file))
			return New(DefaultRules()), nil
		}
		return nil, syncerr.NewConfig(file, "cannot read exclusion rules: %v", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, syncerr.NewConfig(file, "malformed exclusion rules: %v", err)
	}

	for _, r := range doc.Rules {
		if r.Pattern == "" {
			return nil, syncerr.NewConfig(file, "rule %q has no pattern", r.ID)
		}
		if r.Category != model.CategoryAll && !r.Category.IsValid() {
			return nil, syncerr.NewConfig(file, "rule %q has unknown category %q", r.ID, r.Category)
		}
		if _, err := path.Match(strings.ToLower(r.Pattern), "probe"); err != nil {
			return nil, syncerr.NewConfig(file, "rule %q has malformed pattern %q", r.ID, r.Pattern)
		}
	}

	logging.Debug("loaded exclusion rules", logging.Path(file), logging.Count(len(doc.Rules)))
	return New(doc.Rules), nil
}

// Save writes rules to the given path. Used by the CLI rule editor only,
// never by the sync core.
func Save(file string, rules []Rule) error {
	doc := document{Version: "1.0", Rules: rules}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	// #nosec G306 - the rules document is user-editable
	return os.WriteFile(file, data, 0o644)
}

// Rules returns a copy of the loaded rules.
func (f *Filter) Rules() []Rule {
	out := make([]Rule, len(f.rules))
	copy(out, f.rules)
	return out
}

// Excluded reports whether the named component is excluded, and by which
// rule.
func (f *Filter) Excluded(category model.Category, name string) (Rule, bool) {
	for _, r := range f.rules {
		if r.Matches(category, name) {
			return r, true
		}
	}
	return Rule{}, false
}

// Split partitions names into included and excluded per the rule set.
func (f *Filter) Split(category model.Category, names []string) (included, excluded []string) {
	for _, name := range names {
		if _, hit := f.Excluded(category, name); hit {
			excluded = append(excluded, name)
		} else {
			included = append(included, name)
		}
	}
	return included, excluded
}

// Apply returns a copy of the canonical set with excluded components
// removed. The input set is never modified.
func (f *Filter) Apply(set *model.Set) (*model.Set, []Exclusion) {
	var dropped []Exclusion
	out := &model.Set{}

	for _, a := range set.Agents {
		if rule, hit := f.Excluded(model.CategoryAgent, a.Name); hit {
			dropped = append(dropped, Exclusion{Category: model.CategoryAgent, Name: a.Name, Rule: rule})
			continue
		}
		out.Agents = append(out.Agents, a)
	}
	for _, s := range set.Skills {
		if rule, hit := f.Excluded(model.CategorySkill, s.Name); hit {
			dropped = append(dropped, Exclusion{Category: model.CategorySkill, Name: s.Name, Rule: rule})
			continue
		}
		out.Skills = append(out.Skills, s)
	}
	for _, c := range set.Commands {
		if rule, hit := f.Excluded(model.CategoryCommand, c.Name); hit {
			dropped = append(dropped, Exclusion{Category: model.CategoryCommand, Name: c.Name, Rule: rule})
			continue
		}
		out.Commands = append(out.Commands, c)
	}
	for _, h := range set.Hooks {
		if rule, hit := f.Excluded(model.CategoryHook, h.Name()); hit {
			dropped = append(dropped, Exclusion{Category: model.CategoryHook, Name: h.Name(), Rule: rule})
			continue
		}
		out.Hooks = append(out.Hooks, h)
	}
	for _, p := range set.Plugins {
		if rule, hit := f.Excluded(model.CategoryPlugin, p.Name); hit {
			dropped = append(dropped, Exclusion{Category: model.CategoryPlugin, Name: p.Name, Rule: rule})
			continue
		}
		out.Plugins = append(out.Plugins, p)
	}
	for _, m := range set.Servers {
		if rule, hit := f.Excluded(model.CategoryMcp, m.Name); hit {
			dropped = append(dropped, Exclusion{Category: model.CategoryMcp, Name: m.Name, Rule: rule})
			continue
		}
		out.Servers = append(out.Servers, m)
	}

	return out, dropped
}

// Exclusion records a component dropped by a rule, for the run report.
type Exclusion struct {
	Category model.Category
	Name     string
	Rule     Rule
}

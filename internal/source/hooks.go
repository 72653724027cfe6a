package source

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// hooksDocument is the on-disk shape of hooks.yaml: a map from event name
// to matcher groups.
type hooksDocument struct {
	Hooks map[string][]hookGroup `yaml:"hooks"`
}

type hookGroup struct {
	Matcher string       `yaml:"matcher,omitempty"`
	Actions []hookAction `yaml:"actions"`
}

type hookAction struct {
	Command string `yaml:"command"`
	Timeout string `yaml:"timeout,omitempty"`
}

// parseTimeout parses the optional duration string of a hook action.
func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

// loadHooks reads hooks.yaml at the root of the canonical tree. A missing
// file simply means no hooks; a malformed file is one issue for the whole
// document since partial hook application is worse than none.
func (l *Loader) loadHooks() ([]model.Hook, []Issue) {
	file := filepath.Join(l.root, "hooks.yaml")
	// #nosec G304 - file path is derived from the configured root
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, nil
	}

	var doc hooksDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, []Issue{{
			Category: model.CategoryHook,
			Path:     file,
			Err:      syncerr.NewValidation("hooks", "malformed hooks document: %v", err),
		}}
	}

	var hooks []model.Hook
	var issues []Issue
	for event, groups := range doc.Hooks {
		for _, g := range groups {
			hook := model.Hook{
				Event:   model.HookEvent(event),
				Matcher: g.Matcher,
			}
			bad := false
			for _, a := range g.Actions {
				timeout, err := parseTimeout(a.Timeout)
				if err != nil {
					issues = append(issues, Issue{
						Category: model.CategoryHook,
						Path:     file,
						Err:      syncerr.NewValidation(hook.Name(), "invalid action timeout %q", a.Timeout),
					})
					bad = true
					break
				}
				hook.Actions = append(hook.Actions, model.HookAction{
					Command: a.Command,
					Timeout: timeout,
				})
			}
			if bad {
				continue
			}
			if err := hook.Validate(); err != nil {
				issues = append(issues, Issue{
					Category: model.CategoryHook,
					Path:     file,
					Err:      syncerr.NewValidation(hook.Name(), "%v", err),
				})
				continue
			}
			hooks = append(hooks, hook)
		}
	}

	sortByName(hooks, func(h model.Hook) string { return h.Name() })
	return hooks, issues
}

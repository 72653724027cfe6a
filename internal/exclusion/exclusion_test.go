package exclusion

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

func TestRuleMatches(t *testing.T) {
	tests := map[string]struct {
		rule     Rule
		category model.Category
		name     string
		want     bool
	}{
		"wildcard suffix match": {
			rule:     Rule{Category: model.CategoryAll, Pattern: "*-private"},
			category: model.CategoryAgent,
			name:     "db-credentials-private",
			want:     true,
		},
		"case insensitive": {
			rule:     Rule{Category: model.CategoryAll, Pattern: "*-PRIVATE"},
			category: model.CategorySkill,
			name:     "notes-private",
			want:     true,
		},
		"category mismatch": {
			rule:     Rule{Category: model.CategorySkill, Pattern: "*-secret*"},
			category: model.CategoryAgent,
			name:     "top-secret-agent",
			want:     false,
		},
		"question mark wildcard": {
			rule:     Rule{Category: model.CategoryAll, Pattern: "draft-?"},
			category: model.CategoryCommand,
			name:     "draft-1",
			want:     true,
		},
		"exact name": {
			rule:     Rule{Category: model.CategoryAgent, Pattern: "my-helper"},
			category: model.CategoryAgent,
			name:     "my-helper",
			want:     true,
		},
		"no match": {
			rule:     Rule{Category: model.CategoryAll, Pattern: "*-local"},
			category: model.CategoryAgent,
			name:     "api-designer",
			want:     false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.rule.Matches(tt.category, tt.name); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.category, tt.name, got, tt.want)
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(f.Rules()) != len(DefaultRules()) {
		t.Errorf("got %d rules, want %d defaults", len(f.Rules()), len(DefaultRules()))
	}

	if _, hit := f.Excluded(model.CategoryAgent, "my-helper"); !hit {
		t.Error("default rules should exclude my-* agents")
	}
	if _, hit := f.Excluded(model.CategorySkill, "deploy-guide"); hit {
		t.Error("default rules should not exclude deploy-guide")
	}
}

func TestLoadMalformedDocumentIsConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(":\n  - not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("malformed document should error")
	}
	var ce *syncerr.ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("error should be ConfigError, got %T", err)
	}
	if !syncerr.IsFatal(err) {
		t.Error("ConfigError must be fatal to the run")
	}
}

func TestLoadRejectsUnknownCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := "version: \"1.0\"\nrules:\n  - id: bad\n    category: gizmo\n    pattern: \"*\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("unknown category should be a ConfigError")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	rules := []Rule{{ID: "r1", Category: model.CategorySkill, Pattern: "wip-*", Reason: "work in progress"}}

	if err := Save(path, rules); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := f.Rules()
	if len(got) != 1 || got[0].Pattern != "wip-*" || got[0].Category != model.CategorySkill {
		t.Errorf("round-trip rules = %+v", got)
	}
}

func TestFilterApply(t *testing.T) {
	f := New([]Rule{
		{ID: "r1", Category: model.CategoryAgent, Pattern: "my-*"},
		{ID: "r2", Category: model.CategoryAll, Pattern: "*-private"},
	})

	set := &model.Set{
		Agents: []model.Agent{
			{Name: "api-designer"},
			{Name: "my-helper"},
		},
		Skills: []model.Skill{
			{Name: "deploy-guide"},
			{Name: "notes-private"},
		},
		Servers: []model.McpServerEntry{{Name: "github", Command: "gh-mcp"}},
	}

	filtered, dropped := f.Apply(set)

	if len(filtered.Agents) != 1 || filtered.Agents[0].Name != "api-designer" {
		t.Errorf("filtered agents = %+v", filtered.Agents)
	}
	if len(filtered.Skills) != 1 || filtered.Skills[0].Name != "deploy-guide" {
		t.Errorf("filtered skills = %+v", filtered.Skills)
	}
	if len(filtered.Servers) != 1 {
		t.Errorf("servers should be untouched, got %+v", filtered.Servers)
	}
	if len(dropped) != 2 {
		t.Fatalf("dropped = %+v, want 2 entries", dropped)
	}

	// The input set is never modified.
	if len(set.Agents) != 2 || len(set.Skills) != 2 {
		t.Error("Apply must not mutate its input")
	}
}

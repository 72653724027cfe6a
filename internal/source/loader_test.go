package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentsync/agentsync/internal/model"
)

// writeFile creates a file with parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFullTree(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "agents", "api-designer.md"), `---
name: api-designer
description: Designs REST APIs
tools: [Read, Write, Edit]
model: sonnet
color: blue
---
You design APIs.
`)
	writeFile(t, filepath.Join(root, "agents", "reviewer.md"), `---
description: Reviews pull requests
disallowed-tools: Bash, WebFetch
---
Review things carefully.
`)
	writeFile(t, filepath.Join(root, "skills", "deploy-guide", "SKILL.md"), `---
description: Production deployment checklist
---
Follow the steps.
`)
	writeFile(t, filepath.Join(root, "skills", "deploy-guide", "scripts", "check.sh"), "#!/bin/sh\n")
	writeFile(t, filepath.Join(root, "commands", "release.md"), `---
description: Cut a release
argument-hint: "[version]"
---
Release $ARGUMENTS.
`)
	writeFile(t, filepath.Join(root, "hooks.yaml"), `hooks:
  PreToolUse:
    - matcher: Bash
      actions:
        - command: ./lint.sh
          timeout: 30s
`)
	writeFile(t, filepath.Join(root, "mcp.json"), `{
  "mcpServers": {
    "github": {"command": "gh-mcp", "args": ["serve"], "env": {"GITHUB_TOKEN": "${GITHUB_TOKEN}"}}
  }
}`)

	set, issues, err := NewLoader(root).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %+v", issues)
	}

	if len(set.Agents) != 2 {
		t.Fatalf("got %d agents, want 2", len(set.Agents))
	}
	// Agents come back sorted by name.
	if set.Agents[0].Name != "api-designer" || set.Agents[1].Name != "reviewer" {
		t.Errorf("agent order = %q, %q", set.Agents[0].Name, set.Agents[1].Name)
	}
	if set.Agents[0].Access.Mode != model.AccessAllow || len(set.Agents[0].Access.Tools) != 3 {
		t.Errorf("api-designer access = %+v", set.Agents[0].Access)
	}
	if set.Agents[1].Access.Mode != model.AccessDeny {
		t.Errorf("reviewer should carry a deny-list, got %+v", set.Agents[1].Access)
	}
	if got := set.Agents[1].Access.Tools; len(got) != 2 || got[0] != "Bash" || got[1] != "WebFetch" {
		t.Errorf("comma-separated deny list parsed as %v", got)
	}

	if len(set.Skills) != 1 {
		t.Fatalf("got %d skills, want 1", len(set.Skills))
	}
	skill := set.Skills[0]
	if skill.Name != "deploy-guide" {
		t.Errorf("skill name = %q", skill.Name)
	}
	if len(skill.Resources) != 1 || skill.Resources[0] != "scripts/check.sh" {
		t.Errorf("skill resources = %v", skill.Resources)
	}

	if len(set.Commands) != 1 || set.Commands[0].ArgumentHint != "[version]" {
		t.Errorf("commands = %+v", set.Commands)
	}

	if len(set.Hooks) != 1 {
		t.Fatalf("got %d hooks, want 1", len(set.Hooks))
	}
	if set.Hooks[0].Event != model.PreToolUse || set.Hooks[0].Matcher != "Bash" {
		t.Errorf("hook = %+v", set.Hooks[0])
	}

	if len(set.Servers) != 1 || set.Servers[0].Name != "github" {
		t.Errorf("servers = %+v", set.Servers)
	}
}

func TestLoadSkipsMalformedRecords(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "agents", "good.md"), `---
description: A valid agent
---
Body.
`)
	// Empty tools list is ambiguous between an allow-everything and an
	// allow-nothing reading.
	writeFile(t, filepath.Join(root, "agents", "ambiguous.md"), `---
description: Broken agent
tools: []
---
Body.
`)
	// Name violates the kebab-case identifier rule.
	writeFile(t, filepath.Join(root, "agents", "bad.md"), `---
name: Not_Kebab
description: Broken agent
---
Body.
`)

	set, issues, err := NewLoader(root).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(set.Agents) != 1 || set.Agents[0].Name != "good" {
		t.Errorf("agents = %+v", set.Agents)
	}
	if len(issues) != 2 {
		t.Fatalf("got %d issues, want 2: %+v", len(issues), issues)
	}
	for _, is := range issues {
		if is.Category != model.CategoryAgent {
			t.Errorf("issue category = %q", is.Category)
		}
	}
}

func TestLoadMissingToolsKeyIsUnrestricted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "agents", "helper.md"), `---
description: No tools key at all
---
Body.
`)

	set, _, err := NewLoader(root).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Agents) != 1 {
		t.Fatalf("agents = %+v", set.Agents)
	}
	if set.Agents[0].Access.Mode != model.AccessUnrestricted {
		t.Errorf("missing tools key should mean unrestricted, got %+v", set.Agents[0].Access)
	}
}

func TestLoadRejectsBothToolKeys(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "agents", "confused.md"), `---
description: Claims both allow and deny
tools: [Read]
disallowed-tools: [Bash]
---
Body.
`)

	set, issues, err := NewLoader(root).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Agents) != 0 {
		t.Errorf("agent with both tool keys should be rejected, got %+v", set.Agents)
	}
	if len(issues) != 1 {
		t.Errorf("issues = %+v", issues)
	}
}

func TestLoadSkillNameContradiction(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "skills", "deploy-guide", "SKILL.md"), `---
name: something-else
description: Mismatched
---
Body.
`)

	set, issues, err := NewLoader(root).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Skills) != 0 {
		t.Errorf("contradictory skill should be skipped, got %+v", set.Skills)
	}
	if len(issues) != 1 || issues[0].Category != model.CategorySkill {
		t.Errorf("issues = %+v", issues)
	}
}

func TestLoadPluginBundle(t *testing.T) {
	root := t.TempDir()
	pdir := filepath.Join(root, "plugins", "deploy-kit")
	writeFile(t, filepath.Join(pdir, "plugin.yaml"), "name: deploy-kit\nversion: 1.2.0\nauthor: ops\n")
	writeFile(t, filepath.Join(pdir, "commands", "rollback.md"), `---
description: Roll back the last deploy
---
Rollback.
`)
	writeFile(t, filepath.Join(pdir, "agents", "deploy-bot.md"), `---
description: Runs deploys
tools: [Bash]
---
Deploy.
`)

	set, issues, err := NewLoader(root).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 0 {
		t.Fatalf("issues = %+v", issues)
	}
	if len(set.Plugins) != 1 {
		t.Fatalf("plugins = %+v", set.Plugins)
	}

	p := set.Plugins[0]
	if p.Name != "deploy-kit" || p.Version != "1.2.0" {
		t.Errorf("plugin manifest = %+v", p)
	}
	if !p.Components.Commands || !p.Components.Agents {
		t.Errorf("component flags = %+v", p.Components)
	}
	if p.Components.Skills || p.Components.Mcp {
		t.Errorf("absent components should stay false: %+v", p.Components)
	}
	if len(p.Commands) != 1 || p.Commands[0].Name != "rollback" {
		t.Errorf("plugin commands = %+v", p.Commands)
	}
}

func TestLoadMcpEnvDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mcp.json"), `{
  "mcpServers": {
    "github": {"command": "gh-mcp", "env": {"GITHUB_TOKEN": "${GITHUB_TOKEN}", "API_URL": "${API_URL}", "MODE": "${MODE}"}}
  }
}`)
	writeFile(t, filepath.Join(root, "mcp.env"), "API_URL=https://ghe.example.com\nMODE=strict\n")

	set, _, err := NewLoader(root).Load()
	if err != nil {
		t.Fatal(err)
	}
	env := set.Servers[0].Env
	if env["API_URL"] != "https://ghe.example.com" || env["MODE"] != "strict" {
		t.Errorf("defaults not applied: %v", env)
	}
	// No local default keeps the placeholder.
	if env["GITHUB_TOKEN"] != "${GITHUB_TOKEN}" {
		t.Errorf("placeholder lost: %v", env)
	}
}

func TestLoadMissingRootFails(t *testing.T) {
	if _, _, err := NewLoader(filepath.Join(t.TempDir(), "nope")).Load(); err == nil {
		t.Error("missing canonical root should be an error")
	}
}

func TestSplitFrontmatter(t *testing.T) {
	tests := map[string]struct {
		input     string
		wantFound bool
		wantBody  string
	}{
		"standard": {
			input:     "---\nname: x\n---\nbody here\n",
			wantFound: true,
			wantBody:  "body here\n",
		},
		"crlf": {
			input:     "---\r\nname: x\r\n---\r\nbody\r\n",
			wantFound: true,
			wantBody:  "body\r\n",
		},
		"no frontmatter": {
			input:     "just a body\n",
			wantFound: false,
			wantBody:  "just a body\n",
		},
		"unterminated": {
			input:     "---\nname: x\nno close\n",
			wantFound: false,
			wantBody:  "---\nname: x\nno close\n",
		},
		"horizontal rule": {
			input:     "---text\nbody\n",
			wantFound: false,
			wantBody:  "---text\nbody\n",
		},
		"empty frontmatter": {
			input:     "---\n---\nbody\n",
			wantFound: true,
			wantBody:  "body\n",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := splitFrontmatter([]byte(tt.input))
			if got.Found != tt.wantFound {
				t.Errorf("Found = %v, want %v", got.Found, tt.wantFound)
			}
			if got.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", got.Body, tt.wantBody)
			}
		})
	}
}

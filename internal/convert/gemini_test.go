package convert

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/agentsync/agentsync/internal/model"
)

func testSet() *model.Set {
	return &model.Set{
		Agents: []model.Agent{
			{
				Name:        "api-designer",
				Description: "Designs REST APIs",
				Access:      model.AllowList("Read", "Write", "Edit"),
				Model:       model.ModelSonnet,
				Color:       "blue",
				Body:        "You design APIs.\n\nUse ${CLAUDE_PLUGIN_ROOT}/references/style.md as a guide.",
			},
			{
				Name:        "reviewer",
				Description: "Reviews pull requests",
				Access:      model.Unrestricted(),
				Body:        "Review carefully.",
			},
		},
		Skills: []model.Skill{
			{
				Name:        "deploy-guide",
				Description: "Production deployment checklist",
				Body:        "Follow the steps.",
				Dir:         "/src/skills/deploy-guide",
				Resources:   []string{"scripts/check.sh"},
			},
		},
		Commands: []model.Command{
			{
				Name:         "release",
				Description:  "Cut a release",
				ArgumentHint: "[version]",
				Access:       model.Unrestricted(),
				Body:         "Release $ARGUMENTS now.",
			},
		},
		Servers: []model.McpServerEntry{
			{
				Name:    "github",
				Command: "gh-mcp",
				Args:    []string{"serve"},
				Env:     map[string]string{"GITHUB_TOKEN": "${GITHUB_TOKEN}"},
			},
		},
	}
}

func fileByPath(t *testing.T, files []File, path string) File {
	t.Helper()
	for _, f := range files {
		if f.Path == path {
			return f
		}
	}
	t.Fatalf("no file at %q; have %v", path, filePaths(files))
	return File{}
}

func filePaths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestGeminiRender(t *testing.T) {
	files, issues := NewGemini().Render(testSet())
	if len(issues) != 0 {
		t.Fatalf("issues = %+v", issues)
	}

	agent := fileByPath(t, files, "agents/api-designer/SKILL.md")
	text := string(agent.Body)
	if !strings.Contains(text, "name: api-designer") {
		t.Errorf("agent-skill missing name:\n%s", text)
	}
	// Allow {Read,Write,Edit} inverts to the excluded complement.
	for _, tool := range []string{"Bash", "Glob", "Grep", "NotebookEdit", "Task", "WebFetch", "WebSearch"} {
		if !strings.Contains(text, "- "+tool) {
			t.Errorf("excludeTools missing %s:\n%s", tool, text)
		}
	}
	if strings.Contains(text, "- Read") {
		t.Errorf("allowed tool leaked into excludeTools:\n%s", text)
	}
	if !strings.Contains(text, "${extensionPath}/references/style.md") {
		t.Errorf("path token not templated:\n%s", text)
	}

	// Unrestricted agents carry no excludeTools key at all.
	reviewer := fileByPath(t, files, "agents/reviewer/SKILL.md")
	if strings.Contains(string(reviewer.Body), "excludeTools") {
		t.Errorf("unrestricted agent should have no excludeTools:\n%s", reviewer.Body)
	}

	// Skill resources become copy entries, never inlined.
	resource := fileByPath(t, files, "skills/deploy-guide/scripts/check.sh")
	if resource.CopyFrom == "" || len(resource.Body) != 0 {
		t.Errorf("resource should be a copy entry: %+v", resource)
	}

	command := fileByPath(t, files, "commands/release.toml")
	if !strings.Contains(string(command.Body), `description = "Cut a release"`) {
		t.Errorf("command toml:\n%s", command.Body)
	}

	settings := fileByPath(t, files, "settings.json")
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(settings.Body, &doc); err != nil {
		t.Fatalf("settings.json invalid: %v", err)
	}
	if _, ok := doc["mcpServers"]; !ok {
		t.Error("settings.json missing mcpServers")
	}
	if _, ok := doc["settingsSchema"]; !ok {
		t.Error("settings.json missing settingsSchema")
	}
}

func TestGeminiRenderDeterministic(t *testing.T) {
	g := NewGemini()
	first, _ := g.Render(testSet())
	second, _ := g.Render(testSet())

	if len(first) != len(second) {
		t.Fatalf("file counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Path != second[i].Path || !bytes.Equal(first[i].Body, second[i].Body) {
			t.Errorf("output for %q differs between runs", first[i].Path)
		}
	}
}

func TestGeminiAgentRoundTrip(t *testing.T) {
	g := NewGemini()
	original := testSet().Agents[0]

	file, err := g.renderAgent(original)
	if err != nil {
		t.Fatal(err)
	}
	back, err := g.ParseAgent(file.Body)
	if err != nil {
		t.Fatal(err)
	}

	if back.Name != original.Name {
		t.Errorf("Name = %q, want %q", back.Name, original.Name)
	}
	if back.Description != original.Description {
		t.Errorf("Description = %q, want %q", back.Description, original.Description)
	}
	if back.Body != original.Body {
		t.Errorf("Body = %q, want %q", back.Body, original.Body)
	}
	for _, tool := range model.DefaultToolUniverse() {
		if back.Access.Permits(tool) != original.Access.Permits(tool) {
			t.Errorf("permission for %q changed through round trip", tool)
		}
	}
}

func TestGeminiUnknownToolIsIssueNotAbort(t *testing.T) {
	set := &model.Set{
		Agents: []model.Agent{
			{Name: "bad-tools", Description: "d", Access: model.AllowList("Hammer"), Body: "b"},
			{Name: "good", Description: "d", Access: model.Unrestricted(), Body: "b"},
		},
	}

	files, issues := NewGemini().Render(set)
	if len(issues) != 1 || issues[0].Name != "bad-tools" {
		t.Fatalf("issues = %+v", issues)
	}
	// The healthy sibling still renders.
	fileByPath(t, files, "agents/good/SKILL.md")
}

func TestGeminiAggregateOrderedAndTimestampFree(t *testing.T) {
	set := &model.Set{
		Agents: []model.Agent{
			{Name: "zeta", Description: "z", Access: model.Unrestricted(), Body: "Z."},
			{Name: "alpha", Description: "a", Access: model.Unrestricted(), Body: "A."},
		},
	}

	files, _ := NewGemini().Render(set)
	doc := string(fileByPath(t, files, "GEMINI.md").Body)

	if strings.Index(doc, "## alpha") > strings.Index(doc, "## zeta") {
		t.Errorf("aggregate not identifier-ascending:\n%s", doc)
	}
	if strings.Contains(doc, "20") && strings.Contains(doc, "T") && strings.Contains(doc, "Z\n") {
		// Crude but effective: no RFC 3339 stamps anywhere.
		for _, line := range strings.Split(doc, "\n") {
			if strings.Contains(line, "Generated") {
				t.Errorf("aggregate carries a generation stamp: %q", line)
			}
		}
	}
}

func TestGeminiRenderEnvDoc(t *testing.T) {
	set := testSet()
	set.Servers[0].Env["API_URL"] = "https://api.example.com"

	files, _ := NewGemini().Render(set)
	doc := string(fileByPath(t, files, "mcp.env.example").Body)

	if !strings.Contains(doc, "# github\n") {
		t.Errorf("env doc missing server heading:\n%s", doc)
	}
	if !strings.Contains(doc, "# Github Token configuration (secret)\nGITHUB_TOKEN=\n") {
		t.Errorf("env doc missing secret line:\n%s", doc)
	}
	if !strings.Contains(doc, "API_URL=https://api.example.com\n") {
		t.Errorf("env doc missing default:\n%s", doc)
	}

	// No settings, no sidecar.
	set.Servers[0].Env = nil
	files, _ = NewGemini().Render(set)
	for _, f := range files {
		if f.Path == "mcp.env.example" {
			t.Error("env doc rendered with no settings")
		}
	}
}

func TestGeminiPluginComponentsScoped(t *testing.T) {
	set := &model.Set{
		Plugins: []model.Plugin{{
			Name: "deploy-kit",
			Agents: []model.Agent{
				{Name: "deploy-bot", Description: "d", Access: model.Unrestricted(), Body: "b"},
			},
			Commands: []model.Command{
				{Name: "rollback", Description: "d", Access: model.Unrestricted(), Body: "b"},
			},
		}},
	}

	files, issues := NewGemini().Render(set)
	if len(issues) != 0 {
		t.Fatalf("issues = %+v", issues)
	}
	fileByPath(t, files, "agents/deploy-kit/deploy-bot/SKILL.md")
	fileByPath(t, files, "commands/deploy-kit/rollback.toml")
}

package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentsync/agentsync/internal/logging"
	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// Gemini projects the canonical set into the gemini CLI's layout:
//
//	GEMINI.md                aggregated agent context, identifier ascending
//	agents/<name>/SKILL.md   agent-skill envelope with excludeTools
//	skills/<name>/...        skills copied in SKILL.md shape plus resources
//	commands/<name>.toml     custom command prompt files
//	settings.json            MCP servers plus inferred settings schema
//	mcp.env.example          dotenv documentation for inferred settings
//
// Output is a pure function of the input set. Hooks have no gemini
// representation and are dropped with a logged notice; the antigravity
// converter carries them.
type Gemini struct {
	inverter  *ToolInverter
	templater *PathTemplater
	inferrer  *SettingsInferencer
	target    model.Target
}

// NewGemini creates the gemini converter over the default tool universe.
func NewGemini() *Gemini {
	return newGeminiFor(model.Gemini)
}

func newGeminiFor(target model.Target) *Gemini {
	return &Gemini{
		inverter:  NewToolInverter(model.DefaultToolUniverse()),
		templater: NewPathTemplater(target),
		inferrer:  NewSettingsInferencer(),
		target:    target,
	}
}

// Target implements Converter.
func (g *Gemini) Target() model.Target { return g.target }

// Render implements Converter.
func (g *Gemini) Render(set *model.Set) ([]File, []Issue) {
	var files []File
	var issues []Issue

	fail := func(category model.Category, name string, err error) {
		logging.Warn("record not projectable",
			logging.Target(string(g.target)),
			logging.Category(string(category)),
			logging.Component(name),
			logging.Err(err),
		)
		issues = append(issues, Issue{Category: category, Name: name, Err: err})
	}

	agents := make([]model.Agent, len(set.Agents))
	copy(agents, set.Agents)
	for _, p := range set.Plugins {
		for _, a := range p.Agents {
			scoped := a
			scoped.Name = p.Name + "/" + a.Name
			agents = append(agents, scoped)
		}
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })

	var rendered []model.Agent
	for _, a := range agents {
		file, err := g.renderAgent(a)
		if err != nil {
			fail(model.CategoryAgent, a.Name, err)
			continue
		}
		files = append(files, file)
		rendered = append(rendered, a)
	}

	if len(rendered) > 0 {
		files = append(files, File{
			Path:     "GEMINI.md",
			Body:     renderAgentAggregate("Agents", rendered),
			Category: model.CategoryAgent,
			Name:     "GEMINI.md",
		})
	}

	skills := make([]model.Skill, len(set.Skills))
	copy(skills, set.Skills)
	for _, p := range set.Plugins {
		for _, s := range p.Skills {
			scoped := s
			scoped.Name = p.Name + "/" + s.Name
			skills = append(skills, scoped)
		}
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	for _, s := range skills {
		skillFiles, err := g.renderSkill(s)
		if err != nil {
			fail(model.CategorySkill, s.Name, err)
			continue
		}
		files = append(files, skillFiles...)
	}

	commands := make([]model.Command, len(set.Commands))
	copy(commands, set.Commands)
	for _, p := range set.Plugins {
		for _, c := range p.Commands {
			scoped := c
			scoped.Name = p.Name + "/" + c.Name
			commands = append(commands, scoped)
		}
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].Name < commands[j].Name })
	for _, c := range commands {
		file, err := g.renderCommand(c)
		if err != nil {
			fail(model.CategoryCommand, c.Name, err)
			continue
		}
		files = append(files, file)
	}

	for _, h := range set.Hooks {
		logging.Info("hooks are not representable on this target, skipping",
			logging.Target(string(g.target)),
			logging.Component(h.Name()),
		)
	}

	if len(set.Servers) > 0 {
		file, err := g.renderSettings(set.Servers)
		if err != nil {
			fail(model.CategoryMcp, "settings.json", err)
		} else {
			files = append(files, file)
			if env := renderEnvDoc(g.inferrer, set.Servers); env != nil {
				files = append(files, *env)
			}
		}
	}

	return files, issues
}

// agentSkillFrontmatter is the agent-skill envelope frontmatter.
type agentSkillFrontmatter struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description,omitempty"`
	ExcludeTools []string `yaml:"excludeTools,omitempty"`
	Model        string   `yaml:"model,omitempty"`
	Color        string   `yaml:"color,omitempty"`
}

// renderAgent wraps one agent as an agent-skill. The canonical allow-list
// becomes an excludeTools deny-list over the universe.
func (g *Gemini) renderAgent(a model.Agent) (File, error) {
	excluded, err := g.inverter.ToDenyList(a.Name, g.target, a.Access)
	if err != nil {
		return File{}, err
	}

	body, err := g.templater.ToTarget(a.Name, a.Body)
	if err != nil {
		return File{}, err
	}

	fm := agentSkillFrontmatter{
		Name:         a.Name,
		Description:  a.Description,
		ExcludeTools: excluded,
		Model:        string(a.Model),
		Color:        a.Color,
	}

	content, err := renderFrontmatterDoc(fm, body)
	if err != nil {
		return File{}, syncerr.NewConversion(a.Name, string(g.target), "%v", err)
	}

	return File{
		Path:     path.Join("agents", a.Name, "SKILL.md"),
		Body:     content,
		Category: model.CategoryAgent,
		Name:     a.Name,
	}, nil
}

// ParseAgent reconstructs a canonical agent from an agent-skill file.
func (g *Gemini) ParseAgent(content []byte) (model.Agent, error) {
	fm, body, err := parseFrontmatterDoc(content)
	if err != nil {
		return model.Agent{}, err
	}

	var envelope agentSkillFrontmatter
	if err := yaml.Unmarshal(fm, &envelope); err != nil {
		return model.Agent{}, syncerr.NewConversion("agent-skill", string(g.target), "%v", err)
	}

	canonicalBody, err := g.templater.ToCanonical(envelope.Name, body)
	if err != nil {
		return model.Agent{}, err
	}

	return model.Agent{
		Name:        envelope.Name,
		Description: envelope.Description,
		Access:      g.inverter.FromDenyList(envelope.ExcludeTools),
		Model:       model.ModelHint(envelope.Model),
		Color:       envelope.Color,
		Body:        canonicalBody,
	}, nil
}

// renderSkill copies a skill in SKILL.md shape plus its resource blobs.
func (g *Gemini) renderSkill(s model.Skill) ([]File, error) {
	body, err := g.templater.ToTarget(s.Name, s.Body)
	if err != nil {
		return nil, err
	}

	fm := struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description,omitempty"`
	}{Name: s.Name, Description: s.Description}

	content, err := renderFrontmatterDoc(fm, body)
	if err != nil {
		return nil, syncerr.NewConversion(s.Name, string(g.target), "%v", err)
	}

	files := []File{{
		Path:     path.Join("skills", s.Name, "SKILL.md"),
		Body:     content,
		Category: model.CategorySkill,
		Name:     s.Name,
	}}

	for _, r := range s.Resources {
		files = append(files, File{
			Path:     path.Join("skills", s.Name, r),
			CopyFrom: filepath.Join(s.Dir, filepath.FromSlash(r)),
			Category: model.CategorySkill,
			Name:     s.Name,
		})
	}
	return files, nil
}

// ParseSkill reconstructs a canonical skill from a SKILL.md file.
func (g *Gemini) ParseSkill(content []byte) (model.Skill, error) {
	fm, body, err := parseFrontmatterDoc(content)
	if err != nil {
		return model.Skill{}, err
	}

	var envelope struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	}
	if err := yaml.Unmarshal(fm, &envelope); err != nil {
		return model.Skill{}, syncerr.NewConversion("skill", string(g.target), "%v", err)
	}

	canonicalBody, err := g.templater.ToCanonical(envelope.Name, body)
	if err != nil {
		return model.Skill{}, err
	}

	return model.Skill{
		Name:        envelope.Name,
		Description: envelope.Description,
		Body:        canonicalBody,
	}, nil
}

// renderCommand writes a gemini custom-command TOML file. The toml shape
// is small enough to template directly, keeping key order stable.
func (g *Gemini) renderCommand(c model.Command) (File, error) {
	body, err := g.templater.ToTarget(c.Name, c.Body)
	if err != nil {
		return File{}, err
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "description = %s\n", tomlString(c.Description))
	if c.ArgumentHint != "" {
		fmt.Fprintf(&b, "argument_hint = %s\n", tomlString(c.ArgumentHint))
	}
	fmt.Fprintf(&b, "prompt = %s\n", tomlMultiline(body))

	return File{
		Path:     path.Join("commands", c.Name+".toml"),
		Body:     b.Bytes(),
		Category: model.CategoryCommand,
		Name:     c.Name,
	}, nil
}

// renderSettings writes settings.json with the MCP server table and the
// inferred settings schema. Secret env values never appear in the output;
// they surface only as schema entries for the user to provide.
func (g *Gemini) renderSettings(servers []model.McpServerEntry) (File, error) {
	type serverOut struct {
		Command string            `json:"command"`
		Args    []string          `json:"args,omitempty"`
		Env     map[string]string `json:"env,omitempty"`
	}

	out := struct {
		McpServers     map[string]serverOut           `json:"mcpServers"`
		SettingsSchema map[string][]SettingDescriptor `json:"settingsSchema,omitempty"`
	}{
		McpServers:     map[string]serverOut{},
		SettingsSchema: map[string][]SettingDescriptor{},
	}

	for _, s := range servers {
		descriptors := g.inferrer.Infer(s.Env)
		out.McpServers[s.Name] = serverOut{
			Command: s.Command,
			Args:    s.Args,
			Env:     g.inferrer.EnvMap(descriptors),
		}
		if len(descriptors) > 0 {
			out.SettingsSchema[s.Name] = descriptors
		}
	}
	if len(out.SettingsSchema) == 0 {
		out.SettingsSchema = nil
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return File{}, err
	}
	data = append(data, '\n')

	return File{
		Path:     "settings.json",
		Body:     data,
		Category: model.CategoryMcp,
		Name:     "settings.json",
	}, nil
}

// ParseSettings reconstructs canonical server entries from settings.json.
// Secret values cannot be recovered; their placeholders survive as-is.
func (g *Gemini) ParseSettings(content []byte) ([]model.McpServerEntry, error) {
	var doc struct {
		McpServers map[string]struct {
			Command string            `json:"command"`
			Args    []string          `json:"args"`
			Env     map[string]string `json:"env"`
		} `json:"mcpServers"`
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, syncerr.NewConversion("settings.json", string(g.target), "%v", err)
	}

	names := make([]string, 0, len(doc.McpServers))
	for name := range doc.McpServers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]model.McpServerEntry, 0, len(names))
	for _, name := range names {
		s := doc.McpServers[name]
		out = append(out, model.McpServerEntry{
			Name:    name,
			Command: s.Command,
			Args:    s.Args,
			Env:     s.Env,
		})
	}
	return out, nil
}

// renderFrontmatterDoc serializes frontmatter plus body in the canonical
// markdown shape.
func renderFrontmatterDoc(fm any, body string) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("---\n")
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	b.WriteString("---\n\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return b.Bytes(), nil
}

// parseFrontmatterDoc splits a generated document back into frontmatter
// bytes and the trimmed body.
func parseFrontmatterDoc(content []byte) ([]byte, string, error) {
	const delim = "---\n"
	text := string(content)
	if !strings.HasPrefix(text, delim) {
		return nil, "", fmt.Errorf("document has no frontmatter")
	}
	rest := text[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return nil, "", fmt.Errorf("unterminated frontmatter")
	}
	fm := rest[:idx+1]
	body := strings.TrimPrefix(rest[idx+1+len(delim):], "\n")
	body = strings.TrimSuffix(body, "\n")
	return []byte(fm), body, nil
}

// renderAgentAggregate writes the deterministic aggregate document. No
// timestamps: the same records always produce the same bytes. Body lines
// that would collide with the document's own markup are escaped so the
// parse recovers the exact body.
func renderAgentAggregate(title string, agents []model.Agent) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n", title)
	for _, a := range agents {
		fmt.Fprintf(&b, "\n## %s\n\n", a.Name)
		if a.Description != "" {
			fmt.Fprintf(&b, "> %s\n\n", a.Description)
		}
		b.WriteString(escapeAggregateBody(a.Body))
		b.WriteString("\n")
	}
	return b.Bytes()
}

// parseAgentAggregate is the inverse of renderAgentAggregate.
func parseAgentAggregate(content []byte) []model.Agent {
	var agents []model.Agent
	sections := strings.Split(string(content), "\n## ")
	for _, section := range sections[1:] {
		lines := strings.SplitN(section, "\n", 2)
		name := strings.TrimSpace(lines[0])
		if name == "" {
			continue
		}
		a := model.Agent{Name: name}
		if len(lines) == 2 {
			body := strings.TrimPrefix(lines[1], "\n")
			if strings.HasPrefix(body, "> ") {
				descEnd := strings.Index(body, "\n")
				if descEnd < 0 {
					descEnd = len(body)
				}
				a.Description = strings.TrimPrefix(body[:descEnd], "> ")
				body = strings.TrimPrefix(body[descEnd:], "\n")
				body = strings.TrimPrefix(body, "\n")
			}
			a.Body = unescapeAggregateBody(strings.TrimSuffix(body, "\n"))
		}
		agents = append(agents, a)
	}
	return agents
}

// escapeAggregateBody backslash-escapes body lines the aggregate markup
// would otherwise claim: a second-level heading on any line would split
// the document into phantom sections, and a leading blockquote line
// would read back as the description. Lines already carrying backslashes
// before the marker gain one more so the unescape stays reversible.
func escapeAggregateBody(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if aggregateMarker(i, line) {
			lines[i] = `\` + line
		}
	}
	return strings.Join(lines, "\n")
}

// unescapeAggregateBody strips one backslash from every line the render
// escaped.
func unescapeAggregateBody(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, `\`) && aggregateMarker(i, line[1:]) {
			lines[i] = line[1:]
		}
	}
	return strings.Join(lines, "\n")
}

// aggregateMarker reports whether a body line, stripped of leading
// backslashes, collides with the aggregate's structural markup.
func aggregateMarker(i int, line string) bool {
	stripped := strings.TrimLeft(line, `\`)
	if strings.HasPrefix(stripped, "## ") {
		return true
	}
	return i == 0 && strings.HasPrefix(stripped, ">")
}

// tomlString renders a quoted TOML string.
func tomlString(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n", "\t", "\\t")
	return "\"" + r.Replace(s) + "\""
}

// tomlMultiline renders a multi-line TOML string literal.
func tomlMultiline(s string) string {
	if !strings.Contains(s, "\n") && !strings.Contains(s, "\"") {
		return tomlString(s)
	}
	return "\"\"\"\n" + strings.ReplaceAll(s, "\"\"\"", "\\\"\\\"\\\"") + "\n\"\"\""
}

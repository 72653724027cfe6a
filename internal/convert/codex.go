package convert

import (
	"bytes"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/agentsync/agentsync/internal/logging"
	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// Codex projects the canonical set into the codex CLI's layout:
//
//	AGENTS.md        aggregated agent context, identifier ascending
//	config.toml      MCP server table plus the x_agentsync extension area
//	mcp.env.example  dotenv documentation for inferred settings
//
// Codex has no representation for tool access, model hints, or colors;
// those fields are stripped with a logged notice and parked in the
// x_agentsync table so a later parse can restore them.
type Codex struct {
	templater *PathTemplater
	inferrer  *SettingsInferencer
}

// NewCodex creates the codex converter.
func NewCodex() *Codex {
	return &Codex{
		templater: NewPathTemplater(model.Codex),
		inferrer:  NewSettingsInferencer(),
	}
}

// Target implements Converter.
func (c *Codex) Target() model.Target { return model.Codex }

// Render implements Converter.
func (c *Codex) Render(set *model.Set) ([]File, []Issue) {
	var files []File
	var issues []Issue

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
		body, err := c.templater.ToTarget(a.Name, a.Body)
		if err != nil {
			issues = append(issues, Issue{Category: model.CategoryAgent, Name: a.Name, Err: err})
			continue
		}
		if !a.Access.IsUnrestricted() || a.Model != "" || a.Color != "" {
			logging.Info("codex cannot represent agent metadata, parking in extension table",
				logging.Target(string(model.Codex)),
				logging.Component(a.Name),
			)
		}
		flat := a
		flat.Body = body
		rendered = append(rendered, flat)
	}

	if len(rendered) > 0 {
		files = append(files, File{
			Path:     "AGENTS.md",
			Body:     renderAgentAggregate("Agents", rendered),
			Category: model.CategoryAgent,
			Name:     "AGENTS.md",
		})
	}

	for _, s := range set.Skills {
		logging.Info("skills are not representable on this target, skipping",
			logging.Target(string(model.Codex)),
			logging.Component(s.Name),
		)
	}
	for _, cmd := range set.Commands {
		logging.Info("commands are not representable on this target, skipping",
			logging.Target(string(model.Codex)),
			logging.Component(cmd.Name),
		)
	}
	for _, h := range set.Hooks {
		logging.Info("hooks are not representable on this target, skipping",
			logging.Target(string(model.Codex)),
			logging.Component(h.Name()),
		)
	}

	if len(set.Servers) > 0 || len(rendered) > 0 {
		file, err := c.renderConfig(set.Servers, rendered)
		if err != nil {
			issues = append(issues, Issue{Category: model.CategoryMcp, Name: "config.toml", Err: err})
		} else {
			files = append(files, file)
			if env := renderEnvDoc(c.inferrer, set.Servers); env != nil {
				files = append(files, *env)
			}
		}
	}

	return files, issues
}

// codexConfig is the config.toml document shape.
type codexConfig struct {
	McpServers map[string]codexServer `toml:"mcp_servers,omitempty"`
	Extension  *codexExtension        `toml:"x_agentsync,omitempty"`
}

type codexServer struct {
	Command string            `toml:"command"`
	Args    []string          `toml:"args,omitempty"`
	Env     map[string]string `toml:"env,omitempty"`
}

// codexExtension is the x_agentsync table: canonical fields codex itself
// ignores, carried opaquely so they survive a round trip.
type codexExtension struct {
	Version string                    `toml:"version"`
	Agents  map[string]codexAgentMeta `toml:"agents,omitempty"`
}

type codexAgentMeta struct {
	AccessMode string   `toml:"access_mode,omitempty"`
	Tools      []string `toml:"tools,omitempty"`
	Model      string   `toml:"model,omitempty"`
	Color      string   `toml:"color,omitempty"`
}

// renderConfig writes config.toml. Secret env values never appear; they
// surface as placeholder references.
func (c *Codex) renderConfig(servers []model.McpServerEntry, agents []model.Agent) (File, error) {
	cfg := codexConfig{}

	if len(servers) > 0 {
		cfg.McpServers = make(map[string]codexServer, len(servers))
		for _, s := range servers {
			descriptors := c.inferrer.Infer(s.Env)
			cfg.McpServers[s.Name] = codexServer{
				Command: s.Command,
				Args:    s.Args,
				Env:     c.inferrer.EnvMap(descriptors),
			}
		}
	}

	ext := &codexExtension{Version: "1"}
	for _, a := range agents {
		meta := codexAgentMeta{
			Model: string(a.Model),
			Color: a.Color,
		}
		if !a.Access.IsUnrestricted() {
			meta.AccessMode = string(a.Access.Mode)
			meta.Tools = sortedCopy(a.Access.Tools)
		}
		if meta.AccessMode == "" && meta.Model == "" && meta.Color == "" {
			continue
		}
		if ext.Agents == nil {
			ext.Agents = map[string]codexAgentMeta{}
		}
		ext.Agents[a.Name] = meta
	}
	if ext.Agents != nil {
		cfg.Extension = ext
	}

	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return File{}, syncerr.NewConversion("config.toml", string(model.Codex), "%v", err)
	}

	return File{
		Path:     "config.toml",
		Body:     b.Bytes(),
		Category: model.CategoryMcp,
		Name:     "config.toml",
	}, nil
}

// ParseConfig reconstructs canonical server entries and agent metadata
// from config.toml.
func (c *Codex) ParseConfig(content []byte) ([]model.McpServerEntry, map[string]model.ToolAccess, error) {
	var cfg codexConfig
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return nil, nil, syncerr.NewConversion("config.toml", string(model.Codex), "%v", err)
	}

	names := make([]string, 0, len(cfg.McpServers))
	for name := range cfg.McpServers {
		names = append(names, name)
	}
	sort.Strings(names)

	servers := make([]model.McpServerEntry, 0, len(names))
	for _, name := range names {
		s := cfg.McpServers[name]
		servers = append(servers, model.McpServerEntry{
			Name:    name,
			Command: s.Command,
			Args:    s.Args,
			Env:     s.Env,
		})
	}

	access := map[string]model.ToolAccess{}
	if cfg.Extension != nil {
		for name, meta := range cfg.Extension.Agents {
			switch model.AccessMode(meta.AccessMode) {
			case model.AccessAllow:
				access[name] = model.AllowList(meta.Tools...)
			case model.AccessDeny:
				access[name] = model.DenyList(meta.Tools...)
			}
		}
	}

	return servers, access, nil
}

// ParseAgentsDoc reconstructs agent records from the AGENTS.md aggregate.
// Tool access and model hints live in config.toml's extension table, not
// here; callers merge the two.
func (c *Codex) ParseAgentsDoc(content []byte) []model.Agent {
	return parseAgentAggregate(content)
}

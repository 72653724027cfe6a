// Package source loads the canonical configuration tree into the in-memory
// model. The tree layout:
//
//	<root>/agents/*.md          frontmatter + body, one file per agent
//	<root>/skills/<name>/SKILL.md plus optional scripts/, references/, assets/
//	<root>/commands/*.md        frontmatter + body, one file per command
//	<root>/hooks.yaml           event name -> ordered action lists
//	<root>/plugins/<name>/      plugin.yaml manifest + nested component dirs
//	<root>/mcp.json             server identifier -> launch definition
//
// Individual malformed records are skipped and reported as issues; they
// never abort the load.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentsync/agentsync/internal/logging"
	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// Issue records a source record that could not be loaded.
type Issue struct {
	Category model.Category
	Path     string
	Err      error
}

// Loader reads a canonical tree from an explicit root. It holds no global
// state; the root is supplied at construction.
type Loader struct {
	root string
}

// NewLoader creates a loader for the given canonical root.
func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// Load reads the full canonical set. Per-record failures are collected as
// issues and logged, not returned as errors.
func (l *Loader) Load() (*model.Set, []Issue, error) {
	if _, err := os.Stat(l.root); err != nil {
		return nil, nil, fmt.Errorf("canonical root %q: %w", l.root, err)
	}

	set := &model.Set{}
	var issues []Issue

	collect := func(category model.Category, path string, err error) {
		logging.Warn("skipping malformed source record",
			logging.Category(string(category)),
			logging.Path(path),
			logging.Err(err),
		)
		issues = append(issues, Issue{Category: category, Path: path, Err: err})
	}

	agents, agentIssues := l.loadAgents()
	set.Agents = agents
	for _, is := range agentIssues {
		collect(is.Category, is.Path, is.Err)
	}

	skills, skillIssues := l.loadSkills(filepath.Join(l.root, "skills"))
	set.Skills = skills
	for _, is := range skillIssues {
		collect(is.Category, is.Path, is.Err)
	}

	commands, cmdIssues := l.loadCommands()
	set.Commands = commands
	for _, is := range cmdIssues {
		collect(is.Category, is.Path, is.Err)
	}

	hooks, hookIssues := l.loadHooks()
	set.Hooks = hooks
	for _, is := range hookIssues {
		collect(is.Category, is.Path, is.Err)
	}

	plugins, pluginIssues := l.loadPlugins()
	set.Plugins = plugins
	for _, is := range pluginIssues {
		collect(is.Category, is.Path, is.Err)
	}

	servers, mcpIssues := l.loadMcpServers()
	set.Servers = servers
	for _, is := range mcpIssues {
		collect(is.Category, is.Path, is.Err)
	}

	logging.Debug("loaded canonical model",
		logging.Path(l.root),
		logging.Count(len(set.Agents)+len(set.Skills)+len(set.Commands)+len(set.Hooks)+len(set.Plugins)+len(set.Servers)),
	)

	return set, issues, nil
}

// agentFrontmatter is the frontmatter shape of an agent file.
type agentFrontmatter struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Tools           *lenient `yaml:"tools"`
	DisallowedTools *lenient `yaml:"disallowed-tools"`
	Model           string   `yaml:"model"`
	Color           string   `yaml:"color"`
}

// loadAgents reads agents/*.md.
func (l *Loader) loadAgents() ([]model.Agent, []Issue) {
	dir := filepath.Join(l.root, "agents")
	files, err := listMarkdown(dir)
	if err != nil {
		return nil, nil // Missing directory is not an error
	}

	var agents []model.Agent
	var issues []Issue
	for _, file := range files {
		agent, err := l.parseAgentFile(file)
		if err != nil {
			issues = append(issues, Issue{Category: model.CategoryAgent, Path: file, Err: err})
			continue
		}
		agents = append(agents, agent)
	}

	sortByName(agents, func(a model.Agent) string { return a.Name })
	return agents, issues
}

// parseAgentFile parses a single agent definition file.
func (l *Loader) parseAgentFile(file string) (model.Agent, error) {
	// #nosec G304 - file was discovered under the configured root
	content, err := os.ReadFile(file)
	if err != nil {
		return model.Agent{}, err
	}

	split := splitFrontmatter(content)
	var fm agentFrontmatter
	if split.Found {
		if err := parseFrontmatter(split.Frontmatter, &fm); err != nil {
			return model.Agent{}, syncerr.NewValidation(filepath.Base(file), "%v", err)
		}
	}

	name := fm.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	access, err := toolAccessFromFrontmatter(name, fm.Tools, fm.DisallowedTools)
	if err != nil {
		return model.Agent{}, err
	}

	info, err := os.Stat(file)
	if err != nil {
		return model.Agent{}, err
	}

	agent := model.Agent{
		Name:        name,
		Description: fm.Description,
		Access:      access,
		Model:       model.ModelHint(fm.Model),
		Color:       fm.Color,
		Body:        normalizeBody(split.Body),
		SourcePath:  file,
		ModifiedAt:  info.ModTime(),
	}

	if err := agent.Validate(); err != nil {
		return model.Agent{}, syncerr.NewValidation(name, "%v", err)
	}
	return agent, nil
}

// commandFrontmatter is the frontmatter shape of a command file.
type commandFrontmatter struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	ArgumentHint string   `yaml:"argument-hint"`
	AllowedTools *lenient `yaml:"allowed-tools"`
}

// loadCommands reads commands/*.md.
func (l *Loader) loadCommands() ([]model.Command, []Issue) {
	dir := filepath.Join(l.root, "commands")
	files, err := listMarkdown(dir)
	if err != nil {
		return nil, nil
	}

	var commands []model.Command
	var issues []Issue
	for _, file := range files {
		cmd, err := l.parseCommandFile(file)
		if err != nil {
			issues = append(issues, Issue{Category: model.CategoryCommand, Path: file, Err: err})
			continue
		}
		commands = append(commands, cmd)
	}

	sortByName(commands, func(c model.Command) string { return c.Name })
	return commands, issues
}

// parseCommandFile parses a single command definition file.
func (l *Loader) parseCommandFile(file string) (model.Command, error) {
	// #nosec G304 - file was discovered under the configured root
	content, err := os.ReadFile(file)
	if err != nil {
		return model.Command{}, err
	}

	split := splitFrontmatter(content)
	var fm commandFrontmatter
	if split.Found {
		if err := parseFrontmatter(split.Frontmatter, &fm); err != nil {
			return model.Command{}, syncerr.NewValidation(filepath.Base(file), "%v", err)
		}
	}

	name := fm.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	access, err := toolAccessFromFrontmatter(name, fm.AllowedTools, nil)
	if err != nil {
		return model.Command{}, err
	}

	info, err := os.Stat(file)
	if err != nil {
		return model.Command{}, err
	}

	cmd := model.Command{
		Name:         name,
		Description:  fm.Description,
		ArgumentHint: fm.ArgumentHint,
		Access:       access,
		Body:         normalizeBody(split.Body),
		SourcePath:   file,
		ModifiedAt:   info.ModTime(),
	}

	if err := cmd.Validate(); err != nil {
		return model.Command{}, syncerr.NewValidation(name, "%v", err)
	}
	return cmd, nil
}

// toolAccessFromFrontmatter maps the tools keys onto a ToolAccess rule.
// A missing tools key means unrestricted; an explicitly empty list is
// ambiguous between platforms and rejected; naming both an allow- and a
// deny-list violates the allow-XOR-deny invariant.
func toolAccessFromFrontmatter(name string, allow, deny *lenient) (model.ToolAccess, error) {
	switch {
	case allow != nil && deny != nil:
		return model.ToolAccess{}, syncerr.NewValidation(name, "tools and disallowed-tools are mutually exclusive")
	case allow != nil:
		if len(allow.values) == 0 {
			return model.ToolAccess{}, syncerr.NewValidation(name, "empty tools list is ambiguous; omit the key for unrestricted access")
		}
		return model.AllowList(allow.values...), nil
	case deny != nil:
		if len(deny.values) == 0 {
			return model.ToolAccess{}, syncerr.NewValidation(name, "empty disallowed-tools list is ambiguous; omit the key for unrestricted access")
		}
		return model.DenyList(deny.values...), nil
	default:
		return model.Unrestricted(), nil
	}
}

// listMarkdown returns the sorted .md files directly inside dir.
func listMarkdown(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// sortByName sorts records by identifier for deterministic load order.
func sortByName[T any](items []T, name func(T) string) {
	sort.Slice(items, func(i, j int) bool { return name(items[i]) < name(items[j]) })
}

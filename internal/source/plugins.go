package source

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// pluginManifest is the on-disk shape of plugin.yaml.
type pluginManifest struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Author  string `yaml:"author"`
}

// loadPlugins reads plugins/<name>/ bundles. Each bundle carries a
// plugin.yaml manifest and nested component directories parsed with the
// same loaders as the top-level tree.
func (l *Loader) loadPlugins() ([]model.Plugin, []Issue) {
	dir := filepath.Join(l.root, "plugins")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil
	}

	var plugins []model.Plugin
	var issues []Issue
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pluginDir := filepath.Join(dir, e.Name())
		plugin, nested, err := l.parsePluginDir(pluginDir, e.Name())
		if err != nil {
			issues = append(issues, Issue{Category: model.CategoryPlugin, Path: pluginDir, Err: err})
			continue
		}
		issues = append(issues, nested...)
		plugins = append(plugins, plugin)
	}

	sortByName(plugins, func(p model.Plugin) string { return p.Name })
	return plugins, issues
}

// parsePluginDir parses one plugin bundle. Malformed nested components are
// reported as issues without invalidating the whole plugin.
func (l *Loader) parsePluginDir(dir, dirName string) (model.Plugin, []Issue, error) {
	manifest := filepath.Join(dir, "plugin.yaml")
	// #nosec G304 - manifest path is derived from the configured root
	data, err := os.ReadFile(manifest)
	if err != nil {
		return model.Plugin{}, nil, syncerr.NewValidation(dirName, "missing plugin.yaml: %v", err)
	}

	var pm pluginManifest
	if err := yaml.Unmarshal(data, &pm); err != nil {
		return model.Plugin{}, nil, syncerr.NewValidation(dirName, "malformed manifest: %v", err)
	}

	name := pm.Name
	if name == "" {
		name = dirName
	}
	if name != dirName {
		return model.Plugin{}, nil, syncerr.NewValidation(dirName, "manifest name %q contradicts directory name", name)
	}

	plugin := model.Plugin{
		Name:    name,
		Version: pm.Version,
		Author:  pm.Author,
		Dir:     dir,
	}
	if err := plugin.Validate(); err != nil {
		return model.Plugin{}, nil, syncerr.NewValidation(name, "%v", err)
	}

	// Nested component trees reuse the top-level loaders rooted at the
	// plugin directory.
	nested := NewLoader(dir)
	var issues []Issue

	agents, agentIssues := nested.loadAgents()
	plugin.Agents = agents
	plugin.Components.Agents = len(agents) > 0
	issues = append(issues, agentIssues...)

	skills, skillIssues := nested.loadSkills(filepath.Join(dir, "skills"))
	plugin.Skills = skills
	plugin.Components.Skills = len(skills) > 0
	issues = append(issues, skillIssues...)

	commands, cmdIssues := nested.loadCommands()
	plugin.Commands = commands
	plugin.Components.Commands = len(commands) > 0
	issues = append(issues, cmdIssues...)

	hooks, hookIssues := nested.loadHooks()
	plugin.Hooks = hooks
	plugin.Components.Hooks = len(hooks) > 0
	issues = append(issues, hookIssues...)

	if _, err := os.Stat(filepath.Join(dir, "mcp.json")); err == nil {
		plugin.Components.Mcp = true
	}

	return plugin, issues, nil
}

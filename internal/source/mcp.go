package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/joho/godotenv"

	"github.com/agentsync/agentsync/internal/logging"
	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// mcpDocument is the on-disk shape of mcp.json.
type mcpDocument struct {
	Servers map[string]mcpServer `json:"mcpServers"`
}

type mcpServer struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// loadMcpServers reads mcp.json at the root of the canonical tree.
func (l *Loader) loadMcpServers() ([]model.McpServerEntry, []Issue) {
	file := filepath.Join(l.root, "mcp.json")
	// #nosec G304 - file path is derived from the configured root
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, nil
	}

	var doc mcpDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, []Issue{{
			Category: model.CategoryMcp,
			Path:     file,
			Err:      syncerr.NewValidation("mcp", "malformed server document: %v", err),
		}}
	}

	names := make([]string, 0, len(doc.Servers))
	for name := range doc.Servers {
		names = append(names, name)
	}
	sort.Strings(names)

	defaults := l.loadEnvDefaults()

	var servers []model.McpServerEntry
	var issues []Issue
	for _, name := range names {
		s := doc.Servers[name]
		entry := model.McpServerEntry{
			Name:    name,
			Command: s.Command,
			Args:    s.Args,
			Env:     resolveEnvDefaults(s.Env, defaults),
		}
		if err := entry.Validate(); err != nil {
			issues = append(issues, Issue{
				Category: model.CategoryMcp,
				Path:     file,
				Err:      syncerr.NewValidation(name, "%v", err),
			})
			continue
		}
		servers = append(servers, entry)
	}

	return servers, issues
}

// loadEnvDefaults reads the optional mcp.env sidecar next to mcp.json.
// It supplies local values for placeholder references; a missing or
// malformed file simply yields no defaults.
func (l *Loader) loadEnvDefaults() map[string]string {
	file := filepath.Join(l.root, "mcp.env")
	defaults, err := godotenv.Read(file)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("ignoring unreadable env defaults", logging.Path(file), logging.Err(err))
		}
		return nil
	}
	logging.Debug("loaded env defaults", logging.Path(file), logging.Count(len(defaults)))
	return defaults
}

var placeholderRef = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// resolveEnvDefaults substitutes placeholder values that have a local
// default. Values without a matching default stay as placeholders.
func resolveEnvDefaults(env, defaults map[string]string) map[string]string {
	if len(env) == 0 || len(defaults) == 0 {
		return env
	}
	out := make(map[string]string, len(env))
	for name, value := range env {
		if m := placeholderRef.FindStringSubmatch(value); m != nil {
			if def, ok := defaults[m[1]]; ok {
				out[name] = def
				continue
			}
		}
		out[name] = value
	}
	return out
}

package convert

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agentsync/agentsync/internal/model"
)

// SettingDescriptor is one inferred setting in a target's settings schema.
type SettingDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Secret      bool   `json:"secret,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Default     string `json:"default,omitempty"`
}

// secretMarkers are the name fragments that mark a setting as sensitive.
var secretMarkers = []string{"KEY", "TOKEN", "SECRET", "PASSWORD", "CREDENTIAL"}

// placeholderPattern matches values that merely reference another variable
// (${VAR} or $VAR) rather than carrying a literal default.
var placeholderPattern = regexp.MustCompile(`^\$(\{[A-Za-z_][A-Za-z0-9_]*\}|[A-Za-z_][A-Za-z0-9_]*)$`)

// SettingsInferencer derives a settings schema from the env maps of MCP
// server entries, and reconstructs env maps from a schema. The forward
// direction never copies secret values into generated files.
type SettingsInferencer struct{}

// NewSettingsInferencer creates an inferencer.
func NewSettingsInferencer() *SettingsInferencer {
	return &SettingsInferencer{}
}

// Infer derives descriptors from an env map, sorted by name.
//
// A value that is a pure placeholder reference carries no default and is
// therefore required. A literal value becomes the default and makes the
// setting optional, except for secrets: a secret's literal value is
// dropped rather than baked into target files, leaving it required.
func (si *SettingsInferencer) Infer(env map[string]string) []SettingDescriptor {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]SettingDescriptor, 0, len(names))
	for _, name := range names {
		value := env[name]
		d := SettingDescriptor{
			Name:        name,
			Description: describeSetting(name),
			Type:        "string",
			Secret:      IsSecretName(name),
		}
		switch {
		case placeholderPattern.MatchString(value) || value == "":
			d.Required = true
		case d.Secret:
			d.Required = true
		default:
			d.Default = value
		}
		out = append(out, d)
	}
	return out
}

// EnvMap reconstructs a canonical env map from descriptors. Settings
// without a default become placeholder references so the consuming
// platform resolves them from its own environment; secret values are
// never materialized.
func (si *SettingsInferencer) EnvMap(descriptors []SettingDescriptor) map[string]string {
	if len(descriptors) == 0 {
		return nil
	}
	env := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		if d.Default != "" && !d.Secret {
			env[d.Name] = d.Default
			continue
		}
		env[d.Name] = "${" + d.Name + "}"
	}
	return env
}

// IsSecretName reports whether a setting name marks sensitive material.
func IsSecretName(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range secretMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// describeSetting synthesizes a human-readable description from the
// variable name: GITHUB_TOKEN becomes "Github Token configuration".
func describeSetting(name string) string {
	words := strings.Split(strings.ToLower(name), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.TrimSpace(strings.Join(words, " ")) + " configuration"
}

// DotenvDoc renders descriptors as dotenv documentation lines, one
// commented assignment per setting. Secret defaults are never written;
// required settings appear as bare names for the user to fill in.
func (si *SettingsInferencer) DotenvDoc(descriptors []SettingDescriptor) string {
	var b strings.Builder
	for _, d := range descriptors {
		b.WriteString("# ")
		b.WriteString(d.Description)
		if d.Secret {
			b.WriteString(" (secret)")
		}
		b.WriteString("\n")
		if d.Default != "" && !d.Secret {
			b.WriteString(d.Name + "=" + d.Default + "\n")
		} else {
			b.WriteString(d.Name + "=\n")
		}
	}
	return b.String()
}

// renderEnvDoc writes the mcp.env.example sidecar: dotenv documentation
// for every inferred setting, grouped per server. Returns nil when no
// server carries settings.
func renderEnvDoc(si *SettingsInferencer, servers []model.McpServerEntry) *File {
	var b bytes.Buffer
	for _, s := range servers {
		descriptors := si.Infer(s.Env)
		if len(descriptors) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "# %s\n", s.Name)
		b.WriteString(si.DotenvDoc(descriptors))
	}
	if b.Len() == 0 {
		return nil
	}
	return &File{
		Path:     "mcp.env.example",
		Body:     b.Bytes(),
		Category: model.CategoryMcp,
		Name:     "mcp.env.example",
	}
}

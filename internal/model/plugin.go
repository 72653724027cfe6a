package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PluginComponents flags which component categories a plugin bundles.
type PluginComponents struct {
	Commands bool `yaml:"commands,omitempty" json:"commands,omitempty"`
	Agents   bool `yaml:"agents,omitempty" json:"agents,omitempty"`
	Skills   bool `yaml:"skills,omitempty" json:"skills,omitempty"`
	Hooks    bool `yaml:"hooks,omitempty" json:"hooks,omitempty"`
	Mcp      bool `yaml:"mcp,omitempty" json:"mcp,omitempty"`
}

// Plugin is the canonical record for a plugin bundle: manifest metadata plus
// the component records scoped under the plugin.
type Plugin struct {
	Name       string           `yaml:"name" json:"name"`
	Version    string           `yaml:"version,omitempty" json:"version,omitempty"`
	Author     string           `yaml:"author,omitempty" json:"author,omitempty"`
	Components PluginComponents `yaml:"components" json:"components"`

	// Bundled component records, identifiers scoped under the plugin name.
	Agents   []Agent   `yaml:"-" json:"agents,omitempty"`
	Skills   []Skill   `yaml:"-" json:"skills,omitempty"`
	Commands []Command `yaml:"-" json:"commands,omitempty"`
	Hooks    []Hook    `yaml:"-" json:"hooks,omitempty"`

	Dir string `yaml:"-" json:"-"`
}

// Validate checks the plugin manifest against the canonical invariants.
func (p Plugin) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Match(kebabCase)),
	)
}

package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// McpServerEntry is the canonical record for an MCP server registration.
// Args and Env values may contain path placeholders substituted by the
// consuming platform at load time.
type McpServerEntry struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"`
	Args    []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
}

// Validate checks the server entry against the canonical invariants.
func (m McpServerEntry) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required, validation.Match(kebabCase)),
		validation.Field(&m.Command, validation.Required),
	)
}

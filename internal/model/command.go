package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Command is the canonical record for a slash-command definition.
type Command struct {
	Name         string     `yaml:"name" json:"name"`
	Description  string     `yaml:"description" json:"description"`
	ArgumentHint string     `yaml:"argument-hint,omitempty" json:"argument_hint,omitempty"`
	Access       ToolAccess `yaml:"access" json:"access"`
	Body         string     `yaml:"-" json:"body"`

	SourcePath string    `yaml:"-" json:"-"`
	ModifiedAt time.Time `yaml:"-" json:"-"`
}

// Validate checks the command record against the canonical invariants.
func (c Command) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Match(kebabCase)),
		validation.Field(&c.Description, validation.Required),
		validation.Field(&c.Access, validation.By(validateAccess)),
	)
}

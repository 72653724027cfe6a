package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Skill is the canonical record for a skill: a definition document plus an
// optional tree of auxiliary resource files treated as opaque blobs.
type Skill struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Body        string `yaml:"-" json:"body"`

	// Dir is the skill's own directory in the canonical tree.
	Dir string `yaml:"-" json:"-"`

	// Resources holds paths relative to Dir (scripts/, references/,
	// assets/). Contents are copied verbatim, never interpreted.
	Resources []string `yaml:"-" json:"resources,omitempty"`

	ModifiedAt time.Time `yaml:"-" json:"-"`
}

// Validate checks the skill record against the canonical invariants.
func (s Skill) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required, validation.Match(kebabCase)),
		validation.Field(&s.Description, validation.Required),
	)
}

// HasResources reports whether the skill carries auxiliary files.
func (s Skill) HasResources() bool {
	return len(s.Resources) > 0
}

package model

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// kebabCase matches lowercase kebab-case identifiers like "api-designer".
var kebabCase = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ModelHint is an optional model preference carried on an agent.
type ModelHint string

const (
	ModelSonnet  ModelHint = "sonnet"
	ModelOpus    ModelHint = "opus"
	ModelHaiku   ModelHint = "haiku"
	ModelInherit ModelHint = "inherit"
)

// Agent is the canonical record for a single agent definition.
// Loaded once per run from a source file and immutable afterwards; every
// target receives a freshly converted representation on sync.
type Agent struct {
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Access      ToolAccess `yaml:"access" json:"access"`
	Model       ModelHint  `yaml:"model,omitempty" json:"model,omitempty"`
	Color       string     `yaml:"color,omitempty" json:"color,omitempty"`
	Body        string     `yaml:"-" json:"body"`

	SourcePath string    `yaml:"-" json:"-"`
	ModifiedAt time.Time `yaml:"-" json:"-"`
}

// Validate checks the agent record against the canonical invariants.
func (a Agent) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required, validation.Match(kebabCase)),
		validation.Field(&a.Description, validation.Required),
		validation.Field(&a.Model, validation.In(ModelSonnet, ModelOpus, ModelHaiku, ModelInherit, ModelHint(""))),
		validation.Field(&a.Access, validation.By(validateAccess)),
	)
}

// validateAccess enforces the allow-XOR-deny invariant. An empty allow-list
// without the explicit unrestricted mode is ambiguous between platforms and
// is rejected rather than guessed at.
func validateAccess(value any) error {
	ta, _ := value.(ToolAccess)
	switch ta.Mode {
	case AccessUnrestricted:
		if len(ta.Tools) > 0 {
			return validation.NewError("access_unrestricted_tools", "unrestricted access must not name tools")
		}
		return nil
	case AccessAllow, AccessDeny:
		if len(ta.Tools) == 0 {
			return validation.NewError("access_empty_list", "empty tool list is ambiguous; use unrestricted mode or name tools explicitly")
		}
		return nil
	default:
		return validation.NewError("access_mode", "tool access mode must be allow, deny, or unrestricted")
	}
}

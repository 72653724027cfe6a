package model

import (
	"slices"
)

// AccessMode describes how a tool-access rule restricts tool use.
type AccessMode string

const (
	// AccessAllow names the permitted tools; everything else is forbidden.
	AccessAllow AccessMode = "allow"

	// AccessDeny names the forbidden tools; everything else is permitted.
	AccessDeny AccessMode = "deny"

	// AccessUnrestricted permits every tool. This is distinct from an empty
	// allow-list, which means "allow nothing".
	AccessUnrestricted AccessMode = "unrestricted"
)

// ToolAccess is a tool permissioning rule relative to a closed universe of
// known tools. A record carries either an allow-list or a deny-list, never
// both; the unrestricted state is explicit rather than inferred from an
// empty list because target platforms disagree on empty-list semantics.
type ToolAccess struct {
	Mode  AccessMode `yaml:"mode" json:"mode"`
	Tools []string   `yaml:"tools,omitempty" json:"tools,omitempty"`
}

// Unrestricted returns the explicit allow-everything rule.
func Unrestricted() ToolAccess {
	return ToolAccess{Mode: AccessUnrestricted}
}

// AllowList returns an allow-list rule over the given tools.
func AllowList(tools ...string) ToolAccess {
	return ToolAccess{Mode: AccessAllow, Tools: tools}
}

// DenyList returns a deny-list rule over the given tools.
func DenyList(tools ...string) ToolAccess {
	return ToolAccess{Mode: AccessDeny, Tools: tools}
}

// IsUnrestricted reports whether every tool is permitted.
func (ta ToolAccess) IsUnrestricted() bool {
	return ta.Mode == AccessUnrestricted
}

// Permits reports whether the named tool is allowed by this rule.
func (ta ToolAccess) Permits(tool string) bool {
	switch ta.Mode {
	case AccessUnrestricted:
		return true
	case AccessAllow:
		return slices.Contains(ta.Tools, tool)
	case AccessDeny:
		return !slices.Contains(ta.Tools, tool)
	default:
		return false
	}
}

// ToolUniverse is the closed set of tool identifiers known to the canonical
// platform. Inversion between allow- and deny-lists is defined relative to
// a universe.
type ToolUniverse []string

// DefaultToolUniverse returns the canonical platform's tool set.
func DefaultToolUniverse() ToolUniverse {
	return ToolUniverse{
		"Bash",
		"Edit",
		"Glob",
		"Grep",
		"NotebookEdit",
		"Read",
		"Task",
		"WebFetch",
		"WebSearch",
		"Write",
	}
}

// Contains reports whether the universe includes the named tool.
func (u ToolUniverse) Contains(tool string) bool {
	return slices.Contains(u, tool)
}

package convert

import (
	"sort"

	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// ToolInverter translates tool-access rules between allow-list and
// deny-list conventions over a closed tool universe. Gemini-family targets
// express restrictions as excludeTools (deny); the canonical model mostly
// carries allow-lists, so projection inverts the set.
type ToolInverter struct {
	universe model.ToolUniverse
}

// NewToolInverter creates an inverter over the given universe.
func NewToolInverter(universe model.ToolUniverse) *ToolInverter {
	return &ToolInverter{universe: universe}
}

// ToDenyList expresses the access rule as the tools to exclude. An
// unrestricted rule excludes nothing. Tools outside the universe are a
// conversion error because their complement is undefined.
func (ti *ToolInverter) ToDenyList(component string, target model.Target, access model.ToolAccess) ([]string, error) {
	switch access.Mode {
	case model.AccessUnrestricted:
		return nil, nil
	case model.AccessDeny:
		if err := ti.checkKnown(component, target, access.Tools); err != nil {
			return nil, err
		}
		return sortedCopy(access.Tools), nil
	case model.AccessAllow:
		if err := ti.checkKnown(component, target, access.Tools); err != nil {
			return nil, err
		}
		return ti.complement(access.Tools), nil
	default:
		return nil, syncerr.NewConversion(component, string(target), "tool access mode %q is not projectable", access.Mode)
	}
}

// FromDenyList reconstructs a canonical access rule from an excludeTools
// list. An absent list (nil) means unrestricted; a present list denies the
// named tools. The inverse of ToDenyList up to allow/deny representation:
// round-tripping preserves the permitted tool set exactly.
func (ti *ToolInverter) FromDenyList(excluded []string) model.ToolAccess {
	if excluded == nil {
		return model.Unrestricted()
	}
	allowed := ti.complement(excluded)
	if len(allowed) > len(excluded) {
		// Prefer the shorter representation, matching how authors write
		// these lists by hand.
		return model.DenyList(sortedCopy(excluded)...)
	}
	return model.AllowList(allowed...)
}

// checkKnown verifies every named tool belongs to the universe.
func (ti *ToolInverter) checkKnown(component string, target model.Target, tools []string) error {
	for _, tool := range tools {
		if !ti.universe.Contains(tool) {
			return syncerr.NewConversion(component, string(target), "tool %q is outside the known tool set", tool)
		}
	}
	return nil
}

// complement returns the universe members not present in tools, sorted.
func (ti *ToolInverter) complement(tools []string) []string {
	named := make(map[string]bool, len(tools))
	for _, t := range tools {
		named[t] = true
	}
	var out []string
	for _, t := range ti.universe {
		if !named[t] {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

package model

import "fmt"

// Target represents a supported target platform
type Target string

const (
	Gemini      Target = "gemini"
	Antigravity Target = "antigravity"
	Codex       Target = "codex"
)

// IsValid returns true if the target is recognized
func (t Target) IsValid() bool {
	switch t {
	case Gemini, Antigravity, Codex:
		return true
	default:
		return false
	}
}

// AllTargets returns all supported target platforms
func AllTargets() []Target {
	return []Target{Gemini, Antigravity, Codex}
}

// ParseTarget parses a target platform identifier.
func ParseTarget(s string) (Target, error) {
	t := Target(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown target platform %q (supported: gemini, antigravity, codex)", s)
	}
	return t, nil
}

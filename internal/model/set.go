package model

// Set is the canonical model loaded once per run: every component record in
// platform-neutral form. It is read-only after loading and safe to share
// across parallel target workers.
type Set struct {
	Agents   []Agent
	Skills   []Skill
	Commands []Command
	Hooks    []Hook
	Plugins  []Plugin
	Servers  []McpServerEntry
}

// Agent looks up an agent by name.
func (s *Set) Agent(name string) (Agent, bool) {
	for _, a := range s.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return Agent{}, false
}

// Counts returns the number of records per category.
func (s *Set) Counts() map[Category]int {
	return map[Category]int{
		CategoryAgent:   len(s.Agents),
		CategorySkill:   len(s.Skills),
		CategoryCommand: len(s.Commands),
		CategoryHook:    len(s.Hooks),
		CategoryPlugin:  len(s.Plugins),
		CategoryMcp:     len(s.Servers),
	}
}

// Empty reports whether the set holds no records at all.
func (s *Set) Empty() bool {
	return len(s.Agents) == 0 && len(s.Skills) == 0 && len(s.Commands) == 0 &&
		len(s.Hooks) == 0 && len(s.Plugins) == 0 && len(s.Servers) == 0
}

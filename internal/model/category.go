package model

// Category classifies a configuration component.
type Category string

const (
	CategoryAgent   Category = "agent"
	CategorySkill   Category = "skill"
	CategoryCommand Category = "command"
	CategoryHook    Category = "hook"
	CategoryPlugin  Category = "plugin"
	CategoryMcp     Category = "mcp"

	// CategoryAll matches every category in exclusion rules.
	CategoryAll Category = "*"
)

// IsValid returns true if the category is recognized.
// CategoryAll is valid only in exclusion rules, not on records.
func (c Category) IsValid() bool {
	switch c {
	case CategoryAgent, CategorySkill, CategoryCommand, CategoryHook, CategoryPlugin, CategoryMcp:
		return true
	default:
		return false
	}
}

// Matches reports whether the category applies to other, treating
// CategoryAll as a wildcard.
func (c Category) Matches(other Category) bool {
	return c == CategoryAll || c == other
}

// AllCategories returns the record categories (excluding the wildcard).
func AllCategories() []Category {
	return []Category{CategoryAgent, CategorySkill, CategoryCommand, CategoryHook, CategoryPlugin, CategoryMcp}
}

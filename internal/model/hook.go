package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// HookEvent is one of the closed set of lifecycle events a hook can bind to.
type HookEvent string

const (
	PreToolUse       HookEvent = "PreToolUse"
	PostToolUse      HookEvent = "PostToolUse"
	UserPromptSubmit HookEvent = "UserPromptSubmit"
	Notification     HookEvent = "Notification"
	Stop             HookEvent = "Stop"
	SessionStart     HookEvent = "SessionStart"
	SessionEnd       HookEvent = "SessionEnd"
)

// AllHookEvents returns every recognized hook event.
func AllHookEvents() []HookEvent {
	return []HookEvent{
		PreToolUse, PostToolUse, UserPromptSubmit,
		Notification, Stop, SessionStart, SessionEnd,
	}
}

// IsValid returns true if the event is recognized.
func (e HookEvent) IsValid() bool {
	for _, known := range AllHookEvents() {
		if e == known {
			return true
		}
	}
	return false
}

// HookAction is a single executable action within a hook.
type HookAction struct {
	Command string        `yaml:"command" json:"command"`
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Hook binds an ordered sequence of actions to a lifecycle event, optionally
// scoped to tool identifiers by a matcher pattern.
type Hook struct {
	Event   HookEvent    `yaml:"event" json:"event"`
	Matcher string       `yaml:"matcher,omitempty" json:"matcher,omitempty"`
	Actions []HookAction `yaml:"actions" json:"actions"`
}

// Name returns the hook's identity within the hook namespace: the event
// name plus the matcher when present. Hooks have no free-form identifier.
func (h Hook) Name() string {
	if h.Matcher == "" {
		return string(h.Event)
	}
	return string(h.Event) + ":" + h.Matcher
}

// Validate checks the hook record against the canonical invariants.
func (h Hook) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Event, validation.Required, validation.By(func(any) error {
			if !h.Event.IsValid() {
				return validation.NewError("hook_event", "unknown hook event")
			}
			return nil
		})),
		validation.Field(&h.Actions, validation.Required, validation.Each(validation.By(func(v any) error {
			action, _ := v.(HookAction)
			if action.Command == "" {
				return validation.NewError("hook_action_command", "hook action requires a command")
			}
			return nil
		}))),
	)
}

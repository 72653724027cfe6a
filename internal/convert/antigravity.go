package convert

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// Antigravity is the gemini-family converter for the antigravity platform.
// It shares the gemini projection and additionally represents hooks as a
// hooks.json document, which plain gemini cannot carry.
type Antigravity struct {
	gemini *Gemini
}

// NewAntigravity creates the antigravity converter.
func NewAntigravity() *Antigravity {
	return &Antigravity{gemini: newGeminiFor(model.Antigravity)}
}

// Target implements Converter.
func (a *Antigravity) Target() model.Target { return model.Antigravity }

// Render implements Converter.
func (a *Antigravity) Render(set *model.Set) ([]File, []Issue) {
	// Hooks are rendered here, so the embedded gemini converter must not
	// see them and log a drop notice.
	trimmed := *set
	trimmed.Hooks = nil

	files, issues := a.gemini.Render(&trimmed)

	hooks := make([]model.Hook, len(set.Hooks))
	copy(hooks, set.Hooks)
	for _, p := range set.Plugins {
		hooks = append(hooks, p.Hooks...)
	}
	if len(hooks) > 0 {
		file, err := renderHooksDoc(hooks)
		if err != nil {
			issues = append(issues, Issue{Category: model.CategoryHook, Name: "hooks.json", Err: err})
		} else {
			files = append(files, file)
		}
	}

	return files, issues
}

// ParseAgent delegates to the shared gemini-family envelope.
func (a *Antigravity) ParseAgent(content []byte) (model.Agent, error) {
	return a.gemini.ParseAgent(content)
}

// hooksDoc is the on-disk shape of hooks.json: event name to matcher
// groups, stable order throughout.
type hooksDoc struct {
	Hooks []hookEntryOut `json:"hooks"`
}

type hookEntryOut struct {
	Event   string         `json:"event"`
	Matcher string         `json:"matcher,omitempty"`
	Actions []hookActionOs `json:"actions"`
}

type hookActionOs struct {
	Command        string `json:"command"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

// renderHooksDoc projects hook records into hooks.json, sorted by hook
// identity for reproducible bytes.
func renderHooksDoc(hooks []model.Hook) (File, error) {
	sorted := make([]model.Hook, len(hooks))
	copy(sorted, hooks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })

	doc := hooksDoc{}
	for _, h := range sorted {
		entry := hookEntryOut{
			Event:   string(h.Event),
			Matcher: h.Matcher,
		}
		for _, action := range h.Actions {
			entry.Actions = append(entry.Actions, hookActionOs{
				Command:        action.Command,
				TimeoutSeconds: int(action.Timeout / time.Second),
			})
		}
		doc.Hooks = append(doc.Hooks, entry)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return File{}, err
	}
	data = append(data, '\n')

	return File{
		Path:     "hooks.json",
		Body:     data,
		Category: model.CategoryHook,
		Name:     "hooks.json",
	}, nil
}

// ParseHooks reconstructs canonical hook records from hooks.json.
func (a *Antigravity) ParseHooks(content []byte) ([]model.Hook, error) {
	var doc hooksDoc
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, syncerr.NewConversion("hooks.json", string(model.Antigravity), "%v", err)
	}

	out := make([]model.Hook, 0, len(doc.Hooks))
	for _, entry := range doc.Hooks {
		h := model.Hook{
			Event:   model.HookEvent(entry.Event),
			Matcher: entry.Matcher,
		}
		for _, action := range entry.Actions {
			h.Actions = append(h.Actions, model.HookAction{
				Command: action.Command,
				Timeout: time.Duration(action.TimeoutSeconds) * time.Second,
			})
		}
		out = append(out, h)
	}
	return out, nil
}

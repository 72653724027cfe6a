package convert

import (
	"path"
	"regexp"
	"strings"

	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncerr"
)

// Canonical and target-side root tokens used inside component bodies and
// hook commands. Paths under a token stay relative to whichever root the
// consuming platform mounts.
const (
	canonicalRootToken = "${CLAUDE_PLUGIN_ROOT}"
	geminiRootToken    = "${extensionPath}"
)

// tokenPattern matches any ${...} placeholder so unknown tokens can be
// rejected instead of passed through silently.
var tokenPattern = regexp.MustCompile(`\$\{[^}]*\}`)

// PathTemplater rewrites root-token path references between the canonical
// convention and a target's convention.
type PathTemplater struct {
	target      model.Target
	targetToken string
}

// NewPathTemplater creates a templater for the given target. Codex has no
// root token of its own; its templater keeps canonical tokens intact.
func NewPathTemplater(target model.Target) *PathTemplater {
	token := ""
	switch target {
	case model.Gemini, model.Antigravity:
		token = geminiRootToken
	}
	return &PathTemplater{target: target, targetToken: token}
}

// ToTarget rewrites canonical root tokens in text to the target's token.
// Unknown tokens and token paths that escape the root are conversion
// errors; text without tokens passes through untouched.
func (pt *PathTemplater) ToTarget(component, text string) (string, error) {
	if err := pt.check(component, text); err != nil {
		return "", err
	}
	if pt.targetToken == "" {
		return text, nil
	}
	return strings.ReplaceAll(text, canonicalRootToken, pt.targetToken), nil
}

// ToCanonical rewrites the target's root tokens back to the canonical one.
func (pt *PathTemplater) ToCanonical(component, text string) (string, error) {
	if pt.targetToken != "" {
		text = strings.ReplaceAll(text, pt.targetToken, canonicalRootToken)
	}
	if err := pt.check(component, text); err != nil {
		return "", err
	}
	return text, nil
}

// check rejects unknown tokens and root escapes.
func (pt *PathTemplater) check(component, text string) error {
	for _, tok := range tokenPattern.FindAllString(text, -1) {
		if tok != canonicalRootToken && tok != pt.targetToken {
			return syncerr.NewConversion(component, string(pt.target), "unknown path token %s", tok)
		}
	}

	for _, ref := range tokenPattern.Split(text, -1)[1:] {
		// ref is the text immediately following a token; take the path
		// portion up to whitespace or a quote.
		rel := leadingPath(ref)
		if rel == "" {
			continue
		}
		clean := path.Clean("/" + strings.TrimPrefix(rel, "/"))
		if clean == "/.." || strings.HasPrefix(clean, "/../") || strings.Contains(rel, "..") {
			return syncerr.NewConversion(component, string(pt.target), "path %q escapes the component root", rel)
		}
	}
	return nil
}

// leadingPath extracts the path characters that directly follow a token.
func leadingPath(s string) string {
	end := len(s)
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '"' || r == '\'' || r == '`' || r == ')' {
			end = i
			break
		}
	}
	return s[:end]
}

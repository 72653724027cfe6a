package source

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterResult contains the parsed frontmatter and remaining body.
type frontmatterResult struct {
	// Frontmatter contains the raw YAML bytes between the delimiters.
	Frontmatter []byte
	// Body contains the content after the closing delimiter.
	Body string
	// Found indicates whether a frontmatter block was present.
	Found bool
}

var fmDelim = []byte("---")

// splitFrontmatter extracts a leading YAML frontmatter block delimited by
// --- lines. Handles both \n and \r\n line endings.
func splitFrontmatter(content []byte) frontmatterResult {
	if !bytes.HasPrefix(content, fmDelim) {
		return frontmatterResult{Body: string(content)}
	}

	rest := content[len(fmDelim):]
	switch {
	case bytes.HasPrefix(rest, []byte("\r\n")):
		rest = rest[2:]
	case bytes.HasPrefix(rest, []byte("\n")):
		rest = rest[1:]
	default:
		// "---something" is a horizontal rule, not frontmatter
		return frontmatterResult{Body: string(content)}
	}

	var fm []byte
	var bodyStart int
	switch {
	case bytes.HasPrefix(rest, fmDelim):
		// Empty frontmatter: ---\n---\n
		fm = []byte{}
		bodyStart = len(fmDelim)
	default:
		idx := bytes.Index(rest, append([]byte("\n"), fmDelim...))
		if idx < 0 {
			return frontmatterResult{Body: string(content)}
		}
		fm = rest[:idx]
		bodyStart = idx + 1 + len(fmDelim)
	}

	body := rest[bodyStart:]
	switch {
	case bytes.HasPrefix(body, []byte("\r\n")):
		body = body[2:]
	case bytes.HasPrefix(body, []byte("\n")):
		body = body[1:]
	}

	fm = bytes.ReplaceAll(fm, []byte("\r\n"), []byte("\n"))

	return frontmatterResult{
		Frontmatter: fm,
		Body:        string(body),
		Found:       true,
	}
}

// parseFrontmatter decodes a frontmatter block into dst.
func parseFrontmatter(fm []byte, dst any) error {
	if len(fm) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(fm, dst); err != nil {
		return fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	return nil
}

// normalizeBody trims surrounding whitespace and normalizes line endings.
func normalizeBody(body string) string {
	b := bytes.TrimSpace([]byte(body))
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	return string(b)
}

// lenient is a string list that accepts either a YAML sequence or a
// comma-separated scalar, both of which appear in the wild:
//
//	tools: [Read, Grep]
//	tools: Read, Grep
//
// A decoded value distinguishes "key absent" (nil pointer) from "key
// present but empty" (non-nil with no values).
type lenient struct {
	values []string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *lenient) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		for _, item := range items {
			if s := strings.TrimSpace(item); s != "" {
				l.values = append(l.values, s)
			}
		}
		return nil
	case yaml.ScalarNode:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		for _, part := range strings.Split(raw, ",") {
			if s := strings.TrimSpace(part); s != "" {
				l.values = append(l.values, s)
			}
		}
		return nil
	default:
		return fmt.Errorf("expected list or string, got %v node", node.Kind)
	}
}

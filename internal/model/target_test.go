package model

import "testing"

func TestParseTarget(t *testing.T) {
	tests := map[string]struct {
		input   string
		want    Target
		wantErr bool
	}{
		"gemini":      {input: "gemini", want: Gemini},
		"antigravity": {input: "antigravity", want: Antigravity},
		"codex":       {input: "codex", want: Codex},
		"unknown":     {input: "cursor", wantErr: true},
		"empty":       {input: "", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseTarget(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTarget(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseTarget(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCategoryMatches(t *testing.T) {
	if !CategoryAll.Matches(CategorySkill) {
		t.Error("wildcard category should match skill")
	}
	if !CategoryAgent.Matches(CategoryAgent) {
		t.Error("category should match itself")
	}
	if CategoryAgent.Matches(CategorySkill) {
		t.Error("agent category should not match skill")
	}
}

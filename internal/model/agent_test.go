package model

import "testing"

func TestAgentValidate(t *testing.T) {
	tests := map[string]struct {
		agent   Agent
		wantErr bool
	}{
		"valid allow-list agent": {
			agent: Agent{
				Name:        "api-designer",
				Description: "Designs REST APIs",
				Access:      AllowList("Read", "Write", "Edit"),
			},
		},
		"valid deny-list agent": {
			agent: Agent{
				Name:        "doc-writer",
				Description: "Writes documentation",
				Access:      DenyList("Bash"),
			},
		},
		"valid unrestricted agent": {
			agent: Agent{
				Name:        "orchestrator",
				Description: "Coordinates everything",
				Access:      Unrestricted(),
			},
		},
		"missing name": {
			agent: Agent{
				Description: "no identity",
				Access:      Unrestricted(),
			},
			wantErr: true,
		},
		"name not kebab-case": {
			agent: Agent{
				Name:        "ApiDesigner",
				Description: "bad casing",
				Access:      Unrestricted(),
			},
			wantErr: true,
		},
		"missing description": {
			agent: Agent{
				Name:   "api-designer",
				Access: Unrestricted(),
			},
			wantErr: true,
		},
		"empty allow-list is ambiguous": {
			agent: Agent{
				Name:        "api-designer",
				Description: "ambiguous tools",
				Access:      ToolAccess{Mode: AccessAllow},
			},
			wantErr: true,
		},
		"empty deny-list is ambiguous": {
			agent: Agent{
				Name:        "api-designer",
				Description: "ambiguous tools",
				Access:      ToolAccess{Mode: AccessDeny},
			},
			wantErr: true,
		},
		"unrestricted must not name tools": {
			agent: Agent{
				Name:        "api-designer",
				Description: "contradictory access",
				Access:      ToolAccess{Mode: AccessUnrestricted, Tools: []string{"Read"}},
			},
			wantErr: true,
		},
		"unknown model hint": {
			agent: Agent{
				Name:        "api-designer",
				Description: "bad model",
				Model:       "gpt-8",
				Access:      Unrestricted(),
			},
			wantErr: true,
		},
		"known model hint": {
			agent: Agent{
				Name:        "api-designer",
				Description: "good model",
				Model:       ModelSonnet,
				Access:      Unrestricted(),
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.agent.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Agent.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestToolAccessPermits(t *testing.T) {
	tests := map[string]struct {
		access ToolAccess
		tool   string
		want   bool
	}{
		"allow-list contains tool":        {AllowList("Read", "Write"), "Read", true},
		"allow-list missing tool":         {AllowList("Read", "Write"), "Bash", false},
		"deny-list contains tool":         {DenyList("Bash"), "Bash", false},
		"deny-list missing tool":          {DenyList("Bash"), "Read", true},
		"unrestricted permits everything": {Unrestricted(), "Bash", true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.access.Permits(tt.tool); got != tt.want {
				t.Errorf("Permits(%q) = %v, want %v", tt.tool, got, tt.want)
			}
		})
	}
}

package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/syncer"
)

func TestTallyAndFailed(t *testing.T) {
	run := &Run{
		Targets: []syncer.TargetResult{
			{
				Target: model.Gemini,
				Entries: []syncer.EntryResult{
					{Entry: syncer.Entry{Path: "a"}, Outcome: syncer.OutcomeApplied},
					{Entry: syncer.Entry{Path: "b"}, Outcome: syncer.OutcomeSkipped},
				},
			},
			{
				Target: model.Codex,
				Entries: []syncer.EntryResult{
					{Entry: syncer.Entry{Path: "c"}, Outcome: syncer.OutcomeApplied},
				},
			},
		},
	}

	c := run.Tally()
	if c.Applied != 2 || c.Skipped != 1 {
		t.Errorf("tally = %+v", c)
	}
	if !run.Failed() {
		t.Error("run with a conflict should report failure")
	}

	run.Targets[0].Entries = run.Targets[0].Entries[:1]
	if run.Failed() {
		t.Error("clean run should not report failure")
	}
}

func TestWriteEnumeratesEveryEntry(t *testing.T) {
	run := &Run{
		Targets: []syncer.TargetResult{{
			Target: model.Gemini,
			Entries: []syncer.EntryResult{
				{Entry: syncer.Entry{Path: "settings.json", Action: syncer.ActionCreate}, Outcome: syncer.OutcomeApplied},
				{Entry: syncer.Entry{Path: "GEMINI.md", Action: syncer.ActionUpdate}, Outcome: syncer.OutcomeSkipped},
			},
			BackupID: "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		}},
	}

	var buf bytes.Buffer
	run.Write(&buf)
	out := buf.String()

	for _, want := range []string{"settings.json", "GEMINI.md", "conflict", "01ARZ3NDEKTSV4RRFFQ69G5FAV", "1 applied", "1 conflicts"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteList(t *testing.T) {
	set := &model.Set{
		Agents: []model.Agent{{Name: "api-designer", Description: "Designs APIs"}},
		Skills: []model.Skill{{Name: "deploy-guide"}},
	}

	var buf bytes.Buffer
	WriteList(&buf, set)
	out := buf.String()

	if !strings.Contains(out, "agents (1)") || !strings.Contains(out, "api-designer") {
		t.Errorf("list output:\n%s", out)
	}
	if !strings.Contains(out, "skills (1)") || !strings.Contains(out, "deploy-guide") {
		t.Errorf("list output:\n%s", out)
	}
	if strings.Contains(out, "commands") {
		t.Errorf("empty sections should be omitted:\n%s", out)
	}
}

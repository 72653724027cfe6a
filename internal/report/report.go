// Package report aggregates run outcomes into a single structure and
// renders the CLI summary. Every entry the run touched appears exactly
// once with its terminal state; nothing is silently dropped.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/agentsync/agentsync/internal/exclusion"
	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/source"
	"github.com/agentsync/agentsync/internal/syncer"
)

// Run is the complete record of one sync or plan invocation.
type Run struct {
	DryRun bool

	// LoadIssues are source records that never made it into the model.
	LoadIssues []source.Issue
	// Excluded are components dropped by exclusion rules.
	Excluded []exclusion.Exclusion
	// Targets holds the per-target outcomes in display order.
	Targets []syncer.TargetResult
}

// Counts is the summary tally across all targets.
type Counts struct {
	Applied  int
	Planned  int
	Skipped  int
	Failed   int
	Deadline int
	Issues   int
	Excluded int
}

// Tally computes the summary counts.
func (r *Run) Tally() Counts {
	c := Counts{Excluded: len(r.Excluded), Issues: len(r.LoadIssues)}
	for _, tr := range r.Targets {
		c.Issues += len(tr.Issues)
		for _, er := range tr.Entries {
			switch er.Outcome {
			case syncer.OutcomeApplied:
				c.Applied++
			case syncer.OutcomePlanned:
				c.Planned++
			case syncer.OutcomeSkipped:
				c.Skipped++
			case syncer.OutcomeFailed:
				c.Failed++
			case syncer.OutcomeDeadline:
				c.Deadline++
			}
		}
	}
	return c
}

// Failed reports whether the run should exit non-zero: any failed entry,
// unresolved conflict, or target-level error.
func (r *Run) Failed() bool {
	c := r.Tally()
	if c.Failed > 0 || c.Skipped > 0 {
		return true
	}
	for _, tr := range r.Targets {
		if tr.Err != nil {
			return true
		}
	}
	return false
}

var (
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed)
	faintColor = color.New(color.Faint)
	boldColor  = color.New(color.Bold)
)

// Write renders the human-readable report.
func (r *Run) Write(w io.Writer) {
	for _, tr := range r.Targets {
		boldColor.Fprintf(w, "%s\n", tr.Target)

		if tr.Err != nil {
			errColor.Fprintf(w, "  run failed: %v\n", tr.Err)
			continue
		}
		if len(tr.Entries) == 0 {
			faintColor.Fprintln(w, "  up to date")
		}

		for _, er := range sortedEntries(tr.Entries) {
			switch er.Outcome {
			case syncer.OutcomeApplied:
				okColor.Fprintf(w, "  %-8s %s\n", verb(er.Entry.Action), er.Entry.Path)
			case syncer.OutcomePlanned:
				fmt.Fprintf(w, "  %-8s %s\n", verb(er.Entry.Action), er.Entry.Path)
				if er.Entry.Diff != "" {
					faintColor.Fprintln(w, indent(er.Entry.Diff, "    "))
				}
			case syncer.OutcomeSkipped:
				warnColor.Fprintf(w, "  conflict %s (use --force to overwrite)\n", er.Entry.Path)
			case syncer.OutcomeFailed:
				errColor.Fprintf(w, "  failed   %s: %v\n", er.Entry.Path, er.Err)
			case syncer.OutcomeDeadline:
				warnColor.Fprintf(w, "  deadline %s (not started)\n", er.Entry.Path)
			}
		}

		for _, issue := range tr.Issues {
			warnColor.Fprintf(w, "  skipped  %s/%s: %v\n", issue.Category, issue.Name, issue.Err)
		}
		if tr.BackupID != "" {
			faintColor.Fprintf(w, "  backup %s\n", tr.BackupID)
		}
	}

	for _, ex := range r.Excluded {
		faintColor.Fprintf(w, "excluded %s/%s (rule %s)\n", ex.Category, ex.Name, ex.Rule.ID)
	}
	for _, issue := range r.LoadIssues {
		warnColor.Fprintf(w, "not loaded %s: %v\n", issue.Path, issue.Err)
	}

	r.writeSummary(w)
}

// writeSummary prints the one-line tally.
func (r *Run) writeSummary(w io.Writer) {
	c := r.Tally()
	verb := "applied"
	count := c.Applied
	if r.DryRun {
		verb = "planned"
		count = c.Planned
	}

	fmt.Fprintf(w, "\n%d %s", count, verb)
	if c.Skipped > 0 {
		warnColor.Fprintf(w, ", %d conflicts", c.Skipped)
	}
	if c.Failed > 0 {
		errColor.Fprintf(w, ", %d failed", c.Failed)
	}
	if c.Deadline > 0 {
		warnColor.Fprintf(w, ", %d not started (deadline)", c.Deadline)
	}
	if c.Excluded > 0 {
		fmt.Fprintf(w, ", %d excluded", c.Excluded)
	}
	if c.Issues > 0 {
		fmt.Fprintf(w, ", %d skipped records", c.Issues)
	}
	fmt.Fprintln(w)
}

// sortedEntries orders entries by path for stable output.
func sortedEntries(entries []syncer.EntryResult) []syncer.EntryResult {
	out := make([]syncer.EntryResult, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Entry.Path < out[j].Entry.Path })
	return out
}

// verb maps an action to its display verb.
func verb(a syncer.Action) string {
	switch a {
	case syncer.ActionCreate:
		return "create"
	case syncer.ActionUpdate:
		return "update"
	case syncer.ActionDelete:
		return "delete"
	default:
		return "keep"
	}
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	out := prefix
	for i, r := range s {
		out += string(r)
		if r == '\n' && i != len(s)-1 {
			out += prefix
		}
	}
	return out
}

// WriteList renders the canonical inventory for the list command.
func WriteList(w io.Writer, set *model.Set) {
	section := func(title string, names []string) {
		if len(names) == 0 {
			return
		}
		boldColor.Fprintf(w, "%s (%d)\n", title, len(names))
		for _, n := range names {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}

	section("agents", names(set.Agents, func(a model.Agent) string {
		if a.Description != "" {
			return a.Name + faintColor.Sprintf("  %s", a.Description)
		}
		return a.Name
	}))
	section("skills", names(set.Skills, func(s model.Skill) string { return s.Name }))
	section("commands", names(set.Commands, func(c model.Command) string { return c.Name }))
	section("hooks", names(set.Hooks, func(h model.Hook) string { return h.Name() }))
	section("plugins", names(set.Plugins, func(p model.Plugin) string { return p.Name }))
	section("mcp servers", names(set.Servers, func(m model.McpServerEntry) string { return m.Name }))
}

// names projects and sorts display names.
func names[T any](items []T, f func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = f(item)
	}
	sort.Strings(out)
	return out
}

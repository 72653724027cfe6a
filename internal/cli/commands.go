// Package cli command definitions for agentsync.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/agentsync/agentsync/internal/config"
	"github.com/agentsync/agentsync/internal/exclusion"
	"github.com/agentsync/agentsync/internal/graph"
	"github.com/agentsync/agentsync/internal/logging"
	"github.com/agentsync/agentsync/internal/model"
	"github.com/agentsync/agentsync/internal/report"
	"github.com/agentsync/agentsync/internal/source"
	"github.com/agentsync/agentsync/internal/syncer"
	"github.com/agentsync/agentsync/internal/watch"
)

// errRunFailed signals a non-zero exit after the report already explained
// the problem.
var errRunFailed = errors.New("sync completed with errors")

// loadModel reads the canonical tree and applies exclusion rules.
func loadModel(cfg *config.Config) (*model.Set, []source.Issue, []exclusion.Exclusion, error) {
	set, issues, err := source.NewLoader(cfg.Source.Root).Load()
	if err != nil {
		return nil, nil, nil, err
	}

	filter, err := exclusion.Load(cfg.Source.Exclusions)
	if err != nil {
		return nil, nil, nil, err
	}

	filtered, dropped := filter.Apply(set)
	return filtered, issues, dropped, nil
}

// resolveTargets parses the --target selection, defaulting to all.
func resolveTargets(cmd *cli.Command) ([]model.Target, error) {
	names := cmd.StringSlice("target")
	if len(names) == 0 {
		return model.AllTargets(), nil
	}
	var out []model.Target
	for _, name := range names {
		t, err := model.ParseTarget(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return syncer.SortTargets(out), nil
}

func targetFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "target",
		Aliases: []string{"t"},
		Usage:   "Target platform (gemini, antigravity, codex); repeatable, default all",
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Render the canonical model onto the target platforms",
		Flags: []cli.Flag{
			targetFlag(),
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Preview changes without modifying files",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite files changed outside of agentsync (after backup)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Bound the run; in-flight entries finish, new ones do not start",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep running and re-sync on source changes",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			targets, err := resolveTargets(cmd)
			if err != nil {
				return err
			}

			opts := syncer.Options{
				DryRun: cmd.Bool("dry-run"),
				Force:  cmd.Bool("force"),
			}
			timeout := cmd.Duration("timeout")
			if timeout == 0 {
				timeout = cfg.Sync.Timeout
			}

			runOnce := func(ctx context.Context) error {
				if timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, timeout)
					defer cancel()
				}
				return executeRun(ctx, cfg, targets, opts)
			}

			if !cmd.Bool("watch") {
				return runOnce(ctx)
			}

			w, err := watch.New(cfg.Source.Root, 0)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := runOnce(ctx); err != nil && !errors.Is(err, errRunFailed) {
				return err
			}
			logging.Info("watching for changes", logging.Path(cfg.Source.Root))
			err = w.Run(ctx, func() {
				if err := runOnce(ctx); err != nil && !errors.Is(err, errRunFailed) {
					logging.Error("re-sync failed", logging.Err(err))
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// executeRun loads, syncs, and reports one pass.
func executeRun(ctx context.Context, cfg *config.Config, targets []model.Target, opts syncer.Options) error {
	set, issues, dropped, err := loadModel(cfg)
	if err != nil {
		return err
	}

	engine := syncer.NewEngine(cfg)
	results := engine.Run(ctx, set, targets, opts)

	run := &report.Run{
		DryRun:     opts.DryRun,
		LoadIssues: issues,
		Excluded:   dropped,
		Targets:    results,
	}
	run.Write(os.Stdout)

	if run.Failed() {
		return errRunFailed
	}
	return nil
}

func planCommand() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Show what sync would change, with diffs",
		Flags: []cli.Flag{targetFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			targets, err := resolveTargets(cmd)
			if err != nil {
				return err
			}
			return executeRun(ctx, cfg, targets, syncer.Options{DryRun: true})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the canonical components after exclusion filtering",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			set, _, dropped, err := loadModel(cfg)
			if err != nil {
				return err
			}
			report.WriteList(os.Stdout, set)
			if len(dropped) > 0 {
				fmt.Printf("\n%d components excluded by rules\n", len(dropped))
			}
			return nil
		},
	}
}

func graphCommand() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Usage:     "Show agent relationships derived from name mentions",
		UsageText: "agentsync graph [agent]",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			set, _, _, err := loadModel(cfg)
			if err != nil {
				return err
			}

			analyzer := graph.New(set.Agents)

			if name := cmd.Args().First(); name != "" {
				node := analyzer.Node(name)
				if node == nil {
					return fmt.Errorf("unknown agent %q", name)
				}
				printNode(node)
				for child := range analyzer.Descendants(name) {
					fmt.Printf("  reaches %s (depth %d)\n", child.Name, child.Depth)
				}
				return nil
			}

			for node := range analyzer.All() {
				printNode(node)
			}
			return nil
		},
	}
}

// printNode renders one graph node.
func printNode(node *graph.Node) {
	fmt.Printf("%s (depth %d)\n", node.Name, node.Depth)
	if len(node.Parents) > 0 {
		fmt.Printf("  parents:  %v\n", node.Parents)
	}
	if len(node.Children) > 0 {
		fmt.Printf("  children: %v\n", node.Children)
	}
	if len(node.Siblings) > 0 {
		fmt.Printf("  siblings: %v\n", node.Siblings)
	}
}

func exclusionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "exclusions",
		Usage: "Manage exclusion rules",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show the active exclusion rules",
				Action: func(_ context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					filter, err := exclusion.Load(cfg.Source.Exclusions)
					if err != nil {
						return err
					}
					for _, r := range filter.Rules() {
						fmt.Printf("%-20s %-8s %-16s %s\n", r.ID, r.Category, r.Pattern, r.Reason)
					}
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "Add an exclusion rule",
				UsageText: "agentsync exclusions add <category> <pattern> [reason]",
				Action: func(_ context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					args := cmd.Args()
					if args.Len() < 2 {
						return errors.New("add requires <category> and <pattern>")
					}
					category := model.Category(args.Get(0))
					if category != model.CategoryAll && !category.IsValid() {
						return fmt.Errorf("unknown category %q", category)
					}

					filter, err := exclusion.Load(cfg.Source.Exclusions)
					if err != nil {
						return err
					}
					rules := append(filter.Rules(), exclusion.Rule{
						ID:        fmt.Sprintf("user-%d", time.Now().Unix()),
						Category:  category,
						Pattern:   args.Get(1),
						Reason:    args.Get(2),
						CreatedAt: time.Now().UTC(),
					})
					return exclusion.Save(cfg.Source.Exclusions, rules)
				},
			},
		},
	}
}

func restoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Restore a backup over the current target files",
		UsageText: "agentsync restore <backup-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "list",
				Usage: "List available backups instead of restoring",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			backups := syncer.NewEngine(cfg).Backups()

			if cmd.Bool("list") || cmd.Args().Len() == 0 {
				infos, err := backups.List()
				if err != nil {
					return err
				}
				if len(infos) == 0 {
					fmt.Println("no backups")
					return nil
				}
				for _, info := range infos {
					fmt.Printf("%s  %-12s %s  %d files\n",
						info.ID, info.Target, info.CreatedAt.Format(time.RFC3339), info.Files)
				}
				return nil
			}

			id := cmd.Args().First()
			if err := backups.Restore(id); err != nil {
				return err
			}
			fmt.Printf("restored backup %s\n", id)
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate the canonical tree and exclusion rules without syncing",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			set, issues, _, err := loadModel(cfg)
			if err != nil {
				return err
			}

			counts := set.Counts()
			fmt.Printf("loaded %d agents, %d skills, %d commands, %d hooks, %d plugins, %d servers\n",
				counts[model.CategoryAgent], counts[model.CategorySkill], counts[model.CategoryCommand],
				counts[model.CategoryHook], counts[model.CategoryPlugin], counts[model.CategoryMcp])

			if len(issues) == 0 {
				fmt.Println("no problems found")
				return nil
			}
			for _, issue := range issues {
				fmt.Printf("invalid %s at %s: %v\n", issue.Category, issue.Path, issue.Err)
			}
			return fmt.Errorf("%d invalid records", len(issues))
		},
	}
}

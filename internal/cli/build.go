package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-article/internal/commands"
	buildcmd "github.com/goliatone/go-article/internal/commands/build"
	"github.com/goliatone/go-article/internal/site"
)

func newBuildCommand(env *environment) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "build [paths...]",
		Short: "Render the source tree into the destination",
		Long: `Render every content file under the source directory into the destination.

Directories starting with "_" or "." are skipped. A failing document is
reported and the rest of the site still renders. Paths, when given, limit the
build to those source files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := env.module(cmd)
			if err != nil {
				return err
			}
			if module == nil {
				return errNoModule
			}

			out := cmd.OutOrStdout()
			provider := module.Container().LoggerProvider()
			handler := buildcmd.NewBuildSiteHandler(
				module,
				commands.CommandLogger(provider, "site"),
				func(result *site.BuildResult) { report(out, result) },
			)
			return handler.Execute(cmd.Context(), buildcmd.BuildSiteCommand{
				DryRun: module.Config().Build.DryRun,
				Force:  force,
				Paths:  args,
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-render documents the index reports as unchanged")
	return cmd
}

func report(w io.Writer, result *site.BuildResult) {
	for _, diag := range result.Diagnostics {
		switch {
		case diag.Err != nil:
			fmt.Fprintf(w, "failed   %s: %v\n", diag.Path, diag.Err)
		case diag.Skipped:
			fmt.Fprintf(w, "skipped  %s\n", diag.Path)
		default:
			fmt.Fprintf(w, "rendered %s -> %s\n", diag.Path, diag.Output)
		}
	}
	mode := ""
	if result.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "%d built, %d skipped, %d failed in %s%s\n",
		result.Built, result.Skipped, result.Failed, result.Duration.Round(time.Millisecond), mode)
}

package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-article/internal/commands"
	rendercmd "github.com/goliatone/go-article/internal/commands/render"
)

const stdinPath = "-"

func newRenderCommand(env *environment) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render one document to stdout",
		Long: `Render a single document from the source directory and print the result.

Pass "-" to read the document from stdin; --name sets the path used in errors
and for the Markdown check.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := env.module(cmd)
			if err != nil {
				return err
			}
			if module == nil {
				return errNoModule
			}

			msg := rendercmd.RenderDocumentCommand{
				Path:   args[0],
				Output: cmd.OutOrStdout(),
			}
			if args[0] == stdinPath {
				source, err := io.ReadAll(env.opts.Stdin)
				if err != nil {
					return err
				}
				msg.Path = name
				msg.Source = string(source)
			}

			provider := module.Container().LoggerProvider()
			handler := rendercmd.NewRenderDocumentHandler(module, commands.CommandLogger(provider, "render"))
			return handler.Execute(cmd.Context(), msg)
		},
	}
	cmd.Flags().StringVar(&name, "name", "stdin.md", "Document path reported when reading from stdin")
	return cmd
}

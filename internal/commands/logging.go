package commands

import (
	"strings"

	"github.com/goliatone/go-article/internal/logging"
	"github.com/goliatone/go-article/pkg/interfaces"
)

const commandModuleRoot = "article.commands"

// CommandLogger returns a logger for command handlers under article.commands,
// tagged with the command module name.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		return logging.WithFields(logging.CommandsLogger(provider), map[string]any{
			"component": "command",
		})
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}

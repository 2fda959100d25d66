// Package configcmder provides the config command for managing persistent
// gemi configuration stored in the .gemi/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent gemi configuration.

Configuration is stored as config.toml in the .gemi/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  generation.target, generation.model,
  embedding.target, embedding.model, embedding.dimensions,
  vector_store.provider, vector_store.host, vector_store.port,
  vector_store.collection,
  memory.enabled,
  context.history_turns, context.journal_top_k, context.memory_limit,
  context.prompt_budget,
  api.listen,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  gemi config set <key> <value>    Set a configuration value
  gemi config get <key>            Get a configuration value
  gemi config list                 List all configuration values

Examples:
  gemi config set generation.model gemma3:latest
  gemi config set embedding.dimensions 768
  gemi config get generation.target
  gemi config list`

const configShortDesc string = "Manage persistent gemi configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

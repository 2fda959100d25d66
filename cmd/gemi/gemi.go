// Package gemicmder provides the root gemi command.
package gemicmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/perpetual-s/gemi/cmd/gemi/chat"
	configcmder "github.com/perpetual-s/gemi/cmd/gemi/config"
	journalcmder "github.com/perpetual-s/gemi/cmd/gemi/journal"
	memoriescmder "github.com/perpetual-s/gemi/cmd/gemi/memories"
	servecmder "github.com/perpetual-s/gemi/cmd/gemi/serve"
)

const gemiLongDesc string = `Gemi is a private, local-first journaling companion.

Everything runs on your machine: journal entries, conversations, and
extracted memories stay in local stores, and replies come from a local
model.

Common commands:
  gemi chat       Chat with your journal
  gemi journal    Write and list journal entries
  gemi memories   Manage extracted long-term memories
  gemi serve      Run the HTTP API server`

const gemiShortDesc string = "Gemi - local journaling companion"

func NewGemiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gemi",
		Short: gemiShortDesc,
		Long:  gemiLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .gemi/ directory location")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(journalcmder.NewJournalCmd())
	cmd.AddCommand(memoriescmder.NewMemoriesCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())

	return cmd
}

// Package memoriescmder provides the memories command for inspecting and
// curating extracted memories.
package memoriescmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/perpetual-s/gemi/pkg/app"
	"github.com/perpetual-s/gemi/pkg/cliui"
	"github.com/perpetual-s/gemi/pkg/config"
	"github.com/perpetual-s/gemi/pkg/memorystore"
	"github.com/perpetual-s/gemi/pkg/utils"
)

var (
	pinStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	importanceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tagStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

const memoriesLongDesc string = `Inspect and curate extracted memories.

Memories are short facts distilled from completed chat exchanges. Pinned
memories always rank first when context is gathered for a reply.

Use subcommands to list, pin, unpin, or delete memories:
  gemi memories list               List all memories
  gemi memories pin <id>           Pin a memory
  gemi memories unpin <id>         Unpin a memory
  gemi memories delete <id>        Delete a memory

Examples:
  gemi memories list
  gemi memories pin 3f2a1b
  gemi memories delete 3f2a1b`

const memoriesShortDesc string = "Inspect and curate extracted memories"

func NewMemoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: memoriesShortDesc,
		Long:  memoriesLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPinCmd(true))
	cmd.AddCommand(newPinCmd(false))
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

// openStore resolves config and opens the memory store for a subcommand.
func openStore(cmd *cobra.Command) (memorystore.Driver, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return app.OpenMemories(configDir, cfg)
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all memories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return runList(cmd.Context(), store)
		},
	}
}

func runList(ctx context.Context, store memorystore.Driver) error {
	records, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("listing memories: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No memories yet. They accumulate as you chat.")
		return nil
	}

	fmt.Println()
	for _, record := range records {
		marker := " "
		if record.Pinned {
			marker = pinStyle.Render("*")
		}

		fmt.Printf("  %s %s  %s\n", marker,
			cliui.KeyStyle.Render(record.ID),
			utils.Truncate(record.Content, 72),
		)
		fmt.Printf("      %s  %s  %s\n",
			importanceStyle.Render(fmt.Sprintf("importance %.1f", record.Importance)),
			tagStyle.Render(strings.Join(record.Tags, ",")),
			cliui.DimStyle.Render(record.CreatedAt.Format("2006-01-02")),
		)
	}
	fmt.Println()

	return nil
}

func newPinCmd(pinned bool) *cobra.Command {
	use, short := "pin <id>", "Pin a memory"
	if !pinned {
		use, short = "unpin <id>", "Unpin a memory"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Pin(cmd.Context(), args[0], pinned); err != nil {
				return err
			}

			verb := "Pinned"
			if !pinned {
				verb = "Unpinned"
			}
			fmt.Printf("  %s %s %s\n", cliui.SuccessMark, verb, cliui.KeyStyle.Render(args[0]))
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Printf("  %s Deleted %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(args[0]))
			return nil
		},
	}
}

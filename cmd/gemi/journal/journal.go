// Package journalcmder provides the journal command for writing and
// browsing journal entries.
package journalcmder

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/app"
	"github.com/perpetual-s/gemi/pkg/cliui"
	"github.com/perpetual-s/gemi/pkg/config"
	"github.com/perpetual-s/gemi/pkg/journal"
	"github.com/perpetual-s/gemi/pkg/logger"
	"github.com/perpetual-s/gemi/pkg/utils"
)

const journalLongDesc string = `Write and browse journal entries.

Entries are stored locally and indexed for semantic retrieval, so chat
replies can draw on what you have written.

Use subcommands to add or list entries:
  gemi journal add [content]       Add an entry (reads stdin if no content)
  gemi journal list                List recent entries

Examples:
  gemi journal add "Long walk by the river, felt lighter afterwards."
  gemi journal add --title "Monday" --mood calm "Slow start, good finish."
  cat draft.txt | gemi journal add --title "Draft"
  gemi journal list --limit 20`

const journalShortDesc string = "Write and browse journal entries"

func NewJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: journalShortDesc,
		Long:  journalLongDesc,
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// loadConfig resolves the config for a subcommand.
func loadConfig(cmd *cobra.Command) (string, *config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return "", nil, fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return "", nil, fmt.Errorf("loading config: %w", err)
	}

	return configDir, cfg, nil
}

type addCommander struct {
	title string
	mood  string
	debug bool

	logger *zap.Logger
}

func newAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a journal entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			content := ""
			if len(args) == 1 {
				content = args[0]
			}
			return cmder.run(cmd, content)
		},
	}

	cmd.Flags().StringVarP(&cmder.title, "title", "t", "", "Entry title")
	cmd.Flags().StringVarP(&cmder.mood, "mood", "m", "", "Mood label (e.g. calm, anxious)")

	return cmd
}

func (c *addCommander) run(cmd *cobra.Command, content string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if content == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		content = strings.TrimSpace(string(data))
	}
	if content == "" {
		return fmt.Errorf("entry content cannot be empty")
	}

	configDir, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := app.OpenJournal(configDir, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	entry := journal.NewEntry(c.title, content, c.mood)

	if err := store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}

	fmt.Printf("\n  %s Saved entry %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(entry.ID))

	// Indexing needs the embedding backend; a saved entry is still
	// useful without it.
	indexer, closeIndexer, err := app.OpenIndexer(ctx, configDir, cfg, c.logger)
	if err != nil {
		fmt.Printf("  %s Entry saved but not indexed: %v\n\n", cliui.FailMark, err)
		return nil
	}
	defer func() { _ = closeIndexer() }()

	if err := indexer.IndexEntry(ctx, entry); err != nil {
		fmt.Printf("  %s Entry saved but not indexed: %v\n\n", cliui.FailMark, err)
		return nil
	}

	fmt.Printf("  %s Indexed for retrieval\n\n", cliui.SuccessMark)
	return nil
}

func newListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := app.OpenJournal(configDir, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing entries: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("No entries yet. Try: gemi journal add")
				return nil
			}

			fmt.Println()
			for _, entry := range entries {
				title := entry.Title
				if title == "" {
					title = utils.Truncate(utils.FirstLine(entry.Content), 48)
				}

				mood := ""
				if entry.Mood != "" {
					mood = cliui.NameStyle.Render(" [" + entry.Mood + "]")
				}

				fmt.Printf("  %s  %s%s\n",
					cliui.DimStyle.Render(entry.CreatedAt.Format("2006-01-02 15:04")),
					cliui.KeyStyle.Render(title),
					mood,
				)
				fmt.Printf("      %s\n", utils.Truncate(entry.Content, 96))
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of entries to show")

	return cmd
}

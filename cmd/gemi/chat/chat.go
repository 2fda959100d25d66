// Package chatcmder provides the interactive chat command.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perpetual-s/gemi/pkg/app"
	"github.com/perpetual-s/gemi/pkg/cliui"
	"github.com/perpetual-s/gemi/pkg/config"
	"github.com/perpetual-s/gemi/pkg/logger"
	"github.com/perpetual-s/gemi/pkg/session"
)

type chatCommander struct {
	configDir string
	model     string
	debug     bool

	logger *zap.Logger
}

const chatLongDesc string = `Start an interactive chat session with your journal.

Each reply is grounded in your recent conversation, relevant journal
entries, and extracted memories. Completed exchanges are distilled into
new memories in the background.

Examples:
  gemi chat
  gemi chat --model llama3.2`

const chatShortDesc string = "Chat with your journal"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model name (overrides generation.model)")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("model") {
		cfg.Generation.Model = c.model
	}

	ctx := context.Background()

	gemi, err := app.New(ctx, c.configDir, cfg, c.logger)
	if err != nil {
		return err
	}
	defer gemi.Close()

	fmt.Println()
	if err := gemi.Generator.Ping(ctx); err != nil {
		fmt.Printf("  %s Model backend unreachable at %s\n", cliui.FailMark, cfg.Generation.Target)
		return fmt.Errorf("pinging generation backend: %w", err)
	}

	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(cfg.Generation.Model),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(cliui.UserPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		if err := c.sendAndStream(ctx, gemi.Session, input); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// sendAndStream submits one message and prints the streamed reply,
// followed by the context sources that informed it.
func (c *chatCommander) sendAndStream(ctx context.Context, sess *session.Session, input string) error {
	handle, err := sess.Send(ctx, input)
	if err != nil {
		return err
	}

	fmt.Print(cliui.AssistantPrompt)
	for fragment := range handle.Fragments() {
		fmt.Print(fragment)
	}
	<-handle.Done()

	if handle.State() == session.StateFailed {
		return fmt.Errorf("generation failed")
	}

	if sources := handle.Sources(); len(sources) > 0 {
		fmt.Println()
		for _, source := range sources {
			fmt.Printf("  %s\n", cliui.SourceStyle.Render(
				fmt.Sprintf("[%s] %s: %s", source.Kind, source.Title, source.Preview),
			))
		}
	}

	return nil
}

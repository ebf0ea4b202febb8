package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"people-partner/internal/app"
	"people-partner/internal/category"
	"people-partner/internal/usecase"
)

func askCmd() *cobra.Command {
	var categoryFlag string
	var sessionFlag string
	var plainFlag bool

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Ask the People Partner one question",
		Long:  "Sends one message through the same pipeline as POST /chat. Reads stdin when no message is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := readMessage(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Service().Respond(ctx, usecase.RespondInput{
				Category:  categoryFlag,
				Message:   message,
				SessionID: sessionFlag,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Fallback() {
				fmt.Fprintf(os.Stderr, "fallback reply (%s)\n", res.Failure.Code)
			}
			return printAnswer(out, res.Text, plainFlag)
		},
	}

	cmd.Flags().StringVarP(&categoryFlag, "category", "c", category.Default.Key(), "consultation category")
	cmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "session id for multi-turn context")
	cmd.Flags().BoolVar(&plainFlag, "plain", false, "print raw markdown")
	return cmd
}

func readMessage(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read message: %w", err)
	}
	return string(b), nil
}

// printAnswer renders markdown when stdout is a terminal.
func printAnswer(w io.Writer, text string, plain bool) error {
	f, ok := w.(*os.File)
	if plain || !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := fmt.Fprintln(w, strings.TrimRight(text, "\n"))
		return err
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < 40 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-10),
	)
	if err != nil {
		return err
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, rendered)
	return err
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List consultation categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, c := range category.All() {
				marker := " "
				if c == category.Default {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-24s %s\n", marker, c.Key(), c.Label())
			}
			return nil
		},
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"todo-cli/internal/model"
	"todo-cli/internal/session"
)

// deleteConfirmer asks on the terminal unless --yes already answered.
func deleteConfirmer(cmd *cobra.Command, app *App, yes bool) session.Confirmer {
	if yes {
		return session.Confirmed(true)
	}
	return session.ConfirmFunc(func(_ context.Context, t model.Todo) (bool, error) {
		reader := app.input
		if reader == nil {
			reader = newLineInput(cmd.InOrStdin(), cmd.ErrOrStderr(), "")
			defer reader.Close()
		}
		return askYesNo(reader, fmt.Sprintf("Are you sure you want to delete this todo? %q [y/N]: ", t.Title))
	})
}

func askYesNo(reader lineInput, prompt string) (bool, error) {
	line, err := reader.ReadLine(prompt)
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

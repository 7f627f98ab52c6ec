package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"todo-cli/internal/format"
	"todo-cli/internal/store"
)

func newExportCmd(app *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the full state snapshot as JSON",
		Long: strings.TrimSpace(`
Write the full state snapshot (todos, filter, sort, edit form and history cursors)
in the same JSON format the storage backends use.

Without --out the snapshot goes to stdout. With --out pointing at a directory a
uniquely named file is created inside it.
`),
		Example: strings.TrimSpace(`
todo export > backup.json
todo export --out ~/backups
todo --backend sqlite export | todo --backend badger import - --yes
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := store.EncodeSnapshot(sess.Snapshot())
			if err != nil {
				return writeErr(cmd, err)
			}

			path := strings.TrimSpace(out)
			if path == "" {
				_, err := cmd.OutOrStdout().Write(append(b, '\n'))
				return err
			}
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, store.ExportName(time.Now()))
			}
			if err := store.WriteFile(path, b); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: map[string]any{
				"path":  path,
				"bytes": len(b),
				"todos": sess.Stats().Total,
			}})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file or directory (default: stdout)")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the whole state with an exported snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var b []byte
			var err error
			if args[0] == "-" {
				b, err = io.ReadAll(cmd.InOrStdin())
			} else {
				b, err = os.ReadFile(args[0])
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := store.DecodeSnapshot(b)
			if err != nil {
				return writeErr(cmd, err)
			}

			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !yes {
				reader := app.input
				if reader == nil {
					if args[0] == "-" {
						return writeErr(cmd, errImportNeedsYes)
					}
					reader = newLineInput(cmd.InOrStdin(), cmd.ErrOrStderr(), "")
					defer reader.Close()
				}
				prompt := fmt.Sprintf("Replace %d todos with %d from %s? [y/N]: ", sess.Stats().Total, len(st.Todos), args[0])
				ok, err := askYesNo(reader, prompt)
				if err != nil {
					return writeErr(cmd, err)
				}
				if !ok {
					return writeErr(cmd, errImportCancelled)
				}
			}

			ch, err := sess.Restore(cmdContext(cmd), st)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeView(cmd, app, ch)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

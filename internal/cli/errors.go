package cli

import (
	"errors"
	"fmt"
)

type notFoundError struct {
	kind string
	id   int
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.kind, e.id)
}

func errNotFound(kind string, id int) error {
	return notFoundError{kind: kind, id: id}
}

// declinedError is returned when a delete prompt was answered "no".
type declinedError struct {
	id int
}

func (e declinedError) Error() string {
	return fmt.Sprintf("delete cancelled: todo %d kept", e.id)
}

var (
	errBlankTitle      = errors.New("title must not be blank")
	errNothingToUpdate = errors.New("nothing to update (pass at least one of --title, --description, --category, --due, --status)")
)

var errNoEdit = errors.New("no edit in progress (run: todo edit start <id>)")

func errInvalidDelta(s string) error {
	return fmt.Errorf("invalid delta: %q (expected an integer like 1 or -1)", s)
}

var (
	errImportNeedsYes  = errors.New("import from stdin needs --yes")
	errImportCancelled = errors.New("import cancelled")
)

// reportedError marks an error that was already printed to stderr.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func errNotInShell(name string) error {
	return fmt.Errorf("%s is not available inside the shell", name)
}

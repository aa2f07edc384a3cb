package memory

import "fmt"

type errorKind int

const (
	kindNotFound errorKind = iota + 1
	kindConflict
)

// Error reports in-memory repository failures using the shared repository categories.
type Error struct {
	Op   string
	kind errorKind
	msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("memory %s: %s", e.Op, e.msg)
}

func (e *Error) IsNotFound() bool    { return e.kind == kindNotFound }
func (e *Error) IsConflict() bool    { return e.kind == kindConflict }
func (e *Error) IsUnavailable() bool { return false }

func notFound(op, format string, args ...any) error {
	return &Error{Op: op, kind: kindNotFound, msg: fmt.Sprintf(format, args...)}
}

func conflict(op, format string, args ...any) error {
	return &Error{Op: op, kind: kindConflict, msg: fmt.Sprintf(format, args...)}
}

package patch

import (
	"fmt"
	"strings"

	"github.com/go-errors/errors"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrPreconditionMissing  = errors.New("precondition marker missing")
	ErrPostconditionMissing = errors.New("postcondition marker missing")
	ErrInvalidOrder         = errors.New("invalid patch set order")
	ErrCycle                = errors.New("cycle detected")
)

// Error 补丁错误，归属到具体的补丁集/补丁/标记
type Error struct {
	Kind   error
	Set    string
	Patch  string
	Marker string
	Msg    string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Set != "" {
		fmt.Fprintf(&b, ": set %q", e.Set)
	}
	if e.Patch != "" {
		fmt.Fprintf(&b, " patch %q", e.Patch)
	}
	if e.Marker != "" {
		fmt.Fprintf(&b, " marker %q", e.Marker)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

func orderf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidOrder, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	return &Error{Kind: ErrCycle, Msg: strings.Join(path, " -> ")}
}

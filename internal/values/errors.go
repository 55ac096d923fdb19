package values

import (
	"strconv"
	"strings"
)

// CoercionError reports an input value that does not fit its declared type.
type CoercionError struct {
	// TypeName is the declared type in SDL notation, e.g. "[Int!]".
	TypeName string
	// Value is the offending value (a runtime value or a rendered literal).
	Value any
	// Path locates the value inside the enclosing input: field names and
	// list indices.
	Path    []any
	Message string
	Cause   error
}

func (e *CoercionError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return e.Message + " At \"" + formatPath(e.Path) + "\"."
}

func (e *CoercionError) Unwrap() error { return e.Cause }

// withPrefix returns a copy whose message is prefixed, keeping the path.
func (e *CoercionError) withPrefix(prefix string) *CoercionError {
	out := *e
	out.Message = prefix + e.Message
	return &out
}

func formatPath(path []any) string {
	var b strings.Builder
	for i, seg := range path {
		switch s := seg.(type) {
		case int:
			b.WriteString("[")
			b.WriteString(strconv.Itoa(s))
			b.WriteString("]")
		case string:
			if i > 0 {
				b.WriteString(".")
			}
			b.WriteString(s)
		}
	}
	return b.String()
}

func appendPath(path []any, seg any) []any {
	out := make([]any, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

package executor

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ResultField is one entry of a ResultMap.
type ResultField struct {
	Key   string
	Value any
}

// ResultMap is an object in the response, keeping keys in document order.
type ResultMap struct {
	Fields []ResultField
}

func (m *ResultMap) set(key string, value any) {
	m.Fields = append(m.Fields, ResultField{Key: key, Value: value})
}

// Get returns the value stored under key.
func (m *ResultMap) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the response keys in order.
func (m *ResultMap) Keys() []string {
	keys := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		keys[i] = f.Key
	}
	return keys
}

// ToMap converts m into plain maps and slices, dropping key order.
func (m *ResultMap) ToMap() map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m.Fields))
	for _, f := range m.Fields {
		out[f.Key] = plain(f.Value)
	}
	return out
}

func plain(v any) any {
	switch x := v.(type) {
	case *ResultMap:
		if x == nil {
			return nil
		}
		return x.ToMap()
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plain(item)
		}
		return out
	}
	return v
}

func (m *ResultMap) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)
	stream.WriteObjectStart()
	for i, f := range m.Fields {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(f.Key)
		stream.WriteVal(f.Value)
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// Location is a line and column in the query document, both 1-based.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ExecutionError is an error in the response errors list.
type ExecutionError struct {
	Message    string
	Locations  []Location
	Path       []any
	Code       string
	Extensions map[string]any
	Cause      error
}

// NewError returns an ExecutionError with a machine-readable code. Resolvers
// may return it to control the code and extensions of their error.
func NewError(code, format string, args ...any) *ExecutionError {
	return &ExecutionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *ExecutionError) Error() string { return e.Message }

func (e *ExecutionError) Unwrap() error { return e.Cause }

func (e *ExecutionError) MarshalJSON() ([]byte, error) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)
	stream.WriteObjectStart()
	stream.WriteObjectField("message")
	stream.WriteString(e.Message)
	if len(e.Locations) > 0 {
		stream.WriteMore()
		stream.WriteObjectField("locations")
		stream.WriteVal(e.Locations)
	}
	if len(e.Path) > 0 {
		stream.WriteMore()
		stream.WriteObjectField("path")
		stream.WriteVal(e.Path)
	}
	if ext := e.extensions(); len(ext) > 0 {
		stream.WriteMore()
		stream.WriteObjectField("extensions")
		stream.WriteVal(ext)
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

func (e *ExecutionError) extensions() map[string]any {
	if e.Code == "" {
		return e.Extensions
	}
	ext := make(map[string]any, len(e.Extensions)+1)
	for k, v := range e.Extensions {
		ext[k] = v
	}
	ext["code"] = e.Code
	return ext
}

// ExecutionResult is the outcome of one operation.
type ExecutionResult struct {
	// Data is a *ResultMap, or nil when null propagation reached the root.
	Data   any
	Errors []*ExecutionError
	// DataAbsent is set when the operation never started (syntax,
	// validation or variable errors). The data key is then omitted.
	DataAbsent bool
	Extensions map[string]any
}

func (r *ExecutionResult) MarshalJSON() ([]byte, error) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)
	stream.WriteObjectStart()
	more := false
	if !r.DataAbsent {
		stream.WriteObjectField("data")
		stream.WriteVal(r.Data)
		more = true
	}
	if len(r.Errors) > 0 {
		if more {
			stream.WriteMore()
		}
		stream.WriteObjectField("errors")
		stream.WriteVal(r.Errors)
		more = true
	}
	if len(r.Extensions) > 0 {
		if more {
			stream.WriteMore()
		}
		stream.WriteObjectField("extensions")
		stream.WriteVal(r.Extensions)
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// ErrorsOf converts a parser or validator error list.
func ErrorsOf(list gqlerror.List) []*ExecutionError {
	out := make([]*ExecutionError, 0, len(list))
	for _, e := range list {
		out = append(out, fromGQLError(e))
	}
	return out
}

// NewErrorResult returns a result without data, as produced for requests
// that fail before execution starts.
func NewErrorResult(errs ...*ExecutionError) *ExecutionResult {
	return &ExecutionResult{DataAbsent: true, Errors: errs}
}

func fromGQLError(e *gqlerror.Error) *ExecutionError {
	out := &ExecutionError{Message: e.Message, Extensions: e.Extensions, Cause: e}
	for _, l := range e.Locations {
		out.Locations = append(out.Locations, Location{Line: l.Line, Column: l.Column})
	}
	for _, p := range e.Path {
		switch seg := p.(type) {
		case ast.PathIndex:
			out.Path = append(out.Path, int(seg))
		case ast.PathName:
			out.Path = append(out.Path, string(seg))
		}
	}
	if code, ok := e.Extensions["code"].(string); ok {
		out.Code = code
		out.Extensions = withoutKey(e.Extensions, "code")
	}
	return out
}

func withoutKey(m map[string]any, key string) map[string]any {
	if len(m) <= 1 {
		if _, ok := m[key]; ok {
			return nil
		}
		return m
	}
	out := make(map[string]any, len(m)-1)
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}

// extensionsProvider is implemented by errors that carry response
// extensions.
type extensionsProvider interface {
	Extensions() map[string]any
}

// locate converts an error returned by a resolver into an ExecutionError at
// path. The message of the error is kept.
func locate(err error, path []any, locations []Location) *ExecutionError {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		out := *ee
		if out.Path == nil {
			out.Path = path
		}
		if out.Locations == nil {
			out.Locations = locations
		}
		if out.Cause == nil && ee != err {
			out.Cause = err
		}
		return &out
	}
	var ge *gqlerror.Error
	if errors.As(err, &ge) {
		out := fromGQLError(ge)
		out.Path, out.Locations = path, locations
		return out
	}
	out := &ExecutionError{Message: err.Error(), Path: path, Locations: locations, Cause: err}
	var ep extensionsProvider
	if errors.As(err, &ep) {
		out.Extensions = ep.Extensions()
		if code, ok := out.Extensions["code"].(string); ok {
			out.Code = code
			out.Extensions = withoutKey(out.Extensions, "code")
		}
	}
	return out
}

package language

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates SDL, merging extensions into their base
// definitions. The result includes the specified scalars, directives and
// introspection types.
func LoadSchema(name, source string) (*Schema, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Validator checks query documents against a loaded schema.
type Validator struct {
	schema *Schema
}

// NewValidator loads sdl and returns a Validator for it.
func NewValidator(name, sdl string) (*Validator, error) {
	s, err := LoadSchema(name, sdl)
	if err != nil {
		return nil, err
	}
	return &Validator{schema: s}, nil
}

// Schema returns the loaded schema.
func (v *Validator) Schema() *Schema { return v.schema }

// Validate returns the validation errors of doc, or nil.
func (v *Validator) Validate(doc *QueryDocument) ErrorList {
	return validator.Validate(v.schema, doc)
}

// ParseAndValidate parses source and validates it. Syntax errors are
// reported in the same list as validation errors.
func (v *Validator) ParseAndValidate(source string) (*QueryDocument, ErrorList) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, gqlerror.List{toError(err)}
	}
	return doc, v.Validate(doc)
}

func toError(err error) *gqlerror.Error {
	if gerr, ok := err.(*gqlerror.Error); ok {
		return gerr
	}
	return gqlerror.Wrap(err)
}

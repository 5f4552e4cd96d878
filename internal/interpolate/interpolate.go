// Package interpolate compiles action payload string leaves into a
// sequence of literal text and accessors, and renders them against an
// event and ruleset environment (spec §4.5).
package interpolate

import (
	"fmt"
	"strings"

	"github.com/danielsvitols/tornado/internal/accessor"
	"github.com/danielsvitols/tornado/internal/event"
	"github.com/danielsvitols/tornado/internal/value"
)

type chunkKind int

const (
	chunkLiteral chunkKind = iota
	chunkAccessor
)

type chunk struct {
	kind    chunkKind
	literal string
	acc     accessor.Accessor
}

// Template is a compiled string-interpolation template.
type Template struct {
	chunks []chunk
	// bare is true when the template is exactly one ${...} accessor with
	// no surrounding literal text; Render then preserves the accessor's
	// native Value type instead of coercing to string (spec §4.5, "A
	// template that is just a single ${…} ... preserves the original
	// value type").
	bare bool
}

// RenderError reports that a chunk failed to resolve to an interpolable
// scalar (spec §4.5/§4.6: the action is dropped, a message is attached).
type RenderError struct {
	Expr   string
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("interpolation of %q failed: %s", e.Expr, e.Reason)
}

// Compile parses a template string into literal and accessor chunks.
func Compile(s string) (Template, error) {
	var chunks []chunk
	var lit strings.Builder

	i := 0
	for i < len(s) {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return Template{}, fmt.Errorf("unterminated accessor in template %q", s)
			}
			end += i + 2
			expr := s[i : end+1]
			acc, err := accessor.Parse(expr)
			if err != nil {
				return Template{}, err
			}
			if lit.Len() > 0 {
				chunks = append(chunks, chunk{kind: chunkLiteral, literal: lit.String()})
				lit.Reset()
			}
			chunks = append(chunks, chunk{kind: chunkAccessor, acc: acc})
			i = end + 1
			continue
		}
		lit.WriteByte(s[i])
		i++
	}
	if lit.Len() > 0 {
		chunks = append(chunks, chunk{kind: chunkLiteral, literal: lit.String()})
	}

	bare := len(chunks) == 1 && chunks[0].kind == chunkAccessor
	return Template{chunks: chunks, bare: bare}, nil
}

// Render evaluates the template against an event and ruleset environment.
// For a bare single-accessor template the resolved value is returned
// unmodified (any Kind). Otherwise every accessor chunk must resolve to a
// scalar (String/Number/Bool); Null, Array, Map, and missing all fail the
// whole render (spec §4.5).
func (t Template) Render(ev event.Event, env *accessor.Env, currentRule string) (value.Value, error) {
	if len(t.chunks) == 0 {
		return value.String(""), nil
	}

	if t.bare {
		v, ok := t.chunks[0].acc.Resolve(ev, env, currentRule)
		if !ok {
			return value.Value{}, &RenderError{Reason: "accessor resolved to missing"}
		}
		return v, nil
	}

	var out strings.Builder
	for _, c := range t.chunks {
		if c.kind == chunkLiteral {
			out.WriteString(c.literal)
			continue
		}
		v, ok := c.acc.Resolve(ev, env, currentRule)
		if !ok {
			return value.Value{}, &RenderError{Reason: "accessor resolved to missing"}
		}
		s, err := scalarString(v)
		if err != nil {
			return value.Value{}, err
		}
		out.WriteString(s)
	}
	return value.String(out.String()), nil
}

// Walk calls visit once for every accessor embedded in the template (used
// by the config loader to validate _variables references at build time).
func (t Template) Walk(visit func(accessor.Accessor)) {
	for _, c := range t.chunks {
		if c.kind == chunkAccessor {
			visit(c.acc)
		}
	}
}

func scalarString(v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindString:
		return v.StringValue(), nil
	case value.KindNumber:
		return value.FormatNumber(v), nil
	case value.KindBool:
		if v.BoolValue() {
			return "true", nil
		}
		return "false", nil
	case value.KindNull:
		return "", &RenderError{Reason: "null is not interpolable"}
	default:
		return "", &RenderError{Reason: fmt.Sprintf("%s is not interpolable", v.Kind())}
	}
}

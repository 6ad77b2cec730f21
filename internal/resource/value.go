// Package resource implements the in-memory representation of RDF nodes.
package resource

import (
	"strconv"
	"strings"
	"time"

	"github.com/FAU-CDI/skosd/internal/ns"
)

// Value is a value of a property.
// It is one of Literal, URI or a nested Entity (*Resource or one of the kinds embedding it).
type Value interface {
	isValue()
}

// Literal is a literal value with an optional language and datatype.
type Literal struct {
	Value    string
	Language string
	Datatype string
}

func (Literal) isValue() {}

func (l Literal) String() string {
	return l.Value
}

// Lang returns a literal with the given language
func Lang(value, language string) Literal {
	return Literal{Value: value, Language: language}
}

// Plain returns a literal without language or datatype
func Plain(value string) Literal {
	return Literal{Value: value}
}

// Typed returns a literal with the given datatype
func Typed(value, datatype string) Literal {
	return Literal{Value: value, Datatype: datatype}
}

// Bool returns an xsd:boolean literal
func Bool(value bool) Literal {
	return Typed(strconv.FormatBool(value), ns.XSDBoolean)
}

// DateTime returns an xsd:dateTime literal for the given time
func DateTime(t time.Time) Literal {
	return Typed(t.UTC().Format(time.RFC3339), ns.XSDDateTime)
}

// AsBool interprets this literal as a boolean.
// ok is false when the literal is not a recognized boolean.
func (l Literal) AsBool() (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(l.Value)) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// SameForm checks if two literals have the same language and value.
// Datatypes are ignored.
func (l Literal) SameForm(other Literal) bool {
	return l.Language == other.Language && l.Value == other.Value
}

// URI is a reference to another node.
type URI string

func (URI) isValue() {}

func (u URI) String() string {
	return string(u)
}

// URIOf returns the uri a value refers to.
// Literals and blank resources return ok = false.
func URIOf(v Value) (uri string, ok bool) {
	switch v := v.(type) {
	case URI:
		return string(v), true
	case Entity:
		r := v.Res()
		if r == nil || r.IsBlank() {
			return "", false
		}
		return r.uri, true
	default:
		return "", false
	}
}

// Equal checks if two values are equal.
// URIs and resources compare by uri, literals by all of their fields.
func Equal(a, b Value) bool {
	if la, ok := a.(Literal); ok {
		lb, ok := b.(Literal)
		return ok && la == lb
	}

	ua, aOK := URIOf(a)
	ub, bOK := URIOf(b)
	if aOK && bOK {
		return ua == ub
	}

	// blank nodes are only equal to themselves
	ra, aOK := a.(Entity)
	rb, bOK := b.(Entity)
	return aOK && bOK && ra.Res() == rb.Res()
}

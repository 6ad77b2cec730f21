package search

import (
	"strconv"
	"strings"

	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
)

// Document is the indexed form of a resource.
type Document struct {
	URI      string
	Type     string
	Tenant   string
	Set      string
	Status   string
	Notation string

	// NumericNotation is the notation as a number, if it is one.
	NumericNotation *int64

	Labels  []Label
	Schemes []string
}

// Label is an indexed label of a document.
type Label struct {
	Field    string // one of the simple label predicates
	Language string
	Value    string
}

// labelFields are the predicates whose values are indexed as labels.
var labelFields = []string{ns.PrefLabel, ns.AltLabel, ns.HiddenLabel}

// DocumentOf creates the document indexing e.
func DocumentOf(e resource.Entity) Document {
	r := e.Res()

	doc := Document{
		URI:      r.URI(),
		Tenant:   r.Tenant(),
		Set:      r.InSet(),
		Status:   r.Status(),
		Notation: r.Literal(ns.Notation),
		Schemes:  r.URIs(ns.InScheme),
	}
	if types := r.Types(); len(types) > 0 {
		doc.Type = types[0]
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(doc.Notation), 10, 64); err == nil && n >= 0 {
		doc.NumericNotation = &n
	}

	for _, field := range labelFields {
		for _, l := range r.Literals(field) {
			doc.Labels = append(doc.Labels, Label{Field: field, Language: l.Language, Value: l.Value})
		}
	}

	// label resources are indexed by their literal forms
	if doc.Type == ns.XLLabel {
		for _, l := range r.Literals(ns.LiteralForm) {
			doc.Labels = append(doc.Labels, Label{Field: ns.PrefLabel, Language: l.Language, Value: l.Value})
		}
	}

	return doc
}

// sortLabel returns the value used to order documents.
func (doc Document) sortLabel() string {
	for _, l := range doc.Labels {
		if l.Field == ns.PrefLabel {
			return strings.ToLower(l.Value)
		}
	}
	return ""
}

package api

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/FAU-CDI/skosd/internal/bridge"
	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/anglo-korean/rdf"
)

//spellchecker:words recieved

// Params are the parameters accompanying a write.
type Params struct {
	Tenant string // code of the tenant
	Set    string // code of the set
	Key    string // api key of the user

	// AutoGenerateIdentifiers requests a generated uri for a blank resource.
	AutoGenerateIdentifiers bool
}

// ParamsOf reads parameters from query values, falling back to headers.
// The legacy name "collection" is accepted for "set".
func ParamsOf(query url.Values, header http.Header) Params {
	get := func(names ...string) string {
		for _, name := range names {
			if value := query.Get(name); value != "" {
				return value
			}
		}
		for _, name := range names {
			if value := header.Get(name); value != "" {
				return value
			}
		}
		return ""
	}

	return Params{
		Tenant:                  get("tenant"),
		Set:                     get("set", "collection"),
		Key:                     get("key"),
		AutoGenerateIdentifiers: isYes(get("autoGenerateIdentifiers")),
	}
}

// merge overrides params with non-empty attributes of the document root.
func (params Params) merge(attrs map[string]string) Params {
	for name, value := range attrs {
		if value == "" {
			continue
		}
		switch name {
		case "tenant":
			params.Tenant = value
		case "set", "collection":
			params.Set = value
		case "key":
			params.Key = value
		case "autoGenerateIdentifiers":
			params.AutoGenerateIdentifiers = isYes(value)
		}
	}
	return params
}

func isYes(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "y", "yes":
		return true
	}
	return false
}

// Request is a resource submitted for writing.
type Request struct {
	Resource resource.Entity
	Params   Params
}

// DecodeRequest decodes a single resource of type typ from an rdf/xml document.
//
// Parameters given as openskos attributes of the rdf:RDF element take precedence over params.
// Nested skos-xl labels stay part of the resource.
func DecodeRequest(body []byte, typ string, params Params) (req Request, err error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return req, errorf(http.StatusBadRequest, "No RDF-XML recieved")
	}

	attrs, err := rootAttributes(body)
	if err != nil {
		return req, err
	}
	req.Params = params.merge(attrs)

	graph, err := bridge.DecodeRDF(bytes.NewReader(body), rdf.RDFXML)
	if errors.Is(err, sparql.ErrInvalidTerm) {
		return req, AsError(err)
	}
	if err != nil {
		return req, errorf(http.StatusBadRequest, "Recieved RDF-XML is not valid XML")
	}

	dec := bridge.Decoder{Inline: []string{ns.XLLabel}}
	resources, err := dec.Resources(graph, typ)
	if err != nil {
		return req, AsError(err)
	}
	if len(resources) != 1 {
		return req, errorf(http.StatusPreconditionFailed, "Expected exactly one resource of type %s, got %d, check if you set rdf:type in the request body", typ, len(resources))
	}
	req.Resource = resources[0]
	return req, nil
}

var errNoRoot = errors.New("no root element")

// rootAttributes returns the openskos attributes of the rdf:RDF root element of body.
func rootAttributes(body []byte) (map[string]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		token, err := dec.Token()
		if errors.Is(err, io.EOF) {
			err = errNoRoot
		}
		if err != nil {
			return nil, errorf(http.StatusBadRequest, "Recieved RDF-XML is not valid XML")
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Space != ns.RDF || start.Name.Local != "RDF" {
			return nil, errorf(http.StatusBadRequest, "Recieved RDF-XML is not valid: expected <rdf:RDF/> rootnode, got <%s/>", qualified(start.Name))
		}

		attrs := make(map[string]string)
		for _, attr := range start.Attr {
			if attr.Name.Space == ns.OpenSKOS {
				attrs[attr.Name.Local] = attr.Value
			}
		}
		return attrs, nil
	}
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return fmt.Sprintf("{%s}%s", name.Space, name.Local)
}

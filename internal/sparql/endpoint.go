package sparql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
	"github.com/knakk/rdf"
	ksparql "github.com/knakk/sparql"
)

//spellchecker:words nquads knakk

// DefaultMaxGetLength is the longest url sent as a GET request.
// Longer queries are sent as a form POST.
const DefaultMaxGetLength = 2046

// Endpoint is a Client talking to a SPARQL 1.1 protocol endpoint over http.
type Endpoint struct {
	QueryURL     string // url of the query service
	UpdateURL    string // url of the update service, defaults to QueryURL
	DefaultGraph string // optional default-graph-uri

	// Username and Password enable basic authentication when non-empty.
	Username string
	Password string

	// MaxGetLength overrides DefaultMaxGetLength when positive.
	MaxGetLength int

	// Client is the http client to use, defaults to http.DefaultClient.
	Client *http.Client
}

var _ Client = (*Endpoint)(nil)

const (
	mimeNTriples = "application/n-triples"
	mimeResults  = "application/sparql-results+json"
	mimeUpdate   = "application/sparql-update"
	mimeForm     = "application/x-www-form-urlencoded"
)

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (se *StatusError) Error() string {
	return fmt.Sprintf("sparql endpoint returned status %d: %s", se.Code, se.Body)
}

// Query sends q to the query service.
// Short queries are sent using GET, longer ones as a form POST.
//
// Queries holding terms that fail Check are rejected before sending.
func (ep *Endpoint) Query(ctx context.Context, q *Query) (*Result, error) {
	if err := q.Check(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", q.String())
	if ep.DefaultGraph != "" {
		params.Set("default-graph-uri", ep.DefaultGraph)
	}
	encoded := params.Encode()

	var req *http.Request
	var err error

	target := ep.QueryURL + "?" + encoded
	if len(target) <= ep.maxGetLength() {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, ep.QueryURL, strings.NewReader(encoded))
		if req != nil {
			req.Header.Set("Content-Type", mimeForm)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if q.Form == Describe {
		req.Header.Set("Accept", mimeNTriples)
	} else {
		req.Header.Set("Accept", mimeResults)
	}

	body, err := ep.do(req)
	if err != nil {
		return nil, err
	}

	switch q.Form {
	case Describe:
		graph, err := readGraph(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		return &Result{Graph: graph}, nil
	case Ask:
		var answer struct {
			Boolean bool `json:"boolean"`
		}
		if err := json.Unmarshal(body, &answer); err != nil {
			return nil, fmt.Errorf("failed to decode ask result: %w", err)
		}
		return &Result{Boolean: answer.Boolean}, nil
	default:
		res, err := ksparql.ParseJSON(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to decode select result: %w", err)
		}
		var result Result
		for _, row := range res.Solutions() {
			solution := make(Solution, len(row))
			for name, term := range row {
				solution[name] = fromTerm(term)
			}
			result.Solutions = append(result.Solutions, solution)
		}
		return &result, nil
	}
}

// Update sends u to the update service.
// Updates holding terms that fail Check are rejected before sending.
func (ep *Endpoint) Update(ctx context.Context, u Update) error {
	if err := u.Check(); err != nil {
		return err
	}

	text := u.String()
	if text == "" {
		return nil
	}

	target := ep.UpdateURL
	if target == "" {
		target = ep.QueryURL
	}
	if ep.DefaultGraph != "" {
		target += "?" + url.Values{"using-graph-uri": {ep.DefaultGraph}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(text))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mimeUpdate)

	_, err = ep.do(req)
	return err
}

// Insert inserts graph using an INSERT DATA update.
func (ep *Endpoint) Insert(ctx context.Context, graph []quad.Quad) error {
	if len(graph) == 0 {
		return nil
	}
	return ep.Update(ctx, Update{InsertData(graph)})
}

func (ep *Endpoint) maxGetLength() int {
	if ep.MaxGetLength > 0 {
		return ep.MaxGetLength
	}
	return DefaultMaxGetLength
}

// do performs req and returns the body of a successful response.
func (ep *Endpoint) do(req *http.Request) ([]byte, error) {
	if ep.Username != "" || ep.Password != "" {
		req.SetBasicAuth(ep.Username, ep.Password)
	}

	client := ep.Client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		serr := &StatusError{Code: res.StatusCode, Body: string(body)}
		if res.StatusCode == http.StatusGatewayTimeout || strings.Contains(serr.Body, "timed out") {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, serr)
		}
		return nil, serr
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// readGraph reads an n-triples document.
func readGraph(r io.Reader) ([]quad.Quad, error) {
	reader := nquads.NewReader(r, true)
	defer reader.Close()

	var graph []quad.Quad
	for {
		q, err := reader.ReadQuad()
		if errors.Is(err, io.EOF) {
			return graph, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode graph: %w", err)
		}
		graph = append(graph, q)
	}
}

// fromTerm converts a term of a select result.
func fromTerm(term rdf.Term) quad.Value {
	switch t := term.(type) {
	case rdf.IRI:
		return quad.IRI(t.String())
	case rdf.Blank:
		return quad.BNode(strings.TrimPrefix(t.String(), "_:"))
	case rdf.Literal:
		if lang := t.Lang(); lang != "" {
			return quad.LangString{Value: quad.String(t.String()), Lang: lang}
		}
		if dt := t.DataType.String(); dt != "" && dt != xsdString {
			return quad.TypedString{Value: quad.String(t.String()), Type: quad.IRI(dt)}
		}
		return quad.String(t.String())
	default:
		return quad.String(term.String())
	}
}

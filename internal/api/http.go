package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/FAU-CDI/skosd/internal/bridge"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/search"
	"github.com/FAU-CDI/skosd/internal/status"
	"github.com/anglo-korean/rdf"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxBodySize is the maximal size of accepted request bodies.
const MaxBodySize = 16 << 20

// Handler implements an [http.Handler] serving the api of a set of orchestrators.
//
// Resources are served under /api/{kind}, where kind is the name of the resource api.
// Metrics are served under /metrics.
type Handler struct {
	Orchestrators []*Orchestrator
	Status        *status.Status

	// AutoComplete is the name of the kind autocomplete defaults to.
	// When empty, concepts are used.
	AutoComplete string

	init  sync.Once
	mux   mux.Router
	kinds map[string]*Orchestrator
}

func (handler *Handler) Prepare() {
	handler.init.Do(func() {
		handler.kinds = make(map[string]*Orchestrator, len(handler.Orchestrators))
		for _, o := range handler.Orchestrators {
			handler.kinds[o.api.Name] = o
		}

		handler.mux.Handle("/metrics", promhttp.Handler())

		api := handler.mux.PathPrefix("/api").Subrouter()
		api.HandleFunc("/autocomplete/{term}", handler.autocomplete).Methods(http.MethodGet)
		api.HandleFunc("/{kind}", handler.create).Methods(http.MethodPost)
		api.HandleFunc("/{kind}", handler.update).Methods(http.MethodPut)
		api.HandleFunc("/{kind}", handler.delete).Methods(http.MethodDelete)
		api.HandleFunc("/{kind}", handler.find).Methods(http.MethodGet)
		api.HandleFunc("/{kind}/{id}", handler.get).Methods(http.MethodGet)

		handler.mux.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler.fail(w, "", "route", errorf(http.StatusNotFound, "Not found"))
		})
		handler.mux.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler.fail(w, "", "route", errorf(http.StatusMethodNotAllowed, "Method %s not allowed", r.Method))
		})
	})
}

func (handler *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler.Prepare()
	handler.mux.ServeHTTP(w, r)
}

// orchestrator returns the orchestrator for the kind of the request.
// When there is none, an error is sent.
func (handler *Handler) orchestrator(w http.ResponseWriter, kind, operation string) (*Orchestrator, bool) {
	o, ok := handler.kinds[kind]
	if !ok {
		handler.fail(w, "", operation, errorf(http.StatusNotFound, "Unknown resource type %q", kind))
		return nil, false
	}
	return o, true
}

func (handler *Handler) create(w http.ResponseWriter, r *http.Request) {
	defer prometheus.NewTimer(metricRequestDuration.WithLabelValues("create")).ObserveDuration()

	o, ok := handler.orchestrator(w, mux.Vars(r)["kind"], "create")
	if !ok {
		return
	}

	req, err := decode(r, o)
	if err != nil {
		handler.fail(w, o.api.Name, "create", err)
		return
	}

	e, err := o.Create(r.Context(), req)
	if err != nil {
		handler.fail(w, o.api.Name, "create", err)
		return
	}
	handler.writeEntity(w, r, o.api.Name, "create", http.StatusCreated, e)
}

func (handler *Handler) update(w http.ResponseWriter, r *http.Request) {
	defer prometheus.NewTimer(metricRequestDuration.WithLabelValues("update")).ObserveDuration()

	o, ok := handler.orchestrator(w, mux.Vars(r)["kind"], "update")
	if !ok {
		return
	}

	req, err := decode(r, o)
	if err != nil {
		handler.fail(w, o.api.Name, "update", err)
		return
	}

	e, err := o.Update(r.Context(), req)
	if err != nil {
		handler.fail(w, o.api.Name, "update", err)
		return
	}
	handler.writeEntity(w, r, o.api.Name, "update", http.StatusOK, e)
}

func (handler *Handler) delete(w http.ResponseWriter, r *http.Request) {
	defer prometheus.NewTimer(metricRequestDuration.WithLabelValues("delete")).ObserveDuration()

	o, ok := handler.orchestrator(w, mux.Vars(r)["kind"], "delete")
	if !ok {
		return
	}

	id := r.URL.Query().Get("id")
	params := ParamsOf(r.URL.Query(), r.Header)
	if err := o.Delete(r.Context(), id, params.Key); err != nil {
		handler.fail(w, o.api.Name, "delete", err)
		return
	}
	handler.writeJSON(w, o.api.Name, "delete", http.StatusAccepted, Message{Status: http.StatusAccepted, Message: fmt.Sprintf("Resource %s deleted", id)})
}

func (handler *Handler) get(w http.ResponseWriter, r *http.Request) {
	defer prometheus.NewTimer(metricRequestDuration.WithLabelValues("get")).ObserveDuration()

	vars := mux.Vars(r)
	o, ok := handler.orchestrator(w, vars["kind"], "get")
	if !ok {
		return
	}

	id := vars["id"]
	if id == "" {
		id = r.URL.Query().Get("id")
	}

	e, err := o.Get(r.Context(), id)
	if err != nil {
		handler.fail(w, o.api.Name, "get", err)
		return
	}
	handler.writeEntity(w, r, o.api.Name, "get", http.StatusOK, e)
}

func (handler *Handler) find(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("id") {
		handler.get(w, r)
		return
	}
	defer prometheus.NewTimer(metricRequestDuration.WithLabelValues("find")).ObserveDuration()

	o, ok := handler.orchestrator(w, mux.Vars(r)["kind"], "find")
	if !ok {
		return
	}

	q, err := queryOf(r)
	if err != nil {
		handler.fail(w, o.api.Name, "find", err)
		return
	}
	q.Text = r.URL.Query().Get("q")

	page, err := o.Find(r.Context(), q)
	if err != nil {
		handler.fail(w, o.api.Name, "find", err)
		return
	}

	results := Results{
		Total:     page.Total,
		Start:     page.Start,
		Rows:      len(page.Resources),
		Resources: make([]map[string]any, len(page.Resources)),
	}
	for i, e := range page.Resources {
		results.Resources[i] = EntityJSON(e)
	}
	handler.writeJSON(w, o.api.Name, "find", http.StatusOK, results)
}

func (handler *Handler) autocomplete(w http.ResponseWriter, r *http.Request) {
	defer prometheus.NewTimer(metricRequestDuration.WithLabelValues("autocomplete")).ObserveDuration()

	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = handler.AutoComplete
	}
	if kind == "" {
		kind = Concepts.Name
	}

	o, ok := handler.orchestrator(w, kind, "autocomplete")
	if !ok {
		return
	}

	q, err := queryOf(r)
	if err != nil {
		handler.fail(w, o.api.Name, "autocomplete", err)
		return
	}
	q.Text = mux.Vars(r)["term"]
	q.Prefix = true

	labels, err := o.AutoComplete(r.Context(), q)
	if err != nil {
		handler.fail(w, o.api.Name, "autocomplete", err)
		return
	}
	if labels == nil {
		labels = []string{}
	}
	handler.writeJSON(w, o.api.Name, "autocomplete", http.StatusOK, labels)
}

// decode reads the resource submitted with r.
func decode(r *http.Request, o *Orchestrator) (Request, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize))
	if err != nil {
		return Request{}, errorf(http.StatusBadRequest, "Unable to read request body")
	}
	return DecodeRequest(body, o.api.Type, ParamsOf(r.URL.Query(), r.Header))
}

// queryOf reads the filters and paging parameters of a search.
func queryOf(r *http.Request) (q search.Query, err error) {
	query := r.URL.Query()

	q.Tenants = query["tenant"]
	q.Sets = query["set"]
	q.Schemes = query["scheme"]
	q.Statuses = query["status"]
	q.Prefix = isYes(query.Get("prefix"))

	for _, param := range []struct {
		name  string
		value *int
	}{
		{"start", &q.Start},
		{"rows", &q.Rows},
	} {
		raw := query.Get(param.name)
		if raw == "" {
			continue
		}
		*param.value, err = strconv.Atoi(raw)
		if err != nil || *param.value < 0 {
			return q, errorf(http.StatusBadRequest, "Invalid value for %s: %q", param.name, raw)
		}
	}
	return q, nil
}

// writeEntity sends e as n-triples, or as json when requested with format=json.
func (handler *Handler) writeEntity(w http.ResponseWriter, r *http.Request, kind, operation string, code int, e resource.Entity) {
	if r.URL.Query().Get("format") == "json" {
		handler.writeJSON(w, kind, operation, code, EntityJSON(e))
		return
	}

	graph, err := bridge.Graph(e)
	if err != nil {
		handler.fail(w, kind, operation, err)
		return
	}

	var buffer bytes.Buffer
	if err := bridge.EncodeRDF(&buffer, graph, rdf.NTriples); err != nil {
		handler.fail(w, kind, operation, err)
		return
	}

	metricRequests.WithLabelValues(kind, operation, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/n-triples")
	w.WriteHeader(code)
	w.Write(buffer.Bytes())
}

func (handler *Handler) writeJSON(w http.ResponseWriter, kind, operation string, code int, v any) {
	metricRequests.WithLabelValues(kind, operation, strconv.Itoa(code)).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// fail sends err to the client.
// Unexpected errors are logged, and not revealed to the client.
func (handler *Handler) fail(w http.ResponseWriter, kind, operation string, err error) {
	ae := AsError(err)
	if ae.Code >= http.StatusInternalServerError {
		handler.Status.LogError("request failed", err, "kind", kind, "operation", operation)
	}
	handler.writeJSON(w, kind, operation, ae.Code, Message{Status: ae.Code, Message: ae.Message})
}

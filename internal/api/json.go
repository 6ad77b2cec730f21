package api

import (
	"github.com/FAU-CDI/skosd/internal/resource"
)

// Message is the json body of error and status responses.
type Message struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Results is the json body of search responses.
type Results struct {
	Total     int              `json:"total"`
	Start     int              `json:"start"`
	Rows      int              `json:"rows"`
	Resources []map[string]any `json:"resources"`
}

// EntityJSON returns the json representation of e.
//
// The uri is stored under "uri", every predicate maps to the list of its values.
// Literals become objects with "value" and optional "lang" and "type",
// references become objects with a single "uri".
func EntityJSON(e resource.Entity) map[string]any {
	r := e.Res()

	result := make(map[string]any, r.Len()+1)
	if !r.IsBlank() {
		result["uri"] = r.URI()
	}
	for _, predicate := range r.Predicates() {
		values := r.Get(predicate)
		encoded := make([]any, len(values))
		for i, value := range values {
			encoded[i] = valueJSON(value)
		}
		result[predicate] = encoded
	}
	return result
}

func valueJSON(value resource.Value) any {
	switch v := value.(type) {
	case resource.Literal:
		literal := map[string]string{"value": v.Value}
		if v.Language != "" {
			literal["lang"] = v.Language
		}
		if v.Datatype != "" {
			literal["type"] = v.Datatype
		}
		return literal
	case resource.URI:
		return map[string]string{"uri": string(v)}
	case resource.Entity:
		return EntityJSON(v)
	}
	return nil
}

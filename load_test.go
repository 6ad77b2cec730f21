package skosd_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FAU-CDI/skosd"
	"github.com/FAU-CDI/skosd/internal/status"
	"github.com/FAU-CDI/skosd/internal/triplestore"
	"github.com/google/go-cmp/cmp"
)

const animals = `<http://example.com/concept/cat> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/2004/02/skos/core#Concept> .
<http://example.com/concept/cat> <http://www.w3.org/2004/02/skos/core#prefLabel> "cat"@en <http://example.com/graph> .
<http://example.com/concept/dog> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/2004/02/skos/core#Concept> .
<http://example.com/concept/dog> <http://www.w3.org/2004/02/skos/core#prefLabel> "dog"@en .
<http://example.com/concept/dog> <http://www.w3.org/2004/02/skos/core#related> <http://example.com/concept/cat> .
`

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, 1, 2, 100} {
		store, err := triplestore.Open(triplestore.MemoryEngine{})
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()

		loader := skosd.Loader{Client: store, Status: status.Discard(), BatchSize: size}
		count, err := loader.Load(context.Background(), strings.NewReader(animals))
		if err != nil {
			t.Errorf("batch size %d: Load() error = %v", size, err)
			continue
		}
		if count != 5 {
			t.Errorf("batch size %d: Load() = %d, want 5", size, count)
		}
		if got, _ := store.Len(); got != 5 {
			t.Errorf("batch size %d: store holds %d triples, want 5", size, got)
		}
	}
}

func TestFindSources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"a.nq", "b.nt", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(animals), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	empty := t.TempDir()

	tests := []struct {
		name    string
		argv    []string
		want    []string
		wantErr bool
	}{
		{"nothing", nil, nil, true},
		{"directory", []string{dir}, []string{filepath.Join(dir, "a.nq"), filepath.Join(dir, "b.nt")}, false},
		{"file", []string{filepath.Join(dir, "c.txt")}, []string{filepath.Join(dir, "c.txt")}, false},
		{"empty directory", []string{empty}, nil, true},
		{"missing", []string{filepath.Join(dir, "missing.nq")}, nil, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := skosd.FindSources(tt.argv...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FindSources() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FindSources() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

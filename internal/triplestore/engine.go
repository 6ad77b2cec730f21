package triplestore

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/FAU-CDI/skosd/internal/triplestore/imap"
	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
)

//spellchecker:words imap nquads leveldb

// Engine creates the subject index backing a Store.
type Engine interface {
	// Subjects returns a map from the n-triples form of a subject to all triples with that subject.
	Subjects() (imap.HashMap[string, []quad.Quad], error)
}

// MemoryEngine keeps all triples in main memory.
type MemoryEngine struct{}

func (MemoryEngine) Subjects() (imap.HashMap[string, []quad.Quad], error) {
	mp := imap.MakeMemory[string, []quad.Quad](0)
	return &mp, nil
}

// DiskEngine keeps all triples inside a leveldb database at Path.
type DiskEngine struct {
	Path string

	// Wipe removes any existing database before opening.
	Wipe bool
}

func (de DiskEngine) Subjects() (imap.HashMap[string, []quad.Quad], error) {
	ds, err := imap.OpenDiskStorage[string, []quad.Quad](de.Path, de.Wipe)
	if err != nil {
		return nil, err
	}

	ds.MarshalKey = func(key string) ([]byte, error) {
		return []byte(key), nil
	}
	ds.UnmarshalKey = func(dest *string, src []byte) error {
		*dest = string(src)
		return nil
	}
	ds.MarshalValue = marshalGraph
	ds.UnmarshalValue = unmarshalGraph

	return ds, nil
}

// marshalGraph encodes graph as n-triples.
func marshalGraph(graph []quad.Quad) ([]byte, error) {
	var buffer bytes.Buffer
	w := nquads.NewWriter(&buffer)
	for _, q := range graph {
		if err := w.WriteQuad(q); err != nil {
			return nil, fmt.Errorf("failed to encode triple: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode triple: %w", err)
	}
	return buffer.Bytes(), nil
}

// unmarshalGraph decodes n-triples produced by marshalGraph.
func unmarshalGraph(dest *[]quad.Quad, src []byte) error {
	reader := nquads.NewReader(bytes.NewReader(src), true)
	defer reader.Close()

	*dest = (*dest)[:0]
	for {
		q, err := reader.ReadQuad()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to decode triple: %w", err)
		}
		*dest = append(*dest, q)
	}
}

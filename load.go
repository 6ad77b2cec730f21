package skosd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/FAU-CDI/skosd/internal/status"
	"github.com/FAU-CDI/skosd/pkg/progress"
	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
)

//spellchecker:words nquads ntriples

var errNoSources = errors.New("need at least one file or directory")

// SourceExtensions are the extensions of files picked up from directories.
var SourceExtensions = []string{".nq", ".nt"}

// FindSources finds the n-quads and n-triples files to load from the given paths.
// Files are used as given, directories contribute their files with one of SourceExtensions.
// FindSources does not guarantee that contents are loadable.
func FindSources(argv ...string) (files []string, err error) {
	if len(argv) == 0 {
		return nil, errNoSources
	}

	for _, path := range argv {
		isDir, err := isDirectory(path)
		if err != nil {
			return nil, err
		}

		if !isDir {
			ok, err := isFile(path)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%q is not a regular file", path)
			}
			files = append(files, path)
			continue
		}

		var found int
		for _, ext := range SourceExtensions {
			matches, err := filepath.Glob(filepath.Join(path, "*"+ext))
			if err != nil {
				return nil, err
			}
			found += len(matches)
			files = append(files, matches...)
		}
		if found == 0 {
			return nil, fmt.Errorf("no '*.nq' or '*.nt' files in %q", path)
		}
	}

	return files, nil
}

func isDirectory(path string) (ok bool, err error) {
	stats, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return stats.Mode().IsDir(), nil
}

func isFile(path string) (ok bool, err error) {
	stats, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return stats.Mode().IsRegular(), nil
}

// DefaultBatchSize is the default number of triples sent to the store at once.
const DefaultBatchSize = 1000

// Loader inserts triples read from files into a store.
type Loader struct {
	Client sparql.Client
	Status *status.Status

	// BatchSize is the number of triples inserted at once.
	// Defaults to DefaultBatchSize.
	BatchSize int
}

// LoadFiles loads all given files in order and returns the total number of triples inserted.
func (loader Loader) LoadFiles(ctx context.Context, files ...string) (total int, err error) {
	for _, file := range files {
		count, err := loader.LoadFile(ctx, file)
		total += count
		if err != nil {
			return total, fmt.Errorf("%q: %w", file, err)
		}
		loader.Status.Log("loaded file", "file", file, "triples", count)
	}
	return total, nil
}

// LoadFile loads the triples in the file at path.
func (loader Loader) LoadFile(ctx context.Context, path string) (count int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	var size int64
	if stats, err := file.Stat(); err == nil {
		size = stats.Size()
	}

	reader := &progress.Reader{
		Reader:     file,
		Total:      size,
		Rewritable: progress.Rewritable{Writer: loader.Status.Rewritable().Writer, FlushInterval: progress.DefaultFlushInterval},
	}
	defer reader.Close()

	return loader.Load(ctx, reader)
}

// Load inserts all triples read from r.
// Graph labels of quads are dropped.
func (loader Loader) Load(ctx context.Context, r io.Reader) (count int, err error) {
	size := loader.BatchSize
	if size < 1 {
		size = DefaultBatchSize
	}

	reader := nquads.NewReader(r, true)
	defer func() {
		err = errors.Join(err, reader.Close())
	}()

	batch := make([]quad.Quad, 0, size)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := loader.Client.Insert(ctx, batch); err != nil {
			return err
		}
		count += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		q, err := reader.ReadQuad()
		if errors.Is(err, io.EOF) {
			return count, flush()
		}
		if err != nil {
			return count, err
		}

		q.Label = nil
		batch = append(batch, q)
		if len(batch) < size {
			continue
		}
		if err := flush(); err != nil {
			return count, err
		}
	}
}

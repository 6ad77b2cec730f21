// Package backend opens the triple store and the sql databases used by skosd commands.
package backend

//spellchecker:words leveldb

import (
	"context"
	"errors"
	"flag"
	"io"

	"github.com/FAU-CDI/skosd/internal/catalog"
	"github.com/FAU-CDI/skosd/internal/search"
	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/FAU-CDI/skosd/internal/sqlitey"
	"github.com/FAU-CDI/skosd/internal/status"
	"github.com/FAU-CDI/skosd/internal/triplestore"
)

// Store describes the triple store to use.
//
// When Endpoint is set, a remote SPARQL endpoint is used.
// Otherwise an embedded store is opened, kept on disk when Path is set.
type Store struct {
	Endpoint       string
	UpdateEndpoint string
	DefaultGraph   string
	Username       string
	Password       string

	Path string
	Wipe bool
}

// RegisterFlags registers flags configuring s with fs.
func (s *Store) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&s.Endpoint, "sparql", s.Endpoint, "SPARQL query endpoint to use instead of the embedded store")
	fs.StringVar(&s.UpdateEndpoint, "sparql-update", s.UpdateEndpoint, "SPARQL update endpoint, defaults to the query endpoint")
	fs.StringVar(&s.DefaultGraph, "sparql-graph", s.DefaultGraph, "Default graph of the SPARQL endpoint")
	fs.StringVar(&s.Username, "sparql-user", s.Username, "Username for the SPARQL endpoint")
	fs.StringVar(&s.Password, "sparql-password", s.Password, "Password for the SPARQL endpoint")
	fs.StringVar(&s.Path, "store", s.Path, "Keep the embedded store in the given directory as opposed to memory")
	fs.BoolVar(&s.Wipe, "store-wipe", s.Wipe, "Remove any existing data of the embedded store before opening")
}

var errWipeEndpoint = errors.New("-store-wipe can not be used with a SPARQL endpoint")

// Open opens the store described by s.
// The returned closer must be called once the store is no longer needed.
func (s Store) Open(ctx context.Context, st *status.Status) (client sparql.Client, closer io.Closer, err error) {
	err = st.DoStage(status.StageOpen, func() error {
		if s.Endpoint != "" {
			if s.Wipe {
				return errWipeEndpoint
			}
			client = &sparql.Endpoint{
				QueryURL:     s.Endpoint,
				UpdateURL:    s.UpdateEndpoint,
				DefaultGraph: s.DefaultGraph,
				Username:     s.Username,
				Password:     s.Password,
			}
			closer = nopCloser{}
			st.StoreStats(status.StoreStats{Backend: "sparql", Triples: -1})
			return nil
		}

		var engine triplestore.Engine = triplestore.MemoryEngine{}
		backend := "memory"
		if s.Path != "" {
			engine = triplestore.DiskEngine{Path: s.Path, Wipe: s.Wipe}
			backend = "leveldb"
		}

		store, err := triplestore.Open(engine)
		if err != nil {
			return err
		}

		count, err := store.Len()
		if err != nil {
			return errors.Join(err, store.Close())
		}

		client, closer = store, store
		st.StoreStats(status.StoreStats{Backend: backend, Triples: count})
		st.Log("opened store", "backend", backend, "triples", count)
		return nil
	})
	return
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SQL describes the sql databases holding the catalog and the search index.
type SQL struct {
	Driver  string
	Catalog string // data source name of the catalog
	Index   string // data source name of the search index
}

// DefaultSQL returns the default databases, in-memory sqlite databases.
func DefaultSQL() SQL {
	return SQL{
		Driver:  sqlitey.DriverSQLite,
		Catalog: ":memory:",
		Index:   ":memory:",
	}
}

// RegisterFlags registers flags configuring s with fs.
func (s *SQL) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&s.Driver, "sql-driver", s.Driver, "SQL driver for catalog and search index, one of 'sqlite' or 'mysql'")
	fs.StringVar(&s.Catalog, "catalog", s.Catalog, "Data source name of the tenant, set and user catalog")
	fs.StringVar(&s.Index, "index", s.Index, "Data source name of the search index")
}

// OpenCatalog opens and migrates the catalog.
func (s SQL) OpenCatalog(ctx context.Context, st *status.Status) (c *catalog.Catalog, err error) {
	err = st.DoStage(status.StageCatalog, func() error {
		db, flavor, err := sqlitey.Open(s.Driver, s.Catalog)
		if err != nil {
			return err
		}
		c, err = catalog.New(ctx, db, flavor)
		if err != nil {
			return errors.Join(err, db.Close())
		}
		return nil
	})
	return
}

// OpenIndex opens and migrates the search index.
func (s SQL) OpenIndex(ctx context.Context, st *status.Status) (index *search.Index, err error) {
	err = st.DoStage(status.StageSearch, func() error {
		db, flavor, err := sqlitey.Open(s.Driver, s.Index)
		if err != nil {
			return err
		}
		index, err = search.New(ctx, db, flavor)
		if err != nil {
			return errors.Join(err, db.Close())
		}
		return nil
	})
	return
}

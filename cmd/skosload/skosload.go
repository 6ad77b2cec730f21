// Command skosload loads n-quads and n-triples files into a triple store
package main

//spellchecker:words skosload nquads

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/FAU-CDI/skosd"
	"github.com/FAU-CDI/skosd/internal/api"
	"github.com/FAU-CDI/skosd/internal/backend"
	"github.com/FAU-CDI/skosd/internal/manager"
	"github.com/FAU-CDI/skosd/internal/status"
	"github.com/pkg/profile"
	"github.com/tkw1536/pkglib/perf"
)

func main() {
	st := status.New(os.Stderr, debug)

	if debugProfile != "" {
		defer profile.Start(profile.ProfilePath(debugProfile)).Stop()
	}

	files, err := skosd.FindSources(nArgs...)
	if err != nil {
		st.Log("Usage: skosload [-help] [...flags] /path/to/file.nq|/path/to/directory...")
		st.LogFatal("find sources", err)
	}

	ctx := context.Background()

	client, closer, err := store.Open(ctx, st)
	if err != nil {
		os.Exit(1)
	}
	defer closer.Close()

	var total int
	err = st.DoStage(status.StageLoad, func() (err error) {
		total, err = skosd.Loader{Client: client, Status: st, BatchSize: batchSize}.LoadFiles(ctx, files...)
		return
	})
	if err != nil {
		os.Exit(1)
	}
	st.Log("finished loading", "files", len(files), "triples", total, "took", st.Diff(), "now", perf.Now())

	if !reindex {
		return
	}

	services := api.Services{Client: client, Status: st}

	users, err := databases.OpenCatalog(ctx, st)
	if err != nil {
		os.Exit(1)
	}
	defer users.Close()
	services.Catalog = users

	index, err := databases.OpenIndex(ctx, st)
	if err != nil {
		os.Exit(1)
	}
	defer index.Close()
	services.Index = index

	config := api.Config{Manager: manager.DefaultConfig()}
	err = st.DoStage(status.StageReindex, func() error {
		for _, kind := range api.DefaultAPIs() {
			count, err := api.New(kind, config, services).Reindex(ctx)
			if err != nil {
				return err
			}
			st.Log("reindexed", "kind", kind.Name, "count", count)
		}
		return nil
	})
	if err != nil {
		os.Exit(1)
	}
}

var nArgs []string

var store backend.Store
var databases = backend.DefaultSQL()

var batchSize = skosd.DefaultBatchSize
var reindex bool

var debug bool
var debugProfile string

func init() {
	var legalFlag bool = false
	flag.BoolVar(&legalFlag, "legal", legalFlag, "Display legal notices and exit")
	defer func() {
		if legalFlag {
			fmt.Print(skosd.LegalText())
			os.Exit(0)
		}
	}()

	store.RegisterFlags(flag.CommandLine)
	databases.RegisterFlags(flag.CommandLine)

	flag.IntVar(&batchSize, "batch", batchSize, "Number of triples inserted at once")
	flag.BoolVar(&reindex, "reindex", reindex, "After loading, index all resources into the catalog and search index")

	flag.BoolVar(&debug, "debug", debug, "Log debug messages")
	flag.StringVar(&debugProfile, "debug-profile", debugProfile, "write out a debugging profile to the given path")

	flag.Parse()
	nArgs = flag.Args()
}

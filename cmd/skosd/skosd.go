// Command skosd serves a SKOS and SKOS-XL api on top of a triple store
package main

//spellchecker:words skosd pprof nquads

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/FAU-CDI/skosd"
	"github.com/FAU-CDI/skosd/internal/api"
	"github.com/FAU-CDI/skosd/internal/backend"
	"github.com/FAU-CDI/skosd/internal/catalog"
	"github.com/FAU-CDI/skosd/internal/manager"
	"github.com/FAU-CDI/skosd/internal/status"
	"github.com/pkg/profile"
	"github.com/tkw1536/pkglib/perf"
)

var st = status.New(os.Stderr, false)

func main() {
	if debugProfile != "" {
		defer profile.Start(profile.ProfilePath(debugProfile)).Stop()
	}
	if debugServer != "" {
		go listenDebug()
	}

	ctx := context.Background()

	policy, err := api.ParseAuthPolicy(authPolicy)
	if err != nil {
		st.LogFatal("parse auth policy", err)
	}

	config := api.Config{
		Manager:          managerConfig(),
		Auth:             policy,
		ForceLabels:      forceLabels,
		UniquePrefLabels: uniquePrefLabels,
	}

	// open the store and load initial data
	var services api.Services
	services.Status = st

	client, closer, err := store.Open(ctx, st)
	if err != nil {
		os.Exit(1)
	}
	defer closer.Close()
	services.Client = client

	if len(nArgs) > 0 {
		err := st.DoStage(status.StageLoad, func() error {
			files, err := skosd.FindSources(nArgs...)
			if err != nil {
				return err
			}
			_, err = skosd.Loader{Client: client, Status: st, BatchSize: batchSize}.LoadFiles(ctx, files...)
			return err
		})
		if err != nil {
			os.Exit(1)
		}
	}

	// open the sql databases
	users, err := databases.OpenCatalog(ctx, st)
	if err != nil {
		os.Exit(1)
	}
	defer users.Close()
	services.Catalog = users

	if rootKey != "" {
		root := catalog.User{Key: rootKey, URI: strings.TrimSuffix(baseURI, "/") + "/user/root", Name: "root", Role: catalog.RoleRoot}
		if err := users.PutUser(ctx, root); err != nil {
			st.LogFatal("create root user", err)
		}
	}

	index, err := databases.OpenIndex(ctx, st)
	if err != nil {
		os.Exit(1)
	}
	defer index.Close()
	services.Index = index

	// build the handler
	handler := &api.Handler{Status: st}
	for _, kind := range api.DefaultAPIs() {
		handler.Orchestrators = append(handler.Orchestrators, api.New(kind, config, services))
	}
	handler.Prepare()

	if reindex {
		err := st.DoStage(status.StageReindex, func() error {
			for _, o := range handler.Orchestrators {
				count, err := o.Reindex(ctx)
				if err != nil {
					return err
				}
				st.Log("reindexed", "kind", o.API().Name, "count", count)
			}
			return nil
		})
		if err != nil {
			os.Exit(1)
		}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		st.LogFatal("listen", err)
	}
	st.Log("listen", "addr", addr, "took", st.Diff(), "now", perf.Now())

	server := http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	st.Start(status.StageServe)
	if err := server.Serve(listener); err != nil {
		st.LogFatal("serve", err)
	}
}

func managerConfig() manager.Config {
	config := manager.DefaultConfig()
	config.Tries = tries
	config.Sleep = sleep
	config.BaseURI = baseURI
	if urisFromNotation {
		config.URIPolicy = manager.URIFromNotation
	}
	if customRelations {
		config.RelationPolicy = manager.RelationsCustom
	}
	return config
}

var nArgs []string

var store backend.Store
var databases = backend.DefaultSQL()
var rootKey string

var addr = ":3000"
var baseURI = "http://localhost:3000"

var authPolicy = api.AuthTenant.String()
var forceLabels bool
var uniquePrefLabels bool
var urisFromNotation bool
var customRelations bool
var reindex bool

var tries = manager.DefaultConfig().Tries
var sleep = manager.DefaultConfig().Sleep
var batchSize = skosd.DefaultBatchSize

var debugServer string
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

	flag.StringVar(&addr, "addr", addr, "Address to serve the api on")
	flag.StringVar(&baseURI, "base-uri", baseURI, "Prefix of generated uris")

	flag.StringVar(&authPolicy, "auth", authPolicy, "Authorisation policy, one of 'none', 'tenant' or 'owner'")
	flag.BoolVar(&forceLabels, "force-labels", forceLabels, "Create skos-xl labels for simple labels regardless of the tenant")
	flag.BoolVar(&uniquePrefLabels, "unique-pref-labels", uniquePrefLabels, "Reject concepts whose preferred label is already in use")
	flag.BoolVar(&urisFromNotation, "uri-notation", urisFromNotation, "Generate uris from notations instead of uuids")
	flag.BoolVar(&customRelations, "custom-relations", customRelations, "Accept relations registered as owl:ObjectProperty")
	flag.BoolVar(&reindex, "reindex", reindex, "Rebuild the search index and catalog from the store before serving")

	flag.IntVar(&tries, "tries", tries, "Number of tries for store requests that time out")
	flag.DurationVar(&sleep, "retry-sleep", sleep, "Time to wait before retrying a store request")
	flag.IntVar(&batchSize, "batch", batchSize, "Number of triples inserted at once when loading files")

	flag.StringVar(&rootKey, "root-key", rootKey, "Create a root user with the given api key")

	store.RegisterFlags(flag.CommandLine)
	databases.RegisterFlags(flag.CommandLine)

	flag.StringVar(&debugServer, "debug-addr", debugServer, "start a profiling server on the given address")
	flag.StringVar(&debugProfile, "debug-profile", debugProfile, "write out a debugging profile to the given path")

	flag.Parse()
	nArgs = flag.Args()
}

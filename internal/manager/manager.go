// Package manager implements the Resource Manager.
//
// A Manager is the only way resources are read from and written to the triple store.
// It performs existence checks, retries timed out queries and keeps paginated results in a stable order.
//
// Writes consisting of several steps (such as Replace) are not atomic.
// When a later step fails, earlier steps are not rolled back.
package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FAU-CDI/skosd/internal/bridge"
	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/FAU-CDI/skosd/internal/status"
)

// URIPolicy determines how uris of new resources are generated.
type URIPolicy int

const (
	// URIFromUUID appends the uuid of the resource to the base uri.
	URIFromUUID URIPolicy = iota

	// URIFromNotation appends the notation of the resource to the base uri.
	// Resources without notation are assigned the next free numeric notation of their tenant.
	URIFromNotation
)

// RelationPolicy determines which relation types are accepted.
type RelationPolicy int

const (
	// RelationsSKOS accepts only the skos concept-concept relations.
	RelationsSKOS RelationPolicy = iota

	// RelationsCustom additionally accepts owl:ObjectProperty relations registered in the store.
	RelationsCustom
)

// Config configures a Manager.
type Config struct {
	Tries       int           // number of tries for timed out requests
	Sleep       time.Duration // time between query tries
	InsertSleep time.Duration // time between insert tries

	ChunkSize int // number of uris fetched per query by FetchByURIs
	PageSize  int // number of resources processed at once by bulk operations

	URIPolicy      URIPolicy
	RelationPolicy RelationPolicy

	// BaseURI is the default prefix for generated uris.
	BaseURI string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Tries:       3,
		Sleep:       30 * time.Second,
		InsertSleep: time.Second,

		ChunkSize: 50,
		PageSize:  100,
	}
}

// Manager manages resources of a single type.
type Manager struct {
	client sparql.Client
	typ    string
	config Config
	status *status.Status

	decoder bridge.Decoder

	// now returns the current time
	now func() time.Time
}

// New creates a new manager for resources of the given type.
// An empty type manages resources of any type.
func New(client sparql.Client, typ string, config Config, st *status.Status) *Manager {
	if config.Tries < 1 {
		config.Tries = 1
	}
	if config.ChunkSize < 1 {
		config.ChunkSize = DefaultConfig().ChunkSize
	}
	if config.PageSize < 1 {
		config.PageSize = DefaultConfig().PageSize
	}

	return &Manager{
		client: client,
		typ:    typ,
		config: config,
		status: st,

		now: time.Now,
	}
}

// Type returns the type of resources managed by m.
func (m *Manager) Type() string {
	return m.typ
}

// ForType returns a manager sharing the configuration of m, but managing a different type.
func (m *Manager) ForType(typ string) *Manager {
	other := *m
	other.typ = typ
	return &other
}

// Config returns the configuration of m.
func (m *Manager) Config() Config {
	return m.config
}

// typeOr returns typ, or the managed type when typ is empty.
func (m *Manager) typeOr(typ string) string {
	if typ != "" {
		return typ
	}
	return m.typ
}

// Query sends q to the store.
//
// When the store times out, the query is retried after sleeping.
// Any other error is returned immediately.
func (m *Manager) Query(ctx context.Context, q *sparql.Query) (*sparql.Result, error) {
	metricQueries.WithLabelValues(q.Form.String()).Inc()

	if err := q.Check(); err != nil {
		return nil, err
	}

	return retry(ctx, m, m.config.Sleep, func() (*sparql.Result, error) {
		return m.client.Query(ctx, q)
	})
}

// Ask checks if the group has any solution.
func (m *Manager) Ask(ctx context.Context, where sparql.Group) (bool, error) {
	res, err := m.Query(ctx, sparql.NewAsk(where))
	if err != nil {
		return false, err
	}
	return res.Boolean, nil
}

// update sends an update to the store.
// Updates are not retried.
func (m *Manager) update(ctx context.Context, kind string, u sparql.Update) error {
	metricUpdates.WithLabelValues(kind).Inc()

	if err := u.Check(); err != nil {
		return fmt.Errorf("failed to %s: %w", kind, err)
	}
	if err := m.client.Update(ctx, u); err != nil {
		m.status.LogError("update", err, "kind", kind)
		return fmt.Errorf("failed to %s: %w", kind, err)
	}
	return nil
}

// retry calls f until it returns something other than a timeout, or m runs out of tries.
func retry[T any](ctx context.Context, m *Manager, sleep time.Duration, f func() (T, error)) (T, error) {
	var zero T

	var err error
	for try := 1; ; try++ {
		var result T
		result, err = f()
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, sparql.ErrTimeout) {
			return zero, err
		}
		metricTimeouts.Inc()

		if try >= m.config.Tries {
			break
		}

		m.status.LogError("store request timed out", err, "try", try, "tries", m.config.Tries, "sleep", sleep)
		metricRetries.Inc()

		if err := wait(ctx, sleep); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w after %d tries: %w", ErrTransient, m.config.Tries, err)
}

// wait sleeps for d, or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

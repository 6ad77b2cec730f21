package api

import (
	"context"

	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/search"
)

// Reindex rebuilds the index documents and catalog records of every stored resource of the kind.
// Each page of resources is indexed in a single transaction, progress is reported to the status.
//
// Returns the number of processed resources.
func (o *Orchestrator) Reindex(ctx context.Context) (count int, err error) {
	m := o.manager()
	size := m.Config().PageSize

	for offset := 0; ; offset += size {
		page, err := m.Fetch(ctx, nil, offset, size, false)
		if err != nil {
			return count, err
		}

		if err := o.reindexPage(ctx, page); err != nil {
			return count, err
		}
		count += len(page)
		o.status.SetCT(count, -1)

		if len(page) < size {
			return count, nil
		}
	}
}

func (o *Orchestrator) reindexPage(ctx context.Context, page resource.Collection) error {
	if o.index != nil {
		docs := make([]search.Document, 0, len(page))
		for _, e := range page {
			if concept, ok := o.concept(e); ok {
				docs = append(docs, documents(concept)...)
				continue
			}
			docs = append(docs, search.DocumentOf(e))
		}
		if err := o.index.Index(ctx, docs...); err != nil {
			return err
		}
	}

	for _, e := range page {
		if err := o.recatalog(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

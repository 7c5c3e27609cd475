package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cinetrack/cinetrack/internal/csvio"
	"github.com/cinetrack/cinetrack/internal/store"
)

// StatementTimeout bounds the persistence work for a single record. A
// timeout fails that record only; the run continues.
var StatementTimeout = 30 * time.Second

// Importer runs bulk reconciliation imports against a Store.
type Importer struct {
	store       store.Store
	log         *slog.Logger
	stmtTimeout time.Duration

	// One mutex per entity kind serializes resolve-or-create so concurrent
	// runs cannot double-create a natural key. Cross-kind resolution stays
	// concurrent.
	mu    sync.Mutex
	locks map[store.Entity]*sync.Mutex
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the structured logger used for run diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(im *Importer) { im.log = log }
}

// WithStatementTimeout overrides the per-record persistence timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(im *Importer) { im.stmtTimeout = d }
}

// New creates an Importer backed by the given store.
func New(st store.Store, opts ...Option) *Importer {
	im := &Importer{
		store:       st,
		log:         slog.Default(),
		stmtTimeout: StatementTimeout,
		locks:       make(map[store.Entity]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Run imports every record from the CSV source at path, in source order,
// and returns the aggregate tallies plus failure diagnostics. An unreadable
// source yields a fatal all-failed result; per-record problems never abort
// the batch. The context is checked between records, so cancellation leaves
// no record partially applied beyond its already-committed writes.
func (im *Importer) Run(ctx context.Context, path string) Result {
	r, err := csvio.Open(path)
	if err != nil {
		im.log.Error("import source unreadable", "path", path, "error", err)
		return fatalResult(err)
	}
	defer r.Close()

	var res Result
	for {
		if err := ctx.Err(); err != nil {
			im.log.Warn("import cancelled", "path", path, "processed",
				res.Inserted+res.Skipped+res.Failed)
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Row: 0, Type: "", Message: "run cancelled: " + err.Error(),
			})
			res.Failed++
			return res
		}

		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// The source is undecodable from here on; abort the run.
			im.log.Error("import source undecodable", "path", path, "error", err)
			return fatalResult(err)
		}

		im.processRecord(ctx, rec, &res)
	}

	im.log.Info("import complete", "path", path,
		"inserted", res.Inserted, "skipped", res.Skipped, "failed", res.Failed)
	return res
}

// processRecord dispatches and executes one record, folding its outcome
// into the running tallies.
func (im *Importer) processRecord(ctx context.Context, rec csvio.Record, res *Result) {
	tag, handler, ok := dispatch(rec)
	if !ok {
		res.Skipped++
		im.log.Debug("unknown record type", "row", rec.Line, "tag", tag)
		return
	}

	rctx, cancel := context.WithTimeout(ctx, im.stmtTimeout)
	defer cancel()

	outcome, err := handler(rctx, im, rec)
	if err != nil {
		res.Failed++
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Row: rec.Line, Type: tag, Message: err.Error(),
		})
		im.log.Warn("record failed", "row", rec.Line, "tag", tag, "error", err)
		return
	}

	switch outcome {
	case OutcomeInserted:
		res.Inserted++
	case OutcomeSkipped:
		res.Skipped++
	}
}

func fatalResult(err error) Result {
	return Result{
		Failed: 1,
		Fatal:  true,
		Diagnostics: []Diagnostic{
			{Row: 0, Type: "", Message: err.Error()},
		},
	}
}

// entityLock returns the mutex serializing resolution for one entity kind.
func (im *Importer) entityLock(entity store.Entity) *sync.Mutex {
	im.mu.Lock()
	defer im.mu.Unlock()
	l, ok := im.locks[entity]
	if !ok {
		l = &sync.Mutex{}
		im.locks[entity] = l
	}
	return l
}

// resolveOrCreate looks an entity up by natural key and creates it with the
// given fields when absent, returning its identifier either way. Lookup and
// creation are one step under the entity's lock.
func (im *Importer) resolveOrCreate(ctx context.Context, entity store.Entity, key, fields store.Fields) (int64, error) {
	l := im.entityLock(entity)
	l.Lock()
	defer l.Unlock()

	id, err := im.store.FindByNaturalKey(ctx, entity, key)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}
	return im.store.Create(ctx, entity, fields)
}

// ensureLink makes the link row exist for the identifier tuple. A link that
// is already present is success: the desired end state holds.
func (im *Importer) ensureLink(ctx context.Context, link store.Link, ids []int64, attrs store.Fields) error {
	exists, err := im.store.LinkExists(ctx, link, ids)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return im.store.CreateLink(ctx, link, ids, attrs)
}

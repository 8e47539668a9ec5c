// Package pipeline drives one harvest run: resolve the catalog, process every
// species on a bounded worker pool, then fold the fitted results into the
// canonical dataset in catalog order.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/fishlwr/internal/config"
	"github.com/turtacn/fishlwr/internal/extraction"
	"github.com/turtacn/fishlwr/internal/extraction/dom"
	"github.com/turtacn/fishlwr/internal/fallback"
	"github.com/turtacn/fishlwr/internal/infrastructure/fetch"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/fishlwr/internal/merge"
	"github.com/turtacn/fishlwr/internal/regression"
	"github.com/turtacn/fishlwr/pkg/errors"
	"github.com/turtacn/fishlwr/pkg/types/species"
)

// StrategyFallback labels items whose records came from the fallback table.
const StrategyFallback = "fallback"

// mergeLockWait bounds acquiring and releasing the merge lock.
const mergeLockWait = 30 * time.Second

// Resolver lists the species to process.
type Resolver interface {
	Resolve(ctx context.Context) ([]species.EntityDescriptor, error)
}

// Archiver stores raw detail pages.
type Archiver interface {
	ArchiveRaw(ctx context.Context, runID, entityID string, body []byte) error
}

// Locker serializes the merge step across processes.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// Options configures the pool.
type Options struct {
	WorkerCount   int
	ItemTimeout   time.Duration
	RunTimeout    time.Duration
	ProgressEvery int
	ArchiveRaw    bool
}

// OptionsFromConfig maps the pipeline section of the configuration.
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	return Options{
		WorkerCount:   cfg.WorkerCount,
		ItemTimeout:   cfg.ItemTimeout,
		RunTimeout:    cfg.RunTimeout,
		ProgressEvery: cfg.ProgressEvery,
		ArchiveRaw:    cfg.ArchiveRaw,
	}
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithFallback consults p when extraction fails for a species.
func WithFallback(p *fallback.Provider) Option {
	return func(pl *Pipeline) { pl.fallback = p }
}

// WithArchiver stores every fetched detail page.
func WithArchiver(a Archiver) Option {
	return func(pl *Pipeline) { pl.archiver = a }
}

// WithMergeLock holds l while results are folded into the dataset.
func WithMergeLock(l Locker) Option {
	return func(pl *Pipeline) { pl.mergeLock = l }
}

// WithMetrics records pool activity on m.
func WithMetrics(m *prometheus.PipelineMetrics) Option {
	return func(pl *Pipeline) {
		if m != nil {
			pl.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(pl *Pipeline) {
		if l != nil {
			pl.logger = l
		}
	}
}

// Pipeline is safe to Run repeatedly; runs share nothing but the fetcher.
type Pipeline struct {
	opts      Options
	resolver  Resolver
	fetcher   fetch.RawFetcher
	extractor *extraction.Extractor
	fitter    *regression.Fitter
	fallback  *fallback.Provider
	archiver  Archiver
	mergeLock Locker
	metrics   *prometheus.PipelineMetrics
	logger    logging.Logger
}

// New assembles a Pipeline.
func New(opts Options, resolver Resolver, fetcher fetch.RawFetcher, extractor *extraction.Extractor, fitter *regression.Fitter, options ...Option) *Pipeline {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = config.DefaultWorkerCount
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = config.DefaultItemTimeout
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = config.DefaultProgressEvery
	}
	p := &Pipeline{
		opts:      opts,
		resolver:  resolver,
		fetcher:   fetcher,
		extractor: extractor,
		fitter:    fitter,
		metrics:   prometheus.NewNopMetrics(),
		logger:    logging.NewNopLogger(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Output is the result of one run.
type Output struct {
	Summary RunSummary
	Items   []ItemResult
	Dataset *species.CanonicalDataset
	Report  merge.Report
}

// Fitted returns only this run's successful results and their records,
// without the merge base.  Append-only sinks consume this view.
func (o *Output) Fitted() *species.CanonicalDataset {
	ds := &species.CanonicalDataset{}
	for _, it := range o.Items {
		if it.Status != ItemStatusSuccess || it.Result == nil {
			continue
		}
		ds.Results = append(ds.Results, *it.Result)
		ds.Records = append(ds.Records, it.Records...)
	}
	return ds
}

// Run resolves the catalog and processes every species.  base, when non-nil,
// is the dataset the fitted results are merged into; it is not mutated.
//
// Only an unreachable catalog (or a failed merge lock) is returned as an
// error.  Per-species failures are reported in the summary, so a run in
// which every species failed still returns a nil error.
func (p *Pipeline) Run(ctx context.Context, base *species.CanonicalDataset) (*Output, error) {
	runID := uuid.NewString()
	started := time.Now()
	log := p.logger.With(logging.RunID(runID))

	if p.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RunTimeout)
		defer cancel()
	}

	entities, err := p.resolver.Resolve(ctx)
	if err != nil {
		if !errors.IsCode(err, errors.ErrCodeCatalogUnreachable) {
			err = errors.Wrap(err, errors.ErrCodeCatalogUnreachable, "catalog resolution failed")
		}
		log.Error("catalog unreachable", logging.Err(err))
		return nil, err
	}
	log.Info("run started",
		logging.Int("species", len(entities)),
		logging.Int("workers", p.opts.WorkerCount))

	items := p.Process(ctx, runID, entities)

	out := &Output{Items: items}
	ds, rep, err := p.fold(ctx, base, items)
	if err != nil {
		return nil, err
	}
	out.Dataset, out.Report = ds, rep
	out.Summary = summarize(runID, started, items)

	p.metrics.RecordRun(out.Summary.Cancelled > 0, out.Summary.Duration)
	log.Info("run finished",
		logging.Int("total", out.Summary.Total),
		logging.Int("success", out.Summary.Success),
		logging.Int("failure", out.Summary.Failure),
		logging.Int("cancelled", out.Summary.Cancelled),
		logging.Any("by_category", out.Summary.ByCategory),
		logging.Duration("duration", out.Summary.Duration))
	return out, nil
}

// Process runs the worker pool over entities and returns one ItemResult per
// entity, in input order.  When ctx is done no further entity is dispatched;
// entities already in flight finish under their own item timeout and the
// rest are marked cancelled.
func (p *Pipeline) Process(ctx context.Context, runID string, entities []species.EntityDescriptor) []ItemResult {
	results := make([]ItemResult, len(entities))
	sem := make(chan struct{}, p.opts.WorkerCount)
	var wg sync.WaitGroup
	var done int64
	log := p.logger.With(logging.RunID(runID))

	dispatched := 0
dispatch:
	for i, e := range entities {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
		if ctx.Err() != nil {
			<-sem
			break
		}
		dispatched++
		wg.Add(1)
		go func(idx int, entity species.EntityDescriptor) {
			defer wg.Done()
			defer func() { <-sem }()

			p.metrics.ActiveWorkers.WithLabelValues().Inc()
			results[idx] = p.processOne(ctx, runID, idx, entity)
			p.metrics.ActiveWorkers.WithLabelValues().Dec()

			if n := atomic.AddInt64(&done, 1); n%int64(p.opts.ProgressEvery) == 0 {
				log.Info("progress",
					logging.Int64("processed", n),
					logging.Int("total", len(entities)))
			}
		}(i, e)
	}
	wg.Wait()

	for i := dispatched; i < len(entities); i++ {
		results[i] = ItemResult{Index: i, Entity: entities[i], Name: entities[i].Name, Status: ItemStatusCancelled}
	}
	if dispatched < len(entities) {
		log.Warn("run cancelled before dispatching every species",
			logging.Int("dispatched", dispatched),
			logging.Int("total", len(entities)))
	}
	return results
}

// processOne runs fetch → extract → fit for a single species.  The item
// context is detached from run cancellation and bounded by ItemTimeout.
func (p *Pipeline) processOne(runCtx context.Context, runID string, idx int, entity species.EntityDescriptor) ItemResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), p.opts.ItemTimeout)
	defer cancel()

	item := ItemResult{Index: idx, Entity: entity, Name: entity.Name}
	finish := func(err error) ItemResult {
		item.Duration = time.Since(start)
		if err != nil {
			item.Err = err
			item.Status = ItemStatusFailed
			item.Category = CategoryOf(err)
			p.logger.Warn("species failed",
				logging.RunID(runID),
				logging.EntityID(entity.ID),
				logging.EntityName(item.Name),
				logging.Category(item.Category),
				logging.Err(err))
		} else {
			item.Status = ItemStatusSuccess
		}
		p.metrics.RecordEntity(err == nil, item.Category)
		return item
	}

	body, err := p.fetcher.FetchRaw(ctx, entity.DetailURL)
	if err != nil {
		return finish(errors.Wrap(err, errors.ErrCodeEntityFetchFailed, "failed to fetch detail page").WithDetail(entity.DetailURL))
	}
	if p.archiver != nil && p.opts.ArchiveRaw {
		if aerr := p.archiver.ArchiveRaw(ctx, runID, entity.ID, body); aerr != nil {
			p.logger.Warn("raw archive failed", logging.EntityID(entity.ID), logging.Err(aerr))
		}
	}
	node, err := fetch.Parse(entity.DetailURL, body)
	if err != nil {
		return finish(errors.Wrap(err, errors.ErrCodeEntityFetchFailed, "failed to parse detail page").WithDetail(entity.DetailURL))
	}

	records, err := p.extract(dom.FromNode(node), entity, &item)
	if err != nil {
		return finish(err)
	}

	// Records are kept even when the fit fails.
	item.Records = records
	result, err := p.fitter.Fit(records)
	if err != nil {
		return finish(err)
	}
	item.Result = &result
	p.metrics.RecordFit(string(result.Method), result.RSquared)
	return finish(nil)
}

// extract runs the strategy chain and falls back to the static table when
// the chain produces nothing.
func (p *Pipeline) extract(doc *dom.Document, entity species.EntityDescriptor, item *ItemResult) ([]species.MeasurementRecord, error) {
	ex, err := p.extractor.Extract(doc, entity)
	if ex != nil {
		item.Name = ex.Name
		item.Attempts = ex.Attempts
	}
	if err == nil {
		winner := ""
		for _, a := range ex.Attempts {
			if a.Succeeded() {
				winner = a.Strategy
			}
		}
		item.Strategy = winner
		p.metrics.RecordExtraction(winner, len(ex.Result.Records))
		return ex.Result.Records, nil
	}

	if p.fallback != nil {
		named := entity
		named.Name = item.Name
		if recs, ok := p.fallback.Lookup(named); ok {
			item.Strategy = StrategyFallback
			p.metrics.RecordExtraction(StrategyFallback, len(recs))
			p.logger.Info("using fallback measurements",
				logging.EntityID(entity.ID),
				logging.EntityName(item.Name),
				logging.Int("records", len(recs)))
			return recs, nil
		}
	}
	return nil, err
}

// fold merges successful items into base in catalog order on a single
// goroutine.  The merge lock is held on a context detached from run
// cancellation, so a timed-out run still folds what it collected.
func (p *Pipeline) fold(ctx context.Context, base *species.CanonicalDataset, items []ItemResult) (*species.CanonicalDataset, merge.Report, error) {
	if p.mergeLock != nil {
		lockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mergeLockWait)
		defer cancel()
		if err := p.mergeLock.Lock(lockCtx); err != nil {
			return nil, merge.Report{}, errors.Wrap(err, errors.CodeCacheError, "failed to acquire merge lock")
		}
		defer func() {
			if err := p.mergeLock.Unlock(lockCtx); err != nil {
				p.logger.Warn("merge lock release failed", logging.Err(err))
			}
		}()
	}

	eng := merge.NewEngine(base, p.logger)
	var rep merge.Report
	for _, it := range items {
		switch {
		case it.Status == ItemStatusSuccess && it.Result != nil:
			rep.Add(eng.Put(*it.Result, it.Records))
		case len(it.Records) > 0:
			rep.Add(eng.AppendRecords(it.Records))
		}
	}
	return eng.Dataset(), rep, nil
}

//Personal.AI order the ending

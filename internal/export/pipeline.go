package export

import (
	"context"
	"errors"
	"sync"
	"time"

	"media-export/internal/library"
	"media-export/internal/logging"
	"media-export/internal/metrics"
	"media-export/internal/workers"
)

// State is the pipeline's current phase, for logging and introspection.
type State string

const (
	// StateIdle means the pipeline has not started.
	StateIdle State = "idle"
	// StatePermissionPending means the run is waiting on authorization.
	StatePermissionPending State = "permission-pending"
	// StateEnumerating means the library query is in flight.
	StateEnumerating State = "enumerating"
	// StateDispatching means chunks are being enriched and emitted.
	StateDispatching State = "dispatching"
	// StateCompleted is the terminal success state.
	StateCompleted State = "completed"
	// StateFailed is the terminal error state.
	StateFailed State = "failed"
)

// Callbacks receive the run's output. OnChunk is invoked once per emitted
// chunk, zero or more times; invocations are serialized. OnComplete is
// invoked exactly once, after which no further chunks arrive. Either may be
// nil.
type Callbacks struct {
	OnChunk    func(items []Item)
	OnComplete func(err error)
}

// Pipeline streams a media library as bounded-size chunks of enriched
// items: enumerate, partition, fan out enrichment per chunk, synchronize
// each chunk at a barrier, and emit. A bulk pre-fetch cache session brackets
// the whole run. A Pipeline runs once; create a new one per run.
//
// Chunks are dispatched concurrently, so the caller receives them in
// completion order, not partition order. Item membership per chunk is fixed
// by the partition; item order within a chunk is completion order.
type Pipeline struct {
	opts      Options
	callbacks Callbacks

	gate       *PermissionGate
	enumerator *Enumerator
	cache      *CacheController
	enricher   *Enricher

	// maxChunkWorkers bounds how many chunks enrich at once.
	maxChunkWorkers int

	stateMu sync.Mutex
	state   State

	emitMu       sync.Mutex
	completeOnce sync.Once
}

// New creates a pipeline over the given store and authorizer.
func New(store library.Store, auth library.Authorizer, opts Options, callbacks Callbacks) *Pipeline {
	return &Pipeline{
		opts:            opts,
		callbacks:       callbacks,
		gate:            NewPermissionGate(auth),
		enumerator:      NewEnumerator(store),
		cache:           NewCacheController(store),
		enricher:        NewEnricher(store),
		maxChunkWorkers: workers.ForMixed(8),
		state:           StateIdle,
	}
}

// State returns the pipeline's current phase.
func (p *Pipeline) State() State {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
	logging.Debug("Pipeline state: %s", s)
}

// Run executes the export. It blocks until the run completes, is canceled,
// or fails, fires OnComplete exactly once, and returns the same error it
// reports there.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	metrics.PipelineIsRunning.Set(1)
	defer metrics.PipelineIsRunning.Set(0)

	err := p.run(ctx)

	metrics.PipelineRunDuration.Set(time.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.PipelineRunsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		metrics.PipelineRunsTotal.WithLabelValues("canceled").Inc()
	default:
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
	}

	p.complete(err)
	return err
}

func (p *Pipeline) run(ctx context.Context) error {
	// The cache session must not outlive the run on any exit path.
	defer p.cache.Stop()

	p.setState(StatePermissionPending)
	granted, err := p.gate.CheckAccess(ctx)
	if err != nil {
		p.setState(StateFailed)
		return err
	}
	if !granted {
		p.setState(StateFailed)
		return ErrPermissionDenied
	}

	p.setState(StateEnumerating)
	if err := p.opts.Validate(); err != nil {
		p.setState(StateFailed)
		return err
	}

	assets, err := p.enumerator.Enumerate(ctx, p.opts)
	if err != nil {
		p.setState(StateFailed)
		return err
	}

	// An empty library is not an error: one empty chunk, then done.
	if len(assets) == 0 {
		p.emit([]Item{})
		p.setState(StateCompleted)
		return nil
	}

	p.setState(StateDispatching)

	if err := p.cache.Start(ctx, assets, p.opts.ThumbnailWidth, p.opts.ThumbnailHeight); err != nil {
		// The cache has no correctness role; the run proceeds without it.
		logging.Warn("Pre-fetch cache start failed: %v", err)
	}

	chunks := partition(assets, p.opts.ChunkSize)
	logging.Info("Exporting %d assets in %d chunks of up to %d", len(assets), len(chunks), p.opts.ChunkSize)

	sem := make(chan struct{}, p.maxChunkWorkers)
	var wg sync.WaitGroup
	for _, chunk := range chunks {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(chunk []library.Asset) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			p.processChunk(ctx, chunk)
		}(chunk)
	}
	wg.Wait()

	// Stop the session before reporting completion so no pre-fetch
	// survives the run.
	p.cache.Stop()

	if err := ctx.Err(); err != nil {
		p.setState(StateFailed)
		return err
	}

	p.setState(StateCompleted)
	return nil
}

// processChunk fans out one enrichment task per handle and emits the chunk
// once every task has resolved. The barrier is per chunk; nothing serializes
// one chunk behind another.
func (p *Pipeline) processChunk(ctx context.Context, chunk []library.Asset) {
	results := make(chan Item, len(chunk))

	var wg sync.WaitGroup
	for _, asset := range chunk {
		wg.Add(1)
		go func(a library.Asset) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results <- p.enricher.Enrich(ctx, a, p.opts)
		}(asset)
	}
	wg.Wait()
	close(results)

	items := make([]Item, 0, len(chunk))
	for item := range results {
		items = append(items, item)
	}

	// A canceled run emits no further chunks.
	if ctx.Err() != nil {
		return
	}

	p.emit(items)
}

// emit delivers one chunk. Deliveries are serialized so the caller never
// sees overlapping OnChunk invocations.
func (p *Pipeline) emit(items []Item) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	metrics.ChunksEmitted.Inc()
	if p.callbacks.OnChunk != nil {
		p.callbacks.OnChunk(items)
	}
}

// complete fires the terminal callback at most once.
func (p *Pipeline) complete(err error) {
	p.completeOnce.Do(func() {
		if p.callbacks.OnComplete != nil {
			p.callbacks.OnComplete(err)
		}
	})
}

// partition splits assets into contiguous chunks of at most size items,
// covering the whole set in enumerator order.
func partition(assets []library.Asset, size int) [][]library.Asset {
	chunks := make([][]library.Asset, 0, (len(assets)+size-1)/size)
	for start := 0; start < len(assets); start += size {
		end := start + size
		if end > len(assets) {
			end = len(assets)
		}
		chunks = append(chunks, assets[start:end])
	}
	return chunks
}

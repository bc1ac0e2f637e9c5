// Package thumbnail renders a low resolution preview of every page and streams
// the resulting page descriptors into the session store.
//
// One generation epoch runs at a time. Documents are processed in upload
// order and pages in ascending order, strictly one render at a time, yielding
// to the scheduler between pages. Restarting cancels the running epoch; its
// late results are rejected by the store's epoch check.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/local/pagedeck/internal/codec"
	"github.com/local/pagedeck/internal/logger"
	"github.com/local/pagedeck/internal/metrics"
	"github.com/local/pagedeck/internal/session"
	"github.com/local/pagedeck/internal/thumbstore"
)

var (
	// ErrDecode marks a document that could not be opened for rendering.
	ErrDecode = errors.New("decode failure")
	// ErrPageRender marks a single page that could not be rendered or stored.
	ErrPageRender = errors.New("page render failure")
)

// State of a generation epoch.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
)

// Options tunes thumbnail output.
type Options struct {
	// Scale is the fraction of native page resolution to render at.
	Scale   float64
	Quality int
	Color   ColorMode
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = 0.2
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 70
	}
	if o.Color == "" {
		o.Color = ColorRGB
	}
	return o
}

// Failure records a document (Page 0) or page that was skipped.
type Failure struct {
	Document string `json:"document"`
	Page     int    `json:"page,omitempty"`
	Err      string `json:"error"`
}

// Progress describes the current or most recent epoch.
type Progress struct {
	Epoch     uint64    `json:"epoch"`
	SessionID string    `json:"session_id"`
	State     State     `json:"state"`
	Rendered  int       `json:"rendered"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures,omitempty"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished,omitempty"`
}

// Pipeline owns the generation lifecycle for one session store.
type Pipeline struct {
	codec codec.Codec
	store *session.Store
	blobs thumbstore.Store
	opts  Options

	mu     sync.Mutex // serializes Restart, Reset and Stop
	cancel context.CancelFunc
	done   chan struct{}

	pmu      sync.RWMutex
	progress Progress
}

// New builds a pipeline writing descriptors into store and images into blobs.
func New(c codec.Codec, store *session.Store, blobs thumbstore.Store, opts Options) *Pipeline {
	return &Pipeline{
		codec:    c,
		store:    store,
		blobs:    blobs,
		opts:     opts.withDefaults(),
		progress: Progress{State: StateIdle},
	}
}

// Restart cancels any running generation, replaces the session with docs,
// releases the previous session's thumbnails and starts a new epoch in the
// background. It returns the new, still empty session.
func (p *Pipeline) Restart(docs []session.Document) session.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	epoch, prev := p.store.Initialize(docs)
	p.release(prev)
	snap := p.store.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	p.setProgress(Progress{Epoch: epoch, SessionID: snap.ID, State: StateGenerating, Started: time.Now()})

	go func() {
		defer close(done)
		p.Generate(ctx, epoch, snap.ID, docs)
	}()
	return snap
}

// Reset cancels any running generation and clears the session.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.release(p.store.Reset())
	p.setProgress(Progress{Epoch: p.store.Epoch(), State: StateIdle})
}

// Stop cancels the running generation, if any, and waits for it to exit.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Pipeline) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel, p.done = nil, nil
}

// Wait blocks until the current generation finishes or ctx is done.
func (p *Pipeline) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Progress returns a copy of the current epoch's progress.
func (p *Pipeline) Progress() Progress {
	p.pmu.RLock()
	defer p.pmu.RUnlock()
	out := p.progress
	out.Failures = append([]Failure(nil), p.progress.Failures...)
	return out
}

func (p *Pipeline) setProgress(pr Progress) {
	p.pmu.Lock()
	p.progress = pr
	p.pmu.Unlock()
}

// update applies fn only while epoch is still the reported one.
func (p *Pipeline) update(epoch uint64, fn func(*Progress)) {
	p.pmu.Lock()
	defer p.pmu.Unlock()
	if p.progress.Epoch == epoch {
		fn(&p.progress)
	}
}

func (p *Pipeline) release(prev session.Session) {
	if prev.ID == "" {
		return
	}
	if err := p.blobs.Release(context.Background(), prev.ID); err != nil {
		lg := logger.Component("thumbnail")
		lg.Warn().Err(err).Str("session_id", prev.ID).Msg("failed to release thumbnails")
	}
}

// Generate runs one epoch synchronously until every page is processed or ctx
// is cancelled. Callers normally use Restart; Generate is the entry point
// for callers that manage the cancellation token themselves.
func (p *Pipeline) Generate(ctx context.Context, epoch uint64, sessionID string, docs []session.Document) State {
	start := time.Now()
	lg := logger.Component("thumbnail").With().Str("session_id", sessionID).Uint64("epoch", epoch).Logger()
	lg.Info().Int("documents", len(docs)).Msg("thumbnail generation started")

	p.pmu.Lock()
	if p.progress.Epoch < epoch {
		p.progress = Progress{Epoch: epoch, SessionID: sessionID, State: StateGenerating, Started: start}
	}
	p.pmu.Unlock()

	state := StateCompleted
	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		if !p.generateDocument(ctx, epoch, sessionID, doc) {
			state = StateCancelled
			break
		}
	}
	if ctx.Err() != nil {
		state = StateCancelled
	}

	p.update(epoch, func(pr *Progress) {
		pr.State = state
		pr.Finished = time.Now()
	})
	metrics.IncGeneration(string(state))
	lg.Info().Str("state", string(state)).Dur("took", time.Since(start)).Msg("thumbnail generation finished")
	return state
}

// generateDocument renders every page of doc. It returns false when the epoch
// is no longer current and generation must stop.
func (p *Pipeline) generateDocument(ctx context.Context, epoch uint64, sessionID string, doc session.Document) bool {
	lg := logger.Component("thumbnail").With().Str("session_id", sessionID).Str("document", doc.Name).Logger()
	src, err := p.codec.Open(doc.Name, doc.Data)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDecode, err)
		lg.Error().Err(err).Msg("skipping document that cannot be decoded")
		p.recordFailure(epoch, Failure{Document: doc.Name, Err: err.Error()})
		return true
	}
	defer src.Close()

	for page := 1; page <= src.PageCount(); page++ {
		if ctx.Err() != nil {
			return true
		}
		thumb, err := p.renderPage(ctx, sessionID, src, page)
		if err != nil {
			lg.Warn().Err(err).Int("page", page).Msg("skipping page")
			p.recordFailure(epoch, Failure{Document: doc.Name, Page: page, Err: err.Error()})
			runtime.Gosched()
			continue
		}
		if ctx.Err() != nil {
			return true
		}
		added := p.store.AppendPage(epoch, doc.Name, session.Page{
			ID:            session.PageID(doc.Name, page),
			OriginalIndex: page,
			Thumbnail:     thumb,
		})
		if !added {
			lg.Debug().Int("page", page).Msg("store rejected page; epoch superseded")
			return false
		}
		p.update(epoch, func(pr *Progress) { pr.Rendered++ })
		runtime.Gosched()
	}
	return true
}

func (p *Pipeline) renderPage(ctx context.Context, sessionID string, src codec.Document, page int) (thumb *session.Thumbnail, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			thumb, err = nil, fmt.Errorf("%w: page %d: panic: %v", ErrPageRender, page, r)
		}
		metrics.ObserveRender(time.Since(start), err)
	}()

	img, err := src.RenderPage(page, p.opts.Scale)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPageRender, err)
	}
	data, err := EncodeJPEG(img, p.opts.Quality, p.opts.Color)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPageRender, err)
	}
	key := session.PageID(src.Name(), page)
	if err := p.blobs.Put(ctx, sessionID, key, data); err != nil {
		return nil, fmt.Errorf("%w: store thumbnail: %w", ErrPageRender, err)
	}
	b := img.Bounds()
	return &session.Thumbnail{Key: key, MediaType: MediaTypeJPEG, Width: b.Dx(), Height: b.Dy()}, nil
}

func (p *Pipeline) recordFailure(epoch uint64, f Failure) {
	p.update(epoch, func(pr *Progress) {
		pr.Failed++
		pr.Failures = append(pr.Failures, f)
	})
}

// Package export materializes a session's page order and deletion flags into
// output PDFs and delivers them, either bundled in one archive or one by one.
//
// Documents are built strictly one after another so at most one source and
// one output are held at a time (plus the archive in archive mode). A failure
// is contained to its document; the rest of the batch still exports.
package export

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/local/pagedeck/internal/codec"
	"github.com/local/pagedeck/internal/delivery"
	"github.com/local/pagedeck/internal/logger"
	"github.com/local/pagedeck/internal/metrics"
	"github.com/local/pagedeck/internal/session"
)

// Options configures an Engine.
type Options struct {
	// Timeout bounds a whole export run; zero means no limit.
	Timeout          time.Duration
	DeliveryAttempts uint
	RetryDelay       time.Duration
}

// Engine runs exports. Only one export runs at a time.
type Engine struct {
	codec     codec.Codec
	deliverer delivery.Deliverer
	opts      Options
	busy      atomic.Bool
}

// New returns an engine delivering to d unless a call supplies its own deliverer.
func New(c codec.Codec, d delivery.Deliverer, opts Options) *Engine {
	if opts.DeliveryAttempts == 0 {
		opts.DeliveryAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 200 * time.Millisecond
	}
	return &Engine{codec: c, deliverer: d, opts: opts}
}

// Busy reports whether an export is running.
func (e *Engine) Busy() bool { return e.busy.Load() }

// Export builds every document of snap in its current page order and
// delivers the results according to mode. to overrides the engine's
// deliverer when non-nil.
//
// Per-document failures are collected in the report; the returned error is
// reserved for failures of the run itself (busy, bad mode, archive
// serialization or delivery).
func (e *Engine) Export(ctx context.Context, snap session.Session, mode Mode, to delivery.Deliverer) (*Report, error) {
	if mode != ModeArchive && mode != ModeIndividual {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if snap.Empty() {
		return nil, ErrNothingToExport
	}
	if to == nil {
		to = e.deliverer
	}
	if to == nil {
		return nil, ErrNoDeliverer
	}
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer e.busy.Store(false)
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	report := &Report{ID: uuid.NewString(), SessionID: snap.ID, Mode: mode, Outputs: []Output{}, Started: time.Now()}
	lg := logger.Component("export").With().Str("export_id", report.ID).Str("session_id", snap.ID).Str("mode", string(mode)).Logger()
	lg.Info().Int("documents", len(snap.Documents)).Msg("export started")

	result := "error"
	defer func() {
		report.Finished = time.Now()
		metrics.ObserveExport(string(mode), result, report.Finished.Sub(report.Started))
	}()

	var arch *archive
	if mode == ModeArchive {
		arch = newArchive()
	}

	for _, doc := range snap.Documents {
		if err := ctx.Err(); err != nil {
			report.fail(doc.Name, err)
			metrics.IncExportedDocument(Kind(err))
			continue
		}
		out, err := e.exportDocument(ctx, doc, snap.PagesOf(doc.Name), arch, to)
		if err != nil {
			lg.Error().Err(err).Str("document", doc.Name).Str("kind", Kind(err)).Msg("document export failed")
			report.fail(doc.Name, err)
			metrics.IncExportedDocument(Kind(err))
			continue
		}
		report.Outputs = append(report.Outputs, out)
		metrics.IncExportedDocument("ok")
	}

	if arch != nil && arch.n > 0 {
		data, err := arch.finish()
		if err != nil {
			return report, fmt.Errorf("%w: archive: %w", ErrSerialize, err)
		}
		name := ArchiveName(arch.n)
		if err := e.deliver(ctx, to, name, MediaTypeZIP, data); err != nil {
			return report, err
		}
		report.Archive = &Output{Name: name, Size: len(data)}
	}

	if report.OK() {
		result = "ok"
	} else {
		result = "partial"
	}
	lg.Info().Int("outputs", len(report.Outputs)).Int("failures", len(report.Failures)).Msg("export finished")
	return report, nil
}

// exportDocument builds one document and either adds it to arch or delivers it.
func (e *Engine) exportDocument(ctx context.Context, doc session.Document, pages []session.Page, arch *archive, to delivery.Deliverer) (Output, error) {
	data, n, err := e.build(doc, pages)
	if err != nil {
		return Output{}, err
	}
	out := Output{Document: doc.Name, Name: OutputName(doc.Name), Pages: n, Size: len(data)}
	if arch != nil {
		if err := arch.add(out.Name, data); err != nil {
			return Output{}, fmt.Errorf("%w: add to archive: %w", ErrSerialize, err)
		}
		return out, nil
	}
	if err := e.deliver(ctx, to, out.Name, MediaTypePDF, data); err != nil {
		return Output{}, err
	}
	return out, nil
}

// build copies the non-deleted pages of doc, in list order, into a new document.
func (e *Engine) build(doc session.Document, pages []session.Page) (data []byte, n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, n, err = nil, 0, fmt.Errorf("%w: panic: %v", ErrSerialize, r)
		}
	}()

	src, err := e.codec.Open(doc.Name, doc.Data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer src.Close()

	b := e.codec.NewBuilder()
	for _, p := range pages {
		if p.Deleted {
			continue
		}
		// codec copies are 0-based
		if err := b.CopyPage(src, p.OriginalIndex-1); err != nil {
			return nil, 0, fmt.Errorf("%w: page %d: %w", ErrPageCopy, p.OriginalIndex, err)
		}
	}
	data, err = b.Bytes()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	return data, b.PageCount(), nil
}

func (e *Engine) deliver(ctx context.Context, to delivery.Deliverer, name, mediaType string, data []byte) error {
	err := retry.Do(
		func() error { return to.Deliver(ctx, name, mediaType, data) },
		retry.Context(ctx),
		retry.Attempts(e.opts.DeliveryAttempts),
		retry.Delay(e.opts.RetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			lg := logger.Component("export")
			lg.Warn().Err(err).Str("file", name).Uint("attempt", n+1).Msg("delivery failed; retrying")
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDelivery, name, err)
	}
	return nil
}

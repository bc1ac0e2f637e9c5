// Package workspace is the single editing session behind the API and the
// CLI. It wires the page store, the thumbnail pipeline and the export engine
// together and records export status.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pagedeck/internal/codec"
	"github.com/local/pagedeck/internal/delivery"
	"github.com/local/pagedeck/internal/export"
	"github.com/local/pagedeck/internal/filetype"
	"github.com/local/pagedeck/internal/metrics"
	"github.com/local/pagedeck/internal/pagerange"
	"github.com/local/pagedeck/internal/session"
	"github.com/local/pagedeck/internal/status"
	"github.com/local/pagedeck/internal/thumbnail"
	"github.com/local/pagedeck/internal/thumbstore"
)

// ErrNoDocuments is returned by Load when every upload was filtered out.
var ErrNoDocuments = errors.New("no PDF documents in upload")

// ErrThumbnailMissing is returned for a page that has no rendered thumbnail yet.
var ErrThumbnailMissing = errors.New("thumbnail not available")

type Dependencies struct {
	Codec     codec.Codec
	Blobs     thumbstore.Store
	Status    status.Store
	Deliverer delivery.Deliverer
}

type Options struct {
	Thumbnail thumbnail.Options
	Export    export.Options
}

type Workspace struct {
	deps     Dependencies
	store    *session.Store
	pipeline *thumbnail.Pipeline
	exporter *export.Engine
}

func New(deps Dependencies, opts Options) *Workspace {
	if deps.Blobs == nil {
		deps.Blobs = thumbstore.NewMemory()
	}
	if deps.Status == nil {
		deps.Status = status.NewMemory()
	}
	store := session.NewStore()
	return &Workspace{
		deps:     deps,
		store:    store,
		pipeline: thumbnail.New(deps.Codec, store, deps.Blobs, opts.Thumbnail),
		exporter: export.New(deps.Codec, deps.Deliverer, opts.Export),
	}
}

// LoadResult is the outcome of Load.
type LoadResult struct {
	Session  session.Session      `json:"-"`
	Accepted []string             `json:"accepted"`
	Rejected []filetype.Rejection `json:"rejected,omitempty"`
}

// Load filters uploads and, when at least one PDF remains, replaces the
// session with them and starts thumbnail generation. The previous session
// is left untouched when nothing is accepted.
func (w *Workspace) Load(uploads []filetype.Upload) (LoadResult, error) {
	docs, rejected := filetype.Accept(uploads)
	res := LoadResult{Rejected: rejected, Accepted: make([]string, 0, len(docs))}
	if len(docs) == 0 {
		return res, ErrNoDocuments
	}
	for _, d := range docs {
		res.Accepted = append(res.Accepted, d.Name)
	}
	prev := w.store.ID()
	res.Session = w.pipeline.Restart(docs)
	w.releaseStatus(prev)
	metrics.IncSession()
	log.Info().Str("session_id", res.Session.ID).Strs("documents", res.Accepted).Int("rejected", len(rejected)).Msg("session loaded")
	return res, nil
}

// Reset cancels generation and clears the session.
func (w *Workspace) Reset() {
	prev := w.store.ID()
	w.pipeline.Reset()
	w.releaseStatus(prev)
	log.Info().Msg("session reset")
}

// Close stops any running generation.
func (w *Workspace) Close() { w.pipeline.Stop() }

func (w *Workspace) Snapshot() session.Session    { return w.store.Snapshot() }
func (w *Workspace) Progress() thumbnail.Progress { return w.pipeline.Progress() }
func (w *Workspace) Wait(ctx context.Context) error {
	return w.pipeline.Wait(ctx)
}
func (w *Workspace) ExportBusy() bool { return w.exporter.Busy() }

// Toggle flips the deletion flag of one page.
func (w *Workspace) Toggle(document string, originalIndex int) bool {
	return w.store.ToggleDeleted(document, originalIndex)
}

func (w *Workspace) SetDeleted(document string, originalIndex int, deleted bool) bool {
	return w.store.SetDeleted(document, originalIndex, deleted)
}

func (w *Workspace) Move(document, fromID, toID string) bool {
	return w.store.Move(document, fromID, toID)
}

// Reorder moves the page at 0-based position from to position to.
func (w *Workspace) Reorder(document string, from, to int) error {
	return w.store.Reorder(document, from, to)
}

func (w *Workspace) Arrange(document string, order []int) error {
	return w.store.Arrange(document, order)
}

// ApplyRange marks the pages named by expr as deleted in every document. It
// returns the parsed set and how many flags changed.
func (w *Workspace) ApplyRange(expr string) (pagerange.Set, int) {
	set := pagerange.Parse(expr)
	changed := w.store.ApplyDeleteSet(set)
	log.Debug().Str("expression", expr).Str("pages", set.String()).Int("changed", changed).Msg("range applied")
	return set, changed
}

// Thumbnail returns the JPEG bytes of a page's preview.
func (w *Workspace) Thumbnail(ctx context.Context, document, pageID string) ([]byte, string, error) {
	snap := w.store.Snapshot()
	for _, p := range snap.PagesOf(document) {
		if p.ID != pageID {
			continue
		}
		if p.Thumbnail == nil {
			return nil, "", ErrThumbnailMissing
		}
		data, err := w.deps.Blobs.Get(ctx, snap.ID, p.Thumbnail.Key)
		if err != nil {
			return nil, "", fmt.Errorf("load thumbnail %s: %w", pageID, err)
		}
		return data, p.Thumbnail.MediaType, nil
	}
	return nil, "", ErrThumbnailMissing
}

// Export waits for thumbnail generation to finish, then exports the current
// session. to overrides the configured deliverer when non-nil.
func (w *Workspace) Export(ctx context.Context, mode export.Mode, to delivery.Deliverer) (*export.Report, error) {
	if w.exporter.Busy() {
		return nil, export.ErrBusy
	}
	if err := w.pipeline.Wait(ctx); err != nil {
		return nil, err
	}
	snap := w.store.Snapshot()

	start := time.Now()
	w.setStatus(ctx, snap.ID, status.Status{State: status.StateRunning, Mode: string(mode), Start: &start})

	report, err := w.exporter.Export(ctx, snap, mode, to)
	if errors.Is(err, export.ErrBusy) {
		return nil, err
	}

	end := time.Now()
	st := status.Status{Mode: string(mode), Start: &start, End: &end}
	if report != nil {
		st.ExportID = report.ID
		st.Metadata = map[string]interface{}{"outputs": len(report.Outputs), "failures": len(report.Failures)}
	}
	switch {
	case err != nil:
		st.State, st.Message = status.StateFailed, err.Error()
	case !report.OK():
		st.State, st.Message = status.StatePartial, report.Err().Error()
	default:
		st.State = status.StateSucceeded
	}
	w.setStatus(ctx, snap.ID, st)
	return report, err
}

// ExportStatus returns the latest export status of the current session.
func (w *Workspace) ExportStatus(ctx context.Context) (status.Status, bool, error) {
	return w.deps.Status.Get(ctx, w.store.ID())
}

// setStatus records st unless the session has been replaced meanwhile, so a
// late export cannot resurrect a released entry.
func (w *Workspace) setStatus(ctx context.Context, sessionID string, st status.Status) {
	if w.store.ID() != sessionID {
		return
	}
	if err := w.deps.Status.Set(context.WithoutCancel(ctx), sessionID, st); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to record export status")
	}
}

func (w *Workspace) releaseStatus(sessionID string) {
	if sessionID == "" {
		return
	}
	if err := w.deps.Status.Release(context.Background(), sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to release export status")
	}
}

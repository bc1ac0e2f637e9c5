package thumbnail

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/local/pagedeck/internal/codec/fakecodec"
	"github.com/local/pagedeck/internal/session"
	"github.com/local/pagedeck/internal/thumbstore"
)

func fakeDoc(name string, pages int) session.Document {
	return session.NewDocument(name, session.MediaTypePDF, fakecodec.Source(name, pages))
}

func newPipeline(c *fakecodec.Codec) (*Pipeline, *session.Store, *thumbstore.Memory) {
	store := session.NewStore()
	blobs := thumbstore.NewMemory()
	return New(c, store, blobs, Options{Scale: 0.1}), store, blobs
}

func waitDone(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("generation did not finish: %v", err)
	}
}

func order(pages []session.Page) []int {
	out := make([]int, len(pages))
	for i, p := range pages {
		out[i] = p.OriginalIndex
	}
	return out
}

func TestRestart_RendersAllPagesInOrder(t *testing.T) {
	c := fakecodec.New()
	p, store, blobs := newPipeline(c)

	snap := p.Restart([]session.Document{fakeDoc("a.pdf", 3), fakeDoc("b.pdf", 2)})
	waitDone(t, p)

	wantRendered := []string{"a.pdf#1", "a.pdf#2", "a.pdf#3", "b.pdf#1", "b.pdf#2"}
	if got := c.Rendered(); !reflect.DeepEqual(got, wantRendered) {
		t.Errorf("render order = %v, want %v", got, wantRendered)
	}

	final := store.Snapshot()
	if got := order(final.PagesOf("a.pdf")); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("a.pdf pages = %v", got)
	}
	if got := order(final.PagesOf("b.pdf")); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("b.pdf pages = %v", got)
	}
	for _, pg := range final.PagesOf("a.pdf") {
		if pg.Thumbnail == nil {
			t.Fatalf("page %s has no thumbnail", pg.ID)
		}
		if pg.Thumbnail.MediaType != MediaTypeJPEG || pg.Thumbnail.Width != 61 {
			t.Errorf("unexpected thumbnail %+v", pg.Thumbnail)
		}
		if _, err := blobs.Get(context.Background(), snap.ID, pg.Thumbnail.Key); err != nil {
			t.Errorf("thumbnail blob for %s missing: %v", pg.ID, err)
		}
	}

	pr := p.Progress()
	if pr.State != StateCompleted || pr.Rendered != 5 || pr.Failed != 0 {
		t.Errorf("progress = %+v", pr)
	}
}

func TestPageFailureIsIsolated(t *testing.T) {
	c := fakecodec.New()
	c.RenderHook = func(doc string, page int) error {
		switch {
		case doc == "a.pdf" && page == 2:
			return errors.New("boom")
		case doc == "a.pdf" && page == 4:
			panic("renderer crashed")
		}
		return nil
	}
	p, store, _ := newPipeline(c)

	p.Restart([]session.Document{fakeDoc("a.pdf", 5)})
	waitDone(t, p)

	if got := order(store.Snapshot().PagesOf("a.pdf")); !reflect.DeepEqual(got, []int{1, 3, 5}) {
		t.Errorf("pages = %v, want [1 3 5]", got)
	}
	pr := p.Progress()
	if pr.State != StateCompleted || pr.Failed != 2 || len(pr.Failures) != 2 {
		t.Fatalf("progress = %+v", pr)
	}
	if pr.Failures[0].Page != 2 || pr.Failures[1].Page != 4 {
		t.Errorf("failures = %+v", pr.Failures)
	}
}

func TestDecodeFailureSkipsDocumentOnly(t *testing.T) {
	p, store, _ := newPipeline(fakecodec.New())
	bad := session.NewDocument("bad.pdf", session.MediaTypePDF, []byte("%PDF-1.7 garbage"))

	p.Restart([]session.Document{bad, fakeDoc("ok.pdf", 2)})
	waitDone(t, p)

	snap := store.Snapshot()
	if len(snap.PagesOf("bad.pdf")) != 0 {
		t.Error("undecodable document should have no pages")
	}
	if len(snap.PagesOf("ok.pdf")) != 2 {
		t.Errorf("ok.pdf pages = %d, want 2", len(snap.PagesOf("ok.pdf")))
	}
	pr := p.Progress()
	if len(pr.Failures) != 1 || pr.Failures[0].Document != "bad.pdf" || pr.Failures[0].Page != 0 {
		t.Errorf("failures = %+v", pr.Failures)
	}
}

func TestRestartCancelsInFlightGeneration(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once

	c := fakecodec.New()
	c.RenderHook = func(doc string, page int) error {
		if doc == "old.pdf" && page == 2 {
			once.Do(func() {
				close(entered)
				<-unblock
			})
		}
		return nil
	}
	p, store, blobs := newPipeline(c)

	oldSnap := p.Restart([]session.Document{fakeDoc("old.pdf", 4)})
	<-entered

	restarted := make(chan session.Session)
	go func() { restarted <- p.Restart([]session.Document{fakeDoc("new.pdf", 2)}) }()

	// Restart must wait for the in-flight render before replacing the session.
	select {
	case <-restarted:
		t.Fatal("Restart returned while the previous render was still running")
	case <-time.After(50 * time.Millisecond):
	}
	close(unblock)
	newSnap := <-restarted
	waitDone(t, p)

	final := store.Snapshot()
	if final.ID != newSnap.ID {
		t.Fatalf("store holds session %s, want %s", final.ID, newSnap.ID)
	}
	if _, ok := final.Pages["old.pdf"]; ok {
		t.Error("entries from the cancelled document set leaked into the new session")
	}
	if got := order(final.PagesOf("new.pdf")); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("new.pdf pages = %v", got)
	}
	for _, label := range c.Rendered() {
		if label == "old.pdf#3" || label == "old.pdf#4" {
			t.Errorf("cancelled generation kept rendering: %s", label)
		}
	}
	if _, err := blobs.Get(context.Background(), oldSnap.ID, "old.pdf-1"); !errors.Is(err, thumbstore.ErrNotFound) {
		t.Error("thumbnails of the replaced session were not released")
	}
	if pr := p.Progress(); pr.SessionID != newSnap.ID || pr.State != StateCompleted {
		t.Errorf("progress = %+v", pr)
	}
}

func TestResetReleasesThumbnails(t *testing.T) {
	p, store, blobs := newPipeline(fakecodec.New())
	p.Restart([]session.Document{fakeDoc("a.pdf", 2)})
	waitDone(t, p)

	p.Reset()
	if !store.Snapshot().Empty() {
		t.Error("session not cleared")
	}
	if blobs.Sessions() != 0 {
		t.Errorf("%d sessions still hold thumbnails", blobs.Sessions())
	}
	if pr := p.Progress(); pr.State != StateIdle {
		t.Errorf("state after reset = %s", pr.State)
	}
}

func TestGenerateWithStaleEpochWritesNothing(t *testing.T) {
	p, store, _ := newPipeline(fakecodec.New())
	docs := []session.Document{fakeDoc("a.pdf", 2)}
	stale, _ := store.Initialize(docs)
	store.Initialize(docs)

	if state := p.Generate(context.Background(), stale, "stale", docs); state != StateCancelled {
		t.Errorf("state = %s, want cancelled", state)
	}
	if n := len(store.Snapshot().PagesOf("a.pdf")); n != 0 {
		t.Errorf("stale generation appended %d pages", n)
	}
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	p, store, _ := newPipeline(fakecodec.New())
	docs := []session.Document{fakeDoc("a.pdf", 3)}
	epoch, _ := store.Initialize(docs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if state := p.Generate(ctx, epoch, "s", docs); state != StateCancelled {
		t.Errorf("state = %s, want cancelled", state)
	}
	if n := len(store.Snapshot().PagesOf("a.pdf")); n != 0 {
		t.Errorf("cancelled generation appended %d pages", n)
	}
}

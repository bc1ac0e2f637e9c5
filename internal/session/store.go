package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/local/pagedeck/internal/pagerange"
)

// ErrPositionOutOfRange is returned by Reorder for positions outside the page list.
var ErrPositionOutOfRange = errors.New("session: position out of range")

// ErrUnknownPage is returned by Arrange for an original index that is not in
// the document or is listed more than once.
var ErrUnknownPage = errors.New("session: unknown or repeated page")

// ErrUnknownDocument is returned when an operation names a document that is not loaded.
var ErrUnknownDocument = errors.New("session: unknown document")

// Store owns the current Session. Every method applies one complete mutation
// under the lock, so pipeline appends and user edits can interleave freely.
type Store struct {
	mu    sync.Mutex
	cur   Session
	epoch uint64
}

// NewStore returns a store holding an empty session.
func NewStore() *Store {
	s := &Store{}
	s.cur = s.fresh(nil)
	return s
}

func (s *Store) fresh(docs []Document) Session {
	s.epoch++
	pages := make(map[string][]Page, len(docs))
	for _, d := range docs {
		pages[d.Name] = []Page{}
	}
	return Session{
		ID:        uuid.NewString(),
		Epoch:     s.epoch,
		CreatedAt: time.Now(),
		Documents: append([]Document(nil), docs...),
		Pages:     pages,
	}
}

// Initialize replaces the whole session with one empty page list per document.
// It returns the new epoch and the session that was replaced so the caller can
// release its resources.
func (s *Store) Initialize(docs []Document) (uint64, Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cur
	s.cur = s.fresh(docs)
	return s.cur.Epoch, prev
}

// Reset clears the session back to empty and returns the previous one.
func (s *Store) Reset() Session {
	_, prev := s.Initialize(nil)
	return prev
}

// Epoch returns the current generation epoch.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Epoch
}

// ID returns the current session ID.
func (s *Store) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.ID
}

// AppendPage appends a page to the end of a document's list. Appends carrying
// a stale epoch, naming an unknown document, or repeating an original index
// are dropped and reported as false.
func (s *Store) AppendPage(epoch uint64, document string, p Page) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.cur.Epoch {
		return false
	}
	pages, ok := s.cur.Pages[document]
	if !ok {
		return false
	}
	for _, existing := range pages {
		if existing.OriginalIndex == p.OriginalIndex {
			return false
		}
	}
	if p.ID == "" {
		p.ID = PageID(document, p.OriginalIndex)
	}
	s.cur.Pages[document] = append(pages, p)
	return true
}

// SetDeleted sets the deletion flag of the page with originalIndex.
// Unknown documents or pages are ignored; the result reports whether a page matched.
func (s *Store) SetDeleted(document string, originalIndex int, deleted bool) bool {
	return s.updatePage(document, originalIndex, func(p *Page) { p.Deleted = deleted })
}

// ToggleDeleted flips the deletion flag of the page with originalIndex.
func (s *Store) ToggleDeleted(document string, originalIndex int) bool {
	return s.updatePage(document, originalIndex, func(p *Page) { p.Deleted = !p.Deleted })
}

func (s *Store) updatePage(document string, originalIndex int, fn func(*Page)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages := s.cur.Pages[document]
	for i := range pages {
		if pages[i].OriginalIndex == originalIndex {
			fn(&pages[i])
			return true
		}
	}
	return false
}

// Reorder moves the page at position from to position to.
func (s *Store) Reorder(document string, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, ok := s.cur.Pages[document]
	if !ok {
		return ErrUnknownDocument
	}
	if from < 0 || from >= len(pages) || to < 0 || to >= len(pages) {
		return ErrPositionOutOfRange
	}
	s.cur.Pages[document] = MovePosition(pages, from, to)
	return nil
}

// Move moves page fromID to the position held by toID. It reports false when
// nothing moved.
func (s *Store) Move(document, fromID, toID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, ok := s.cur.Pages[document]
	if !ok {
		return false
	}
	moved, ok := MovePage(pages, fromID, toID)
	if ok {
		s.cur.Pages[document] = moved
	}
	return ok
}

// Arrange reorders a document so the listed original indexes come first.
func (s *Store) Arrange(document string, order []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, ok := s.cur.Pages[document]
	if !ok {
		return ErrUnknownDocument
	}
	arranged, err := Arrange(pages, order)
	if err != nil {
		return err
	}
	s.cur.Pages[document] = arranged
	return nil
}

// ApplyDeleteSet marks every page whose original index is in set as deleted,
// across all documents. Flags are only ever set, never cleared. It returns the
// number of flags that changed.
func (s *Store) ApplyDeleteSet(set pagerange.Set) int {
	if set.Len() == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for _, pages := range s.cur.Pages {
		for i := range pages {
			if !pages[i].Deleted && set.Contains(pages[i].OriginalIndex) {
				pages[i].Deleted = true
				changed++
			}
		}
	}
	return changed
}

// Snapshot returns a deep copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Clone()
}

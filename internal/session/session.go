package session

import (
	"fmt"
	"time"
)

// MediaTypePDF is the only document media type a session accepts.
const MediaTypePDF = "application/pdf"

// Document is an uploaded source document. Data is never modified after upload.
type Document struct {
	Name      string
	MediaType string
	Size      int64
	Data      []byte
}

// NewDocument builds a Document from raw bytes, deriving Size.
func NewDocument(name, mediaType string, data []byte) Document {
	return Document{Name: name, MediaType: mediaType, Size: int64(len(data)), Data: data}
}

// Thumbnail references a rendered preview image held in a blob store.
type Thumbnail struct {
	Key       string `json:"key"`
	MediaType string `json:"media_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Page is one entry in a document's editable page list.
// Its position in the list is the current display and export order.
type Page struct {
	ID            string     `json:"id"`
	OriginalIndex int        `json:"original_index"`
	Thumbnail     *Thumbnail `json:"thumbnail,omitempty"`
	Deleted       bool       `json:"deleted"`
}

// PageID derives the stable page id for a document page.
func PageID(document string, originalIndex int) string {
	return fmt.Sprintf("%s-%d", document, originalIndex)
}

// Session maps each loaded document to its ordered page list.
type Session struct {
	ID        string
	Epoch     uint64
	CreatedAt time.Time
	Documents []Document
	Pages     map[string][]Page
}

// PagesOf returns the ordered pages of a document (nil if unknown).
func (s Session) PagesOf(name string) []Page {
	return s.Pages[name]
}

// Empty reports whether no documents are loaded.
func (s Session) Empty() bool { return len(s.Documents) == 0 }

// Clone returns a copy whose page lists can be read while the store keeps mutating.
// Document bytes are shared since they are immutable.
func (s Session) Clone() Session {
	out := s
	out.Documents = append([]Document(nil), s.Documents...)
	out.Pages = make(map[string][]Page, len(s.Pages))
	for name, pages := range s.Pages {
		cp := make([]Page, len(pages))
		for i, p := range pages {
			cp[i] = p
			if p.Thumbnail != nil {
				t := *p.Thumbnail
				cp[i].Thumbnail = &t
			}
		}
		out.Pages[name] = cp
	}
	return out
}

// KeptPages counts the pages of a document that are not marked deleted.
func (s Session) KeptPages(name string) int {
	n := 0
	for _, p := range s.Pages[name] {
		if !p.Deleted {
			n++
		}
	}
	return n
}

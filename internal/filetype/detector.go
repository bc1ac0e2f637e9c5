package filetype

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/local/pagedeck/internal/metrics"
	"github.com/local/pagedeck/internal/session"
)

// Upload is a file as received from a caller, before filtering.
type Upload struct {
	Name      string
	MediaType string
	Data      []byte
}

// Rejection describes an upload that was dropped by the filter.
type Rejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Detect returns the media type of data using magic bytes.
func Detect(data []byte) string {
	return mimetype.Detect(data).String()
}

// IsPDF reports whether an upload is a PDF both by its declared media type
// and by its content. The declared type may carry parameters.
func IsPDF(declared string, data []byte) bool {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil || mt != session.MediaTypePDF {
		return false
	}
	return mimetype.Detect(data).Is(session.MediaTypePDF)
}

// Accept filters uploads down to the PDF documents a session can load. Files
// are kept in upload order; a later file repeating an earlier name is
// dropped. Rejections are returned for reporting, they are not errors.
func Accept(uploads []Upload) ([]session.Document, []Rejection) {
	docs := make([]session.Document, 0, len(uploads))
	var rejected []Rejection
	seen := make(map[string]bool, len(uploads))

	for _, u := range uploads {
		name := filepath.Base(strings.TrimSpace(u.Name))
		var reason string
		switch {
		case name == "" || name == "." || name == string(filepath.Separator):
			reason = "missing file name"
		case seen[name]:
			reason = "duplicate file name"
		case !IsPDF(u.MediaType, u.Data):
			reason = "not a PDF document"
		}
		if reason != "" {
			log.Debug().Str("file", u.Name).Str("declared", u.MediaType).Str("reason", reason).Msg("upload rejected")
			rejected = append(rejected, Rejection{Name: u.Name, Reason: reason})
			continue
		}
		seen[name] = true
		docs = append(docs, session.NewDocument(name, session.MediaTypePDF, u.Data))
	}

	if len(rejected) > 0 {
		metrics.AddRejectedUploads(len(rejected))
	}
	return docs, rejected
}

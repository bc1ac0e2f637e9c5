package export

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrBusy            = errors.New("export already in progress")
	ErrNothingToExport = errors.New("no documents loaded")
	ErrInvalidMode     = errors.New("invalid delivery mode")
	ErrNoDeliverer     = errors.New("no delivery target configured")

	ErrDecode    = errors.New("decode failure")
	ErrPageCopy  = errors.New("page copy failure")
	ErrSerialize = errors.New("serialization failure")
	ErrDelivery  = errors.New("delivery failure")
)

// Mode selects how outputs are delivered for a whole batch.
type Mode string

const (
	ModeArchive    Mode = "archive"
	ModeIndividual Mode = "individual"
)

// ParseMode accepts "archive"/"zip" and "individual"/"separate".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "archive", "zip":
		return ModeArchive, nil
	case "individual", "separate":
		return ModeIndividual, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

const (
	MediaTypePDF = "application/pdf"
	MediaTypeZIP = "application/zip"
)

// OutputName is the delivered file name for a modified document.
func OutputName(document string) string { return "modified-" + document }

// ArchiveName is the delivered file name for an archive bundling n documents.
func ArchiveName(n int) string { return fmt.Sprintf("processed-%d-documents.zip", n) }

// Output describes one produced file.
type Output struct {
	Document string `json:"document,omitempty"`
	Name     string `json:"name"`
	Pages    int    `json:"pages,omitempty"`
	Size     int    `json:"size"`
}

// Failure describes a document whose export did not complete.
type Failure struct {
	Document string `json:"document"`
	Kind     string `json:"kind"`
	Message  string `json:"error"`
	Err      error  `json:"-"`
}

// Report is the outcome of one export run.
type Report struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Mode      Mode      `json:"mode"`
	Outputs   []Output  `json:"outputs"`
	Archive   *Output   `json:"archive,omitempty"`
	Failures  []Failure `json:"failures,omitempty"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
}

func (r *Report) fail(document string, err error) {
	r.Failures = append(r.Failures, Failure{Document: document, Kind: Kind(err), Message: err.Error(), Err: err})
}

// OK reports whether every document was exported and delivered.
func (r *Report) OK() bool { return len(r.Failures) == 0 }

// Err joins the per-document failures, or returns nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Document, f.Err))
	}
	return errors.Join(errs...)
}

// Kind classifies an export error for reports and metrics.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrPageCopy):
		return "page_copy"
	case errors.Is(err, ErrSerialize):
		return "serialize"
	case errors.Is(err, ErrDelivery):
		return "delivery"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "unknown"
	}
}

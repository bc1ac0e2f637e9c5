// Package codec is the boundary to the PDF format: opening source documents,
// rasterizing pages and assembling output documents from copied pages.
package codec

import (
	"errors"
	"image"
)

// ErrPageOutOfRange is returned when a page number or index is outside a document.
var ErrPageOutOfRange = errors.New("codec: page out of range")

// ErrForeignDocument is returned when a builder is handed a document from another codec
// or a second source document.
var ErrForeignDocument = errors.New("codec: foreign document")

// Codec opens source documents and creates output builders.
type Codec interface {
	Open(name string, data []byte) (Document, error)
	NewBuilder() Builder
}

// Document is an opened, read-only source document.
type Document interface {
	Name() string
	PageCount() int
	// RenderPage rasterizes the 1-based page at scale times its native resolution.
	RenderPage(page int, scale float64) (image.Image, error)
	Close() error
}

// Builder assembles a new document from pages of a source document.
type Builder interface {
	// CopyPage appends the page at the 0-based index of src.
	CopyPage(src Document, index int) error
	PageCount() int
	// Bytes serializes the assembled document. A builder with no pages
	// produces a valid document without pages.
	Bytes() ([]byte, error)
}

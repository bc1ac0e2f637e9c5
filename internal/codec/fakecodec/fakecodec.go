// Package fakecodec is an in-memory codec for tests. A fake document is a
// PDF-signed header followed by one label per page, so output page order can
// be asserted by decoding the bytes.
package fakecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/local/pagedeck/internal/codec"
)

const header = "%PDF-fake\n"

// ErrNotFake is returned when opening bytes that were not produced by Encode.
var ErrNotFake = errors.New("fakecodec: not a fake document")

// Encode builds a fake document whose pages carry the given labels.
func Encode(labels ...string) []byte {
	return []byte(header + strings.Join(labels, "\n"))
}

// Source builds a fake document with n pages labelled "<name>#<page>".
func Source(name string, n int) []byte {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = Label(name, i+1)
	}
	return Encode(labels...)
}

// Label is the label Source gives to a page.
func Label(name string, page int) string { return fmt.Sprintf("%s#%d", name, page) }

// Decode returns the page labels of a fake document.
func Decode(data []byte) ([]string, error) {
	if !bytes.HasPrefix(data, []byte(header)) {
		return nil, ErrNotFake
	}
	body := string(data[len(header):])
	if body == "" {
		return []string{}, nil
	}
	return strings.Split(body, "\n"), nil
}

// Codec implements codec.Codec over fake documents. The hooks, when set,
// are consulted before the matching operation and may fail it.
type Codec struct {
	RenderHook    func(doc string, page int) error
	CopyHook      func(doc string, index int) error
	SerializeHook func(pages []string) error

	mu       sync.Mutex
	rendered []string
}

// New returns a fake codec without hooks.
func New() *Codec { return &Codec{} }

// Rendered lists the labels of every page rendered so far, in order.
func (c *Codec) Rendered() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.rendered...)
}

func (c *Codec) Open(name string, data []byte) (codec.Document, error) {
	labels, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &document{codec: c, name: name, labels: labels}, nil
}

func (c *Codec) NewBuilder() codec.Builder { return &builder{codec: c} }

type document struct {
	codec  *Codec
	name   string
	labels []string
}

func (d *document) Name() string   { return d.name }
func (d *document) PageCount() int { return len(d.labels) }
func (d *document) Close() error   { return nil }

func (d *document) RenderPage(page int, scale float64) (image.Image, error) {
	if page < 1 || page > len(d.labels) {
		return nil, codec.ErrPageOutOfRange
	}
	if h := d.codec.RenderHook; h != nil {
		if err := h(d.name, page); err != nil {
			return nil, err
		}
	}
	d.codec.mu.Lock()
	d.codec.rendered = append(d.codec.rendered, d.labels[page-1])
	d.codec.mu.Unlock()
	w, h := int(612*scale), int(792*scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.NewGray(image.Rect(0, 0, w, h)), nil
}

type builder struct {
	codec *Codec
	pages []string
}

func (b *builder) CopyPage(src codec.Document, index int) error {
	d, ok := src.(*document)
	if !ok {
		return codec.ErrForeignDocument
	}
	if index < 0 || index >= len(d.labels) {
		return codec.ErrPageOutOfRange
	}
	if h := b.codec.CopyHook; h != nil {
		if err := h(d.name, index); err != nil {
			return err
		}
	}
	b.pages = append(b.pages, d.labels[index])
	return nil
}

func (b *builder) PageCount() int { return len(b.pages) }

func (b *builder) Bytes() ([]byte, error) {
	if h := b.codec.SerializeHook; h != nil {
		if err := h(b.pages); err != nil {
			return nil, err
		}
	}
	return Encode(b.pages...), nil
}

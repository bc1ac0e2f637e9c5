package codec

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog/log"
)

// nativeDPI is the PDF user-space resolution (1 unit = 1/72 inch).
const nativeDPI = 72.0

// PDF implements Codec with pdfcpu for structure and go-fitz (MuPDF) for rasterization.
type PDF struct{}

// NewPDF returns the PDF codec.
func NewPDF() *PDF { return &PDF{} }

// Open parses and validates data. The MuPDF handle used for rendering is
// opened lazily on the first RenderPage call.
func (c *PDF) Open(name string, data []byte) (Document, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("validate %s: %w", name, err)
	}
	log.Debug().Str("document", name).Int("pages", ctx.PageCount).Msg("opened pdf")
	return &pdfDocument{name: name, data: data, ctx: ctx}, nil
}

// NewBuilder returns an empty output builder.
func (c *PDF) NewBuilder() Builder { return &pdfBuilder{} }

type pdfDocument struct {
	name string
	data []byte
	ctx  *model.Context

	once    sync.Once
	raster  *fitz.Document
	openErr error
}

func (d *pdfDocument) Name() string   { return d.name }
func (d *pdfDocument) PageCount() int { return d.ctx.PageCount }

func (d *pdfDocument) RenderPage(page int, scale float64) (image.Image, error) {
	if page < 1 || page > d.ctx.PageCount {
		return nil, fmt.Errorf("render page %d of %s: %w", page, d.name, ErrPageOutOfRange)
	}
	d.once.Do(func() {
		d.raster, d.openErr = fitz.NewFromMemory(d.data)
	})
	if d.openErr != nil {
		return nil, fmt.Errorf("open %s for rendering: %w", d.name, d.openErr)
	}
	// go-fitz uses 0-based indexing
	img, err := d.raster.ImageDPI(page-1, nativeDPI*scale)
	if err != nil {
		return nil, fmt.Errorf("render page %d of %s: %w", page, d.name, err)
	}
	return img, nil
}

func (d *pdfDocument) Close() error {
	if d.raster != nil {
		return d.raster.Close()
	}
	return nil
}

// pdfBuilder records page numbers and extracts them in one pass when
// serialized, so shared resources (fonts, images) are copied once.
type pdfBuilder struct {
	src   *pdfDocument
	pages []int
}

func (b *pdfBuilder) CopyPage(src Document, index int) error {
	d, ok := src.(*pdfDocument)
	if !ok || (b.src != nil && b.src != d) {
		return ErrForeignDocument
	}
	if index < 0 || index >= d.ctx.PageCount {
		return fmt.Errorf("copy page index %d of %s: %w", index, d.name, ErrPageOutOfRange)
	}
	b.src = d
	b.pages = append(b.pages, index+1)
	return nil
}

func (b *pdfBuilder) PageCount() int { return len(b.pages) }

func (b *pdfBuilder) Bytes() ([]byte, error) {
	var (
		out *model.Context
		err error
	)
	if len(b.pages) == 0 {
		out, err = pdfcpu.CreateContextWithXRefTable(model.NewDefaultConfiguration(), types.PaperSize["A4"])
	} else {
		out, err = pdfcpu.ExtractPages(b.src.ctx, b.pages, false)
	}
	if err != nil {
		return nil, fmt.Errorf("assemble document: %w", err)
	}
	var buf bytes.Buffer
	if err := api.WriteContext(out, &buf); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}
	return buf.Bytes(), nil
}

package export

import (
	"archive/zip"
	"bytes"
	"time"
)

// archive accumulates outputs into one in-memory zip.
type archive struct {
	buf bytes.Buffer
	zw  *zip.Writer
	n   int
}

func newArchive() *archive {
	a := &archive{}
	a.zw = zip.NewWriter(&a.buf)
	return a
}

func (a *archive) add(name string, data []byte) error {
	w, err := a.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	a.n++
	return nil
}

func (a *archive) finish() ([]byte, error) {
	if err := a.zw.Close(); err != nil {
		return nil, err
	}
	return a.buf.Bytes(), nil
}

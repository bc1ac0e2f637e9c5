// Package delivery hands finished output files to their destination.
package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Deliverer saves one named output blob.
type Deliverer interface {
	Deliver(ctx context.Context, name, mediaType string, data []byte) error
}

// Local writes outputs into a directory.
type Local struct {
	Dir string
}

// NewLocal returns a Local deliverer, creating dir if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Local{Dir: dir}, nil
}

func (l *Local) Deliver(ctx context.Context, name, mediaType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := filepath.Join(l.Dir, filepath.Base(name))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	log.Info().Str("file", p).Int("size", len(data)).Str("media_type", mediaType).Msg("delivered output")
	return nil
}

// File is one delivered output held by a Collector.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// Collector keeps delivered outputs in memory, e.g. to stream them back in an HTTP response.
type Collector struct {
	mu    sync.Mutex
	files []File
}

func (c *Collector) Deliver(_ context.Context, name, mediaType string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append(c.files, File{Name: name, MediaType: mediaType, Data: data})
	return nil
}

// Files returns the collected outputs in delivery order.
func (c *Collector) Files() []File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]File(nil), c.files...)
}

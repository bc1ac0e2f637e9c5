package statuscheck

import (
	"context"
	"errors"
	"sort"
	"time"
	"unicode/utf8"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Pinger models a backing service that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Checker aggregates readiness checks for the backends pagedeck is configured with.
// Only registered backends are checked.
type Checker struct {
	checks   map[string]Pinger
	s3Bucket string
	timeout  time.Duration
}

// Options configures the Checker.
type Options struct {
	// Backends maps a display name (e.g. "thumbstore") to its pinger.
	Backends map[string]Pinger
	// S3Bucket enables the S3 check when non-empty.
	S3Bucket string
	Timeout  time.Duration
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Ready  bool              `json:"ready"`
	Checks map[string]Status `json:"checks"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	checks := make(map[string]Pinger, len(opts.Backends)+1)
	for name, p := range opts.Backends {
		if p != nil {
			checks[name] = p
		}
	}
	c := &Checker{checks: checks, s3Bucket: opts.S3Bucket, timeout: opts.Timeout}
	if c.s3Bucket != "" {
		c.checks["s3"] = PingFunc(c.checkS3)
	}
	return c
}

// Names lists the registered checks in sorted order.
func (c *Checker) Names() []string {
	names := make([]string, 0, len(c.checks))
	for n := range c.checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Summary runs every check and returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	sum := Summary{Ready: true, Checks: make(map[string]Status, len(c.checks))}
	for _, name := range c.Names() {
		st := c.run(ctx, c.checks[name])
		sum.Checks[name] = st
		sum.Ready = sum.Ready && st.OK
	}
	return sum
}

func (c *Checker) run(ctx context.Context, p Pinger) Status {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) error {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return err
	}
	cli := s3.NewFromConfig(cfg)
	_, err = cli.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &c.s3Bucket})
	return err
}

// maxMessage caps the bytes of an error reported by /ready.
const maxMessage = 120

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) <= maxMessage {
		return msg
	}
	cut := maxMessage
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

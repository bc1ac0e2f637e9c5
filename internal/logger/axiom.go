package logger

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
)

const (
	axiomBatch = 200
	axiomQueue = 1000
)

// axiomShipper batches log lines into Axiom ingest calls. Debug and trace
// events stay local; a full queue drops events rather than blocking callers.
type axiomShipper struct {
	client  *axiom.Client
	dataset string
	events  chan axiom.Event
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func newAxiomShipper(token, orgID, dataset string, every time.Duration) (*axiomShipper, error) {
	opts := []axiom.Option{axiom.SetToken(token)}
	if orgID != "" {
		opts = append(opts, axiom.SetOrganizationID(orgID))
	}
	c, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	if dataset == "" {
		dataset = "dev_" + serviceName
	}
	if every <= 0 {
		every = 10 * time.Second
	}
	s := &axiomShipper{
		client:  c,
		dataset: dataset,
		events:  make(chan axiom.Event, axiomQueue),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run(every)
	return s, nil
}

func (s *axiomShipper) Write(p []byte) (int, error) {
	return s.WriteLevel(zerolog.NoLevel, p)
}

func (s *axiomShipper) WriteLevel(lvl zerolog.Level, p []byte) (int, error) {
	if lvl != zerolog.NoLevel && lvl < zerolog.InfoLevel {
		return len(p), nil
	}
	ev := axiom.Event{}
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = axiom.Event{"message": string(p), "level": lvl.String()}
	}
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}
	select {
	case s.events <- ev:
	default:
	}
	return len(p), nil
}

func (s *axiomShipper) run(every time.Duration) {
	defer s.wg.Done()
	tick := time.NewTicker(every)
	defer tick.Stop()

	batch := make([]axiom.Event, 0, axiomBatch)
	send := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		_, _ = s.client.IngestEvents(ctx, s.dataset, batch)
		cancel()
		batch = batch[:0]
	}
	for {
		select {
		case ev := <-s.events:
			batch = append(batch, ev)
			if len(batch) == axiomBatch {
				send()
			}
		case <-tick.C:
			send()
		case <-s.done:
			for {
				select {
				case ev := <-s.events:
					batch = append(batch, ev)
				default:
					send()
					return
				}
			}
		}
	}
}

// Close sends whatever is queued and stops the shipper.
func (s *axiomShipper) Close() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}

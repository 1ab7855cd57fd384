// Package events publishes search summaries to Kafka without blocking the
// request path.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/observability"
)

type SearchEvent struct {
	Keyword   string    `json:"keyword"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	RadiusKm  *float64  `json:"radius_km,omitempty"`
	Count     int       `json:"count"`
	Partial   bool      `json:"partial"`
	TS        time.Time `json:"ts"`
}

// FromSearch summarizes a completed search.
func FromSearch(q model.SearchQuery, r model.SearchResult, now time.Time) SearchEvent {
	ev := SearchEvent{
		Keyword: r.Keyword,
		Count:   r.Count,
		Partial: r.Partial,
		TS:      now.UTC(),
	}
	if ev.Keyword == "" {
		ev.Keyword = strings.TrimSpace(q.Keyword)
	}
	if q.Center != nil {
		lat, lon, radius := q.Center.Lat, q.Center.Lon, q.RadiusKm
		ev.Latitude, ev.Longitude, ev.RadiusKm = &lat, &lon, &radius
	}
	return ev
}

type Publisher struct {
	topic  string
	log    *slog.Logger
	prod   sarama.AsyncProducer
	events chan SearchEvent

	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
	errDone chan struct{}
}

func NewPublisher(brokers []string, topic string, queueSize int, log *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create async producer: %w", err)
	}
	return newWithProducer(prod, topic, queueSize, log), nil
}

func newWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		log:     log.With("component", "search_events"),
		prod:    prod,
		events:  make(chan SearchEvent, queueSize),
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				observability.IncSearchEvent("marshal_error")
				p.log.Error("marshal search event", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(strings.ToLower(ev.Keyword)),
				Value: sarama.ByteEncoder(b),
			}
			observability.IncSearchEvent("sent")
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err != nil {
				observability.IncSearchEvent("error")
				p.log.Warn("search event delivery failed", "err", err.Err, "topic", err.Msg.Topic)
			}
		}
	}()

	return p
}

// Publish enqueues ev; it drops the event when the queue is full or the
// publisher is closed.
func (p *Publisher) Publish(ev SearchEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		observability.IncSearchEvent("dropped")
	}
}

func (p *Publisher) PublishSearch(q model.SearchQuery, r model.SearchResult) {
	p.Publish(FromSearch(q, r, time.Now()))
}

// Close flushes queued events and closes the producer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.stopped
	err := p.prod.Close()
	<-p.errDone
	if err != nil {
		return fmt.Errorf("events: close producer: %w", err)
	}
	return nil
}

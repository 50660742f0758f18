// Package events publishes selection outcomes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/farm-selector/internal/cache/keys"
	"github.com/mohammed-shakir/farm-selector/internal/h3cell"
	"github.com/mohammed-shakir/farm-selector/internal/selection"
)

type Event struct {
	EventID   string    `json:"event_id"`
	SessionID string    `json:"session_id"`
	StateName string    `json:"state_name"`
	Outcome   string    `json:"outcome"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Cell      string    `json:"cell,omitempty"`
	Area      float64   `json:"area"`
	Location  string    `json:"location,omitempty"`
	Error     string    `json:"error,omitempty"`
	TS        time.Time `json:"ts"`
}

type Publisher struct {
	log     *slog.Logger
	topic   string
	cellRes int
	events  chan Event
	prod    sarama.AsyncProducer
	stopped chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

func NewPublisher(brokers []string, topic string, queueSize, cellRes int, log *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create async producer: %w", err)
	}
	return NewWithProducer(prod, topic, queueSize, cellRes, log), nil
}

// NewWithProducer wraps an existing producer; the Publisher owns and closes it.
func NewWithProducer(prod sarama.AsyncProducer, topic string, queueSize, cellRes int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		log:     log,
		topic:   topic,
		cellRes: cellRes,
		events:  make(chan Event, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Error("events: marshal", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.SessionID),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("events: producer error", "err", err)
			}
		}
	}()

	return p
}

// Observe turns a navigated or failed outcome into an event; stale outcomes are skipped.
func (p *Publisher) Observe(_ context.Context, o selection.Outcome) {
	if o.Result != selection.OutcomeNavigated && o.Result != selection.OutcomeFailed {
		return
	}
	ev := Event{
		EventID:   keys.EventID(o.SessionID, o.Token),
		SessionID: o.SessionID,
		StateName: o.StateName,
		Outcome:   o.Result,
		Latitude:  o.Centroid.Lat,
		Longitude: o.Centroid.Lng,
		Area:      o.Area,
		Location:  o.Location,
		Error:     o.Error,
		TS:        o.At.UTC(),
	}
	if cell, err := h3cell.Cell(o.Centroid, p.cellRes); err == nil {
		ev.Cell = cell
	}
	p.Publish(ev)
}

// Publish enqueues ev, dropping it when the queue is full or the publisher is closed.
func (p *Publisher) Publish(ev Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.log.Warn("events: queue full, dropping event", "event_id", ev.EventID)
	}
}

func (p *Publisher) Close() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.events)
		p.mu.Unlock()
		<-p.stopped

		if cerr := p.prod.Close(); cerr != nil {
			err = fmt.Errorf("events: close producer: %w", cerr)
		}
	})
	return err
}

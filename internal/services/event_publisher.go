package services

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/qtracker/internal/events"
	"github.com/benmeehan/qtracker/internal/utils"
	"github.com/benmeehan/qtracker/pkg/mqtt"
	"github.com/rs/zerolog"
)

// eventSource is what the publisher subscribes to.
type eventSource interface {
	Subscribe(h events.Handler) func()
}

// EventPublisher forwards domain events to an MQTT broker, one topic per event
// kind under a common prefix. Publishing happens on a worker pool so slow
// brokers never block the core.
type EventPublisher struct {
	// Configuration fields
	topic          string
	qos            int
	workers        int
	publishTimeout time.Duration

	// Dependencies
	source     eventSource
	mqttClient mqtt.MQTTClient
	logger     zerolog.Logger

	// Internal state management
	mu          sync.RWMutex
	pool        *utils.WorkerPool
	unsubscribe func()
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(topic string, qos, workers int, publishTimeout time.Duration, source eventSource,
	mqttClient mqtt.MQTTClient, logger zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		topic:          strings.TrimSuffix(topic, "/"),
		qos:            qos,
		workers:        workers,
		publishTimeout: publishTimeout,
		source:         source,
		mqttClient:     mqttClient,
		logger:         logger,
	}
}

// Start subscribes to the event source.
func (p *EventPublisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pool != nil {
		p.logger.Warn().Msg("EventPublisher is already running")
		return errors.New("event publisher is already running")
	}

	p.pool = utils.NewWorkerPool(p.workers, p.workers*16)
	p.unsubscribe = p.source.Subscribe(p.handle)

	p.logger.Info().Str("topic", p.topic).Int("qos", p.qos).Int("workers", p.workers).Msg("EventPublisher started")
	return nil
}

// Stop unsubscribes and waits for queued events to be published.
func (p *EventPublisher) Stop() error {
	p.mu.Lock()
	if p.pool == nil {
		p.mu.Unlock()
		p.logger.Warn().Msg("EventPublisher is not running")
		return errors.New("event publisher is not running")
	}
	p.unsubscribe()
	pool := p.pool
	p.pool = nil
	p.unsubscribe = nil
	p.mu.Unlock()

	pool.Shutdown()
	p.logger.Info().Msg("EventPublisher stopped")
	return nil
}

// Topic returns the topic an event of kind is published to.
func (p *EventPublisher) Topic(kind events.Kind) string {
	return p.topic + "/" + string(kind)
}

func (p *EventPublisher) handle(e events.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.logger.Error().Err(err).Str("kind", string(e.Kind)).Msg("Failed to serialize event")
		return
	}
	topic := p.Topic(e.Kind)

	p.mu.RLock()
	pool := p.pool
	p.mu.RUnlock()
	if pool == nil {
		return
	}

	queued := pool.TrySubmit(func() { p.publish(topic, payload) })
	if !queued {
		p.logger.Warn().Str("topic", topic).Msg("Event queue full, dropping event")
	}
}

func (p *EventPublisher) publish(topic string, payload []byte) {
	token := p.mqttClient.Publish(topic, byte(p.qos), false, payload)
	if p.publishTimeout > 0 {
		if !token.WaitTimeout(p.publishTimeout) {
			p.logger.Error().Str("topic", topic).Msg("Timed out publishing event")
			return
		}
	} else {
		token.Wait()
	}

	if err := token.Error(); err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish event")
		return
	}
	p.logger.Debug().Str("topic", topic).Msg("Event published")
}

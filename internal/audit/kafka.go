package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Keviin77777/Gestor-php-sub003/pkg/logger"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/retry"
)

// DefaultTopic is the Kafka topic for audit events
const DefaultTopic = "auth.audit"

// JSONProducer is the part of kafka.Producer the publisher needs
type JSONProducer interface {
	ProduceJSON(ctx context.Context, topic, key string, value any, headers map[string]string) error
}

// DefaultMaxInFlight caps concurrent audit produces
const DefaultMaxInFlight = 64

// KafkaPublisherConfig holds KafkaPublisher settings
type KafkaPublisherConfig struct {
	Topic   string
	Timeout time.Duration
	Backoff *retry.Config
	Logger  *logger.Logger
	// MaxInFlight bounds the events being produced at once; events over the
	// bound are dropped and logged
	MaxInFlight int
}

// KafkaPublisher produces audit events in the background. Each event gets a
// bounded number of attempts; failures are logged and dropped.
type KafkaPublisher struct {
	producer JSONProducer
	topic    string
	timeout  time.Duration
	backoff  *retry.Config
	log      *logger.Logger
	slots    chan struct{}
	wg       sync.WaitGroup
}

// NewKafkaPublisher creates a KafkaPublisher on producer
func NewKafkaPublisher(producer JSONProducer, cfg *KafkaPublisherConfig) *KafkaPublisher {
	if cfg == nil {
		cfg = &KafkaPublisherConfig{}
	}
	p := &KafkaPublisher{
		producer: producer,
		topic:    cfg.Topic,
		timeout:  cfg.Timeout,
		backoff:  cfg.Backoff,
		log:      cfg.Logger,
	}
	if p.topic == "" {
		p.topic = DefaultTopic
	}
	if p.timeout <= 0 {
		p.timeout = 2 * time.Second
	}
	if p.backoff == nil {
		p.backoff = retry.PublishConfig()
	}
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	p.slots = make(chan struct{}, maxInFlight)
	if p.log == nil {
		p.log = logger.Get()
	}
	p.log = p.log.Named("audit")
	return p
}

// Publish returns immediately; the event is produced on its own goroutine
// detached from the request's cancellation. When MaxInFlight events are
// already being produced the event is dropped.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) {
	select {
	case p.slots <- struct{}{}:
	default:
		p.log.Warn("Audit publisher saturated, dropping event",
			zap.String("type", string(event.Type)),
			zap.Int("max_in_flight", cap(p.slots)),
		)
		return
	}

	ctx = context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.slots }()

		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		headers := map[string]string{"event_type": string(event.Type)}
		err := retry.Do(ctx, p.backoff, func(ctx context.Context) error {
			return p.producer.ProduceJSON(ctx, p.topic, event.PrincipalID, event, headers)
		}, nil)
		if err != nil {
			p.log.Warn("Failed to publish audit event",
				zap.String("type", string(event.Type)),
				zap.String("topic", p.topic),
				zap.Error(err),
			)
		}
	}()
}

// Close waits for in-flight events
func (p *KafkaPublisher) Close() {
	p.wg.Wait()
}

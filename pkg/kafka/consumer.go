package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	applogger "BandView/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads registered topics and dispatches messages to a worker pool.
// At most one message per (topic, partition) is in flight so ordering within a
// partition is preserved.
type Consumer struct {
	cfg       *ConsumerConfig
	readers   map[string]messageReader
	handlers  map[string]MessageHandler
	newReader func(topic string) messageReader
	stopChan  chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	msgChan   chan kafka.Message
	dlq       messageWriter
	partMu    sync.Mutex
	partLocks map[string]map[int]*sync.Mutex
	hook      ConsumerHook
	l         *applogger.Logger
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "bandview",
		WorkerCount: 1,
		BufferSize:  64,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	c := newConsumer(cfg)
	c.newReader = func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    topic,
			GroupID:  cfg.GroupID,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		})
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.LeastBytes{}}
	}
	return c, nil
}

func newConsumer(cfg *ConsumerConfig) *Consumer {
	initConsumerMetrics()
	return &Consumer{
		cfg:       cfg,
		readers:   make(map[string]messageReader),
		handlers:  make(map[string]MessageHandler),
		stopChan:  make(chan struct{}),
		msgChan:   make(chan kafka.Message, cfg.BufferSize),
		partLocks: make(map[string]map[int]*sync.Mutex),
		hook:      NoopHook{},
		l:         applogger.NewNop(),
	}
}

// SetLogger injects a structured logger.
func (c *Consumer) SetLogger(l *applogger.Logger) {
	if l != nil {
		c.l = l
	}
}

// WithConsumerHook sets a hook implementation for lifecycle events.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler registers a message handler for a specific topic.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.l.Warn("kafka handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start launches readers and workers. It returns immediately.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("no handlers registered")
	}
	for topic := range c.handlers {
		c.readers[topic] = c.newReader(topic)
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.messageWorker()
	}
	for topic, reader := range c.readers {
		c.wg.Add(1)
		go c.consumeMessages(topic, reader)
	}

	c.l.Info("kafka consumer started",
		applogger.Int("workers", c.cfg.WorkerCount),
		applogger.Int("topics", len(c.readers)),
		applogger.String("group", c.cfg.GroupID),
	)
	return nil
}

// Stop stops the Kafka consumer gracefully.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error

	c.stopOnce.Do(func() {
		close(c.stopChan)
		// readers unblock FetchMessage on Close
		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.l.Warn("kafka reader close", applogger.String("topic", topic), applogger.Error(err))
			}
		}

		stopErr = c.waitForWg(ctx)

		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.l.Warn("kafka dlq close", applogger.Error(err))
			}
		}
		if stopErr == nil {
			c.l.Info("kafka consumer stopped")
		}
	})

	return stopErr
}

func (c *Consumer) waitForWg(ctx context.Context) error {
	doneChan := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(doneChan)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
	case <-doneChan:
		return nil
	}
}

func (c *Consumer) stopping() bool {
	select {
	case <-c.stopChan:
		return true
	default:
		return false
	}
}

func (c *Consumer) consumeMessages(topic string, reader messageReader) {
	defer c.wg.Done()

	for {
		if c.stopping() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		msg, err := reader.FetchMessage(ctx)
		cancel()
		if err != nil {
			if c.stopping() {
				return
			}
			if !errors.Is(err, context.DeadlineExceeded) {
				c.l.Warn("kafka fetch", applogger.String("topic", topic), applogger.Error(err))
				time.Sleep(100 * time.Millisecond)
			}
			continue
		}
		msg.Topic = topic

		// blocking send gives backpressure without dropping
		select {
		case c.msgChan <- msg:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgChan)))
		case <-c.stopChan:
			return
		}
	}
}

func (c *Consumer) messageWorker() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopChan:
			return
		case msg := <-c.msgChan:
			c.process(msg)
		}
	}
}

func (c *Consumer) process(msg kafka.Message) {
	handler, ok := c.handlers[msg.Topic]
	if !ok {
		return
	}
	start := time.Now()
	pl := c.partitionLock(msg.Topic, msg.Partition)
	pl.Lock()
	defer pl.Unlock()

	bo := backoff.WithMaxRetries(c.newBackOff(), uint64(max(c.cfg.RetryMax, 0)))
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := c.handleOnce(handler, msg)
		if err != nil && c.stopping() {
			return backoff.Permanent(err)
		}
		if err != nil {
			c.hook.OnError(context.Background(), msg.Topic, msg, msg.Value, err)
		}
		return err
	}, bo)

	if err != nil {
		consumerFailures.WithLabelValues(msg.Topic).Inc()
		c.l.Error("kafka handle failed",
			applogger.String("topic", msg.Topic),
			applogger.Int("partition", msg.Partition),
			applogger.Int64("offset", msg.Offset),
			applogger.Int("attempts", attempts),
			applogger.Error(err),
		)
		c.sendToDLQ(msg)
	}

	// commit on success or after DLQ to avoid poison loops
	if err == nil || c.dlq != nil {
		if reader := c.readers[msg.Topic]; reader != nil {
			c.commit(reader, msg)
		}
	}
	consumerHandleLatency.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) handleOnce(handler MessageHandler, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = backoff.Permanent(fmt.Errorf("panic in handler for %s: %v", msg.Topic, r))
		}
	}()
	ctx, hmsg, data, err := c.hook.BeforeHandle(context.Background(), msg.Topic, msg, msg.Value)
	if err != nil {
		return backoff.Permanent(err)
	}
	err = handler.Handle(ctx, data)
	c.hook.AfterHandle(ctx, msg.Topic, hmsg, data, err)
	return err
}

func (c *Consumer) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BackoffMin
	b.MaxInterval = c.cfg.BackoffMax
	b.MaxElapsedTime = 0
	return b
}

func (c *Consumer) sendToDLQ(msg kafka.Message) {
	if c.dlq == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "source_topic", Value: []byte(msg.Topic)}},
	})
	if err != nil {
		c.l.Error("kafka dlq write", applogger.String("topic", c.cfg.DLQTopic), applogger.Error(err))
	}
}

func (c *Consumer) commit(reader messageReader, msg kafka.Message) {
	op := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return reader.CommitMessages(ctx, msg)
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), 2)
	if err := backoff.Retry(op, b); err != nil {
		c.l.Warn("kafka commit", applogger.String("topic", msg.Topic), applogger.Int64("offset", msg.Offset), applogger.Error(err))
	}
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	c.partMu.Lock()
	defer c.partMu.Unlock()
	m, ok := c.partLocks[topic]
	if !ok {
		m = make(map[int]*sync.Mutex)
		c.partLocks[topic] = m
	}
	l, ok := m[partition]
	if !ok {
		l = &sync.Mutex{}
		m[partition] = l
	}
	return l
}

// Kafka metrics. Override metricsRegisterer before the first producer or
// consumer is built to keep them off the default registry.
var (
	metricsRegisterer prometheus.Registerer = prometheus.DefaultRegisterer

	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerFailures      *prometheus.CounterVec
	consumerOnce          sync.Once
)

// SetMetricsRegisterer sets the Prometheus registerer for kafka metrics.
func SetMetricsRegisterer(reg prometheus.Registerer) { metricsRegisterer = reg }

func initConsumerMetrics() {
	consumerOnce.Do(func() {
		f := promauto.With(metricsRegisterer)
		consumerQueueDepth = f.NewGaugeVec(
			prometheus.GaugeOpts{Name: "bandview_kafka_consumer_queue_depth", Help: "Number of messages waiting in consumer queue"},
			[]string{"topic"},
		)
		consumerHandleLatency = f.NewHistogramVec(
			prometheus.HistogramOpts{Name: "bandview_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
		consumerFailures = f.NewCounterVec(
			prometheus.CounterOpts{Name: "bandview_kafka_consumer_failures_total", Help: "Messages that exhausted retries"},
			[]string{"topic"},
		)
	})
}

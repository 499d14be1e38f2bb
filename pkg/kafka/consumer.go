package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	applogger "SignalEngine/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler consumes messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	AutoOffsetReset string
	WorkerCount     int
	BufferSize      int
	RetryMax        int
	BackoffMin      time.Duration
	BackoffMax      time.Duration
	DLQTopic        string
	MinBytes        int
	MaxBytes        int
	Logger          *applogger.Logger
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*ConsumerConfig)

// WithConsumerBrokers sets the broker addresses.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

// WithConsumerGroupID sets the consumer group.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) { c.GroupID = groupID }
}

// WithConsumerAutoOffsetReset sets where a new group starts reading.
func WithConsumerAutoOffsetReset(reset string) ConsumerOption {
	return func(c *ConsumerConfig) { c.AutoOffsetReset = reset }
}

// WithConsumerWorkers sets the handler goroutine count.
func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) { c.WorkerCount = count }
}

// WithConsumerBufferSize sets the internal queue capacity.
func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// WithConsumerRetry bounds handler retries and the backoff range between them.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// WithConsumerDLQ sets the dead-letter topic for messages that exhaust retries.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

// WithConsumerFetch sets fetch min/max bytes.
func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.MinBytes = minBytes
		c.MaxBytes = maxBytes
	}
}

// WithConsumerLogger sets the structured logger.
func WithConsumerLogger(l *applogger.Logger) ConsumerOption {
	return func(c *ConsumerConfig) { c.Logger = l }
}

// Consumer reads registered topics and dispatches messages to a worker pool.
// Messages for one partition are handled one at a time so per-key ordering
// survives the fan-out.
type Consumer struct {
	cfg      *ConsumerConfig
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	queue    chan *inflight
	dlq      *kafka.Writer
	hook     ConsumerHook

	partMu    sync.Mutex
	partLocks map[string]map[int]*sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type inflight struct {
	topic string
	data  []byte
	km    kafka.Message
}

// NewConsumer creates a Consumer. Handlers are attached with RegisterHandler
// before Start.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:         "default",
		AutoOffsetReset: "earliest",
		WorkerCount:     1,
		BufferSize:      10,
		RetryMax:        3,
		BackoffMin:      50 * time.Millisecond,
		BackoffMax:      2 * time.Second,
		MinBytes:        10e3,
		MaxBytes:        10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	c := &Consumer{
		cfg:       cfg,
		readers:   make(map[string]*kafka.Reader),
		handlers:  make(map[string]MessageHandler),
		queue:     make(chan *inflight, cfg.BufferSize),
		partLocks: make(map[string]map[int]*sync.Mutex),
		hook:      NoopHook{},
		stop:      make(chan struct{}),
	}

	registerConsumerMetrics()

	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}
	return c, nil
}

// WithConsumerHook replaces the lifecycle hook. Must be called before Start.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler attaches a handler for its topic. The first registration
// per topic wins.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.logWarn("handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start spins up one reader per registered topic plus the worker pool.
func (c *Consumer) Start() error {
	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	for topic, reader := range c.readers {
		c.wg.Add(1)
		go c.readLoop(topic, reader)
	}

	c.logInfo("kafka consumer started",
		applogger.Int("topics", len(c.readers)),
		applogger.Int("workers", c.cfg.WorkerCount),
	)
	return nil
}

// Stop shuts the consumer down, waiting for in-flight handlers up to the
// context deadline.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error

	c.stopOnce.Do(func() {
		close(c.stop)
		close(c.queue)

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.logWarn("closing reader", applogger.String("topic", topic), applogger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.logWarn("closing dlq writer", applogger.Error(err))
			}
		}
	})

	return stopErr
}

func (c *Consumer) readLoop(topic string, reader *kafka.Reader) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		msg, err := reader.ReadMessage(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				c.logWarn("read message", applogger.String("topic", topic), applogger.Error(err))
			}
			continue
		}

		if !c.enqueue(&inflight{topic: topic, data: msg.Value, km: msg}) {
			return
		}
	}
}

// enqueue blocks until the message fits in the queue instead of dropping it.
// Returns false when the consumer is stopping.
func (c *Consumer) enqueue(m *inflight) bool {
	for {
		select {
		case c.queue <- m:
			queueDepth.WithLabelValues(m.topic).Set(float64(len(c.queue)))
			queueFullness.WithLabelValues(m.topic).Set(float64(len(c.queue)) / float64(cap(c.queue)))
			return true
		case <-c.stop:
			return false
		default:
			fullness := float64(len(c.queue)) / float64(cap(c.queue))
			queueFullness.WithLabelValues(m.topic).Set(fullness)
			if fullness > 0.8 {
				time.Sleep(10 * time.Millisecond)
			} else {
				runtime.Gosched()
			}
		}
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()

	for msg := range c.queue {
		handler, ok := c.handlers[msg.topic]
		if !ok {
			continue
		}
		c.process(handler, msg)
	}
}

// process runs one message through hooks, retries, DLQ routing, and offset
// commit. It serializes on the partition lock so rebalancing cannot reorder
// messages within a partition.
func (c *Consumer) process(handler MessageHandler, msg *inflight) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logError("handler panic",
				applogger.String("topic", msg.topic),
				applogger.Any("panic", r),
			)
		}
		handleLatency.WithLabelValues(msg.topic).Observe(time.Since(start).Seconds())
	}()

	lock := c.partitionLock(msg.topic, msg.km.Partition)
	lock.Lock()
	defer lock.Unlock()

	var err error
	attempts := 0
	for {
		attempts++
		hctx, hmsg, hdata, berr := c.hook.BeforeHandle(context.Background(), msg.topic, msg.km, msg.data)
		if berr != nil {
			err = berr
			break
		}

		err = handler.Handle(hctx, hdata)
		c.hook.AfterHandle(hctx, msg.topic, hmsg, hdata, err)
		if err == nil || attempts > c.cfg.RetryMax {
			break
		}

		c.hook.OnError(hctx, msg.topic, hmsg, hdata, err)
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)):
		case <-c.stop:
			return
		}
	}

	if err != nil {
		c.hook.OnError(context.Background(), msg.topic, msg.km, msg.data, err)
		c.logError("message handling failed",
			applogger.String("topic", msg.topic),
			applogger.Int("attempts", attempts),
			applogger.Error(err),
		)
		c.routeToDLQ(msg)
	}

	// Commit on success, or after DLQ routing so a poison message cannot
	// wedge the partition.
	if err == nil || c.dlq != nil {
		if reader := c.readers[msg.topic]; reader != nil {
			c.commitWithRetry(reader, msg.km, 3)
		}
	}
}

func (c *Consumer) routeToDLQ(msg *inflight) {
	if c.dlq == nil || c.cfg.DLQTopic == "" {
		return
	}
	err := c.dlq.WriteMessages(context.Background(), kafka.Message{
		Topic:   c.cfg.DLQTopic,
		Value:   msg.data,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "source_topic", Value: []byte(msg.topic)}},
	})
	if err != nil {
		c.logError("dlq write failed",
			applogger.String("topic", c.cfg.DLQTopic),
			applogger.Error(err),
		)
	}
}

func (c *Consumer) commitWithRetry(reader *kafka.Reader, km kafka.Message, max int) {
	if max <= 0 {
		max = 1
	}
	var err error
	for attempt := 1; attempt <= max; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(ctx, km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.logError("offset commit failed", applogger.Int("attempts", max), applogger.Error(err))
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

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := min * time.Duration(1<<uint(attempt-1))
	if d > max {
		d = max
	}
	// up to 50% jitter to spread thundering retries
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d - jitter
}

func (c *Consumer) logInfo(msg string, fields ...applogger.Field) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Info(msg, fields...)
	}
}

func (c *Consumer) logWarn(msg string, fields ...applogger.Field) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Warn(msg, fields...)
	}
}

func (c *Consumer) logError(msg string, fields ...applogger.Field) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Error(msg, fields...)
	}
}

var (
	consumerMetricsOnce sync.Once
	queueDepth          *prometheus.GaugeVec
	queueFullness       *prometheus.GaugeVec
	handleLatency       *prometheus.HistogramVec
)

func registerConsumerMetrics() {
	consumerMetricsOnce.Do(func() {
		queueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "signalengine_kafka_consumer_queue_depth", Help: "Messages waiting in the consumer queue"},
			[]string{"topic"},
		)
		queueFullness = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "signalengine_kafka_consumer_queue_fullness", Help: "Queue utilization ratio (len/cap)"},
			[]string{"topic"},
		)
		handleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "signalengine_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}

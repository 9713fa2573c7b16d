package notify

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"promohub/internal/pkg/logger"
	"promohub/internal/pkg/metrics"
	"promohub/internal/service/promotion/port"
)

// DefaultQueueSize 是分发队列的默认容量。
const DefaultQueueSize = 256

const deliverTimeout = 5 * time.Second

type envelope struct {
	ctx context.Context
	n   port.Notification
}

// Dispatcher 实现 port.EventPublisher。
// Publish 只做一次非阻塞入队；后台 goroutine 依次投递给每个 Sink，失败只记录日志和指标。
type Dispatcher struct {
	queue  chan envelope
	sinks  []Sink
	tracer trace.Tracer

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(queueSize int, tracer trace.Tracer, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		queue:  make(chan envelope, queueSize),
		sinks:  sinks,
		tracer: tracer,
	}
}

// Start 启动后台投递 goroutine。
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.loop()
}

// Publish 实现 port.EventPublisher，队列满或已关闭时直接丢弃。
func (d *Dispatcher) Publish(ctx context.Context, n port.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	event := string(n.Event)
	if d.closed {
		metrics.EventsDropped.WithLabelValues(event).Inc()
		return
	}
	select {
	case d.queue <- envelope{ctx: ctx, n: n}:
		metrics.EventsPublished.WithLabelValues(event).Inc()
	default:
		metrics.EventsDropped.WithLabelValues(event).Inc()
		logger.Ctx(ctx).Warn().Str("event", event).Str("promotion_id", n.PromotionID).Msg("notification queue full, event dropped")
	}
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for env := range d.queue {
		d.dispatch(env)
	}
}

func (d *Dispatcher) dispatch(env envelope) {
	ctx, span := d.tracer.Start(env.ctx, "notify.dispatch", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("event.name", string(env.n.Event)),
		attribute.String("promotion.id", env.n.PromotionID),
	)

	msg, err := NewMessage(env.n)
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Msg("marshal notification")
		return
	}

	for _, s := range d.sinks {
		sctx, cancel := context.WithTimeout(ctx, deliverTimeout)
		err := s.Deliver(sctx, msg)
		cancel()
		if err != nil {
			span.RecordError(err)
			metrics.SinkFailures.WithLabelValues(s.Name()).Inc()
			logger.Ctx(ctx).Warn().Err(err).Str("sink", s.Name()).Str("event", string(env.n.Event)).Msg("notification delivery failed")
		}
	}
}

// Close 停止接收新事件，并等待队列中已有事件投递完成或 ctx 结束。
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ port.EventPublisher = (*Dispatcher)(nil)

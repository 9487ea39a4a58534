package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/keywords"
	"resumatch/internal/observability"
	"resumatch/internal/types"
)

const noKeywordsMessage = "No recognizable keywords found in the job description"

// Channel is the part of *amqp.Channel a consumer needs
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// ChannelOpener opens one channel per consumer
type ChannelOpener func() (Channel, error)

// Pool runs a fixed number of queue consumers that score match jobs
type Pool struct {
	cfg     config.QueueConfig
	engines *keywords.Store
	om      *observability.ObservabilityManager
	logger  *errors.Logger
}

// NewPool creates a consumer pool. A nil om disables metrics and tracing.
func NewPool(cfg config.QueueConfig, engines *keywords.Store, om *observability.ObservabilityManager, logger *errors.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if om == nil {
		om, _ = observability.NewObservabilityManager(observability.ObservabilityConfig{}, nil, logger)
	}
	return &Pool{cfg: cfg, engines: engines, om: om, logger: logger}
}

// Run dials the broker and consumes until ctx is cancelled
func (p *Pool) Run(ctx context.Context) error {
	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "Cannot connect to the message broker", err)
	}
	defer conn.Close()

	p.logger.Info("Connected to message broker",
		"queue", p.cfg.Queue,
		"result_queue", p.cfg.ResultQueue,
		"workers", p.cfg.Workers)

	return p.RunWith(ctx, func() (Channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	})
}

// RunWith starts the consumers on channels from open. It returns nil once
// ctx is cancelled, or the first consumer error.
func (p *Pool) RunWith(ctx context.Context, open ChannelOpener) error {
	g, gCtx := errgroup.WithContext(ctx)
	for id := 1; id <= p.cfg.Workers; id++ {
		g.Go(func() error {
			return p.consume(gCtx, id, open)
		})
	}
	return g.Wait()
}

func (p *Pool) consume(ctx context.Context, id int, open ChannelOpener) error {
	ch, err := open()
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeQueueFailed, "Cannot open broker channel", err)
	}
	defer ch.Close()

	deliveries, err := p.setup(ch, id)
	if err != nil {
		return err
	}

	logger := p.logger.With("worker", id)
	logger.Info("Worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker stopped")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.NewNetworkError(errors.ErrCodeQueueFailed, "Delivery channel closed by broker", nil).
					WithContext("worker", id)
			}
			p.handle(ctx, ch, d, logger)
		}
	}
}

func (p *Pool) setup(ch Channel, id int) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(p.cfg.Queue, true, false, false, false, nil); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeQueueFailed, "Cannot declare queue "+p.cfg.Queue, err)
	}
	if p.cfg.ResultQueue != "" {
		if _, err := ch.QueueDeclare(p.cfg.ResultQueue, true, false, false, false, nil); err != nil {
			return nil, errors.NewNetworkError(errors.ErrCodeQueueFailed, "Cannot declare queue "+p.cfg.ResultQueue, err)
		}
	}
	if err := ch.Qos(p.cfg.Prefetch, 0, false); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeQueueFailed, "Cannot set prefetch", err)
	}

	deliveries, err := ch.Consume(p.cfg.Queue, fmt.Sprintf("resumatch-worker-%d", id), false, false, false, false, nil)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeQueueFailed, "Cannot consume from queue "+p.cfg.Queue, err)
	}
	return deliveries, nil
}

// handle scores one delivery and publishes its result. Undecodable
// messages are rejected without requeue; a failed publish is requeued.
func (p *Pool) handle(ctx context.Context, ch Channel, d amqp.Delivery, logger *errors.Logger) {
	metrics := p.om.GetMetrics()

	var req types.QueueRequest
	if err := json.Unmarshal(d.Body, &req); err != nil {
		logger.Warn("Rejecting malformed message", "delivery_tag", d.DeliveryTag, "error", err)
		metrics.RecordBusinessMetric(ctx, observability.MetricQueueJob, false, attribute.String("status", "rejected"))
		if err := d.Reject(false); err != nil {
			logger.LogError(err, "Failed to reject message")
		}
		return
	}
	if err := req.Validate(); err != nil && req.ID == "" {
		logger.Warn("Rejecting message without id", "delivery_tag", d.DeliveryTag, "error", err)
		metrics.RecordBusinessMetric(ctx, observability.MetricQueueJob, false, attribute.String("status", "rejected"))
		if err := d.Reject(false); err != nil {
			logger.LogError(err, "Failed to reject message")
		}
		return
	}

	result := p.process(ctx, req)
	metrics.RecordBusinessMetric(ctx, observability.MetricQueueJob, result.Status == types.StatusCompleted,
		attribute.String("status", result.Status))

	if err := p.publish(ch, d, result); err != nil {
		logger.LogError(err, "Failed to publish result, requeueing", "id", req.ID)
		if err := d.Nack(false, true); err != nil {
			logger.LogError(err, "Failed to nack message")
		}
		return
	}
	if err := d.Ack(false); err != nil {
		logger.LogError(err, "Failed to ack message", "id", req.ID)
		return
	}
	logger.Debug("Job processed", "id", req.ID, "status", result.Status)
}

// process validates and scores req
func (p *Pool) process(ctx context.Context, req types.QueueRequest) types.QueueResult {
	if err := req.Validate(); err != nil {
		return types.QueueResult{ID: req.ID, Status: types.StatusFailed, Error: err.Error()}
	}

	var analysis keywords.AnalysisResult
	metrics := p.om.GetMetrics()
	err := metrics.TrackMatchOperation(ctx, p.om.Tracer("resumatch.worker"), "queue", func(context.Context) *observability.MatchOperationResult {
		var err error
		analysis, err = p.engines.Engine().Analyze(req.JobDescription, req.ResumeText)
		if err != nil {
			return &observability.MatchOperationResult{Error: err}
		}
		return &observability.MatchOperationResult{
			Scored:   true,
			Score:    analysis.Score,
			Required: len(analysis.Found) + len(analysis.Missing),
			Found:    len(analysis.Found),
			Missing:  len(analysis.Missing),
		}
	})
	if err != nil {
		return types.QueueResult{ID: req.ID, Status: types.StatusFailed, Error: err.Error()}
	}
	if len(analysis.Found)+len(analysis.Missing) == 0 {
		return types.QueueResult{ID: req.ID, Status: types.StatusFailed, Error: noKeywordsMessage}
	}

	resp := types.NewMatchResponse(analysis)
	return types.QueueResult{ID: req.ID, Status: types.StatusCompleted, Result: &resp}
}

// publish sends result to the delivery's reply queue, or the result queue
func (p *Pool) publish(ch Channel, d amqp.Delivery, result types.QueueResult) error {
	routingKey := d.ReplyTo
	if routingKey == "" {
		routingKey = p.cfg.ResultQueue
	}
	if routingKey == "" {
		return nil
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	correlationID := d.CorrelationId
	if correlationID == "" {
		correlationID = result.ID
	}
	return ch.Publish("", routingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now(),
		Body:          body,
	})
}

package pipeline

import (
	"context"
	"time"

	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/messaging/kafka"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

const eventSource = "pipeline"

// EventPublisher is the narrow producer surface the sink needs.
type EventPublisher interface {
	PublishEnvelope(ctx context.Context, topic, key string, env *kafka.EventEnvelope) error
}

// KafkaEventSink publishes run lifecycle events, keyed by run id so one run's
// events share a partition.
type KafkaEventSink struct {
	producer EventPublisher
}

func NewKafkaEventSink(producer EventPublisher) *KafkaEventSink {
	return &KafkaEventSink{producer: producer}
}

func (s *KafkaEventSink) RunCompleted(ctx context.Context, res *RunResult) error {
	env, err := kafka.NewEventEnvelope("pipeline.run.completed", eventSource, kafka.RunCompletedPayload{
		RunID:       res.Summary.RunID,
		Nodes:       res.Summary.Nodes,
		MergedNodes: res.Summary.Merges,
		ScoredNodes: res.Summary.ScoredNodes,
		QuickWins:   res.Summary.QuickWins,
		CompletedAt: res.Summary.FinishedAt,
	})
	if err != nil {
		return err
	}
	return s.producer.PublishEnvelope(ctx, kafka.TopicRunCompleted, string(res.Summary.RunID), env)
}

// TriggerRun publishes a run request for the worker pool and returns the
// request's correlation id.  The executing worker mints the actual run id;
// the completion event ties the two together via the envelope trace.
func (s *KafkaEventSink) TriggerRun(ctx context.Context, triggeredBy string) (common.RunID, error) {
	requestID := common.NewRunID()
	env, err := kafka.NewEventEnvelope("pipeline.run.requested", eventSource, kafka.RunRequestedPayload{
		RunID:       requestID,
		TriggeredBy: triggeredBy,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	if err := s.producer.PublishEnvelope(ctx, kafka.TopicRunRequested, string(requestID), env); err != nil {
		return "", err
	}
	return requestID, nil
}

func (s *KafkaEventSink) RunFailed(ctx context.Context, runID common.RunID, stage string, cause error) error {
	env, err := kafka.NewEventEnvelope("pipeline.run.failed", eventSource, kafka.RunFailedPayload{
		RunID:    runID,
		Stage:    stage,
		Reason:   cause.Error(),
		FailedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.producer.PublishEnvelope(ctx, kafka.TopicRunFailed, string(runID), env)
}

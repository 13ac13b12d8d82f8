package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	kafka "github.com/hospiq/patient-queue/internal/delivery/kafka"
	"github.com/hospiq/patient-queue/pkg/logger"
)

type Producer interface {
	PublishPatientCheckedIn(ctx context.Context, event kafka.PatientCheckedInEvent) error
	PublishPatientCalled(ctx context.Context, event kafka.PatientCalledEvent) error
	PublishServiceCompleted(ctx context.Context, event kafka.ServiceCompletedEvent) error
	PublishPatientSkipped(ctx context.Context, event kafka.PatientSkippedEvent) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
}

func NewProducer(prod sarama.SyncProducer, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
	}
}

func (p *implProducer) PublishPatientCheckedIn(ctx context.Context, event kafka.PatientCheckedInEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicPatientCheckedIn, string(event.Department), event)
}

func (p *implProducer) PublishPatientCalled(ctx context.Context, event kafka.PatientCalledEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicPatientCalled, string(event.Department), event)
}

func (p *implProducer) PublishServiceCompleted(ctx context.Context, event kafka.ServiceCompletedEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicServiceCompleted, string(event.Department), event)
}

func (p *implProducer) PublishPatientSkipped(ctx context.Context, event kafka.PatientSkippedEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicPatientSkipped, string(event.Department), event)
}

func (p *implProducer) publish(ctx context.Context, topic, key string, event any) error {
	val, err := json.Marshal(event)
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.publish: %v", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key), // Partition by department for ordering
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(time.Now().Format(time.RFC3339)),
			},
		},
	}

	_, _, err = p.prod.SendMessage(msg)
	return err
}

func (p *implProducer) Close() error {
	if err := p.prod.Close(); err != nil {
		return err
	}

	return nil
}

package consumer

import (
	"context"
	"sync"

	"github.com/IBM/sarama"

	kafka "github.com/hospiq/patient-queue/internal/delivery/kafka"
	"github.com/hospiq/patient-queue/internal/service"
	"github.com/hospiq/patient-queue/pkg/logger"
)

// Consumer feeds front-desk check-in events from the appointment service into
// the queue engine.
type Consumer struct {
	consGr sarama.ConsumerGroup
	qSvc   service.QueueService
	l      logger.Logger
	wg     sync.WaitGroup
}

func NewConsumer(
	consGr sarama.ConsumerGroup,
	qSvc service.QueueService,
	l logger.Logger,
) *Consumer {
	return &Consumer{
		consGr: consGr,
		qSvc:   qSvc,
		l:      l,
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	switch msg.Topic {
	case kafka.TopicAppointmentCheckedIn:
		return c.HandleAppointmentCheckedIn(ctx, msg)
	default:
		c.l.Warnf(ctx, "delivery.kafka.consumer.consumer.processMessage: unknown topic %s", msg.Topic)
		return nil
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	topics := []string{kafka.TopicAppointmentCheckedIn}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.consGr.Consume(ctx, topics, c); err != nil {
				c.l.Errorf(ctx, "delivery.kafka.consumer.consumer.Start: %v", err)
			}

			if ctx.Err() != nil {
				c.l.Infof(ctx, "delivery.kafka.consumer.consumer.Start: %v", ctx.Err())
				return
			}
		}
	}()

	// Handle errors
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consGr.Errors() {
			c.l.Errorf(ctx, "delivery.kafka.consumer.consumer.Start: %v", err)
		}
	}()

	c.l.Infof(ctx, "Consumer is consuming topics: %v", topics)
	return nil
}

func (c *Consumer) Close() error {
	if err := c.consGr.Close(); err != nil {
		return err
	}

	c.wg.Wait()
	return nil
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	c.l.Debug(context.Background(), "Consumer group session started")
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	c.l.Debug(context.Background(), "Consumer group session ended")
	return nil
}

func (c *Consumer) ConsumeClaim(ss sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			if err := c.processMessage(ss.Context(), message); err != nil {
				c.l.Errorf(ss.Context(), "delivery.kafka.consumer.consumer.ConsumeClaim: topic %s offset %d: %v",
					message.Topic, message.Offset, err)
				continue
			}

			ss.MarkMessage(message, "")

		case <-ss.Context().Done():
			return nil
		}
	}
}

package consumer

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"

	kafka "github.com/hospiq/patient-queue/internal/delivery/kafka"
	"github.com/hospiq/patient-queue/internal/models"
	"github.com/hospiq/patient-queue/internal/service"
)

func (c *Consumer) HandleAppointmentCheckedIn(ctx context.Context, message *sarama.ConsumerMessage) error {
	c.l.Info(ctx, "HandleAppointmentCheckedIn consumed")

	var e kafka.AppointmentCheckedInEvent
	if err := json.Unmarshal(message.Value, &e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.HandleAppointmentCheckedIn: %v", err)
		return err
	}

	if _, err := c.qSvc.CheckIn(ctx, service.CheckInInput{
		PatientID:   e.PatientID,
		PatientName: e.PatientName,
		Phone:       e.Phone,
		Department:  models.Department(e.Department),
		Priority:    models.Priority(e.Priority),
	}); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlers.HandleAppointmentCheckedIn: %v", err)
		return err
	}

	return nil
}

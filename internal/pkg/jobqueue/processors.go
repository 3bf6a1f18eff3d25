package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuscircle/campuscircle/internal/pkg/archive"
	"github.com/campuscircle/campuscircle/internal/pkg/mail"
	"github.com/campuscircle/campuscircle/internal/pkg/metrics"
	"github.com/campuscircle/campuscircle/internal/pkg/payment"
	"github.com/campuscircle/campuscircle/internal/pkg/realtime"
	"github.com/gofiber/fiber/v2/log"
)

// Processors are the sinks the queue dispatches jobs to. Archiver may be nil
// when archiving is disabled.
type Processors struct {
	Publisher  realtime.Publisher
	Mailer     mail.Sender
	Archiver   archive.Archiver
	Deliveries payment.Repository
}

func (q *Queue) processPublishRealtimeJob(ctx context.Context, job *Job) error {
	payload, err := PublishRealtimeJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid realtime payload: %w", err)
	}
	if q.processors.Publisher == nil {
		return errors.New("no realtime publisher configured")
	}
	if err := q.processors.Publisher.Publish(ctx, payload.Channel, payload.Event, payload.Data); err != nil {
		return err
	}
	log.Debugf("[JobQueue] Published %s on %s", payload.Event, payload.Channel)
	return nil
}

func (q *Queue) processSendEmailJob(ctx context.Context, job *Job) error {
	payload, err := SendEmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid email payload: %w", err)
	}
	if q.processors.Mailer == nil {
		return errors.New("no mailer configured")
	}
	res := q.processors.Mailer.Send(ctx, mail.Message{
		To:      payload.To,
		Subject: payload.Subject,
		HTML:    payload.HTML,
	})
	if !res.Success {
		return fmt.Errorf("send email to %s: %s", payload.To, res.Error)
	}
	return nil
}

func (q *Queue) processArchiveNotificationJob(ctx context.Context, job *Job) error {
	payload, err := ArchiveNotificationJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid archive payload: %w", err)
	}
	if q.processors.Archiver == nil {
		log.Debugf("[JobQueue] Archive disabled, skipping notification %d", payload.NotificationID)
		metrics.RecordSideEffect(string(JobTypeArchiveNotification), "skipped")
		return nil
	}
	if q.processors.Deliveries == nil {
		return errors.New("no delivery repository configured")
	}

	repo := q.processors.Deliveries.WithContext(ctx)
	delivery, err := repo.GetDelivery(payload.NotificationID)
	if err != nil {
		return fmt.Errorf("load notification %d: %w", payload.NotificationID, err)
	}
	if delivery.ArchivedAt != nil {
		return nil
	}

	key := archive.ObjectKey(delivery.OrderID, delivery.ID, delivery.CreatedAt)
	if err := q.processors.Archiver.Put(ctx, key, []byte(delivery.PayloadJSON)); err != nil {
		return err
	}
	return repo.MarkDeliveryArchived(delivery.ID, key)
}

package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypePublishRealtime     JobType = "publish_realtime"
	JobTypeSendEmail           JobType = "send_email"
	JobTypeArchiveNotification JobType = "archive_notification"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// PublishRealtimeJobPayload pushes one event to a realtime channel.
type PublishRealtimeJobPayload struct {
	OutboxID uint                   `json:"outbox_id"`
	Channel  string                 `json:"channel"`
	Event    string                 `json:"event"`
	Data     map[string]interface{} `json:"data"`
}

// ToMap converts the payload to a map for storage
func (p PublishRealtimeJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"outbox_id": p.OutboxID,
		"channel":   p.Channel,
		"event":     p.Event,
		"data":      p.Data,
	}
}

// PublishRealtimeJobPayloadFromMap creates a payload from a map
func PublishRealtimeJobPayloadFromMap(data map[string]interface{}) (*PublishRealtimeJobPayload, error) {
	var payload PublishRealtimeJobPayload
	return &payload, payloadFromMap(data, &payload)
}

// SendEmailJobPayload sends one HTML email.
type SendEmailJobPayload struct {
	OutboxID uint   `json:"outbox_id"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
}

// ToMap converts the payload to a map for storage
func (p SendEmailJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"outbox_id": p.OutboxID,
		"to":        p.To,
		"subject":   p.Subject,
		"html":      p.HTML,
	}
}

// SendEmailJobPayloadFromMap creates a payload from a map
func SendEmailJobPayloadFromMap(data map[string]interface{}) (*SendEmailJobPayload, error) {
	var payload SendEmailJobPayload
	return &payload, payloadFromMap(data, &payload)
}

// ArchiveNotificationJobPayload copies a raw gateway notification to the
// object store.
type ArchiveNotificationJobPayload struct {
	OutboxID       uint   `json:"outbox_id"`
	NotificationID uint   `json:"notification_id"`
	OrderID        string `json:"order_id"`
}

// ToMap converts the payload to a map for storage
func (p ArchiveNotificationJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"outbox_id":       p.OutboxID,
		"notification_id": p.NotificationID,
		"order_id":        p.OrderID,
	}
}

// ArchiveNotificationJobPayloadFromMap creates a payload from a map
func ArchiveNotificationJobPayloadFromMap(data map[string]interface{}) (*ArchiveNotificationJobPayload, error) {
	var payload ArchiveNotificationJobPayload
	return &payload, payloadFromMap(data, &payload)
}

// payloadFromMap round-trips through JSON; job payloads come back from
// Redis as generic maps.
func payloadFromMap(data map[string]interface{}, out interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, out)
}

// outboxID extracts the originating outbox event id, 0 when absent.
func (j *Job) outboxID() uint {
	switch v := j.Payload["outbox_id"].(type) {
	case float64:
		return uint(v)
	case uint:
		return v
	case int:
		return uint(v)
	default:
		return 0
	}
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

package outbox

import (
	"time"

	"github.com/campuscircle/campuscircle/app/models"
	"gorm.io/gorm"
)

// Repository provides the outbox table operations used by the relay.
type Repository interface {
	// ClaimPending moves up to limit pending events to relayed and returns
	// the ones this caller won.
	ClaimPending(limit int) ([]models.OutboxEvent, error)
	MarkEnqueued(id uint, jobID string) error
	// Release returns a claimed event to pending.
	Release(id uint, reason string) error
	// ReleaseStale returns claims older than cutoff that never got a job id
	// to pending.
	ReleaseStale(cutoff time.Time) (int64, error)
	MarkFailed(id uint, reason string) error
	CountByStatus() (map[string]int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an outbox repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) ClaimPending(limit int) ([]models.OutboxEvent, error) {
	var candidates []models.OutboxEvent
	if err := r.db.Where("status = ?", models.OutboxStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	claimed := make([]models.OutboxEvent, 0, len(candidates))
	for _, e := range candidates {
		now := time.Now()
		res := r.db.Model(&models.OutboxEvent{}).
			Where("id = ? AND status = ?", e.ID, models.OutboxStatusPending).
			Updates(map[string]interface{}{
				"status":     models.OutboxStatusRelayed,
				"relayed_at": &now,
			})
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 0 {
			// Another relay instance won this one.
			continue
		}
		e.Status = models.OutboxStatusRelayed
		e.RelayedAt = &now
		claimed = append(claimed, e)
	}
	return claimed, nil
}

func (r *gormRepository) MarkEnqueued(id uint, jobID string) error {
	return r.db.Model(&models.OutboxEvent{}).Where("id = ?", id).Update("job_id", jobID).Error
}

func (r *gormRepository) Release(id uint, reason string) error {
	return r.db.Model(&models.OutboxEvent{}).
		Where("id = ? AND status = ?", id, models.OutboxStatusRelayed).
		Updates(map[string]interface{}{
			"status":     models.OutboxStatusPending,
			"error":      reason,
			"relayed_at": nil,
		}).Error
}

func (r *gormRepository) ReleaseStale(cutoff time.Time) (int64, error) {
	res := r.db.Model(&models.OutboxEvent{}).
		Where("status = ? AND (job_id IS NULL OR job_id = '') AND relayed_at < ?", models.OutboxStatusRelayed, cutoff).
		Updates(map[string]interface{}{
			"status":     models.OutboxStatusPending,
			"error":      "claim expired before enqueue",
			"relayed_at": nil,
		})
	return res.RowsAffected, res.Error
}

func (r *gormRepository) MarkFailed(id uint, reason string) error {
	return r.db.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status": models.OutboxStatusFailed,
		"error":  reason,
	}).Error
}

func (r *gormRepository) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.Model(&models.OutboxEvent{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

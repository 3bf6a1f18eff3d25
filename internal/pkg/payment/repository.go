package payment

import (
	"context"
	"errors"
	"time"

	"github.com/campuscircle/campuscircle/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the reconciliation service.
// Lookups return ErrNotFound when the row does not exist.
type Repository interface {
	WithContext(ctx context.Context) Repository
	// Transaction runs fn against a repository bound to one DB transaction.
	// Nothing fn wrote is kept when it returns an error.
	Transaction(fn func(repo Repository) error) error

	FindTransactionByOrderID(orderID string) (*models.Transaction, error)
	// TransitionTransaction applies upd only while the stored status is
	// still from. It reports whether a row was updated.
	TransitionTransaction(orderID string, from models.TransactionStatus, upd TransactionUpdate) (bool, error)

	RecordDelivery(n *models.PaymentNotification) (bool, *models.PaymentNotification, error)
	IncrementDeliveryAttempts(id uint) error
	MarkDeliveryProcessed(id uint, mappedStatus, processingError string) error
	GetDelivery(id uint) (*models.PaymentNotification, error)
	MarkDeliveryArchived(id uint, key string) error
	ListFailedDeliveries(provider string, limit int) ([]models.PaymentNotification, error)

	SetMarketplaceItemStatus(itemID uint, status string) error
	FindFoodItem(id uint) (*models.FoodItem, error)
	CreateFoodOrder(order *models.FoodOrder) error
	// DecrementFoodItem lowers the quantity by n without going below zero and
	// derives the item status from the result.
	DecrementFoodItem(id uint, n int) (*models.FoodItem, error)
	ListPaymentRequestMessages() ([]models.Message, error)
	SaveMessagePayload(m *models.Message) error
	FindEvent(id uint) (*models.Event, error)
	FindEventParticipant(eventID, userID uint) (*models.EventParticipant, error)
	CreateEventParticipant(p *models.EventParticipant) error
	MarkParticipantPaid(id uint, transactionID string) error
	IncrementEventParticipants(eventID uint, n int) error
	UpsertUserStats(userID uint, d models.StatsDelta) error
	CreateUserNotification(n *models.Notification) error
	FindUser(id uint) (*models.User, error)
	CreateOutboxEvent(e *models.OutboxEvent) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *gormRepository) WithContext(ctx context.Context) Repository {
	return &gormRepository{db: r.db.WithContext(ctx)}
}

func (r *gormRepository) Transaction(fn func(repo Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) FindTransactionByOrderID(orderID string) (*models.Transaction, error) {
	txn, err := models.FindTransactionByOrderID(r.db, orderID)
	if err != nil {
		return nil, notFound(err)
	}
	return txn, nil
}

func (r *gormRepository) TransitionTransaction(orderID string, from models.TransactionStatus, upd TransactionUpdate) (bool, error) {
	updates := map[string]interface{}{
		"status": upd.Status,
	}
	if upd.GatewayTransactionID != "" {
		updates["gateway_transaction_id"] = upd.GatewayTransactionID
	}
	if upd.PaymentMethod != "" {
		updates["payment_method"] = upd.PaymentMethod
	}
	if upd.FraudStatus != "" {
		updates["fraud_status"] = upd.FraudStatus
	}

	res := r.db.Model(&models.Transaction{}).
		Where("order_id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) RecordDelivery(n *models.PaymentNotification) (bool, *models.PaymentNotification, error) {
	// RowsAffected cannot tell an insert from a conflict here: MySQL with
	// clientFoundRows reports 1 for ON DUPLICATE KEY UPDATE id=id. The ID
	// GORM assigned is compared with the stored row instead.
	stored, err := r.findDelivery(n.Provider, n.DeliveryKey)
	if err == nil {
		return false, stored, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, nil, err
	}

	n.ID = 0
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "delivery_key"},
		},
		DoNothing: true,
	}).Create(n).Error; err != nil {
		return false, nil, err
	}

	// A concurrent delivery may have won the insert between the two reads.
	stored, err = r.findDelivery(n.Provider, n.DeliveryKey)
	if err != nil {
		return false, nil, err
	}
	return n.ID != 0 && n.ID == stored.ID, stored, nil
}

func (r *gormRepository) findDelivery(provider, key string) (*models.PaymentNotification, error) {
	var stored models.PaymentNotification
	if err := r.db.Where("provider = ? AND delivery_key = ?", provider, key).
		First(&stored).Error; err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

func (r *gormRepository) IncrementDeliveryAttempts(id uint) error {
	return r.db.Model(&models.PaymentNotification{}).Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + ?", 1)).Error
}

func (r *gormRepository) MarkDeliveryProcessed(id uint, mappedStatus, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	if mappedStatus != "" {
		updates["mapped_status"] = mappedStatus
	}
	return r.db.Model(&models.PaymentNotification{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) GetDelivery(id uint) (*models.PaymentNotification, error) {
	var n models.PaymentNotification
	if err := r.db.First(&n, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (r *gormRepository) MarkDeliveryArchived(id uint, key string) error {
	now := time.Now()
	return r.db.Model(&models.PaymentNotification{}).Where("id = ?", id).Updates(map[string]interface{}{
		"archive_key": key,
		"archived_at": &now,
	}).Error
}

func (r *gormRepository) ListFailedDeliveries(provider string, limit int) ([]models.PaymentNotification, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []models.PaymentNotification
	err := r.db.
		Where("provider = ? AND (processing_error <> '' OR processed_at IS NULL)", provider).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *gormRepository) SetMarketplaceItemStatus(itemID uint, status string) error {
	return r.db.Model(&models.MarketplaceItem{}).Where("id = ?", itemID).Update("status", status).Error
}

func (r *gormRepository) FindFoodItem(id uint) (*models.FoodItem, error) {
	var item models.FoodItem
	if err := r.db.First(&item, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *gormRepository) CreateFoodOrder(order *models.FoodOrder) error {
	return r.db.Create(order).Error
}

func (r *gormRepository) DecrementFoodItem(id uint, n int) (*models.FoodItem, error) {
	res := r.db.Model(&models.FoodItem{}).
		Where("id = ? AND quantity >= ?", id, n).
		Update("quantity", gorm.Expr("quantity - ?", n))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Not enough left: clamp instead of going negative.
		if err := r.db.Model(&models.FoodItem{}).Where("id = ? AND quantity > 0", id).
			Update("quantity", 0).Error; err != nil {
			return nil, err
		}
	}

	item, err := r.FindFoodItem(id)
	if err != nil {
		return nil, err
	}
	status := models.ItemStatusAvailable
	if item.Quantity <= 0 {
		status = models.ItemStatusSold
	}
	if item.Status != status {
		if err := r.db.Model(&models.FoodItem{}).Where("id = ?", id).Update("status", status).Error; err != nil {
			return nil, err
		}
		item.Status = status
	}
	return item, nil
}

func (r *gormRepository) ListPaymentRequestMessages() ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.Where("type = ?", models.MessageTypePaymentRequest).Order("id ASC").Find(&msgs).Error
	return msgs, err
}

func (r *gormRepository) SaveMessagePayload(m *models.Message) error {
	return r.db.Model(&models.Message{}).Where("id = ?", m.ID).Update("payload", m.Payload).Error
}

func (r *gormRepository) FindEvent(id uint) (*models.Event, error) {
	var ev models.Event
	if err := r.db.First(&ev, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &ev, nil
}

func (r *gormRepository) FindEventParticipant(eventID, userID uint) (*models.EventParticipant, error) {
	var p models.EventParticipant
	if err := r.db.Where("event_id = ? AND user_id = ?", eventID, userID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *gormRepository) CreateEventParticipant(p *models.EventParticipant) error {
	return r.db.Create(p).Error
}

func (r *gormRepository) MarkParticipantPaid(id uint, transactionID string) error {
	return r.db.Model(&models.EventParticipant{}).Where("id = ?", id).Updates(map[string]interface{}{
		"payment_status": models.ParticipantPaymentPaid,
		"transaction_id": transactionID,
	}).Error
}

func (r *gormRepository) IncrementEventParticipants(eventID uint, n int) error {
	return r.db.Model(&models.Event{}).Where("id = ?", eventID).
		Update("current_participants", gorm.Expr("current_participants + ?", n)).Error
}

func (r *gormRepository) UpsertUserStats(userID uint, d models.StatsDelta) error {
	row := &models.UserStats{
		UserID:           userID,
		ItemsSold:        d.ItemsSold,
		ItemsBought:      d.ItemsBought,
		TotalEarnings:    d.TotalEarnings,
		TotalSpent:       d.TotalSpent,
		PendingBalance:   d.PendingBalance,
		TutoringSessions: d.TutoringSessions,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"items_sold":        gorm.Expr("items_sold + ?", d.ItemsSold),
			"items_bought":      gorm.Expr("items_bought + ?", d.ItemsBought),
			"total_earnings":    gorm.Expr("total_earnings + ?", d.TotalEarnings),
			"total_spent":       gorm.Expr("total_spent + ?", d.TotalSpent),
			"pending_balance":   gorm.Expr("pending_balance + ?", d.PendingBalance),
			"tutoring_sessions": gorm.Expr("tutoring_sessions + ?", d.TutoringSessions),
			"updated_at":        time.Now(),
		}),
	}).Create(row).Error
}

func (r *gormRepository) CreateUserNotification(n *models.Notification) error {
	return r.db.Create(n).Error
}

func (r *gormRepository) FindUser(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *gormRepository) CreateOutboxEvent(e *models.OutboxEvent) error {
	if e.Status == "" {
		e.Status = models.OutboxStatusPending
	}
	return r.db.Create(e).Error
}

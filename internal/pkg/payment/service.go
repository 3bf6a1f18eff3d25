package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campuscircle/campuscircle/app/models"
	"github.com/campuscircle/campuscircle/internal/pkg/env"
	"github.com/campuscircle/campuscircle/internal/pkg/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DefaultProvider = "midtrans"

// Options configures the reconciliation service.
type Options struct {
	Provider  string
	ServerKey string
	// Production sends sale emails to the seller. Otherwise every email goes
	// to SandboxRecipient.
	Production       bool
	SandboxRecipient string
	ArchiveEnabled   bool
}

// OptionsFromEnv reads PAYMENT_*, APP_ENV, MAIL_SANDBOX_RECIPIENT and
// S3_ARCHIVE_ENABLED.
func OptionsFromEnv() Options {
	return Options{
		Provider:         strings.ToLower(env.GetEnv("PAYMENT_PROVIDER", DefaultProvider)),
		ServerKey:        env.GetEnv("PAYMENT_SERVER_KEY", ""),
		Production:       env.IsProd(),
		SandboxRecipient: env.GetEnv("MAIL_SANDBOX_RECIPIENT", ""),
		ArchiveEnabled:   env.GetEnvBool("S3_ARCHIVE_ENABLED", false),
	}
}

// Service reconciles gateway notifications with local transactions.
type Service struct {
	repo     Repository
	opts     Options
	validate *validator.Validate
}

// NewService creates a reconciliation service from an injected repository.
func NewService(repo Repository, opts Options) *Service {
	if opts.Provider == "" {
		opts.Provider = DefaultProvider
	}
	return &Service{repo: repo, opts: opts, validate: validator.New()}
}

// NewServiceFromDB creates a reconciliation service from a GORM DB handle
// and the environment.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), OptionsFromEnv())
}

// Repository exposes the underlying repository to job processors.
func (s *Service) Repository() Repository {
	return s.repo
}

// Reconcile authenticates a raw notification body and applies it.
//
// The signature is checked before anything is read from the database. All
// writes caused by the notification happen in one DB transaction; side
// channels are only written to the outbox.
func (s *Service) Reconcile(ctx context.Context, body []byte) (*Result, error) {
	start := time.Now()
	res, err := s.reconcile(ctx, body)

	outcome, status := outcomeLabel(res, err), ""
	if res != nil {
		status = string(res.Status)
	}
	metrics.RecordNotification(outcome, status, time.Since(start).Seconds())
	return res, err
}

func (s *Service) reconcile(ctx context.Context, body []byte) (*Result, error) {
	n, err := ParseNotification(body)
	if err != nil {
		return nil, err
	}
	if !VerifySignature(n.OrderID, n.StatusCode.String(), n.GrossAmount.String(), n.SignatureKey, s.opts.ServerKey) {
		log.Warnf("[Payment] Rejected notification for %q: signature mismatch", n.OrderID)
		return nil, ErrInvalidSignature
	}
	if err := s.validate.Struct(n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	repo := s.repo.WithContext(ctx)
	txn, err := repo.FindTransactionByOrderID(n.OrderID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction %s: %w", n.OrderID, err)
	}
	s.checkGrossAmount(txn, n)

	status := MapStatus(n.TransactionStatus, n.FraudStatus)
	created, delivery, err := repo.RecordDelivery(&models.PaymentNotification{
		Provider:          s.opts.Provider,
		DeliveryKey:       n.DeliveryKey(),
		OrderID:           n.OrderID,
		TransactionStatus: n.TransactionStatus,
		MappedStatus:      string(status),
		PayloadJSON:       string(body),
		SignatureValid:    true,
		Attempts:          1,
	})
	if err != nil {
		return nil, fmt.Errorf("record delivery: %w", err)
	}

	res := &Result{
		OrderID:        txn.OrderID,
		NotificationID: delivery.ID,
		Previous:       txn.Status,
		Status:         status,
	}
	if !created {
		if delivery.IsSettled() {
			log.Infof("[Payment] Duplicate delivery %s ignored", delivery.DeliveryKey)
			res.Outcome = OutcomeDuplicate
			return res, nil
		}
		if err := repo.IncrementDeliveryAttempts(delivery.ID); err != nil {
			return nil, fmt.Errorf("retry delivery: %w", err)
		}
	}

	err = repo.Transaction(func(tx Repository) error {
		return s.apply(tx, txn, n, delivery.ID, status, res)
	})

	processingErr := ""
	if err != nil {
		processingErr = err.Error()
	}
	if markErr := repo.MarkDeliveryProcessed(delivery.ID, string(status), processingErr); markErr != nil {
		log.Errorf("[Payment] Failed to mark delivery %d processed: %v", delivery.ID, markErr)
	}
	if err != nil {
		log.Errorf("[Payment] Reconcile %s failed, changes rolled back: %v", n.OrderID, err)
		return nil, err
	}

	if res.Transitioned() {
		metrics.RecordTransition(string(txn.ItemType), string(status), txn.Amount, status == models.TransactionStatusCompleted)
	}
	log.Infof("[Payment] %s: %s -> %s (%s)", n.OrderID, res.Previous, res.Status, res.Outcome)
	return res, nil
}

// apply runs inside the DB transaction.
func (s *Service) apply(repo Repository, txn *models.Transaction, n *Notification, deliveryID uint, status models.TransactionStatus, res *Result) error {
	f := &fanout{repo: repo, txn: txn, status: status}

	if s.opts.ArchiveEnabled {
		if err := f.outbox(models.OutboxKindArchive, models.ArchivePayload{
			NotificationID: deliveryID,
			OrderID:        txn.OrderID,
		}); err != nil {
			return err
		}
	}

	moved, err := repo.TransitionTransaction(txn.OrderID, models.TransactionStatusPending, TransactionUpdate{
		Status:               status,
		GatewayTransactionID: n.TransactionID,
		PaymentMethod:        n.PaymentType,
		FraudStatus:          n.FraudStatus,
	})
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if !moved {
		// Another delivery already settled this transaction.
		res.Outcome = OutcomeStale
		return nil
	}
	res.Outcome = OutcomeProcessed
	res.Previous = models.TransactionStatusPending

	txn.Status = status
	if err := f.publish(UserChannel(txn.BuyerID), EventTransactionUpdated, map[string]interface{}{
		"order_id":        txn.OrderID,
		"status":          status,
		"previous_status": res.Previous,
		"item_type":       txn.ItemType,
		"item_title":      txn.ItemTitle,
		"amount":          txn.Amount,
	}); err != nil {
		return err
	}

	switch status {
	case models.TransactionStatusCompleted:
		return s.complete(f)
	case models.TransactionStatusFailed, models.TransactionStatusCancelled:
		return s.revert(f)
	default:
		return nil
	}
}

func (s *Service) complete(f *fanout) error {
	txn := f.txn
	ful, err := fulfillerFor(txn.ItemType)
	if err != nil {
		return err
	}
	if err := ful.complete(f); err != nil {
		return err
	}

	if txn.HasSeller() {
		earnings := SellerEarnings(txn.Amount)
		f.sellerDelta.ItemsSold++
		f.sellerDelta.TotalEarnings += earnings
		f.sellerDelta.PendingBalance += earnings
		if err := f.repo.UpsertUserStats(*txn.SellerID, f.sellerDelta); err != nil {
			return fmt.Errorf("update seller stats: %w", err)
		}
	}
	if err := f.repo.UpsertUserStats(txn.BuyerID, models.StatsDelta{
		ItemsBought: 1,
		TotalSpent:  txn.Amount,
	}); err != nil {
		return fmt.Errorf("update buyer stats: %w", err)
	}

	if txn.HasSeller() {
		title, msg := saleNotification(txn)
		if err := f.repo.CreateUserNotification(&models.Notification{
			UserID:      *txn.SellerID,
			Type:        models.NotificationTypeSale,
			Title:       title,
			Message:     msg,
			ReferenceID: txn.OrderID,
		}); err != nil {
			return fmt.Errorf("notify seller: %w", err)
		}
	}
	title, msg := purchaseNotification(txn)
	if err := f.repo.CreateUserNotification(&models.Notification{
		UserID:      txn.BuyerID,
		Type:        models.NotificationTypePurchase,
		Title:       title,
		Message:     msg,
		ReferenceID: txn.OrderID,
	}); err != nil {
		return fmt.Errorf("notify buyer: %w", err)
	}

	if txn.HasSeller() {
		return s.queueSaleEmail(f)
	}
	return nil
}

func (s *Service) revert(f *fanout) error {
	ful, err := fulfillerFor(f.txn.ItemType)
	if err != nil {
		return err
	}
	if err := ful.revert(f); err != nil {
		return err
	}

	title, msg := failureNotification(f.txn, f.status)
	if err := f.repo.CreateUserNotification(&models.Notification{
		UserID:      f.txn.BuyerID,
		Type:        models.NotificationTypeSystem,
		Title:       title,
		Message:     msg,
		ReferenceID: f.txn.OrderID,
	}); err != nil {
		return fmt.Errorf("notify buyer: %w", err)
	}
	return nil
}

func (s *Service) queueSaleEmail(f *fanout) error {
	txn := f.txn
	seller, err := f.repo.FindUser(*txn.SellerID)
	if errors.Is(err, ErrNotFound) {
		log.Warnf("[Payment] Seller %d of %s not found, skipping email", *txn.SellerID, txn.OrderID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load seller: %w", err)
	}

	buyer := &txn.Buyer
	if buyer.ID == 0 {
		if buyer, err = f.repo.FindUser(txn.BuyerID); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return fmt.Errorf("load buyer: %w", err)
			}
			buyer = &models.User{Name: "A student"}
		}
	}

	to := s.opts.SandboxRecipient
	if s.opts.Production {
		to = seller.Email
	}
	if to == "" {
		log.Warnf("[Payment] No email recipient for sale %s", txn.OrderID)
		return nil
	}

	subject, html, err := renderSaleEmail(txn, seller, buyer)
	if err != nil {
		return fmt.Errorf("render sale email: %w", err)
	}
	return f.outbox(models.OutboxKindEmail, models.EmailPayload{
		To:      to,
		Subject: subject,
		HTML:    html,
	})
}

// checkGrossAmount logs notifications whose amount disagrees with the
// stored transaction. The signature already binds the amount to the order.
func (s *Service) checkGrossAmount(txn *models.Transaction, n *Notification) {
	if n.GrossAmount == "" {
		return
	}
	gross, err := decimal.NewFromString(n.GrossAmount.String())
	if err != nil {
		log.Warnf("[Payment] Unparsable gross_amount %q for %s", n.GrossAmount, n.OrderID)
		return
	}
	if !gross.Equal(decimal.NewFromInt(txn.Amount)) {
		log.Warnf("[Payment] gross_amount %s for %s differs from stored amount %d", gross.String(), n.OrderID, txn.Amount)
	}
}

// ReplayFailed re-runs ledger entries whose processing failed or never
// finished, through the same path as live deliveries.
func (s *Service) ReplayFailed(ctx context.Context, limit int) (replayed int, failed int, err error) {
	deliveries, err := s.repo.WithContext(ctx).ListFailedDeliveries(s.opts.Provider, limit)
	if err != nil {
		return 0, 0, err
	}
	for _, d := range deliveries {
		if ctx.Err() != nil {
			return replayed, failed, ctx.Err()
		}
		res, err := s.Reconcile(ctx, []byte(d.PayloadJSON))
		if err != nil {
			failed++
			log.Errorf("[Payment] Replay of delivery %d (%s) failed: %v", d.ID, d.OrderID, err)
			continue
		}
		replayed++
		log.Infof("[Payment] Replayed delivery %d (%s): %s", d.ID, d.OrderID, res.Outcome)
	}
	return replayed, failed, nil
}

// TransactionStatus returns the stored transaction for the status endpoint.
func (s *Service) TransactionStatus(ctx context.Context, orderID string) (*models.Transaction, error) {
	txn, err := s.repo.WithContext(ctx).FindTransactionByOrderID(strings.TrimSpace(orderID))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	return txn, err
}

func outcomeLabel(res *Result, err error) string {
	switch {
	case err == nil && res != nil:
		return string(res.Outcome)
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, ErrTransactionNotFound):
		return "not_found"
	default:
		return "error"
	}
}

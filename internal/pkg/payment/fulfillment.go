package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/campuscircle/campuscircle/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
)

const (
	EventTransactionUpdated = "transaction-updated"
	EventMessageUpdated     = "message-updated"
)

// UserChannel is the private realtime channel of a user.
func UserChannel(userID uint) string {
	return fmt.Sprintf("private-user-%d", userID)
}

// ConversationChannel is the private realtime channel of a conversation.
func ConversationChannel(conversationID uint) string {
	return fmt.Sprintf("private-conversation-%d", conversationID)
}

// fanout carries the state shared by the side effects of one transition.
// All writes go through repo, which is bound to the surrounding DB
// transaction.
type fanout struct {
	repo        Repository
	txn         *models.Transaction
	status      models.TransactionStatus
	sellerDelta models.StatsDelta
}

func (f *fanout) outbox(kind models.OutboxKind, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s outbox payload: %w", kind, err)
	}
	return f.repo.CreateOutboxEvent(&models.OutboxEvent{
		Kind:        kind,
		AggregateID: f.txn.OrderID,
		Payload:     datatypes.JSON(raw),
		Status:      models.OutboxStatusPending,
	})
}

func (f *fanout) publish(channel, event string, data map[string]interface{}) error {
	return f.outbox(models.OutboxKindRealtime, models.RealtimePayload{
		Channel: channel,
		Event:   event,
		Data:    data,
	})
}

// fulfiller applies the item-specific part of a transition.
type fulfiller interface {
	complete(f *fanout) error
	revert(f *fanout) error
}

func fulfillerFor(t models.ItemType) (fulfiller, error) {
	switch t {
	case models.ItemTypeMarketplace:
		return marketplaceFulfiller{}, nil
	case models.ItemTypeFood:
		return foodFulfiller{}, nil
	case models.ItemTypeEvent:
		return eventFulfiller{}, nil
	case models.ItemTypeTutoring:
		return tutoringFulfiller{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownItemType, t)
	}
}

type marketplaceFulfiller struct{}

func (marketplaceFulfiller) complete(f *fanout) error {
	return marketplaceFulfiller{}.setStatus(f, models.ItemStatusSold)
}

func (marketplaceFulfiller) revert(f *fanout) error {
	return marketplaceFulfiller{}.setStatus(f, models.ItemStatusAvailable)
}

func (marketplaceFulfiller) setStatus(f *fanout, status string) error {
	if f.txn.ItemID == nil {
		log.Warnf("[Payment] Marketplace transaction %s has no item", f.txn.OrderID)
		return nil
	}
	if err := f.repo.SetMarketplaceItemStatus(*f.txn.ItemID, status); err != nil {
		return fmt.Errorf("set marketplace item %d %s: %w", *f.txn.ItemID, status, err)
	}
	return nil
}

type foodFulfiller struct{}

func (foodFulfiller) complete(f *fanout) error {
	if f.txn.FoodItemID == nil {
		log.Warnf("[Payment] Food transaction %s has no food item", f.txn.OrderID)
		return nil
	}
	item, err := f.repo.FindFoodItem(*f.txn.FoodItemID)
	if errors.Is(err, ErrNotFound) {
		log.Warnf("[Payment] Food item %d for %s no longer exists", *f.txn.FoodItemID, f.txn.OrderID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load food item: %w", err)
	}

	order := &models.FoodOrder{
		FoodItemID:         item.ID,
		BuyerID:            f.txn.BuyerID,
		TransactionOrderID: f.txn.OrderID,
		Quantity:           1,
		TotalPrice:         f.txn.Amount,
		PickupTime:         item.PickupTime,
		Status:             models.FoodOrderStatusConfirmed,
	}
	if err := f.repo.CreateFoodOrder(order); err != nil {
		return fmt.Errorf("create food order: %w", err)
	}
	if _, err := f.repo.DecrementFoodItem(item.ID, order.Quantity); err != nil {
		return fmt.Errorf("decrement food item: %w", err)
	}

	return foodFulfiller{}.markPaymentRequestPaid(f, item.ID)
}

// markPaymentRequestPaid flips the first awaiting payment request for the
// food item to paid and announces it on the conversation channel.
func (foodFulfiller) markPaymentRequestPaid(f *fanout, foodItemID uint) error {
	msgs, err := f.repo.ListPaymentRequestMessages()
	if err != nil {
		return fmt.Errorf("list payment requests: %w", err)
	}
	for i := range msgs {
		m := &msgs[i]
		p, ok := m.PaymentRequest()
		if !ok || p.FoodItemID != foodItemID || p.Status != models.PaymentRequestAwaiting {
			continue
		}
		if err := m.MarkPaymentRequestPaid(f.txn.OrderID); err != nil {
			return fmt.Errorf("patch payment request %d: %w", m.ID, err)
		}
		if err := f.repo.SaveMessagePayload(m); err != nil {
			return fmt.Errorf("update payment request %d: %w", m.ID, err)
		}
		return f.publish(ConversationChannel(m.ConversationID), EventMessageUpdated, map[string]interface{}{
			"message_id":      m.ID,
			"conversation_id": m.ConversationID,
			"type":            m.Type,
			"payload":         json.RawMessage(m.Payload),
		})
	}
	return nil
}

func (foodFulfiller) revert(*fanout) error { return nil }

type eventFulfiller struct{}

func (eventFulfiller) complete(f *fanout) error {
	if f.txn.EventID == nil {
		log.Warnf("[Payment] Event transaction %s has no event", f.txn.OrderID)
		return nil
	}
	ev, err := f.repo.FindEvent(*f.txn.EventID)
	if errors.Is(err, ErrNotFound) {
		log.Warnf("[Payment] Event %d for %s no longer exists", *f.txn.EventID, f.txn.OrderID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}

	p, err := f.repo.FindEventParticipant(ev.ID, f.txn.BuyerID)
	switch {
	case err == nil:
		if err := f.repo.MarkParticipantPaid(p.ID, f.txn.OrderID); err != nil {
			return fmt.Errorf("update participant: %w", err)
		}
		return nil
	case errors.Is(err, ErrNotFound):
		participant := &models.EventParticipant{
			EventID:       ev.ID,
			UserID:        f.txn.BuyerID,
			Status:        models.ParticipantStatusRegistered,
			PaymentStatus: models.ParticipantPaymentPaid,
			TransactionID: f.txn.OrderID,
		}
		if err := f.repo.CreateEventParticipant(participant); err != nil {
			return fmt.Errorf("create participant: %w", err)
		}
		if err := f.repo.IncrementEventParticipants(ev.ID, 1); err != nil {
			return fmt.Errorf("increment participants: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("load participant: %w", err)
	}
}

func (eventFulfiller) revert(*fanout) error { return nil }

// Tutoring has no item row; the session is credited to the tutor's stats.
type tutoringFulfiller struct{}

func (tutoringFulfiller) complete(f *fanout) error {
	f.sellerDelta.TutoringSessions++
	return nil
}

func (tutoringFulfiller) revert(*fanout) error { return nil }

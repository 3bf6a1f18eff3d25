package payment

import (
	"context"
	"errors"
	"time"

	"github.com/campuscircle/campuscircle/app/models"
)

var errInjected = errors.New("injected store failure")

type memState struct {
	transactions  map[string]models.Transaction
	items         map[uint]models.MarketplaceItem
	food          map[uint]models.FoodItem
	foodOrders    []models.FoodOrder
	messages      []models.Message
	events        map[uint]models.Event
	participants  []models.EventParticipant
	stats         map[uint]models.UserStats
	notifications []models.Notification
	users         map[uint]models.User
	outbox        []models.OutboxEvent
	deliveries    []models.PaymentNotification
	nextID        uint
}

func newMemState() *memState {
	return &memState{
		transactions: map[string]models.Transaction{},
		items:        map[uint]models.MarketplaceItem{},
		food:         map[uint]models.FoodItem{},
		events:       map[uint]models.Event{},
		stats:        map[uint]models.UserStats{},
		users:        map[uint]models.User{},
		nextID:       1000,
	}
}

func (s *memState) clone() *memState {
	c := *s
	c.transactions = make(map[string]models.Transaction, len(s.transactions))
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	c.items = make(map[uint]models.MarketplaceItem, len(s.items))
	for k, v := range s.items {
		c.items[k] = v
	}
	c.food = make(map[uint]models.FoodItem, len(s.food))
	for k, v := range s.food {
		c.food[k] = v
	}
	c.events = make(map[uint]models.Event, len(s.events))
	for k, v := range s.events {
		c.events[k] = v
	}
	c.stats = make(map[uint]models.UserStats, len(s.stats))
	for k, v := range s.stats {
		c.stats[k] = v
	}
	c.users = make(map[uint]models.User, len(s.users))
	for k, v := range s.users {
		c.users[k] = v
	}
	c.foodOrders = append([]models.FoodOrder(nil), s.foodOrders...)
	c.messages = append([]models.Message(nil), s.messages...)
	c.participants = append([]models.EventParticipant(nil), s.participants...)
	c.notifications = append([]models.Notification(nil), s.notifications...)
	c.outbox = append([]models.OutboxEvent(nil), s.outbox...)
	c.deliveries = append([]models.PaymentNotification(nil), s.deliveries...)
	return &c
}

func (s *memState) id() uint {
	s.nextID++
	return s.nextID
}

// memRepository is an in-memory Repository. Transaction works on a copy of
// the state that replaces the original only when fn succeeds.
type memRepository struct {
	st     *memState
	calls  *[]string
	failOn string
}

func newMemRepository() *memRepository {
	return &memRepository{st: newMemState(), calls: &[]string{}}
}

func (r *memRepository) hit(name string) error {
	*r.calls = append(*r.calls, name)
	if r.failOn == name {
		return errInjected
	}
	return nil
}

func (r *memRepository) WithContext(context.Context) Repository { return r }

func (r *memRepository) Transaction(fn func(repo Repository) error) error {
	if err := r.hit("Transaction"); err != nil {
		return err
	}
	snapshot := r.st.clone()
	if err := fn(&memRepository{st: snapshot, calls: r.calls, failOn: r.failOn}); err != nil {
		return err
	}
	*r.st = *snapshot
	return nil
}

func (r *memRepository) FindTransactionByOrderID(orderID string) (*models.Transaction, error) {
	if err := r.hit("FindTransactionByOrderID"); err != nil {
		return nil, err
	}
	txn, ok := r.st.transactions[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	if txn.ItemID != nil {
		if item, ok := r.st.items[*txn.ItemID]; ok {
			txn.Item = &item
		}
	}
	txn.Buyer = r.st.users[txn.BuyerID]
	return &txn, nil
}

func (r *memRepository) TransitionTransaction(orderID string, from models.TransactionStatus, upd TransactionUpdate) (bool, error) {
	if err := r.hit("TransitionTransaction"); err != nil {
		return false, err
	}
	txn, ok := r.st.transactions[orderID]
	if !ok || txn.Status != from {
		return false, nil
	}
	txn.Status = upd.Status
	if upd.GatewayTransactionID != "" {
		txn.GatewayTransactionID = upd.GatewayTransactionID
	}
	if upd.PaymentMethod != "" {
		txn.PaymentMethod = upd.PaymentMethod
	}
	if upd.FraudStatus != "" {
		txn.FraudStatus = upd.FraudStatus
	}
	r.st.transactions[orderID] = txn
	return true, nil
}

func (r *memRepository) RecordDelivery(n *models.PaymentNotification) (bool, *models.PaymentNotification, error) {
	if err := r.hit("RecordDelivery"); err != nil {
		return false, nil, err
	}
	for i := range r.st.deliveries {
		d := r.st.deliveries[i]
		if d.Provider == n.Provider && d.DeliveryKey == n.DeliveryKey {
			return false, &d, nil
		}
	}
	n.ID = r.st.id()
	r.st.deliveries = append(r.st.deliveries, *n)
	stored := *n
	return true, &stored, nil
}

func (r *memRepository) delivery(id uint) *models.PaymentNotification {
	for i := range r.st.deliveries {
		if r.st.deliveries[i].ID == id {
			return &r.st.deliveries[i]
		}
	}
	return nil
}

func (r *memRepository) IncrementDeliveryAttempts(id uint) error {
	if err := r.hit("IncrementDeliveryAttempts"); err != nil {
		return err
	}
	if d := r.delivery(id); d != nil {
		d.Attempts++
	}
	return nil
}

func (r *memRepository) MarkDeliveryProcessed(id uint, mappedStatus, processingError string) error {
	if err := r.hit("MarkDeliveryProcessed"); err != nil {
		return err
	}
	if d := r.delivery(id); d != nil {
		now := time.Now()
		d.ProcessedAt = &now
		d.ProcessingError = processingError
		d.MappedStatus = mappedStatus
	}
	return nil
}

func (r *memRepository) GetDelivery(id uint) (*models.PaymentNotification, error) {
	if err := r.hit("GetDelivery"); err != nil {
		return nil, err
	}
	d := r.delivery(id)
	if d == nil {
		return nil, ErrNotFound
	}
	out := *d
	return &out, nil
}

func (r *memRepository) MarkDeliveryArchived(id uint, key string) error {
	if err := r.hit("MarkDeliveryArchived"); err != nil {
		return err
	}
	if d := r.delivery(id); d != nil {
		now := time.Now()
		d.ArchiveKey = key
		d.ArchivedAt = &now
	}
	return nil
}

func (r *memRepository) ListFailedDeliveries(provider string, limit int) ([]models.PaymentNotification, error) {
	if err := r.hit("ListFailedDeliveries"); err != nil {
		return nil, err
	}
	var out []models.PaymentNotification
	for _, d := range r.st.deliveries {
		if d.Provider == provider && (d.ProcessingError != "" || d.ProcessedAt == nil) {
			out = append(out, d)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memRepository) SetMarketplaceItemStatus(itemID uint, status string) error {
	if err := r.hit("SetMarketplaceItemStatus"); err != nil {
		return err
	}
	if item, ok := r.st.items[itemID]; ok {
		item.Status = status
		r.st.items[itemID] = item
	}
	return nil
}

func (r *memRepository) FindFoodItem(id uint) (*models.FoodItem, error) {
	if err := r.hit("FindFoodItem"); err != nil {
		return nil, err
	}
	item, ok := r.st.food[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (r *memRepository) CreateFoodOrder(order *models.FoodOrder) error {
	if err := r.hit("CreateFoodOrder"); err != nil {
		return err
	}
	order.ID = r.st.id()
	r.st.foodOrders = append(r.st.foodOrders, *order)
	return nil
}

func (r *memRepository) DecrementFoodItem(id uint, n int) (*models.FoodItem, error) {
	if err := r.hit("DecrementFoodItem"); err != nil {
		return nil, err
	}
	item, ok := r.st.food[id]
	if !ok {
		return nil, ErrNotFound
	}
	item.Quantity -= n
	if item.Quantity < 0 {
		item.Quantity = 0
	}
	item.Status = models.ItemStatusAvailable
	if item.Quantity <= 0 {
		item.Status = models.ItemStatusSold
	}
	r.st.food[id] = item
	return &item, nil
}

func (r *memRepository) ListPaymentRequestMessages() ([]models.Message, error) {
	if err := r.hit("ListPaymentRequestMessages"); err != nil {
		return nil, err
	}
	var out []models.Message
	for _, m := range r.st.messages {
		if m.Type == models.MessageTypePaymentRequest {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memRepository) SaveMessagePayload(m *models.Message) error {
	if err := r.hit("SaveMessagePayload"); err != nil {
		return err
	}
	for i := range r.st.messages {
		if r.st.messages[i].ID == m.ID {
			r.st.messages[i].Payload = m.Payload
		}
	}
	return nil
}

func (r *memRepository) FindEvent(id uint) (*models.Event, error) {
	if err := r.hit("FindEvent"); err != nil {
		return nil, err
	}
	ev, ok := r.st.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ev, nil
}

func (r *memRepository) FindEventParticipant(eventID, userID uint) (*models.EventParticipant, error) {
	if err := r.hit("FindEventParticipant"); err != nil {
		return nil, err
	}
	for _, p := range r.st.participants {
		if p.EventID == eventID && p.UserID == userID {
			out := p
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepository) CreateEventParticipant(p *models.EventParticipant) error {
	if err := r.hit("CreateEventParticipant"); err != nil {
		return err
	}
	p.ID = r.st.id()
	r.st.participants = append(r.st.participants, *p)
	return nil
}

func (r *memRepository) MarkParticipantPaid(id uint, transactionID string) error {
	if err := r.hit("MarkParticipantPaid"); err != nil {
		return err
	}
	for i := range r.st.participants {
		if r.st.participants[i].ID == id {
			r.st.participants[i].PaymentStatus = models.ParticipantPaymentPaid
			r.st.participants[i].TransactionID = transactionID
		}
	}
	return nil
}

func (r *memRepository) IncrementEventParticipants(eventID uint, n int) error {
	if err := r.hit("IncrementEventParticipants"); err != nil {
		return err
	}
	if ev, ok := r.st.events[eventID]; ok {
		ev.CurrentParticipants += n
		r.st.events[eventID] = ev
	}
	return nil
}

func (r *memRepository) UpsertUserStats(userID uint, d models.StatsDelta) error {
	if err := r.hit("UpsertUserStats"); err != nil {
		return err
	}
	s, ok := r.st.stats[userID]
	if !ok {
		s = models.UserStats{ID: r.st.id(), UserID: userID}
	}
	s.Apply(d)
	r.st.stats[userID] = s
	return nil
}

func (r *memRepository) CreateUserNotification(n *models.Notification) error {
	if err := r.hit("CreateUserNotification"); err != nil {
		return err
	}
	n.ID = r.st.id()
	r.st.notifications = append(r.st.notifications, *n)
	return nil
}

func (r *memRepository) FindUser(id uint) (*models.User, error) {
	if err := r.hit("FindUser"); err != nil {
		return nil, err
	}
	u, ok := r.st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memRepository) CreateOutboxEvent(e *models.OutboxEvent) error {
	if err := r.hit("CreateOutboxEvent"); err != nil {
		return err
	}
	e.ID = r.st.id()
	r.st.outbox = append(r.st.outbox, *e)
	return nil
}

// writes lists the mutating calls recorded so far.
func (r *memRepository) writes() []string {
	var out []string
	for _, c := range *r.calls {
		switch c {
		case "FindTransactionByOrderID", "GetDelivery", "ListFailedDeliveries", "FindFoodItem",
			"ListPaymentRequestMessages", "FindEvent", "FindEventParticipant", "FindUser":
			continue
		}
		out = append(out, c)
	}
	return out
}

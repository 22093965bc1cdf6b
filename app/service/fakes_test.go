package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-coinwallet/app/entity"
	"github.com/vibast-solutions/ms-go-coinwallet/app/notifier"
	"github.com/vibast-solutions/ms-go-coinwallet/app/provider"
	"github.com/vibast-solutions/ms-go-coinwallet/app/repository"
	"github.com/vibast-solutions/ms-go-coinwallet/config"
)

type serviceIntentRepo struct {
	mu      sync.Mutex
	intents map[string]*entity.PaymentIntent
}

func newServiceIntentRepo() *serviceIntentRepo {
	return &serviceIntentRepo{intents: map[string]*entity.PaymentIntent{}}
}

func copyIntent(item *entity.PaymentIntent) *entity.PaymentIntent {
	copyItem := *item
	copyItem.Metadata = cloneMetadata(item.Metadata)
	return &copyItem
}

func (r *serviceIntentRepo) Create(_ context.Context, intent *entity.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.intents[intent.ID]; ok {
		return repository.ErrPaymentIntentAlreadyExists
	}
	r.intents[intent.ID] = copyIntent(intent)
	return nil
}

func (r *serviceIntentRepo) FindByID(_ context.Context, id string) (*entity.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.intents[id]
	if !ok {
		return nil, nil
	}
	return copyIntent(item), nil
}

func (r *serviceIntentRepo) TransitionStatus(_ context.Context, id string, to entity.PaymentStatus, creditStatus entity.CreditStatus, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.intents[id]
	if !ok || item.Status.IsTerminal() || item.Status == to {
		return false, nil
	}
	item.Status = to
	item.UpdatedAt = now
	if to == entity.PaymentStatusSucceeded {
		item.PaidAt = &now
		item.CreditStatus = creditStatus
	}
	return true, nil
}

func (r *serviceIntentRepo) Touch(_ context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.intents[id]; ok {
		item.UpdatedAt = now
	}
	return nil
}

func (r *serviceIntentRepo) UpdateCreditOutcome(_ context.Context, id string, status entity.CreditStatus, attempts int32, lastError *string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.intents[id]
	if !ok {
		return repository.ErrPaymentIntentNotFound
	}
	if item.CreditStatus == entity.CreditStatusDone {
		return nil
	}
	item.CreditStatus = status
	item.CreditAttempts = attempts
	item.CreditLastError = lastError
	item.UpdatedAt = now
	return nil
}

func (r *serviceIntentRepo) ListNonTerminal(_ context.Context, limit int32) ([]*entity.PaymentIntent, error) {
	return r.list(limit, func(item *entity.PaymentIntent) bool { return !item.Status.IsTerminal() }), nil
}

func (r *serviceIntentRepo) ListPendingCredits(_ context.Context, limit int32) ([]*entity.PaymentIntent, error) {
	return r.list(limit, func(item *entity.PaymentIntent) bool {
		return item.Status == entity.PaymentStatusSucceeded && item.CreditStatus == entity.CreditStatusPending
	}), nil
}

func (r *serviceIntentRepo) ListExpiredPending(_ context.Context, cutoff time.Time, limit int32) ([]*entity.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.PaymentIntent, 0)
	for _, item := range r.intents {
		if !item.Status.IsTerminal() && item.CreatedAt.Before(cutoff) {
			items = append(items, copyIntent(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > int(limit) {
		items = items[:limit]
	}
	return items, nil
}

func (r *serviceIntentRepo) list(limit int32, keep func(*entity.PaymentIntent) bool) []*entity.PaymentIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.PaymentIntent, 0)
	for _, item := range r.intents {
		if keep(item) {
			items = append(items, copyIntent(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].UpdatedAt.Before(items[j].UpdatedAt)
	})
	if limit > 0 && len(items) > int(limit) {
		items = items[:limit]
	}
	return items
}

func (r *serviceIntentRepo) put(intent *entity.PaymentIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents[intent.ID] = copyIntent(intent)
}

type serviceEventRepo struct {
	mu     sync.Mutex
	events []*entity.PaymentEvent
}

func (r *serviceEventRepo) Create(_ context.Context, event *entity.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *event
	r.events = append(r.events, &copyItem)
	return nil
}

func (r *serviceEventRepo) ListByPaymentIntentID(_ context.Context, id string) ([]*entity.PaymentEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.PaymentEvent, 0)
	for _, event := range r.events {
		if event.PaymentIntentID == id {
			items = append(items, event)
		}
	}
	return items, nil
}

func (r *serviceEventRepo) countType(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, event := range r.events {
		if event.EventType == eventType {
			n++
		}
	}
	return n
}

type serviceDeliveryRepo struct {
	mu         sync.Mutex
	deliveries []*entity.WebhookDelivery
}

func (r *serviceDeliveryRepo) Create(_ context.Context, delivery *entity.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *delivery
	r.deliveries = append(r.deliveries, &copyItem)
	return nil
}

func (r *serviceDeliveryRepo) last() *entity.WebhookDelivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.deliveries) == 0 {
		return nil
	}
	return r.deliveries[len(r.deliveries)-1]
}

// serviceLedger mirrors the ledger's unique (user, type, reference) index.
type serviceLedger struct {
	mu        sync.Mutex
	balances  map[string]int64
	refs      map[string]*entity.Transaction
	credits   int
	failNext  int
	failError error
}

func newServiceLedger() *serviceLedger {
	return &serviceLedger{balances: map[string]int64{}, refs: map[string]*entity.Transaction{}}
}

func ledgerRefKey(userID string, txnType entity.TransactionType, reference string) string {
	return userID + "|" + string(txnType) + "|" + reference
}

func (l *serviceLedger) OpenWallet(_ context.Context, userID string) (*entity.Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[userID]; !ok {
		l.balances[userID] = 0
	}
	return &entity.Wallet{ID: "wallet-" + userID, UserID: userID, Balance: l.balances[userID]}, nil
}

func (l *serviceLedger) Credit(_ context.Context, entry repository.LedgerEntry) (*entity.Transaction, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNext > 0 {
		l.failNext--
		return nil, 0, l.failError
	}
	if _, ok := l.balances[entry.UserID]; !ok {
		return nil, 0, repository.ErrWalletNotFound
	}
	txn := &entity.Transaction{
		ID:          "txn-" + strconv.Itoa(l.credits+1),
		UserID:      entry.UserID,
		WalletID:    "wallet-" + entry.UserID,
		Amount:      entry.Amount,
		Type:        entry.Type,
		Status:      entity.TransactionStatusCompleted,
		ReferenceID: entry.ReferenceID,
	}
	if entry.ReferenceID != nil {
		key := ledgerRefKey(entry.UserID, entry.Type, *entry.ReferenceID)
		if _, ok := l.refs[key]; ok {
			return nil, 0, repository.ErrDuplicateReference
		}
		l.refs[key] = txn
	}
	l.balances[entry.UserID] += entry.Amount
	l.credits++
	copyTxn := *txn
	return &copyTxn, l.balances[entry.UserID], nil
}

func (l *serviceLedger) FindTransactionByReference(_ context.Context, userID string, txnType entity.TransactionType, reference string) (*entity.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	txn, ok := l.refs[ledgerRefKey(userID, txnType, reference)]
	if !ok {
		return nil, nil
	}
	copyTxn := *txn
	return &copyTxn, nil
}

func (l *serviceLedger) balance(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID]
}

func (l *serviceLedger) creditCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credits
}

type fakeWebhookPayload struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	IntentID string `json:"intent_id"`
}

// fakeGateway accepts webhooks signed with "valid" and encodes them as
// fakeWebhookPayload JSON.
type fakeGateway struct {
	mu          sync.Mutex
	created     *provider.Intent
	createErr   error
	remote      map[string]*provider.Intent
	retrieveErr error
	cancelErr   error
	lastCreate  *provider.CreateIntentInput
	retrieves   int
	cancels     []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{remote: map[string]*provider.Intent{}}
}

func (g *fakeGateway) CreateIntent(_ context.Context, input *provider.CreateIntentInput) (*provider.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastCreate = input
	if g.createErr != nil {
		return nil, g.createErr
	}
	created := *g.created
	created.Amount = input.Amount
	created.Currency = input.Currency
	created.Metadata = input.Metadata
	g.remote[created.ID] = &created
	return &created, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, id string) (*provider.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.retrieves++
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	item, ok := g.remote[id]
	if !ok {
		return nil, provider.ErrIntentNotFound
	}
	copyItem := *item
	return &copyItem, nil
}

// CancelIntent refuses intents that already succeeded, like Stripe does.
func (g *fakeGateway) CancelIntent(_ context.Context, id string) (*provider.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels = append(g.cancels, id)
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	item, ok := g.remote[id]
	if !ok {
		return nil, provider.ErrIntentNotFound
	}
	if item.Status == provider.StatusSucceeded || item.Status == provider.StatusCanceled {
		return nil, errors.New("payment_intent_unexpected_state")
	}
	item.Status = provider.StatusCanceled
	copyItem := *item
	return &copyItem, nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*provider.WebhookEvent, error) {
	if signature != "valid" {
		return nil, provider.ErrInvalidSignature
	}
	var body fakeWebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, err
	}
	event := &provider.WebhookEvent{ID: body.ID, Type: body.Type}
	if body.IntentID != "" {
		event.Intent = &provider.Intent{ID: body.IntentID}
	}
	return event, nil
}

func (g *fakeGateway) setRemoteStatus(id, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if item, ok := g.remote[id]; ok {
		item.Status = status
		return
	}
	g.remote[id] = &provider.Intent{ID: id, Status: status}
}

func (g *fakeGateway) forget(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.remote, id)
}

type serviceCatalog struct {
	packs []*entity.CoinPack
}

func (c *serviceCatalog) ListActive(context.Context) ([]*entity.CoinPack, error) {
	return c.packs, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []notifier.PaymentSucceeded
	fails bool
}

func (n *recordingNotifier) NotifyPaymentSucceeded(_ context.Context, msg notifier.PaymentSucceeded) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	if n.fails {
		return errors.New("discord unavailable")
	}
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type memoryGuard struct {
	mu       sync.Mutex
	seen     map[string]bool
	released []string
}

func (g *memoryGuard) CheckAndMark(_ context.Context, eventID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	if g.seen[eventID] {
		return true, nil
	}
	g.seen[eventID] = true
	return false, nil
}

func (g *memoryGuard) Release(_ context.Context, eventID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, eventID)
	g.released = append(g.released, eventID)
	return nil
}

type serviceFixture struct {
	svc        *PaymentService
	intents    *serviceIntentRepo
	events     *serviceEventRepo
	deliveries *serviceDeliveryRepo
	ledger     *serviceLedger
	gateway    *fakeGateway
	notifier   *recordingNotifier
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		intents:    newServiceIntentRepo(),
		events:     &serviceEventRepo{},
		deliveries: &serviceDeliveryRepo{},
		ledger:     newServiceLedger(),
		gateway:    newFakeGateway(),
		notifier:   &recordingNotifier{},
	}
	f.svc = NewPaymentService(f.intents, f.events, f.deliveries, f.ledger, f.gateway, f.notifier, nil, config.PaymentsConfig{
		BaseURL:                 "https://pay.example.com",
		DefaultEmail:            "customer@example.com",
		DefaultCurrency:         "thb",
		CallbackSignatureSecret: "callback-secret",
		PollBatchSize:           50,
		CreditMaxAttempts:       3,
		CreditBatchSize:         100,
		PendingTimeout:          time.Hour,
	})
	f.svc.SetCoinPackCatalog(&serviceCatalog{packs: []*entity.CoinPack{
		{PackNumber: 1, Price: 100, Currency: "thb", TotalCoins: 50, IsActive: true},
		{PackNumber: 2, Price: 1000, Currency: "thb", TotalCoins: 2090, IsActive: true},
		{PackNumber: 3, Price: 10000, Currency: "thb", TotalCoins: 1100, IsActive: true},
	}})
	return f
}

// seedIntent stores a local shadow record and its provider twin.
func (f *serviceFixture) seedIntent(id string, status entity.PaymentStatus, remoteStatus string, metadata map[string]string) *entity.PaymentIntent {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	intent := &entity.PaymentIntent{
		ID:           id,
		Amount:       10000,
		Currency:     "thb",
		Status:       status,
		Metadata:     metadata,
		CreditStatus: entity.CreditStatusNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.intents.put(intent)
	f.gateway.setRemoteStatus(id, remoteStatus)
	return intent
}

func coinPackMetadata(userID string, coins string) map[string]string {
	return map[string]string{
		entity.MetadataUserID:      userID,
		entity.MetadataType:        entity.PaymentTypeCoinPack,
		entity.MetadataCoinsAmount: coins,
	}
}

func webhookBody(id, eventType, intentID string) []byte {
	body, _ := json.Marshal(fakeWebhookPayload{ID: id, Type: eventType, IntentID: intentID})
	return body
}

type createRequest struct {
	amount      int64
	currency    string
	description string
	email       string
	metadata    map[string]string
	callbackURL string
	cancelURL   string
}

func (r *createRequest) GetAmount() int64               { return r.amount }
func (r *createRequest) GetCurrency() string            { return r.currency }
func (r *createRequest) GetDescription() string         { return r.description }
func (r *createRequest) GetEmail() string               { return r.email }
func (r *createRequest) GetMetadata() map[string]string { return r.metadata }
func (r *createRequest) GetCallbackUrl() string         { return r.callbackURL }
func (r *createRequest) GetCancelUrl() string           { return r.cancelURL }

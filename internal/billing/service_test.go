package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servimatch/backend/internal/models"
	"github.com/servimatch/backend/internal/notify"
	"github.com/servimatch/backend/internal/platform"
	"github.com/servimatch/backend/internal/store/storetest"
	"github.com/servimatch/backend/internal/wallet"
)

// ---------------------------------------------------------------------------
// In-memory mocks. The click store enforces the same unique
// (offer, professional, day) constraint the database index does, so the
// claim-the-window logic is exercised for real under concurrency.
// ---------------------------------------------------------------------------

type clickKey struct {
	offerID        uuid.UUID
	professionalID uuid.UUID
	day            string
}

type mockClickStore struct {
	mu     sync.Mutex
	offers map[uuid.UUID]*ClickOffer
	clicks map[clickKey]*models.ClickEvent
}

func newMockClickStore(offers ...*ClickOffer) *mockClickStore {
	m := &mockClickStore{
		offers: make(map[uuid.UUID]*ClickOffer),
		clicks: make(map[clickKey]*models.ClickEvent),
	}
	for _, o := range offers {
		m.offers[o.ID] = o
	}
	return m
}

func key(offerID, professionalID uuid.UUID, day time.Time) clickKey {
	return clickKey{offerID: offerID, professionalID: professionalID, day: day.Format("2006-01-02")}
}

func (m *mockClickStore) GetOfferForClick(_ context.Context, offerID uuid.UUID) (*ClickOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[offerID]
	if !ok {
		return nil, ErrOfferNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockClickStore) FindClickEvent(_ context.Context, offerID, professionalID uuid.UUID, day time.Time) (*models.ClickEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.clicks[key(offerID, professionalID, day)]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *mockClickStore) InsertClickEvent(_ context.Context, _ pgx.Tx, e *models.ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(e.OfferID, e.ProfessionalID, e.ClickedOn)
	if _, exists := m.clicks[k]; exists {
		return ErrDuplicateClick
	}
	cp := *e
	cp.ClickedAt = time.Now()
	m.clicks[k] = &cp
	e.ClickedAt = cp.ClickedAt
	return nil
}

func (m *mockClickStore) LinkTransaction(_ context.Context, _ pgx.Tx, clickEventID, transactionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.clicks {
		if e.ID == clickEventID {
			id := transactionID
			e.TransactionID = &id
			return nil
		}
	}
	return fmt.Errorf("click event %s not found", clickEventID)
}

// --- Ledger mock ---

type mockLedger struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*models.Wallet // by professional
	entries []*models.Transaction
}

func newMockLedger() *mockLedger {
	return &mockLedger{wallets: make(map[uuid.UUID]*models.Wallet)}
}

func (m *mockLedger) seed(professionalID uuid.UUID, balance int64) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := &models.Wallet{ID: uuid.New(), ProfessionalID: professionalID, BalanceCents: balance}
	m.wallets[professionalID] = w
	return w.ID
}

func (m *mockLedger) GetOrCreate(_ context.Context, professionalID uuid.UUID) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[professionalID]
	if !ok {
		w = &models.Wallet{ID: uuid.New(), ProfessionalID: professionalID}
		m.wallets[professionalID] = w
	}
	cp := *w
	return &cp, nil
}

func (m *mockLedger) ApplyTransaction(_ context.Context, _ pgx.Tx, walletID uuid.UUID, txType string, amountCents int64, description string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var w *models.Wallet
	for _, cand := range m.wallets {
		if cand.ID == walletID {
			w = cand
			break
		}
	}
	if w == nil {
		return nil, wallet.ErrNotFound
	}
	before := w.BalanceCents
	switch txType {
	case models.TransactionDebit:
		if w.BalanceCents < amountCents {
			return nil, wallet.ErrInsufficientBalance
		}
		w.BalanceCents -= amountCents
		w.TotalSpentCents += amountCents
	default:
		w.BalanceCents += amountCents
	}
	t := &models.Transaction{
		ID:                 uuid.New(),
		WalletID:           walletID,
		Type:               txType,
		AmountCents:        amountCents,
		BalanceBeforeCents: before,
		BalanceAfterCents:  w.BalanceCents,
		Description:        description,
		CreatedAt:          time.Now(),
	}
	m.entries = append(m.entries, t)
	return t, nil
}

func (m *mockLedger) debitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Type == models.TransactionDebit {
			n++
		}
	}
	return n
}

// --- Notifier mock ---

type mockNotifier struct {
	mu    sync.Mutex
	types []string
}

func (m *mockNotifier) Notify(_ context.Context, _ uuid.UUID, notifType string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = append(m.types, notifType)
}

func (m *mockNotifier) count(notifType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.types {
		if t == notifType {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func testSettings() platform.Settings {
	s := platform.Defaults()
	s.LowBalanceThresholdCents = 50
	return s
}

func setup(balance int64) (Service, *mockClickStore, *mockLedger, *mockNotifier, *ClickOffer) {
	prof := uuid.New()
	offer := &ClickOffer{ID: uuid.New(), RequestID: uuid.New(), ProfessionalID: prof, Status: models.OfferStatusPending}
	st := newMockClickStore(offer)
	ledger := newMockLedger()
	ledger.seed(prof, balance)
	notifier := &mockNotifier{}
	svc := NewService(st, ledger, notifier, storetest.Runner)
	return svc, st, ledger, notifier, offer
}

func TestFirstClickCharges(t *testing.T) {
	svc, st, ledger, _, offer := setup(500)
	ctx := context.Background()
	client := uuid.New()

	res, err := svc.RecordClickAndCharge(ctx, offer.ID, client, models.ClickTypeProfileView, testSettings())
	if err != nil {
		t.Fatalf("RecordClickAndCharge: %v", err)
	}
	if !res.Charged || res.AlreadyCounted || res.ChargeSkipped {
		t.Errorf("first click: got %+v, want charged", res)
	}
	if res.NewBalanceCents != 490 {
		t.Errorf("new balance: got %d, want 490", res.NewBalanceCents)
	}
	if ledger.debitCount() != 1 {
		t.Errorf("debits: got %d, want 1", ledger.debitCount())
	}

	// Click event must be linked to the debit transaction.
	e, _ := st.FindClickEvent(ctx, offer.ID, offer.ProfessionalID, chargeWindow(time.Now()))
	if e == nil || e.TransactionID == nil {
		t.Fatal("click event should exist and be linked to a transaction")
	}
}

func TestSecondClickSameDayIsNoOp(t *testing.T) {
	svc, _, ledger, _, offer := setup(500)
	ctx := context.Background()
	client := uuid.New()

	first, err := svc.RecordClickAndCharge(ctx, offer.ID, client, models.ClickTypeProfileView, testSettings())
	if err != nil {
		t.Fatalf("first click: %v", err)
	}
	second, err := svc.RecordClickAndCharge(ctx, offer.ID, client, models.ClickTypeProfileView, testSettings())
	if err != nil {
		t.Fatalf("second click: %v", err)
	}

	if !first.Charged || first.NewBalanceCents != 490 {
		t.Errorf("first: %+v, want charged at 490", first)
	}
	if second.Charged || !second.AlreadyCounted {
		t.Errorf("second: %+v, want idempotent no-op", second)
	}
	if second.NewBalanceCents != 490 {
		t.Errorf("second balance: got %d, want 490 (no double debit)", second.NewBalanceCents)
	}
	if second.ClickEventID != first.ClickEventID {
		t.Error("second click should reference the existing event")
	}
	if ledger.debitCount() != 1 {
		t.Errorf("debits: got %d, want 1", ledger.debitCount())
	}
}

func TestInsufficientBalanceStillGrantsView(t *testing.T) {
	svc, st, ledger, notifier, offer := setup(0)
	ctx := context.Background()

	res, err := svc.RecordClickAndCharge(ctx, offer.ID, uuid.New(), models.ClickTypeProfileView, testSettings())
	if err != nil {
		t.Fatalf("RecordClickAndCharge: %v", err)
	}
	if res.Charged || !res.ChargeSkipped {
		t.Errorf("got %+v, want charge skipped", res)
	}
	if ledger.debitCount() != 0 {
		t.Errorf("debits: got %d, want 0", ledger.debitCount())
	}

	// The click event is persisted without a transaction link.
	e, _ := st.FindClickEvent(ctx, offer.ID, offer.ProfessionalID, chargeWindow(time.Now()))
	if e == nil {
		t.Fatal("click event should be persisted even when the charge is skipped")
	}
	if e.TransactionID != nil {
		t.Error("skipped charge must not link a transaction")
	}

	// The professional is warned, the client is not blocked.
	if notifier.count(notify.TypeLowBalance) != 1 {
		t.Errorf("low balance notifications: got %d, want 1", notifier.count(notify.TypeLowBalance))
	}
}

func TestLowBalanceWarningAfterCharge(t *testing.T) {
	svc, _, _, notifier, offer := setup(55)
	ctx := context.Background()

	// 55 - 10 = 45, below the 50-cent threshold.
	res, err := svc.RecordClickAndCharge(ctx, offer.ID, uuid.New(), models.ClickTypeProfileView, testSettings())
	if err != nil {
		t.Fatalf("RecordClickAndCharge: %v", err)
	}
	if !res.Charged || res.NewBalanceCents != 45 {
		t.Fatalf("got %+v, want charged at 45", res)
	}
	if notifier.count(notify.TypeLowBalance) != 1 {
		t.Errorf("low balance notifications: got %d, want 1", notifier.count(notify.TypeLowBalance))
	}
}

// The charge window is a UTC calendar day: the same (offer, professional)
// pair becomes billable again as soon as the day rolls over.
func TestNextDayChargesAgain(t *testing.T) {
	svc, _, ledger, _, offer := setup(500)
	ctx := context.Background()
	client := uuid.New()

	clock := time.Date(2026, time.August, 31, 23, 30, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return clock }

	first, err := svc.RecordClickAndCharge(ctx, offer.ID, client, models.ClickTypeProfileView, testSettings())
	if err != nil {
		t.Fatalf("first click: %v", err)
	}
	if !first.Charged || first.NewBalanceCents != 490 {
		t.Fatalf("first: %+v, want charged at 490", first)
	}

	// One hour later it is the next UTC day.
	clock = clock.Add(time.Hour)

	second, err := svc.RecordClickAndCharge(ctx, offer.ID, client, models.ClickTypeProfileView, testSettings())
	if err != nil {
		t.Fatalf("second click: %v", err)
	}
	if !second.Charged || second.AlreadyCounted {
		t.Errorf("second: %+v, want a fresh charge in the new window", second)
	}
	if second.NewBalanceCents != 480 {
		t.Errorf("balance after rollover: got %d, want 480", second.NewBalanceCents)
	}
	if second.ClickEventID == first.ClickEventID {
		t.Error("new window must produce a new click event")
	}
	if ledger.debitCount() != 2 {
		t.Errorf("debits: got %d, want 2", ledger.debitCount())
	}
}

func TestOfferNotFound(t *testing.T) {
	svc, _, _, _, _ := setup(500)
	_, err := svc.RecordClickAndCharge(context.Background(), uuid.New(), uuid.New(), models.ClickTypeProfileView, testSettings())
	if !errors.Is(err, ErrOfferNotFound) {
		t.Fatalf("expected ErrOfferNotFound, got: %v", err)
	}
}

// N simultaneous clicks for the same (offer, day) must produce exactly one
// charged event; the rest collapse onto it as idempotent no-ops.
func TestConcurrentClicksChargeOnce(t *testing.T) {
	svc, _, ledger, _, offer := setup(500)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	results := make(chan *ClickResult, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.RecordClickAndCharge(ctx, offer.ID, uuid.New(), models.ClickTypeProfileView, testSettings())
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	var charged, noops int
	for res := range results {
		if res.Charged {
			charged++
		}
		if res.AlreadyCounted {
			noops++
		}
	}
	if charged != 1 {
		t.Errorf("charged clicks: got %d, want exactly 1", charged)
	}
	if noops != n-1 {
		t.Errorf("idempotent no-ops: got %d, want %d", noops, n-1)
	}
	if ledger.debitCount() != 1 {
		t.Errorf("ledger debits: got %d, want 1", ledger.debitCount())
	}

	w, _ := ledger.GetOrCreate(ctx, offer.ProfessionalID)
	if w.BalanceCents != 490 {
		t.Errorf("final balance: got %d, want 490", w.BalanceCents)
	}
}

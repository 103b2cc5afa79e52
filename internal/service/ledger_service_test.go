package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeTx satisfies pgx.Tx; the in-memory repositories ignore it, it only
// tracks commit/rollback so tests can assert the transaction boundary.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(ctx context.Context) error          { t.committed = true; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}
func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                              { return nil }

type fakeDB struct {
	begun int
	txs   []*fakeTx
}

func (db *fakeDB) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	db.begun++
	tx := &fakeTx{}
	db.txs = append(db.txs, tx)
	return tx, nil
}

// memStore backs the mock repositories. Conflicts are injected on the
// account read, before anything is written, so a retried attempt never sees
// partial state.
type memStore struct {
	portfolios map[uuid.UUID]*domain.Portfolio
	positions  []*domain.Position
	trades     []*domain.Trade

	conflictsLeft int
	missNextGet   bool
	createErr     error
}

func newMemStore() *memStore {
	return &memStore{portfolios: make(map[uuid.UUID]*domain.Portfolio)}
}

type memPortfolioRepo struct{ store *memStore }

func (r *memPortfolioRepo) Create(ctx context.Context, p *domain.Portfolio) error {
	if r.store.createErr != nil {
		return r.store.createErr
	}
	if _, ok := r.store.portfolios[p.UserID]; ok {
		return domain.ErrAccountExists
	}
	r.store.portfolios[p.UserID] = p
	return nil
}

func (r *memPortfolioRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Portfolio, error) {
	if r.store.missNextGet {
		r.store.missNextGet = false
		return nil, domain.ErrAccountNotFound
	}
	p, ok := r.store.portfolios[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return p, nil
}

func (r *memPortfolioRepo) GetByUserIDTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Portfolio, error) {
	if r.store.conflictsLeft > 0 {
		r.store.conflictsLeft--
		return nil, fmt.Errorf("could not serialize access: %w", domain.ErrSerialization)
	}
	return r.GetByUserID(ctx, userID)
}

func (r *memPortfolioRepo) UpdateCash(ctx context.Context, tx pgx.Tx, userID uuid.UUID, cash decimal.Decimal) error {
	p, ok := r.store.portfolios[userID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	p.Cash = cash
	return nil
}

func (r *memPortfolioRepo) UpdateValuation(ctx context.Context, p *domain.Portfolio) error { return nil }

func (r *memPortfolioRepo) GetAll(ctx context.Context) ([]*domain.Portfolio, error) {
	var out []*domain.Portfolio
	for _, p := range r.store.portfolios {
		out = append(out, p)
	}
	return out, nil
}

type memPositionRepo struct{ store *memStore }

func (r *memPositionRepo) Save(ctx context.Context, tx pgx.Tx, p *domain.Position) error {
	r.store.positions = append(r.store.positions, p)
	return nil
}

func (r *memPositionRepo) GetOpenByAsset(ctx context.Context, tx pgx.Tx, userID uuid.UUID, asset string) (*domain.Position, error) {
	for _, p := range r.store.positions {
		if p.UserID == userID && p.Asset == asset && p.IsOpen() {
			return p, nil
		}
	}
	return nil, domain.ErrPositionNotFound
}

func (r *memPositionRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.Position) error {
	return nil // positions are shared pointers in the mem store
}

func (r *memPositionRepo) GetByUserID(ctx context.Context, userID uuid.UUID, openOnly bool) ([]*domain.Position, error) {
	var out []*domain.Position
	for _, p := range r.store.positions {
		if p.UserID == userID && (!openOnly || p.IsOpen()) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPositionRepo) GetAllOpen(ctx context.Context) ([]*domain.Position, error) {
	var out []*domain.Position
	for _, p := range r.store.positions {
		if p.IsOpen() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPositionRepo) UpdateMark(ctx context.Context, id uuid.UUID, mark decimal.Decimal) error {
	return nil
}

type memTradeRepo struct{ store *memStore }

func (r *memTradeRepo) Insert(ctx context.Context, tx pgx.Tx, t *domain.Trade) error {
	r.store.trades = append(r.store.trades, t)
	return nil
}

func (r *memTradeRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Trade, error) {
	var out []*domain.Trade
	for _, t := range r.store.trades {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memTradeRepo) GetRealizedPnLSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (r *memTradeRepo) GetWinRate(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func newTestLedger(startingCash string) (*LedgerService, *memStore, *fakeDB) {
	store := newMemStore()
	db := &fakeDB{}
	svc := NewLedgerService(db,
		&memPortfolioRepo{store: store},
		&memPositionRepo{store: store},
		&memTradeRepo{store: store},
		dec(startingCash),
	)
	return svc, store, db
}

func buyRequest(asset, size, price string) domain.TradeRequest {
	return domain.TradeRequest{Asset: asset, Action: domain.ActionBuy, Size: dec(size), Price: dec(price)}
}

func TestExecuteTradeScenario(t *testing.T) {
	// Start with 100000; buy 10 AAPL @ 150, then 10 more @ 170.
	svc, store, _ := newTestLedger("100000")
	userID := uuid.New()
	ctx := context.Background()

	if _, _, err := svc.InitializePortfolio(ctx, userID); err != nil {
		t.Fatalf("InitializePortfolio() error = %v", err)
	}

	receipt, err := svc.ExecuteTrade(ctx, userID, buyRequest("aapl", "10", "150"))
	if err != nil {
		t.Fatalf("ExecuteTrade() error = %v", err)
	}
	if receipt.Trade.Asset != "AAPL" {
		t.Errorf("asset = %s, want AAPL (normalized)", receipt.Trade.Asset)
	}
	if !receipt.Trade.Cost().Equal(dec("1500")) {
		t.Errorf("total = %s, want 1500", receipt.Trade.Cost())
	}
	if !receipt.Account.Cash.Equal(dec("98500")) {
		t.Errorf("cash = %s, want 98500", receipt.Account.Cash)
	}
	if !receipt.Position.Size.Equal(dec("10")) || !receipt.Position.AvgEntryPrice.Equal(dec("150")) {
		t.Errorf("position = {size %s, avg %s}, want {10, 150}", receipt.Position.Size, receipt.Position.AvgEntryPrice)
	}

	receipt, err = svc.ExecuteTrade(ctx, userID, buyRequest("AAPL", "10", "170"))
	if err != nil {
		t.Fatalf("ExecuteTrade() error = %v", err)
	}
	if !receipt.Account.Cash.Equal(dec("96800")) {
		t.Errorf("cash = %s, want 96800", receipt.Account.Cash)
	}
	if !receipt.Position.Size.Equal(dec("20")) || !receipt.Position.AvgEntryPrice.Equal(dec("160")) {
		t.Errorf("position = {size %s, avg %s}, want {20, 160}", receipt.Position.Size, receipt.Position.AvgEntryPrice)
	}

	if len(store.trades) != 2 {
		t.Errorf("trade log length = %d, want 2", len(store.trades))
	}
}

func TestExecuteTradeInsufficientFunds(t *testing.T) {
	svc, store, _ := newTestLedger("1000")
	userID := uuid.New()
	ctx := context.Background()

	if _, _, err := svc.InitializePortfolio(ctx, userID); err != nil {
		t.Fatalf("InitializePortfolio() error = %v", err)
	}

	_, err := svc.ExecuteTrade(ctx, userID, buyRequest("AAPL", "10", "150"))
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("ExecuteTrade() error = %v, want ErrInsufficientFunds", err)
	}

	// Nothing committed.
	if !store.portfolios[userID].Cash.Equal(dec("1000")) {
		t.Errorf("cash = %s, want unchanged 1000", store.portfolios[userID].Cash)
	}
	if len(store.trades) != 0 || len(store.positions) != 0 {
		t.Errorf("trades=%d positions=%d, want 0/0", len(store.trades), len(store.positions))
	}
}

func TestExecuteTradeValidation(t *testing.T) {
	svc, _, db := newTestLedger("100000")
	userID := uuid.New()
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.TradeRequest
	}{
		{"empty symbol", domain.TradeRequest{Asset: " ", Action: domain.ActionBuy, Size: dec("1"), Price: dec("1")}},
		{"unknown action", domain.TradeRequest{Asset: "AAPL", Action: "hold", Size: dec("1"), Price: dec("1")}},
		{"zero size", domain.TradeRequest{Asset: "AAPL", Action: domain.ActionBuy, Size: dec("0"), Price: dec("1")}},
		{"negative size", domain.TradeRequest{Asset: "AAPL", Action: domain.ActionBuy, Size: dec("-5"), Price: dec("1")}},
		{"zero price", domain.TradeRequest{Asset: "AAPL", Action: domain.ActionBuy, Size: dec("1"), Price: dec("0")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ExecuteTrade(ctx, userID, tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("ExecuteTrade() error = %v, want ErrValidation", err)
			}
		})
	}

	// Validation fails before any state is touched.
	if db.begun != 0 {
		t.Errorf("transactions begun = %d, want 0", db.begun)
	}
}

func TestExecuteTradeNoAccount(t *testing.T) {
	svc, _, _ := newTestLedger("100000")

	_, err := svc.ExecuteTrade(context.Background(), uuid.New(), buyRequest("AAPL", "1", "1"))
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("ExecuteTrade() error = %v, want ErrAccountNotFound", err)
	}
}

func TestExecuteTradeRetriesSerializationConflicts(t *testing.T) {
	svc, store, db := newTestLedger("100000")
	userID := uuid.New()
	ctx := context.Background()

	if _, _, err := svc.InitializePortfolio(ctx, userID); err != nil {
		t.Fatalf("InitializePortfolio() error = %v", err)
	}

	// Two conflicts, then success on the third attempt.
	store.conflictsLeft = 2
	receipt, err := svc.ExecuteTrade(ctx, userID, buyRequest("AAPL", "10", "150"))
	if err != nil {
		t.Fatalf("ExecuteTrade() error = %v, want retried success", err)
	}
	if db.begun != 3 {
		t.Errorf("transactions begun = %d, want 3", db.begun)
	}
	if !receipt.Account.Cash.Equal(dec("98500")) {
		t.Errorf("cash = %s, want 98500", receipt.Account.Cash)
	}
	if len(store.trades) != 1 {
		t.Errorf("trade log length = %d, want exactly 1", len(store.trades))
	}
}

func TestExecuteTradeExhaustsRetries(t *testing.T) {
	svc, store, _ := newTestLedger("100000")
	userID := uuid.New()
	ctx := context.Background()

	if _, _, err := svc.InitializePortfolio(ctx, userID); err != nil {
		t.Fatalf("InitializePortfolio() error = %v", err)
	}

	store.conflictsLeft = 10
	_, err := svc.ExecuteTrade(ctx, userID, buyRequest("AAPL", "10", "150"))
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("ExecuteTrade() error = %v, want ErrPersistence", err)
	}

	if !store.portfolios[userID].Cash.Equal(dec("100000")) {
		t.Errorf("cash = %s, want unchanged 100000", store.portfolios[userID].Cash)
	}
	if len(store.trades) != 0 {
		t.Errorf("trade log length = %d, want 0", len(store.trades))
	}
}

func TestExecuteTradeClosingSellRealizesPnL(t *testing.T) {
	svc, store, _ := newTestLedger("100000")
	userID := uuid.New()
	ctx := context.Background()

	if _, _, err := svc.InitializePortfolio(ctx, userID); err != nil {
		t.Fatalf("InitializePortfolio() error = %v", err)
	}

	if _, err := svc.ExecuteTrade(ctx, userID, buyRequest("AAPL", "10", "150")); err != nil {
		t.Fatalf("buy error = %v", err)
	}
	receipt, err := svc.ExecuteTrade(ctx, userID, domain.TradeRequest{
		Asset: "AAPL", Action: domain.ActionSell, Size: dec("10"), Price: dec("170"),
	})
	if err != nil {
		t.Fatalf("sell error = %v", err)
	}

	if receipt.Trade.PnL == nil || !receipt.Trade.PnL.Equal(dec("200")) {
		t.Errorf("trade PnL = %v, want 200", receipt.Trade.PnL)
	}
	if receipt.Position.IsOpen() {
		t.Error("position should be closed after the lot returned to zero")
	}
	// 100000 - 1500 + 1700
	if !receipt.Account.Cash.Equal(dec("100200")) {
		t.Errorf("cash = %s, want 100200", receipt.Account.Cash)
	}
	if len(store.trades) != 2 {
		t.Errorf("trade log length = %d, want 2", len(store.trades))
	}
}

func TestExecuteTradeFlipOpensFreshLot(t *testing.T) {
	svc, store, _ := newTestLedger("100000")
	userID := uuid.New()
	ctx := context.Background()

	if _, _, err := svc.InitializePortfolio(ctx, userID); err != nil {
		t.Fatalf("InitializePortfolio() error = %v", err)
	}

	if _, err := svc.ExecuteTrade(ctx, userID, buyRequest("AAPL", "5", "100")); err != nil {
		t.Fatalf("buy error = %v", err)
	}
	receipt, err := svc.ExecuteTrade(ctx, userID, domain.TradeRequest{
		Asset: "AAPL", Action: domain.ActionSell, Size: dec("8"), Price: dec("90"),
	})
	if err != nil {
		t.Fatalf("flip sell error = %v", err)
	}

	if receipt.Trade.PnL == nil || !receipt.Trade.PnL.Equal(dec("-50")) {
		t.Errorf("trade PnL = %v, want -50", receipt.Trade.PnL)
	}
	if !receipt.Position.Size.Equal(dec("-3")) || !receipt.Position.AvgEntryPrice.Equal(dec("90")) {
		t.Errorf("fresh lot = {size %s, avg %s}, want {-3, 90}", receipt.Position.Size, receipt.Position.AvgEntryPrice)
	}

	// Two position rows: the closed long and the fresh short.
	open, _ := (&memPositionRepo{store: store}).GetByUserID(ctx, userID, true)
	if len(store.positions) != 2 || len(open) != 1 {
		t.Errorf("positions total=%d open=%d, want 2/1", len(store.positions), len(open))
	}
}

func TestInitializePortfolioIdempotent(t *testing.T) {
	svc, _, _ := newTestLedger("100000")
	userID := uuid.New()
	ctx := context.Background()

	first, existed, err := svc.InitializePortfolio(ctx, userID)
	if err != nil || existed {
		t.Fatalf("first InitializePortfolio() = (existed=%v, err=%v), want fresh", existed, err)
	}
	if !first.Cash.Equal(dec("100000")) {
		t.Errorf("starting cash = %s, want 100000", first.Cash)
	}

	// Spend some cash, then initialize again; nothing resets.
	if _, err := svc.ExecuteTrade(ctx, userID, buyRequest("AAPL", "10", "150")); err != nil {
		t.Fatalf("ExecuteTrade() error = %v", err)
	}

	second, existed, err := svc.InitializePortfolio(ctx, userID)
	if err != nil || !existed {
		t.Fatalf("second InitializePortfolio() = (existed=%v, err=%v), want existing", existed, err)
	}
	if second.ID != first.ID {
		t.Errorf("account id changed across initializations: %s != %s", second.ID, first.ID)
	}
	if !second.Cash.Equal(dec("98500")) {
		t.Errorf("cash = %s, want 98500 (not reset)", second.Cash)
	}
}

func TestInitializePortfolioLosesCreateRace(t *testing.T) {
	svc, store, _ := newTestLedger("100000")
	userID := uuid.New()
	ctx := context.Background()

	// Another request creates the account between our read and our insert:
	// the read misses, the insert hits the unique constraint, and we return
	// the winner's row.
	winner := domain.NewPortfolio(userID, dec("100000"))
	store.portfolios[userID] = winner
	store.missNextGet = true
	store.createErr = domain.ErrAccountExists

	got, existed, err := svc.InitializePortfolio(ctx, userID)
	if err != nil {
		t.Fatalf("InitializePortfolio() error = %v", err)
	}
	if !existed || got.ID != winner.ID {
		t.Errorf("InitializePortfolio() = (id=%s, existed=%v), want winner row", got.ID, existed)
	}
}

package stable

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"stablecore/native/bank"
)

var (
	testCustody    = common.HexToAddress("0x0000000000000000000000000000000000000100")
	testStable     = common.HexToAddress("0x0000000000000000000000000000000000000101")
	testAssetWETH  = common.HexToAddress("0x0000000000000000000000000000000000000200")
	testAssetWBTC  = common.HexToAddress("0x0000000000000000000000000000000000000201")
	testUser       = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	testLiquidator = common.HexToAddress("0x0000000000000000000000000000000000000a02")
)

func wei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), precision)
}

// feedPrice renders a USD price in the 8-decimal feed scale.
func feedPrice(usd int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(usd), big.NewInt(100_000_000))
}

type mockState struct {
	positions map[common.Address]*Position
	putErr    error
}

func newMockState() *mockState {
	return &mockState{positions: make(map[common.Address]*Position)}
}

func (m *mockState) GetPosition(account common.Address) (*Position, error) {
	position, ok := m.positions[account]
	if !ok {
		return nil, nil
	}
	return position.Clone(), nil
}

func (m *mockState) PutPosition(position *Position) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.positions[position.Account] = position.Clone()
	return nil
}

type testFeed struct {
	mu       sync.Mutex
	decimals uint8
	round    RoundData
	err      error
}

func newTestFeed(decimals uint8, price *big.Int) *testFeed {
	feed := &testFeed{decimals: decimals}
	feed.set(price, time.Now(), true)
	return feed
}

func (f *testFeed) set(price *big.Int, at time.Time, complete bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.round = RoundData{UpdatedAt: at, Complete: complete}
	if price != nil {
		f.round.Price = new(big.Int).Set(price)
	}
}

func (f *testFeed) LatestRound() (RoundData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return RoundData{}, f.err
	}
	round := f.round
	if round.Price != nil {
		round.Price = new(big.Int).Set(round.Price)
	}
	return round, nil
}

func (f *testFeed) Decimals() uint8 { return f.decimals }

type recordingEmitter struct {
	events []Event
}

func (r *recordingEmitter) Emit(event Event) { r.events = append(r.events, event) }

func (r *recordingEmitter) last() Event {
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

type flakyTokens struct {
	TokenLedger
	failTransferFrom bool
	failTransfer     bool
	failMint         bool
	failBurn         bool
}

func (f *flakyTokens) TransferFrom(asset, from, to common.Address, amount *big.Int) bool {
	if f.failTransferFrom {
		return false
	}
	return f.TokenLedger.TransferFrom(asset, from, to, amount)
}

func (f *flakyTokens) Transfer(asset, to common.Address, amount *big.Int) bool {
	if f.failTransfer {
		return false
	}
	return f.TokenLedger.Transfer(asset, to, amount)
}

func (f *flakyTokens) Mint(asset, to common.Address, amount *big.Int) bool {
	if f.failMint {
		return false
	}
	return f.TokenLedger.Mint(asset, to, amount)
}

func (f *flakyTokens) Burn(asset common.Address, amount *big.Int) error {
	if f.failBurn {
		return errors.New("burn rejected")
	}
	return f.TokenLedger.Burn(asset, amount)
}

type testEnv struct {
	engine *Engine
	state  *mockState
	ledger *bank.Ledger
	tokens *flakyTokens
	feed   *testFeed
	events *recordingEmitter
}

// newTestEnv builds an engine with one collateral asset priced in USD and a
// bank-backed token ledger. The user starts with 100 units of collateral.
func newTestEnv(t *testing.T, priceUsd int64) *testEnv {
	t.Helper()
	feed := newTestFeed(8, feedPrice(priceUsd))
	ledger := bank.NewLedger()
	tokens := &flakyTokens{TokenLedger: ledger.Handle(testCustody)}
	engine, err := New(EngineConfig{
		CollateralAssets: []common.Address{testAssetWETH},
		PriceFeeds:       []PriceFeed{feed},
		Tokens:           tokens,
		StableAsset:      testStable,
		Custody:          testCustody,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	state := newMockState()
	engine.SetState(state)
	events := &recordingEmitter{}
	engine.SetEmitter(events)
	if err := ledger.Credit(testAssetWETH, testUser, wei(100)); err != nil {
		t.Fatalf("credit user: %v", err)
	}
	return &testEnv{engine: engine, state: state, ledger: ledger, tokens: tokens, feed: feed, events: events}
}

func TestNewRejectsMismatchedFeeds(t *testing.T) {
	_, err := New(EngineConfig{
		CollateralAssets: []common.Address{testAssetWETH, testAssetWBTC},
		PriceFeeds:       []PriceFeed{newTestFeed(8, feedPrice(2000))},
		Tokens:           bank.NewLedger().Handle(testCustody),
		StableAsset:      testStable,
		Custody:          testCustody,
	})
	if !errors.Is(err, ErrAssetConfigMismatch) {
		t.Fatalf("expected ErrAssetConfigMismatch, got %v", err)
	}
}

func TestDepositCollateralCreditsPosition(t *testing.T) {
	env := newTestEnv(t, 2000)

	if err := env.engine.DepositCollateral(testUser, testAssetWETH, wei(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	balance, err := env.engine.CollateralBalance(testUser, testAssetWETH)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(wei(10)) != 0 {
		t.Fatalf("unexpected collateral balance: %s", balance)
	}
	if custody := env.ledger.BalanceOf(testAssetWETH, testCustody); custody.Cmp(wei(10)) != 0 {
		t.Fatalf("unexpected custody balance: %s", custody)
	}
	if wallet := env.ledger.BalanceOf(testAssetWETH, testUser); wallet.Cmp(wei(90)) != 0 {
		t.Fatalf("unexpected wallet balance: %s", wallet)
	}
	event, ok := env.events.last().(CollateralDeposited)
	if !ok {
		t.Fatalf("expected CollateralDeposited event, got %T", env.events.last())
	}
	if event.Amount.Cmp(wei(10)) != 0 {
		t.Fatalf("unexpected event amount: %s", event.Amount)
	}
}

func TestDepositValidationFiresBeforeTransfer(t *testing.T) {
	env := newTestEnv(t, 2000)

	if err := env.engine.DepositCollateral(testUser, testAssetWETH, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := env.engine.DepositCollateral(testUser, testAssetWBTC, wei(1)); !errors.Is(err, ErrAssetNotAllowed) {
		t.Fatalf("expected ErrAssetNotAllowed, got %v", err)
	}
	// Neither rejection may reach the token ledger.
	if wallet := env.ledger.BalanceOf(testAssetWETH, testUser); wallet.Cmp(wei(100)) != 0 {
		t.Fatalf("wallet balance changed: %s", wallet)
	}
	if custody := env.ledger.BalanceOf(testAssetWETH, testCustody); custody.Sign() != 0 {
		t.Fatalf("custody balance changed: %s", custody)
	}
}

func TestDepositTransferFailureLeavesNoPosition(t *testing.T) {
	env := newTestEnv(t, 2000)
	env.tokens.failTransferFrom = true

	if err := env.engine.DepositCollateral(testUser, testAssetWETH, wei(10)); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
	if _, ok := env.state.positions[testUser]; ok {
		t.Fatal("position must not be created on transfer failure")
	}
}

func TestDepositAndMintStaysHealthy(t *testing.T) {
	env := newTestEnv(t, 2000)

	if err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(10), wei(100)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}

	factor, err := env.engine.HealthFactor(testUser)
	if err != nil {
		t.Fatalf("health factor: %v", err)
	}
	// 10 WETH at 2000 USD with a 50% threshold backs 10000 USD; debt is 100.
	if want := wei(100); factor.Cmp(want) != 0 {
		t.Fatalf("unexpected health factor: %s, want %s", factor, want)
	}
	if minted := env.ledger.BalanceOf(testStable, testUser); minted.Cmp(wei(100)) != 0 {
		t.Fatalf("unexpected stable balance: %s", minted)
	}
}

func TestMintBeyondThresholdFails(t *testing.T) {
	env := newTestEnv(t, 1000)

	if err := env.engine.DepositCollateral(testUser, testAssetWETH, wei(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// 10 collateral at 1000 USD backs at most 5000 stable units.
	if err := env.engine.MintStable(testUser, wei(6000)); !errors.Is(err, ErrHealthFactorBroken) {
		t.Fatalf("expected ErrHealthFactorBroken, got %v", err)
	}

	debt, err := env.engine.Debt(testUser)
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if debt.Sign() != 0 {
		t.Fatalf("debt must stay at pre-call value, got %s", debt)
	}
	if supply := env.ledger.Supply(testStable); supply.Sign() != 0 {
		t.Fatalf("no stable units may exist after a failed mint, got %s", supply)
	}
}

func TestMintFailurePersistsNothing(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateral(testUser, testAssetWETH, wei(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	env.tokens.failMint = true

	if err := env.engine.MintStable(testUser, wei(100)); !errors.Is(err, ErrMintFailed) {
		t.Fatalf("expected ErrMintFailed, got %v", err)
	}
	debt, _ := env.engine.Debt(testUser)
	if debt.Sign() != 0 {
		t.Fatalf("debt must stay zero, got %s", debt)
	}
}

func TestBurnReducesDebtAndSupply(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(10), wei(500)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}

	if err := env.engine.BurnStable(testUser, wei(200)); err != nil {
		t.Fatalf("burn: %v", err)
	}

	debt, _ := env.engine.Debt(testUser)
	if debt.Cmp(wei(300)) != 0 {
		t.Fatalf("unexpected debt: %s", debt)
	}
	if supply := env.ledger.Supply(testStable); supply.Cmp(wei(300)) != 0 {
		t.Fatalf("unexpected stable supply: %s", supply)
	}
}

func TestBurnBeyondDebtFails(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(10), wei(100)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}

	if err := env.engine.BurnStable(testUser, wei(200)); !errors.Is(err, ErrInsufficientDebt) {
		t.Fatalf("expected ErrInsufficientDebt, got %v", err)
	}
	if balance := env.ledger.BalanceOf(testStable, testUser); balance.Cmp(wei(100)) != 0 {
		t.Fatalf("stable balance must be untouched, got %s", balance)
	}
}

func TestBurnFailureCompensatesPull(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(10), wei(100)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}
	env.tokens.failBurn = true

	if err := env.engine.BurnStable(testUser, wei(50)); !errors.Is(err, ErrBurnFailed) {
		t.Fatalf("expected ErrBurnFailed, got %v", err)
	}
	if balance := env.ledger.BalanceOf(testStable, testUser); balance.Cmp(wei(100)) != 0 {
		t.Fatalf("pulled units must be returned, got %s", balance)
	}
	debt, _ := env.engine.Debt(testUser)
	if debt.Cmp(wei(100)) != 0 {
		t.Fatalf("debt must be untouched, got %s", debt)
	}
}

func TestRedeemCollateralChecksHealth(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(10), wei(9000)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}

	// Dropping to 1 WETH would leave 1000 USD of threshold-adjusted backing
	// against 9000 of debt.
	if err := env.engine.RedeemCollateral(testUser, testAssetWETH, wei(9)); !errors.Is(err, ErrHealthFactorBroken) {
		t.Fatalf("expected ErrHealthFactorBroken, got %v", err)
	}
	balance, _ := env.engine.CollateralBalance(testUser, testAssetWETH)
	if balance.Cmp(wei(10)) != 0 {
		t.Fatalf("collateral must be untouched, got %s", balance)
	}

	if err := env.engine.RedeemCollateral(testUser, testAssetWETH, wei(1)); err != nil {
		t.Fatalf("healthy redeem: %v", err)
	}
	if wallet := env.ledger.BalanceOf(testAssetWETH, testUser); wallet.Cmp(wei(91)) != 0 {
		t.Fatalf("unexpected wallet balance: %s", wallet)
	}
}

func TestRedeemBeyondBalanceFails(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateral(testUser, testAssetWETH, wei(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := env.engine.RedeemCollateral(testUser, testAssetWETH, wei(11)); !errors.Is(err, ErrInsufficientCollateral) {
		t.Fatalf("expected ErrInsufficientCollateral, got %v", err)
	}
}

func TestRedeemCollateralForStable(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(10), wei(1000)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}

	if err := env.engine.RedeemCollateralForStable(testUser, testAssetWETH, wei(5), wei(1000)); err != nil {
		t.Fatalf("redeem for stable: %v", err)
	}
	debt, _ := env.engine.Debt(testUser)
	if debt.Sign() != 0 {
		t.Fatalf("debt must be cleared, got %s", debt)
	}
	balance, _ := env.engine.CollateralBalance(testUser, testAssetWETH)
	if balance.Cmp(wei(5)) != 0 {
		t.Fatalf("unexpected remaining collateral: %s", balance)
	}
}

func TestDepositAndMintFailedMintLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t, 1000)

	err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(10), wei(6000))
	if !errors.Is(err, ErrHealthFactorBroken) {
		t.Fatalf("expected ErrHealthFactorBroken, got %v", err)
	}
	if wallet := env.ledger.BalanceOf(testAssetWETH, testUser); wallet.Cmp(wei(100)) != 0 {
		t.Fatalf("wallet must be untouched, got %s", wallet)
	}
	balance, _ := env.engine.CollateralBalance(testUser, testAssetWETH)
	if balance.Sign() != 0 {
		t.Fatalf("no position may be created, collateral %s", balance)
	}
}

func TestBurnAllowedWhileUnderwater(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(10), wei(9000)); err != nil {
		t.Fatalf("open position: %v", err)
	}
	// At 1620 the health factor sits at 0.9; repaying must still work.
	env.feed.set(feedPrice(1620), time.Now(), true)

	if err := env.engine.BurnStable(testUser, wei(100)); err != nil {
		t.Fatalf("underwater burn: %v", err)
	}
	debt, _ := env.engine.Debt(testUser)
	if debt.Cmp(wei(8900)) != 0 {
		t.Fatalf("unexpected debt: %s", debt)
	}
	if balance := env.ledger.BalanceOf(testStable, testUser); balance.Cmp(wei(8900)) != 0 {
		t.Fatalf("unexpected stable balance: %s", balance)
	}
	if supply := env.ledger.Supply(testStable); supply.Cmp(wei(8900)) != 0 {
		t.Fatalf("unexpected stable supply: %s", supply)
	}
}

func TestBurnWorksWithStaleOracle(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(10), wei(100)); err != nil {
		t.Fatalf("open position: %v", err)
	}
	env.feed.set(feedPrice(2000), time.Now().Add(-4*time.Hour), true)

	if err := env.engine.BurnStable(testUser, wei(50)); err != nil {
		t.Fatalf("burn must not read prices: %v", err)
	}
	debt, _ := env.engine.Debt(testUser)
	if debt.Cmp(wei(50)) != 0 {
		t.Fatalf("unexpected debt: %s", debt)
	}
}

func TestDepositAndMintStaleOracleLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(10), wei(100)); err != nil {
		t.Fatalf("open position: %v", err)
	}
	env.feed.set(feedPrice(2000), time.Now().Add(-4*time.Hour), true)
	emitted := len(env.events.events)

	err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(5), wei(100))
	if !errors.Is(err, ErrInvalidPriceFeed) {
		t.Fatalf("expected ErrInvalidPriceFeed, got %v", err)
	}
	balance, _ := env.engine.CollateralBalance(testUser, testAssetWETH)
	if balance.Cmp(wei(10)) != 0 {
		t.Fatalf("collateral must be untouched, got %s", balance)
	}
	if wallet := env.ledger.BalanceOf(testAssetWETH, testUser); wallet.Cmp(wei(90)) != 0 {
		t.Fatalf("wallet must be untouched, got %s", wallet)
	}
	if stable := env.ledger.BalanceOf(testStable, testUser); stable.Cmp(wei(100)) != 0 {
		t.Fatalf("stable balance must be untouched, got %s", stable)
	}
	if len(env.events.events) != emitted {
		t.Fatalf("failed composite must emit nothing, got %d new events", len(env.events.events)-emitted)
	}
}

func TestCompositeEmitsEventsOnlyAfterCommit(t *testing.T) {
	env := newTestEnv(t, 2000)

	if err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(10), wei(100)); err != nil {
		t.Fatalf("deposit and mint: %v", err)
	}
	if len(env.events.events) != 2 {
		t.Fatalf("expected two events, got %d", len(env.events.events))
	}
	if _, ok := env.events.events[0].(CollateralDeposited); !ok {
		t.Fatalf("expected CollateralDeposited first, got %T", env.events.events[0])
	}
	if _, ok := env.events.events[1].(StableMinted); !ok {
		t.Fatalf("expected StableMinted second, got %T", env.events.events[1])
	}
}

func TestDepositPersistFailureReturnsFunds(t *testing.T) {
	env := newTestEnv(t, 2000)
	env.state.putErr = errors.New("disk full")

	if err := env.engine.DepositCollateral(testUser, testAssetWETH, wei(10)); err == nil {
		t.Fatal("expected a storage error")
	}
	if wallet := env.ledger.BalanceOf(testAssetWETH, testUser); wallet.Cmp(wei(100)) != 0 {
		t.Fatalf("pulled funds must be returned, got %s", wallet)
	}
	if custody := env.ledger.BalanceOf(testAssetWETH, testCustody); custody.Sign() != 0 {
		t.Fatalf("custody must hold nothing, got %s", custody)
	}
}

func TestRedeemPersistFailureReversesPayout(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateral(testUser, testAssetWETH, wei(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	env.state.putErr = errors.New("disk full")

	if err := env.engine.RedeemCollateral(testUser, testAssetWETH, wei(5)); err == nil {
		t.Fatal("expected a storage error")
	}
	if wallet := env.ledger.BalanceOf(testAssetWETH, testUser); wallet.Cmp(wei(90)) != 0 {
		t.Fatalf("payout must be reversed, wallet %s", wallet)
	}
	if custody := env.ledger.BalanceOf(testAssetWETH, testCustody); custody.Cmp(wei(10)) != 0 {
		t.Fatalf("custody must keep the collateral, got %s", custody)
	}
	balance, _ := env.engine.CollateralBalance(testUser, testAssetWETH)
	if balance.Cmp(wei(10)) != 0 {
		t.Fatalf("stored position must be unchanged, got %s", balance)
	}
}

func TestMintPersistFailureClawsBack(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateral(testUser, testAssetWETH, wei(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	env.state.putErr = errors.New("disk full")

	if err := env.engine.MintStable(testUser, wei(100)); err == nil {
		t.Fatal("expected a storage error")
	}
	if balance := env.ledger.BalanceOf(testStable, testUser); balance.Sign() != 0 {
		t.Fatalf("issued units must be clawed back, got %s", balance)
	}
	if supply := env.ledger.Supply(testStable); supply.Sign() != 0 {
		t.Fatalf("supply must be restored, got %s", supply)
	}
	debt, _ := env.engine.Debt(testUser)
	if debt.Sign() != 0 {
		t.Fatalf("stored debt must be unchanged, got %s", debt)
	}
}

func TestBurnPersistFailureReissuesUnits(t *testing.T) {
	env := newTestEnv(t, 2000)
	if err := env.engine.DepositCollateralAndMintStable(testUser, testAssetWETH, wei(10), wei(100)); err != nil {
		t.Fatalf("open position: %v", err)
	}
	env.state.putErr = errors.New("disk full")

	if err := env.engine.BurnStable(testUser, wei(50)); err == nil {
		t.Fatal("expected a storage error")
	}
	if balance := env.ledger.BalanceOf(testStable, testUser); balance.Cmp(wei(100)) != 0 {
		t.Fatalf("burned units must be re-issued, got %s", balance)
	}
	debt, _ := env.engine.Debt(testUser)
	if debt.Cmp(wei(100)) != 0 {
		t.Fatalf("stored debt must be unchanged, got %s", debt)
	}
}

type stubPauseView struct {
	paused bool
}

func (s stubPauseView) IsPaused(string) bool { return s.paused }

func TestPauseGuardBlocksMutations(t *testing.T) {
	env := newTestEnv(t, 2000)
	env.engine.SetPauses(stubPauseView{paused: true})

	if err := env.engine.DepositCollateral(testUser, testAssetWETH, wei(10)); !errors.Is(err, ErrEnginePaused) {
		t.Fatalf("expected ErrEnginePaused, got %v", err)
	}
	if wallet := env.ledger.BalanceOf(testAssetWETH, testUser); wallet.Cmp(wei(100)) != 0 {
		t.Fatalf("wallet balance changed while paused: %s", wallet)
	}
}

type reentrantTokens struct {
	TokenLedger
	engine *Engine
	inner  []error
}

func (r *reentrantTokens) TransferFrom(asset, from, to common.Address, amount *big.Int) bool {
	r.inner = append(r.inner, r.engine.MintStable(from, big.NewInt(1)))
	return r.TokenLedger.TransferFrom(asset, from, to, amount)
}

func TestNestedEntryIsRejected(t *testing.T) {
	env := newTestEnv(t, 2000)
	reentrant := &reentrantTokens{TokenLedger: env.ledger.Handle(testCustody), engine: env.engine}
	env.tokens.TokenLedger = reentrant

	if err := env.engine.DepositCollateral(testUser, testAssetWETH, wei(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if len(reentrant.inner) != 1 {
		t.Fatalf("expected one nested call, got %d", len(reentrant.inner))
	}
	if !errors.Is(reentrant.inner[0], ErrReentrantCall) {
		t.Fatalf("expected ErrReentrantCall from nested entry, got %v", reentrant.inner[0])
	}
}

package ledger

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"
)

type balancePoint struct {
	at    int64
	value *uint256.Int
}

type allowKey struct {
	owner   [20]byte
	spender [20]byte
	symbol  string
}

type collection struct {
	tag      byte
	holdings map[[20]byte][]balancePoint
	minted   map[uint64][20]byte
}

type purchase struct {
	addr   [20]byte
	at     int64
	count  uint64
	amount *uint256.Int
}

// Memory implements TokenLedger, NFTLedger and SpendLedger in process.
// Balances and holdings keep an append-only history so snapshot-dated
// eligibility queries answer "as of" any instant.
type Memory struct {
	mu          sync.RWMutex
	balances    map[string]map[[20]byte][]balancePoint
	allowances  map[allowKey]*uint256.Int
	collections map[string]*collection
	purchases   map[string][]purchase
	nowFn       func() int64
}

// NewMemory constructs an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		balances:    make(map[string]map[[20]byte][]balancePoint),
		allowances:  make(map[allowKey]*uint256.Int),
		collections: make(map[string]*collection),
		purchases:   make(map[string][]purchase),
		nowFn:       func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the clock used to stamp balance history. Passing nil
// restores the wall clock.
func (m *Memory) SetNowFunc(now func() int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now == nil {
		m.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	m.nowFn = now
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func toUint256(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrAmountInvalid
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, fmt.Errorf("%w: overflow", ErrAmountInvalid)
	}
	return value, nil
}

func valueAsOf(points []balancePoint, at int64) *uint256.Int {
	if len(points) == 0 {
		return uint256.NewInt(0)
	}
	if at == 0 {
		return points[len(points)-1].value.Clone()
	}
	idx := sort.Search(len(points), func(i int) bool { return points[i].at > at })
	if idx == 0 {
		return uint256.NewInt(0)
	}
	return points[idx-1].value.Clone()
}

func appendPoint(points []balancePoint, at int64, value *uint256.Int) []balancePoint {
	points = append(points, balancePoint{at: at, value: value})
	if len(points) > 1 && points[len(points)-2].at > at {
		sort.SliceStable(points, func(i, j int) bool { return points[i].at < points[j].at })
	}
	return points
}

// --- TokenLedger ---

// SetBalance records addr's balance of symbol as of the given instant
// (0 = now). Intended for seeding and tests.
func (m *Memory) SetBalance(addr [20]byte, symbol string, amount *big.Int, at int64) error {
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	symbol = normalizeSymbol(symbol)
	m.mu.Lock()
	defer m.mu.Unlock()
	if at == 0 {
		at = m.nowFn()
	}
	holders := m.balances[symbol]
	if holders == nil {
		holders = make(map[[20]byte][]balancePoint)
		m.balances[symbol] = holders
	}
	holders[addr] = appendPoint(holders[addr], at, value)
	return nil
}

func (m *Memory) BalanceAt(addr [20]byte, symbol string, at int64) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	holders := m.balances[normalizeSymbol(symbol)]
	if holders == nil {
		return big.NewInt(0), nil
	}
	return valueAsOf(holders[addr], at).ToBig(), nil
}

// Approve sets spender's allowance over owner's balance of symbol.
func (m *Memory) Approve(owner, spender [20]byte, symbol string, amount *big.Int) error {
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[allowKey{owner: owner, spender: spender, symbol: normalizeSymbol(symbol)}] = value
	return nil
}

func (m *Memory) Allowance(owner, spender [20]byte, symbol string) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value := m.allowances[allowKey{owner: owner, spender: spender, symbol: normalizeSymbol(symbol)}]
	if value == nil {
		return big.NewInt(0), nil
	}
	return value.ToBig(), nil
}

func (m *Memory) Transfer(from, to [20]byte, symbol string, amount *big.Int) error {
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	symbol = normalizeSymbol(symbol)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(from, to, symbol, value)
}

func (m *Memory) TransferFrom(owner, spender, to [20]byte, symbol string, amount *big.Int) error {
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	symbol = normalizeSymbol(symbol)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := allowKey{owner: owner, spender: spender, symbol: symbol}
	allowance := m.allowances[key]
	if allowance == nil || allowance.Cmp(value) < 0 {
		return ErrInsufficientAllowance
	}
	if err := m.move(owner, to, symbol, value); err != nil {
		return err
	}
	m.allowances[key] = new(uint256.Int).Sub(allowance, value)
	return nil
}

// move debits from and credits to; callers hold the write lock.
func (m *Memory) move(from, to [20]byte, symbol string, value *uint256.Int) error {
	holders := m.balances[symbol]
	if holders == nil {
		holders = make(map[[20]byte][]balancePoint)
		m.balances[symbol] = holders
	}
	now := m.nowFn()
	fromBalance := valueAsOf(holders[from], 0)
	if fromBalance.Cmp(value) < 0 {
		return ErrInsufficientBalance
	}
	toBalance := valueAsOf(holders[to], 0)
	holders[from] = appendPoint(holders[from], now, new(uint256.Int).Sub(fromBalance, value))
	holders[to] = appendPoint(holders[to], now, new(uint256.Int).Add(toBalance, value))
	return nil
}

// --- NFTLedger ---

// RegisterCollection creates a collection with the given listing tag byte.
// Re-registering updates the tag without touching holdings.
func (m *Memory) RegisterCollection(name string, tag byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.collections[name]; ok {
		existing.tag = tag
		return
	}
	m.collections[name] = &collection{
		tag:      tag,
		holdings: make(map[[20]byte][]balancePoint),
		minted:   make(map[uint64][20]byte),
	}
}

// SetHoldings records addr's unit count in the collection as of the given
// instant (0 = now). Intended for seeding and tests.
func (m *Memory) SetHoldings(addr [20]byte, name string, count uint64, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	if at == 0 {
		at = m.nowFn()
	}
	col.holdings[addr] = appendPoint(col.holdings[addr], at, uint256.NewInt(count))
	return nil
}

func (m *Memory) HoldingsAt(addr [20]byte, name string, at int64) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return valueAsOf(col.holdings[addr], at).Uint64(), nil
}

func (m *Memory) CollectionTag(name string) (byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return col.tag, nil
}

func (m *Memory) Mint(name string, to [20]byte, tokenID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	if _, taken := col.minted[tokenID]; taken {
		return fmt.Errorf("%w: %s #%d", ErrTokenMinted, name, tokenID)
	}
	col.minted[tokenID] = to
	current := valueAsOf(col.holdings[to], 0)
	col.holdings[to] = appendPoint(col.holdings[to], m.nowFn(), new(uint256.Int).AddUint64(current, 1))
	return nil
}

// OwnerOf reports the minted owner of a token ID, if any.
func (m *Memory) OwnerOf(name string, tokenID uint64) ([20]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.collections[name]
	if !ok {
		return [20]byte{}, false
	}
	owner, ok := col.minted[tokenID]
	return owner, ok
}

// --- SpendLedger ---

// RecordPurchase accrues an externally-observed purchase for addr in the
// named market (0 = now). The claim engines only ever read these.
func (m *Memory) RecordPurchase(addr [20]byte, market string, count uint64, amount *big.Int, at int64) error {
	value, err := toUint256(amount)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if at == 0 {
		at = m.nowFn()
	}
	m.purchases[market] = append(m.purchases[market], purchase{addr: addr, at: at, count: count, amount: value})
	return nil
}

func (m *Memory) PurchasesIn(addr [20]byte, market string, from, to int64) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total uint64
	for _, p := range m.purchases[market] {
		if p.addr != addr || !inWindow(p.at, from, to) {
			continue
		}
		total += p.count
	}
	return total, nil
}

func (m *Memory) SpendIn(addr [20]byte, market string, from, to int64) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := uint256.NewInt(0)
	for _, p := range m.purchases[market] {
		if p.addr != addr || !inWindow(p.at, from, to) {
			continue
		}
		total = new(uint256.Int).Add(total, p.amount)
	}
	return total.ToBig(), nil
}

func inWindow(at, from, to int64) bool {
	if at < from {
		return false
	}
	if to != 0 && at > to {
		return false
	}
	return true
}

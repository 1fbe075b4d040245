package wallet

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// Coin is an amount withdrawn from a balance and not yet deposited anywhere.
// Only Ledger.Withdraw creates a non-empty Coin.
type Coin struct {
	value int64
}

// Value returns the amount the coin carries.
func (c *Coin) Value() int64 {
	if c == nil {
		return 0
	}
	return c.value
}

// Drain empties the coin and returns what it carried.
func (c *Coin) Drain() int64 {
	if c == nil {
		return 0
	}
	v := c.value
	c.value = 0
	return v
}

// Wallet is the balance of a single address.
type Wallet struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

// Ledger tracks spendable balances per address.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]int64)}
}

// Balance returns the spendable balance of addr.
func (l *Ledger) Balance(addr string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr]
}

// Credit adds amount to addr.
func (l *Ledger) Credit(addr string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	l.balances[addr] += amount
	l.mu.Unlock()
	return nil
}

// Withdraw moves amount out of addr's balance into a Coin.
func (l *Ledger) Withdraw(addr string, amount int64) (*Coin, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[addr] < amount {
		return nil, ErrInsufficientFunds
	}
	l.balances[addr] -= amount
	return &Coin{value: amount}, nil
}

// Deposit drains c into addr's balance.
func (l *Ledger) Deposit(addr string, c *Coin) {
	v := c.Drain()
	if v == 0 {
		return
	}
	l.mu.Lock()
	l.balances[addr] += v
	l.mu.Unlock()
}

// Wallets lists every non-zero balance ordered by address.
func (l *Ledger) Wallets() []Wallet {
	l.mu.Lock()
	out := make([]Wallet, 0, len(l.balances))
	for addr, bal := range l.balances {
		if bal != 0 {
			out = append(out, Wallet{Address: addr, Balance: bal})
		}
	}
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Restore replaces all balances.
func (l *Ledger) Restore(balances map[string]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = make(map[string]int64, len(balances))
	for addr, bal := range balances {
		l.balances[addr] = bal
	}
}

package wallet

import (
	"errors"
	"sync"
	"testing"
)

func TestCreditAndWithdraw(t *testing.T) {
	l := NewLedger()
	if err := l.Credit("0xa", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("Credit(0) err = %v", err)
	}
	if err := l.Credit("0xa", 100); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if _, err := l.Withdraw("0xa", 101); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("overdraw err = %v", err)
	}
	if _, err := l.Withdraw("0xa", -1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative withdraw err = %v", err)
	}
	c, err := l.Withdraw("0xa", 60)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if c.Value() != 60 || l.Balance("0xa") != 40 {
		t.Fatalf("coin=%d balance=%d", c.Value(), l.Balance("0xa"))
	}

	l.Deposit("0xb", c)
	if c.Value() != 0 {
		t.Fatalf("coin not drained: %d", c.Value())
	}
	if l.Balance("0xb") != 60 {
		t.Fatalf("balance b = %d", l.Balance("0xb"))
	}
	// depositing a drained coin is a no-op
	l.Deposit("0xb", c)
	l.Deposit("0xb", nil)
	if l.Balance("0xb") != 60 {
		t.Fatalf("balance b = %d after empty deposits", l.Balance("0xb"))
	}
}

func TestWalletsSkipsEmpty(t *testing.T) {
	l := NewLedger()
	_ = l.Credit("0xc", 5)
	_ = l.Credit("0xa", 7)
	_ = l.Credit("0xb", 3)
	c, _ := l.Withdraw("0xb", 3)
	_ = c

	ws := l.Wallets()
	if len(ws) != 2 {
		t.Fatalf("got %d wallets, want 2: %+v", len(ws), ws)
	}
	if ws[0].Address != "0xa" || ws[1].Address != "0xc" {
		t.Fatalf("not ordered by address: %+v", ws)
	}
}

func TestRestoreReplacesBalances(t *testing.T) {
	l := NewLedger()
	_ = l.Credit("0xold", 9)
	in := map[string]int64{"0xa": 10}
	l.Restore(in)
	in["0xa"] = 99

	if l.Balance("0xold") != 0 || l.Balance("0xa") != 10 {
		t.Fatalf("restore did not replace or copy balances: old=%d a=%d", l.Balance("0xold"), l.Balance("0xa"))
	}
}

func TestConcurrentWithdrawNeverOverdraws(t *testing.T) {
	l := NewLedger()
	_ = l.Credit("0xa", 1000)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got int64
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := l.Withdraw("0xa", 30)
			if err != nil {
				return
			}
			mu.Lock()
			got += c.Value()
			mu.Unlock()
		}()
	}
	wg.Wait()

	if got+l.Balance("0xa") != 1000 {
		t.Fatalf("funds not conserved: withdrawn=%d left=%d", got, l.Balance("0xa"))
	}
	if l.Balance("0xa") < 0 {
		t.Fatalf("negative balance %d", l.Balance("0xa"))
	}
}

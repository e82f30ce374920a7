package mocks

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/textileio/slasher/index/balance"
	"github.com/textileio/slasher/ledger"
)

var _ balance.Source = (*PagedSource)(nil)

// PagedSource provides a mock balance.Source serving fixed pages.
type PagedSource struct {
	lock sync.Mutex

	// Pages are served in order. Cursors are the page positions.
	Pages []balance.Page
	// FailAt makes the Nth request (1-based) fail, when non-zero.
	FailAt int
	// FailTimes is how many consecutive requests fail starting at FailAt.
	// Zero means one.
	FailTimes int

	Requests   int
	Cursors    []string
	Thresholds []*big.Int
}

// NewPagedSource returns a PagedSource serving pages with the provided
// sizes. Every page but the last one reports a next page.
func NewPagedSource(sizes ...int) *PagedSource {
	s := &PagedSource{}
	n := 0
	for i, size := range sizes {
		p := balance.Page{HasNextPage: i < len(sizes)-1}
		for j := 0; j < size; j++ {
			n++
			p.Accounts = append(p.Accounts, Account(fmt.Sprintf("acc-%d", n), int64(1000+n)))
		}
		if p.HasNextPage {
			p.EndCursor = strconv.Itoa(i + 1)
		}
		s.Pages = append(s.Pages, p)
	}
	return s
}

// Balances implements Balances.
func (s *PagedSource) Balances(ctx context.Context, threshold *big.Int, after string) (balance.Page, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Requests++
	s.Cursors = append(s.Cursors, after)
	s.Thresholds = append(s.Thresholds, new(big.Int).Set(threshold))

	if s.FailAt > 0 {
		times := s.FailTimes
		if times == 0 {
			times = 1
		}
		if s.Requests >= s.FailAt && s.Requests < s.FailAt+times {
			return balance.Page{}, fmt.Errorf("connection reset by peer")
		}
	}

	idx := 0
	if after != "" {
		var err error
		idx, err = strconv.Atoi(after)
		if err != nil {
			return balance.Page{}, fmt.Errorf("invalid cursor %q", after)
		}
	}
	if idx >= len(s.Pages) {
		return balance.Page{}, nil
	}
	return s.Pages[idx], nil
}

// Account returns an AccountBalance with free == total.
func Account(id string, free int64) balance.AccountBalance {
	return balance.AccountBalance{
		ID:       id,
		Total:    big.NewInt(free),
		Free:     big.NewInt(free),
		Reserved: big.NewInt(0),
	}
}

var _ ledger.Module = (*LedgerMock)(nil)

// Call is a recorded ForceTransfer call.
type Call struct {
	From   string
	Amount *big.Int
	DryRun bool
}

// LedgerMock provides a mock ledger.Module that records calls. Real
// transfers are applied to Committed, dry runs never are.
type LedgerMock struct {
	lock sync.Mutex

	Signer string
	// FailOn makes the transfer from this address fail.
	FailOn string
	// DryRunNotOk makes dry runs report a failed dispatch.
	DryRunNotOk bool

	Calls     []Call
	Committed map[string]*big.Int
}

// NewLedgerMock returns a LedgerMock with the provided signer address.
func NewLedgerMock(signer string) *LedgerMock {
	return &LedgerMock{
		Signer:    signer,
		Committed: make(map[string]*big.Int),
	}
}

// ForceTransfer implements ForceTransfer.
func (lm *LedgerMock) ForceTransfer(ctx context.Context, from string, amount *big.Int, dryRun bool) (ledger.Outcome, error) {
	lm.lock.Lock()
	defer lm.lock.Unlock()
	lm.Calls = append(lm.Calls, Call{From: from, Amount: new(big.Int).Set(amount), DryRun: dryRun})

	if from == lm.FailOn {
		return ledger.Outcome{}, &ledger.TransferError{Address: from, Amount: amount, Err: fmt.Errorf("1010: invalid transaction")}
	}
	o := ledger.Outcome{
		From:   from,
		To:     lm.Signer,
		Amount: new(big.Int).Set(amount),
		DryRun: dryRun,
		Ok:     true,
	}
	if dryRun {
		o.Ok = !lm.DryRunNotOk
		return o, nil
	}
	o.Hash = fmt.Sprintf("0x%064x", len(lm.Calls))
	prev, ok := lm.Committed[from]
	if !ok {
		prev = big.NewInt(0)
	}
	lm.Committed[from] = new(big.Int).Add(prev, amount)
	return o, nil
}

// Beneficiary implements Beneficiary.
func (lm *LedgerMock) Beneficiary() string {
	return lm.Signer
}

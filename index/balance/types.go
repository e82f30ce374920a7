package balance

import (
	"context"
	"math/big"
)

// AccountBalance is an account reported by the balances index. All amounts
// are in chain minor units.
type AccountBalance struct {
	ID       string
	Total    *big.Int
	Free     *big.Int
	Reserved *big.Int
}

// Page is a single page of accounts returned by a Source.
type Page struct {
	Accounts    []AccountBalance
	TotalCount  int
	EndCursor   string
	HasNextPage bool
}

// Source provides paginated access to accounts whose free balance is
// strictly greater than a threshold. An empty after cursor requests the
// first page.
type Source interface {
	Balances(ctx context.Context, threshold *big.Int, after string) (Page, error)
}

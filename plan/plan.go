package plan

import (
	"math/big"

	logging "github.com/ipfs/go-log/v2"
	"github.com/shopspring/decimal"
	"github.com/textileio/slasher/index/balance"
	"github.com/textileio/slasher/util"
	"github.com/textileio/slasher/whitelist"
)

var log = logging.Logger("plan")

// Transfer is the amount, in minor units, to move out of an address.
type Transfer struct {
	Address string
	Amount  *big.Int
}

// Plan maps addresses to the amount to slash from them, keeping insertion
// order. Every amount is strictly positive.
type Plan struct {
	transfers []Transfer
	index     map[string]int
}

// New returns an empty Plan.
func New() *Plan {
	return &Plan{index: make(map[string]int)}
}

// Set records amount for addr. Setting an existing address replaces its
// amount and keeps its original position. Non-positive amounts are ignored.
func (p *Plan) Set(addr string, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	a := new(big.Int).Set(amount)
	if i, ok := p.index[addr]; ok {
		p.transfers[i].Amount = a
		return
	}
	p.index[addr] = len(p.transfers)
	p.transfers = append(p.transfers, Transfer{Address: addr, Amount: a})
}

// Get returns the amount planned for addr.
func (p *Plan) Get(addr string) (*big.Int, bool) {
	i, ok := p.index[addr]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(p.transfers[i].Amount), true
}

// Len returns the number of planned transfers.
func (p *Plan) Len() int {
	return len(p.transfers)
}

// Transfers returns a copy of the planned transfers in insertion order.
func (p *Plan) Transfers() []Transfer {
	ret := make([]Transfer, len(p.transfers))
	for i, t := range p.transfers {
		ret[i] = Transfer{Address: t.Address, Amount: new(big.Int).Set(t.Amount)}
	}
	return ret
}

// Total returns the sum of all planned amounts.
func (p *Plan) Total() *big.Int {
	total := big.NewInt(0)
	for _, t := range p.transfers {
		total.Add(total, t.Amount)
	}
	return total
}

// Only returns a new Plan containing at most the entry for addr.
func (p *Plan) Only(addr string) *Plan {
	np := New()
	if amount, ok := p.Get(addr); ok {
		np.Set(addr, amount)
	}
	return np
}

// Compute builds the slash plan for accounts. Accounts with a whitelist
// entry lacking a max balance are never slashed. The rest are slashed down
// to their whitelist max balance, or to target if they aren't whitelisted.
// Caps are major units scaled by 10^decimals; an account whose free balance
// is at or below its cap is skipped.
func Compute(wl []whitelist.Entry, accounts []balance.AccountBalance, decimals uint32, target decimal.Decimal) *Plan {
	byAddr := make(map[string]whitelist.Entry, len(wl))
	for _, e := range wl {
		// First entry for an address wins.
		if _, ok := byAddr[e.Address]; !ok {
			byAddr[e.Address] = e
		}
	}
	targetMinor := util.ToMinorUnits(target, decimals)

	p := New()
	for _, acc := range accounts {
		capMinor := targetMinor
		if e, ok := byAddr[acc.ID]; ok {
			if e.MaxBalance == nil {
				log.Debugf("%s is whitelisted", acc.ID)
				continue
			}
			capMinor = util.ToMinorUnits(*e.MaxBalance, decimals)
		}
		if acc.Free == nil || acc.Free.Cmp(capMinor) <= 0 {
			continue
		}
		toSlash := new(big.Int).Sub(acc.Free, capMinor)
		log.Debugf("pushing %s with target balance %s - to be slashed %s", acc.ID, capMinor, toSlash)
		p.Set(acc.ID, toSlash)
	}
	log.Debug("filtered accounts pushed")
	return p
}

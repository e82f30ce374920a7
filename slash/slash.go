package slash

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/textileio/slasher/index/balance"
	"github.com/textileio/slasher/ledger"
	"github.com/textileio/slasher/ledger/transferstore"
	"github.com/textileio/slasher/plan"
	"github.com/textileio/slasher/util"
	"github.com/textileio/slasher/whitelist"
	"golang.org/x/time/rate"
)

var log = logging.Logger("slash")

// Slasher scans the balances index for accounts above the threshold and
// force transfers their excess to the ledger signer.
type Slasher struct {
	cfg     Config
	src     balance.Source
	lm      ledger.Module
	store   *transferstore.Store
	limiter *rate.Limiter

	scanOpts []balance.ScanOption
}

// Preview is the result of the read-only part of a run.
type Preview struct {
	// Candidates are the accounts above the threshold, in index order.
	Candidates []balance.AccountBalance
	Whitelist  []whitelist.Entry
	// Plan is the slash plan, already narrowed to the forced address if
	// one is configured.
	Plan *plan.Plan
}

// Report summarizes a run.
type Report struct {
	RunID      string
	Candidates int
	Planned    int
	Outcomes   []ledger.Outcome
	// Total is the sum of the simulated or submitted amounts, in minor
	// units.
	Total  *big.Int
	DryRun bool
}

// New returns a Slasher for cfg. The configuration is validated before
// anything else happens.
func New(cfg Config, src balance.Source, lm ledger.Module, opts ...Option) (*Slasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("balance source is nil")
	}
	if lm == nil {
		return nil, fmt.Errorf("ledger module is nil")
	}
	var o options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("applying option: %s", err)
		}
	}
	if o.store == nil {
		o.store = transferstore.NewInMemory()
	}
	if cfg.WhitelistPath == "" {
		cfg.WhitelistPath = DefaultWhitelistPath
	}

	s := &Slasher{
		cfg:   cfg,
		src:   src,
		lm:    lm,
		store: o.store,
	}
	if cfg.SubmitInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(cfg.SubmitInterval), 1)
	}
	s.scanOpts = append(s.scanOpts, balance.WithRetries(cfg.Retries))
	if o.maxRetryInterval > 0 {
		s.scanOpts = append(s.scanOpts, balance.WithMaxRetryInterval(o.maxRetryInterval))
	}
	return s, nil
}

// Plan scans the index, loads the whitelist and computes the slash plan
// without touching the ledger.
func (s *Slasher) Plan(ctx context.Context) (Preview, error) {
	accounts, err := s.Scan(ctx)
	if err != nil {
		return Preview{}, err
	}

	wl, err := whitelist.Load(s.cfg.WhitelistPath)
	if err != nil {
		return Preview{}, &StageError{Stage: StageWhitelist, Err: err}
	}
	log.Debugf("whitelist has %d entries", len(wl))

	log.Infof("calculating amounts to slash to leave them all with %s", s.cfg.BalanceTarget)
	p := plan.Compute(wl, accounts, s.cfg.ChainDecimals, s.cfg.BalanceTarget)
	log.Infof("filtered amounts to slash: %d", p.Len())

	if s.cfg.ForcedAddress != "" {
		log.Infof("forced address to slash is set, leaving only %s", s.cfg.ForcedAddress)
		p = p.Only(s.cfg.ForcedAddress)
		if p.Len() == 0 {
			log.Warnf("forced address %s isn't in the slash plan", s.cfg.ForcedAddress)
		}
	}

	return Preview{
		Candidates: accounts,
		Whitelist:  wl,
		Plan:       p,
	}, nil
}

// Scan returns the accounts whose free balance exceeds the configured
// threshold.
func (s *Slasher) Scan(ctx context.Context) ([]balance.AccountBalance, error) {
	threshold := util.ToMinorUnits(s.cfg.BalanceThreshold, s.cfg.ChainDecimals)
	log.Infof("looking for accounts with balances bigger than %s", s.cfg.BalanceThreshold)
	accounts, err := balance.Scan(ctx, s.src, threshold, s.scanOpts...)
	if err != nil {
		return nil, &StageError{Stage: StageScan, Err: err}
	}
	log.Infof("accounts exceeding threshold: %d", len(accounts))
	return accounts, nil
}

// Run executes a full slashing run. Transfers are done one at a time in
// plan order, and the first failure stops the run. Transfers done before
// the failure aren't reverted and are included in the returned Report.
func (s *Slasher) Run(ctx context.Context) (Report, error) {
	rep := Report{
		RunID:  uuid.New().String(),
		Total:  big.NewInt(0),
		DryRun: s.cfg.DryRun,
	}
	log.Infof("starting run %s (dry run: %t)", rep.RunID, s.cfg.DryRun)

	pv, err := s.Plan(ctx)
	if err != nil {
		return rep, err
	}
	rep.Candidates = len(pv.Candidates)
	rep.Planned = pv.Plan.Len()

	for _, t := range pv.Plan.Transfers() {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return s.report(rep), &StageError{Stage: StageTransfer, Err: fmt.Errorf("waiting to slash %s: %w", t.Address, err)}
			}
		}
		log.Debugf("moving %s from %s to %s", t.Amount, t.Address, s.lm.Beneficiary())
		o, err := s.lm.ForceTransfer(ctx, t.Address, t.Amount, s.cfg.DryRun)
		if err != nil {
			return s.report(rep), &StageError{Stage: StageTransfer, Err: fmt.Errorf("slashing %s: %w", t.Address, err)}
		}
		if o.DryRun {
			log.Debugf("dry run transfer from %s: ok: %t, status: %s", o.From, o.Ok, o.Detail)
		} else {
			log.Debugf("transfer from %s signed and sent: %s", o.From, o.Hash)
		}
		if _, err := s.store.Put(rep.RunID, o); err != nil {
			return s.report(rep), &StageError{Stage: StageTransfer, Err: fmt.Errorf("journaling transfer from %s: %w", t.Address, err)}
		}
	}

	rep = s.report(rep)
	log.Infof("process completed. Accounts slashed: %d. Tokens recovered: %s", len(rep.Outcomes), rep.Total)
	return rep, nil
}

// report fills the outcomes and total of rep from the records journaled
// under its run id.
func (s *Slasher) report(rep Report) Report {
	recs, err := s.store.ByRun(rep.RunID)
	if err != nil {
		log.Errorf("reading transfer journal: %s", err)
		return rep
	}
	rep.Outcomes = make([]ledger.Outcome, 0, len(recs))
	for _, r := range recs {
		rep.Outcomes = append(rep.Outcomes, r.Outcome)
	}
	rep.Total = transferstore.Sum(recs)
	return rep
}

package slash_test

import (
	"context"
	"errors"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	logging "github.com/ipfs/go-log/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/textileio/slasher/index/balance"
	"github.com/textileio/slasher/ledger"
	"github.com/textileio/slasher/ledger/transferstore"
	"github.com/textileio/slasher/slash"
	"github.com/textileio/slasher/tests"
	"github.com/textileio/slasher/tests/mocks"
	"github.com/textileio/slasher/whitelist"
)

const signer = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"

func TestMain(m *testing.M) {
	logging.SetAllLoggers(logging.LevelError)
	os.Exit(m.Run())
}

func TestRunDryRun(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.DryRun = true
	src := singlePage(mocks.Account("A", 1200), mocks.Account("B", 950), mocks.Account("C", 800))
	lm := mocks.NewLedgerMock(signer)

	rep := run(t, cfg, src, lm)
	require.True(t, rep.DryRun)
	require.Equal(t, 3, rep.Candidates)
	require.Equal(t, 2, rep.Planned)
	require.Len(t, rep.Outcomes, 2)
	require.Equal(t, big.NewInt(350), rep.Total)
	_, err := uuid.Parse(rep.RunID)
	require.NoError(t, err)

	require.Len(t, lm.Calls, 2)
	require.Equal(t, mocks.Call{From: "A", Amount: big.NewInt(300), DryRun: true}, lm.Calls[0])
	require.Equal(t, mocks.Call{From: "B", Amount: big.NewInt(50), DryRun: true}, lm.Calls[1])
	require.Empty(t, lm.Committed)
	for _, o := range rep.Outcomes {
		require.True(t, o.DryRun)
		require.Empty(t, o.Hash)
		require.Equal(t, signer, o.To)
	}

	// Threshold is sent in minor units.
	require.Equal(t, big.NewInt(500), src.Thresholds[0])
}

func TestRunDryRunNotOk(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.DryRun = true
	src := singlePage(mocks.Account("A", 1200))
	lm := mocks.NewLedgerMock(signer)
	lm.DryRunNotOk = true

	rep := run(t, cfg, src, lm)
	require.Len(t, rep.Outcomes, 1)
	require.False(t, rep.Outcomes[0].Ok)
	require.Empty(t, lm.Committed)
}

func TestRunSubmits(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	src := singlePage(mocks.Account("A", 1200), mocks.Account("B", 950), mocks.Account("C", 800))
	lm := mocks.NewLedgerMock(signer)

	rep := run(t, cfg, src, lm)
	require.False(t, rep.DryRun)
	require.Equal(t, big.NewInt(350), rep.Total)
	require.Equal(t, map[string]*big.Int{"A": big.NewInt(300), "B": big.NewInt(50)}, lm.Committed)
	for _, o := range rep.Outcomes {
		require.True(t, o.Ok)
		require.NotEmpty(t, o.Hash)
	}
}

func TestRunAcrossPages(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.DryRun = true
	// Free balances are 1001..1107, the target is 900.
	src := mocks.NewPagedSource(50, 50, 7)
	lm := mocks.NewLedgerMock(signer)

	rep := run(t, cfg, src, lm)
	require.Equal(t, 3, src.Requests)
	require.Equal(t, 107, rep.Candidates)
	require.Equal(t, 107, rep.Planned)
	require.Len(t, lm.Calls, 107)
	require.Equal(t, "acc-1", lm.Calls[0].From)
	require.Equal(t, big.NewInt(101), lm.Calls[0].Amount)
	require.Equal(t, "acc-107", lm.Calls[106].From)
	// sum(101..207)
	require.Equal(t, big.NewInt(16478), rep.Total)
}

func TestRunWhitelist(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.WhitelistPath = tests.WriteTempFile(t, "whitelist.yml", `
- name: Capped
  address: A
  maxBalance: 10
- name: Above target
  address: B
  maxBalance: 9.9
- name: Exempt
  address: C
`)
	src := singlePage(
		mocks.Account("A", 1200),
		mocks.Account("B", 1000),
		mocks.Account("C", 5000),
		mocks.Account("D", 1000),
	)
	lm := mocks.NewLedgerMock(signer)

	rep := run(t, cfg, src, lm)
	require.Equal(t, 4, rep.Candidates)
	require.Equal(t, 3, rep.Planned)
	require.Equal(t, map[string]*big.Int{
		"A": big.NewInt(200),
		"B": big.NewInt(10),
		"D": big.NewInt(100),
	}, lm.Committed)
}

func TestRunForcedAddress(t *testing.T) {
	t.Parallel()
	t.Run("in plan", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig(t)
		cfg.ForcedAddress = "B"
		src := singlePage(mocks.Account("A", 1200), mocks.Account("B", 950), mocks.Account("C", 1000))
		lm := mocks.NewLedgerMock(signer)

		rep := run(t, cfg, src, lm)
		require.Equal(t, 3, rep.Candidates)
		require.Equal(t, 1, rep.Planned)
		require.Len(t, lm.Calls, 1)
		require.Equal(t, "B", lm.Calls[0].From)
		require.Equal(t, big.NewInt(50), rep.Total)
	})
	t.Run("not in plan", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig(t)
		cfg.ForcedAddress = "Z"
		src := singlePage(mocks.Account("A", 1200), mocks.Account("B", 950))
		lm := mocks.NewLedgerMock(signer)

		rep := run(t, cfg, src, lm)
		require.Equal(t, 0, rep.Planned)
		require.Empty(t, lm.Calls)
		require.Empty(t, rep.Outcomes)
		require.Equal(t, big.NewInt(0), rep.Total)
	})
}

func TestRunTransferFailureHalts(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	src := singlePage(mocks.Account("A", 1200), mocks.Account("B", 950), mocks.Account("C", 1000))
	lm := mocks.NewLedgerMock(signer)
	lm.FailOn = "B"
	store := transferstore.NewInMemory()

	s, err := slash.New(cfg, src, lm, slash.WithTransferStore(store))
	require.NoError(t, err)
	rep, err := s.Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, ledger.ErrTransfer))

	var se *slash.StageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, slash.StageTransfer, se.Stage)
	var te *ledger.TransferError
	require.True(t, errors.As(err, &te))
	require.Equal(t, "B", te.Address)

	// C is never attempted; A stays submitted.
	require.Len(t, lm.Calls, 2)
	require.Equal(t, map[string]*big.Int{"A": big.NewInt(300)}, lm.Committed)
	require.Len(t, rep.Outcomes, 1)
	require.Equal(t, big.NewInt(300), rep.Total)

	recs, err := store.All()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "A", recs[0].Outcome.From)
}

func TestRunTwice(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.DryRun = true
	src := singlePage(mocks.Account("A", 1200))
	lm := mocks.NewLedgerMock(signer)
	s, err := slash.New(cfg, src, lm)
	require.NoError(t, err)

	first, err := s.Run(context.Background())
	require.NoError(t, err)
	second, err := s.Run(context.Background())
	require.NoError(t, err)

	require.NotEqual(t, first.RunID, second.RunID)
	for _, rep := range []slash.Report{first, second} {
		require.Equal(t, 1, rep.Planned)
		require.Len(t, rep.Outcomes, 1)
		require.Equal(t, big.NewInt(300), rep.Total)
	}
	require.Len(t, lm.Calls, 2)
}

func TestRunWithPopulatedTransferStore(t *testing.T) {
	t.Parallel()
	ds := dssync.MutexWrap(datastore.NewMapDatastore())
	prev, err := transferstore.New(ds)
	require.NoError(t, err)
	_, err = prev.Put("previous-run", ledger.Outcome{From: "A", To: signer, Amount: big.NewInt(1000), Ok: true})
	require.NoError(t, err)

	store, err := transferstore.New(ds)
	require.NoError(t, err)
	cfg := testConfig(t)
	src := singlePage(mocks.Account("A", 1200), mocks.Account("B", 950))
	lm := mocks.NewLedgerMock(signer)
	s, err := slash.New(cfg, src, lm, slash.WithTransferStore(store))
	require.NoError(t, err)

	rep, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Outcomes, 2)
	require.Equal(t, big.NewInt(350), rep.Total)

	// The earlier record is kept, and the new ones are appended after it.
	recs, err := store.All()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, "previous-run", recs[0].RunID)
	require.Equal(t, 3, recs[2].Seq)
	require.Equal(t, rep.RunID, recs[2].RunID)
}

func TestRunMalformedWhitelist(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.WhitelistPath = tests.WriteTempFile(t, "whitelist.yml", "name: not a list\n")
	src := singlePage(mocks.Account("A", 1200))
	lm := mocks.NewLedgerMock(signer)

	s, err := slash.New(cfg, src, lm)
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, whitelist.ErrParse))
	var se *slash.StageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, slash.StageWhitelist, se.Stage)
	require.Empty(t, lm.Calls)
}

func TestRunScanFailure(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	src := mocks.NewPagedSource(50, 50, 7)
	src.FailAt = 2
	lm := mocks.NewLedgerMock(signer)

	s, err := slash.New(cfg, src, lm)
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, balance.ErrQuery))
	var se *slash.StageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, slash.StageScan, se.Stage)
	require.Equal(t, 2, src.Requests)
	require.Empty(t, lm.Calls)
}

func TestRunScanRetries(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Retries = 2
	cfg.DryRun = true
	src := mocks.NewPagedSource(50, 7)
	src.FailAt = 2
	lm := mocks.NewLedgerMock(signer)

	s, err := slash.New(cfg, src, lm, slash.WithMaxRetryInterval(time.Millisecond))
	require.NoError(t, err)
	rep, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, src.Requests)
	require.Equal(t, 57, rep.Candidates)
}

func TestRunSubmitInterval(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.DryRun = true
	cfg.SubmitInterval = time.Millisecond * 20
	src := singlePage(mocks.Account("A", 1200), mocks.Account("B", 1200), mocks.Account("C", 1200))
	lm := mocks.NewLedgerMock(signer)

	start := time.Now()
	rep := run(t, cfg, src, lm)
	require.Len(t, rep.Outcomes, 3)
	require.GreaterOrEqual(t, int64(time.Since(start)), int64(time.Millisecond*35))
}

func TestPlan(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	src := singlePage(mocks.Account("A", 1200), mocks.Account("B", 950), mocks.Account("C", 800))
	lm := mocks.NewLedgerMock(signer)

	s, err := slash.New(cfg, src, lm)
	require.NoError(t, err)
	pv, err := s.Plan(context.Background())
	require.NoError(t, err)
	require.Len(t, pv.Candidates, 3)
	require.Empty(t, pv.Whitelist)
	require.Equal(t, 2, pv.Plan.Len())
	require.Equal(t, big.NewInt(350), pv.Plan.Total())
	require.Empty(t, lm.Calls)
}

func TestNewInvalidConfig(t *testing.T) {
	t.Parallel()
	cases := map[string]func(*slash.Config){
		"decimals":          func(c *slash.Config) { c.ChainDecimals = 0 },
		"too many decimals": func(c *slash.Config) { c.ChainDecimals = slash.MaxChainDecimals + 1 },
		"decimals overflow": func(c *slash.Config) { c.ChainDecimals = math.MaxInt32 + 1 },
		"threshold":         func(c *slash.Config) { c.BalanceThreshold = decimal.Zero },
		"target":            func(c *slash.Config) { c.BalanceTarget = decimal.Decimal{} },
		"mnemonic":          func(c *slash.Config) { c.RootMnemonic = "" },
		"node url":          func(c *slash.Config) { c.NodeURL = "" },
		"stats url":         func(c *slash.Config) { c.StatsAPIURL = "" },
		"negative":          func(c *slash.Config) { c.BalanceTarget = decimal.NewFromInt(-1) },
		"page size":         func(c *slash.Config) { c.PageSize = 0 },
		"retries":           func(c *slash.Config) { c.Retries = -1 },
	}
	for name, mod := range cases {
		mod := mod
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig(t)
			mod(&cfg)
			require.True(t, errors.Is(cfg.Validate(), slash.ErrConfiguration))

			src := singlePage(mocks.Account("A", 1200))
			_, err := slash.New(cfg, src, mocks.NewLedgerMock(signer))
			require.True(t, errors.Is(err, slash.ErrConfiguration))
			require.Equal(t, 0, src.Requests)
		})
	}
}

func TestValidateMaxDecimals(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.ChainDecimals = slash.MaxChainDecimals
	require.NoError(t, cfg.Validate())
}

func TestRedacted(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	r := cfg.Redacted()
	require.NotContains(t, r.RootMnemonic, "//Alice")
	require.Equal(t, "//Alice", cfg.RootMnemonic)
	require.Equal(t, cfg.NodeURL, r.NodeURL)
}

func testConfig(t *testing.T) slash.Config {
	cfg := slash.DefaultConfig()
	cfg.ChainDecimals = 2
	cfg.BalanceThreshold = decimal.NewFromInt(5)
	cfg.BalanceTarget = decimal.NewFromInt(9)
	cfg.NodeURL = "ws://127.0.0.1:9944"
	cfg.StatsAPIURL = "http://127.0.0.1:4350/graphql"
	cfg.RootMnemonic = "//Alice"
	cfg.WhitelistPath = filepath.Join(t.TempDir(), "whitelist.yml")
	return cfg
}

func singlePage(accounts ...balance.AccountBalance) *mocks.PagedSource {
	return &mocks.PagedSource{Pages: []balance.Page{{Accounts: accounts, TotalCount: len(accounts)}}}
}

func run(t *testing.T, cfg slash.Config, src balance.Source, lm ledger.Module) slash.Report {
	s, err := slash.New(cfg, src, lm)
	require.NoError(t, err)
	rep, err := s.Run(context.Background())
	require.NoError(t, err)
	return rep
}

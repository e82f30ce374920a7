package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"
	"github.com/textileio/slasher/ledger"
	"github.com/textileio/slasher/ledger/substrate"
	"github.com/textileio/slasher/slash"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the slash plan without touching the chain",
	Long:  `Scans the balances index, applies the whitelist and prints the amount that would be slashed from every account. No connection to the chain node is made.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := newOfflineSlasher()
		if err != nil {
			return err
		}
		pv, err := s.Plan(context.Background())
		if err != nil {
			return err
		}

		renderPlan(pv, cfg.ChainDecimals)
		Success("%d accounts would be slashed, %s in total", pv.Plan.Len(), formatAmount(pv.Plan.Total(), cfg.ChainDecimals))
		return nil
	},
}

func renderPlan(pv slash.Preview, decimals uint32) {
	Message("%d accounts above the threshold, %d whitelist entries", len(pv.Candidates), len(pv.Whitelist))
	data := make([][]string, 0, pv.Plan.Len())
	for _, t := range pv.Plan.Transfers() {
		data = append(data, []string{t.Address, formatAmount(t.Amount, decimals)})
	}
	renderTable([]column{{name: "address"}, {name: "to slash", amount: true}}, data, "total", formatAmount(pv.Plan.Total(), decimals))
}

// newOfflineSlasher returns a Slasher whose ledger refuses to transfer,
// for the commands that only read the index.
func newOfflineSlasher() (*slash.Slasher, slash.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, slash.Config{}, err
	}
	signer, err := substrate.NewSigner(cfg.RootMnemonic, cfg.SS58Prefix)
	if err != nil {
		return nil, slash.Config{}, fmt.Errorf("creating signer: %w", err)
	}
	idx, err := newIndex(cfg)
	if err != nil {
		return nil, slash.Config{}, err
	}
	s, err := slash.New(cfg, idx, offlineLedger{beneficiary: signer.Address})
	if err != nil {
		return nil, slash.Config{}, err
	}
	Message("Beneficiary: %s", signer.Address)
	return s, cfg, nil
}

type offlineLedger struct {
	beneficiary string
}

var _ ledger.Module = offlineLedger{}

func (l offlineLedger) ForceTransfer(_ context.Context, from string, amount *big.Int, _ bool) (ledger.Outcome, error) {
	return ledger.Outcome{}, &ledger.TransferError{Address: from, Amount: amount, Err: fmt.Errorf("ledger is offline")}
}

func (l offlineLedger) Beneficiary() string {
	return l.beneficiary
}

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/textileio/slasher/ledger/substrate"
	"github.com/textileio/slasher/slash"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Slash every account above the threshold",
	Long:  `Scans the balances index, computes the slash plan and force transfers the excess of every planned account to the sudo account, one at a time. With --dryrun the transfers are only simulated.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		signer, err := substrate.NewSigner(cfg.RootMnemonic, cfg.SS58Prefix)
		if err != nil {
			return fmt.Errorf("creating signer: %w", err)
		}
		idx, err := newIndex(cfg)
		if err != nil {
			return err
		}
		log.Infof("connecting to %s", cfg.NodeURL)
		lm, err := substrate.New(cfg.NodeURL, signer)
		if err != nil {
			return fmt.Errorf("creating ledger client: %w", err)
		}

		s, err := slash.New(cfg, idx, lm)
		if err != nil {
			return err
		}
		rep, err := s.Run(context.Background())
		renderReport(rep, cfg.ChainDecimals)
		if err != nil {
			return err
		}
		if rep.DryRun {
			Warning("Dry run: no transfers were submitted")
		}
		Success("Accounts slashed: %d. Tokens recovered: %s", len(rep.Outcomes), formatAmount(rep.Total, cfg.ChainDecimals))
		return nil
	},
}

func renderReport(rep slash.Report, decimals uint32) {
	Message("Run %s: %d candidates, %d planned", rep.RunID, rep.Candidates, rep.Planned)
	data := make([][]string, len(rep.Outcomes))
	for i, o := range rep.Outcomes {
		data[i] = []string{
			o.From,
			formatAmount(o.Amount, decimals),
			strconv.FormatBool(o.Ok),
			o.Hash,
			o.Detail,
		}
	}
	cols := []column{{name: "address"}, {name: "amount", amount: true}, {name: "ok"}, {name: "hash"}, {name: "detail"}}
	renderTable(cols, data, "total", formatAmount(rep.Total, decimals), "", "", "")
}

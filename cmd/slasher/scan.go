package main

import (
	"context"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the accounts above the balance threshold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := newOfflineSlasher()
		if err != nil {
			return err
		}
		accounts, err := s.Scan(context.Background())
		if err != nil {
			return err
		}

		data := make([][]string, len(accounts))
		for i, a := range accounts {
			data[i] = []string{
				a.ID,
				formatAmount(a.Free, cfg.ChainDecimals),
				formatAmount(a.Reserved, cfg.ChainDecimals),
				formatAmount(a.Total, cfg.ChainDecimals),
			}
		}
		cols := []column{{name: "address"}, {name: "free", amount: true}, {name: "reserved", amount: true}, {name: "total", amount: true}}
		renderTable(cols, data)
		Success("%d accounts above %s", len(accounts), cfg.BalanceThreshold)
		return nil
	},
}

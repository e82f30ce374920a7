package main

import (
	"errors"
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/textileio/slasher/index/balance"
	"github.com/textileio/slasher/ledger"
	"github.com/textileio/slasher/slash"
	"github.com/textileio/slasher/whitelist"
)

var log = logging.Logger("slasher")

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Errorf("%s: %s", classify(err), err)
		os.Exit(1)
	}
}

// classify names the kind of failure for the final log line.
func classify(err error) string {
	switch {
	case errors.Is(err, slash.ErrConfiguration):
		return "configuration error"
	case errors.Is(err, balance.ErrQuery):
		return "balances index error"
	case errors.Is(err, whitelist.ErrParse):
		return "whitelist error"
	case errors.Is(err, ledger.ErrTransfer):
		return "transfer error"
	default:
		return "error"
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/textileio/slasher/slash"
	"github.com/textileio/slasher/util"
)

// configFromFlags builds the run configuration from v. Missing values are
// left at their zero value so that slash.Config.Validate reports them.
func configFromFlags(v *viper.Viper) (slash.Config, error) {
	threshold, err := parseAmount(v.GetString("threshold"))
	if err != nil {
		return slash.Config{}, fmt.Errorf("parsing balance threshold: %s: %w", err, slash.ErrConfiguration)
	}
	target, err := parseAmount(v.GetString("target"))
	if err != nil {
		return slash.Config{}, fmt.Errorf("parsing balance target: %s: %w", err, slash.ErrConfiguration)
	}
	whitelistPath, err := util.ExpandPath(v.GetString("whitelist"))
	if err != nil {
		return slash.Config{}, fmt.Errorf("resolving whitelist path: %s", err)
	}

	return slash.Config{
		ChainDecimals:    v.GetUint32("decimals"),
		BalanceThreshold: threshold,
		BalanceTarget:    target,
		NodeURL:          v.GetString("nodeurl"),
		StatsAPIURL:      v.GetString("statsapiurl"),
		RootMnemonic:     v.GetString("mnemonic"),
		DryRun:           dryRun(v),
		ForcedAddress:    strings.TrimSpace(v.GetString("forcedaddress")),
		WhitelistPath:    whitelistPath,
		SS58Prefix:       uint16(v.GetUint("ss58prefix")),
		PageSize:         v.GetInt("pagesize"),
		Retries:          v.GetInt("retries"),
		SubmitInterval:   v.GetDuration("submitinterval"),
	}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, nil
	}
	return util.ParseMajorUnits(s)
}

// dryRun is enabled by the flag, or by a non-empty DRY_RUN variable
// whatever its value.
func dryRun(v *viper.Viper) bool {
	return v.GetBool("dryrun") || os.Getenv("DRY_RUN") != ""
}

func configJSON(cfg slash.Config) (string, error) {
	buf, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling configuration: %s", err)
	}
	return string(buf), nil
}

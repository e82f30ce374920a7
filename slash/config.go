package slash

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultWhitelistPath is where the whitelist is looked up if none is
	// configured.
	DefaultWhitelistPath = "./whitelist.yml"
	// DefaultSS58Prefix is the generic substrate address prefix.
	DefaultSS58Prefix = 42
	// DefaultPageSize is the number of accounts requested per index page.
	DefaultPageSize = 50
	// MaxChainDecimals bounds ChainDecimals. Amounts are scaled by a signed
	// 32 bit exponent.
	MaxChainDecimals = 255
)

// ErrConfiguration indicates that a required setting is missing or invalid.
var ErrConfiguration = errors.New("invalid configuration")

// Config contains the settings of a slashing run.
type Config struct {
	// ChainDecimals is the number of decimals of the chain token. Major
	// unit amounts are scaled by 10^ChainDecimals.
	ChainDecimals uint32
	// BalanceThreshold selects accounts whose free balance is strictly
	// greater than it, in major units.
	BalanceThreshold decimal.Decimal
	// BalanceTarget is the balance non-whitelisted accounts are left
	// with, in major units.
	BalanceTarget decimal.Decimal

	NodeURL      string
	StatsAPIURL  string
	RootMnemonic string

	DryRun bool
	// ForcedAddress narrows the run to a single address, if set.
	ForcedAddress string

	WhitelistPath  string
	SS58Prefix     uint16
	PageSize       int
	Retries        int
	SubmitInterval time.Duration
}

// DefaultConfig returns a Config with the optional settings at their
// defaults.
func DefaultConfig() Config {
	return Config{
		WhitelistPath: DefaultWhitelistPath,
		SS58Prefix:    DefaultSS58Prefix,
		PageSize:      DefaultPageSize,
	}
}

// Validate returns an error wrapping ErrConfiguration if c can't be used
// for a run.
func (c Config) Validate() error {
	if c.ChainDecimals == 0 {
		return fmt.Errorf("chain decimals is required: %w", ErrConfiguration)
	}
	if c.ChainDecimals > MaxChainDecimals {
		return fmt.Errorf("chain decimals %d is above %d: %w", c.ChainDecimals, MaxChainDecimals, ErrConfiguration)
	}
	if c.BalanceThreshold.IsZero() {
		return fmt.Errorf("balance threshold is required: %w", ErrConfiguration)
	}
	if c.BalanceThreshold.IsNegative() {
		return fmt.Errorf("balance threshold can't be negative: %w", ErrConfiguration)
	}
	if c.BalanceTarget.IsZero() {
		return fmt.Errorf("balance target is required: %w", ErrConfiguration)
	}
	if c.BalanceTarget.IsNegative() {
		return fmt.Errorf("balance target can't be negative: %w", ErrConfiguration)
	}
	if c.RootMnemonic == "" {
		return fmt.Errorf("root mnemonic is required: %w", ErrConfiguration)
	}
	if c.NodeURL == "" {
		return fmt.Errorf("node url is required: %w", ErrConfiguration)
	}
	if c.StatsAPIURL == "" {
		return fmt.Errorf("stats api url is required: %w", ErrConfiguration)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size should be positive: %w", ErrConfiguration)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries can't be negative: %w", ErrConfiguration)
	}
	if c.SubmitInterval < 0 {
		return fmt.Errorf("submit interval can't be negative: %w", ErrConfiguration)
	}
	return nil
}

// Redacted returns a copy of c that is safe to log.
func (c Config) Redacted() Config {
	if c.RootMnemonic != "" {
		c.RootMnemonic = "<redacted>"
	}
	return c
}

package balance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v3"
	logging "github.com/ipfs/go-log/v2"
)

var (
	log = logging.Logger("index-balance")

	// ErrQuery indicates a transport or protocol failure while querying
	// the balances index.
	ErrQuery = errors.New("balances index query failed")
)

type scanConfig struct {
	retries     int
	maxInterval time.Duration
}

// ScanOption configures a Scan.
type ScanOption func(*scanConfig)

// WithRetries retries each page fetch up to n extra times with exponential
// backoff. Zero disables retries.
func WithRetries(n int) ScanOption {
	return func(c *scanConfig) {
		c.retries = n
	}
}

// WithMaxRetryInterval caps the wait between page fetch retries.
func WithMaxRetryInterval(d time.Duration) ScanOption {
	return func(c *scanConfig) {
		c.maxInterval = d
	}
}

// Scan walks every page of src for the provided minor unit threshold and
// returns all accounts in the order the index returned them. Any page
// failure aborts the whole scan; a partial result is never returned.
func Scan(ctx context.Context, src Source, threshold *big.Int, opts ...ScanOption) ([]AccountBalance, error) {
	cfg := scanConfig{maxInterval: time.Second * 10}
	for _, o := range opts {
		o(&cfg)
	}
	if threshold == nil || threshold.Sign() < 0 {
		return nil, fmt.Errorf("invalid threshold %v", threshold)
	}

	log.Debugf("querying accounts with free balance bigger than %s", threshold)
	var accounts []AccountBalance
	var after string
	for pageNum := 1; ; pageNum++ {
		page, err := fetchPage(ctx, src, threshold, after, cfg)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", pageNum, err)
		}
		log.Debugf("got %d accounts in page %d", len(page.Accounts), pageNum)
		accounts = append(accounts, page.Accounts...)
		if !page.HasNextPage {
			break
		}
		if page.EndCursor == "" {
			return nil, fmt.Errorf("page %d has next page but no end cursor: %w", pageNum, ErrQuery)
		}
		log.Debug("has next page")
		after = page.EndCursor
	}
	return accounts, nil
}

func fetchPage(ctx context.Context, src Source, threshold *big.Int, after string, cfg scanConfig) (Page, error) {
	if cfg.retries <= 0 {
		page, err := src.Balances(ctx, threshold, after)
		if err != nil {
			return Page{}, wrapQueryErr(err)
		}
		return page, nil
	}

	var page Page
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = cfg.maxInterval
	if bo.InitialInterval > cfg.maxInterval {
		bo.InitialInterval = cfg.maxInterval
	}
	attempt := 0
	op := func() error {
		attempt++
		var err error
		page, err = src.Balances(ctx, threshold, after)
		if err != nil {
			log.Warnf("page fetch attempt %d/%d failed: %s", attempt, cfg.retries+1, err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.retries)), ctx)); err != nil {
		return Page{}, wrapQueryErr(err)
	}
	return page, nil
}

func wrapQueryErr(err error) error {
	if errors.Is(err, ErrQuery) {
		return err
	}
	return fmt.Errorf("%s: %w", err, ErrQuery)
}

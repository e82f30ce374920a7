package slash

import (
	"fmt"
	"time"

	"github.com/textileio/slasher/ledger/transferstore"
)

type options struct {
	store            *transferstore.Store
	maxRetryInterval time.Duration
}

// Option configures a Slasher.
type Option func(*options) error

// WithTransferStore journals the run outcomes in s instead of a fresh
// in-memory store.
func WithTransferStore(s *transferstore.Store) Option {
	return func(o *options) error {
		if s == nil {
			return fmt.Errorf("transfer store is nil")
		}
		o.store = s
		return nil
	}
}

// WithMaxRetryInterval caps the wait between index page retries.
func WithMaxRetryInterval(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("max retry interval should be positive")
		}
		o.maxRetryInterval = d
		return nil
	}
}

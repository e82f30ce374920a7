package gqlidx

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/machinebox/graphql"
	"github.com/textileio/slasher/index/balance"
	"github.com/textileio/slasher/util"
)

const (
	// DefaultPageSize is the number of accounts requested per page.
	DefaultPageSize = 50
)

var (
	log = logging.Logger("index-gqlidx")

	_ balance.Source = (*Index)(nil)
)

// Index is a balance.Source backed by a GraphQL balances indexer.
type Index struct {
	client   *graphql.Client
	url      string
	pageSize int
}

type config struct {
	pageSize   int
	httpClient *http.Client
}

// Option configures an Index.
type Option func(*config)

// WithPageSize sets how many accounts are requested per page.
func WithPageSize(n int) Option {
	return func(c *config) {
		c.pageSize = n
	}
}

// WithHTTPClient sets the http client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// New returns an Index querying the GraphQL endpoint at url.
func New(url string, opts ...Option) (*Index, error) {
	if url == "" {
		return nil, fmt.Errorf("graphql endpoint is empty")
	}
	cfg := config{
		pageSize:   DefaultPageSize,
		httpClient: &http.Client{Timeout: time.Second * 30},
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.pageSize <= 0 {
		return nil, fmt.Errorf("page size should be positive")
	}
	c := graphql.NewClient(url, graphql.WithHTTPClient(cfg.httpClient))
	c.Log = func(s string) { log.Debug(s) }
	return &Index{
		client:   c,
		url:      url,
		pageSize: cfg.pageSize,
	}, nil
}

// Balances implements balance.Source.
func (i *Index) Balances(ctx context.Context, threshold *big.Int, after string) (balance.Page, error) {
	req := graphql.NewRequest(balancesQuery)
	req.Var("first", i.pageSize)
	req.Var("threshold", threshold.String())
	if after != "" {
		req.Var("after", after)
	}

	var res balancesResponse
	if err := i.client.Run(ctx, req, &res); err != nil {
		return balance.Page{}, fmt.Errorf("querying %s: %s", i.url, err)
	}

	conn := res.AccountsConnection
	page := balance.Page{
		Accounts:    make([]balance.AccountBalance, 0, len(conn.Edges)),
		TotalCount:  conn.TotalCount,
		EndCursor:   conn.PageInfo.EndCursor,
		HasNextPage: conn.PageInfo.HasNextPage,
	}
	for _, e := range conn.Edges {
		acc, err := toAccountBalance(e.Node)
		if err != nil {
			return balance.Page{}, fmt.Errorf("decoding account %s: %s", e.Node.ID, err)
		}
		page.Accounts = append(page.Accounts, acc)
	}
	log.Debugf("got %d accounts", len(page.Accounts))
	return page, nil
}

func toAccountBalance(n accountNode) (balance.AccountBalance, error) {
	if n.ID == "" {
		return balance.AccountBalance{}, fmt.Errorf("missing id")
	}
	total, err := util.ParseMinorUnits(string(n.Total))
	if err != nil {
		return balance.AccountBalance{}, fmt.Errorf("total: %s", err)
	}
	free, err := util.ParseMinorUnits(string(n.Free))
	if err != nil {
		return balance.AccountBalance{}, fmt.Errorf("free: %s", err)
	}
	reserved, err := util.ParseMinorUnits(string(n.Reserved))
	if err != nil {
		return balance.AccountBalance{}, fmt.Errorf("reserved: %s", err)
	}
	return balance.AccountBalance{
		ID:       n.ID,
		Total:    total,
		Free:     free,
		Reserved: reserved,
	}, nil
}

package whitelist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/shopspring/decimal"
	"github.com/textileio/slasher/util"
	"gopkg.in/yaml.v3"
)

var (
	log = logging.Logger("whitelist")

	// ErrParse indicates that a whitelist file exists but doesn't have the
	// expected shape.
	ErrParse = errors.New("whitelist wrong format")
)

// Entry is a whitelisted account.
type Entry struct {
	Name    string
	Address string
	// MaxBalance, in major units, is the cap the account is slashed down
	// to instead of the global target. A nil MaxBalance means the account
	// is never slashed.
	MaxBalance *decimal.Decimal
}

type rawEntry struct {
	Name       string    `yaml:"name"`
	Address    string    `yaml:"address"`
	MaxBalance yaml.Node `yaml:"maxBalance"`
}

// Load reads the whitelist at path. A missing file is not an error and
// results in an empty whitelist.
func Load(path string) ([]Entry, error) {
	expanded, err := util.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	buf, err := ioutil.ReadFile(expanded)
	if os.IsNotExist(err) {
		log.Debugf("whitelist %s not found", expanded)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading whitelist %s: %s", expanded, err)
	}
	log.Debugf("got whitelist %s", expanded)
	entries, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", expanded, err)
	}
	return entries, nil
}

// Parse decodes a YAML whitelist. An empty document is an empty whitelist.
func Parse(buf []byte) ([]Entry, error) {
	var raw []rawEntry
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", err, ErrParse)
	}

	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		name := strings.TrimSpace(r.Name)
		addr := strings.TrimSpace(r.Address)
		if name == "" {
			return nil, fmt.Errorf("entry %d: missing name: %w", i, ErrParse)
		}
		if addr == "" {
			return nil, fmt.Errorf("entry %d (%s): missing address: %w", i, name, ErrParse)
		}
		maxBalance, err := parseMaxBalance(&r.MaxBalance)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %s: %w", i, name, err, ErrParse)
		}
		entries = append(entries, Entry{
			Name:       name,
			Address:    addr,
			MaxBalance: maxBalance,
		})
	}
	log.Debugf("whitelist has %d entries", len(entries))
	return entries, nil
}

func parseMaxBalance(n *yaml.Node) (*decimal.Decimal, error) {
	// Kind is zero when the key is absent.
	if n.Kind == 0 || n.ShortTag() == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("maxBalance should be a number")
	}
	switch n.ShortTag() {
	case "!!int", "!!float", "!!str":
	default:
		return nil, fmt.Errorf("maxBalance has unexpected type %s", n.ShortTag())
	}
	d, err := util.ParseMajorUnits(n.Value)
	if err != nil {
		return nil, fmt.Errorf("maxBalance: %s", err)
	}
	return &d, nil
}

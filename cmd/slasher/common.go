package main

import (
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/logrusorgru/aurora"
	"github.com/olekukonko/tablewriter"
	"github.com/textileio/slasher/index/balance/gqlidx"
	"github.com/textileio/slasher/slash"
	"github.com/textileio/slasher/util"
)

var (
	out io.Writer = os.Stdout
	au            = aurora.NewAurora(os.Getenv("NO_COLOR") == "")
)

// Message prints an informative line.
func Message(format string, args ...interface{}) {
	fmt.Fprintln(out, au.Sprintf(au.BrightBlack("> "+format), args...))
}

// Success prints a success line.
func Success(format string, args ...interface{}) {
	fmt.Fprintln(out, au.Sprintf(au.Cyan("> Success! %s"), au.Sprintf(au.BrightBlack(format), args...)))
}

// Warning prints a warning line.
func Warning(format string, args ...interface{}) {
	fmt.Fprintln(out, au.Sprintf(au.Yellow("> Warning! %s"), au.Sprintf(au.BrightBlack(format), args...)))
}

// column is a table column. Amount columns are right aligned so that
// their digits line up.
type column struct {
	name   string
	amount bool
}

// renderTable prints data as a borderless table. A non-empty footer is
// printed as a totals row. Nothing is printed if there are no rows.
func renderTable(cols []column, data [][]string, footer ...string) {
	if len(data) == 0 {
		return
	}
	header := make([]string, len(cols))
	align := make([]int, len(cols))
	for i, c := range cols {
		header[i] = c.name
		align[i] = tablewriter.ALIGN_LEFT
		if c.amount {
			align[i] = tablewriter.ALIGN_RIGHT
		}
	}
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment(align)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	if len(footer) > 0 {
		table.SetFooter(footer)
	}
	table.AppendBulk(data)
	table.Render()
	fmt.Fprintln(out)
}

// formatAmount renders a minor unit amount in major units, keeping the
// minor units alongside.
func formatAmount(minor *big.Int, decimals uint32) string {
	if minor == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", util.FromMinorUnits(minor, decimals).String(), humanize.BigComma(minor))
}

// loadConfig resolves and validates the run configuration. Nothing is
// connected before it succeeds.
func loadConfig() (slash.Config, error) {
	cfg, err := configFromFlags(config)
	if err != nil {
		return slash.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return slash.Config{}, err
	}
	confJSON, err := configJSON(cfg)
	if err != nil {
		return slash.Config{}, err
	}
	log.Debugf("configuration: %s", confJSON)
	return cfg, nil
}

func newIndex(cfg slash.Config) (*gqlidx.Index, error) {
	idx, err := gqlidx.New(cfg.StatsAPIURL, gqlidx.WithPageSize(cfg.PageSize))
	if err != nil {
		return nil, fmt.Errorf("creating balances index client: %s", err)
	}
	return idx, nil
}

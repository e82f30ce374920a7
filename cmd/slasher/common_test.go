package main

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/logrusorgru/aurora"
	"github.com/stretchr/testify/require"
	"github.com/textileio/slasher/ledger"
	"github.com/textileio/slasher/slash"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prevOut, prevAu := out, au
	out, au = buf, aurora.NewAurora(false)
	t.Cleanup(func() { out, au = prevOut, prevAu })
	return buf
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1.5 (1,500)", formatAmount(big.NewInt(1500), 3))
	require.Equal(t, "1500 (1,500)", formatAmount(big.NewInt(1500), 0))
	require.Equal(t, "-", formatAmount(nil, 3))
}

func TestMessages(t *testing.T) {
	buf := captureOutput(t)
	Message("run %s", "abc")
	Success("slashed %d", 2)
	Warning("dry run")
	require.Equal(t, "> run abc\n> Success! slashed 2\n> Warning! dry run\n", buf.String())
}

func TestRenderReport(t *testing.T) {
	buf := captureOutput(t)
	rep := slash.Report{
		RunID:      "run-1",
		Candidates: 3,
		Planned:    2,
		Outcomes: []ledger.Outcome{
			{From: "5Alice", Amount: big.NewInt(300), Ok: true, Hash: "0x01"},
			{From: "5Bob", Amount: big.NewInt(50), Ok: true, Hash: "0x02"},
		},
		Total: big.NewInt(350),
	}
	renderReport(rep, 2)

	s := buf.String()
	require.True(t, strings.HasPrefix(s, "> Run run-1: 3 candidates, 2 planned\n"))
	require.Contains(t, s, "5Alice")
	require.Contains(t, s, "0x02")
	require.Contains(t, s, "3 (300)")
	require.Contains(t, s, "TOTAL")
	require.Contains(t, s, "3.5 (350)")
}

func TestRenderTableEmpty(t *testing.T) {
	buf := captureOutput(t)
	renderTable([]column{{name: "address"}}, nil, "total")
	require.Empty(t, buf.String())
}

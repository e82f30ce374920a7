package substrate

import (
	"context"

	"github.com/textileio/slasher/ledger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
)

var (
	tagDryRun = attribute.Key("dryrun")
	tagOk     = attribute.Key("ok")
)

func (m *Module) initMetrics() {
	meter := global.Meter("slasher")

	m.metricTransfer = metric.Must(meter).NewInt64Counter("slasher.ledger.transfers")
	m.metricAmount = metric.Must(meter).NewInt64ValueRecorder("slasher.ledger.amount", metric.WithDescription("Force transferred amounts in minor units"))
}

func (m *Module) recordTransfer(ctx context.Context, o ledger.Outcome) {
	m.metricTransfer.Add(ctx, 1, tagDryRun.Bool(o.DryRun), tagOk.Bool(o.Ok))
	if o.Amount.IsInt64() {
		m.metricAmount.Record(ctx, o.Amount.Int64(), tagDryRun.Bool(o.DryRun))
	}
}

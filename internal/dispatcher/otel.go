package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/groundlink/missionmap/internal/dispatcher"

// instruments are the per-command counters recorded around every handler.
type instruments struct {
	processed metric.Int64Counter
	failed    metric.Int64Counter
	duration  metric.Float64Histogram
}

func newInstruments(m metric.Meter) (*instruments, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}

	in := &instruments{}
	var err error

	in.processed, err = m.Int64Counter(
		"dispatcher.commands.processed",
		metric.WithDescription("Map commands handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	in.failed, err = m.Int64Counter(
		"dispatcher.commands.failed",
		metric.WithDescription("Map commands whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	in.duration, err = m.Float64Histogram(
		"dispatcher.commands.duration",
		metric.WithDescription("Handler duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return in, nil
}

// record counts one handled command.
func (in *instruments) record(command string, elapsed time.Duration, err error) {
	ctx := context.Background()
	cmdAttr := metric.WithAttributes(attribute.String("command", command))

	in.processed.Add(ctx, 1, cmdAttr)
	if err != nil {
		in.failed.Add(ctx, 1, cmdAttr)
	}
	in.duration.Record(ctx, float64(elapsed.Microseconds())/1000, cmdAttr)
}

package notifications

import (
	"context"

	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// Notifier defines the interface for alert delivery channels
type Notifier interface {
	// NotifyAlert delivers a risk alert to the channel
	NotifyAlert(ctx context.Context, alert types.Alert) error
}

// LogNotifier writes alerts to the engine log. Always registered so
// every alert leaves at least one durable trace.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyAlert(ctx context.Context, alert types.Alert) error {
	n.log.Alert("[%s/%s] %s", alert.Severity, alert.Metric, alert.Message)
	return nil
}

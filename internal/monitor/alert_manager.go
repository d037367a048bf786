package monitor

import (
	"context"
	"time"

	"github.com/ducminhle1904/options-risk-engine/internal/errors"
	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/internal/notifications"
	"github.com/ducminhle1904/options-risk-engine/internal/storage"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// AlertManager persists alerts, forwards them to notifiers, and
// enforces the retention window.
type AlertManager struct {
	store     storage.AlertStore
	notifiers []notifications.Notifier
	retention time.Duration
	log       *logger.Logger
}

// NewAlertManager creates an alert manager with the given retention
// window. Zero retention means alerts are kept forever.
func NewAlertManager(store storage.AlertStore, retention time.Duration, log *logger.Logger, notifiers ...notifications.Notifier) *AlertManager {
	return &AlertManager{
		store:     store,
		notifiers: notifiers,
		retention: retention,
		log:       log,
	}
}

// Raise persists each alert and fans it out to the notifiers. Notifier
// failures are logged, never propagated: a down Telegram channel must
// not suppress the alert record.
func (am *AlertManager) Raise(ctx context.Context, alerts []types.Alert) error {
	for i := range alerts {
		if err := am.store.SaveAlert(ctx, &alerts[i]); err != nil {
			return errors.Wrap(err, errors.ErrorCategoryFatal, "alert_manager", "Raise")
		}
		for _, n := range am.notifiers {
			if err := n.NotifyAlert(ctx, alerts[i]); err != nil {
				am.log.LogError("alert notification", err)
			}
		}
	}
	return nil
}

// Acknowledge marks an alert handled by id
func (am *AlertManager) Acknowledge(ctx context.Context, alertID string) error {
	if err := am.store.AcknowledgeAlert(ctx, alertID); err != nil {
		return errors.Wrap(err, errors.ErrorCategoryValidation, "alert_manager", "Acknowledge")
	}
	am.log.Info("Alert %s acknowledged", alertID)
	return nil
}

// Active returns unacknowledged alerts for a portfolio, newest first
func (am *AlertManager) Active(ctx context.Context, portfolioID string) ([]*types.Alert, error) {
	return am.store.ActiveAlerts(ctx, portfolioID)
}

// Evict drops alerts older than the retention window
func (am *AlertManager) Evict(ctx context.Context) error {
	if am.retention <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-am.retention).Unix()
	removed, err := am.store.EvictBefore(ctx, cutoff)
	if err != nil {
		return errors.Wrap(err, errors.ErrorCategoryFatal, "alert_manager", "Evict")
	}
	if removed > 0 {
		am.log.Info("Evicted %d alerts older than %s", removed, am.retention)
	}
	return nil
}

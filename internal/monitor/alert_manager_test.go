package monitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/options-risk-engine/internal/logger"
	"github.com/ducminhle1904/options-risk-engine/internal/storage"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

type recordingNotifier struct {
	received []types.Alert
	fail     bool
}

func (n *recordingNotifier) NotifyAlert(ctx context.Context, alert types.Alert) error {
	if n.fail {
		return fmt.Errorf("notifier down")
	}
	n.received = append(n.received, alert)
	return nil
}

// TestRaise_PersistsAndNotifies tests the persist-then-fan-out contract
func TestRaise_PersistsAndNotifies(t *testing.T) {
	store := storage.NewMemoryStore()
	notifier := &recordingNotifier{}
	am := NewAlertManager(store, 0, logger.NewDiscard(), notifier)

	alerts := []types.Alert{
		{ID: "a-1", PortfolioID: "pf-1", Metric: "var95", Severity: types.SeverityHigh, CreatedAt: time.Now()},
		{ID: "a-2", PortfolioID: "pf-1", Metric: "beta", Severity: types.SeverityMedium, CreatedAt: time.Now()},
	}
	require.NoError(t, am.Raise(context.Background(), alerts))

	active, err := am.Active(context.Background(), "pf-1")
	require.NoError(t, err)
	assert.Len(t, active, 2)
	assert.Len(t, notifier.received, 2)
}

// TestRaise_NotifierFailureDoesNotSuppress tests that a down notifier
// never blocks the alert record
func TestRaise_NotifierFailureDoesNotSuppress(t *testing.T) {
	store := storage.NewMemoryStore()
	am := NewAlertManager(store, 0, logger.NewDiscard(), &recordingNotifier{fail: true})

	err := am.Raise(context.Background(), []types.Alert{
		{ID: "a-1", PortfolioID: "pf-1", Metric: "var95", CreatedAt: time.Now()},
	})
	require.NoError(t, err)

	active, err := am.Active(context.Background(), "pf-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

// TestAcknowledge_RemovesFromActive tests the acknowledge flow
func TestAcknowledge_RemovesFromActive(t *testing.T) {
	store := storage.NewMemoryStore()
	am := NewAlertManager(store, 0, logger.NewDiscard())

	require.NoError(t, am.Raise(context.Background(), []types.Alert{
		{ID: "a-1", PortfolioID: "pf-1", Metric: "var95", CreatedAt: time.Now()},
	}))
	require.NoError(t, am.Acknowledge(context.Background(), "a-1"))

	active, err := am.Active(context.Background(), "pf-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.Error(t, am.Acknowledge(context.Background(), "missing"))
}

// TestEvict_HonorsRetention tests retention eviction and the
// keep-forever zero value
func TestEvict_HonorsRetention(t *testing.T) {
	store := storage.NewMemoryStore()
	am := NewAlertManager(store, 24*time.Hour, logger.NewDiscard())

	require.NoError(t, am.Raise(context.Background(), []types.Alert{
		{ID: "stale", PortfolioID: "pf-1", Metric: "var95", CreatedAt: time.Now().Add(-48 * time.Hour)},
		{ID: "fresh", PortfolioID: "pf-1", Metric: "beta", CreatedAt: time.Now()},
	}))
	require.NoError(t, am.Evict(context.Background()))

	active, err := am.Active(context.Background(), "pf-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "fresh", active[0].ID)

	forever := NewAlertManager(store, 0, logger.NewDiscard())
	require.NoError(t, forever.Evict(context.Background()))
	active, err = forever.Active(context.Background(), "pf-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id            TEXT PRIMARY KEY,
	portfolio_id  TEXT NOT NULL,
	payload       TEXT NOT NULL,
	status        TEXT NOT NULL,
	updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_portfolio ON orders(portfolio_id);

CREATE TABLE IF NOT EXISTS portfolios (
	id         TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS risk_metrics (
	portfolio_id TEXT NOT NULL,
	ts           INTEGER NOT NULL,
	payload      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_portfolio_ts ON risk_metrics(portfolio_id, ts);

CREATE TABLE IF NOT EXISTS alerts (
	id           TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL,
	acknowledged INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL,
	payload      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_portfolio ON alerts(portfolio_id);
`

// SQLiteStore is the durable adapter. Records serialize as JSON
// payloads with the columns needed for lookups indexed alongside,
// which keeps the schema stable as the domain types grow fields.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveOrder stores or supersedes an order record by id
func (s *SQLiteStore) SaveOrder(ctx context.Context, order *types.Order) error {
	payload, err := jsonCodec.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to serialize order %s: %w", order.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, portfolio_id, payload, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload=excluded.payload,
			status=excluded.status, updated_at=excluded.updated_at`,
		order.ID, order.PortfolioID, string(payload), string(order.Status), time.Now().Unix(),
	)
	return err
}

// GetOrder returns the order with the given id
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*types.Order, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM orders WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, &ErrNotFound{Kind: "order", ID: id}
	}
	if err != nil {
		return nil, err
	}
	var order types.Order
	if err := jsonCodec.Unmarshal([]byte(payload), &order); err != nil {
		return nil, fmt.Errorf("failed to deserialize order %s: %w", id, err)
	}
	return &order, nil
}

// ListOrders returns the orders for a portfolio in creation order
func (s *SQLiteStore) ListOrders(ctx context.Context, portfolioID string) ([]*types.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM orders WHERE (? = '' OR portfolio_id = ?) ORDER BY id`,
		portfolioID, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Order
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var order types.Order
		if err := jsonCodec.Unmarshal([]byte(payload), &order); err != nil {
			return nil, err
		}
		out = append(out, &order)
	}
	return out, rows.Err()
}

// SavePortfolio stores a portfolio snapshot
func (s *SQLiteStore) SavePortfolio(ctx context.Context, portfolio *types.Portfolio) error {
	payload, err := jsonCodec.Marshal(portfolio)
	if err != nil {
		return fmt.Errorf("failed to serialize portfolio %s: %w", portfolio.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portfolios (id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		portfolio.ID, string(payload), time.Now().Unix(),
	)
	return err
}

// GetPortfolio returns the portfolio with the given id
func (s *SQLiteStore) GetPortfolio(ctx context.Context, id string) (*types.Portfolio, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM portfolios WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, &ErrNotFound{Kind: "portfolio", ID: id}
	}
	if err != nil {
		return nil, err
	}
	var pf types.Portfolio
	if err := jsonCodec.Unmarshal([]byte(payload), &pf); err != nil {
		return nil, fmt.Errorf("failed to deserialize portfolio %s: %w", id, err)
	}
	return &pf, nil
}

// SaveMetrics appends a risk snapshot
func (s *SQLiteStore) SaveMetrics(ctx context.Context, metrics types.RiskMetrics) error {
	payload, err := jsonCodec.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to serialize metrics for %s: %w", metrics.PortfolioID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO risk_metrics (portfolio_id, ts, payload) VALUES (?, ?, ?)`,
		metrics.PortfolioID, metrics.Timestamp.UnixNano(), string(payload),
	)
	return err
}

// LatestMetrics returns the maximum-timestamp snapshot for a portfolio
func (s *SQLiteStore) LatestMetrics(ctx context.Context, portfolioID string) (types.RiskMetrics, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM risk_metrics WHERE portfolio_id = ?
		ORDER BY ts DESC LIMIT 1`, portfolioID).Scan(&payload)
	if err == sql.ErrNoRows {
		return types.RiskMetrics{}, &ErrNotFound{Kind: "risk metrics", ID: portfolioID}
	}
	if err != nil {
		return types.RiskMetrics{}, err
	}
	var metrics types.RiskMetrics
	if err := jsonCodec.Unmarshal([]byte(payload), &metrics); err != nil {
		return types.RiskMetrics{}, fmt.Errorf("failed to deserialize metrics: %w", err)
	}
	return metrics, nil
}

// SaveAlert stores an alert
func (s *SQLiteStore) SaveAlert(ctx context.Context, alert *types.Alert) error {
	payload, err := jsonCodec.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to serialize alert %s: %w", alert.ID, err)
	}
	ack := 0
	if alert.Acknowledged {
		ack = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, portfolio_id, acknowledged, created_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET acknowledged=excluded.acknowledged, payload=excluded.payload`,
		alert.ID, alert.PortfolioID, ack, alert.CreatedAt.Unix(), string(payload),
	)
	return err
}

// GetAlert returns the alert with the given id
func (s *SQLiteStore) GetAlert(ctx context.Context, id string) (*types.Alert, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM alerts WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, &ErrNotFound{Kind: "alert", ID: id}
	}
	if err != nil {
		return nil, err
	}
	var alert types.Alert
	if err := jsonCodec.Unmarshal([]byte(payload), &alert); err != nil {
		return nil, fmt.Errorf("failed to deserialize alert %s: %w", id, err)
	}
	return &alert, nil
}

// ActiveAlerts returns unacknowledged alerts, newest first
func (s *SQLiteStore) ActiveAlerts(ctx context.Context, portfolioID string) ([]*types.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM alerts
		WHERE acknowledged = 0 AND (? = '' OR portfolio_id = ?)
		ORDER BY created_at DESC`, portfolioID, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Alert
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var alert types.Alert
		if err := jsonCodec.Unmarshal([]byte(payload), &alert); err != nil {
			return nil, err
		}
		out = append(out, &alert)
	}
	return out, rows.Err()
}

// AcknowledgeAlert marks an alert acknowledged
func (s *SQLiteStore) AcknowledgeAlert(ctx context.Context, id string) error {
	alert, err := s.GetAlert(ctx, id)
	if err != nil {
		return err
	}
	alert.Acknowledged = true
	return s.SaveAlert(ctx, alert)
}

// EvictBefore drops alerts created before the cutoff (unix seconds)
func (s *SQLiteStore) EvictBefore(ctx context.Context, cutoff int64) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

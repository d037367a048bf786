package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// excelStyles holds the style ids used across sheets
type excelStyles struct {
	header int
	money  int
	pct    int
}

// WriteRiskXLSX writes a portfolio risk workbook: a summary sheet,
// a positions sheet, and an orders sheet.
func WriteRiskXLSX(portfolio *types.Portfolio, metrics types.RiskMetrics, orders []*types.Order, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Risk Summary"
	const positionsSheet = "Positions"
	const ordersSheet = "Orders"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	fx.NewSheet(positionsSheet)
	fx.NewSheet(ordersSheet)

	styles, err := createStyles(fx)
	if err != nil {
		return err
	}

	if err := writeSummarySheet(fx, summarySheet, portfolio, metrics, styles); err != nil {
		return err
	}
	if err := writePositionsSheet(fx, positionsSheet, portfolio, styles); err != nil {
		return err
	}
	if err := writeOrdersSheet(fx, ordersSheet, orders, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func createStyles(fx *excelize.File) (excelStyles, error) {
	header, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return excelStyles{}, err
	}
	money, err := fx.NewStyle(&excelize.Style{NumFmt: 177}) // $#,##0.00
	if err != nil {
		return excelStyles{}, err
	}
	pct, err := fx.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	if err != nil {
		return excelStyles{}, err
	}
	return excelStyles{header: header, money: money, pct: pct}, nil
}

func writeSummarySheet(fx *excelize.File, sheet string, portfolio *types.Portfolio, metrics types.RiskMetrics, styles excelStyles) error {
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Portfolio", portfolio.ID},
		{"Total Value", portfolio.TotalValue},
		{"Cash Balance", portfolio.CashBalance},
		{"VaR 95%", metrics.VaR95},
		{"VaR 99%", metrics.VaR99},
		{"Expected Shortfall", metrics.ExpectedShortfall},
		{"Beta", metrics.Beta},
		{"Correlation Risk", metrics.CorrelationRisk},
		{"Concentration Risk", metrics.ConcentrationRisk},
		{"Liquidity Risk", metrics.LiquidityRisk},
		{"Greeks Risk Score", metrics.GreeksRiskScore},
		{"Volatility", metrics.Volatility},
		{"Sharpe Ratio", metrics.SharpeRatio},
		{"Sortino Ratio", metrics.SortinoRatio},
		{"Calmar Ratio", metrics.CalmarRatio},
		{"Max Drawdown", metrics.MaxDrawdown},
		{"Stress: Market -10%", metrics.Stress.MarketDown10},
		{"Stress: Market -20%", metrics.Stress.MarketDown20},
		{"Stress: Market +10%", metrics.Stress.MarketUp10},
		{"Stress: Market +20%", metrics.Stress.MarketUp20},
		{"Stress: Vol Shock", metrics.Stress.VolShock},
		{"Synthetic Returns", metrics.Synthetic},
		{"Degraded Benchmark", metrics.Degraded},
		{"Computed At", metrics.Timestamp.Format("2006-01-02 15:04:05")},
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	fx.SetCellStyle(sheet, "A1", "B1", styles.header)
	fx.SetColWidth(sheet, "A", "A", 24)
	fx.SetColWidth(sheet, "B", "B", 20)
	return nil
}

func writePositionsSheet(fx *excelize.File, sheet string, portfolio *types.Portfolio, styles excelStyles) error {
	header := []interface{}{"Symbol", "Kind", "Side", "Quantity", "Entry", "Current", "Market Value", "Unrealized P&L", "Opened"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	fx.SetCellStyle(sheet, "A1", "I1", styles.header)

	for i, p := range portfolio.OpenPositions() {
		row := []interface{}{
			p.Symbol, string(p.Kind), string(p.Side), p.Quantity,
			p.EntryPrice, p.CurrentPrice, p.MarketValue(), p.UnrealizedPnL,
			p.OpenDate.Format("2006-01-02"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	fx.SetColWidth(sheet, "A", "A", 22)
	return nil
}

func writeOrdersSheet(fx *excelize.File, sheet string, orders []*types.Order, styles excelStyles) error {
	header := []interface{}{"Order ID", "Symbol", "Side", "Qty", "Type", "Status", "Filled Qty", "Filled Price", "Broker", "Submitted"}
	if err := fx.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	fx.SetCellStyle(sheet, "A1", "J1", styles.header)

	for i, o := range orders {
		row := []interface{}{
			o.ID, o.Symbol, string(o.Side), o.Quantity, string(o.Kind),
			string(o.Status), o.FilledQty, o.FilledPrice, o.Broker,
			o.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	fx.SetColWidth(sheet, "A", "A", 28)
	return nil
}

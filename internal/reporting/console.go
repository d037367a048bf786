package reporting

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// PrintRiskReport renders a portfolio risk snapshot as console tables
func PrintRiskReport(portfolio *types.Portfolio, metrics types.RiskMetrics) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("PORTFOLIO RISK REPORT")
	t.SetStyle(table.StyleRounded)

	flags := ""
	if metrics.Synthetic {
		flags += " (synthetic returns)"
	}
	if metrics.Degraded {
		flags += " (degraded benchmark)"
	}

	t.AppendRows([]table.Row{
		{"💼 Portfolio", portfolio.ID},
		{"💰 Total Value", fmt.Sprintf("$%.2f", portfolio.TotalValue)},
		{"💵 Cash", fmt.Sprintf("$%.2f", portfolio.CashBalance)},
		{"📊 Open Positions", len(portfolio.OpenPositions())},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"📉 VaR 95%", fmt.Sprintf("$%.2f%s", metrics.VaR95, flags)},
		{"📉 VaR 99%", fmt.Sprintf("$%.2f", metrics.VaR99)},
		{"📉 Expected Shortfall", fmt.Sprintf("$%.2f", metrics.ExpectedShortfall)},
		{"📈 Beta", fmt.Sprintf("%.2f", metrics.Beta)},
		{"📈 Sharpe", fmt.Sprintf("%.2f", metrics.SharpeRatio)},
		{"📈 Sortino", fmt.Sprintf("%.2f", metrics.SortinoRatio)},
		{"📉 Max Drawdown", fmt.Sprintf("%.1f%%", metrics.MaxDrawdown*100)},
		{"🎯 Concentration", fmt.Sprintf("%.1f%%", metrics.ConcentrationRisk*100)},
		{"⚡ Greeks Risk", fmt.Sprintf("%.1f / 10", metrics.GreeksRiskScore)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, WidthMax: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()

	printStressTable(metrics.Stress)
	if len(portfolio.OpenPositions()) > 0 {
		printPositionsTable(portfolio)
	}
}

func printStressTable(stress types.StressResults) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("STRESS SCENARIOS")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Scenario", "P&L Impact"})
	t.AppendRows([]table.Row{
		{"Market -10%", fmt.Sprintf("$%.2f", stress.MarketDown10)},
		{"Market -20%", fmt.Sprintf("$%.2f", stress.MarketDown20)},
		{"Market +10%", fmt.Sprintf("$%.2f", stress.MarketUp10)},
		{"Market +20%", fmt.Sprintf("$%.2f", stress.MarketUp20)},
		{"Vol Shock +50%", fmt.Sprintf("$%.2f", stress.VolShock)},
	})

	t.Render()
	fmt.Println()
}

func printPositionsTable(portfolio *types.Portfolio) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("OPEN POSITIONS")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Symbol", "Kind", "Qty", "Entry", "Current", "Value", "Unrealized P&L"})
	for _, p := range portfolio.OpenPositions() {
		t.AppendRow(table.Row{
			p.Symbol,
			p.Kind,
			p.Quantity,
			fmt.Sprintf("$%.2f", p.EntryPrice),
			fmt.Sprintf("$%.2f", p.CurrentPrice),
			fmt.Sprintf("$%.2f", p.MarketValue()),
			fmt.Sprintf("$%.2f", p.UnrealizedPnL),
		})
	}

	t.Render()
	fmt.Println()
}

// PrintAlerts renders active alerts as a console table
func PrintAlerts(alerts []*types.Alert) {
	if len(alerts) == 0 {
		fmt.Println("✅ No active alerts")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("ACTIVE ALERTS")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Severity", "Metric", "Current", "Limit", "Message"})
	for _, a := range alerts {
		t.AppendRow(table.Row{
			string(a.Severity),
			a.Metric,
			fmt.Sprintf("%.2f", a.CurrentValue),
			fmt.Sprintf("%.2f", a.Threshold),
			a.Message,
		})
	}

	t.Render()
	fmt.Println()
}

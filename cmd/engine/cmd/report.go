package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ducminhle1904/options-risk-engine/internal/reporting"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a portfolio risk report",
	Long: `Compute the current risk snapshot for a portfolio and print it
as console tables. With --xlsx, also write an Excel workbook with
summary, positions, and order-history sheets.

Example:
  risk-engine report --portfolio main --xlsx results/risk.xlsx`,
	RunE: runReport,
}

var (
	reportPortfolioID string
	reportXLSXPath    string
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportPortfolioID, "portfolio", "p", "default", "portfolio id to report on")
	reportCmd.Flags().StringVar(&reportXLSXPath, "xlsx", "", "write an Excel workbook to this path")
}

func runReport(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	metrics, err := app.eng.GetPortfolioRisk(ctx, reportPortfolioID)
	if err != nil {
		return err
	}
	portfolio, err := app.eng.GetPortfolio(ctx, reportPortfolioID)
	if err != nil {
		return err
	}

	reporting.PrintRiskReport(portfolio, metrics)

	alerts, err := app.eng.GetActiveAlerts(ctx, reportPortfolioID)
	if err != nil {
		return err
	}
	reporting.PrintAlerts(alerts)

	if reportXLSXPath != "" {
		orders, err := app.eng.ListOrders(ctx, reportPortfolioID)
		if err != nil {
			return err
		}
		if err := reporting.WriteRiskXLSX(portfolio, metrics, orders, reportXLSXPath); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		fmt.Printf("📄 Excel report written to %s\n", reportXLSXPath)
	}
	return nil
}

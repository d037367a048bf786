package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ducminhle1904/options-risk-engine/internal/api"
	"github.com/ducminhle1904/options-risk-engine/internal/storage"
	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine daemon",
	Long: `Run the engine as a daemon: the risk monitor cycles on its
configured interval and the HTTP API serves operator requests.

Example:
  risk-engine run --portfolio main --cash 1000000`,
	RunE: runRun,
}

var (
	runPortfolioID string
	runInitialCash float64
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runPortfolioID, "portfolio", "p", "default", "portfolio id to monitor")
	runCmd.Flags().Float64Var(&runInitialCash, "cash", 1000000, "initial cash when the portfolio does not exist yet")
}

func runRun(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ensurePortfolio(ctx, app, runPortfolioID, runInitialCash); err != nil {
		return err
	}

	go app.eng.MonitorLoop(ctx, runPortfolioID, app.cfg.Risk.MonitorInterval)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.cfg.Monitoring.APIPort),
		Handler:      api.NewRouter(app.eng, app.health, app.log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		app.log.Info("HTTP API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	fmt.Printf("Risk engine running (portfolio %s, API on %s). Ctrl-C to stop.\n", runPortfolioID, server.Addr)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		app.log.LogError("http server", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.log.LogError("http shutdown", err)
	}
	app.log.Info("Shutdown complete")
	return nil
}

// ensurePortfolio bootstraps an empty portfolio on first run
func ensurePortfolio(ctx context.Context, app *app, portfolioID string, cash float64) error {
	_, err := app.store.GetPortfolio(ctx, portfolioID)
	if err == nil {
		return nil
	}
	var notFound *storage.ErrNotFound
	if !errors.As(err, &notFound) {
		return err
	}

	portfolio := &types.Portfolio{
		ID:          portfolioID,
		CashBalance: cash,
		TotalValue:  cash,
		UpdatedAt:   time.Now(),
	}
	if err := app.store.SavePortfolio(ctx, portfolio); err != nil {
		return err
	}
	app.log.Info("Bootstrapped portfolio %s with $%.2f cash", portfolioID, cash)
	return nil
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/govairn/govairn-backend/internal/app"
	"github.com/govairn/govairn-backend/internal/services"
)

var noWorker bool

// serveCmd runs the HTTP API, with the queue worker in-process unless disabled.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if !noWorker {
				a.Start(ctx)
			}
			return a.Run(ctx)
		})
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Drain the AI processing queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			a.Log.Info("Queue worker running", "concurrency", a.Cfg.WorkerConcurrency)
			a.Services.Worker.Start(ctx)
			<-ctx.Done()
			a.Services.Worker.Wait()
			return nil
		})
	},
}

var (
	syncSpace string
	syncState string
)

// syncCmd is the externally-triggered proposal sync.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull proposals from Snapshot and enqueue active ones",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			var reports []services.SyncReport
			if syncSpace != "" {
				r, err := a.Services.Sync.SyncSpace(ctx, syncSpace, syncState)
				if err != nil {
					return err
				}
				reports = append(reports, r)
			} else {
				rs, err := a.Services.Sync.SyncAll(ctx)
				if err != nil {
					return err
				}
				reports = rs
			}
			for _, r := range reports {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: active=%d closed=%d pending=%d total=%d upserted=%d enqueued=%d truncated=%v\n",
					r.Space, r.Active, r.Closed, r.Pending, r.Total, r.Upserted, r.Enqueued, r.Truncated)
			}
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// app.New migrates on startup.
		return withApp(cmd, func(_ context.Context, a *app.App) error {
			a.Log.Info("Migrations applied")
			return nil
		})
	},
}

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token <wallet>",
	Short: "Issue a session token for a wallet address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			u, err := a.Services.User.FindOrCreateByWallet(ctx, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			token, err := a.Services.Auth.Issue(u.ID, u.WalletAddress)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		})
	},
}

func init() {
	serveCmd.Flags().BoolVar(&noWorker, "no-worker", false, "do not run the queue worker in-process")
	syncCmd.Flags().StringVar(&syncSpace, "space", "", "sync a single space instead of SNAPSHOT_SPACES")
	syncCmd.Flags().StringVar(&syncState, "state", "all", "proposal state: active, closed, pending or all")
}

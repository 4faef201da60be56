package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"

	"github.com/nolasundae/hofmirror/internal/utils"
)

// watchCmd implements: hofmirror watch
//
// Runs the sync on a fixed interval until interrupted. The Hall of Fame
// gains at most a handful of entries per week, so the default cadence is
// generous.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync the leaderboard on a fixed interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sched, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = sched.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() {
				if err := runSyncOnce(cmd); err != nil {
					utils.Log.Errorf("Sync failed: %v", err)
				}
			}),
			gocron.WithStartAt(gocron.WithStartImmediately()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}

		sched.Start()
		utils.Log.Infof("Watching, syncing every %s. Ctrl+C to stop.", interval)

		<-ctx.Done()
		utils.Log.Info("Shutting down scheduler...")
		return sched.Shutdown()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("interval", 6*time.Hour, "Time between syncs")
	watchCmd.Flags().String("url", "", "Leaderboard page URL (default: source.url from config)")
	watchCmd.Flags().Duration("timeout", 30*time.Second, "HTTP request timeout")
	watchCmd.Flags().Bool("ai-fallback", true, "Use the LLM extractor when the structural parse fails (needs openai.api_key)")
	watchCmd.Flags().BoolP("json", "j", false, "Print each invocation summary as JSON")
}

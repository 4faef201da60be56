package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nolasundae/hofmirror/internal/utils"
	"github.com/nolasundae/hofmirror/pkg/ai"
	"github.com/nolasundae/hofmirror/pkg/fetch"
	"github.com/nolasundae/hofmirror/pkg/pipeline"
	"github.com/nolasundae/hofmirror/pkg/storage"
)

// syncCmd implements: hofmirror sync
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the leaderboard once and save new entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'hofmirror sync --help'", args[0])
		}
		return runSyncOnce(cmd)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("url", "", "Leaderboard page URL (default: source.url from config)")
	syncCmd.Flags().Duration("timeout", 30*time.Second, "HTTP request timeout")
	syncCmd.Flags().Bool("ai-fallback", true, "Use the LLM extractor when the structural parse fails (needs openai.api_key)")
	syncCmd.Flags().BoolP("json", "j", false, "Print the invocation summary as JSON")
}

// runSyncOnce runs one full mirror invocation. Shared by sync and watch.
func runSyncOnce(cmd *cobra.Command) error {
	pageURL, _ := cmd.Flags().GetString("url")
	if pageURL == "" {
		pageURL = viper.GetString("source.url")
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	aiFallback, _ := cmd.Flags().GetBool("ai-fallback")
	asJSON, _ := cmd.Flags().GetBool("json")
	proxy, _ := rootCmd.PersistentFlags().GetString("proxy")
	dbPath, _ := rootCmd.PersistentFlags().GetString("dbpath")

	absPath, err := utils.AbsDBPath(dbPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("could not create database directory: %w", err)
	}

	lock, err := utils.NewDBLock(absPath)
	if err != nil {
		return err
	}
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	db, err := storage.Open(absPath)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := fetch.New(fetch.Options{Timeout: timeout, Proxy: proxy})
	if err != nil {
		return err
	}

	var fallback ai.Extractor
	if aiFallback {
		apiKey := viper.GetString("openai.api_key")
		if apiKey == "" {
			utils.Log.Debug("No openai.api_key in config, LLM fallback disabled")
		} else {
			fallback, err = ai.NewExtractor(ai.Config{
				APIKey: apiKey,
				Model:  viper.GetString("openai.model"),
			})
			if err != nil {
				return err
			}
		}
	}

	res, err := pipeline.Run(cmd.Context(), pipeline.Config{
		URL:      pageURL,
		Fetcher:  client,
		Store:    db,
		Fallback: fallback,
		Log:      utils.Log,
	})
	if err != nil {
		if asJSON {
			printJSON(pipeline.NewFailure(err))
		}
		return err
	}

	if asJSON {
		printJSON(res)
	} else {
		fmt.Printf("Processed %d entries, saved %d new (skipped %d rows). Highest participant number: %d\n",
			res.TotalProcessed, res.NewEntriesSaved, res.SkippedRows, res.HighestNumberFound)
	}
	return nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

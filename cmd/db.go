package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nolasundae/hofmirror/internal/utils"
	"github.com/nolasundae/hofmirror/pkg/storage"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the hofmirror database",
}

// dbShellCmd represents the shell command
var dbShellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", dbPath)
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		// Print schema first
		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, dbPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, dbPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// dbStatsCmd represents the stats command
var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics about the mirrored entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openExistingDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(context.Background())
		if err != nil {
			return err
		}

		if stats.TotalEntries == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "METRIC\tCOUNT\t")
		fmt.Fprintf(w, "Total entries\t%d\t\n", stats.TotalEntries)
		fmt.Fprintf(w, "With notes\t%d\t\n", stats.WithNotes)
		fmt.Fprintf(w, "With age\t%d\t\n", stats.WithAge)
		fmt.Fprintf(w, "With elapsed time\t%d\t\n", stats.WithElapsedTime)
		fmt.Fprintf(w, "With completion count\t%d\t\n", stats.WithCompletion)
		fmt.Fprintf(w, "Highest participant number\t%d\t\n", stats.HighWaterMark)
		w.Flush()

		return nil
	},
}

// dbClearCmd represents the clear command
var dbClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all mirrored entries and reset the id sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openExistingDB()
		if err != nil {
			return err
		}
		defer db.Close()

		count, err := db.CountEntries(context.Background())
		if err != nil {
			return err
		}
		if count == 0 {
			fmt.Println("Database is already empty.")
			return nil
		}

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			fmt.Printf("This will delete all %d entries. Type 'yes' to confirm: ", count)
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.TrimSpace(answer) != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		deleted, err := db.ClearEntries(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d entries.\n", deleted)
		return nil
	},
}

// dbReparseCmd represents the reparse command
var dbReparseCmd = &cobra.Command{
	Use:   "reparse",
	Short: "Re-run the name parser over all stored entries",
	Long: `Re-runs the name parser over the preserved original name of every
stored entry and updates rows whose derived attributes changed. Useful
after parser improvements, without re-scraping the site.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openExistingDB()
		if err != nil {
			return err
		}
		defer db.Close()

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			changes, err := db.PreviewReparse(context.Background())
			if err != nil {
				return err
			}
			if len(changes) == 0 {
				fmt.Println("All entries already match the current parser.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "#\tNAME\tNOTES\t")
			for _, c := range changes {
				fmt.Fprintf(w, "%d\t%q -> %q\t%q -> %q\t\n", c.ParticipantNumber, c.OldName, c.NewName, c.OldNotes, c.NewNotes)
			}
			w.Flush()
			fmt.Printf("%d entries would change. Run without --dry-run to apply.\n", len(changes))
			return nil
		}

		changed, err := db.ReparseEntries(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Reparsed all entries, %d changed.\n", changed)
		return nil
	},
}

func resolveDBPath() (string, error) {
	dbPath, _ := rootCmd.PersistentFlags().GetString("dbpath")
	return utils.AbsDBPath(dbPath)
}

func openExistingDB() (*storage.DB, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database file not found: %s", dbPath)
	}
	return storage.Open(dbPath)
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbShellCmd)
	dbCmd.AddCommand(dbStatsCmd)
	dbCmd.AddCommand(dbClearCmd)
	dbCmd.AddCommand(dbReparseCmd)

	dbClearCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	dbReparseCmd.Flags().Bool("dry-run", false, "Show what would change without writing")
}

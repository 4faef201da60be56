package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nolasundae/hofmirror/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the mirrored entries over a read-only JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")

		db, err := openExistingDB()
		if err != nil {
			return err
		}
		defer db.Close()

		s := server.New(db, viper.GetString("server.username"), viper.GetString("server.password"))
		return s.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
}

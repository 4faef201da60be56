package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/nolasundae/hofmirror/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	 _           __           _
	| |__   ___ / _|_ __ ___ (_)_ __ _ __ ___  _ __
	| '_ \ / _ \ |_| '_ ` + "`" + ` _ \| | '__| '__/ _ \| '__|
	| | | | (_) |  _| | | | | | | |  | | | (_) | |
	|_| |_|\___/|_| |_| |_| |_|_|_|  |_|  \___/|_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hofmirror",
	Short: "Mirror the Creole Creamery Hall of Fame into a local database.",
	Long: LOGO + `hofmirror scrapes the Tchoupitoulas Challenge leaderboard, parses each
entry's name, embedded notes, and date, and keeps a local SQLite mirror
up to date incrementally.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.hofmirror.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/hofmirror/hofmirror.sqlite)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".hofmirror")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.hofmirror.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Set default empty values for all keys
	viper.SetDefault("source.url", "https://creolecreamery.com/hall-of-fame/")
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

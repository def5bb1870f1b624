package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blumenshine/rankwatch/internal/utils"
	"github.com/blumenshine/rankwatch/pkg/api"
	"github.com/blumenshine/rankwatch/pkg/keywords"
	"github.com/blumenshine/rankwatch/pkg/tracker"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rankwatch",
	Short: "Track where your keywords rank, from the command line.",
	Long: `rankwatch talks to a keyword rank tracker backend: add keywords in bulk,
list their current search positions, inspect ranking trends and keep a local
history of every movement.`,
	SilenceUsage: true,
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
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rankwatch.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("api", "", "Tracker backend base URL (overrides api.url)")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/rankwatch/rankwatch.sqlite)")
	rootCmd.PersistentFlags().Bool("no-db", false, "Do not read or write the local database")

	viper.BindPFlag("api.url", rootCmd.PersistentFlags().Lookup("api"))
	viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("dbpath"))
}

// setDefaults registers every config key with its default value.
func setDefaults() {
	viper.SetDefault("api.url", api.DEFAULT_BASE_URL)
	viper.SetDefault("api.timeout", 10*time.Second)
	viper.SetDefault("api.retries", 2)
	viper.SetDefault("bulk.concurrency", tracker.DefaultConcurrency)
	viper.SetDefault("refresh.delay", tracker.DefaultRefreshDelay)
	viper.SetDefault("history.days", keywords.DefaultHistoryDays)
	viper.SetDefault("tracker.target_domain", "")
	viper.SetDefault("db.path", "")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".rankwatch")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("RANKWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.rankwatch.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

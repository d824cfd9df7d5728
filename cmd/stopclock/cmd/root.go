package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/b-open-io/stopclock/config"
	"github.com/b-open-io/stopclock/internal/logging"
)

var (
	cfgFile  string
	settings *config.Settings
	logClose io.Closer
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stopclock",
	Short: "Don't stop the clock",
	Long: `stopclock counts the time since someone last stopped the clock.

Run "stopclock serve" to host the clock, "stopclock watch" to follow it
from a terminal, and "stopclock stop" to stop it.`,
	SilenceUsage:       true,
	PersistentPreRunE:  loadSettings,
	PersistentPostRunE: closeLog,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.stopclock/config.yaml)")
	flags.String("server", "", "stopclock server URL (default http://localhost:8000)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("log-file", "", "write logs to a rotating file instead of stderr")

	viper.BindPFlag("client.server_url", flags.Lookup("server"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.format", flags.Lookup("log-format"))
	viper.BindPFlag("log.file", flags.Lookup("log-file"))
}

// initConfig reads in the .env file, the config file and ENV variables if set
func initConfig() {
	// .env is optional
	godotenv.Load(".env")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".stopclock"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
}

func loadSettings(cmd *cobra.Command, args []string) error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	s, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	settings = s

	closer, err := logging.Setup(s.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logClose = closer
	return nil
}

func closeLog(cmd *cobra.Command, args []string) error {
	if logClose != nil {
		return logClose.Close()
	}
	return nil
}

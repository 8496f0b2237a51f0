package cmd

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "readar"
)

type Config struct {
	APIURL      string         `mapstructure:"api-url"`
	IdentityURL string         `mapstructure:"identity-url"`
	UserAgent   string         `mapstructure:"user-agent"`
	SessionFile string         `mapstructure:"session-file"`
	StoreFile   string         `mapstructure:"store-file"`
	Engine      *EngineConfig  `mapstructure:"engine"`
	Filters     *FiltersConfig `mapstructure:"filters"`
	AI          *AIConfig      `mapstructure:"ai"`
}

type EngineConfig struct {
	Limit         int  `mapstructure:"limit"`
	PreviewDirect bool `mapstructure:"preview-direct"`
}

type FiltersConfig struct {
	MinScore  float64  `mapstructure:"min-score"`
	Languages []string `mapstructure:"languages"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "readar is a simple cli that surveys your reading taste and fetches book recommendations",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("session-file", "READAR_SESSION_FILE"); err != nil {
		log.Fatalf("binding READAR_SESSION_FILE environment variable: %v", err)
	}

	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is readar.yaml in the current directory or ~/.readar)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, "."+app))
		}
		viper.SetConfigName(app)
	}

	// The cli works without a config file. A broken or explicitly requested
	// one is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}

		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}

	return config, nil
}

// dataPath places a file under the per-user data directory, falling back to
// the bare name when the home directory cannot be resolved.
func dataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}

	return filepath.Join(home, "."+app, name)
}

func storePath(config *Config) string {
	if f := strings.TrimSpace(config.StoreFile); f != "" {
		return f
	}

	return dataPath(app + ".db")
}

// sessionPath checks viper directly as well since env-only values do not
// survive viper.Unmarshal.
func sessionPath(config *Config) string {
	if f := strings.TrimSpace(config.SessionFile); f != "" {
		return f
	}

	if f := strings.TrimSpace(viper.GetString("session-file")); f != "" {
		return f
	}

	return dataPath("session.json")
}

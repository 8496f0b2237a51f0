package cmd

import (
	"context"
	"log"

	"github.com/beldeezy/readar-sub000/internal/logger"
	"github.com/beldeezy/readar-sub000/internal/session"
	"github.com/beldeezy/readar-sub000/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Revoke the current session and clear session-scoped local state",
	Run: func(_ *cobra.Command, _ []string) {
		runSignout()
	},
}

func init() {
	rootCmd.AddCommand(signoutCmd)
}

func runSignout() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	provider := session.NewProvider(logger, sessionPath(config))
	if config.IdentityURL != "" {
		provider.IdentityURL = config.IdentityURL
	}
	if config.UserAgent != "" {
		provider.UserAgent = config.UserAgent
	}

	if err := provider.SignOut(ctx); err != nil {
		logger.Fatal("signing out", zap.Error(err))
	}

	st, err := store.Open(storePath(config), logger)
	if err != nil {
		logger.Fatal("opening the local store", zap.Error(err))
	}
	defer st.Close()

	if err := st.InvalidateSession(ctx); err != nil {
		logger.Fatal("clearing session-scoped state", zap.Error(err))
	}

	logger.Info("signed out", zap.String("note", "an unfinished survey draft stays on this machine"))
}

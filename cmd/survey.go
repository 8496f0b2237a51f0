package cmd

import (
	"context"
	"log"

	"github.com/beldeezy/readar-sub000/internal/api"
	"github.com/beldeezy/readar-sub000/internal/logger"
	"github.com/beldeezy/readar-sub000/internal/session"
	"github.com/beldeezy/readar-sub000/internal/store"
	"github.com/beldeezy/readar-sub000/internal/survey"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var surveyCmd = &cobra.Command{
	Use:   "survey",
	Short: "Fill in or resume the reading-taste survey without running the full flow",
	Run: func(cmd *cobra.Command, _ []string) {
		runSurvey(cmd)
	},
}

func init() {
	rootCmd.AddCommand(surveyCmd)

	surveyCmd.Flags().Bool("fresh", false, "discard the stored draft and start over")
}

func runSurvey(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	st, err := store.Open(storePath(config), logger)
	if err != nil {
		logger.Fatal("opening the local store", zap.Error(err))
	}
	defer st.Close()

	observer := session.NewObserver(sessionPath(config), logger)
	defer observer.Close()

	client := api.New(logger, observer.Token)
	if config.APIURL != "" {
		client.APIURL = config.APIURL
	}
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	var draft *api.Draft
	if cmd.Flag("fresh").Value.String() != "true" {
		stored, found, err := st.Draft(ctx)
		if err != nil {
			logger.Fatal("reading the stored draft", zap.Error(err))
		}
		if found {
			draft = stored
		}
	}

	runner := survey.New(&survey.Deps{Store: st, Catalog: client, Logger: logger})
	if _, err := runner.Run(ctx, draft); err != nil {
		logger.Fatal("running the survey", zap.Error(err))
	}

	// The answers changed even when the draft-present bit did not; forget
	// the last handled scenario so the next run acts on them.
	if err := st.ClearFingerprint(ctx); err != nil {
		logger.Fatal("forgetting the last scenario", zap.Error(err))
	}

	logger.Info("draft saved", zap.String("hint", "run 'readar run' to get recommendations"))
}

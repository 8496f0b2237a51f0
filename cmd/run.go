package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/beldeezy/readar-sub000/internal/ai"
	"github.com/beldeezy/readar-sub000/internal/ai/gemini"
	"github.com/beldeezy/readar-sub000/internal/api"
	"github.com/beldeezy/readar-sub000/internal/filtering"
	"github.com/beldeezy/readar-sub000/internal/logger"
	"github.com/beldeezy/readar-sub000/internal/navigator"
	"github.com/beldeezy/readar-sub000/internal/reconcile"
	"github.com/beldeezy/readar-sub000/internal/secrets"
	"github.com/beldeezy/readar-sub000/internal/session"
	"github.com/beldeezy/readar-sub000/internal/store"
	"github.com/beldeezy/readar-sub000/internal/survey"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptRetry  = "Retry"
	PromptQuit   = "Quit"
	PromptResend = "Send a new link"

	defaultRecommendLimit = 10

	// settleWait bounds how long a finished pass waits for a session
	// transition before declaring there is nothing left to do.
	settleWait = 3 * time.Second

	// verifyTimeout bounds the whole email-link verification exchange.
	verifyTimeout = 15 * time.Minute
)

var errExit = errors.New("exit requested")

var retryPrompt = promptui.Select{
	Label: "Something went wrong. Try again?",
	Items: []string{PromptRetry, PromptQuit},
}

var expiredPrompt = promptui.Select{
	Label: "The link expired before it was clicked. Send a new one?",
	Items: []string{PromptResend, PromptQuit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the readar main command",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntP("limit", "l", defaultRecommendLimit, "how many recommendations to request")
	runCmd.Flags().Bool("refresh", false, "forget the last handled scenario and reconcile again")
	runCmd.Flags().Bool("include-rated", false, "keep books rated during the survey in the results")
	runCmd.Flags().StringP("shelf-file", "e", "", "shelf export file with books to drop from results. Default is unset.")

	viper.BindPFlag("shelf-file", runCmd.Flags().Lookup("shelf-file"))
}

// flow bundles the wired pieces the interactive loop hands around.
type flow struct {
	config   *Config
	store    *store.Store
	engine   *reconcile.Engine
	term     *navigator.Terminal
	provider *session.Provider
	runner   *survey.Runner
	refine   func(*api.ResultSet) *api.ResultSet
	logger   *zap.Logger
	limit    int
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the readar", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	st, err := store.Open(storePath(config), logger)
	if err != nil {
		logger.Fatal("opening the local store", zap.Error(err))
	}
	defer st.Close()

	observer := session.NewObserver(sessionPath(config), logger)
	if err := observer.Start(ctx); err != nil {
		logger.Fatal("watching the session file", zap.Error(err))
	}
	defer observer.Close()

	client := api.New(logger, observer.Token)
	if config.APIURL != "" {
		client.APIURL = config.APIURL
	}
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	provider := session.NewProvider(logger, sessionPath(config))
	if config.IdentityURL != "" {
		provider.IdentityURL = config.IdentityURL
	}
	if config.UserAgent != "" {
		provider.UserAgent = config.UserAgent
	}

	term := navigator.NewTerminal(logger)
	term.RefineResults = prepareRefiner(ctx, cmd, config, st, logger)

	engine := reconcile.New(engineConfig(config), reconcile.Deps{
		Store:    st,
		Sessions: observer,
		Client:   client,
		Nav:      term,
		Logger:   logger,
	})
	defer engine.Close()

	f := &flow{
		config:   config,
		store:    st,
		engine:   engine,
		term:     term,
		provider: provider,
		runner:   survey.New(&survey.Deps{Store: st, Catalog: client, Logger: logger}),
		refine:   term.RefineResults,
		logger:   logger,
		limit:    engineLimit(cmd, config),
	}

	if err := f.ensureDraft(ctx, observer); err != nil {
		logger.Fatal("running the survey", zap.Error(err))
	}

	if cmd.Flag("refresh").Value.String() == "true" {
		if err := st.ClearFingerprint(ctx); err != nil {
			logger.Fatal("forgetting the last scenario", zap.Error(err))
		}
	}

	transitions, err := observer.Subscribe(ctx)
	if err != nil {
		logger.Fatal("subscribing to session transitions", zap.Error(err))
	}

	lastSeq := 0
	for {
		f.engine.Reconcile(ctx, f.limit)

		visit, ok := f.term.Last()
		if !ok || visit.Seq == lastSeq {
			if !waitForTransition(transitions, logger) {
				return
			}
			continue
		}
		lastSeq = visit.Seq

		if err := f.handleVisit(ctx, visit); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// ensureDraft runs the survey up front when the visitor plainly needs one:
// nobody signed in, no complete draft, no memo of an existing profile.
func (f *flow) ensureDraft(ctx context.Context, observer *session.Observer) error {
	if observer.Current().Verified() {
		return nil
	}

	draft, found, err := f.store.Draft(ctx)
	if err != nil {
		return err
	}
	if found && draft.Complete() {
		return nil
	}

	memo, err := f.store.Existence(ctx)
	if err != nil {
		return err
	}
	if !found && memo == store.ExistenceExists {
		// Signing back in unlocks the persisted profile, no survey needed.
		return nil
	}

	_, err = f.runner.Run(ctx, draft)
	return err
}

// waitForTransition gives the session observer a moment to deliver a change
// when the last pass produced nothing new.
func waitForTransition(transitions <-chan session.Session, logger *zap.Logger) bool {
	select {
	case sess, ok := <-transitions:
		if !ok {
			return false
		}
		logger.Info("session changed", zap.String("state", string(sess.State)))
		return true
	case <-time.After(settleWait):
		logger.Info("nothing changed since the last run", zap.String("hint", "pass --refresh to walk the flow again"))
		return false
	}
}

func (f *flow) handleVisit(ctx context.Context, visit navigator.Visit) error {
	switch visit.Dest {
	case navigator.DestVerify:
		if set, found, err := f.store.Preview(ctx); err == nil && found {
			f.term.ShowPreview(set)
		}
		return f.signIn(ctx)
	case navigator.DestSurvey:
		draft, _, err := f.store.Draft(ctx)
		if err != nil {
			return err
		}
		_, err = f.runner.Run(ctx, draft)
		return err
	case navigator.DestResults:
		if set, ok := visit.Payload.(*api.ResultSet); ok {
			f.composeNotes(ctx, set)
		}
		return errExit
	case navigator.DestError:
		return f.offerRetry(ctx)
	default:
		return fmt.Errorf("invalid destination: %s", visit.Dest)
	}
}

// signIn walks the email-link verification exchange. Expired links can be
// reissued on the spot; a successful verification lands in the session file
// and the observer picks it up from there.
func (f *flow) signIn(ctx context.Context) error {
	email, err := promptEmail()
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	linkID, err := f.provider.RequestLink(waitCtx, email)
	if err != nil {
		return fmt.Errorf("requesting a sign-in link: %w", err)
	}

	f.logger.Info("sign-in link sent", zap.String("email", email))

	for {
		err := f.provider.AwaitVerification(waitCtx, linkID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, session.ErrLinkExpired) {
			return fmt.Errorf("waiting for verification: %w", err)
		}

		_, action, err := expiredPrompt.Run()
		if err != nil {
			return err
		}
		if action == PromptQuit {
			return errExit
		}

		linkID, err = f.provider.RequestLink(waitCtx, email)
		if err != nil {
			return fmt.Errorf("requesting a sign-in link: %w", err)
		}

		f.logger.Info("sign-in link sent", zap.String("email", email))
	}
}

func promptEmail() (string, error) {
	prompt := promptui.Prompt{
		Label:    "Email",
		Validate: validateEmail,
	}

	return prompt.Run()
}

func validateEmail(input string) error {
	if !strings.Contains(strings.TrimSpace(input), "@") {
		return errors.New("enter the email to sign in with")
	}
	return nil
}

func (f *flow) offerRetry(ctx context.Context) error {
	_, action, err := retryPrompt.Run()
	if err != nil {
		return err
	}

	if action == PromptQuit {
		f.logger.Info("exiting", zap.String("reason", "got quit from prompt"))
		return errExit
	}

	f.engine.Retry(ctx, f.limit)
	return nil
}

// composeNotes asks the AI assistant to annotate the final results. Best
// effort: any failure logs and the results stand on their own.
func (f *flow) composeNotes(ctx context.Context, set *api.ResultSet) {
	if f.config.AI == nil || !f.config.AI.Enabled || set.Len() == 0 {
		return
	}

	// The navigator refined its own copy for display; notes must describe
	// the same list the visitor saw.
	if f.refine != nil {
		set = f.refine(set)
	}
	if set.Len() == 0 {
		return
	}

	writer, err := newNotesWriter(ctx, f.config.AI, f.logger)
	if err != nil {
		f.logger.Warn("skipping reading notes", zap.Error(err))
		return
	}

	draft, found, err := f.store.Draft(ctx)
	if err != nil || !found {
		draft = nil
	}

	notes, err := writer.Compose(ctx, draft, set)
	if err != nil {
		f.logger.Warn("reading notes failed", zap.Error(err))
		return
	}

	renderNotes(f.term.Out, notes)
}

func renderNotes(out io.Writer, notes *ai.ReadingNotes) {
	color.New(color.FgMagenta, color.Bold).Fprintln(out, "\nReading notes")
	if notes.Summary != "" {
		fmt.Fprintln(out, notes.Summary)
	}
	for _, highlight := range notes.Highlights {
		fmt.Fprintf(out, "  - %s\n", highlight)
	}
}

func newNotesWriter(ctx context.Context, cfg *AIConfig, base *zap.Logger) (ai.NotesWriter, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	gcfg := cfg.Gemini
	if gcfg == nil {
		gcfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gcfg.APIKey,
		File:  resolveGeminiKeyFile(gcfg),
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithCommonFields(base, "gemini", gcfg.Model)

	generator, err := gemini.NewGenerator(ctx, apiKey, gcfg.Model, gcfg.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewNotesWriter(generator, genLogger, gcfg.MaxLogLength), nil
}

func resolveGeminiKeyFile(cfg *GeminiConfig) string {
	keyFile := strings.TrimSpace(cfg.APIKeyFile)
	if keyFile == "" {
		keyFile = strings.TrimSpace(viper.GetString("ai.gemini.api-key-file"))
	}

	return keyFile
}

// prepareRefiner wires the filtering pipeline into the terminal's refine
// hook. Refinement is best effort: when the pipeline fails the original set
// is rendered untouched.
func prepareRefiner(ctx context.Context, cmd *cobra.Command, config *Config, st *store.Store, logger *zap.Logger) func(*api.ResultSet) *api.ResultSet {
	steps := []filtering.Filter{
		filtering.NewRatedHistory(cmd),
		filtering.NewShelfFile(),
		filtering.NewMinScore(),
		filtering.NewLanguages(),
	}

	cfg := &filtering.Config{}
	if config.Filters != nil {
		cfg.MinScore = config.Filters.MinScore
		cfg.Languages = config.Filters.Languages
	}

	deps := filtering.Deps{Store: st, Logger: logger}

	return func(set *api.ResultSet) *api.ResultSet {
		refined, err := filtering.Run(ctx, cfg, deps, steps, set.Clone())
		if err != nil {
			logger.Warn("refinement skipped", zap.Error(err))
			return set
		}
		return refined
	}
}

func engineConfig(config *Config) reconcile.Config {
	if config.Engine == nil {
		return reconcile.Config{}
	}

	return reconcile.Config{PreviewDirect: config.Engine.PreviewDirect}
}

func engineLimit(cmd *cobra.Command, config *Config) int {
	limit := defaultRecommendLimit
	if config.Engine != nil && config.Engine.Limit > 0 {
		limit = config.Engine.Limit
	}

	if flag := cmd.Flag("limit"); flag != nil && flag.Changed {
		if v, err := cmd.Flags().GetInt("limit"); err == nil && v > 0 {
			limit = v
		}
	}

	return limit
}

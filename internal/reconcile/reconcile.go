// Package reconcile decides, at any moment, what the app should do next for
// the visitor: generate a no-auth preview, force identity verification,
// persist a locally-held draft exactly once, fetch the authoritative result,
// or surface an error. Every invocation ends in one Navigator call or an
// explicit no-op on a repeated scenario.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/beldeezy/readar-sub000/internal/api"
	"github.com/beldeezy/readar-sub000/internal/navigator"
	"github.com/beldeezy/readar-sub000/internal/session"
	"github.com/beldeezy/readar-sub000/internal/store"
)

// maxPasses bounds fall-through re-evaluation within one invocation
// (finalize falls through to fetch; mid-flight session changes re-decide).
const maxPasses = 4

const (
	causeBackendUnavailable = "backend unavailable"
	causeDraftRejected      = "draft rejected by the backend"
	causeStoreUnavailable   = "local store unavailable"
)

// action is what one reconciliation pass decided to do.
type action int

const (
	actNone action = iota
	actGeneratePreview
	actForceVerification
	actFinalizeDraft
	actFetchAuthoritative
	actResolveExistence
	actRequireSurvey
)

func (a action) String() string {
	switch a {
	case actGeneratePreview:
		return "generate_preview"
	case actForceVerification:
		return "force_verification"
	case actFinalizeDraft:
		return "finalize_draft"
	case actFetchAuthoritative:
		return "fetch_authoritative"
	case actResolveExistence:
		return "resolve_existence"
	case actRequireSurvey:
		return "require_survey"
	default:
		return "none"
	}
}

// SessionSource yields the current session snapshot. The engine re-reads it
// after every awaited backend call instead of trusting the one captured at
// entry.
type SessionSource interface {
	Current() session.Session
}

// ProfileClient is the backend surface the engine drives. *api.Client
// implements it; tests substitute fakes.
type ProfileClient interface {
	FetchProfile(ctx context.Context) (*api.RemoteProfile, error)
	PersistProfile(ctx context.Context, draft *api.Draft) (*api.RemoteProfile, error)
	FetchRecommendations(ctx context.Context, limit int) (*api.ResultSet, error)
	FetchPreview(ctx context.Context, draft *api.Draft, limit int) (*api.ResultSet, error)
}

// Config carries engine policy.
type Config struct {
	// PreviewDirect routes a successful preview straight to the results
	// destination instead of the verification prompt. Policy, not a
	// correctness requirement.
	PreviewDirect bool
}

// Deps aggregates the engine's collaborators.
type Deps struct {
	Store    *store.Store
	Sessions SessionSource
	Client   ProfileClient
	Nav      navigator.Navigator
	Logger   *zap.Logger
}

// Engine is the reconciliation state machine. One logical thread of control
// per instance: concurrent Reconcile calls serialize, and the fingerprint
// recorded in the store suppresses duplicates across instances.
type Engine struct {
	cfg      Config
	store    *store.Store
	sessions SessionSource
	client   ProfileClient
	nav      navigator.Navigator
	logger   *zap.Logger

	group  singleflight.Group
	mu     sync.Mutex
	closed atomic.Bool
}

func New(cfg Config, deps Deps) *Engine {
	return &Engine{
		cfg:      cfg,
		store:    deps.Store,
		sessions: deps.Sessions,
		client:   deps.Client,
		nav:      deps.Nav,
		logger:   deps.Logger,
	}
}

// Reconcile drives exactly one terminal action for the current scenario.
// Fire-and-forget: outcomes are observed via Navigator calls and store
// mutations. A scenario identical to the recorded one is a no-op.
func (e *Engine) Reconcile(ctx context.Context, limit int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for pass := 0; pass < maxPasses; pass++ {
		if !e.reconcileOnce(ctx, limit) {
			return
		}
	}
	e.logger.Warn("reconciliation did not settle", zap.Int("passes", maxPasses))
}

// Retry clears the recorded scenario and reconciles again. Manual retry is
// the only reset: a re-mounted caller never re-runs a scenario by accident.
func (e *Engine) Retry(ctx context.Context, limit int) {
	if err := e.store.ClearFingerprint(ctx); err != nil {
		e.logger.Error("fingerprint not cleared", zap.Error(err))
	}
	e.Reconcile(ctx, limit)
}

// Close flips the liveness flag. In-flight backend calls are not retracted,
// but their resolution no longer mutates the store or navigates.
func (e *Engine) Close() {
	e.closed.Store(true)
}

// reconcileOnce runs a single pass and reports whether the engine must
// re-evaluate (a fall-through or a session that changed mid-flight).
func (e *Engine) reconcileOnce(ctx context.Context, limit int) bool {
	if !e.alive(ctx) {
		return false
	}

	sess := e.sessions.Current()

	draft, hasDraft, err := e.store.Draft(ctx)
	if err != nil {
		e.fail(ctx, causeStoreUnavailable, err)
		return false
	}
	memo, err := e.store.Existence(ctx)
	if err != nil {
		e.fail(ctx, causeStoreUnavailable, err)
		return false
	}

	fp := Fingerprint(sess, hasDraft, limit)
	claimed, err := e.store.ClaimFingerprint(ctx, fp)
	if err != nil {
		e.fail(ctx, causeStoreUnavailable, err)
		return false
	}
	if !claimed {
		e.logger.Debug("scenario already handled", zap.String("fingerprint", fp))
		return false
	}

	act := decide(sess, hasDraft, memo)
	e.logger.Info("reconciling",
		zap.String("action", act.String()),
		zap.String("session", string(sess.State)),
		zap.Bool("draft", hasDraft),
		zap.Int("limit", limit),
	)

	switch act {
	case actGeneratePreview:
		return e.generatePreview(ctx, draft, limit)
	case actForceVerification:
		e.navigate(ctx, navigator.DestVerify, nil)
		return false
	case actFinalizeDraft:
		return e.finalizeDraft(ctx, sess, draft)
	case actFetchAuthoritative:
		return e.fetchAuthoritative(ctx, sess, limit)
	case actResolveExistence:
		return e.resolveExistence(ctx, sess, limit)
	case actRequireSurvey:
		e.navigate(ctx, navigator.DestSurvey, nil)
		return false
	default:
		return false
	}
}

// decide picks the pass's action from the three inputs. Kept pure so the
// decision table is testable without collaborators.
func decide(sess session.Session, hasDraft bool, memo store.Existence) action {
	if sess.Verified() {
		if hasDraft {
			return actFinalizeDraft
		}
		switch memo {
		case store.ExistenceExists:
			return actFetchAuthoritative
		case store.ExistenceAbsent:
			return actRequireSurvey
		default:
			return actResolveExistence
		}
	}

	if !hasDraft {
		return actForceVerification
	}
	if sess.Pending() && memo == store.ExistenceExists {
		// A confirmed profile already exists; previewing from the draft
		// would only delay the sign-in that unlocks it.
		return actForceVerification
	}
	return actGeneratePreview
}

// generatePreview fetches a no-auth preview from the draft, caches it and
// prompts for verification. The draft stays local.
func (e *Engine) generatePreview(ctx context.Context, draft *api.Draft, limit int) bool {
	set, err := e.client.FetchPreview(ctx, draft, limit)
	if err != nil {
		var verr *api.ValidationError
		if errors.As(err, &verr) {
			e.fail(ctx, causeDraftRejected, err)
			return false
		}
		e.fail(ctx, causeBackendUnavailable, err)
		return false
	}

	if !e.alive(ctx) {
		return false
	}

	// A preview completing under a session that verified mid-flight is
	// still cached; it is harmless and may serve as a fallback.
	if err := e.store.SetPreview(ctx, set); err != nil {
		e.logger.Warn("preview not cached", zap.Error(err))
	}

	if e.sessions.Current().Verified() {
		return true
	}

	if e.cfg.PreviewDirect {
		e.navigate(ctx, navigator.DestResults, set)
		return false
	}
	e.navigate(ctx, navigator.DestVerify, nil)
	return false
}

// finalizeDraft persists the draft. Only a confirmed success destroys the
// local copy; every failure keeps it so retry loses nothing.
func (e *Engine) finalizeDraft(ctx context.Context, sess session.Session, draft *api.Draft) bool {
	if _, err := e.client.PersistProfile(ctx, draft); err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			return e.shortCircuit(sess)
		}
		var verr *api.ValidationError
		if errors.As(err, &verr) {
			e.fail(ctx, causeDraftRejected, err)
			return false
		}
		e.fail(ctx, causeBackendUnavailable, err)
		return false
	}

	if !e.alive(ctx) {
		return false
	}

	if err := e.store.DeleteDraft(ctx); err != nil {
		e.fail(ctx, causeStoreUnavailable, err)
		return false
	}
	if err := e.store.DeletePreview(ctx); err != nil {
		e.logger.Warn("stale preview not dropped", zap.Error(err))
	}
	if err := e.store.SetExistence(ctx, store.ExistenceExists); err != nil {
		e.logger.Warn("existence memo not recorded", zap.Error(err))
	}

	e.logger.Info("draft persisted", zap.Time("updated_at", draft.UpdatedAt))
	return true
}

// fetchAuthoritative fetches the ranked list for the persisted profile. On
// failure a cached preview still gets the visitor to results.
func (e *Engine) fetchAuthoritative(ctx context.Context, sess session.Session, limit int) bool {
	set, err := e.client.FetchRecommendations(ctx, limit)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			return e.shortCircuit(sess)
		}
		preview, found, perr := e.store.Preview(ctx)
		if perr == nil && found {
			e.logger.Warn("serving cached preview while the backend is unavailable", zap.Error(err))
			e.navigate(ctx, navigator.DestResults, preview)
			return false
		}
		e.fail(ctx, causeBackendUnavailable, err)
		return false
	}

	if !e.alive(ctx) {
		return false
	}

	// Authoritative supersedes preview; never merged, only dropped.
	if err := e.store.DeletePreview(ctx); err != nil {
		e.logger.Warn("stale preview not dropped", zap.Error(err))
	}

	e.navigate(ctx, navigator.DestResults, set)
	return false
}

// resolveExistence settles the tri-state memo for a verified session with
// no draft. notFound is a normal answer (first-time visitor); unreachable
// is not, and must never be mistaken for absence.
func (e *Engine) resolveExistence(ctx context.Context, sess session.Session, limit int) bool {
	v, err, _ := e.group.Do("existence:"+sess.IdentityID, func() (any, error) {
		_, err := e.client.FetchProfile(ctx)
		switch {
		case err == nil:
			return store.ExistenceExists, nil
		case errors.Is(err, api.ErrNotFound):
			return store.ExistenceAbsent, nil
		default:
			return nil, err
		}
	})
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			return e.shortCircuit(sess)
		}
		e.fail(ctx, causeBackendUnavailable, err)
		return false
	}

	memo := v.(store.Existence)

	if !e.alive(ctx) {
		return false
	}
	if err := e.store.SetExistence(ctx, memo); err != nil {
		e.logger.Warn("existence memo not recorded", zap.Error(err))
	}

	if memo == store.ExistenceExists {
		return e.fetchAuthoritative(ctx, sess, limit)
	}

	e.logger.Info("no remote profile yet; survey required")
	e.navigate(ctx, navigator.DestSurvey, nil)
	return false
}

// shortCircuit defers to the session observer: an unauthenticated reply
// means the snapshot is stale and the observer owns the transition. When
// the snapshot already moved on, re-decide immediately.
func (e *Engine) shortCircuit(prev session.Session) bool {
	if e.sessions.Current() != prev {
		return true
	}
	e.logger.Info("backend reports unauthenticated; deferring to the session observer")
	return false
}

func (e *Engine) fail(ctx context.Context, cause string, err error) {
	e.logger.Error("reconciliation failed", zap.String("cause", cause), zap.Error(err))
	e.navigate(ctx, navigator.DestError, navigator.ErrorPayload{Cause: cause, Err: err})
}

// navigate applies the terminal Navigator call unless the engine was torn
// down or the hosting context is gone.
func (e *Engine) navigate(ctx context.Context, dest navigator.Destination, payload any) {
	if !e.alive(ctx) {
		return
	}
	e.nav.GoTo(dest, payload)
}

func (e *Engine) alive(ctx context.Context) bool {
	return !e.closed.Load() && ctx.Err() == nil
}

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/beldeezy/readar-sub000/internal/utils"
)

const (
	identityURL = "https://id.readar.app"
	userAgent   = "beldeezy/readar (readar@beldeezy.dev)"
	contentType = "application/json"

	defaultPollInterval = 3 * time.Second
)

// ErrLinkExpired is returned by AwaitVerification when the emailed link
// expired before the visitor clicked it. Callers should request a new one.
var ErrLinkExpired = errors.New("session: sign-in link expired")

// Provider drives the email-link sign-in flow against the identity provider
// and maintains the session file the Observer watches.
type Provider struct {
	path   string
	logger *zap.Logger

	HTTPClient   *http.Client
	UserAgent    string
	IdentityURL  string
	PollInterval time.Duration
}

func NewProvider(logger *zap.Logger, path string) *Provider {
	return &Provider{
		path:        path,
		logger:      logger,
		IdentityURL: identityURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent:    userAgent,
		PollInterval: defaultPollInterval,
	}
}

type linkResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Token  string `json:"token,omitempty"`
}

// RequestLink asks the provider to email a sign-in link to the address and
// records the pending link id in the session file. Returns the link id.
func (p *Provider) RequestLink(ctx context.Context, email string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return "", fmt.Errorf("session: encode link request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.IdentityURL+"/v1/auth/link", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	p.setHeaders(req)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	var link linkResponse
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return "", fmt.Errorf("session: decode link response: %w", err)
	}
	if link.ID == "" {
		return "", errors.New("session: provider returned no link id")
	}

	if err := writeState(p.path, &fileState{LinkID: link.ID, Email: email}); err != nil {
		return "", err
	}

	p.logger.Info("sign-in link emailed", zap.String("email", email), zap.String("link_id", link.ID))
	return link.ID, nil
}

// AwaitVerification polls the link until the visitor clicks it, then stores
// the issued token in the session file. Cancel the context to give up.
func (p *Provider) AwaitVerification(ctx context.Context, linkID string) error {
	for {
		link, err := p.getLink(ctx, linkID)
		if err != nil {
			return err
		}

		switch link.Status {
		case "verified":
			if link.Token == "" {
				return errors.New("session: link verified without token")
			}
			st, err := readState(p.path)
			if err != nil || st == nil {
				st = &fileState{}
			}
			st.Token = link.Token
			st.LinkID = ""
			if err := writeState(p.path, st); err != nil {
				return err
			}
			p.logger.Info("session verified")
			return nil
		case "pending":
			p.logger.Debug("link not clicked yet", zap.String("link_id", linkID))
			if err := utils.WaitFor(ctx, p.PollInterval); err != nil {
				return err
			}
		case "expired":
			return ErrLinkExpired
		default:
			return fmt.Errorf("session: unexpected link status %q", link.Status)
		}
	}
}

func (p *Provider) getLink(ctx context.Context, linkID string) (*linkResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.IdentityURL+"/v1/auth/link/"+linkID, nil)
	if err != nil {
		return nil, err
	}
	p.setHeaders(req)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrLinkExpired
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var link linkResponse
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return nil, fmt.Errorf("session: decode link response: %w", err)
	}
	return &link, nil
}

// SignOut revokes the session server side (best effort) and removes the
// session file. Local state in the store is the caller's to invalidate.
func (p *Provider) SignOut(ctx context.Context) error {
	st, err := readState(p.path)
	if err != nil {
		return err
	}

	if st != nil && st.Token != "" {
		if err := p.revoke(ctx, st.Token); err != nil {
			p.logger.Warn("server-side sign-out failed", zap.Error(err))
		}
	}

	return removeState(p.path)
}

func (p *Provider) revoke(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.IdentityURL+"/v1/auth/signout", nil)
	if err != nil {
		return err
	}
	p.setHeaders(req)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("bad status: %s", resp.Status)
	}
	return nil
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Content-Type", contentType)
}

// Package membership answers whether a viewer belongs to a server.
package membership

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"threadview/api/internal/thread"

	"golang.org/x/time/rate"
)

// Oracle looks up a viewer's membership in a server.
type Oracle interface {
	Lookup(ctx context.Context, viewerID, serverID string) (thread.Membership, error)
}

// Resolve asks the oracle once. Anonymous viewers and failed lookups both
// come back as Unknown; the error is returned for logging only.
func Resolve(ctx context.Context, oracle Oracle, viewerID, serverID string) (thread.Membership, error) {
	if oracle == nil || strings.TrimSpace(viewerID) == "" {
		return thread.Unknown, nil
	}
	status, err := oracle.Lookup(ctx, viewerID, serverID)
	if err != nil {
		return thread.Unknown, err
	}
	return status, nil
}

// DiscordOracle asks the Discord API for the guild member record. The zero
// value is not valid for use.
type DiscordOracle struct {
	baseURL  string
	botToken string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewDiscordOracle returns an oracle that issues at most perSecond requests
// per second, with a small burst.
func NewDiscordOracle(baseURL, botToken string, perSecond float64) *DiscordOracle {
	if perSecond <= 0 {
		perSecond = 5
	}
	burst := max(1, int(perSecond))
	return &DiscordOracle{
		baseURL:  strings.TrimRight(baseURL, "/"),
		botToken: botToken,
		client:   &http.Client{Timeout: 5 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (d *DiscordOracle) Lookup(ctx context.Context, viewerID, serverID string) (thread.Membership, error) {
	endpoint := fmt.Sprintf("%s/guilds/%s/members/%s", d.baseURL, url.PathEscape(serverID), url.PathEscape(viewerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return thread.Unknown, fmt.Errorf("build member request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+d.botToken)

	res, err := d.do(req)
	if err != nil {
		return thread.Unknown, fmt.Errorf("member lookup: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	switch res.StatusCode {
	case http.StatusOK:
		return thread.InServer, nil
	case http.StatusNotFound:
		return thread.NotInServer, nil
	default:
		return thread.Unknown, fmt.Errorf("member lookup: unexpected status %d", res.StatusCode)
	}
}

// do waits until the oracle is within its rate limit and then performs req.
func (d *DiscordOracle) do(req *http.Request) (*http.Response, error) {
	r := d.limiter.Reserve()
	if !r.OK() {
		return nil, errors.New("invalid limiter configuration")
	}
	timer := time.NewTimer(r.Delay())
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		r.Cancel()
		return nil, req.Context().Err()
	case <-timer.C:
		return d.client.Do(req)
	}
}

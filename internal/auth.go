package internal

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthGuard attaches the bearer credential to every request of one
// *http.Client and owns the single unauthorized transition for it.
type AuthGuard struct {
	mu             sync.Mutex
	token          string
	onUnauthorized func()
	tripped        bool
	now            func() time.Time
}

type authTransport struct {
	base  http.RoundTripper
	guard *AuthGuard
}

var (
	guardsMu sync.Mutex
	guards   = map[*http.Client]*AuthGuard{}
)

// InstallAuthGuard installs a guard on client. Installing again on the same
// client replaces the token and handler instead of stacking transports.
func InstallAuthGuard(client *http.Client, token string, onUnauthorized func()) *AuthGuard {
	guardsMu.Lock()
	defer guardsMu.Unlock()

	if g, ok := guards[client]; ok {
		g.mu.Lock()
		g.token = strings.TrimSpace(token)
		g.onUnauthorized = onUnauthorized
		g.tripped = false
		g.mu.Unlock()
		return g
	}

	g := &AuthGuard{
		token:          strings.TrimSpace(token),
		onUnauthorized: onUnauthorized,
		now:            time.Now,
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = &authTransport{base: base, guard: g}
	guards[client] = g
	return g
}

// UninstallAuthGuard restores the client's original transport
func UninstallAuthGuard(client *http.Client) {
	guardsMu.Lock()
	defer guardsMu.Unlock()
	if _, ok := guards[client]; !ok {
		return
	}
	if t, ok := client.Transport.(*authTransport); ok {
		client.Transport = t.base
	}
	delete(guards, client)
}

// SetToken swaps the credential and re-arms the unauthorized transition
func (g *AuthGuard) SetToken(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = strings.TrimSpace(token)
	g.tripped = false
}

// Tripped reports whether the unauthorized transition has fired
func (g *AuthGuard) Tripped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tripped
}

func (g *AuthGuard) currentToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// trip fires the handler at most once until the token changes
func (g *AuthGuard) trip() {
	g.mu.Lock()
	if g.tripped {
		g.mu.Unlock()
		return
	}
	g.tripped = true
	handler := g.onUnauthorized
	g.mu.Unlock()

	LogWarn("Credential rejected; sign in again to continue")
	if handler != nil {
		handler()
	}
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.guard.currentToken()
	if token != "" {
		if info, err := InspectToken(token); err == nil && info.Expired(t.guard.now()) {
			t.guard.trip()
			return nil, ErrUnauthorized
		}
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.guard.trip()
	}
	return resp, nil
}

// TokenInfo is the subset of bearer claims the client cares about
type TokenInfo struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry before now
func (i *TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

var roleClaimKeys = []string{
	"role",
	"http://schemas.microsoft.com/ws/2008/06/identity/claims/role",
}

// InspectToken decodes JWT claims without verifying the signature. The
// server remains the authority; this only avoids sending a dead token.
func InspectToken(token string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}

	info := &TokenInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	for _, key := range roleClaimKeys {
		if role, ok := claims[key].(string); ok && role != "" {
			info.Role = role
			break
		}
	}
	return info, nil
}

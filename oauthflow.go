package authkit

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const oauthStateCookie = "oauthstate"

// googleUserinfoURL serves the profile claims for an exchanged access token.
var googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleRedirectFlow implements the browser-initiated authorization-code
// login. The callback feeds the same provisioning protocol as the ID-token
// endpoint, so both entry points converge on one account per email.
type GoogleRedirectFlow struct {
	Service *AuthService

	// SuccessRedirectURL receives the browser after login. Defaults to "/".
	SuccessRedirectURL string

	config oauth2.Config
}

// NewGoogleRedirectFlow builds the flow from OAuth client credentials.
func NewGoogleRedirectFlow(clientID, clientSecret, callbackURL string, service *AuthService) *GoogleRedirectFlow {
	return &GoogleRedirectFlow{
		Service: service,
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

// Register mounts the flow's two endpoints on the router's mux-compatible
// HandleFunc surface.
func (g *GoogleRedirectFlow) Register(handleFunc func(path string, handler func(http.ResponseWriter, *http.Request))) {
	handleFunc("/auth/google", g.HandleRedirect)
	handleFunc("/auth/google/callback", g.HandleCallback)
}

// HandleRedirect sends the browser to the provider's consent page with a
// fresh state nonce bound to a short-lived cookie.
func (g *GoogleRedirectFlow) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	state := newStateNonce()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
	})
	http.Redirect(w, r, g.config.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback validates the state cookie, exchanges the code, fetches the
// provider profile and logs the user in through the provisioning protocol.
func (g *GoogleRedirectFlow) HandleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || r.FormValue("state") != stateCookie.Value {
		http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, MaxAge: -1, Path: "/"})
		writeError(w, NewAuthError(ErrCodeInvalidArgument, "oauth state mismatch", "state"))
		return
	}

	token, err := g.config.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		slog.Warn("oauth code exchange failed", "error", err)
		writeError(w, NewAuthError(ErrCodeInvalidCredential, "authorization code exchange failed", "code"))
		return
	}

	claims, err := g.fetchClaims(token)
	if err != nil {
		slog.Warn("fetching provider profile failed", "error", err)
		writeError(w, fmt.Errorf("fetching provider profile: %w", err))
		return
	}

	provisioner := &Provisioner{Store: g.Service.Accounts}
	account, err := provisioner.EnsureAccount(r.Context(), claims)
	if err != nil {
		writeError(w, err)
		return
	}

	sessionToken, err := g.Service.Tokens.IssueSessionToken(account.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionToken(w, sessionToken)
	redirect := g.SuccessRedirectURL
	if redirect == "" {
		redirect = "/"
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (g *GoogleRedirectFlow) fetchClaims(token *oauth2.Token) (*IdentityClaims, error) {
	resp, err := http.Get(googleUserinfoURL + "?access_token=" + token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading userinfo response: %w", err)
	}

	var info struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decoding userinfo response: %w", err)
	}

	return &IdentityClaims{
		Subject:       info.ID,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail,
		Name:          info.Name,
	}, nil
}

func newStateNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Warn("generating oauth state nonce", "error", err)
	}
	return base64.URLEncoding.EncodeToString(b)
}

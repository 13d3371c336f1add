// Package authclient is the calling side of the token protocol: it holds the
// access token in memory only, attaches it to every request, and on an
// explicit expired signal performs one coalesced refresh before retrying the
// original request exactly once.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// SessionExpiredError is returned when the refresh itself fails: the session
// is over and the caller must re-authenticate. IntendedPath preserves where
// the caller was headed so a UI can return there after login.
type SessionExpiredError struct {
	IntendedPath string
	Cause        error
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("authclient: session expired (intended %s): %v", e.IntendedPath, e.Cause)
}

func (e *SessionExpiredError) Unwrap() error { return e.Cause }

// Client wraps an http.Client with bearer attachment and automatic refresh.
// The refresh cookie rides in the cookie jar; the access token lives only in
// the in-memory cell and is replaced atomically, so concurrent readers see
// either the old or the new token, never a partial one.
type Client struct {
	base  string
	http  *http.Client
	token atomic.Value // string

	// Exactly one refresh call runs no matter how many requests hit the
	// expired signal together; the rest wait on the shared flight.
	refreshing singleflight.Group
}

// New builds a Client for the given server base URL. An optional http.Client
// may be supplied (tests use the server's TLS-aware client); it is given a
// cookie jar if it has none, since the refresh cookie must round-trip.
func New(base string, hc *http.Client) (*Client, error) {
	if hc == nil {
		hc = &http.Client{}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc.Jar = jar
	}
	c := &Client{base: base, http: hc}
	c.token.Store("")
	return c, nil
}

// SetAccessToken stores the token after login.
func (c *Client) SetAccessToken(token string) {
	c.token.Store(token)
}

// ClearAccessToken drops the token on logout.
func (c *Client) ClearAccessToken() {
	c.token.Store("")
}

// AccessToken returns the currently held token, if any.
func (c *Client) AccessToken() string {
	v, _ := c.token.Load().(string)
	return v
}

// Login authenticates and primes the token cell and the cookie jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authclient: login failed with status %d", resp.StatusCode)
	}
	var payload struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}
	if payload.AccessToken == "" {
		return fmt.Errorf("authclient: login response carried no access token")
	}
	c.SetAccessToken(payload.AccessToken)
	return nil
}

// Logout clears both sides of the session: the server cookie and the cell.
func (c *Client) Logout(ctx context.Context) error {
	defer c.ClearAccessToken()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/auth/logout", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authclient: logout failed with status %d", resp.StatusCode)
	}
	return nil
}

// Do issues an authenticated request. If the server answers 401 with the
// explicit expired marker, the client refreshes once (coalesced across
// concurrent callers) and retries the original request once with the new
// token. Every other response, including a plain 401, is returned unmodified:
// the client never guesses.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	var signal struct {
		Expired bool `json:"expired"`
	}
	if json.Unmarshal(raw, &signal) != nil || !signal.Expired {
		return resp, nil
	}

	if _, err := c.refreshAccessToken(ctx); err != nil {
		c.ClearAccessToken()
		return nil, &SessionExpiredError{IntendedPath: path, Cause: err}
	}
	// Retry exactly once; a second 401 propagates as-is.
	return c.send(ctx, method, path, body)
}

// GetJSON issues a GET and decodes a 200 response into dst.
func (c *Client) GetJSON(ctx context.Context, path string, dst any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authclient: GET %s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.http.Do(req)
}

// refreshAccessToken calls the refresh endpoint, relying on the cookie jar
// for the refresh credential. Concurrent callers share one flight.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	token, err, _ := c.refreshing.Do("refresh", func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/auth/refresh", nil)
		if err != nil {
			return "", err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("refresh rejected with status %d", resp.StatusCode)
		}
		var payload struct {
			AccessToken string `json:"accessToken"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return "", err
		}
		if payload.AccessToken == "" {
			return "", fmt.Errorf("refresh response carried no access token")
		}
		c.SetAccessToken(payload.AccessToken)
		return payload.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

package upstream

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/leanmobile/leanbridge/internal/apperr"
)

// Login failure/success reason codes, captured for diagnostics. Never shown
// to end users in production builds.
const (
	ReasonRedirectToDashboard = "redirect_to_dashboard"
	ReasonRedirectNotAuth     = "redirect_not_auth"
	ReasonNoLoginMarkers      = "no_login_form_or_error"
	ReasonStillOnLoginPage    = "still_on_login_page"
	ReasonUnexpectedStatus    = "unexpected_status"
)

// LoginOutcome is the classified result of the two-step form login.
type LoginOutcome struct {
	OK            bool
	Reason        string
	SessionCookie string // upstream session cookie pairs to bridge
	Status        int    // HTTP status of the credential POST
	Location      string // redirect target of the credential POST
	HiddenFields  []string
}

// FormLogin exchanges user credentials for an upstream session using the
// HTML login form — the upstream has no token login endpoint.
//
// Step 1 fetches the login page with a browser-like User-Agent (the
// upstream's edge network drops anything else), capturing the session cookie
// and every hidden input (CSRF and friends; zero hidden fields is fine).
// Step 2 posts the credentials form-urlencoded with redirects disabled: the
// redirect target, or its absence, is the success signal.
//
// Wrong credentials classify as OK=false, not as an error; only transport
// failures return a non-nil error.
func (c *Client) FormLogin(ctx context.Context, username, password string) (*LoginOutcome, error) {
	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/login", nil)
	if err != nil {
		return nil, apperr.Transport("auth.login", err)
	}
	getReq.Header.Set("User-Agent", c.probe.UserAgent)
	getReq.Header.Set("Accept", "text/html")

	getResp, err := c.api.Do(getReq)
	if err != nil {
		return nil, apperr.Transport("auth.login", err)
	}
	pageBody, err := io.ReadAll(getResp.Body)
	getResp.Body.Close()
	if err != nil {
		return nil, apperr.Transport("auth.login", err)
	}

	sessionFromGet := joinCookies(getResp.Cookies())
	hidden := hiddenInputs(pageBody)

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	for name, value := range hidden {
		form.Set(name, value)
	}

	postReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperr.Transport("auth.login", err)
	}
	postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	postReq.Header.Set("User-Agent", c.probe.UserAgent)
	postReq.Header.Set("Accept", "text/html,application/xhtml+xml")
	if sessionFromGet != "" {
		postReq.Header.Set("Cookie", sessionFromGet)
	}

	postResp, err := c.manual.Do(postReq)
	if err != nil {
		return nil, apperr.Transport("auth.login", err)
	}
	postBody, err := io.ReadAll(postResp.Body)
	postResp.Body.Close()
	if err != nil {
		return nil, apperr.Transport("auth.login", err)
	}

	outcome := &LoginOutcome{
		Status:       postResp.StatusCode,
		Location:     postResp.Header.Get("Location"),
		HiddenFields: keys(hidden),
	}
	outcome.OK, outcome.Reason = c.classifyLogin(postResp.StatusCode, outcome.Location, postBody)

	sessionFromPost := joinCookies(postResp.Cookies())
	if sessionFromPost != "" {
		outcome.SessionCookie = sessionFromPost
	} else {
		outcome.SessionCookie = sessionFromGet
	}

	c.logger.Info().
		Bool("ok", outcome.OK).
		Str("reason", outcome.Reason).
		Int("status", outcome.Status).
		Int("hidden_fields", len(hidden)).
		Bool("session_from_get", sessionFromGet != "").
		Bool("session_from_post", sessionFromPost != "").
		Msg("form login classified")

	return outcome, nil
}

// classifyLogin applies the configured markers, in priority order: a
// redirect into the authenticated area, any redirect away from the login
// area, or a 200 body free of login-form markers.
func (c *Client) classifyLogin(status int, location string, body []byte) (bool, string) {
	for _, frag := range c.probe.AuthenticatedPaths {
		if strings.Contains(location, frag) {
			return true, ReasonRedirectToDashboard
		}
	}
	if (status == http.StatusFound || status == http.StatusMovedPermanently) &&
		location != "" && !strings.Contains(location, c.probe.LoginPathFragment) {
		return true, ReasonRedirectNotAuth
	}
	if status == http.StatusOK {
		text := string(body)
		for _, marker := range c.probe.FailureMarkers {
			if strings.Contains(text, marker) {
				return false, ReasonStillOnLoginPage
			}
		}
		return true, ReasonNoLoginMarkers
	}
	return false, ReasonUnexpectedStatus
}

// Logout fires the upstream logout best-effort. Logout must always succeed
// locally, so upstream failures are logged and swallowed.
func (c *Client) Logout(ctx context.Context, sessionCookie string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return
	}
	req.Header.Set("User-Agent", c.probe.UserAgent)
	if sessionCookie != "" {
		req.Header.Set("Cookie", sessionCookie)
	}
	resp, err := c.api.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Msg("upstream logout failed (ignored)")
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// hiddenInputs scans HTML for <input type="hidden"> name/value pairs.
// html.Parse is tolerant of the malformed markup the upstream serves, and
// a page without hidden fields simply yields an empty map.
func hiddenInputs(page []byte) map[string]string {
	fields := make(map[string]string)
	doc, err := html.Parse(strings.NewReader(string(page)))
	if err != nil {
		return fields
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "input" {
			var typ, name, value string
			for _, attr := range n.Attr {
				switch strings.ToLower(attr.Key) {
				case "type":
					typ = strings.ToLower(attr.Val)
				case "name":
					name = attr.Val
				case "value":
					value = attr.Val
				}
			}
			if typ == "hidden" && name != "" {
				fields[name] = value
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return fields
}

// joinCookies flattens Set-Cookie headers into the "name=value; ..." form
// the upstream expects back.
func joinCookies(cookies []*http.Cookie) string {
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

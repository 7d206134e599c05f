package http_test

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
)

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	gt.NoError(t, err).Required()
	return &http.Client{Jar: jar}
}

func postForm(t *testing.T, client *http.Client, target string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := client.PostForm(target, form)
	gt.NoError(t, err).Required()
	defer resp.Body.Close()
	return resp, readBody(t, resp)
}

func getPage(t *testing.T, client *http.Client, target string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(target)
	gt.NoError(t, err).Required()
	defer resp.Body.Close()
	return resp, readBody(t, resp)
}

func TestPages(t *testing.T) {
	env := newTestEnvWithClock(t, time.Now)
	browser := newBrowser(t)

	t.Run("anonymous visitors see sign in", func(t *testing.T) {
		resp, html := getPage(t, browser, env.srv.URL+"/")
		gt.Equal(t, resp.StatusCode, http.StatusOK)
		gt.S(t, html).Contains(`action="/signin"`)

		_, html = getPage(t, browser, env.srv.URL+"/?mode=signup")
		gt.S(t, html).Contains(`action="/signup"`)
	})

	t.Run("sign up errors are shown per field", func(t *testing.T) {
		resp, html := postForm(t, browser, env.srv.URL+"/signup", url.Values{
			"email":    {"not-an-email"},
			"password": {"123"},
		})
		gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
		gt.S(t, html).Contains("Please enter a valid email")
		gt.S(t, html).Contains("Password must be at least 6 characters")
		gt.S(t, html).Contains("Full name is required")
	})

	t.Run("sign up lands on the dashboard", func(t *testing.T) {
		resp, html := postForm(t, browser, env.srv.URL+"/signup", url.Values{
			"email":     {"alice@example.com"},
			"password":  {"secret123"},
			"full_name": {"Alice"},
		})
		gt.Equal(t, resp.StatusCode, http.StatusOK)
		gt.S(t, html).Contains("alice@example.com")
		gt.S(t, html).Contains("Account created")
		gt.S(t, html).Contains("No tickets found")
	})

	t.Run("add and toggle a ticket", func(t *testing.T) {
		_, html := postForm(t, browser, env.srv.URL+"/tickets", url.Values{
			"ticket_id": {"INC-42"},
			"status":    {"Awaiting Response"},
			"notes":     {"<b>escalated</b>"},
		})
		gt.S(t, html).Contains("Ticket created")
		gt.S(t, html).Contains("INC-42")
		gt.S(t, html).Contains("&lt;b&gt;escalated&lt;/b&gt;")
		gt.S(t, html).NotContains("<b>escalated</b>")

		_, html = postForm(t, browser, env.srv.URL+"/tickets", url.Values{
			"ticket_id": {"INC-42"},
			"status":    {"Resolved"},
		})
		gt.S(t, html).Contains("status changed from Awaiting Response to Resolved")
	})

	t.Run("invalid ticket form re-renders with errors", func(t *testing.T) {
		resp, html := postForm(t, browser, env.srv.URL+"/tickets", url.Values{
			"status": {"Resolved"},
		})
		gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
		gt.S(t, html).Contains("Ticket ID is required")
	})

	t.Run("notes", func(t *testing.T) {
		_, html := postForm(t, browser, env.srv.URL+"/notes", url.Values{
			"title":    {"Runbook"},
			"priority": {"High"},
		})
		gt.S(t, html).Contains("Note added")
		gt.S(t, html).Contains("Runbook")
	})

	t.Run("filters apply to the page", func(t *testing.T) {
		resp, html := getPage(t, browser, env.srv.URL+"/?status=Awaiting+Response")
		gt.Equal(t, resp.StatusCode, http.StatusOK)
		gt.S(t, html).Contains("No tickets found")
		gt.S(t, html).Contains("Status: Awaiting Response")

		resp, _ = getPage(t, browser, env.srv.URL+"/?view=range&from=2024-03-20&to=2024-03-01")
		gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
	})

	t.Run("export download uses the cookie session", func(t *testing.T) {
		resp, body := getPage(t, browser, env.srv.URL+"/export?format=csv&search=inc")
		gt.Equal(t, resp.StatusCode, http.StatusOK)
		gt.S(t, resp.Header.Get("Content-Disposition")).Contains("attachment")
		gt.True(t, strings.HasPrefix(body, "Ticket ID,Status,Notes"))
	})

	t.Run("sign out", func(t *testing.T) {
		_, html := postForm(t, browser, env.srv.URL+"/signout", url.Values{})
		gt.S(t, html).Contains(`action="/signin"`)

		resp, _ := getPage(t, browser, env.srv.URL+"/export?format=csv")
		gt.Equal(t, resp.Request.URL.Path, "/")
	})
}

func TestPagesRefreshExpiredAccessToken(t *testing.T) {
	env := newTestEnvWithClock(t, time.Now)
	result := env.signUp(t, "alice@example.com")

	browser := newBrowser(t)
	base, err := url.Parse(env.srv.URL)
	gt.NoError(t, err).Required()
	browser.Jar.SetCookies(base, []*http.Cookie{
		{Name: "access_token", Value: "stale", Path: "/"},
		{Name: "refresh_token", Value: result.RefreshToken, Path: "/"},
	})

	resp, html := getPage(t, browser, env.srv.URL+"/")
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.S(t, html).Contains("alice@example.com")

	var rotated bool
	for _, c := range browser.Jar.Cookies(base) {
		if c.Name == "refresh_token" && c.Value != result.RefreshToken {
			rotated = true
		}
	}
	gt.True(t, rotated)
}

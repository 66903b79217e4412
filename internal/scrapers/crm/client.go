// Package crm is a client for the sales CRM's JSON api: login, the price
// list and warehouse inventory.
package crm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crmlookup/internal/components/assert"
	"crmlookup/internal/components/chrono"
	"crmlookup/internal/components/restyutil"
	"crmlookup/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_login           = "client.login"
	report_client_get             = "client.get"
	report_client_restore_session = "client.restore-session"
	report_client_save_session    = "client.save-session"
)

var (
	// ErrNotLoggedIn is returned when a request is made before logging in or
	// restoring a session.
	ErrNotLoggedIn = errors.New("crm: not logged in")
	// ErrSessionExpired is returned when the CRM rejects the session, the
	// client must log in again.
	ErrSessionExpired = errors.New("crm: session expired")
	// ErrRequestFailed is returned when a request could not be completed,
	// after retrying where that makes sense.
	ErrRequestFailed = errors.New("crm: request failed")
)

const (
	DefaultLoginPath    = "/api/login"
	DefaultInitHomePath = "/api/initHome"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryWait    = time.Second
)

// Options configures a Client. Zero values fall back to the Default*
// constants.
type Options struct {
	BaseURL      string
	LoginPath    string
	InitHomePath string
	Timeout      time.Duration
	// MaxRetries is the total number of attempts Get makes.
	MaxRetries int
	RetryWait  time.Duration
	VerifySSL  bool
	// SessionFile is where cookies are kept between runs, empty disables
	// session persistence.
	SessionFile string
	// HttpDump receives every http exchange when set.
	HttpDump restyutil.Output
}

func (o Options) withDefaults() Options {
	if o.LoginPath == "" {
		o.LoginPath = DefaultLoginPath
	}
	if o.InitHomePath == "" {
		o.InitHomePath = DefaultInitHomePath
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryWait <= 0 {
		o.RetryWait = DefaultRetryWait
	}
	return o
}

// Client is an authenticated session with the CRM. It is safe for
// concurrent use.
type Client struct {
	opts    Options
	baseUrl *url.URL
	http    *resty.Client
	tel     telemetry.API
	clock   chrono.API

	mutex    sync.Mutex
	jar      *cookiejar.Jar
	loggedIn bool
	username string
	userInfo map[string]any
}

func NewClient(opts Options, tel telemetry.API, clock chrono.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotNil(clock)

	opts = opts.withDefaults()
	baseUrl, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}

	tel = telemetry.NewScopedAPI("crm_client", tel)

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl.String())
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.SetTimeout(opts.Timeout)
	if !opts.VerifySSL {
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	httpClient.SetHeaders(map[string]string{
		"user-agent":       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		"accept":           "application/json, text/plain, */*",
		"accept-language":  "zh-CN,zh;q=0.9,en;q=0.8",
		"referer":          baseUrl.JoinPath("/crm/index.html").String(),
		"x-requested-with": "XMLHttpRequest",
	})

	httpClient.
		SetRetryCount(opts.MaxRetries - 1).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryWait).
		AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return res.StatusCode() >= http.StatusInternalServerError
		})

	// 5 requests max per second
	rateLimiter := rate.NewLimiter(5, 5)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)
	restyutil.Dump(httpClient, "crm", opts.HttpDump)

	return &Client{
		opts:    opts,
		baseUrl: baseUrl,
		http:    httpClient,
		tel:     tel,
		clock:   clock,
		jar:     jar,
	}, nil
}

// LoggedIn returns true if the client holds a session the CRM accepted.
func (c *Client) LoggedIn() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.loggedIn
}

// Username returns the account name of the current session.
func (c *Client) Username() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.username
}

func infoString(info map[string]any, key string) string {
	v, _ := info[key].(string)
	return v
}

// Login posts the credentials to the login endpoint. A rejected login is not
// an error, it is reported in the returned LoginResult. An error is returned
// only when the CRM could not be reached or answered with something
// unreadable.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if username == "" || password == "" {
		return LoginResult{Message: "username and password are required"}, nil
	}
	c.tel.ReportDebug("logging in", username)

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"email":    username,
			"password": password,
		}).
		Post(c.opts.LoginPath)
	if err != nil {
		c.tel.ReportWarning(report_client_login, fmt.Errorf("post: %w", err))
		return LoginResult{Message: "could not reach the crm"}, fmt.Errorf("%w: login: %w", ErrRequestFailed, err)
	}
	if res.StatusCode() != http.StatusOK {
		return LoginResult{Message: fmt.Sprintf("http error: %d", res.StatusCode())}, nil
	}

	var body map[string]any
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("json unmarshal: %w", err))
		return LoginResult{Message: "unreadable login response"}, fmt.Errorf("%w: login: %w", ErrRequestFailed, err)
	}

	sessionInfo, ok := body["sessionInfo"]
	if !ok {
		message, _ := body["message"].(string)
		if message == "" {
			message = "login failed"
		}
		return LoginResult{Message: message}, nil
	}
	info, _ := sessionInfo.(map[string]any)
	if info == nil {
		info = map[string]any{}
	}

	c.mutex.Lock()
	c.loggedIn = true
	c.username = username
	c.userInfo = info
	c.mutex.Unlock()

	c.saveSession()

	return LoginResult{
		Success:    true,
		Message:    "login succeeded",
		UserName:   infoString(info, "chineseName"),
		OfficeName: infoString(info, "officeName"),
	}, nil
}

// Get requests a JSON object from the api. Transport errors and 5xx
// responses are retried up to the configured number of attempts.
func (c *Client) Get(ctx context.Context, path string, params map[string]string) (map[string]any, error) {
	if !c.LoggedIn() {
		return nil, ErrNotLoggedIn
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		c.tel.ReportWarning(report_client_get, err, path)
		return nil, fmt.Errorf("%w: %s: %w", ErrRequestFailed, path, err)
	}

	switch res.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized:
		c.mutex.Lock()
		c.loggedIn = false
		c.mutex.Unlock()
		c.tel.ReportWarning(report_client_get, ErrSessionExpired, path)
		return nil, ErrSessionExpired
	default:
		err := fmt.Errorf("%w: %s: status %s", ErrRequestFailed, path, res.Status())
		c.tel.ReportWarning(report_client_get, err)
		return nil, err
	}

	var body map[string]any
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		c.tel.ReportWarning(report_client_get, fmt.Errorf("json unmarshal: %w", err), path)
		return nil, fmt.Errorf("%w: %s: %w", ErrRequestFailed, path, err)
	}
	return body, nil
}

type sessionFile struct {
	Cookies  map[string]string `json:"cookies"`
	Username string            `json:"username"`
	UserInfo map[string]any    `json:"user_info"`
	SaveTime string            `json:"save_time"`
}

func (c *Client) saveSession() {
	if c.opts.SessionFile == "" {
		return
	}

	c.mutex.Lock()
	session := sessionFile{
		Cookies:  map[string]string{},
		Username: c.username,
		UserInfo: c.userInfo,
		SaveTime: chrono.Timestamp(c.clock),
	}
	for _, cookie := range c.jar.Cookies(c.baseUrl) {
		session.Cookies[cookie.Name] = cookie.Value
	}
	c.mutex.Unlock()

	contents, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		c.tel.ReportBroken(report_client_save_session, fmt.Errorf("json marshal: %w", err))
		return
	}
	err = os.MkdirAll(filepath.Dir(c.opts.SessionFile), 0o755)
	if err == nil {
		err = os.WriteFile(c.opts.SessionFile, contents, 0o600)
	}
	if err != nil {
		c.tel.ReportWarning(report_client_save_session, err, c.opts.SessionFile)
	}
}

// RestoreSession loads the cookies of a previous login and checks them
// against the CRM. It returns true if the session is still valid.
func (c *Client) RestoreSession(ctx context.Context) bool {
	if c.opts.SessionFile == "" {
		return false
	}
	contents, err := os.ReadFile(c.opts.SessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	if err != nil {
		c.tel.ReportWarning(report_client_restore_session, err)
		return false
	}
	var session sessionFile
	err = json.Unmarshal(contents, &session)
	if err != nil {
		c.tel.ReportWarning(report_client_restore_session, fmt.Errorf("json unmarshal: %w", err))
		return false
	}

	cookies := make([]*http.Cookie, 0, len(session.Cookies))
	for name, value := range session.Cookies {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	c.jar.SetCookies(c.baseUrl, cookies)

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.opts.InitHomePath)
	if err != nil {
		c.tel.ReportWarning(report_client_restore_session, fmt.Errorf("probe: %w", err))
		return false
	}
	if res.StatusCode() != http.StatusOK {
		c.tel.ReportDebug("saved session expired", res.Status())
		return false
	}

	c.mutex.Lock()
	c.loggedIn = true
	c.username = session.Username
	c.userInfo = session.UserInfo
	c.mutex.Unlock()
	return true
}

// Logout forgets the session and deletes the session file.
func (c *Client) Logout() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	c.loggedIn = false
	c.username = ""
	c.userInfo = nil
	c.jar = jar
	c.http.SetCookieJar(jar)
	c.mutex.Unlock()

	if c.opts.SessionFile == "" {
		return nil
	}
	err = os.Remove(c.opts.SessionFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

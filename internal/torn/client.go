package torn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"torn_war_bot/internal/app"
	"torn_war_bot/internal/config"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Torn API host
	DefaultBaseURL = "https://api.torn.com"
	// UserAgent is sent with every request
	UserAgent = "torn-war-bot/1.0"
)

// APIVersion selects the endpoint family used for war polling
type APIVersion string

const (
	V1 APIVersion = "v1"
	V2 APIVersion = "v2"
)

// Endpoint names used for call tracking
const (
	EndpointRankedWars = "rankedwars"
	EndpointWarHistory = "rankedwar_history"
	EndpointMembers    = "members"
	EndpointAttacks    = "attacks"
	EndpointWarReport  = "rankedwarreport"
)

const defaultRequestsPerMin = 60

type Client struct {
	apiKey       string
	baseURL      string
	version      APIVersion
	client       *http.Client
	limiter      *rate.Limiter
	tracker      CallTracker
	retry        config.RetryConfig
	apiCallCount int64
	apiCallMutex sync.Mutex
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another host, used by tests
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithVersion selects the v1 or v2 endpoint family
func WithVersion(version APIVersion) Option {
	return func(c *Client) {
		c.version = version
	}
}

// WithRequestsPerMinute sets the client side request rate
func WithRequestsPerMinute(perMinute int) Option {
	return func(c *Client) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithCallTracker reports each request to a tracker
func WithCallTracker(tracker CallTracker) Option {
	return func(c *Client) {
		c.tracker = tracker
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	retry := config.DefaultResilienceConfig.APIRequest
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		version: V2,
		client: &http.Client{
			Timeout: retry.Timeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/defaultRequestsPerMin), 1),
		retry:   retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Version returns the configured endpoint family
func (c *Client) Version() APIVersion {
	return c.version
}

// IncrementAPICall safely increments the API call counter
func (c *Client) IncrementAPICall() {
	c.apiCallMutex.Lock()
	c.apiCallCount++
	c.apiCallMutex.Unlock()
}

// GetAPICallCount returns the current API call count
func (c *Client) GetAPICallCount() int64 {
	c.apiCallMutex.Lock()
	defer c.apiCallMutex.Unlock()
	return c.apiCallCount
}

// ResetAPICallCount resets the API call counter to zero
func (c *Client) ResetAPICallCount() {
	c.apiCallMutex.Lock()
	c.apiCallCount = 0
	c.apiCallMutex.Unlock()
}

// RankedWars fetches the raw ranked war payload for the war poll
func (c *Client) RankedWars(ctx context.Context, factionID int) ([]byte, error) {
	if c.version == V1 {
		return c.get(ctx, EndpointRankedWars, "/faction/"+strconv.Itoa(factionID), url.Values{"selections": {"rankedwars"}})
	}
	return c.get(ctx, EndpointRankedWars, "/v2/faction/wars", nil)
}

// RankedWarHistory fetches the list of past ranked wars for historical lookups
func (c *Client) RankedWarHistory(ctx context.Context, factionID int) ([]byte, error) {
	if c.version == V1 {
		return c.get(ctx, EndpointWarHistory, "/faction/"+strconv.Itoa(factionID), url.Values{"selections": {"rankedwars"}})
	}
	return c.get(ctx, EndpointWarHistory, "/v2/faction/rankedwars", nil)
}

// Members fetches a faction's member list in either schema
func (c *Client) Members(ctx context.Context, factionID int) (app.KeyedSet[app.RawMember], error) {
	var (
		body []byte
		err  error
	)
	if c.version == V1 {
		body, err = c.get(ctx, EndpointMembers, "/faction/"+strconv.Itoa(factionID), url.Values{"selections": {"basic"}})
	} else {
		body, err = c.get(ctx, EndpointMembers, fmt.Sprintf("/v2/faction/%d/members", factionID), nil)
	}
	if err != nil {
		return app.KeyedSet[app.RawMember]{}, err
	}

	var envelope app.MembersEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return app.KeyedSet[app.RawMember]{}, &UpstreamError{Endpoint: EndpointMembers, Message: "failed to decode members", Err: err}
	}

	log.Debug().
		Int("faction_id", factionID).
		Int("members", envelope.Members.Len()).
		Str("shape", envelope.Members.Shape.String()).
		Msg("Fetched faction members")

	return envelope.Members, nil
}

// AttacksPage fetches one page of the key owner's faction attacks between
// from and to, newest first
func (c *Client) AttacksPage(ctx context.Context, from, to int64) (app.KeyedSet[app.RawAttack], error) {
	params := url.Values{
		"from": {strconv.FormatInt(from, 10)},
		"to":   {strconv.FormatInt(to, 10)},
	}

	var (
		body []byte
		err  error
	)
	if c.version == V1 {
		params.Set("selections", "attacks")
		body, err = c.get(ctx, EndpointAttacks, "/faction", params)
	} else {
		params.Set("limit", "100")
		params.Set("sort", "DESC")
		body, err = c.get(ctx, EndpointAttacks, "/v2/faction/attacks", params)
	}
	if err != nil {
		return app.KeyedSet[app.RawAttack]{}, err
	}

	var envelope app.AttacksEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return app.KeyedSet[app.RawAttack]{}, &UpstreamError{Endpoint: EndpointAttacks, Message: "failed to decode attacks", Err: err}
	}

	log.Debug().
		Int("attacks_count", envelope.Attacks.Len()).
		Int64("from", from).
		Int64("to", to).
		Msg("Fetched faction attacks page")

	return envelope.Attacks, nil
}

// WarReport fetches the official end of war report. The report of a war
// that is still running comes back without an end time.
func (c *Client) WarReport(ctx context.Context, warID string) (*app.RankedWarReport, error) {
	var (
		body []byte
		err  error
	)
	if c.version == V1 {
		body, err = c.get(ctx, EndpointWarReport, "/torn/"+url.PathEscape(warID), url.Values{"selections": {"rankedwarreport"}})
	} else {
		body, err = c.get(ctx, EndpointWarReport, "/v2/faction/"+url.PathEscape(warID)+"/rankedwarreport", nil)
	}
	if err != nil {
		return nil, err
	}

	var envelope app.ReportEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &UpstreamError{Endpoint: EndpointWarReport, Message: "failed to decode war report", Err: err}
	}
	return envelope.Report, nil
}

// get performs one rate limited GET and returns the body of a successful
// response. In-body error objects are reported as UpstreamError.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) (body []byte, err error) {
	defer func() {
		if c.tracker != nil {
			c.tracker.RecordCall(endpoint, err)
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Message: "rate limiter wait aborted", Err: err}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.apiKey)
	requestURL := c.baseURL + path + "?" + params.Encode()

	err = c.retry.Do(ctx, "torn "+endpoint, func(ctx context.Context) error {
		var reqErr error
		body, reqErr = c.do(ctx, endpoint, requestURL)
		return reqErr
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, endpoint, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Message: "failed to create request", Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug().
			Err(err).
			Str("endpoint", endpoint).
			Msg("API request failed")
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()
	c.IncrementAPICall()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: truncate(string(body), 200)}
	}

	var errBody struct {
		Error *app.APIError `json:"error"`
	}
	if json.Unmarshal(body, &errBody) == nil && errBody.Error != nil {
		return nil, &UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Code: errBody.Error.Code, Message: errBody.Error.Error}
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

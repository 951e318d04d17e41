package catalog

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"filmdex/internal/errors"
	"filmdex/internal/model"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultRateLimit = 4 // requests per second
	userAgent        = "filmdex/1.0"
)

// Page is one page of catalog results. TotalPages is 0 when the source
// omits total-page metadata.
type Page struct {
	Movies       []model.MovieSummary
	PageNumber   int
	TotalPages   int
	TotalResults int
}

// Client talks to a TMDB-shaped movie catalog API. Transport-level
// failures never escape raw: every error leaving this package is one of
// the classified kinds in internal/errors.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
	limiter    *rate.Limiter
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit rate.Limit // requests per second, 0 means default
	Logger    *logrus.Logger
}

// NewClient creates a catalog client.
func NewClient(cfg *ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	limit := cfg.RateLimit
	if limit == 0 {
		limit = defaultRateLimit
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:  cfg.Logger,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Search fetches one page of results for a literal query string.
func (c *Client) Search(ctx context.Context, query string, page int) (*Page, error) {
	if query == "" {
		return nil, errors.NewInvalidRequest("search query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	return c.fetchPage(ctx, "/search/movie", params, page)
}

// Popular fetches one page of the popular listing.
func (c *Client) Popular(ctx context.Context, page int) (*Page, error) {
	return c.fetchPage(ctx, "/movie/popular", url.Values{}, page)
}

// Trending fetches one page of the weekly trending listing.
func (c *Client) Trending(ctx context.Context, page int) (*Page, error) {
	return c.fetchPage(ctx, "/trending/movie/week", url.Values{}, page)
}

// Details fetches the full detail record for one movie id.
func (c *Client) Details(ctx context.Context, id int64) (*model.MovieDetail, error) {
	body, err := c.get(ctx, fmt.Sprintf("/movie/%d", id), url.Values{})
	if err != nil {
		return nil, err
	}

	var dto movieDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, errors.NewRemoteUnavailable(fmt.Errorf("malformed detail response: %w", err))
	}
	detail := dto.toDetail()
	return &detail, nil
}

func (c *Client) fetchPage(ctx context.Context, path string, params url.Values, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))

	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var resp pagedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewRemoteUnavailable(fmt.Errorf("malformed page response: %w", err))
	}

	movies := make([]model.MovieSummary, len(resp.Results))
	for i, dto := range resp.Results {
		movies[i] = dto.toSummary()
	}

	pageNumber := resp.Page
	if pageNumber == 0 {
		pageNumber = page
	}

	return &Page{
		Movies:       movies,
		PageNumber:   pageNumber,
		TotalPages:   resp.TotalPages,
		TotalResults: resp.TotalResults,
	}, nil
}

// get performs one rate-limited request and classifies every failure.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewInternal(err)
	}

	params.Set("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		classified := classifyTransport(err)
		c.logger.WithFields(logrus.Fields{
			"path":  path,
			"error": err,
			"code":  classified.Code,
		}).Warn("catalog request failed")
		return nil, classified
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("catalog request")

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewRemoteUnavailable(err)
	}
	return body, nil
}

// classifyTransport maps a transport error into the error taxonomy:
// timeouts mean the network is there but the catalog is not answering;
// everything else (refused, DNS failure, unreachable) means no usable
// connection.
func classifyTransport(err error) *errors.Error {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewRemoteUnavailable(err)
	}
	return errors.NewNoConnection()
}

// classifyStatus maps a non-200 response into the error taxonomy.
func classifyStatus(status int) *errors.Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.NewUnauthorized()
	case status == http.StatusNotFound:
		return errors.NewNotFound("remote resource")
	case status == http.StatusTooManyRequests:
		return errors.NewRateLimited()
	default:
		return errors.NewRemoteUnavailable(fmt.Errorf("unexpected status %d", status))
	}
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// Client queries the course catalog REST API:
//
//	GET {base}/courses/{courseId}/instructors/{userId}  200 yes, 404 no
//	GET {base}/courses/{courseId}/enrollments/{userId}  200 yes, 404 no
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxTries   uint
}

func NewClient(baseURL, serviceToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      serviceToken,
		httpClient: &http.Client{Timeout: timeout},
		maxTries:   3,
	}
}

func (c *Client) IsInstructorOf(ctx context.Context, userID, courseID string) (bool, error) {
	return c.exists(ctx, "courses", courseID, "instructors", userID)
}

func (c *Client) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	return c.exists(ctx, "courses", courseID, "enrollments", userID)
}

func (c *Client) exists(ctx context.Context, segments ...string) (bool, error) {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	endpoint := c.baseURL + "/" + strings.Join(escaped, "/")

	operation := func() (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return false, backoff.Permanent(err)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("url", endpoint).Msg("catalog request failed. Retrying...")
			return false, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return true, nil
		case resp.StatusCode == http.StatusNotFound:
			return false, nil
		case resp.StatusCode >= 500:
			return false, fmt.Errorf("catalog %s: status %d", endpoint, resp.StatusCode)
		default:
			return false, backoff.Permanent(fmt.Errorf("catalog %s: status %d", endpoint, resp.StatusCode))
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = time.Second
	ok, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(c.maxTries))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		return false, err
	}
	return ok, nil
}

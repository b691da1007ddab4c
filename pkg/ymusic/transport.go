package ymusic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// envelope is the JSON wrapper the catalog puts around every response.
type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// get performs an authorized GET against path and decodes the envelope result
// into dst.
func (c *Client) get(ctx context.Context, path string, query url.Values, dst interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, dst)
}

// postForm performs an authorized form POST against path.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, dst)
}

// getRaw performs an authorized GET and returns the undecoded body. Landing
// endpoints do not always use the result envelope.
func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}
	return c.send(req)
}

// do sends req with the current token. The token is read on every call so a
// credential captured after the client was built is picked up. A missing
// token fails before any network traffic.
func (c *Client) do(req *http.Request, dst interface{}) error {
	if err := c.authorize(req); err != nil {
		return err
	}

	body, err := c.send(req)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrMalformed, err)
	}
	if env.Error != nil {
		return &Error{Name: env.Error.Name, Message: env.Error.Message, URL: req.URL.String()}
	}
	if dst == nil {
		return nil
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return fmt.Errorf("%w: empty result", ErrMalformed)
	}
	if err := json.Unmarshal(env.Result, dst); err != nil {
		return fmt.Errorf("%w: decode result: %v", ErrMalformed, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.tokens == nil {
		return ErrNoToken
	}
	tok, err := c.tokens.Token()
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrNoToken, err)
	}
	if tok == nil || tok.AccessToken == "" {
		return ErrNoToken
	}
	tok.SetAuthHeader(req)
	return nil
}

// send paces, executes and reads req. Non-2xx statuses become *Error values.
// Nothing is retried.
func (c *Client) send(req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	c.logDebugf("ymusic: %s %s", req.Method, req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode, URL: req.URL.String()}
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Error != nil {
			apiErr.Name = env.Error.Name
			apiErr.Message = env.Error.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}

	return body, nil
}

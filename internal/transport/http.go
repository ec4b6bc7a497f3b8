package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/meigma/ferry/core"
	"github.com/meigma/ferry/internal/progress"
)

func (e *Engine) httpGet(ctx context.Context, u *url.URL, dst io.Writer, fn core.ProgressFunc) error {
	client, err := e.client(u.Host, nil)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", core.ErrInvalidArgument, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return mapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mapError(statusError(resp))
	}

	// ContentLength is -1 when the server does not announce a size.
	pw := progress.NewWriter(dst, resp.ContentLength, e.step, progress.Callback(fn)).WithContext(ctx)
	if _, err := io.Copy(pw, resp.Body); err != nil {
		return mapError(err)
	}
	pw.Flush()
	return nil
}

func (e *Engine) httpPut(ctx context.Context, u *url.URL, src io.Reader, size int64, creds *core.Credentials, fn core.ProgressFunc) error {
	client, err := e.client(u.Host, creds)
	if err != nil {
		return err
	}

	body := progress.NewReader(src, size, e.step, progress.Callback(fn)).WithContext(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), io.NopCloser(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", core.ErrInvalidArgument, err)
	}
	switch {
	case size == 0:
		req.Body = http.NoBody
		if fn != nil {
			fn(0, 0)
		}
	case size > 0:
		req.ContentLength = size
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	// The body cannot be replayed after an auth challenge, so basic
	// credentials go out with the first request.
	if creds != nil {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	resp, err := client.Do(req)
	if err != nil {
		return mapError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		return mapError(statusError(resp))
	}
}

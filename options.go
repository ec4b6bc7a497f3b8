package ferry

import (
	"errors"
	"log/slog"

	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/meigma/ferry/core"
	"github.com/meigma/ferry/internal/transport"
)

// ClientOption configures a Client.
type ClientOption func(*Client) error

// WithCredentials sets explicit credentials for a specific host. They are
// used by downloads and by uploads that carry no credentials of their own.
func WithCredentials(host, username, password string) ClientOption {
	return func(c *Client) error {
		c.credStore = transport.StaticCredentials(host, &core.Credentials{Username: username, Password: password})
		return nil
	}
}

// WithCredentialStore sets a custom credential store.
func WithCredentialStore(store credentials.Store) ClientOption {
	return func(c *Client) error {
		c.credStore = store
		return nil
	}
}

// WithEngine replaces the default HTTP/OCI engine. Engines that do not
// depend on Init are usable without it.
func WithEngine(engine Engine) ClientOption {
	return func(c *Client) error {
		if engine == nil {
			return errors.New("engine must not be nil")
		}
		c.engine = engine
		return nil
	}
}

// WithInsecure allows oci:// transfers to registries without TLS.
func WithInsecure(insecure bool) ClientOption {
	return func(c *Client) error {
		c.plainHTTP = insecure
		return nil
	}
}

// WithLogger sets a logger for the client. By default, logging is disabled.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithProgressStep sets the minimum number of bytes between progress
// callbacks of the default engine. The final count is always reported.
func WithProgressStep(step int64) ClientOption {
	return func(c *Client) error {
		if step < 0 {
			return errors.New("progress step must not be negative")
		}
		c.progressStep = step
		return nil
	}
}

// WithScheduler delivers callbacks through s instead of the client's own
// Loop. s must run tasks one at a time in posting order.
func WithScheduler(s Scheduler) ClientOption {
	return func(c *Client) error {
		if s == nil {
			return errors.New("scheduler must not be nil")
		}
		c.scheduler = s
		return nil
	}
}

// WithUserAgent sets a custom User-Agent header for engine requests.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) error {
		c.userAgent = ua
		return nil
	}
}

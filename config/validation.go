package config

import (
	"fmt"
	"net"
	"net/url"

	"github.com/grovetools/chartview/errors"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validateFeed(&c.Feed); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid feed configuration")
	}
	if err := validateViewer(&c.Viewer); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid viewer configuration")
	}
	if err := validateListen("relay.listen", c.Relay.Listen); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid relay configuration")
	}
	if c.Relay.PingInterval <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "relay.ping_interval must be positive").
			WithDetail("ping_interval", c.Relay.PingInterval.String())
	}
	return nil
}

func validateFeed(feed *FeedConfig) error {
	u, err := url.Parse(feed.URL)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "feed.url is not a valid URL").
			WithDetail("url", feed.URL)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("feed.url must use ws:// or wss://, got %q", u.Scheme)).
			WithDetail("url", feed.URL)
	}
	if u.Host == "" {
		return errors.New(errors.ErrCodeInvalidInput, "feed.url has no host").
			WithDetail("url", feed.URL)
	}
	if feed.BackoffFloor <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "feed.backoff_floor must be positive")
	}
	if feed.BackoffCeiling < feed.BackoffFloor {
		return errors.New(errors.ErrCodeInvalidInput, "feed.backoff_ceiling must not be below feed.backoff_floor").
			WithDetail("floor", feed.BackoffFloor.String()).
			WithDetail("ceiling", feed.BackoffCeiling.String())
	}
	if feed.ReadTimeout < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "feed.read_timeout cannot be negative")
	}
	return nil
}

func validateViewer(viewer *ViewerConfig) error {
	if err := validateListen("viewer.listen", viewer.Listen); err != nil {
		return err
	}
	if viewer.PanStep <= 0 || viewer.PanStep > 1 {
		return errors.New(errors.ErrCodeInvalidInput, "viewer.pan_step must be in (0, 1]").
			WithDetail("pan_step", viewer.PanStep)
	}
	if viewer.PanInterval <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "viewer.pan_interval must be positive")
	}
	return nil
}

func validateListen(field, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, fmt.Sprintf("%s must be host:port", field)).
			WithDetail("listen", addr)
	}
	return nil
}

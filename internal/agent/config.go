// Package agent is the on-device tracking loop: it acquires fixes, reports them
// to the tracking API and queues what could not be delivered.
package agent

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultInterval          = 30 * time.Second
	DefaultDistanceThreshold = 20.0 // metres
	DefaultMaxSilence        = 5 * time.Minute
	DefaultRequestTimeout    = 10 * time.Second
	DefaultDeviceType        = "agent"
)

type Config struct {
	BaseURL     string
	ClientToken string
	DeviceType  string
	Language    string

	PIN   string
	Phone string

	Interval time.Duration
	// DistanceThreshold is the movement in metres below which a fix is skipped.
	DistanceThreshold float64
	// MaxSilence forces a report while parked.
	MaxSilence     time.Duration
	RequestTimeout time.Duration
}

// WithDefaults fills unset durations and thresholds.
func (c Config) WithDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.DistanceThreshold <= 0 {
		c.DistanceThreshold = DefaultDistanceThreshold
	}
	if c.MaxSilence <= 0 {
		c.MaxSilence = DefaultMaxSilence
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.DeviceType == "" {
		c.DeviceType = DefaultDeviceType
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	return c
}

// Validate reports every missing or malformed field at once.
func (c Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base url is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base url %q is not absolute", c.BaseURL))
	}
	if c.ClientToken == "" {
		errs = append(errs, errors.New("client token is required"))
	}
	if strings.TrimSpace(c.PIN) == "" {
		errs = append(errs, errors.New("ride pin is required"))
	}
	if strings.TrimSpace(c.Phone) == "" {
		errs = append(errs, errors.New("driver phone is required"))
	}
	if c.MaxSilence < c.Interval {
		errs = append(errs, errors.New("max silence must not be shorter than the interval"))
	}
	return errors.Join(errs...)
}

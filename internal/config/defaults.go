package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	DefaultIntervalDays  = 365
	DefaultTimetablePath = "time.json"
	DefaultTick          = "100s"
	DefaultConfigPath    = "config.toml"
)

// IntervalDays is the global default reminder interval.
func (c *Config) IntervalDays() int {
	if c == nil || c.Interval <= 0 {
		return DefaultIntervalDays
	}
	return c.Interval
}

// TimetablePath is the path used by the file and sqlite storage drivers.
func (c *Config) TimetablePath() string {
	if c == nil {
		return DefaultTimetablePath
	}
	if p := strings.TrimSpace(c.Storage.Path); p != "" {
		return p
	}
	if p := strings.TrimSpace(c.Time); p != "" {
		return p
	}
	return DefaultTimetablePath
}

func (c *Config) TickSpec() string {
	if c == nil || strings.TrimSpace(c.Tick) == "" {
		return DefaultTick
	}
	return strings.TrimSpace(c.Tick)
}

func (c *Config) WorkerCount() int {
	if c == nil || c.Workers < 1 {
		return 1
	}
	return c.Workers
}

// CompanyNames returns the configured recipient names in sorted order.
func (c *Config) CompanyNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Companies))
	for name := range c.Companies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the values that the decoder cannot. It reports every
// problem at once.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval: must be >= 0, got %d", c.Interval))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers: must be >= 0, got %d", c.Workers))
	}
	if c.SMTP.Port < 0 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("smtp.port: out of range: %d", c.SMTP.Port))
	}
	if _, err := Timeout("smtp.timeout", c.SMTP.Timeout, 0); err != nil {
		errs = append(errs, err)
	}
	if _, err := Timeout("storage.busy_timeout", c.Storage.BusyTimeout, 0); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "file", "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unsupported %q", c.Storage.Driver))
	}
	for _, name := range c.CompanyNames() {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("companies: empty name"))
			continue
		}
		if iv := c.Companies[name].Interval; iv < 0 {
			errs = append(errs, fmt.Errorf("companies.%s.interval: must be >= 0, got %d", name, iv))
		}
	}
	return errors.Join(errs...)
}

package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SpecKind is the normalized kind of a tick specification.
type SpecKind int

const (
	SpecInterval SpecKind = iota
	SpecCron
)

// TickSpec is a parsed tick specification.
//
// Supported forms:
//   - Go duration: "100s", "5m", "1h30m"
//   - HH:MM interval: "00:05" (5 minutes), "01:30"
//   - Cron: "*/5 * * * *", "0 */2 * * * *" (seconds optional), "@hourly", "@every 10m"
//
// The prefixes "cron:", "interval:" and "every:" force a form.
type TickSpec struct {
	Kind   SpecKind
	Cron   string
	Every  time.Duration
	Source string // "cron" | "duration" | "hhmm"
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// cronParser accepts 5- and 6-field expressions plus descriptors.
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseTick parses and validates a tick specification.
func ParseTick(raw string) (TickSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TickSpec{}, fmt.Errorf("tick required")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return cronSpec(strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(low, "interval:"):
		return intervalSpec(s[len("interval:"):])
	case strings.HasPrefix(low, "every:"):
		return intervalSpec(s[len("every:"):])
	case strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@"):
		return cronSpec(s)
	}

	spec, err := intervalSpec(s)
	if err != nil {
		return TickSpec{}, fmt.Errorf(
			"invalid tick %q (use a duration like '100s', HH:MM like '00:05' or cron like '*/5 * * * *')",
			raw,
		)
	}
	return spec, nil
}

// Schedule converts the spec into a cron schedule.
func (t TickSpec) Schedule() (cron.Schedule, error) {
	if t.Kind == SpecCron {
		return cronParser.Parse(t.Cron)
	}
	return cron.Every(t.Every), nil
}

func (t TickSpec) String() string {
	if t.Kind == SpecCron {
		return "cron:" + t.Cron
	}
	return "every:" + t.Every.String()
}

func cronSpec(expr string) (TickSpec, error) {
	if expr == "" {
		return TickSpec{}, fmt.Errorf("cron expression required")
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return TickSpec{}, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return TickSpec{Kind: SpecCron, Cron: expr, Source: "cron"}, nil
}

func intervalSpec(v string) (TickSpec, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return TickSpec{}, fmt.Errorf("interval required")
	}
	if reHHMM.MatchString(v) {
		d, err := parseHHMM(v)
		if err != nil {
			return TickSpec{}, err
		}
		return TickSpec{Kind: SpecInterval, Every: d, Source: "hhmm"}, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return TickSpec{}, fmt.Errorf("invalid interval %q (use HH:MM or a Go duration like '100s')", v)
	}
	if d < time.Second {
		return TickSpec{}, fmt.Errorf("interval must be at least 1s")
	}
	return TickSpec{Kind: SpecInterval, Every: d, Source: "duration"}, nil
}

func parseHHMM(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, fmt.Errorf("invalid HH:MM %q", v)
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if mm > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", v)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}

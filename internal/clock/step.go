package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Step is a calendar advance: whole years, months and days applied with
// time.AddDate, then a fixed duration.
type Step struct {
	Years    int
	Months   int
	Days     int
	Duration time.Duration
}

// Apply returns t advanced by s.
func (s Step) Apply(t time.Time) time.Time {
	return t.AddDate(s.Years, s.Months, s.Days).Add(s.Duration)
}

// IsZero reports whether s leaves every instant unchanged.
func (s Step) IsZero() bool {
	return s == Step{}
}

// String formats s in the syntax ParseStep accepts.
func (s Step) String() string {
	var b strings.Builder
	for _, p := range []struct {
		n    int
		unit string
	}{{s.Years, "y"}, {s.Months, "mo"}, {s.Days, "d"}} {
		if p.n != 0 {
			fmt.Fprintf(&b, "%d%s", p.n, p.unit)
		}
	}
	if s.Duration != 0 || b.Len() == 0 {
		b.WriteString(s.Duration.String())
	}
	return b.String()
}

// ParseStep parses calendar units followed by an optional Go duration,
// for example "1mo", "1y6mo", "7d12h" or "90m". Calendar units must
// appear in the order y, mo, d.
func ParseStep(s string) (Step, error) {
	var step Step
	rest := strings.TrimSpace(s)
	if rest == "" {
		return step, fmt.Errorf("empty step")
	}

	for _, u := range []struct {
		suffix string
		dst    *int
	}{{"y", &step.Years}, {"mo", &step.Months}, {"d", &step.Days}} {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		// "1m" and "1ms" stay durations; only "1mo" is a month.
		if i == 0 || !strings.HasPrefix(rest[i:], u.suffix) {
			continue
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return Step{}, fmt.Errorf("invalid step %q: %w", s, err)
		}
		*u.dst = n
		rest = rest[i+len(u.suffix):]
	}

	if rest != "" {
		d, err := time.ParseDuration(rest)
		if err != nil {
			return Step{}, fmt.Errorf("invalid step %q: %w", s, err)
		}
		step.Duration = d
	}
	if step.IsZero() {
		return Step{}, fmt.Errorf("invalid step %q: advances nothing", s)
	}
	return step, nil
}

package quest

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Cadence yields reset boundaries. Next returns the first boundary strictly
// after t.
type Cadence interface {
	Next(t time.Time) time.Time
}

// Cadences holds one cadence per kind.
type Cadences [kindCount]Cadence

// cronCadence wraps a parsed cron schedule pinned to a location.
type cronCadence struct {
	sched cron.Schedule
	loc   *time.Location
}

func (c cronCadence) Next(t time.Time) time.Time {
	return c.sched.Next(t.In(c.loc))
}

// DailyAt fires every day at hour:00 in loc.
func DailyAt(hour int, loc *time.Location) (Cadence, error) {
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("quest: daily reset hour %d out of range", hour)
	}
	return parseCron(fmt.Sprintf("0 %d * * *", hour), loc)
}

// WeeklyOn fires on day at 00:00 in loc.
func WeeklyOn(day time.Weekday, loc *time.Location) (Cadence, error) {
	if day < time.Sunday || day > time.Saturday {
		return nil, fmt.Errorf("quest: weekly reset day %d out of range", day)
	}
	return parseCron(fmt.Sprintf("0 0 * * %d", day), loc)
}

func parseCron(spec string, loc *time.Location) (Cadence, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("quest: parse cadence %q: %w", spec, err)
	}
	if ss, ok := s.(*cron.SpecSchedule); ok {
		ss.Location = loc
	}
	return cronCadence{sched: s, loc: loc}, nil
}

// LastDayOfMonth fires at 00:00 on the last calendar day of every month.
// Cron has no "last day" field, so it is computed directly.
type LastDayOfMonth struct {
	Loc *time.Location
}

func (c LastDayOfMonth) Next(t time.Time) time.Time {
	loc := c.Loc
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	y, m, _ := lt.Date()
	for i := 0; i < 3; i++ {
		// day 0 of the following month is the last day of m
		b := time.Date(y, m+1+time.Month(i), 0, 0, 0, 0, 0, loc)
		if b.After(lt) {
			return b
		}
	}
	return time.Date(y, m+3, 0, 0, 0, 0, 0, loc)
}

// NewCadences builds the standard daily/weekly/monthly set.
func NewCadences(dailyHour int, weeklyDay time.Weekday, loc *time.Location) (Cadences, error) {
	var cs Cadences
	d, err := DailyAt(dailyHour, loc)
	if err != nil {
		return cs, err
	}
	w, err := WeeklyOn(weeklyDay, loc)
	if err != nil {
		return cs, err
	}
	cs[KindDaily] = d
	cs[KindWeekly] = w
	cs[KindMonthly] = LastDayOfMonth{Loc: loc}
	return cs, nil
}

// ParseWeekday accepts English weekday names ("monday", "Mon") case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	low := strings.ToLower(strings.TrimSpace(s))
	if len(low) >= 3 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			if strings.HasPrefix(strings.ToLower(d.String()), low) {
				return d, nil
			}
		}
	}
	return 0, fmt.Errorf("quest: unknown weekday %q", s)
}

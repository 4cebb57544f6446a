// Package schedule runs named recurring jobs. Each name owns at most one
// timer; registering a name again replaces its job.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultExpression fires every ten seconds.
const DefaultExpression = "*/10 * * * * ?"

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Parse validates a cron expression. Five fields follow crontab. Six fields
// add leading seconds and follow Quartz: "?" is accepted and numeric
// days of the week run 1 (Sunday) to 7 (Saturday). A trailing seventh year
// field is accepted when it is "*" or "?".
func Parse(expr string) (cron.Schedule, error) {
	norm, err := normalize(expr)
	if err != nil {
		return nil, fmt.Errorf("cron %q: %w", expr, err)
	}
	s, err := parser.Parse(norm)
	if err != nil {
		return nil, fmt.Errorf("cron %q: %w", expr, err)
	}
	return s, nil
}

func normalize(expr string) (string, error) {
	fields := strings.Fields(expr)
	if len(fields) == 7 && (fields[6] == "*" || fields[6] == "?") {
		fields = fields[:6]
	}
	if len(fields) == 6 {
		dow, err := quartzWeekdays(fields[5])
		if err != nil {
			return "", err
		}
		fields[5] = dow
	}
	return strings.Join(fields, " "), nil
}

// quartzWeekdays shifts Quartz day numbers (1-7 from Sunday) to the 0-6
// robfig expects. Names, "*" and "?" are kept; steps are not day numbers.
func quartzWeekdays(field string) (string, error) {
	parts := strings.Split(field, ",")
	for i, part := range parts {
		base, step, hasStep := strings.Cut(part, "/")
		lo, hi, isRange := strings.Cut(base, "-")
		lo, err := shiftWeekday(lo)
		if err != nil {
			return "", err
		}
		if isRange {
			if hi, err = shiftWeekday(hi); err != nil {
				return "", err
			}
			lo += "-" + hi
		}
		if hasStep {
			lo += "/" + step
		}
		parts[i] = lo
	}
	return strings.Join(parts, ","), nil
}

func shiftWeekday(s string) (string, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return s, nil
	}
	if n < 1 || n > 7 {
		return "", fmt.Errorf("day of week %d out of range 1-7", n)
	}
	return strconv.Itoa(n - 1), nil
}

type job struct {
	expr string
	c    *cron.Cron
}

// Registry holds named jobs.
type Registry struct {
	log zerolog.Logger

	mu   sync.Mutex
	jobs map[string]job
}

// Default is the process-wide registry.
var Default = NewRegistry(zerolog.Nop())

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{log: log.With().Str("component", "schedule").Logger(), jobs: make(map[string]job)}
}

// SetLogger replaces the logger used for jobs started afterwards.
func (r *Registry) SetLogger(log zerolog.Logger) {
	r.mu.Lock()
	r.log = log.With().Str("component", "schedule").Logger()
	r.mu.Unlock()
}

// RunJob starts fn under name on expr, replacing any job with that name.
// An invalid expression returns an error and leaves the existing job running.
func (r *Registry) RunJob(name, expr string, fn func()) error {
	sched, err := Parse(expr)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.jobs[name]; ok {
		old.c.Stop()
	}
	l := cronLogger{log: r.log.With().Str("job", name).Logger()}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l)),
	)
	c.Schedule(sched, cron.FuncJob(fn))
	c.Start()
	r.jobs[name] = job{expr: expr, c: c}
	r.log.Debug().Str("job", name).Str("cron", expr).Msg("job scheduled")
	return nil
}

// StopJob cancels the job under name. Missing names are ignored.
func (r *Registry) StopJob(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.jobs[name]; ok {
		j.c.Stop()
		delete(r.jobs, name)
		r.log.Debug().Str("job", name).Msg("job stopped")
	}
}

// Active returns the expression of the job under name.
func (r *Registry) Active(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[name]
	return j.expr, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Names lists registered job names in order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.jobs))
	for n := range r.jobs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// StopAll cancels every job.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, j := range r.jobs {
		j.c.Stop()
		delete(r.jobs, name)
	}
}

// cronLogger routes cron's logr-style calls into zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

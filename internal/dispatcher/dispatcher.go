// Package dispatcher routes host commands to their handlers. Everything runs on
// the caller's goroutine: deferred handlers are queued and run by Flush, which
// the frame loop calls once per frame.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kres-mod/kres/internal/queue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrEmptyCommand is returned by Parse for a blank line.
var ErrEmptyCommand = errors.New("empty command")

// Event represents an incoming command from the host.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// Arg returns the i-th argument or "" when there are fewer.
func (e Event) Arg(i int) string {
	if i < 0 || i >= len(e.Args) {
		return ""
	}
	return e.Args[i]
}

// Parse splits a command line such as ":SCAN:START: Probe ore" into an event.
// Arguments are separated by whitespace; double quotes group an argument.
func Parse(line string) (Event, error) {
	fields, err := splitArgs(line)
	if err != nil {
		return Event{}, err
	}
	if len(fields) == 0 {
		return Event{}, ErrEmptyCommand
	}
	return Event{Command: strings.ToUpper(fields[0]), Args: fields[1:], Timestamp: time.Now()}, nil
}

func splitArgs(line string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				out = append(out, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", line)
	}
	if started {
		out = append(out, cur.String())
	}
	return out, nil
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	deferred int
	logged   bool
}

// Deferred queues events, up to size of them, until the next Flush. A full
// queue drops its oldest event.
func Deferred(size int) Option {
	return func(c *config) {
		c.deferred = size
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type pending struct {
	command string
	handler HandlerFunc
	events  *queue.Queue[Event]
	dropped uint64
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu       sync.RWMutex
	deferred map[string]*pending
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		deferred: make(map[string]*pending),
		logger:   logger,
	}

	// Get meter from global OTel provider (returns no-op if not configured)
	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"kres.dispatcher.queue.size",
		metric.WithDescription("Current number of deferred events"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, p := range d.deferred {
				o.ObserveInt64(d.queueSize, int64(p.events.Len()),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"kres.dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"kres.dispatcher.events.dropped",
		metric.WithDescription("Total deferred events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	if cfg.deferred > 0 {
		handler = d.withDeferral(command, cfg.deferred, handler)
	} else {
		handler = d.withCount(command, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(e)
}

// DispatchLine parses and dispatches one command line.
func (d *Dispatcher) DispatchLine(line string) (any, error) {
	e, err := Parse(line)
	if err != nil {
		return nil, err
	}
	return d.Dispatch(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands lists the registered commands, sorted.
func (d *Dispatcher) Commands() []string {
	out := make([]string, 0, len(d.handlers))
	for cmd := range d.handlers {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// Pending counts the deferred events waiting for Flush.
func (d *Dispatcher) Pending() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, p := range d.deferred {
		n += p.events.Len()
	}
	return n
}

// Flush runs every deferred event in arrival order per command, commands in
// name order. Handler errors are logged and joined.
func (d *Dispatcher) Flush() error {
	d.mu.RLock()
	cmds := make([]string, 0, len(d.deferred))
	for cmd := range d.deferred {
		cmds = append(cmds, cmd)
	}
	d.mu.RUnlock()
	sort.Strings(cmds)

	var errs []error
	for _, cmd := range cmds {
		d.mu.RLock()
		p := d.deferred[cmd]
		d.mu.RUnlock()

		cmdAttr := metric.WithAttributes(attribute.String("command", cmd))
		for _, e := range p.events.Drain() {
			if _, err := p.handler(e); err != nil {
				d.logger.Error("deferred event failed", "command", cmd, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", cmd, err))
			}
			d.processed.Add(context.Background(), 1, cmdAttr)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) withCount(command string, h HandlerFunc) HandlerFunc {
	cmdAttr := metric.WithAttributes(attribute.String("command", command))
	return func(e Event) (any, error) {
		result, err := h(e)
		d.processed.Add(context.Background(), 1, cmdAttr)
		return result, err
	}
}

func (d *Dispatcher) withDeferral(command string, size int, h HandlerFunc) HandlerFunc {
	p := &pending{command: command, handler: h, events: queue.New[Event](size)}

	d.mu.Lock()
	d.deferred[command] = p
	d.mu.Unlock()

	cmdAttr := metric.WithAttributes(attribute.String("command", command))

	return func(e Event) (any, error) {
		p.events.Push(e)
		if dropped := p.events.Dropped(); dropped > p.dropped {
			d.dropped.Add(context.Background(), int64(dropped-p.dropped), cmdAttr)
			p.dropped = dropped
		}
		return "queued", nil
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}

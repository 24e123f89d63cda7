package tool

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DispatcherConfig wires a Dispatcher. Only Registry is required.
type DispatcherConfig struct {
	Registry *Registry
	Observer Observer
	Journal  Journal
	Logger   *slog.Logger
	// NewRequestID generates ids for calls that carry none.
	NewRequestID func() string
}

// Result is the outcome of a successful Execute.
type Result struct {
	RequestID  string `json:"request_id"`
	ToolName   string `json:"tool"`
	Output     string `json:"output"`
	DurationMS int64  `json:"duration_ms"`
}

// Dispatcher routes a tool name plus payload to a registered tool.
type Dispatcher struct {
	registry *Registry
	observer Observer
	journal  Journal
	logger   *slog.Logger
	newID    func() string
}

// NewDispatcher returns a dispatcher over cfg.Registry.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		registry: cfg.Registry,
		observer: cfg.Observer,
		journal:  cfg.Journal,
		logger:   cfg.Logger,
		newID:    cfg.NewRequestID,
	}
	if d.registry == nil {
		d.registry = NewRegistry(RegistryConfig{})
	}
	if d.observer == nil {
		d.observer = NopObserver{}
	}
	if d.journal == nil {
		d.journal = nopJournal{}
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.newID == nil {
		d.newID = func() string { return uuid.New().String() }
	}
	return d
}

// Registry returns the registry the dispatcher reads from.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Journal returns the dispatcher's journal.
func (d *Dispatcher) Journal() Journal {
	return d.journal
}

// Dispatch calls the tool registered as name with payload and returns its text.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, payload Payload) (string, error) {
	res, err := d.Execute(ctx, Call{Name: name, Payload: payload})
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// ExecuteJSON decodes data as the argument payload for the tool name and
// executes it. A payload that does not decode is observed and journaled as
// an INVALID_PAYLOAD dispatch.
func (d *Dispatcher) ExecuteJSON(ctx context.Context, id, name string, data []byte) (Result, error) {
	payload, err := DecodePayload(data)
	if err != nil {
		if toolErr, ok := toolErrorFrom(err); ok {
			toolErr.withTool(name)
		}
		return d.reject(ctx, Call{ID: id, Name: name}, err)
	}
	return d.Execute(ctx, Call{ID: id, Name: name, Payload: payload})
}

// ExecuteEnvelope parses data as an invoker envelope and executes it. id is
// used when the envelope carries none. Envelopes that do not parse are
// observed and journaled as INVALID_PAYLOAD dispatches.
func (d *Dispatcher) ExecuteEnvelope(ctx context.Context, id string, data []byte) (Result, error) {
	call, err := ParseCall(data)
	if call.ID == "" {
		call.ID = id
	}
	if err != nil {
		return d.reject(ctx, call, err)
	}
	return d.Execute(ctx, call)
}

// Execute runs lookup, binding and invocation for call. The context is used
// for observation and journaling only.
func (d *Dispatcher) Execute(ctx context.Context, call Call) (Result, error) {
	requestID := d.requestID(call)
	start := time.Now()

	output, err := d.run(call)
	elapsed := time.Since(start)

	res := Result{
		RequestID:  requestID,
		ToolName:   call.Name,
		Output:     output,
		DurationMS: elapsed.Milliseconds(),
	}
	d.record(ctx, res, start, elapsed, err)
	if err != nil {
		return Result{RequestID: requestID, ToolName: call.Name, DurationMS: res.DurationMS}, err
	}
	return res, nil
}

// reject records a call that failed before lookup.
func (d *Dispatcher) reject(ctx context.Context, call Call, err error) (Result, error) {
	res := Result{RequestID: d.requestID(call), ToolName: call.Name}
	d.record(ctx, res, time.Now(), 0, err)
	return res, err
}

func (d *Dispatcher) requestID(call Call) string {
	if call.ID != "" {
		return call.ID
	}
	return d.newID()
}

func (d *Dispatcher) run(call Call) (string, error) {
	t, ok := d.registry.Get(call.Name)
	if !ok {
		return "", newToolError(CodeNotFound, "no tool registered under this name", nil).withTool(call.Name)
	}

	args, err := t.Bind(call.Payload)
	if err != nil {
		return "", err
	}
	return t.Call(args)
}

func (d *Dispatcher) record(ctx context.Context, res Result, start time.Time, elapsed time.Duration, err error) {
	obs := DispatchObservation{
		RequestID: res.RequestID,
		ToolName:  res.ToolName,
		Success:   err == nil,
		Started:   start,
		Duration:  elapsed,
	}
	if err != nil {
		obs.Stage = ErrorStage(err)
		obs.ErrorCode = ErrorCode(err)
		d.logger.Warn("tool dispatch failed",
			"tool", res.ToolName,
			"request_id", res.RequestID,
			"stage", string(obs.Stage),
			"code", obs.ErrorCode,
		)
	} else {
		d.logger.Debug("tool dispatched",
			"tool", res.ToolName,
			"request_id", res.RequestID,
			"duration_ms", res.DurationMS,
		)
	}
	d.observer.ObserveDispatch(ctx, obs)

	entry := JournalEntry{
		RequestID:  res.RequestID,
		ToolName:   res.ToolName,
		Success:    obs.Success,
		Stage:      obs.Stage,
		ErrorCode:  obs.ErrorCode,
		StartedAt:  start,
		DurationMS: res.DurationMS,
		OutputSize: len(res.Output),
	}
	if jerr := d.journal.Append(context.WithoutCancel(ctx), entry); jerr != nil {
		d.logger.Error("tool journal append failed",
			"tool", res.ToolName,
			"request_id", res.RequestID,
			"error", jerr,
		)
	}
}

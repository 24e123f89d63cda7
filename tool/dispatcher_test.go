package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type recordingObserver struct {
	mu           sync.Mutex
	observations []DispatchObservation
}

func (r *recordingObserver) ObserveDispatch(_ context.Context, obs DispatchObservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, obs)
}

type failingJournal struct{ nopJournal }

func (failingJournal) Append(context.Context, JournalEntry) error {
	return errors.New("disk full")
}

func TestDispatchNotFoundSkipsBinding(t *testing.T) {
	var calls atomic.Int32
	types := DefaultTypeRegistry(TypeOptions{})
	registry := NewRegistry(RegistryConfig{})
	_ = registry.Register(MustNew(types, Descriptor{Name: "count", Parameters: Params("n")}, Func1(func(int32) (string, error) {
		calls.Add(1)
		return "", nil
	})))

	obs := &recordingObserver{}
	d := NewDispatcher(DispatcherConfig{Registry: registry, Observer: obs})

	_, err := d.Dispatch(context.Background(), "cont", Payload{"n": "not a number"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Dispatch() error = %v, want NOT_FOUND", err)
	}
	if errors.Is(err, ErrArgument) {
		t.Fatal("Dispatch() reported an argument-stage error for an unknown tool")
	}
	if calls.Load() != 0 {
		t.Fatalf("function ran %d times, want 0", calls.Load())
	}
	if len(obs.observations) != 1 || obs.observations[0].ErrorCode != CodeNotFound || obs.observations[0].Success {
		t.Fatalf("observations = %+v", obs.observations)
	}
}

func TestDispatchArgumentErrorsDoNotInvoke(t *testing.T) {
	var calls atomic.Int32
	types := DefaultTypeRegistry(TypeOptions{})
	registry := NewRegistry(RegistryConfig{})
	_ = registry.Register(MustNew(types, Descriptor{Name: "count", Parameters: Params("n")}, Func1(func(int32) (string, error) {
		calls.Add(1)
		return "", nil
	})))
	d := NewDispatcher(DispatcherConfig{Registry: registry})

	_, err := d.Dispatch(context.Background(), "count", Payload{})
	if !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("Dispatch() error = %v, want MISSING_ARGUMENT", err)
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Tool != "count" || toolErr.Parameter != "n" {
		t.Fatalf("Dispatch() error = %#v, want tool and parameter", err)
	}

	_, err = d.Dispatch(context.Background(), "count", Payload{"n": "1.5"})
	if !errors.Is(err, ErrArgumentParse) {
		t.Fatalf("Dispatch() error = %v, want ARGUMENT_PARSE_ERROR", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("function ran %d times, want 0", calls.Load())
	}
}

func TestDispatchUsesParsersBoundAtConstruction(t *testing.T) {
	relaxed := DefaultTypeRegistry(TypeOptions{CaseInsensitiveBooleans: true})
	shouting := NewTypeRegistry()
	if err := shouting.Register(TypeText, func(raw any) (Value, error) {
		v, err := parseText(raw)
		if err != nil {
			return Value{}, err
		}
		s, _ := v.Text()
		return TextValue(strings.ToUpper(s)), nil
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	registry := NewRegistry(RegistryConfig{})
	_ = registry.Register(MustNew(relaxed, Descriptor{Name: "flag", Parameters: Params("on")}, Func1(func(on bool) (string, error) {
		return fmt.Sprint(on), nil
	})))
	_ = registry.Register(MustNew(shouting, Descriptor{Name: "echo", Parameters: Params("s")}, Func1(func(s string) (string, error) {
		return s, nil
	})))
	d := NewDispatcher(DispatcherConfig{Registry: registry})

	out, err := d.Dispatch(context.Background(), "flag", Payload{"on": "TRUE"})
	if err != nil || out != "true" {
		t.Fatalf("Dispatch(flag) = %q, %v, want true", out, err)
	}
	out, err = d.Dispatch(context.Background(), "echo", Payload{"s": "hi"})
	if err != nil || out != "HI" {
		t.Fatalf("Dispatch(echo) = %q, %v, want HI", out, err)
	}
}

func TestExecuteResultAndRequestID(t *testing.T) {
	journal := NewMemoryJournal(8)
	d := newBuiltinDispatcher(t)
	d = NewDispatcher(DispatcherConfig{
		Registry:     d.Registry(),
		Journal:      journal,
		NewRequestID: func() string { return "generated" },
	})

	res, err := d.Execute(context.Background(), Call{
		ID:      "req-7",
		Name:    "get_current_weather",
		Payload: Payload{"location": "Oslo", "unit": "celsius"},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.RequestID != "req-7" || res.ToolName != "get_current_weather" || res.Output != "Weather for Oslo in celsius" {
		t.Fatalf("Execute() = %+v", res)
	}

	res, err = d.Execute(context.Background(), Call{Name: "get_current_weather", Payload: Payload{"location": "Oslo"}})
	if err == nil {
		t.Fatal("Execute() error = nil, want MISSING_ARGUMENT")
	}
	if res.RequestID != "generated" || res.Output != "" {
		t.Fatalf("Execute() failure result = %+v", res)
	}

	entries, err := journal.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent() returned %d entries, want 2", len(entries))
	}
	if entries[0].RequestID != "generated" || entries[0].Success || entries[0].ErrorCode != CodeMissingArgument {
		t.Fatalf("entries[0] = %+v", entries[0])
	}
	if entries[1].RequestID != "req-7" || !entries[1].Success || entries[1].OutputSize != len("Weather for Oslo in celsius") {
		t.Fatalf("entries[1] = %+v", entries[1])
	}
}

func TestExecuteRawInputRecordsInvalidPayload(t *testing.T) {
	journal := NewMemoryJournal(8)
	obs := &recordingObserver{}
	d := newBuiltinDispatcher(t)
	d = NewDispatcher(DispatcherConfig{Registry: d.Registry(), Journal: journal, Observer: obs})
	ctx := context.Background()

	res, err := d.ExecuteJSON(ctx, "req-1", "get_current_weather", []byte(`{"location":`))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("ExecuteJSON() error = %v, want INVALID_PAYLOAD", err)
	}
	if ErrorStage(err) != StageArgument || res.RequestID != "req-1" {
		t.Fatalf("ExecuteJSON() stage = %q result = %+v", ErrorStage(err), res)
	}

	if _, err := d.ExecuteEnvelope(ctx, "req-2", []byte(`{"arguments":{}}`)); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("ExecuteEnvelope() error = %v, want INVALID_PAYLOAD", err)
	}

	res, err = d.ExecuteEnvelope(ctx, "fallback", []byte(`{"name":"get_current_weather","arguments":{"location":"Oslo","unit":"celsius"}}`))
	if err != nil {
		t.Fatalf("ExecuteEnvelope() error = %v", err)
	}
	if res.RequestID != "fallback" || res.Output != "Weather for Oslo in celsius" {
		t.Fatalf("ExecuteEnvelope() = %+v", res)
	}

	entries, _ := journal.Recent(ctx, 0)
	if len(entries) != 3 {
		t.Fatalf("journal entries = %d, want 3", len(entries))
	}
	if entries[2].RequestID != "req-1" || entries[2].ToolName != "get_current_weather" || entries[2].ErrorCode != CodeInvalidPayload {
		t.Fatalf("entries[2] = %+v", entries[2])
	}
	if entries[1].RequestID != "req-2" || entries[1].ErrorCode != CodeInvalidPayload {
		t.Fatalf("entries[1] = %+v", entries[1])
	}
	if len(obs.observations) != 3 || obs.observations[0].Stage != StageArgument || obs.observations[0].Success {
		t.Fatalf("observations = %+v", obs.observations)
	}
}

func TestDispatchJournalFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d := newBuiltinDispatcher(t)
	d = NewDispatcher(DispatcherConfig{
		Registry: d.Registry(),
		Journal:  failingJournal{},
		Logger:   logger,
	})

	out, err := d.Dispatch(context.Background(), "get_current_weather", Payload{"location": "Oslo", "unit": "celsius"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v, journal failures must not change the result", err)
	}
	if out == "" {
		t.Fatal("Dispatch() output empty")
	}
	if !strings.Contains(logs.String(), "journal append failed") {
		t.Fatalf("logs = %q, want journal failure", logs.String())
	}
	if strings.Contains(logs.String(), "Oslo") {
		t.Fatalf("logs = %q, must not contain argument values", logs.String())
	}
}

func TestDispatchObserverStages(t *testing.T) {
	obs := &recordingObserver{}
	d := newBuiltinDispatcher(t)
	d = NewDispatcher(DispatcherConfig{Registry: d.Registry(), Observer: MultiObserver{obs, nil, NopObserver{}}})

	ctx := context.Background()
	_, _ = d.Dispatch(ctx, "get_current_weather", Payload{"location": "Oslo", "unit": "celsius"})
	_, _ = d.Dispatch(ctx, "get_current_weather", Payload{"location": "Oslo", "unit": "kelvin"})
	_, _ = d.Dispatch(ctx, "get_current_weather", Payload{"unit": "kelvin"})

	if len(obs.observations) != 3 {
		t.Fatalf("observations = %d, want 3", len(obs.observations))
	}
	if !obs.observations[0].Success || obs.observations[0].RequestID == "" {
		t.Fatalf("observations[0] = %+v", obs.observations[0])
	}
	if obs.observations[1].Stage != StageExecution || obs.observations[1].ErrorCode != CodeExecutionFailed {
		t.Fatalf("observations[1] = %+v", obs.observations[1])
	}
	if obs.observations[2].Stage != StageArgument || obs.observations[2].ErrorCode != CodeMissingArgument {
		t.Fatalf("observations[2] = %+v", obs.observations[2])
	}
}

func TestConcurrentDispatchIsolation(t *testing.T) {
	types := DefaultTypeRegistry(TypeOptions{})
	registry := NewRegistry(RegistryConfig{})
	_ = registry.Register(MustNew(types, Descriptor{Name: "echo", Parameters: Params("n", "tag")}, Func2(func(n int32, tag string) (string, error) {
		return fmt.Sprintf("%s:%d", tag, n), nil
	})))
	d := NewDispatcher(DispatcherConfig{Registry: registry, Journal: NewMemoryJournal(0)})

	const workers = 64
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := Payload{"arguments": []any{map[string]any{"tag": fmt.Sprintf("w%d", i)}, map[string]any{"n": i}}}
			out, err := d.Dispatch(context.Background(), "echo", payload)
			if err != nil {
				errs <- err
				return
			}
			if want := fmt.Sprintf("w%d:%d", i, i); out != want {
				errs <- fmt.Errorf("worker %d got %q, want %q", i, out, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	entries, _ := d.Journal().Recent(context.Background(), 0)
	if len(entries) != workers {
		t.Fatalf("journal holds %d entries, want %d", len(entries), workers)
	}
}

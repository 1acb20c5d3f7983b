package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/epl/ast"
	"mercator-hq/europa/pkg/epl/parser"
	"mercator-hq/europa/pkg/policy/compiler"
	"mercator-hq/europa/pkg/policy/engine"
	"mercator-hq/europa/pkg/telemetry/tracing"
)

// DefaultQueryPath is evaluated when a load does not name one.
const DefaultQueryPath = "data"

// File is one named policy source, the name appearing in error locations.
type File struct {
	Name   string
	Source string
}

// Metrics receives load and evaluation outcomes. Implementations must be
// safe for concurrent use.
type Metrics interface {
	PolicyLoaded(version uint64, rules int)
	PolicyLoadFailed(stage string)
	EvaluationObserved(outcome string, duration time.Duration)
}

// Decision is the audit record of one evaluation.
type Decision struct {
	Time          time.Time
	PolicyVersion uint64
	QueryPath     string
	Input         document.Value
	Result        document.Value
	Outcome       string
	Err           error
}

// Recorder receives one Decision per evaluation, defined or not.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, d Decision)
}

// Evaluation outcomes as reported to metrics and the recorder.
const (
	OutcomeSuccess   = "success"
	OutcomeUndefined = "undefined_path"
	OutcomeError     = "error"
)

// snapshot is one immutable loaded policy. Swapped whole, never mutated.
type snapshot struct {
	policy    *compiler.Policy
	queryPath string
	version   uint64
}

// Session holds one atomically swappable compiled policy. The zero value is
// not usable; construct with New.
type Session struct {
	current atomic.Pointer[snapshot]

	// loadMu serializes loads; evaluations never take it.
	loadMu      sync.Mutex
	nextVersion uint64

	logger   *slog.Logger
	metrics  Metrics
	tracer   trace.Tracer
	recorder Recorder
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for load and reload events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithTracer makes the session open a span around each load and evaluation.
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

// WithRecorder attaches a decision recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// New creates an empty session. Evaluate fails with ErrNotLoaded until the
// first successful Load.
func New(opts ...Option) *Session {
	s := &Session{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Load parses and compiles a single policy source and swaps it in. An empty
// dataJSON means no external data; an empty queryPath means DefaultQueryPath.
func (s *Session) Load(policyText, dataJSON, queryPath string) error {
	return s.LoadFiles([]File{{Name: "policy.epl", Source: policyText}}, dataJSON, queryPath)
}

// LoadFiles parses and compiles a set of policy modules and atomically
// replaces the session's current policy. On any failure the previous policy
// remains in effect and the version does not advance.
func (s *Session) LoadFiles(files []File, dataJSON, queryPath string) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if queryPath == "" {
		queryPath = DefaultQueryPath
	}

	var span trace.Span
	if s.tracer != nil {
		_, span = s.tracer.Start(context.Background(), tracing.SpanLoad,
			trace.WithAttributes(tracing.QueryPath(queryPath)),
		)
		defer span.End()
	}

	modules := make([]*ast.Module, 0, len(files))
	for _, f := range files {
		module, err := parser.Parse(f.Name, f.Source)
		if err != nil {
			return s.loadFailed(span, &LoadError{Stage: StageParse, Err: err})
		}
		modules = append(modules, module)
	}

	var data *document.Value
	if dataJSON != "" {
		d, err := document.FromJSONString(dataJSON)
		if err != nil {
			return s.loadFailed(span, &LoadError{Stage: StageParse, Err: err})
		}
		data = &d
	}

	policy, err := compiler.Compile(modules, data)
	if err != nil {
		return s.loadFailed(span, &LoadError{Stage: StageCompile, Err: err})
	}

	s.nextVersion++
	snap := &snapshot{policy: policy, queryPath: queryPath, version: s.nextVersion}
	s.current.Store(snap)

	s.logger.Info("policy loaded",
		"version", snap.version,
		"rules", len(policy.Paths),
		"query_path", queryPath,
	)
	if span != nil {
		span.SetAttributes(
			tracing.PolicyVersion(snap.version),
			tracing.RuleCount(len(policy.Paths)),
		)
		span.SetStatus(codes.Ok, "")
	}
	if s.metrics != nil {
		s.metrics.PolicyLoaded(snap.version, len(policy.Paths))
	}
	return nil
}

func (s *Session) loadFailed(span trace.Span, lerr *LoadError) error {
	s.logger.Warn("policy load rejected",
		"stage", string(lerr.Stage),
		"error", lerr.Err,
	)
	if span != nil {
		span.RecordError(lerr.Err)
		span.SetStatus(codes.Error, string(lerr.Stage))
	}
	if s.metrics != nil {
		s.metrics.PolicyLoadFailed(string(lerr.Stage))
	}
	return lerr
}

// Loaded reports whether a policy has been successfully loaded.
func (s *Session) Loaded() bool {
	return s.current.Load() != nil
}

// Version returns the version of the current policy, or 0 before the first
// successful load.
func (s *Session) Version() uint64 {
	snap := s.current.Load()
	if snap == nil {
		return 0
	}
	return snap.version
}

// QueryPath returns the query path remembered by the last successful load.
func (s *Session) QueryPath() string {
	snap := s.current.Load()
	if snap == nil {
		return DefaultQueryPath
	}
	return snap.queryPath
}

// Evaluate resolves the session's query path against the current policy
// under the given input document.
func (s *Session) Evaluate(ctx context.Context, input document.Value) (document.Value, error) {
	snap := s.current.Load()
	if snap == nil {
		return document.Value{}, &engine.Error{
			Kind:   engine.ErrNotLoaded,
			Detail: "no policy loaded; call Load first",
		}
	}

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, tracing.SpanEvaluate,
			trace.WithAttributes(
				tracing.QueryPath(snap.queryPath),
				tracing.PolicyVersion(snap.version),
			),
		)
		defer span.End()
	}

	start := time.Now()
	result, err := engine.Evaluate(snap.policy, input, snap.queryPath)
	elapsed := time.Since(start)

	outcome := OutcomeSuccess
	if err != nil {
		if engine.KindOf(err) == engine.ErrUndefinedPath {
			outcome = OutcomeUndefined
		} else {
			outcome = OutcomeError
		}
	}

	if span != nil {
		span.SetAttributes(tracing.Outcome(outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
	if s.metrics != nil {
		s.metrics.EvaluationObserved(outcome, elapsed)
	}
	if s.recorder != nil {
		s.recorder.Record(ctx, Decision{
			Time:          start,
			PolicyVersion: snap.version,
			QueryPath:     snap.queryPath,
			Input:         input,
			Result:        result,
			Outcome:       outcome,
			Err:           err,
		})
	}
	return result, err
}

// EvaluateText decodes a JSON input document and evaluates it.
func (s *Session) EvaluateText(ctx context.Context, inputJSON string) (document.Value, error) {
	input, err := document.FromJSONString(inputJSON)
	if err != nil {
		return document.Value{}, &engine.Error{
			Kind:   engine.ErrInputDecode,
			Detail: err.Error(),
		}
	}
	return s.Evaluate(ctx, input)
}

// EvaluateToText evaluates a JSON input document and returns the decision
// serialized back to JSON text.
func (s *Session) EvaluateToText(ctx context.Context, inputJSON string) (string, error) {
	result, err := s.EvaluateText(ctx, inputJSON)
	if err != nil {
		return "", err
	}
	out, err := result.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

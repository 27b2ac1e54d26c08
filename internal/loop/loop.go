// Package loop runs the retrieve, synthesize, validate and repair cycle for
// one request and reports a definite status with the full attempt trace.
package loop

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nvandessel/magloop/internal/models"
	"github.com/nvandessel/magloop/internal/synth"
)

// DefaultMaxIterations is used when a caller passes a non-positive bound.
const DefaultMaxIterations = 4

// MaxIterationsCeiling caps any requested bound.
const MaxIterationsCeiling = 10

const tracerName = "github.com/nvandessel/magloop/internal/loop"

// ErrEmptyRequest is the fatal error for a blank request.
var ErrEmptyRequest = errors.New("empty request")

// Retriever selects grounding knowledge for a request.
type Retriever interface {
	Retrieve(ctx context.Context, req models.Request, k int) (models.RetrievalResult, error)
}

// Synthesizer produces one candidate per call.
type Synthesizer interface {
	Synthesize(ctx context.Context, in synth.Input) (models.CandidateArtifact, error)
}

// Validator judges one candidate.
type Validator interface {
	Validate(ctx context.Context, artifact models.CandidateArtifact) models.ValidationOutcome
}

// Recorder receives every finished run.
type Recorder interface {
	Record(ctx context.Context, res models.RunResult) error
}

// Deps are the collaborators of a CorrectionLoop. Retriever, Synthesizer and
// Validator are required.
type Deps struct {
	Retriever   Retriever
	Synthesizer Synthesizer
	Validator   Validator

	// Tags infers request tags; nil leaves requests untagged.
	Tags models.TagInferrer

	// Recorder is optional.
	Recorder Recorder

	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
}

// Config holds the loop's tunables.
type Config struct {
	// MaxIterations is the default attempt budget (default: 4, capped at 10).
	MaxIterations int

	// TopK is passed to the retriever; non-positive uses the retriever's default.
	TopK int
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() Config {
	return Config{MaxIterations: DefaultMaxIterations}
}

// CorrectionLoop orchestrates runs. It holds no per-run state, so one loop
// serves concurrent runs.
type CorrectionLoop struct {
	deps   Deps
	cfg    Config
	tracer trace.Tracer
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// New creates a CorrectionLoop.
func New(deps Deps, cfg Config) *CorrectionLoop {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tp := deps.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	cfg.MaxIterations = clampIterations(cfg.MaxIterations, DefaultMaxIterations)
	return &CorrectionLoop{
		deps:   deps,
		cfg:    cfg,
		tracer: tp.Tracer(tracerName),
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func clampIterations(n, def int) int {
	if n <= 0 {
		n = def
	}
	if n > MaxIterationsCeiling {
		n = MaxIterationsCeiling
	}
	return n
}

// run carries the state of one Run call.
type run struct {
	res    models.RunResult
	span   trace.Span
	logger *zap.Logger
}

func (r *run) enter(s models.State) {
	r.res.States = append(r.res.States, s)
}

// Run processes one request. It always returns a result with a status of
// success, exhausted or fatal; errors are reported in the result.
func (l *CorrectionLoop) Run(ctx context.Context, text string, maxIterations int) models.RunResult {
	budget := clampIterations(maxIterations, l.cfg.MaxIterations)

	r := &run{res: models.RunResult{RunID: l.newID(), StartedAt: l.now()}}
	r.logger = l.logger.With(zap.String("run_id", r.res.RunID))
	ctx, r.span = l.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("run_id", r.res.RunID),
		attribute.Int("max_iterations", budget),
	))
	defer r.span.End()

	r.enter(models.StateStart)
	r.res.Request = models.NewRequest(text, l.deps.Tags)
	if strings.TrimSpace(r.res.Request.Text) == "" {
		return l.finish(ctx, r, models.StatusFatal, ErrEmptyRequest)
	}

	if err := ctx.Err(); err != nil {
		return l.finish(ctx, r, models.StatusFatal, err)
	}
	r.enter(models.StateRetrieving)
	retrieval, err := l.retrieve(ctx, r.res.Request)
	if err != nil {
		return l.finish(ctx, r, models.StatusFatal, err)
	}
	r.res.Retrieved = retrieval.IDs()
	r.logger.Debug("retrieved knowledge",
		zap.Strings("ids", r.res.Retrieved),
		zap.Bool("fallback", retrieval.Fallback))

	var prior *models.Attempt
	for i := 0; i < budget; i++ {
		if err := ctx.Err(); err != nil {
			return l.finish(ctx, r, models.StatusFatal, err)
		}
		r.enter(models.StateSynthesizing)
		artifact, err := l.synthesize(ctx, synth.Input{
			Request:   r.res.Request,
			Retrieval: retrieval,
			Prior:     prior,
			Iteration: i,
		})
		if err != nil {
			return l.finish(ctx, r, models.StatusFatal, err)
		}
		if err := ctx.Err(); err != nil {
			return l.finish(ctx, r, models.StatusFatal, err)
		}

		r.enter(models.StateValidating)
		outcome := l.validate(ctx, artifact)
		r.res.Trace.Append(models.Attempt{Artifact: artifact, Outcome: outcome})
		r.res.FinalCode = artifact.Code
		r.logger.Info("attempt validated",
			zap.Int("iteration", i),
			zap.String("outcome", string(outcome.Kind)),
			zap.String("category", string(outcome.Category)))

		if outcome.IsValid() {
			r.res.Diagnostic = nil
			return l.finish(ctx, r, models.StatusSuccess, nil)
		}
		failed := outcome
		r.res.Diagnostic = &failed
		prior = r.res.Trace.Last()
	}

	if err := ctx.Err(); err != nil {
		return l.finish(ctx, r, models.StatusFatal, err)
	}
	return l.finish(ctx, r, models.StatusExhausted, nil)
}

func (l *CorrectionLoop) retrieve(ctx context.Context, req models.Request) (models.RetrievalResult, error) {
	ctx, span := l.tracer.Start(ctx, "retrieve")
	defer span.End()

	res, err := l.deps.Retriever.Retrieve(ctx, req, l.cfg.TopK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(attribute.Int("entries", res.Len()), attribute.Bool("fallback", res.Fallback))
	return res, nil
}

func (l *CorrectionLoop) synthesize(ctx context.Context, in synth.Input) (models.CandidateArtifact, error) {
	ctx, span := l.tracer.Start(ctx, "synthesize", trace.WithAttributes(attribute.Int("iteration", in.Iteration)))
	defer span.End()

	art, err := l.deps.Synthesizer.Synthesize(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return art, err
}

func (l *CorrectionLoop) validate(ctx context.Context, art models.CandidateArtifact) models.ValidationOutcome {
	ctx, span := l.tracer.Start(ctx, "validate", trace.WithAttributes(attribute.Int("iteration", art.Iteration)))
	defer span.End()

	outcome := l.deps.Validator.Validate(ctx, art)
	span.SetAttributes(
		attribute.String("outcome", string(outcome.Kind)),
		attribute.String("category", string(outcome.Category)))
	return outcome
}

func (l *CorrectionLoop) finish(ctx context.Context, r *run, status models.Status, err error) models.RunResult {
	r.enter(models.StateDone)
	r.res.Status = status
	r.res.FinishedAt = l.now()
	if err != nil {
		r.res.Error = err.Error()
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	} else {
		r.span.SetStatus(codes.Ok, "")
	}
	r.span.SetAttributes(
		attribute.String("status", string(status)),
		attribute.Int("iterations", r.res.Iterations()))

	fields := []zap.Field{
		zap.String("status", string(status)),
		zap.Int("iterations", r.res.Iterations()),
	}
	if err != nil {
		r.logger.Warn("run failed", append(fields, zap.Error(err))...)
	} else {
		r.logger.Info("run finished", fields...)
	}

	if l.deps.Recorder != nil {
		// A cancelled run is still journaled.
		if rerr := l.deps.Recorder.Record(context.WithoutCancel(ctx), r.res); rerr != nil {
			r.logger.Warn("recording run failed", zap.Error(rerr))
		}
	}
	return r.res
}

// Package pipeline runs the loan-default workflow end to end: load, clean,
// downcast, impute, prune, encode, train, evaluate and write a submission.
package pipeline

import (
	"context"
	"time"

	"github.com/YuminosukeSato/loanrisk/config"
	"github.com/YuminosukeSato/loanrisk/metrics"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/YuminosukeSato/loanrisk/pkg/log"
	"github.com/YuminosukeSato/loanrisk/preprocessing"
	"github.com/YuminosukeSato/loanrisk/sklearn/feature_selection"
	"github.com/google/uuid"
)

// Stage names, in execution order.
const (
	StageLoad      = "load"
	StageMissing   = "drop_missing"
	StageDowncast  = "downcast"
	StageImpute    = "impute"
	StagePrune     = "prune"
	StageUndefined = "drop_undefined"
	StageEncode    = "encode"
	StageMatrix    = "matrix"
	StageTrain     = "train"
	StageEvaluate  = "evaluate"
	StageSubmit    = "submit"
	StagePlots     = "plots"
)

// Pipeline is one configured run. A Pipeline is not safe for concurrent
// use; build one per run.
type Pipeline struct {
	cfg    *config.Config
	runID  string
	logger log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the base logger. The run id is attached to it.
func WithLogger(logger log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithRunID replaces the generated run id.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		p.runID = id
	}
}

// New validates cfg and returns a Pipeline ready to Run.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.NewValueError("pipeline.New", "config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg, runID: uuid.NewString()}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("pipeline")
	}
	p.logger = p.logger.With(log.RunIDKey, p.runID)
	return p, nil
}

// RunID identifies this run in logs and in the Result.
func (p *Pipeline) RunID() string { return p.runID }

// StageTiming records how long one stage took.
type StageTiming struct {
	Name     string
	Duration time.Duration
}

// ModelResult holds the validation metrics of one model.
type ModelResult struct {
	Name string

	AUC          float64
	Accuracy     float64
	LogLoss      float64
	Brier        float64
	AvgPrecision float64

	Confusion *metrics.Confusion
	Report    *metrics.Report

	// ROC points on the validation rows.
	FPR, TPR []float64

	// CVScores holds per-fold ROC AUC on the training data, nil when
	// cross-validation is off.
	CVScores []float64
}

// Result summarizes a completed run.
type Result struct {
	RunID string

	// Columns removed by the missing-fraction pass.
	MissingDropped []string

	TrainDowncast *preprocessing.DowncastReport
	TestDowncast  *preprocessing.DowncastReport

	// Drop sets of each table and the union applied to both.
	TrainDropSet *feature_selection.DropSet
	TestDropSet  *feature_selection.DropSet
	DropSet      *feature_selection.DropSet

	// Columns with an undefined correlation to the target.
	UndefinedDropped []string

	Features []string

	// Models in fit order; Best indexes the one used for the submission.
	Models []ModelResult
	Best   int

	SubmissionPath string
	SubmissionRows int

	Plots []string

	Stages []StageTiming
}

// BestModel returns the model chosen for the submission.
func (r *Result) BestModel() *ModelResult {
	if r.Best < 0 || r.Best >= len(r.Models) {
		return nil
	}
	return &r.Models[r.Best]
}

type stage struct {
	name string
	run  func(ctx context.Context, s *runState) error
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{StageLoad, p.load},
		{StageMissing, p.dropMissing},
		{StageDowncast, p.downcast},
		{StageImpute, p.impute},
		{StagePrune, p.prune},
		{StageUndefined, p.dropUndefined},
		{StageEncode, p.encode},
		{StageMatrix, p.matrix},
		{StageTrain, p.train},
		{StageEvaluate, p.evaluate},
		{StageSubmit, p.submit},
		{StagePlots, p.plots},
	}
}

// Run executes every stage in order and stops at the first failure. A
// panic inside a stage is returned as an error. On failure the partial
// Result is returned alongside the error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	s := &runState{result: &Result{RunID: p.runID, Best: -1}}
	p.logger.Info("pipeline started",
		log.PathKey, p.cfg.TrainPath,
		log.ThresholdKey, p.cfg.CorrelationThreshold,
	)
	started := time.Now()

	for _, st := range p.stages() {
		if err := ctx.Err(); err != nil {
			return s.result, err
		}
		begin := time.Now()
		err := errors.SafeExecute(st.name, func() error { return st.run(ctx, s) })
		elapsed := time.Since(begin)
		s.result.Stages = append(s.result.Stages, StageTiming{Name: st.name, Duration: elapsed})
		if err != nil {
			p.logger.Error("stage failed", err,
				log.StageKey, st.name,
				log.DurationMsKey, elapsed.Milliseconds(),
			)
			return s.result, errors.Wrapf(err, "stage %s", st.name)
		}
		p.logger.Info("stage finished",
			log.StageKey, st.name,
			log.DurationMsKey, elapsed.Milliseconds(),
		)
	}

	p.logger.Info("pipeline finished",
		log.DurationMsKey, time.Since(started).Milliseconds(),
		log.PathKey, s.result.SubmissionPath,
	)
	return s.result, nil
}

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/loanrisk/core/model"
	"github.com/YuminosukeSato/loanrisk/dataset"
	"github.com/YuminosukeSato/loanrisk/frame"
	"github.com/YuminosukeSato/loanrisk/metrics"
	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/YuminosukeSato/loanrisk/pkg/log"
	"github.com/YuminosukeSato/loanrisk/preprocessing"
	"github.com/YuminosukeSato/loanrisk/report"
	"github.com/YuminosukeSato/loanrisk/sklearn/decomposition"
	"github.com/YuminosukeSato/loanrisk/sklearn/feature_selection"
	"github.com/YuminosukeSato/loanrisk/sklearn/linear_model"
	"github.com/YuminosukeSato/loanrisk/sklearn/model_selection"
	"github.com/YuminosukeSato/loanrisk/sklearn/naive_bayes"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// runState is what one stage hands to the next.
type runState struct {
	result *Result

	train, test *frame.Table
	templateIDs []string

	trainPruner *feature_selection.CorrelationPruner

	X, XTest mat.Matrix
	y        *mat.Dense
	testIDs  []string

	split      *model_selection.TrainTest
	candidates []candidate
	fitted     []model.Classifier
}

type candidate struct {
	name    string
	factory model_selection.Factory
}

func (p *Pipeline) load(ctx context.Context, s *runState) error {
	opts := []dataset.Option{
		dataset.WithSchema(map[string]frame.Kind{p.cfg.IDColumn: frame.Categorical}),
		dataset.WithLogger(p.logger),
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := dataset.ReadFile(p.cfg.TrainPath, opts...)
		s.train = t
		return err
	})
	g.Go(func() error {
		t, err := dataset.ReadFile(p.cfg.TestPath, opts...)
		s.test = t
		return err
	})
	if p.cfg.TemplatePath != "" {
		g.Go(func() error {
			ids, err := dataset.ReadTemplate(p.cfg.TemplatePath, p.cfg.IDColumn)
			s.templateIDs = ids
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, name := range []string{p.cfg.IDColumn, p.cfg.TargetColumn} {
		if !s.train.Has(name) {
			return errors.NewColumnNotFoundError("load", name)
		}
	}
	if !s.test.Has(p.cfg.IDColumn) {
		return errors.NewColumnNotFoundError("load", p.cfg.IDColumn)
	}
	s.test = s.test.Drop(p.cfg.TargetColumn)
	if err := checkTarget(s.train, p.cfg.TargetColumn); err != nil {
		return err
	}

	for i, t := range []*frame.Table{s.train, s.test} {
		p.logger.Info("table loaded",
			log.TableKey, []string{"train", "test"}[i],
			log.SamplesKey, t.NumRows(),
			log.FeaturesKey, t.NumCols(),
			log.DataSizeKey, t.Bytes(),
		)
	}
	return nil
}

// checkTarget requires a complete 0/1 column holding both classes.
func checkTarget(t *frame.Table, target string) error {
	col, _ := t.Column(target)
	if !col.Kind().IsNumeric() {
		return errors.NewValueError("load", fmt.Sprintf("target '%s' is %s, not numeric", target, col.Kind()))
	}
	if col.NullN() > 0 {
		return errors.NewValueError("load", fmt.Sprintf("target '%s' has %d missing values", target, col.NullN()))
	}
	var seen [2]bool
	for i := 0; i < col.Len(); i++ {
		v, _ := col.Float64(i)
		if v != 0 && v != 1 {
			return errors.NewValueError("load", fmt.Sprintf("target '%s' row %d is %v, want 0 or 1", target, i, v))
		}
		seen[int(v)] = true
	}
	if !seen[0] || !seen[1] {
		return errors.NewValueError("load", fmt.Sprintf("target '%s' holds a single class", target))
	}
	return nil
}

func (p *Pipeline) dropMissing(_ context.Context, s *runState) error {
	keep := []string{p.cfg.IDColumn, p.cfg.TargetColumn}
	_, fromTrain := preprocessing.DropMissingAbove(s.train, p.cfg.MissingThreshold, keep...)
	_, fromTest := preprocessing.DropMissingAbove(s.test, p.cfg.MissingThreshold, keep...)

	dropped := union(fromTrain, fromTest, allMissing(s.train, keep), allMissing(s.test, keep))
	s.train = s.train.Drop(dropped...)
	s.test = s.test.Drop(dropped...)
	s.result.MissingDropped = dropped

	p.logger.Info(fmt.Sprintf("%d columns above %.0f%% missing", len(dropped), 100*p.cfg.MissingThreshold),
		log.DroppedKey, dropped,
	)
	return nil
}

// allMissing names the columns with no observed value. They go regardless
// of the missing threshold.
func allMissing(t *frame.Table, keep []string) []string {
	protected := make(map[string]bool, len(keep))
	for _, k := range keep {
		protected[k] = true
	}
	var names []string
	for _, c := range t.Columns() {
		if !protected[c.Name()] && t.NumRows() > 0 && c.NullN() == t.NumRows() {
			names = append(names, c.Name())
		}
	}
	return names
}

// union concatenates name lists, keeping the first occurrence of each.
func union(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

func (p *Pipeline) downcast(ctx context.Context, s *runState) error {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		d := preprocessing.NewDowncaster(preprocessing.WithDowncastLogger(p.logger.With(log.TableKey, "train")))
		s.train, s.result.TrainDowncast = d.Transform(s.train)
		return nil
	})
	g.Go(func() error {
		d := preprocessing.NewDowncaster(preprocessing.WithDowncastLogger(p.logger.With(log.TableKey, "test")))
		s.test, s.result.TestDowncast = d.Transform(s.test)
		return nil
	})
	return g.Wait()
}

func (p *Pipeline) impute(_ context.Context, s *runState) error {
	return fitApply(preprocessing.NewMeanImputer(), s.train.Drop(p.cfg.IDColumn, p.cfg.TargetColumn), s)
}

// fitApply fits tr on fitOn and applies it to both tables.
func fitApply(tr model.TableTransformer, fitOn *frame.Table, s *runState) error {
	if err := tr.Fit(fitOn); err != nil {
		return err
	}
	var err error
	if s.train, err = tr.Transform(s.train); err != nil {
		return err
	}
	if s.test, err = tr.Transform(s.test); err != nil {
		return err
	}
	return nil
}

// fitApplyMatrix fits tr on X and returns both matrices transformed.
func fitApplyMatrix(tr model.Transformer, X, XTest mat.Matrix) (mat.Matrix, mat.Matrix, error) {
	Xt, err := tr.FitTransform(X)
	if err != nil {
		return nil, nil, err
	}
	XTestT, err := tr.Transform(XTest)
	if err != nil {
		return nil, nil, err
	}
	return Xt, XTestT, nil
}

func (p *Pipeline) prune(_ context.Context, s *runState) error {
	s.trainPruner = feature_selection.NewCorrelationPruner(
		feature_selection.WithThreshold(p.cfg.CorrelationThreshold),
		feature_selection.WithExclude(p.cfg.TargetColumn, p.cfg.IDColumn),
		feature_selection.WithPrunerLogger(p.logger.With(log.TableKey, "train")),
	)
	if err := s.trainPruner.Fit(s.train); err != nil {
		return err
	}
	testPruner := feature_selection.NewCorrelationPruner(
		feature_selection.WithThreshold(p.cfg.CorrelationThreshold),
		feature_selection.WithExclude(p.cfg.IDColumn),
		feature_selection.WithPrunerLogger(p.logger.With(log.TableKey, "test")),
	)
	if err := testPruner.Fit(s.test); err != nil {
		return err
	}

	// both tables lose the same columns so their schemas stay aligned
	drop := s.trainPruner.DropSet().Union(testPruner.DropSet())
	s.train = s.train.Drop(drop.Names()...)
	s.test = s.test.Drop(drop.Names()...)

	s.result.TrainDropSet = s.trainPruner.DropSet()
	s.result.TestDropSet = testPruner.DropSet()
	s.result.DropSet = drop
	return nil
}

func (p *Pipeline) dropUndefined(_ context.Context, s *runState) error {
	undefined, err := feature_selection.UndefinedCorrelations(s.train, p.cfg.TargetColumn)
	if err != nil {
		return err
	}
	s.train = s.train.Drop(undefined...)
	s.test = s.test.Drop(undefined...)
	s.result.UndefinedDropped = undefined
	if len(undefined) > 0 {
		p.logger.Info("dropped columns with undefined target correlation", log.DroppedKey, undefined)
	}
	return nil
}

func (p *Pipeline) encode(_ context.Context, s *runState) error {
	categorical := s.train.CategoricalNames(p.cfg.IDColumn)
	if len(categorical) == 0 {
		return nil
	}
	return fitApply(preprocessing.NewOneHotEncoder(categorical...), s.train, s)
}

func (p *Pipeline) matrix(_ context.Context, s *runState) error {
	features := s.train.NumericNames(p.cfg.IDColumn, p.cfg.TargetColumn)
	if len(features) == 0 {
		return errors.NewValueError("matrix", "no feature columns left after cleaning")
	}
	for _, f := range features {
		if !s.test.Has(f) {
			return errors.NewColumnNotFoundError("matrix", f)
		}
	}

	X, err := preprocessing.ToMatrix(s.train, features)
	if err != nil {
		return err
	}
	XTest, err := preprocessing.ToMatrix(s.test, features)
	if err != nil {
		return err
	}
	if s.y, err = preprocessing.LabelVector(s.train, p.cfg.TargetColumn); err != nil {
		return err
	}

	var scaler model.Transformer = preprocessing.NewMinMaxScalerDefault()
	if p.cfg.Scaler == "standard" {
		scaler = preprocessing.NewStandardScalerDefault()
	}
	if s.X, s.XTest, err = fitApplyMatrix(scaler, X, XTest); err != nil {
		return err
	}
	if p.cfg.PCAComponents > 0 {
		pca := decomposition.NewPCA(decomposition.WithNComponents(p.cfg.PCAComponents))
		if s.X, s.XTest, err = fitApplyMatrix(pca, s.X, s.XTest); err != nil {
			return err
		}
		p.logger.Info("pca applied", log.FeaturesKey, pca.NComponents())
	}

	ids, _ := s.test.Column(p.cfg.IDColumn)
	s.testIDs = make([]string, ids.Len())
	for i := range s.testIDs {
		id, ok := ids.String(i)
		if !ok {
			return errors.NewValueError("matrix", fmt.Sprintf("test row %d has no id", i))
		}
		s.testIDs[i] = id
	}
	s.result.Features = features
	return nil
}

func (p *Pipeline) modelCandidates() []candidate {
	weight := p.cfg.ClassWeight
	if weight == "" {
		weight = "none"
	}
	lrLogger := p.logger.With(log.ComponentKey, "linear_model")
	list := []candidate{{
		name: "LogisticRegression",
		factory: func() model.Classifier {
			return linear_model.NewLogisticRegression(
				linear_model.WithLRMaxIter(p.cfg.MaxIter),
				linear_model.WithLRClassWeight(weight),
				linear_model.WithLRLogger(lrLogger),
			)
		},
	}}
	if p.cfg.CompareModels {
		nbLogger := p.logger.With(log.ComponentKey, "naive_bayes")
		list = append(list, candidate{
			name: "GaussianNB",
			factory: func() model.Classifier {
				return naive_bayes.NewGaussianNB(naive_bayes.WithNBLogger(nbLogger))
			},
		})
	}
	return list
}

func (p *Pipeline) train(ctx context.Context, s *runState) error {
	split, err := model_selection.TrainTestSplit(s.X, s.y, p.cfg.ValidationSize, true, p.cfg.RandomSeed)
	if err != nil {
		return err
	}
	s.split = split
	s.candidates = p.modelCandidates()

	for _, c := range s.candidates {
		clf := c.factory()
		if err := clf.Fit(split.XTrain, split.YTrain); err != nil {
			return errors.Wrapf(err, "fit %s", c.name)
		}
		s.fitted = append(s.fitted, clf)
		if pg, ok := clf.(model.ParameterGetter); ok && p.logger.Enabled(ctx, log.LevelDebug) {
			p.logger.Debug("model fitted", log.ModelNameKey, c.name, "params", pg.GetParams())
		}

		res := ModelResult{Name: c.name}
		if p.cfg.CVFolds > 0 {
			folds := model_selection.NewStratifiedKFold(p.cfg.CVFolds, true, p.cfg.RandomSeed)
			scores, err := model_selection.CrossValScore(ctx, c.factory, s.X, s.y, folds, model_selection.ROCAUCScorer)
			if err != nil {
				return errors.Wrapf(err, "cross-validate %s", c.name)
			}
			res.CVScores = scores
			p.logger.Info(fmt.Sprintf("%s cv auc %.4f ± %.4f", c.name, model_selection.Mean(scores), model_selection.Std(scores)),
				log.ModelNameKey, c.name,
				log.FoldKey, len(scores),
				log.AUCKey, model_selection.Mean(scores),
			)
		}
		s.result.Models = append(s.result.Models, res)
	}
	return nil
}

func (p *Pipeline) evaluate(_ context.Context, s *runState) error {
	n, _ := s.split.YTest.Dims()
	yTrue := mat.NewVecDense(n, mat.Col(nil, 0, s.split.YTest))
	pos := int(mat.Sum(yTrue))
	bothClasses := pos > 0 && pos < n
	if !bothClasses {
		errors.Warn(errors.NewUndefinedMetricWarning("ROC curve", "validation split holds a single class", 0))
	}

	for i, clf := range s.fitted {
		res := &s.result.Models[i]

		proba, err := clf.PredictProba(s.split.XTest)
		if err != nil {
			return err
		}
		pred, err := clf.Predict(s.split.XTest)
		if err != nil {
			return err
		}
		score := mat.NewVecDense(n, mat.Col(nil, 1, proba))
		labels := mat.NewVecDense(n, mat.Col(nil, 0, pred))

		if res.AUC, err = metrics.AUC(yTrue, score); err != nil {
			return err
		}
		if bothClasses {
			if res.FPR, res.TPR, _, err = metrics.ROCCurve(yTrue, score); err != nil {
				return err
			}
		}
		if res.LogLoss, err = metrics.BinaryLogLoss(yTrue, score); err != nil {
			return err
		}
		if res.Brier, err = metrics.BrierScore(yTrue, score); err != nil {
			return err
		}
		if res.AvgPrecision, err = metrics.AveragePrecision(yTrue, score); err != nil {
			return err
		}
		if res.Accuracy, err = metrics.Accuracy(yTrue, labels); err != nil {
			return err
		}
		if res.Confusion, err = metrics.ConfusionMatrix(yTrue, labels); err != nil {
			return err
		}
		if res.Report, err = metrics.ClassificationReport(yTrue, labels); err != nil {
			return err
		}

		p.logger.Info("model evaluated",
			log.ModelNameKey, res.Name,
			log.PhaseKey, log.PhaseValidation,
			log.AUCKey, res.AUC,
			log.AccuracyKey, res.Accuracy,
			log.LossKey, res.LogLoss,
		)
		p.logger.Debug("classification report\n"+res.Report.String(), log.ModelNameKey, res.Name)

		if s.result.Best < 0 || res.AUC > s.result.Models[s.result.Best].AUC {
			s.result.Best = i
		}
	}
	return nil
}

func (p *Pipeline) submit(_ context.Context, s *runState) (err error) {
	best := s.candidates[s.result.Best]
	clf := best.factory()
	if err := clf.Fit(s.X, s.y); err != nil {
		return errors.Wrapf(err, "refit %s", best.name)
	}
	proba, err := clf.PredictProba(s.XTest)
	if err != nil {
		return err
	}
	preds := mat.Col(nil, 1, proba)

	out := p.cfg.OutputPath
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(out))
	}
	f, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "create %s", out)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", out)
		}
	}()

	if err := dataset.WriteSubmission(f, p.cfg.IDColumn, p.cfg.TargetColumn, s.testIDs, preds, s.templateIDs); err != nil {
		return err
	}

	rows := len(s.testIDs)
	if s.templateIDs != nil {
		rows = len(s.templateIDs)
	}
	s.result.SubmissionPath = out
	s.result.SubmissionRows = rows
	p.logger.Info("submission written",
		log.ModelNameKey, best.name,
		log.PathKey, out,
		log.SamplesKey, rows,
	)
	return nil
}

func (p *Pipeline) plots(_ context.Context, s *runState) error {
	dir := p.cfg.PlotsDir
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	if best := s.result.BestModel(); best.FPR != nil {
		roc := filepath.Join(dir, "roc_curve.png")
		if err := report.SaveROCCurve(roc, best.FPR, best.TPR, best.AUC); err != nil {
			return err
		}
		s.result.Plots = append(s.result.Plots, roc)
	}

	if m := s.trainPruner.Matrix(); m != nil && m.Dims() > 0 {
		heat := filepath.Join(dir, "correlation_heatmap.png")
		if err := report.SaveCorrelationHeatmap(heat, m); err != nil {
			return err
		}
		s.result.Plots = append(s.result.Plots, heat)
	}
	p.logger.Info("plots written", log.PathKey, dir)
	return nil
}

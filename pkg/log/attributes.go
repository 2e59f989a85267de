// Standard attribute keys for loanrisk log records.
//
// Keys follow a dotted naming convention ("data.column", "prune.dropped")
// so records can be filtered by prefix. Use these constants instead of
// ad-hoc strings.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator or transformer type.
	// Examples: "Downcaster", "CorrelationPruner", "LogisticRegression"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates the workflow phase.
	PhaseKey = "ml.phase"
)

// Table and column shape
const (
	// SamplesKey is the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// ColumnsKey is the number of columns in a table.
	ColumnsKey = "data.columns"

	// ColumnKey names a single column.
	ColumnKey = "data.column"

	// KindFromKey and KindToKey record a storage width change.
	KindFromKey = "data.kind_from"
	KindToKey   = "data.kind_to"

	// DataSizeKey is a memory size in bytes.
	DataSizeKey = "data.size_bytes"

	// BytesSavedKey is the number of bytes released by a transformation.
	BytesSavedKey = "data.bytes_saved"

	// MissingKey is a count or fraction of missing values.
	MissingKey = "data.missing"

	// TableKey names the table being processed ("train", "test").
	TableKey = "data.table"
)

// Feature pruning
const (
	// ThresholdKey records a decision threshold.
	ThresholdKey = "prune.threshold"

	// DroppedKey lists dropped column names.
	DroppedKey = "prune.dropped"

	// ExcludedKey lists columns exempt from pruning.
	ExcludedKey = "prune.excluded"
)

// Performance and evaluation
const (
	// DurationMsKey records the execution time in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy.
	AccuracyKey = "metrics.accuracy"

	// AUCKey records ROC-AUC.
	AUCKey = "metrics.roc_auc"

	// LossKey records a loss value.
	LossKey = "metrics.loss"

	// IterationKey records the current solver iteration.
	IterationKey = "training.iteration"

	// FoldKey records the cross-validation fold.
	FoldKey = "training.fold"
)

// Pipeline
const (
	// RunIDKey identifies one pipeline run.
	RunIDKey = "pipeline.run_id"

	// StageKey names the pipeline stage.
	StageKey = "pipeline.stage"

	// PathKey records an input or output path.
	PathKey = "pipeline.path"
)

// Error context
const (
	// ErrorTypeKey categorizes the error.
	ErrorTypeKey = "error.type"

	// StacktraceKey holds a stack trace extracted from cockroachdb/errors.
	StacktraceKey = "error.stacktrace"
)

// Standard values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)

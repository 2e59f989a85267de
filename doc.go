// Package loanrisk prepares tabular loan application data for credit
// default modelling and produces a probability-of-default submission.
//
// The workflow reads a training table (with a binary target) and an
// evaluation table sharing the same columns minus the target, then:
//
//   - drops columns whose missing ratio is too high
//   - narrows every numeric column to the smallest width that holds its
//     values (see preprocessing.Downcaster)
//   - imputes numeric gaps with training means
//   - removes redundant columns whose absolute Spearman correlation with an
//     earlier column exceeds a threshold (see feature_selection.CorrelationPruner)
//   - one-hot encodes categoricals, scales, and optionally projects with PCA
//   - trains and compares classifiers on a stratified validation split
//   - writes one predicted probability per evaluation id
//
// # Installation
//
//	go install github.com/YuminosukeSato/loanrisk/cmd/loanrisk@latest
//
// # Quick Start
//
//	loanrisk run --config pipeline.yaml
//	loanrisk downcast data/application_train.csv
//	loanrisk prune data/application_train.csv --exclude TARGET --heatmap corr.png
//
// Library users drive the same stages through package pipeline:
//
//	cfg, err := config.Load("pipeline.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p, err := pipeline.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := p.Run(ctx)
//
// # Packages
//
//   - frame: Arrow-backed columnar tables with typed columns and null masks
//   - dataset: CSV and Excel readers, submission writer
//   - preprocessing: downcasting, imputation, one-hot encoding, scalers
//   - sklearn/feature_selection: Spearman correlation and pruning
//   - sklearn/linear_model, sklearn/naive_bayes: classifiers
//   - sklearn/model_selection: splits and cross-validation
//   - metrics: ROC AUC, log loss, confusion matrix and reports
//   - report: ROC curve and correlation heatmap plots
//   - config, pipeline: configuration and stage orchestration
//   - pkg/errors, pkg/log: error types and structured logging
package loanrisk

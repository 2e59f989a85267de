// Package model_selection splits data for validation and runs
// cross-validation over any core/model.Classifier.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Splitter produces cross-validation folds.
type Splitter interface {
	Split(X, y mat.Matrix) ([]Fold, error)
	NSplits() int
}

// Fold holds the row indices of one train/test partition, each sorted.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits rows into NSplits consecutive folds, optionally shuffled.
type KFold struct {
	nSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a k-fold splitter. nSplits below 2 defaults to 5.
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{nSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// NSplits returns the number of folds.
func (kf *KFold) NSplits() int { return kf.nSplits }

// Split generates train/test indices for each fold. The first n % k folds
// take one extra row.
func (kf *KFold) Split(X, _ mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if nSamples < kf.nSplits {
		return nil, errors.NewValueError("KFold.Split",
			fmt.Sprintf("cannot split %d samples into %d folds", nSamples, kf.nSplits))
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		newRand(kf.RandomSeed).Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	assignment := make([]int, nSamples)
	foldSize, remainder := nSamples/kf.nSplits, nSamples%kf.nSplits
	current := 0
	for f := 0; f < kf.nSplits; f++ {
		size := foldSize
		if f < remainder {
			size++
		}
		for _, idx := range indices[current : current+size] {
			assignment[idx] = f
		}
		current += size
	}
	return foldsFromAssignment(assignment, kf.nSplits), nil
}

// StratifiedKFold keeps each class's share roughly equal across folds.
type StratifiedKFold struct {
	nSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a stratified splitter. nSplits below 2
// defaults to 5.
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{nSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// NSplits returns the number of folds.
func (skf *StratifiedKFold) NSplits() int { return skf.nSplits }

// Split deals the rows of each class round-robin over the folds, so every
// fold receives floor or ceil of count/k rows of every class.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if y == nil {
		return nil, errors.NewValueError("StratifiedKFold.Split", "labels are required")
	}
	if yRows, _ := y.Dims(); yRows != nSamples {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", nSamples, yRows, 0)
	}
	if nSamples < skf.nSplits {
		return nil, errors.NewValueError("StratifiedKFold.Split",
			fmt.Sprintf("cannot split %d samples into %d folds", nSamples, skf.nSplits))
	}

	labels, byClass := groupByClass(y)
	var r *rand.Rand
	if skf.Shuffle {
		r = newRand(skf.RandomSeed)
	}

	assignment := make([]int, nSamples)
	next := 0
	for _, label := range labels {
		indices := byClass[label]
		if r != nil {
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		// continue the rotation across classes so small classes do not
		// all land in fold 0
		for _, idx := range indices {
			assignment[idx] = next % skf.nSplits
			next++
		}
	}
	return foldsFromAssignment(assignment, skf.nSplits), nil
}

func foldsFromAssignment(assignment []int, k int) []Fold {
	folds := make([]Fold, k)
	for idx, f := range assignment {
		for g := range folds {
			if g == f {
				folds[g].TestIndices = append(folds[g].TestIndices, idx)
			} else {
				folds[g].TrainIndices = append(folds[g].TrainIndices, idx)
			}
		}
	}
	return folds
}

// groupByClass returns the sorted labels and the row indices of each.
func groupByClass(y mat.Matrix) ([]float64, map[float64][]int) {
	n, _ := y.Dims()
	byClass := make(map[float64][]int)
	for i := 0; i < n; i++ {
		label := y.At(i, 0)
		byClass[label] = append(byClass[label], i)
	}
	labels := make([]float64, 0, len(byClass))
	for l := range byClass {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	return labels, byClass
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// TrainTest is the result of TrainTestSplit.
type TrainTest struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.Dense

	TrainIndices []int
	TestIndices  []int
}

// TrainTestSplit holds out testSize (in (0, 1)) of the rows. With stratify
// set, each class contributes round(testSize * count) rows, keeping at
// least one row of every class in the training part and, for classes with
// two or more rows, at least one in the test part. Rows keep their
// original order within each part.
func TrainTestSplit(X, y mat.Matrix, testSize float64, stratify bool, seed uint64) (*TrainTest, error) {
	nSamples, _ := X.Dims()
	if nSamples < 2 {
		return nil, errors.NewModelError("TrainTestSplit", "need at least 2 samples", errors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != nSamples {
		return nil, errors.NewDimensionError("TrainTestSplit", nSamples, yRows, 0)
	}
	if !(testSize > 0 && testSize < 1) {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	r := newRand(seed)
	test := make(map[int]bool)
	if stratify {
		labels, byClass := groupByClass(y)
		for _, label := range labels {
			indices := byClass[label]
			nTest := int(math.Round(testSize * float64(len(indices))))
			if len(indices) >= 2 {
				nTest = max(nTest, 1)
			}
			nTest = min(nTest, len(indices)-1)
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
			for _, idx := range indices[:max(nTest, 0)] {
				test[idx] = true
			}
		}
	} else {
		nTest := int(math.Ceil(testSize * float64(nSamples)))
		nTest = min(nTest, nSamples-1)
		for _, idx := range r.Perm(nSamples)[:nTest] {
			test[idx] = true
		}
	}
	if len(test) == 0 {
		return nil, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("test_size=%g leaves no test rows out of %d", testSize, nSamples))
	}

	split := &TrainTest{}
	for i := 0; i < nSamples; i++ {
		if test[i] {
			split.TestIndices = append(split.TestIndices, i)
		} else {
			split.TrainIndices = append(split.TrainIndices, i)
		}
	}
	split.XTrain, split.YTrain = Subset(X, y, split.TrainIndices)
	split.XTest, split.YTest = Subset(X, y, split.TestIndices)
	return split, nil
}

// Subset copies the given rows of X and y, in the order given.
func Subset(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	if len(indices) == 0 {
		return &mat.Dense{}, &mat.Dense{}
	}
	_, xCols := X.Dims()
	_, yCols := y.Dims()
	xs := mat.NewDense(len(indices), xCols, nil)
	ys := mat.NewDense(len(indices), yCols, nil)
	for i, idx := range indices {
		for j := 0; j < xCols; j++ {
			xs.Set(i, j, X.At(idx, j))
		}
		for j := 0; j < yCols; j++ {
			ys.Set(i, j, y.At(idx, j))
		}
	}
	return xs, ys
}

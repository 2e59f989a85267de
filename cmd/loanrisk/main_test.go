package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeCSV(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"run", "downcast", "prune"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := newRootCommand()

	level := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, level)
	assert.Equal(t, "info", level.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	prune, _, err := cmd.Find([]string{"prune"})
	require.NoError(t, err)
	assert.Equal(t, "0.9", prune.Flags().Lookup("threshold").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "downcast", "whatever.csv")
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "format", ve.ParamName)
	assert.Equal(t, "xml", ve.Value)
	assert.Contains(t, err.Error(), "invalid format")
}

func downcastFixture(t *testing.T) string {
	return writeCSV(t, t.TempDir(), "loans.csv",
		"id,small,big,ratio",
		"a,-100,0,0.5",
		"b,100,10000000000,0.25",
		"c,7,5,0.75",
	)
}

func TestDowncastText(t *testing.T) {
	out, err := execute(t, "downcast", downcastFixture(t))
	require.NoError(t, err)

	assert.Regexp(t, `small\s+int64\s+int8`, out)
	assert.Regexp(t, `ratio\s+float64\s+float16`, out)
	assert.NotContains(t, out, "big")
	assert.Contains(t, out, "reduction")
}

func TestDowncastJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "downcast", "--keep-floats", downcastFixture(t))
	require.NoError(t, err)

	var rep downcastReportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Changes, 1)
	assert.Equal(t, "small", rep.Changes[0].Column)
	assert.Equal(t, "int8", rep.Changes[0].To)
	assert.Greater(t, rep.BytesBefore, rep.BytesAfter)
}

func TestDowncastMissingFile(t *testing.T) {
	_, err := execute(t, "downcast", filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func pruneFixture(t *testing.T) (dir, path string) {
	dir = t.TempDir()
	path = writeCSV(t, dir, "chain.csv",
		"a,b,c,target",
		"1,1,2,6",
		"2,2,1,5",
		"3,3,3,4",
		"4,4,4,3",
		"5,6,6,2",
		"6,5,5,1",
	)
	return dir, path
}

func TestPrune(t *testing.T) {
	dir, path := pruneFixture(t)
	heat := filepath.Join(dir, "corr.svg")

	out, err := execute(t, "prune", path, "--exclude", "target", "--heatmap", heat)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"2 of 3 numeric columns exceed |rho| > 0.9", "b", "c"}, lines)
	_, err = os.Stat(heat)
	assert.NoError(t, err)

	// without the exclusion the target mirrors a and is dropped too
	out, err = execute(t, "--format", "json", "prune", path)
	require.NoError(t, err)
	var got struct {
		Examined int      `json:"examined"`
		Dropped  []string `json:"dropped"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 4, got.Examined)
	assert.Equal(t, []string{"b", "c", "target"}, got.Dropped)
}

func TestPruneRejectsThreshold(t *testing.T) {
	_, path := pruneFixture(t)
	_, err := execute(t, "prune", path, "--threshold", "1.5")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	train := []string{"id,income,grade,target"}
	for i := 0; i < 30; i++ {
		grade := "B"
		if i%2 == 0 {
			grade = "A"
		}
		target := 0
		if i%3 == 0 {
			target = 1
		}
		train = append(train, fmt.Sprintf("L%d,%d,%s,%d", i, 1000+37*i, grade, target))
	}
	test := []string{"id,income,grade"}
	for k := 0; k < 5; k++ {
		test = append(test, fmt.Sprintf("T%d,%d,A", k, 1200+41*k))
	}
	trainPath := writeCSV(t, dir, "train.csv", train...)
	testPath := writeCSV(t, dir, "test.csv", test...)
	output := filepath.Join(dir, "submission.csv")
	cfg := writeCSV(t, dir, "pipeline.yaml",
		"train_path: "+trainPath,
		"test_path: "+testPath,
		"output_path: "+output,
		"id_column: id",
		"target_column: target",
		"log_level: error",
	)

	out, err := execute(t, "--format", "json", "run", "--config", cfg)
	require.NoError(t, err)

	var got runSummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 5, got.Rows)
	assert.Equal(t, "LogisticRegression", got.Best)
	assert.Equal(t, 3, got.Features)
	assert.Equal(t, output, got.Submission)

	_, err = os.Stat(output)
	assert.NoError(t, err)
}

func TestRunBadConfig(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

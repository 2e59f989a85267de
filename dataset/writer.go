package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/YuminosukeSato/loanrisk/pkg/errors"
)

// WriteSubmission writes a two-column CSV of (id, prediction). Rows follow
// order, which is normally the template's id order; a nil order keeps the
// order of ids. Every id in order must have a prediction.
func WriteSubmission(w io.Writer, idHeader, predHeader string, ids []string, preds []float64, order []string) error {
	if len(ids) != len(preds) {
		return errors.NewDimensionError("WriteSubmission", len(ids), len(preds), 0)
	}
	byID := make(map[string]float64, len(ids))
	for i, id := range ids {
		byID[id] = preds[i]
	}
	if order == nil {
		order = ids
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{idHeader, predHeader}); err != nil {
		return errors.Wrap(err, "write submission header")
	}
	for _, id := range order {
		p, ok := byID[id]
		if !ok {
			return errors.NewValueError("WriteSubmission", fmt.Sprintf("template id %q has no prediction", id))
		}
		if err := cw.Write([]string{id, strconv.FormatFloat(p, 'g', -1, 64)}); err != nil {
			return errors.Wrap(err, "write submission row")
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

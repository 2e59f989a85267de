package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/loanrisk/frame"
)

// MissingStat is the missing-value count of one column.
type MissingStat struct {
	Name    string
	Missing int
	Percent float64
}

// MissingReport lists every column by missing percentage, highest first;
// ties are ordered by name.
func MissingReport(t *frame.Table) []MissingStat {
	stats := make([]MissingStat, 0, t.NumCols())
	for _, c := range t.Columns() {
		s := MissingStat{Name: c.Name(), Missing: c.NullN()}
		if t.NumRows() > 0 {
			s.Percent = 100 * float64(s.Missing) / float64(t.NumRows())
		}
		stats = append(stats, s)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Percent != stats[j].Percent {
			return stats[i].Percent > stats[j].Percent
		}
		return stats[i].Name < stats[j].Name
	})
	return stats
}

// DropMissingAbove removes columns whose missing fraction exceeds limit and
// returns the new table with the dropped names in column order. Columns in
// keep are never dropped. An all-missing column exceeds any limit below 1.
func DropMissingAbove(t *frame.Table, limit float64, keep ...string) (*frame.Table, []string) {
	if t.NumRows() == 0 {
		return t, nil
	}
	protected := make(map[string]bool, len(keep))
	for _, k := range keep {
		protected[k] = true
	}

	var dropped []string
	for _, c := range t.Columns() {
		if protected[c.Name()] {
			continue
		}
		if float64(c.NullN())/float64(t.NumRows()) > limit {
			dropped = append(dropped, c.Name())
		}
	}
	return t.Drop(dropped...), dropped
}

package tapaudit

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/hazyhaar/taptarget/geom"
)

// buildTable ranks failures by descending overlap ratio. Equal ratios keep
// detection order.
func buildTable(failures []OverlapFailure) []TableRow {
	rows := make([]TableRow, 0, len(failures))
	for _, f := range failures {
		largest, _ := geom.Largest(f.TapTarget.ClientRects)
		w := int(math.Floor(largest.Width))
		h := int(math.Floor(largest.Height))
		rows = append(rows, TableRow{
			TapTarget:              f.TapTarget.Node,
			Size:                   fmt.Sprintf("%dx%d", w, h),
			Width:                  w,
			Height:                 h,
			OverlappingTarget:      f.OverlappingTarget.Node,
			TapTargetScore:         f.TapTargetScore,
			OverlappingTargetScore: f.OverlappingTargetScore,
			OverlapScoreRatio:      f.OverlapScoreRatio,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].OverlapScoreRatio > rows[j].OverlapScoreRatio
	})
	return rows
}

// failingSubjects counts distinct subjects among failures.
func failingSubjects(failures []OverlapFailure) int {
	seen := make(map[*Target]struct{}, len(failures))
	for _, f := range failures {
		seen[f.TapTarget] = struct{}{}
	}
	return len(seen)
}

// passingRatio is the fraction of targets that failed against nothing.
// An empty page passes trivially.
func passingRatio(failing, total int) float64 {
	if total == 0 {
		return 1
	}
	return 1 - float64(failing)/float64(total)
}

var printer = message.NewPrinter(language.English)

func displayValue(ratio float64) string {
	return printer.Sprintf("%v appropriately sized tap targets", number.Percent(ratio))
}

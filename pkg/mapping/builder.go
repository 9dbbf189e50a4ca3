package mapping

import (
	"strings"

	"github.com/user/tabmap"
	"github.com/user/tabmap/pkg/match"
)

// BuildInitialSpec creates one sheet mapping per template sheet, picks the
// source sheet sharing the most headers (case-insensitive) and binds columns
// with SuggestHeaderMapping. Without source sheets the columns stay unbound.
func BuildInitialSpec(templateSheets, sourceSheets []tabmap.SheetHeaders) *MappingSpec {
	spec := &MappingSpec{Sheets: make([]SheetMapping, 0, len(templateSheets))}

	for _, tpl := range templateSheets {
		sm := NewSheetMapping(tpl.Sheet, tpl.Headers)

		if best, ok := bestSourceSheet(tpl.Headers, sourceSheets); ok {
			sm.SourceSheet = best.Sheet
			suggested := match.SuggestHeaderMapping(tpl.Headers, best.Headers)
			for i := range sm.Columns {
				sm.Columns[i].Source = suggested[sm.Columns[i].Target]
			}
		}
		spec.Sheets = append(spec.Sheets, sm)
	}
	return spec
}

func bestSourceSheet(targets []string, sources []tabmap.SheetHeaders) (tabmap.SheetHeaders, bool) {
	if len(sources) == 0 {
		return tabmap.SheetHeaders{}, false
	}
	want := lowerSet(targets)
	best, bestScore := 0, -1
	for i, src := range sources {
		score := 0
		for h := range lowerSet(src.Headers) {
			if _, ok := want[h]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return sources[best], true
}

func lowerSet(headers []string) map[string]struct{} {
	set := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		set[strings.ToLower(h)] = struct{}{}
	}
	return set
}

package planner

import (
	"fmt"
	"sort"
	"strings"

	"vibe/internal/types"
)

var defaultElementTypes = []string{"node", "way", "relation"}

// BuildOverpassQL compiles tag filters into an Overpass QL union over the
// bounding box of the search circle. Output is deterministic for equal input.
func BuildOverpassQL(tags map[string][]string, elementTypes []string, center types.Point, radiusMeters int) string {
	if len(elementTypes) == 0 {
		elementTypes = defaultElementTypes
	}
	box := types.BoundsAround(center, radiusMeters)
	bbox := fmt.Sprintf("(%.6f,%.6f,%.6f,%.6f)", box.South, box.West, box.North, box.East)

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, k := range keys {
		for _, v := range tags[k] {
			for _, el := range elementTypes {
				fmt.Fprintf(&b, "  %s[%q=%q]%s;\n", el, k, v, bbox)
			}
		}
	}
	b.WriteString(");\nout tags center 50;")
	return b.String()
}

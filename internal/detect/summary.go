package detect

import (
	"fmt"
	"strings"
)

const (
	clearVerdict   = "The path ahead appears clear."
	cautionVerdict = "Use caution while navigating."

	// closePersonArea is the fractional box area past which a person is
	// treated as close enough to warrant its own warning.
	closePersonArea = 0.12
)

// hazards are the categories whose presence downgrades the navigation
// verdict from clear to caution.
var hazards = map[Category]bool{
	Person:  true,
	Car:     true,
	Bus:     true,
	Bicycle: true,
	Dog:     true,
}

// BuildSummary derives the spoken report from a detection set. Output
// is deterministic: categories appear grouped, in the order first
// encountered, with pluralized counts, followed by any safety clauses
// and a binary clear/caution verdict.
func BuildSummary(detections []Detection) string {
	if len(detections) == 0 {
		return "No objects detected. " + clearVerdict
	}

	counts := make(map[Category]int)
	var order []Category
	for _, d := range detections {
		if counts[d.Label] == 0 {
			order = append(order, d.Label)
		}
		counts[d.Label]++
	}

	parts := make([]string, 0, len(order))
	for _, cat := range order {
		parts = append(parts, pluralize(cat, counts[cat]))
	}

	var b strings.Builder
	b.WriteString("I detected ")
	b.WriteString(joinList(parts))
	b.WriteString(" in the scene.")

	if counts[Crosswalk] > 0 || counts[TrafficLight] > 0 {
		b.WriteString(" A pedestrian crossing is ahead; wait for the signal before proceeding.")
	}

	for _, d := range detections {
		if d.Label == Person && d.Box.Width*d.Box.Height >= closePersonArea {
			b.WriteString(" A person is very close; give them room.")
			break
		}
	}

	verdict := clearVerdict
	for cat := range counts {
		if hazards[cat] {
			verdict = cautionVerdict
			break
		}
	}
	b.WriteString(" ")
	b.WriteString(verdict)

	return b.String()
}

func pluralize(cat Category, n int) string {
	name := string(cat)
	if n == 1 {
		return fmt.Sprintf("1 %s", name)
	}
	switch cat {
	case Person:
		name = "people"
	case Bus:
		name = "buses"
	case Bench:
		name = "benches"
	default:
		name += "s"
	}
	return fmt.Sprintf("%d %s", n, name)
}

func joinList(parts []string) string {
	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}

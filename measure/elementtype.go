package measure

import "strings"

// ElementType classifies a measured characteristic. GD&T characteristics
// and destructive tests carry one-sided tolerances, which changes which
// side of the capability index is reported.
type ElementType int

const (
	Dimensional ElementType = iota
	GDT
	Traction
)

func (t ElementType) String() string {
	switch t {
	case GDT:
		return "gdt"
	case Traction:
		return "traction"
	default:
		return "dimensional"
	}
}

var gdtKeywords = []string{
	"flatness", "position", "parallelism", "perpendicularity",
	"cylindricity", "concentricity", "symmetry", "profile", "runout",
}

var tractionKeywords = []string{
	"force", "traction", "compression", "hysteresi", "hysteresis", "traccio",
}

// DetectElementType classifies an element by its name or property.
func DetectElementType(name string) ElementType {
	lower := strings.ToLower(name)
	for _, kw := range gdtKeywords {
		if strings.Contains(lower, kw) {
			return GDT
		}
	}
	for _, kw := range tractionKeywords {
		if strings.Contains(lower, kw) {
			return Traction
		}
	}
	return Dimensional
}

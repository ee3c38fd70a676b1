package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StatusClass partitions catalog statuses into the lifecycle phases business
// rules care about. The catalog is data-driven, so the class is derived from
// the status name rather than from fixed identifiers.
type StatusClass string

const (
	StatusClassIntake    StatusClass = "INTAKE"
	StatusClassAssigned  StatusClass = "ASSIGNED"
	StatusClassClosed    StatusClass = "CLOSED"
	StatusClassCancelled StatusClass = "CANCELLED"
	StatusClassUnknown   StatusClass = "UNKNOWN"
)

// Status is a catalog entry for ticket lifecycle states.
type Status struct {
	ID   int64
	Name string
}

// Class returns the lifecycle classification for the status.
func (s Status) Class() StatusClass {
	return ClassifyStatus(s.Name)
}

var statusKeywords = []struct {
	class    StatusClass
	keywords []string
}{
	// Cancelled before closed: "anulado" must not fall through to a
	// substring match on another class.
	{StatusClassCancelled, []string{"cancelado", "cancelled", "canceled", "anulado"}},
	{StatusClassClosed, []string{"cerrado", "closed", "resuelto", "resolved", "finalizado"}},
	{StatusClassAssigned, []string{"asignado", "assigned", "en proceso", "in progress", "progreso", "atencion"}},
	{StatusClassIntake, []string{"nuevo", "new", "abierto", "open", "pendiente", "pending"}},
}

// ClassifyStatus maps a catalog status name to its lifecycle class using a
// case and diacritic insensitive substring match.
func ClassifyStatus(name string) StatusClass {
	folded := foldStatusName(name)
	for _, group := range statusKeywords {
		for _, keyword := range group.keywords {
			if strings.Contains(folded, keyword) {
				return group.class
			}
		}
	}
	return StatusClassUnknown
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldStatusName(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// OpenClasses are the classes counted as "still open" by the metrics
// aggregator.
func OpenClasses() []StatusClass {
	return []StatusClass{StatusClassIntake, StatusClassAssigned}
}

// TerminalClasses are the classes excluded from the unassigned pool and from
// a technician's default queue.
func TerminalClasses() []StatusClass {
	return []StatusClass{StatusClassClosed, StatusClassCancelled}
}

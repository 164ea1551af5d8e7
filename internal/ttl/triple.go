package ttl

import (
	"strings"
)

// Triple is one (subject, predicate, object) statement in the converter's
// turtle output. All three terms keep their prefixed lexical form, e.g.
// "osmnode:42", "osm2rdfgeom:osm_wayarea_7", a literal, or a blank node
// label beginning with "_".
type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

// IsBlankObject reports whether the object is a blank node label
func (t Triple) IsBlankObject() bool {
	return strings.HasPrefix(t.Object, "_")
}

// ParseLine splits one line of the converter's turtle output into a triple.
// Prefix declarations (lines starting with "@") and blank lines yield
// ok=false. The line is split on the first two whitespace runs; the object
// keeps any internal whitespace (WKT literals contain spaces) and loses the
// statement-terminating " ." if present.
func ParseLine(line string) (Triple, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "@") {
		return Triple{}, false
	}

	subEnd := strings.IndexAny(line, " \t")
	if subEnd < 0 {
		return Triple{}, false
	}
	rest := strings.TrimLeft(line[subEnd:], " \t")

	predEnd := strings.IndexAny(rest, " \t")
	if predEnd < 0 {
		return Triple{}, false
	}
	object := strings.TrimLeft(rest[predEnd:], " \t")
	object = strings.TrimSuffix(object, ".")
	object = strings.TrimRight(object, " \t")
	if object == "" {
		return Triple{}, false
	}

	return Triple{
		Subject:   line[:subEnd],
		Predicate: rest[:predEnd],
		Object:    object,
	}, true
}

package sparql

import "regexp"

var (
	separators = regexp.MustCompile(`[:/]+`)
	disallowed = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// SanitizeKey turns an IRI into an activity code: runs of ':' and '/'
// become '_' and any other character outside [A-Za-z0-9_] is removed.
func SanitizeKey(iri string) string {
	return disallowed.ReplaceAllString(separators.ReplaceAllString(iri, "_"), "")
}

package db

import (
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "is": true,
	"it": true, "and": true, "or": true, "with": true, "from": true,
	"by": true, "this": true, "that": true, "as": true, "be": true,
}

// BuildSearchTerms preprocesses a natural language product query.
// Splits on whitespace, removes stopwords and words < 3 chars, trims punctuation.
func BuildSearchTerms(query string) []string {
	words := strings.Fields(query)
	var filtered []string
	for _, w := range words {
		// Trim non-letter/digit chars from both ends
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if len(trimmed) < 3 {
			continue
		}
		if stopwords[strings.ToLower(trimmed)] {
			continue
		}
		filtered = append(filtered, trimmed)
	}
	return filtered
}

// SearchActivities returns non-emission activities whose name contains any
// of the search terms, best matches (most terms hit) first.
// Returns empty slice if the preprocessed query is empty.
func (d *DB) SearchActivities(query string, limit int) ([]Activity, error) {
	terms := BuildSearchTerms(query)
	if len(terms) == 0 {
		return []Activity{}, nil
	}

	scoreParts := make([]string, len(terms))
	whereParts := make([]string, len(terms))
	var scoreArgs, whereArgs []any
	for i, t := range terms {
		pattern := "%" + escapeLike(t) + "%"
		scoreParts[i] = `(name LIKE ? ESCAPE '\')`
		whereParts[i] = `name LIKE ? ESCAPE '\'`
		scoreArgs = append(scoreArgs, pattern)
		whereArgs = append(whereArgs, pattern)
	}

	args := append(scoreArgs, whereArgs...)
	args = append(args, TypeEmission, limit)
	activities, err := d.queryActivities(`
		SELECT `+activityColumns+` FROM (
			SELECT `+activityColumns+`, `+strings.Join(scoreParts, " + ")+` AS hits
			FROM activities
			WHERE (`+strings.Join(whereParts, " OR ")+`) AND type != ?
		)
		ORDER BY hits DESC, name, id
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, err
	}
	if activities == nil {
		activities = []Activity{}
	}
	return activities, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

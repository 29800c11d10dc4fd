package roster

import (
	"fmt"
	"strings"
	"unicode"
)

type Field string

// headers shorter than this never match as a fragment of a synonym
const minReverseLen = 3

const (
	FieldID       Field = "id"
	FieldName     Field = "name"
	FieldEmail    Field = "email"
	FieldParent1  Field = "parent1"
	FieldParent2  Field = "parent2"
	FieldSeats    Field = "seats"
	FieldInvitees Field = "invitees"
)

// SynonymTable lists, per field, the normalised header fragments that identify its column.
type SynonymTable map[Field][]string

var (
	// fields are matched in this order; a column is given to the first field that claims it
	fieldOrder     = []Field{FieldID, FieldName, FieldEmail, FieldParent1, FieldParent2, FieldSeats, FieldInvitees}
	RequiredFields = []Field{FieldID, FieldName, FieldEmail, FieldParent1}

	fieldLabels = map[Field]string{
		FieldID:       "Student ID",
		FieldName:     "Student Name",
		FieldEmail:    "Student Email",
		FieldParent1:  "Parent 1 Email",
		FieldParent2:  "Parent 2 Email",
		FieldSeats:    "Number of Seats",
		FieldInvitees: "Invitees",
	}

	DefaultSynonyms = SynonymTable{
		FieldID:       {"studentid", "id", "studentnumber", "number", "رقم", "code"},
		FieldName:     {"studentname", "name", "fullname", "اسم"},
		FieldEmail:    {"studentemail", "email", "mail", "البريد"},
		FieldParent1:  {"parentemail", "parent1", "guardian", "ولي", "father", "mother"},
		FieldParent2:  {"parent2", "parentemail2", "guardian2", "mother", "father"},
		FieldSeats:    {"seats", "numberofseats", "seat"},
		FieldInvitees: {"invitees", "guests", "attendees"},
	}
)

func (f Field) Label() string { return fieldLabels[f] }

// NormalizeHeader lower-cases h and keeps only ASCII letters, digits and Arabic letters.
func NormalizeHeader(h string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(h) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case unicode.Is(unicode.Arabic, r) && unicode.IsLetter(r):
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// MatchHeaders maps fields to column indexes. A header matches a synonym when one contains the other
// once both are normalised; exact matches are preferred over partial ones.
// It returns the required fields that could not be matched.
func MatchHeaders(headers []string, synonyms SynonymTable) (map[Field]int, []Field) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	taken := make(map[int]bool, len(headers))
	columns := make(map[Field]int, len(fieldOrder))
	// synonyms are tried in order so the most specific one wins
	find := func(patterns []string, exact bool) int {
		for _, p := range patterns {
			for i, h := range normalized {
				if h == "" || taken[i] {
					continue
				}
				if h == p || (!exact && (strings.Contains(h, p) || (len(h) >= minReverseLen && strings.Contains(p, h)))) {
					return i
				}
			}
		}
		return -1
	}

	for _, fld := range fieldOrder {
		patterns := synonyms[fld]
		if len(patterns) == 0 {
			continue
		}
		idx := find(patterns, true)
		if idx < 0 {
			idx = find(patterns, false)
		}
		if idx >= 0 {
			columns[fld] = idx
			taken[idx] = true
		}
	}

	var missing []Field
	for _, fld := range RequiredFields {
		if _, ok := columns[fld]; !ok {
			missing = append(missing, fld)
		}
	}
	return columns, missing
}

// HeaderError rejects a whole import whose required columns cannot be found.
type HeaderError struct {
	Available []string
	Missing   []Field
	Synonyms  SynonymTable
}

func (e *HeaderError) Error() string {
	missing := make([]string, 0, len(e.Missing))
	for _, fld := range e.Missing {
		missing = append(missing, fld.Label())
	}
	hints := make([]string, 0, len(RequiredFields))
	for _, fld := range RequiredFields {
		hints = append(hints, fmt.Sprintf("%s (%s)", fld.Label(), strings.Join(e.Synonyms[fld], ", ")))
	}
	return fmt.Sprintf(
		"Missing required columns. Available columns in your Excel file: %s. Could not find: %s. Expected columns like: %s",
		strings.Join(e.Available, ", "), strings.Join(missing, ", "), strings.Join(hints, "; "),
	)
}

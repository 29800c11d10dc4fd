package roster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "studentid", NormalizeHeader(" Student ID "))
	assert.Equal(t, "parent1email", NormalizeHeader("Parent-1 E-mail:"))
	assert.Equal(t, "اسمالطالب", NormalizeHeader("اسم الطالب"))
	assert.Equal(t, "", NormalizeHeader(" # "))
}

func TestMatchHeaders(t *testing.T) {
	tests := []struct {
		name        string
		headers     []string
		wantColumns map[Field]int
		wantMissing []Field
	}{
		{
			name: "canonical headers",
			headers: []string{
				"Student ID", "Student Name", "Student Email", "Parent 1 Email", "Parent 2 Email", "Number of Seats", "Invitees",
			},
			wantColumns: map[Field]int{
				FieldID: 0, FieldName: 1, FieldEmail: 2, FieldParent1: 3, FieldParent2: 4, FieldSeats: 5, FieldInvitees: 6,
			},
		},
		{
			name:    "synonyms in any order",
			headers: []string{"Name", "E-mail", "Code", "Guardian", "Guests"},
			wantColumns: map[Field]int{
				FieldID: 2, FieldName: 0, FieldEmail: 1, FieldParent1: 3, FieldInvitees: 4,
			},
		},
		{
			name:    "arabic headers",
			headers: []string{"رقم الطالب", "اسم الطالب", "البريد الإلكتروني", "ولي الأمر"},
			wantColumns: map[Field]int{
				FieldID: 0, FieldName: 1, FieldEmail: 2, FieldParent1: 3,
			},
		},
		{
			name:        "missing required columns",
			headers:     []string{"Student Name", "Notes"},
			wantColumns: map[Field]int{FieldName: 0},
			wantMissing: []Field{FieldID, FieldEmail, FieldParent1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			columns, missing := MatchHeaders(tt.headers, DefaultSynonyms)
			assert.Equal(t, tt.wantColumns, columns)
			assert.Equal(t, tt.wantMissing, missing)
		})
	}
}

func TestHeaderError(t *testing.T) {
	err := &HeaderError{
		Available: []string{"Student Name", "Notes"},
		Missing:   []Field{FieldID, FieldEmail},
		Synonyms:  DefaultSynonyms,
	}
	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg,
		"Missing required columns. Available columns in your Excel file: Student Name, Notes. Could not find: Student ID, Student Email. Expected columns like: "))
	assert.Contains(t, msg, "Student ID (studentid, id, studentnumber, number, رقم, code)")
	assert.Contains(t, msg, "Parent 1 Email (parentemail, parent1, guardian, ولي, father, mother)")
}

func TestSplitInvitees(t *testing.T) {
	assert.Equal(t, []string{"Ann", "Bob", "Carl"}, SplitInvitees("Ann, Bob ,, Carl "))
	assert.Equal(t, []string{}, SplitInvitees(""))
	assert.Equal(t, []string{}, SplitInvitees(" , "))
}

func TestParseSeats(t *testing.T) {
	tests := map[string]int{
		"3":        3,
		" 2 ":      2,
		"2.7":      2,
		"1.0":      1,
		"0":        1,
		"-4":       1,
		"0.5":      1,
		"abc":      1,
		"":         1,
		"1e30":     MaxSeats,
		"+Inf":     MaxSeats,
		"NaN":      1,
		"99999999": MaxSeats,
		"1000":     1000,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseSeats(in), "ParseSeats(%q)", in)
	}
}

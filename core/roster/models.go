package roster

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/invitee"
)

type StudentItem struct {
	ID            int       `json:"id"`
	EventID       int       `json:"event_id"`
	StudentID     string    `json:"student_id"`
	StudentName   string    `json:"student_name"`
	StudentEmail  string    `json:"student_email"`
	Parent1       string    `json:"parent_1"`
	Parent2       string    `json:"parent_2"`
	NumberOfSeats int       `json:"number_of_seats"`
	Invitees      string    `json:"invitees"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Student is a StudentItem with its active invitees, main invitee first.
type Student struct {
	StudentItem
	InviteeList []invitee.Invitee `json:"invitee_list"`
}

// StudentRow is one roster entry, typed in by hand or read from a file.
type StudentRow struct {
	StudentID     string `json:"student_id" validate:"required"`
	StudentName   string `json:"student_name" validate:"required"`
	StudentEmail  string `json:"student_email" validate:"required,email"`
	Parent1       string `json:"parent_1" validate:"required,email"`
	Parent2       string `json:"parent_2" validate:"omitempty,email"`
	NumberOfSeats int    `json:"number_of_seats"`
	Invitees      string `json:"invitees"`
}

func (r *StudentRow) Clean() {
	r.StudentID = core.CleanString(r.StudentID)
	r.StudentName = core.CleanString(r.StudentName)
	r.StudentEmail = core.CleanString(r.StudentEmail)
	r.Parent1 = core.CleanString(r.Parent1)
	r.Parent2 = core.CleanString(r.Parent2)
	r.Invitees = core.CleanString(r.Invitees)
	if r.NumberOfSeats <= 0 {
		r.NumberOfSeats = 1
	}
}

func (r *StudentRow) Validate(validate *validator.Validate) error {
	r.Clean()
	return validate.Struct(r)
}

func (r StudentRow) missingRequired() bool {
	return r.StudentID == "" || r.StudentName == "" || r.StudentEmail == "" || r.Parent1 == ""
}

// UpdateStudent defines what may be changed on a StudentItem. nil fields are left untouched.
// A non-nil Invitees regenerates the additional invitees.
type UpdateStudent struct {
	StudentID     *string `json:"student_id" validate:"omitempty,min=1"`
	StudentName   *string `json:"student_name" validate:"omitempty,min=1"`
	StudentEmail  *string `json:"student_email" validate:"omitempty,email"`
	Parent1       *string `json:"parent_1" validate:"omitempty,email"`
	Parent2       *string `json:"parent_2" validate:"omitempty,email"`
	NumberOfSeats *int    `json:"number_of_seats" validate:"omitempty,min=1"`
	Invitees      *string `json:"invitees"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	for _, s := range []*string{us.StudentID, us.StudentName, us.StudentEmail, us.Parent1, us.Parent2, us.Invitees} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	var fldErrs []core.FieldError
	for fld, val := range map[string]*string{
		"student_id":    us.StudentID,
		"student_name":  us.StudentName,
		"student_email": us.StudentEmail,
		"parent_1":      us.Parent1,
	} {
		if val != nil && *val == "" {
			fldErrs = append(fldErrs, core.FieldError{Field: fld, Error: "this field is required"})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return validate.Struct(us)
}

func (us UpdateStudent) Apply(item StudentItem) StudentItem {
	if us.StudentID != nil {
		item.StudentID = *us.StudentID
	}
	if us.StudentName != nil {
		item.StudentName = *us.StudentName
	}
	if us.StudentEmail != nil {
		item.StudentEmail = *us.StudentEmail
	}
	if us.Parent1 != nil {
		item.Parent1 = *us.Parent1
	}
	if us.Parent2 != nil {
		item.Parent2 = *us.Parent2
	}
	if us.NumberOfSeats != nil {
		item.NumberOfSeats = *us.NumberOfSeats
	}
	if us.Invitees != nil {
		item.Invitees = *us.Invitees
	}
	return item
}

// ImportResult reports a batch import. Errors hold one "Row N: ..." message per rejected row.
type ImportResult struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	StudentsAdded int      `json:"studentsAdded"`
	Errors        []string `json:"errors"`
}

// SplitInvitees splits a comma separated list of names, trimming each and dropping empty ones.
func SplitInvitees(s string) []string {
	names := make([]string, 0)
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

package roster

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/event"
	"github.com/Mohammed01doitesky/bed/core/invitee"
)

var (
	ErrNotFound      = errors.New("Student not found")
	ErrStudentExists = errors.New("Student ID already exists in this event")
)

type (
	// TokenFunc returns the QR token of a student item once its id is known.
	TokenFunc func(studentItemID int) string

	Repository interface {
		StudentIDExists(ctx context.Context, eventID int, studentID string, excludedItemIDs ...int) (bool, error)
		ActiveStudentIDs(ctx context.Context, eventID int) ([]string, error)
		// CreateStudent inserts the item, its main invitee and one invitee per name in a single transaction.
		// Every invitee gets the token returned by token. A duplicate student id yields ErrStudentExists.
		CreateStudent(ctx context.Context, item StudentItem, names []string, token TokenFunc) (Student, error)
		GetStudent(ctx context.Context, eventID, itemID int) (Student, error)
		QueryStudents(ctx context.Context, eventID int) ([]Student, error)
		// UpdateStudent saves item and renames its main invitee. When names is not nil the additional
		// invitees are deactivated and recreated with the group's stored token.
		UpdateStudent(ctx context.Context, item StudentItem, names []string) (Student, error)
		// DeactivateStudent soft deletes the item and its invitees.
		DeactivateStudent(ctx context.Context, itemID int) error
	}

	EventGetter interface {
		GetEvent(ctx context.Context, id int) (event.Event, error)
	}

	Service struct {
		repo     Repository
		events   EventGetter
		tokens   *invitee.TokenSigner
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	events EventGetter,
	tokens *invitee.TokenSigner,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		events:   events,
		tokens:   tokens,
		validate: validate,
		logger:   logger,
	}
}

func (svc *Service) create(ctx context.Context, evt event.Event, row StudentRow) (Student, error) {
	now := core.NowFunc()
	item := StudentItem{
		EventID:       evt.ID,
		StudentID:     row.StudentID,
		StudentName:   row.StudentName,
		StudentEmail:  row.StudentEmail,
		Parent1:       row.Parent1,
		Parent2:       row.Parent2,
		NumberOfSeats: row.NumberOfSeats,
		Invitees:      row.Invitees,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	token := func(itemID int) string {
		return svc.tokens.Make(evt.ID, itemID, row.StudentName)
	}
	return svc.repo.CreateStudent(ctx, item, SplitInvitees(row.Invitees), token)
}

// CreateStudent adds a single student entered by hand.
func (svc *Service) CreateStudent(ctx context.Context, eventID int, row StudentRow) (Student, error) {
	evt, err := svc.events.GetEvent(ctx, eventID)
	if err != nil {
		return Student{}, err
	}
	if err = row.Validate(svc.validate); err != nil {
		return Student{}, err
	}

	exists, err := svc.repo.StudentIDExists(ctx, eventID, row.StudentID)
	if err != nil {
		return Student{}, errors.Wrap(err, "checking student id uniqueness")
	}
	if exists {
		return Student{}, core.NewValidationError(ErrStudentExists)
	}

	std, err := svc.create(ctx, evt, row)
	if err != nil {
		if errors.Cause(err) == ErrStudentExists {
			return Student{}, core.NewValidationError(ErrStudentExists)
		}
		return Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

type numberedRow struct {
	n   int // spreadsheet row number, header is row 1
	row StudentRow
}

// ImportRows adds a batch of students. Rejected rows are reported and skipped.
// The returned error is only set for failures that stop the batch (unknown event, datastore errors).
func (svc *Service) ImportRows(ctx context.Context, eventID int, rows []StudentRow) (ImportResult, error) {
	numbered := make([]numberedRow, 0, len(rows))
	for i, r := range rows {
		numbered = append(numbered, numberedRow{n: i + 2, row: r})
	}
	return svc.importRows(ctx, eventID, numbered)
}

// ImportTable matches the table headers before importing its rows. Nothing is written when a
// required column cannot be found; the returned *HeaderError describes the mismatch.
func (svc *Service) ImportTable(ctx context.Context, eventID int, table core.Table) (ImportResult, error) {
	if _, err := svc.events.GetEvent(ctx, eventID); err != nil {
		return ImportResult{}, err
	}

	columns, missing := MatchHeaders(table.Headers, DefaultSynonyms)
	if len(missing) > 0 {
		available := make([]string, 0, len(table.Headers))
		for _, h := range table.Headers {
			if h = core.CleanString(h); h != "" {
				available = append(available, h)
			}
		}
		return ImportResult{}, &HeaderError{Available: available, Missing: missing, Synonyms: DefaultSynonyms}
	}

	cell := func(row []string, fld Field) string {
		idx, ok := columns[fld]
		if !ok {
			return ""
		}
		return table.Cell(row, idx)
	}

	numbered := make([]numberedRow, 0, len(table.Rows))
	for i, row := range table.Rows {
		if isBlank(row) {
			continue
		}
		numbered = append(numbered, numberedRow{
			n: i + 2,
			row: StudentRow{
				StudentID:     cell(row, FieldID),
				StudentName:   cell(row, FieldName),
				StudentEmail:  cell(row, FieldEmail),
				Parent1:       cell(row, FieldParent1),
				Parent2:       cell(row, FieldParent2),
				NumberOfSeats: ParseSeats(cell(row, FieldSeats)),
				Invitees:      cell(row, FieldInvitees),
			},
		})
	}
	return svc.importRows(ctx, eventID, numbered)
}

func (svc *Service) importRows(ctx context.Context, eventID int, rows []numberedRow) (ImportResult, error) {
	evt, err := svc.events.GetEvent(ctx, eventID)
	if err != nil {
		return ImportResult{}, err
	}

	ids, err := svc.repo.ActiveStudentIDs(ctx, eventID)
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "listing student ids")
	}
	known := make(map[string]bool, len(ids)+len(rows))
	for _, id := range ids {
		known[id] = true
	}

	res := ImportResult{Errors: []string{}}
	rowErr := func(n int, format string, args ...interface{}) {
		res.Errors = append(res.Errors, fmt.Sprintf("Row %d: ", n)+fmt.Sprintf(format, args...))
	}

	for _, nr := range rows {
		row := nr.row
		row.Clean()

		if row.missingRequired() {
			rowErr(nr.n, "Missing required data")
			continue
		}
		if known[row.StudentID] {
			rowErr(nr.n, "Student ID '%s' already exists in this event", row.StudentID)
			continue
		}
		if !core.IsEmail(svc.validate, row.StudentEmail) {
			rowErr(nr.n, "Invalid student email format")
			continue
		}
		if !core.IsEmail(svc.validate, row.Parent1) {
			rowErr(nr.n, "Invalid parent 1 email format")
			continue
		}
		if row.Parent2 != "" && !core.IsEmail(svc.validate, row.Parent2) {
			rowErr(nr.n, "Invalid parent 2 email format")
			continue
		}

		if _, err := svc.create(ctx, evt, row); err != nil {
			if errors.Cause(err) == ErrStudentExists {
				known[row.StudentID] = true
				rowErr(nr.n, "Student ID '%s' already exists in this event", row.StudentID)
				continue
			}
			res.finish(len(rows))
			return res, errors.Wrapf(err, "creating student of row %d", nr.n)
		}
		known[row.StudentID] = true
		res.StudentsAdded++
	}

	res.finish(len(rows))
	svc.logger.Info(res.Message, map[string]interface{}{"event_id": eventID, "errors": len(res.Errors)})
	return res, nil
}

func (res *ImportResult) finish(total int) {
	res.Success = res.StudentsAdded > 0
	if res.Success {
		res.Message = fmt.Sprintf("Successfully processed %d out of %d students", res.StudentsAdded, total)
	} else {
		res.Message = "No students were added"
	}
}

func (svc *Service) GetStudent(ctx context.Context, eventID, itemID int) (Student, error) {
	return svc.repo.GetStudent(ctx, eventID, itemID)
}

func (svc *Service) ListStudents(ctx context.Context, eventID int) ([]Student, error) {
	if _, err := svc.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	students, err := svc.repo.QueryStudents(ctx, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

// UpdateStudent applies us to a student. The group's QR token never changes.
func (svc *Service) UpdateStudent(ctx context.Context, eventID, itemID int, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, eventID, itemID)
	if err != nil {
		return Student{}, err
	}
	if err = us.Validate(svc.validate); err != nil {
		return Student{}, err
	}

	if us.StudentID != nil && *us.StudentID != std.StudentID {
		exists, err := svc.repo.StudentIDExists(ctx, eventID, *us.StudentID, itemID)
		if err != nil {
			return Student{}, errors.Wrap(err, "checking student id uniqueness")
		}
		if exists {
			return Student{}, core.NewValidationError(ErrStudentExists)
		}
	}

	item := us.Apply(std.StudentItem)
	item.UpdatedAt = core.NowFunc()

	var names []string
	if us.Invitees != nil {
		names = SplitInvitees(*us.Invitees)
	}
	updated, err := svc.repo.UpdateStudent(ctx, item, names)
	if err != nil {
		if errors.Cause(err) == ErrStudentExists {
			return Student{}, core.NewValidationError(ErrStudentExists)
		}
		return Student{}, errors.Wrap(err, "updating student")
	}
	return updated, nil
}

func (svc *Service) DeleteStudent(ctx context.Context, eventID, itemID int) error {
	if _, err := svc.repo.GetStudent(ctx, eventID, itemID); err != nil {
		return err
	}
	return svc.repo.DeactivateStudent(ctx, itemID)
}

// MaxSeats caps the seat count read from a spreadsheet cell.
const MaxSeats = 1000

// ParseSeats reads a seat count cell. Anything that is not a positive number counts as 1.
func ParseSeats(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		if n > MaxSeats {
			return MaxSeats
		}
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 1 {
		return int(math.Floor(math.Min(f, MaxSeats)))
	}
	return 1
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

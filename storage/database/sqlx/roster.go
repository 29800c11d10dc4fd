package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/invitee"
	"github.com/Mohammed01doitesky/bed/core/roster"
)

const (
	studentColumns = `id, event_id, student_id, student_name, student_email, parent_1, parent_2, number_of_seats,
		invitees, active, created_at, updated_at`

	uniqueViolation = pq.ErrorCode("23505")
)

type studentRow struct {
	ID            int       `db:"id"`
	EventID       int       `db:"event_id"`
	StudentID     string    `db:"student_id"`
	StudentName   string    `db:"student_name"`
	StudentEmail  string    `db:"student_email"`
	Parent1       string    `db:"parent_1"`
	Parent2       string    `db:"parent_2"`
	NumberOfSeats int       `db:"number_of_seats"`
	Invitees      string    `db:"invitees"`
	Active        bool      `db:"active"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r studentRow) unboil() roster.StudentItem {
	return roster.StudentItem{
		ID:            r.ID,
		EventID:       r.EventID,
		StudentID:     r.StudentID,
		StudentName:   r.StudentName,
		StudentEmail:  r.StudentEmail,
		Parent1:       r.Parent1,
		Parent2:       r.Parent2,
		NumberOfSeats: r.NumberOfSeats,
		Invitees:      r.Invitees,
		Active:        r.Active,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

// trapUniqueErr maps the active student id index violation to roster.ErrStudentExists
func trapUniqueErr(err error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return roster.ErrStudentExists
	}
	return errors.Wrap(err, msg)
}

type rosterRepository struct {
	db *sqlx.DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *sqlx.DB) roster.Repository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) StudentIDExists(ctx context.Context, eventID int, studentID string, excludedItemIDs ...int) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM student_items WHERE event_id = ? AND student_id = ? AND active)`
	args := []interface{}{eventID, studentID}
	if len(excludedItemIDs) > 0 {
		var err error
		q, args, err = sqlx.In(
			`SELECT EXISTS (SELECT 1 FROM student_items WHERE event_id = ? AND student_id = ? AND active AND id NOT IN (?))`,
			eventID, studentID, excludedItemIDs,
		)
		if err != nil {
			return false, errors.Wrap(err, "building student id query")
		}
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(q), args...); err != nil {
		return false, errors.Wrap(err, "checking student id")
	}
	return exists, nil
}

func (repo *rosterRepository) ActiveStudentIDs(ctx context.Context, eventID int) ([]string, error) {
	var ids []string
	if err := repo.db.SelectContext(ctx, &ids, `SELECT student_id FROM student_items WHERE event_id = $1 AND active`, eventID); err != nil {
		return nil, errors.Wrap(err, "listing student ids")
	}
	return ids, nil
}

func insertInvitee(ctx context.Context, tx *sqlx.Tx, inv invitee.Invitee) (invitee.Invitee, error) {
	const q = `
		INSERT INTO invitees (event_id, student_item_id, invitees_name, invitees_qrcode_text, main_invitee,
			mail_send, mail_sent_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, $8, $8)
		RETURNING id`
	inv.Active = true
	if err := tx.QueryRowxContext(ctx, q,
		inv.EventID, inv.StudentItemID, inv.Name, inv.QRCodeText, inv.MainInvitee,
		inv.MailSend, nullTime(inv.MailSentAt), inv.CreatedAt.UTC(),
	).Scan(&inv.ID); err != nil {
		return invitee.Invitee{}, errors.Wrap(err, "inserting invitee")
	}
	return inv, nil
}

// insertGuests adds one additional invitee per name. Guests share the main invitee's token and dispatch state.
func insertGuests(ctx context.Context, tx *sqlx.Tx, main invitee.Invitee, names []string, at time.Time) ([]invitee.Invitee, error) {
	guests := make([]invitee.Invitee, 0, len(names))
	for _, name := range names {
		inv, err := insertInvitee(ctx, tx, invitee.Invitee{
			EventID:       main.EventID,
			StudentItemID: main.StudentItemID,
			Name:          name,
			QRCodeText:    main.QRCodeText,
			MailSend:      main.MailSend,
			MailSentAt:    main.MailSentAt,
			CreatedAt:     at,
			UpdatedAt:     at,
		})
		if err != nil {
			return nil, err
		}
		guests = append(guests, inv)
	}
	return guests, nil
}

func (repo *rosterRepository) CreateStudent(ctx context.Context, item roster.StudentItem, names []string, token roster.TokenFunc) (roster.Student, error) {
	var std roster.Student
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		const q = `
			INSERT INTO student_items (event_id, student_id, student_name, student_email, parent_1, parent_2,
				number_of_seats, invitees, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id`
		if err := tx.QueryRowxContext(ctx, q,
			item.EventID, item.StudentID, item.StudentName, item.StudentEmail, item.Parent1, item.Parent2,
			item.NumberOfSeats, item.Invitees, item.Active, item.CreatedAt.UTC(), item.UpdatedAt.UTC(),
		).Scan(&item.ID); err != nil {
			return trapUniqueErr(err, "inserting student item")
		}

		qrText := token(item.ID)
		main, err := insertInvitee(ctx, tx, invitee.Invitee{
			EventID:       item.EventID,
			StudentItemID: item.ID,
			Name:          item.StudentName,
			QRCodeText:    qrText,
			MainInvitee:   true,
			CreatedAt:     item.CreatedAt,
			UpdatedAt:     item.CreatedAt,
		})
		if err != nil {
			return err
		}
		guests, err := insertGuests(ctx, tx, main, names, item.CreatedAt)
		if err != nil {
			return err
		}

		std = roster.Student{StudentItem: item, InviteeList: append([]invitee.Invitee{main}, guests...)}
		return nil
	})
	if err != nil {
		return roster.Student{}, err
	}
	return std, nil
}

func (repo *rosterRepository) inviteesOf(ctx context.Context, exec sqlx.QueryerContext, itemIDs []int) (map[int][]invitee.Invitee, error) {
	byItem := make(map[int][]invitee.Invitee, len(itemIDs))
	if len(itemIDs) == 0 {
		return byItem, nil
	}
	q, args, err := sqlx.In(`SELECT `+inviteeColumns+`
		FROM invitees i
		WHERE i.student_item_id IN (?) AND i.active
		ORDER BY i.main_invitee DESC, i.id`, itemIDs)
	if err != nil {
		return nil, errors.Wrap(err, "building invitees query")
	}
	var rows []inviteeRow
	if err = sqlx.SelectContext(ctx, exec, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying student invitees")
	}
	for _, r := range rows {
		byItem[r.StudentItemID] = append(byItem[r.StudentItemID], r.unboil())
	}
	return byItem, nil
}

func (repo *rosterRepository) students(ctx context.Context, rows []studentRow) ([]roster.Student, error) {
	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	byItem, err := repo.inviteesOf(ctx, repo.db, ids)
	if err != nil {
		return nil, err
	}
	students := make([]roster.Student, 0, len(rows))
	for _, r := range rows {
		list := byItem[r.ID]
		if list == nil {
			list = []invitee.Invitee{}
		}
		students = append(students, roster.Student{StudentItem: r.unboil(), InviteeList: list})
	}
	return students, nil
}

func (repo *rosterRepository) GetStudent(ctx context.Context, eventID, itemID int) (roster.Student, error) {
	var r studentRow
	q := `SELECT ` + studentColumns + ` FROM student_items WHERE id = $1 AND event_id = $2 AND active`
	if err := repo.db.GetContext(ctx, &r, q, itemID, eventID); err != nil {
		return roster.Student{}, trapNoRowsErr(err, roster.ErrNotFound, "finding student")
	}
	students, err := repo.students(ctx, []studentRow{r})
	if err != nil {
		return roster.Student{}, err
	}
	return students[0], nil
}

func (repo *rosterRepository) QueryStudents(ctx context.Context, eventID int) ([]roster.Student, error) {
	var rows []studentRow
	q := `SELECT ` + studentColumns + ` FROM student_items WHERE event_id = $1 AND active ORDER BY student_name, id`
	if err := repo.db.SelectContext(ctx, &rows, q, eventID); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return repo.students(ctx, rows)
}

func (repo *rosterRepository) UpdateStudent(ctx context.Context, item roster.StudentItem, names []string) (roster.Student, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		const q = `
			UPDATE student_items
			SET student_id = $2, student_name = $3, student_email = $4, parent_1 = $5, parent_2 = $6,
				number_of_seats = $7, invitees = $8, updated_at = $9
			WHERE id = $1 AND active`
		res, err := tx.ExecContext(ctx, q,
			item.ID, item.StudentID, item.StudentName, item.StudentEmail, item.Parent1, item.Parent2,
			item.NumberOfSeats, item.Invitees, item.UpdatedAt.UTC(),
		)
		if err != nil {
			return trapUniqueErr(err, "updating student item")
		}
		if err = checkAffected(res, roster.ErrNotFound); err != nil {
			return err
		}

		var main inviteeRow
		err = tx.GetContext(ctx, &main, `
			UPDATE invitees i SET invitees_name = $2, updated_at = $3
			WHERE i.student_item_id = $1 AND i.main_invitee AND i.active
			RETURNING `+inviteeColumns, item.ID, item.StudentName, item.UpdatedAt.UTC())
		if err != nil {
			return trapNoRowsErr(err, roster.ErrNotFound, "renaming main invitee")
		}

		if names == nil {
			return nil
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE invitees SET active = false, updated_at = $2
			WHERE student_item_id = $1 AND NOT main_invitee AND active`, item.ID, item.UpdatedAt.UTC()); err != nil {
			return errors.Wrap(err, "deactivating invitees")
		}
		_, err = insertGuests(ctx, tx, main.unboil(), names, item.UpdatedAt)
		return err
	})
	if err != nil {
		return roster.Student{}, err
	}
	return repo.GetStudent(ctx, item.EventID, item.ID)
}

func (repo *rosterRepository) DeactivateStudent(ctx context.Context, itemID int) error {
	now := core.NowFunc()
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE student_items SET active = false, updated_at = $2 WHERE id = $1 AND active`, itemID, now)
		if err != nil {
			return errors.Wrap(err, "deactivating student item")
		}
		if err = checkAffected(res, roster.ErrNotFound); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `UPDATE invitees SET active = false, updated_at = $2 WHERE student_item_id = $1 AND active`, itemID, now); err != nil {
			return errors.Wrap(err, "deactivating invitees")
		}
		return nil
	})
}

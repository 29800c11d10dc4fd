package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Mohammed01doitesky/bed/core/invitee"
)

const (
	inviteeColumns = `i.id, i.event_id, i.student_item_id, i.invitees_name, i.invitees_qrcode_text, i.main_invitee,
		i.invitees_attendance, i.invitees_attendance_time, i.mail_send, i.mail_sent_at, i.active, i.created_at, i.updated_at`

	inviteeDetailQuery = `
		SELECT ` + inviteeColumns + `,
			si.student_id, si.student_name, si.student_email, si.number_of_seats, e.name AS event_name
		FROM invitees i
		JOIN student_items si ON si.id = i.student_item_id
		JOIN events e ON e.id = i.event_id`
)

type inviteeRow struct {
	ID             int       `db:"id"`
	EventID        int       `db:"event_id"`
	StudentItemID  int       `db:"student_item_id"`
	Name           string    `db:"invitees_name"`
	QRCodeText     string    `db:"invitees_qrcode_text"`
	MainInvitee    bool      `db:"main_invitee"`
	Attendance     bool      `db:"invitees_attendance"`
	AttendanceTime null.Time `db:"invitees_attendance_time"`
	MailSend       bool      `db:"mail_send"`
	MailSentAt     null.Time `db:"mail_sent_at"`
	Active         bool      `db:"active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r inviteeRow) unboil() invitee.Invitee {
	return invitee.Invitee{
		ID:             r.ID,
		EventID:        r.EventID,
		StudentItemID:  r.StudentItemID,
		Name:           r.Name,
		QRCodeText:     r.QRCodeText,
		MainInvitee:    r.MainInvitee,
		Attendance:     r.Attendance,
		AttendanceTime: r.AttendanceTime.Ptr(),
		MailSend:       r.MailSend,
		MailSentAt:     r.MailSentAt.Ptr(),
		Active:         r.Active,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type inviteeDetailRow struct {
	inviteeRow
	StudentID     string `db:"student_id"`
	StudentName   string `db:"student_name"`
	StudentEmail  string `db:"student_email"`
	NumberOfSeats int    `db:"number_of_seats"`
	EventName     string `db:"event_name"`
}

func (r inviteeDetailRow) unboil() invitee.Detail {
	return invitee.Detail{
		Invitee:       r.inviteeRow.unboil(),
		StudentID:     r.StudentID,
		StudentName:   r.StudentName,
		StudentEmail:  r.StudentEmail,
		NumberOfSeats: r.NumberOfSeats,
		EventName:     r.EventName,
	}
}

func unboilDetails(rows []inviteeDetailRow) []invitee.Detail {
	details := make([]invitee.Detail, 0, len(rows))
	for _, r := range rows {
		details = append(details, r.unboil())
	}
	return details
}

type inviteeRepository struct {
	db *sqlx.DB
}

var _ invitee.Repository = (*inviteeRepository)(nil) // interface compliance check

func NewInviteeRepository(db *sqlx.DB) invitee.Repository {
	return &inviteeRepository{db: db}
}

func (repo *inviteeRepository) FindByQRCodeAndName(ctx context.Context, qrText, name string) (invitee.Invitee, error) {
	q := `SELECT ` + inviteeColumns + `
		FROM invitees i
		WHERE i.invitees_qrcode_text = $1 AND i.invitees_name = $2 AND i.active
		ORDER BY i.main_invitee, i.invitees_attendance_time IS NOT NULL, i.id
		LIMIT 1`
	var r inviteeRow
	if err := repo.db.GetContext(ctx, &r, q, qrText, name); err != nil {
		return invitee.Invitee{}, trapNoRowsErr(err, invitee.ErrNotFound, "finding invitee")
	}
	return r.unboil(), nil
}

func (repo *inviteeRepository) MarkAttended(ctx context.Context, id int, at time.Time) (bool, error) {
	const q = `
		UPDATE invitees
		SET invitees_attendance = true, invitees_attendance_time = $2, updated_at = $2
		WHERE id = $1 AND invitees_attendance_time IS NULL`
	res, err := repo.db.ExecContext(ctx, q, id, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "marking attendance")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "reading affected rows")
	}
	return n > 0, nil
}

func (repo *inviteeRepository) SetAttendance(ctx context.Context, id int, attended bool, at *time.Time) (invitee.Invitee, error) {
	q := `UPDATE invitees i
		SET invitees_attendance = $2, invitees_attendance_time = $3, updated_at = NOW()
		WHERE i.id = $1 AND i.active
		RETURNING ` + inviteeColumns
	var r inviteeRow
	if err := repo.db.GetContext(ctx, &r, q, id, attended, nullTime(at)); err != nil {
		return invitee.Invitee{}, trapNoRowsErr(err, invitee.ErrNotFound, "setting attendance")
	}
	return r.unboil(), nil
}

func (repo *inviteeRepository) GetInvitee(ctx context.Context, id int) (invitee.Detail, error) {
	var r inviteeDetailRow
	if err := repo.db.GetContext(ctx, &r, inviteeDetailQuery+` WHERE i.id = $1 AND i.active`, id); err != nil {
		return invitee.Detail{}, trapNoRowsErr(err, invitee.ErrNotFound, "finding invitee")
	}
	return r.unboil(), nil
}

func (repo *inviteeRepository) QueryByQRCode(ctx context.Context, qrText string) ([]invitee.Detail, error) {
	var rows []inviteeDetailRow
	q := inviteeDetailQuery + ` WHERE i.invitees_qrcode_text = $1 AND i.active AND NOT i.main_invitee ORDER BY i.id`
	if err := repo.db.SelectContext(ctx, &rows, q, qrText); err != nil {
		return nil, errors.Wrap(err, "querying invitees by qrcode")
	}
	return unboilDetails(rows), nil
}

func (repo *inviteeRepository) QueryInvitees(ctx context.Context, filter invitee.QueryFilter) ([]invitee.Detail, error) {
	where := []string{"i.active", "si.active", "e.active"}
	var args []interface{}
	if filter.Student != "" {
		where = append(where, "(si.student_name ILIKE ? OR si.student_id ILIKE ?)")
		val := "%" + filter.Student + "%"
		args = append(args, val, val)
	}
	if filter.EventID != nil {
		where = append(where, "i.event_id = ?")
		args = append(args, *filter.EventID)
	}
	if filter.EmailSent != nil {
		where = append(where, "i.mail_send = ?")
		args = append(args, *filter.EmailSent)
	}
	q := inviteeDetailQuery + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY e.id DESC, si.student_name, i.main_invitee DESC, i.id`

	var rows []inviteeDetailRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying invitees")
	}
	return unboilDetails(rows), nil
}

package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Mohammed01doitesky/bed/core/dispatch"
)

type ticketRow struct {
	StudentItemID int    `db:"student_item_id"`
	InviteeName   string `db:"invitees_name"`
	QRCodeText    string `db:"invitees_qrcode_text"`
	StudentID     string `db:"student_id"`
	StudentName   string `db:"student_name"`
	StudentEmail  string `db:"student_email"`
	Parent1       string `db:"parent_1"`
	Parent2       string `db:"parent_2"`
	NumberOfSeats int    `db:"number_of_seats"`
}

type guestRow struct {
	StudentItemID int    `db:"student_item_id"`
	Name          string `db:"invitees_name"`
}

type dispatchRepository struct {
	db *sqlx.DB
}

var _ dispatch.Repository = (*dispatchRepository)(nil) // interface compliance check

func NewDispatchRepository(db *sqlx.DB) dispatch.Repository {
	return &dispatchRepository{db: db}
}

func (repo *dispatchRepository) PendingTickets(ctx context.Context, eventID int) ([]dispatch.Ticket, error) {
	const q = `
		SELECT i.student_item_id, i.invitees_name, i.invitees_qrcode_text, si.student_id, si.student_name,
			si.student_email, si.parent_1, si.parent_2, si.number_of_seats
		FROM invitees i
		JOIN student_items si ON si.id = i.student_item_id AND si.active
		WHERE i.event_id = $1 AND i.main_invitee AND i.active AND NOT i.mail_send AND i.invitees_qrcode_text <> ''
		ORDER BY si.student_name, si.id`
	var rows []ticketRow
	if err := repo.db.SelectContext(ctx, &rows, q, eventID); err != nil {
		return nil, errors.Wrap(err, "querying pending tickets")
	}

	const gq = `
		SELECT student_item_id, invitees_name
		FROM invitees
		WHERE event_id = $1 AND active AND NOT main_invitee
		ORDER BY id`
	var guests []guestRow
	if err := repo.db.SelectContext(ctx, &guests, gq, eventID); err != nil {
		return nil, errors.Wrap(err, "querying guests")
	}
	byItem := make(map[int][]string)
	for _, g := range guests {
		byItem[g.StudentItemID] = append(byItem[g.StudentItemID], g.Name)
	}

	tickets := make([]dispatch.Ticket, 0, len(rows))
	for _, r := range rows {
		tickets = append(tickets, dispatch.Ticket{
			StudentItemID: r.StudentItemID,
			InviteeName:   r.InviteeName,
			QRCodeText:    r.QRCodeText,
			StudentID:     r.StudentID,
			StudentName:   r.StudentName,
			StudentEmail:  r.StudentEmail,
			Parent1:       r.Parent1,
			Parent2:       r.Parent2,
			NumberOfSeats: r.NumberOfSeats,
			Guests:        byItem[r.StudentItemID],
		})
	}
	return tickets, nil
}

func (repo *dispatchRepository) MarkSent(ctx context.Context, studentItemID int, at time.Time) (bool, error) {
	const q = `
		UPDATE invitees SET mail_send = true, mail_sent_at = $2, updated_at = $2
		WHERE student_item_id = $1 AND active AND NOT mail_send`
	res, err := repo.db.ExecContext(ctx, q, studentItemID, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "marking tickets sent")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "reading affected rows")
	}
	return n > 0, nil
}

func (repo *dispatchRepository) Statistics(ctx context.Context, eventID *int) (dispatch.Statistics, error) {
	q := `
		SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE i.mail_send) AS sent,
			COUNT(*) FILTER (WHERE NOT i.mail_send) AS pending,
			MAX(i.mail_sent_at) AS last_sent
		FROM invitees i
		JOIN student_items si ON si.id = i.student_item_id
		WHERE i.main_invitee AND i.active`
	var args []interface{}
	if eventID != nil {
		q += ` AND i.event_id = $1`
		args = append(args, *eventID)
	}

	var r struct {
		Total    int       `db:"total"`
		Sent     int       `db:"sent"`
		Pending  int       `db:"pending"`
		LastSent null.Time `db:"last_sent"`
	}
	if err := repo.db.GetContext(ctx, &r, q, args...); err != nil {
		return dispatch.Statistics{}, errors.Wrap(err, "computing email statistics")
	}
	return dispatch.Statistics{
		TotalInvitees: r.Total,
		EmailsSent:    r.Sent,
		EmailsPending: r.Pending,
		LastSent:      r.LastSent.Ptr(),
	}, nil
}

func (repo *dispatchRepository) SentRows(ctx context.Context, eventID int) ([]dispatch.SentRow, error) {
	const q = `
		SELECT i.invitees_name, si.student_name, si.student_email, i.mail_sent_at
		FROM invitees i
		JOIN student_items si ON si.id = i.student_item_id
		WHERE i.event_id = $1 AND i.main_invitee AND i.active AND i.mail_send
		ORDER BY i.mail_sent_at DESC`
	var rows []struct {
		InviteeName  string    `db:"invitees_name"`
		StudentName  string    `db:"student_name"`
		StudentEmail string    `db:"student_email"`
		MailSentAt   null.Time `db:"mail_sent_at"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, eventID); err != nil {
		return nil, errors.Wrap(err, "querying sent tickets")
	}
	sent := make([]dispatch.SentRow, 0, len(rows))
	for _, r := range rows {
		sent = append(sent, dispatch.SentRow{
			InviteeName:  r.InviteeName,
			StudentName:  r.StudentName,
			StudentEmail: r.StudentEmail,
			MailSentAt:   r.MailSentAt.Ptr(),
		})
	}
	return sent, nil
}

func (repo *dispatchRepository) PendingRows(ctx context.Context, eventID int) ([]dispatch.PendingRow, error) {
	const q = `
		SELECT i.invitees_name, si.student_name, si.student_email, i.invitees_qrcode_text
		FROM invitees i
		JOIN student_items si ON si.id = i.student_item_id
		WHERE i.event_id = $1 AND i.main_invitee AND i.active AND NOT i.mail_send
		ORDER BY si.student_name`
	var rows []struct {
		InviteeName  string `db:"invitees_name"`
		StudentName  string `db:"student_name"`
		StudentEmail string `db:"student_email"`
		QRCodeText   string `db:"invitees_qrcode_text"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, eventID); err != nil {
		return nil, errors.Wrap(err, "querying pending tickets")
	}
	pending := make([]dispatch.PendingRow, 0, len(rows))
	for _, r := range rows {
		pending = append(pending, dispatch.PendingRow{
			InviteeName:  r.InviteeName,
			StudentName:  r.StudentName,
			StudentEmail: r.StudentEmail,
			QRCodeText:   r.QRCodeText,
		})
	}
	return pending, nil
}

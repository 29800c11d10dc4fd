package dispatch

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
	"github.com/Mohammed01doitesky/bed/core/event"
)

const (
	ticketTemplate = "ticket"
	qrContentID    = "qrcode"
	qrFilename     = "qrcode.png"
)

var errMissingEmail = errors.New("student has no email address")

type (
	Repository interface {
		// PendingTickets returns the active main invitees of the event that have a QR text
		// and whose email was not sent yet.
		PendingTickets(ctx context.Context, eventID int) ([]Ticket, error)
		// MarkSent flips mail_send on every active invitee of the student item in one statement,
		// only for rows still unsent. It reports whether any row changed.
		MarkSent(ctx context.Context, studentItemID int, at time.Time) (bool, error)
		Statistics(ctx context.Context, eventID *int) (Statistics, error)
		SentRows(ctx context.Context, eventID int) ([]SentRow, error)
		// PendingRows returns every unsent main invitee, with or without QR text, ordered by student name.
		PendingRows(ctx context.Context, eventID int) ([]PendingRow, error)
	}

	EventGetter interface {
		GetEvent(ctx context.Context, id int) (event.Event, error)
	}

	Service struct {
		repo   Repository
		events EventGetter
		mailer core.EmailService
		qr     core.QRRenderer
		qrSize int
		logger core.Logger
	}
)

func NewService(
	repo Repository,
	events EventGetter,
	mailer core.EmailService,
	qr core.QRRenderer,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:   repo,
		events: events,
		mailer: mailer,
		qr:     qr,
		qrSize: conf.Ticket.QRSize,
		logger: logger,
	}
}

// SendTicketEmails emails every student of the event whose ticket was not sent yet.
// A failed delivery is counted and logged; it never stops the batch.
func (svc *Service) SendTicketEmails(ctx context.Context, eventID int) (Result, error) {
	evt, err := svc.events.GetEvent(ctx, eventID)
	if err != nil {
		return Result{}, err
	}

	tickets, err := svc.repo.PendingTickets(ctx, eventID)
	if err != nil {
		return Result{}, errors.Wrap(err, "querying pending tickets")
	}

	var res Result
	for _, t := range tickets {
		if err := svc.sendTicket(ctx, evt, t); err != nil {
			res.Failed++
			svc.logger.Warn(fmt.Sprintf("sending ticket of student %s: %v", t.StudentID, err), err,
				map[string]interface{}{"event_id": eventID, "student_item_id": t.StudentItemID})
			continue
		}

		if _, err := svc.repo.MarkSent(ctx, t.StudentItemID, core.NowFunc()); err != nil {
			return res, errors.Wrap(err, "marking ticket sent")
		}
		res.Sent++
	}

	svc.logger.Info(res.Message(), map[string]interface{}{"event_id": eventID})
	return res, nil
}

func (svc *Service) sendTicket(ctx context.Context, evt event.Event, t Ticket) error {
	if t.StudentEmail == "" {
		return errMissingEmail
	}
	msg, err := svc.ticketMessage(evt, t)
	if err != nil {
		return err
	}
	return svc.mailer.Send(ctx, msg)
}

func (svc *Service) ticketMessage(evt event.Event, t Ticket) (*core.EmailMessage, error) {
	png, err := svc.qr.Render(t.QRCodeText, svc.qrSize)
	if err != nil {
		return nil, errors.Wrap(err, "rendering qrcode")
	}

	guests := t.Guests
	if guests == nil {
		guests = []string{}
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: t.StudentName, Address: t.StudentEmail}},
		Subject:      evt.Subject(),
		TemplateName: ticketTemplate,
		TemplateData: TicketData{
			EventName:   evt.Name,
			Location:    evt.Location,
			StudentID:   t.StudentID,
			StudentName: t.StudentName,
			Seats:       t.NumberOfSeats,
			Invitees:    guests,
			QRCodeText:  t.QRCodeText,
		},
	}
	// an address may appear only once across to and cc
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(t.StudentEmail)): true}
	for _, addr := range []string{t.Parent1, t.Parent2} {
		key := strings.ToLower(strings.TrimSpace(addr))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		msg.Cc = append(msg.Cc, mail.Address{Address: addr})
	}
	msg.Embed(png, qrFilename, qrContentID)

	if err = msg.Render(); err != nil {
		return nil, errors.Wrap(err, "rendering ticket email")
	}
	return msg, nil
}

func (r Result) Message() string {
	return fmt.Sprintf("Successfully sent %d emails. %d failed.", r.Sent, r.Failed)
}

// Statistics covers main invitees only, over every event when eventID is nil.
func (svc *Service) Statistics(ctx context.Context, eventID *int) (Statistics, error) {
	stats, err := svc.repo.Statistics(ctx, eventID)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "computing email statistics")
	}
	return stats, nil
}

func (svc *Service) Report(ctx context.Context, eventID int) (Report, error) {
	evt, err := svc.events.GetEvent(ctx, eventID)
	if err != nil {
		return Report{}, err
	}

	sent, err := svc.repo.SentRows(ctx, eventID)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying sent tickets")
	}
	pending, err := svc.repo.PendingRows(ctx, eventID)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying pending tickets")
	}
	for i := range pending {
		pending[i].Status = PendingStatus(pending[i].QRCodeText, pending[i].StudentEmail)
	}
	stats, err := svc.Statistics(ctx, &eventID)
	if err != nil {
		return Report{}, err
	}

	if sent == nil {
		sent = []SentRow{}
	}
	if pending == nil {
		pending = []PendingRow{}
	}
	return Report{
		EventName:       evt.Name,
		Sent:            sent,
		Pending:         pending,
		EmailStatistics: stats,
	}, nil
}

package invitee

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
)

var ErrNotFound = errors.New("Invitee not found")

type (
	Repository interface {
		// FindByQRCodeAndName returns the active invitee matching both values exactly. When several
		// rows match, additional invitees come before the main one and unscanned rows before scanned ones.
		FindByQRCodeAndName(ctx context.Context, qrText, name string) (Invitee, error)
		// MarkAttended sets the attendance and its time only if no time is recorded yet.
		// It reports whether the row was written.
		MarkAttended(ctx context.Context, id int, at time.Time) (bool, error)
		// SetAttendance writes the attendance unconditionally. at is nil when unmarking.
		SetAttendance(ctx context.Context, id int, attended bool, at *time.Time) (Invitee, error)
		GetInvitee(ctx context.Context, id int) (Detail, error)
		// QueryByQRCode returns the active non-main invitees sharing qrText.
		QueryByQRCode(ctx context.Context, qrText string) ([]Detail, error)
		QueryInvitees(ctx context.Context, filter QueryFilter) ([]Detail, error)
	}

	Service struct {
		repo   Repository
		tokens *TokenSigner
		qr     core.QRRenderer
		qrSize int
		logger core.Logger
	}
)

func NewService(repo Repository, tokens *TokenSigner, qr core.QRRenderer, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		qr:     qr,
		qrSize: conf.Ticket.QRSize,
		logger: logger,
	}
}

// ApplyAttendance applies a batch of scans. Only the first positive scan of an invitee is recorded;
// replays, negative scans and unknown (qr, name) pairs leave the store untouched.
func (svc *Service) ApplyAttendance(ctx context.Context, updates []AttendanceUpdate) (ReconcileResult, error) {
	var res ReconcileResult
	for _, upd := range updates {
		if svc.tokens.Verify(upd.QRCodeText) != nil {
			res.NotFound++
			continue
		}
		inv, err := svc.repo.FindByQRCodeAndName(ctx, upd.QRCodeText, upd.Name)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				res.NotFound++
				continue
			}
			return res, errors.Wrap(err, "finding invitee by qrcode and name")
		}

		if !upd.Attendance || inv.AttendanceTime != nil {
			res.Unchanged++
			continue
		}

		written, err := svc.repo.MarkAttended(ctx, inv.ID, core.NowFunc())
		if err != nil {
			return res, errors.Wrap(err, "marking invitee attendance")
		}
		if written {
			res.Updated++
		} else {
			res.Unchanged++
			svc.logger.Debug("attendance recorded concurrently", map[string]interface{}{"invitee_id": inv.ID})
		}
	}
	return res, nil
}

// SetAttendance is the staff correction path; it is not bound by the recorded time.
func (svc *Service) SetAttendance(ctx context.Context, id int, attended bool) (Invitee, error) {
	var at *time.Time
	if attended {
		now := core.NowFunc()
		at = &now
	}
	return svc.repo.SetAttendance(ctx, id, attended, at)
}

// LookupByQRCode returns the additional invitees of the group identified by qrText.
// The main invitee is never part of the result.
func (svc *Service) LookupByQRCode(ctx context.Context, qrText string) ([]ScanRow, error) {
	if err := svc.tokens.Verify(qrText); err != nil {
		svc.logger.Debug("rejected qr code", map[string]interface{}{"qrcode": qrText})
		return []ScanRow{}, nil
	}
	details, err := svc.repo.QueryByQRCode(ctx, qrText)
	if err != nil {
		return nil, errors.Wrap(err, "querying invitees by qrcode")
	}
	rows := make([]ScanRow, 0, len(details))
	for _, d := range details {
		if d.MainInvitee {
			continue
		}
		rows = append(rows, NewScanRow(d))
	}
	return rows, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Detail, Summary, error) {
	filter.Student = core.CleanString(filter.Student)
	rows, err := svc.repo.QueryInvitees(ctx, filter)
	if err != nil {
		return nil, Summary{}, errors.Wrap(err, "querying invitees")
	}
	if rows == nil {
		rows = []Detail{}
	}
	return rows, Summarize(rows), nil
}

func (svc *Service) Get(ctx context.Context, id int) (Detail, error) {
	return svc.repo.GetInvitee(ctx, id)
}

// QRCode renders the ticket QR code of an invitee as a PNG data URL.
func (svc *Service) QRCode(ctx context.Context, id int) (QRCode, error) {
	d, err := svc.repo.GetInvitee(ctx, id)
	if err != nil {
		return QRCode{}, err
	}
	png, err := svc.qr.Render(d.QRCodeText, svc.qrSize)
	if err != nil {
		return QRCode{}, errors.Wrap(err, "rendering qrcode")
	}
	return QRCode{
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		QRCodeText:  d.QRCodeText,
		InviteeName: d.Name,
		EventName:   d.EventName,
		StudentName: d.StudentName,
	}, nil
}

package invitee

import (
	"time"
)

// ScanTimeLayout is the attendance time format returned to scanners.
const ScanTimeLayout = "2006-01-02 15:04:05"

type Invitee struct {
	ID             int        `json:"id"`
	EventID        int        `json:"event_id"`
	StudentItemID  int        `json:"student_item_id"`
	Name           string     `json:"invitees_name"`
	QRCodeText     string     `json:"invitees_qrcode_text"`
	MainInvitee    bool       `json:"main_invitee"`
	Attendance     bool       `json:"invitees_attendance"`
	AttendanceTime *time.Time `json:"invitees_attendance_time"`
	MailSend       bool       `json:"mail_send"`
	MailSentAt     *time.Time `json:"mail_sent_at"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Detail is an Invitee joined with its student item and event.
type Detail struct {
	Invitee
	StudentID     string `json:"student_id"`
	StudentName   string `json:"student_name"`
	StudentEmail  string `json:"student_email"`
	NumberOfSeats int    `json:"number_of_seats"`
	EventName     string `json:"event_name"`
}

// ScanRow is what a scanner gets back for a QR code.
type ScanRow struct {
	MainInvitee    bool   `json:"main_invitee"`
	NumberOfSeats  int    `json:"number_of_seats"`
	QRCodeText     string `json:"invitees_qrcode_text"`
	Name           string `json:"invitees_name"`
	Attendance     bool   `json:"invitees_attendance"`
	AttendanceTime string `json:"invitees_attendance_time"`
}

func NewScanRow(d Detail) ScanRow {
	row := ScanRow{
		MainInvitee:   d.MainInvitee,
		NumberOfSeats: d.NumberOfSeats,
		QRCodeText:    d.QRCodeText,
		Name:          d.Name,
		Attendance:    d.Attendance,
	}
	if d.AttendanceTime != nil {
		row.AttendanceTime = d.AttendanceTime.Format(ScanTimeLayout)
	}
	return row
}

// AttendanceUpdate is one scan reported by a scanner.
type AttendanceUpdate struct {
	QRCodeText string `json:"invitees_qrcode_text"`
	Name       string `json:"invitees_name"`
	Attendance bool   `json:"invitees_attendance"`
}

// ReconcileResult counts the outcome of an attendance batch.
type ReconcileResult struct {
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	NotFound  int `json:"not_found"`
}

type QueryFilter struct {
	Student   string `query:"student"`
	EventID   *int   `query:"eventId"`
	EmailSent *bool  `query:"emailSent"`
}

type Summary struct {
	Total        int `json:"total_invitees"`
	Sent         int `json:"emails_sent"`
	Pending      int `json:"emails_pending"`
	MainInvitees int `json:"main_invitees"`
}

func Summarize(rows []Detail) Summary {
	var s Summary
	s.Total = len(rows)
	for _, r := range rows {
		if r.MailSend {
			s.Sent++
		} else {
			s.Pending++
		}
		if r.MainInvitee {
			s.MainInvitees++
		}
	}
	return s
}

// QRCode is the rendered ticket of an invitee.
type QRCode struct {
	QRCode      string `json:"qrcode"` // data URL
	QRCodeText  string `json:"qrcode_text"`
	InviteeName string `json:"invitee_name"`
	EventName   string `json:"event_name"`
	StudentName string `json:"student_name"`
}

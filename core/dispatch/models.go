package dispatch

import (
	"time"
)

const (
	StatusMissingQRCode = "Missing QR Code"
	StatusMissingEmail  = "Missing Email"
	StatusReadyToSend   = "Ready to Send"
)

// Ticket is the main invitee of a student item that still waits for its email.
type Ticket struct {
	StudentItemID int
	InviteeName   string
	QRCodeText    string
	StudentID     string
	StudentName   string
	StudentEmail  string
	Parent1       string
	Parent2       string
	NumberOfSeats int
	// Guests holds the names of the additional invitees of the group.
	Guests []string
}

// TicketData is what the ticket email templates are executed with.
type TicketData struct {
	EventName   string
	Location    string
	StudentID   string
	StudentName string
	Seats       int
	Invitees    []string
	QRCodeText  string
}

type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type Statistics struct {
	TotalInvitees int        `json:"total_invitees"`
	EmailsSent    int        `json:"emails_sent"`
	EmailsPending int        `json:"emails_pending"`
	LastSent      *time.Time `json:"last_sent"`
}

type SentRow struct {
	InviteeName  string     `json:"invitees_name"`
	StudentName  string     `json:"student_name"`
	StudentEmail string     `json:"student_email"`
	MailSentAt   *time.Time `json:"mail_sent_at"`
}

type PendingRow struct {
	InviteeName  string `json:"invitees_name"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	QRCodeText   string `json:"-"`
	Status       string `json:"status"`
}

type Report struct {
	EventName       string       `json:"event_name"`
	Sent            []SentRow    `json:"students_with_emails_sent"`
	Pending         []PendingRow `json:"students_pending_emails"`
	EmailStatistics Statistics   `json:"email_statistics"`
}

// PendingStatus tells why a pending ticket was not sent yet.
func PendingStatus(qrText, email string) string {
	switch {
	case qrText == "":
		return StatusMissingQRCode
	case email == "":
		return StatusMissingEmail
	default:
		return StatusReadyToSend
	}
}

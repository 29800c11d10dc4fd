package report

import (
	"time"

	"github.com/Mohammed01doitesky/bed/core/dispatch"
)

const (
	ExportSummary    = "summary"
	ExportEvents     = "events"
	ExportAttendance = "attendance"
	ExportMonthly    = "monthly"

	monthLayout  = "January 2006"
	minuteLayout = "2006-01-02 15:04"
	dayLayout    = "2006-01-02"

	recentEventsLimit = 5
	monthlyWindow     = 12
)

type (
	// Totals counts active invitees of active events, main invitees included.
	Totals struct {
		Events   int
		Invitees int
		Attended int
	}

	RecentEvent struct {
		ID        int       `json:"id"`
		Name      string    `json:"name"`
		Location  string    `json:"location"`
		CreatedAt time.Time `json:"created_at"`
	}

	Dashboard struct {
		TotalEvents    int           `json:"totalEvents"`
		TotalInvitees  int           `json:"totalInvitees"`
		AttendanceRate int           `json:"attendanceRate"`
		RecentEvents   []RecentEvent `json:"recentEvents"`
	}

	// MonthCount aggregates the active events created during Month.
	MonthCount struct {
		Month    time.Time
		Events   int
		Students int
		Invitees int
		Attended int
	}

	MonthStat struct {
		Month      string `json:"month"`
		Events     int    `json:"events"`
		Attendance int    `json:"attendance"`
	}

	Reports struct {
		TotalEvents       int                 `json:"totalEvents"`
		TotalInvitees     int                 `json:"totalInvitees"`
		AverageAttendance int                 `json:"averageAttendance"`
		MonthlyStats      []MonthStat         `json:"monthlyStats"`
		EmailStatistics   dispatch.Statistics `json:"emailStatistics"`
	}

	EventCount struct {
		ID           int
		Name         string
		Location     string
		EmailSubject string
		Students     int
		Invitees     int
		Attended     int
		CreatedAt    time.Time
	}

	AttendanceLine struct {
		EventName      string
		EventCreatedAt time.Time
		StudentName    string
		StudentID      string
		InviteeName    string
		Attended       bool
		AttendanceTime *time.Time
		MailSend       bool
	}

	// File is a generated workbook ready to be downloaded.
	File struct {
		Filename string
		Content  []byte
	}
)

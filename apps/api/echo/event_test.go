package echoapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammed01doitesky/bed/core/event"
	"github.com/Mohammed01doitesky/bed/core/invitee"
	"github.com/Mohammed01doitesky/bed/core/roster"
	"github.com/Mohammed01doitesky/bed/core/user"
	sheetsvc "github.com/Mohammed01doitesky/bed/services/sheet"
)

type eventWithStatsResponse struct {
	Event   event.WithStats `json:"event"`
	Success bool            `json:"success"`
}

func newUploadRequest(t *testing.T, path, token, field, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "no file"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return req, httptest.NewRecorder()
}

func eventPath(id int, suffix ...string) string {
	p := "/api/admin/events/" + strconv.Itoa(id)
	for _, s := range suffix {
		p += s
	}
	return p
}

func Test_eventApi_create(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "manager", "Str0ngPass!", user.RoleManager, true), env.Conf)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "missing name",
			method:   http.MethodPost,
			path:     "/api/admin/events",
			body:     marchallObj(t, event.NewEvent{Location: "Hall"}),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name":"this field is required"}`),
		},
		{
			name:     "blank name",
			method:   http.MethodPost,
			path:     "/api/admin/events",
			body:     marchallObj(t, event.NewEvent{Name: "   "}),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name":"this field is required"}`),
		},
	})

	t.Run("default subject", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/events", token,
			marchallObj(t, event.NewEvent{Name: " Graduation 2024 ", Location: "Main Hall"}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp eventWithStatsResponse
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.True(t, resp.Success)
		assert.NotZero(t, resp.Event.ID)
		assert.Equal(t, "Graduation 2024", resp.Event.Name)
		assert.Equal(t, "Main Hall", resp.Event.Location)
		assert.Equal(t, env.Conf.Ticket.DefaultEmailSubject, resp.Event.EmailSubject)
		assert.True(t, resp.Event.Active)
	})
}

func Test_eventApi_query(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true), env.Conf)
	b := env.CreateEvent(t, "Bravo")
	a := env.CreateEvent(t, "Alpha")
	c := env.CreateEvent(t, "Charlie")
	env.CreateStudent(t, a.ID, "s1", "Sara", "Ann, Bob")

	req, rec := newAuthRequest(http.MethodGet, "/api/admin/events?ordering=name", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EventsResponse
	unmarchallObj(t, rec.Body.Bytes(), &resp)
	require.Len(t, resp.Events, 3)
	assert.Equal(t, []int{a.ID, b.ID, c.ID}, []int{resp.Events[0].ID, resp.Events[1].ID, resp.Events[2].ID})
	assert.Equal(t, 1, resp.Events[0].StudentCount)
	assert.Equal(t, 2, resp.Events[0].InviteeCount)
	assert.Equal(t, 0, resp.Events[1].StudentCount)

	req, rec = newAuthRequest(http.MethodGet, "/api/admin/events?ordering=-name", token)
	app.ServeHTTP(rec, req)
	resp = EventsResponse{}
	unmarchallObj(t, rec.Body.Bytes(), &resp)
	require.Len(t, resp.Events, 3)
	assert.Equal(t, c.ID, resp.Events[0].ID)
}

func Test_eventApi_retrieveUpdateDestroy(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true), env.Conf)
	evt := env.CreateEvent(t, "Graduation")
	std := env.CreateStudent(t, evt.ID, "s1", "Sara", "Ann, Bob")
	_, err := env.InviteeSvc.SetAttendance(context.Background(), std.InviteeList[1].ID, true)
	require.NoError(t, err)

	notFound := marchallObj(t, httpErr{Error: event.ErrNotFound.Error()})
	runHTTPTests(t, app, []httpTest{
		{
			name:     "invalid id",
			method:   http.MethodGet,
			path:     "/api/admin/events/abc",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid id"}),
		},
		{
			name:     "unknown event",
			method:   http.MethodGet,
			path:     eventPath(999),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
		{
			name:     "update unknown event",
			method:   http.MethodPut,
			path:     eventPath(999),
			body:     []byte(`{"name":"Other"}`),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
		{
			name:     "update with blank name",
			method:   http.MethodPut,
			path:     eventPath(evt.ID),
			body:     []byte(`{"name":"  "}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name":"this field is required"}`),
		},
	})

	t.Run("retrieve with stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, eventPath(evt.ID), token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp eventWithStatsResponse
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, evt.ID, resp.Event.ID)
		assert.Equal(t, event.Stats{StudentCount: 1, InviteeCount: 2, AttendedCount: 1, AttendanceRate: 50}, resp.Event.Stats)
	})

	t.Run("partial update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, eventPath(evt.ID), token, []byte(`{"location":"Garden"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp eventWithStatsResponse
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, "Graduation", resp.Event.Name)
		assert.Equal(t, "Garden", resp.Event.Location)
	})

	t.Run("soft delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, eventPath(evt.ID), token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MessageResponse{Message: "Event deleted successfully", Success: true}),
		}, rec)

		req, rec = newAuthRequest(http.MethodGet, eventPath(evt.ID), token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rows, _, err := env.InviteeSvc.Query(context.Background(), invitee.QueryFilter{EventID: &evt.ID})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func Test_eventApi_students(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true), env.Conf)
	evt := env.CreateEvent(t, "Graduation")
	existing := env.CreateStudent(t, evt.ID, "s1", "Sara", "Ann")

	newRow := roster.StudentRow{
		StudentID:     "s2",
		StudentName:   "Omar",
		StudentEmail:  "omar@students.test",
		Parent1:       "omar.parent@family.test",
		NumberOfSeats: 3,
		Invitees:      "Mona, , Karim",
	}
	badEmail := newRow
	badEmail.StudentID = "s3"
	badEmail.StudentEmail = "not-an-email"

	runHTTPTests(t, app, []httpTest{
		{
			name:     "duplicate student id",
			method:   http.MethodPost,
			path:     eventPath(evt.ID, "/students"),
			body:     marchallObj(t, roster.StudentRow{StudentID: "s1", StudentName: "Other", StudentEmail: "o@students.test", Parent1: "p@family.test"}),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: roster.ErrStudentExists.Error()}),
		},
		{
			name:     "invalid email",
			method:   http.MethodPost,
			path:     eventPath(evt.ID, "/students"),
			body:     marchallObj(t, badEmail),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"student_email":"invalid email format"}`),
		},
		{
			name:     "unknown event",
			method:   http.MethodPost,
			path:     eventPath(999, "/students"),
			body:     marchallObj(t, newRow),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: event.ErrNotFound.Error()}),
		},
		{
			name:     "unknown student",
			method:   http.MethodPut,
			path:     eventPath(evt.ID, "/students/999"),
			body:     []byte(`{"student_name":"X"}`),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: roster.ErrNotFound.Error()}),
		},
	})

	var created roster.Student
	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, eventPath(evt.ID, "/students"), token, marchallObj(t, newRow))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp StudentResponse
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		created = resp.Student
		require.Len(t, created.InviteeList, 3)
		main := created.InviteeList[0]
		assert.True(t, main.MainInvitee)
		assert.Equal(t, "Omar", main.Name)
		assert.Equal(t, env.Tokens.Make(evt.ID, created.ID, "Omar"), main.QRCodeText)
		for _, inv := range created.InviteeList[1:] {
			assert.False(t, inv.MainInvitee)
			assert.Equal(t, main.QRCodeText, inv.QRCodeText)
		}
		assert.Equal(t, []string{"Mona", "Karim"}, []string{created.InviteeList[1].Name, created.InviteeList[2].Name})
	})

	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, eventPath(evt.ID, "/students"), token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp StudentsResponse
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		require.Len(t, resp.Students, 2)
		assert.Equal(t, "Omar", resp.Students[0].StudentName)
		assert.Equal(t, existing.ID, resp.Students[1].ID)
	})

	t.Run("update keeps the token", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, eventPath(evt.ID, "/students/"+strconv.Itoa(created.ID)), token,
			[]byte(`{"student_name":"Omar Ali","invitees":"Laila"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp StudentResponse
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, "s2", resp.Student.StudentID)
		assert.Equal(t, "Omar Ali", resp.Student.StudentName)
		require.Len(t, resp.Student.InviteeList, 2)
		assert.Equal(t, "Omar Ali", resp.Student.InviteeList[0].Name)
		assert.Equal(t, "Laila", resp.Student.InviteeList[1].Name)
		assert.Equal(t, created.InviteeList[0].QRCodeText, resp.Student.InviteeList[1].QRCodeText)
	})

	t.Run("update to a taken student id", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, eventPath(evt.ID, "/students/"+strconv.Itoa(created.ID)), token,
			[]byte(`{"student_id":"s1"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: roster.ErrStudentExists.Error()}),
		}, rec)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, eventPath(evt.ID, "/students/"+strconv.Itoa(existing.ID)), token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MessageResponse{Message: "Student deleted successfully", Success: true}),
		}, rec)

		req, rec = newAuthRequest(http.MethodDelete, eventPath(evt.ID, "/students/"+strconv.Itoa(existing.ID)), token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_eventApi_uploadRows(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true), env.Conf)
	evt := env.CreateEvent(t, "Graduation")
	env.CreateStudent(t, evt.ID, "s1", "Sara", "")

	valid := roster.StudentRow{StudentID: "s2", StudentName: "Omar", StudentEmail: "omar@students.test", Parent1: "p@family.test"}
	rows := []roster.StudentRow{
		valid,
		{StudentID: "s3", StudentName: "", StudentEmail: "x@students.test", Parent1: "p@family.test"},
		{StudentID: "s1", StudentName: "Dup", StudentEmail: "d@students.test", Parent1: "p@family.test"},
		{StudentID: "s4", StudentName: "Nour", StudentEmail: "nour", Parent1: "p@family.test"},
		{StudentID: "s5", StudentName: "Hana", StudentEmail: "h@students.test", Parent1: "p@family.test", Parent2: "bad"},
		valid,
	}

	runHTTPTests(t, app, []httpTest{
		{
			name:     "partial import",
			method:   http.MethodPost,
			path:     eventPath(evt.ID, "/upload"),
			body:     marchallObj(t, UploadRowsRequest{Rows: rows}),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, roster.ImportResult{
				Success:       true,
				Message:       "Successfully processed 1 out of 6 students",
				StudentsAdded: 1,
				Errors: []string{
					"Row 3: Missing required data",
					"Row 4: Student ID 's1' already exists in this event",
					"Row 5: Invalid student email format",
					"Row 6: Invalid parent 2 email format",
					"Row 7: Student ID 's2' already exists in this event",
				},
			}),
		},
		{
			name:     "nothing imported",
			method:   http.MethodPost,
			path:     eventPath(evt.ID, "/upload"),
			body:     marchallObj(t, UploadRowsRequest{Rows: rows[1:2]}),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, roster.ImportResult{
				Message: "No students were added",
				Errors:  []string{"Row 2: Missing required data"},
			}),
		},
		{
			name:     "unknown event",
			method:   http.MethodPost,
			path:     eventPath(999, "/upload"),
			body:     marchallObj(t, UploadRowsRequest{Rows: rows[:1]}),
			token:    token,
			wantCode: http.StatusNotFound,
		},
	})
}

func Test_eventApi_uploadFile(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true), env.Conf)
	evt := env.CreateEvent(t, "Graduation")

	t.Run("csv", func(t *testing.T) {
		csv := "\xEF\xBB\xBFStudent ID,Student Name,Email,Parent Email,Seats,Guests\n" +
			"s1,Sara,sara@students.test,sara.p@family.test,3,\"Ann, Bob\"\n" +
			",,,,,\n" +
			"s2,Omar,omar@students.test,omar.p@family.test,abc,\n"
		req, rec := newUploadRequest(t, eventPath(evt.ID, "/upload"), token, uploadFileField, "roster.csv", []byte(csv))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res roster.ImportResult
		unmarchallObj(t, rec.Body.Bytes(), &res)
		assert.Equal(t, 2, res.StudentsAdded)
		assert.Empty(t, res.Errors)

		students, err := env.RosterSvc.ListStudents(context.Background(), evt.ID)
		require.NoError(t, err)
		require.Len(t, students, 2)
		assert.Equal(t, "Omar", students[0].StudentName)
		assert.Equal(t, 1, students[0].NumberOfSeats)
		assert.Len(t, students[0].InviteeList, 1)
		assert.Equal(t, 3, students[1].NumberOfSeats)
		assert.Len(t, students[1].InviteeList, 3)
	})

	t.Run("missing columns", func(t *testing.T) {
		csv := "Name,Phone\nSara,123\n"
		req, rec := newUploadRequest(t, eventPath(evt.ID, "/upload"), token, uploadFileField, "roster.csv", []byte(csv))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp httpErr
		unmarchallObj(t, rec.Body.Bytes(), &resp)
		assert.Contains(t, resp.Error, "Missing required columns")
		assert.Contains(t, resp.Error, "Available columns in your Excel file: Name, Phone")
		assert.Contains(t, resp.Error, "Could not find: Student ID, Student Email, Parent 1 Email")
	})

	badUpload := func(name string, field, filename string, content []byte, wantData []byte) {
		t.Run(name, func(t *testing.T) {
			req, rec := newUploadRequest(t, eventPath(evt.ID, "/upload"), token, field, filename, content)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: wantData}, rec)
		})
	}
	badUpload("unsupported file", uploadFileField, "roster.pdf", []byte("%PDF"),
		marchallObj(t, httpErr{Error: sheetsvc.ErrUnsupportedFile.Error()}))
	badUpload("empty file", uploadFileField, "roster.csv", []byte{},
		marchallObj(t, httpErr{Error: sheetsvc.ErrEmptySheet.Error()}))
	badUpload("corrupt workbook", uploadFileField, "roster.xlsx", []byte("not a zip"),
		marchallObj(t, httpErr{Error: "Failed to process file"}))
	badUpload("no file", "", "", nil,
		marchallObj(t, httpErr{Error: errNoFile.Message.(string)}))
}

func Test_eventApi_sendEmails(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true), env.Conf)
	evt := env.CreateEvent(t, "Graduation")
	env.CreateStudent(t, evt.ID, "s1", "Sara", "Ann, Bob")
	env.CreateStudent(t, evt.ID, "s2", "Omar", "")
	env.Mailer.FailFor["s2@students.test"] = true

	runHTTPTests(t, app, []httpTest{
		{
			name:     "first batch",
			method:   http.MethodPost,
			path:     eventPath(evt.ID, "/send-emails"),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SendEmailsResponse{Message: "Successfully sent 1 emails. 1 failed.", Success: true, Sent: 1, Failed: 1}),
		},
		{
			name:     "only the failed one is retried",
			method:   http.MethodPost,
			path:     eventPath(evt.ID, "/send-emails"),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SendEmailsResponse{Message: "Successfully sent 0 emails. 1 failed.", Success: true, Sent: 0, Failed: 1}),
		},
		{
			name:     "unknown event",
			method:   http.MethodPost,
			path:     eventPath(999, "/send-emails"),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: event.ErrNotFound.Error()}),
		},
	})

	sent := env.Mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "s1@students.test", sent[0].To[0].Address)
	assert.Equal(t, env.Conf.Ticket.DefaultEmailSubject, sent[0].Subject)
	require.Len(t, sent[0].Cc, 1)
	assert.Equal(t, "s1.parent@family.test", sent[0].Cc[0].Address)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "qrcode", sent[0].Attachments[0].ContentID)
}

func Test_eventApi_sendEmails_sharedFamilyAddress(t *testing.T) {
	app, env := setup()
	token := getToken(t, env.CreateUser(t, "admin", "Str0ngPass!", user.RoleAdmin, true), env.Conf)
	evt := env.CreateEvent(t, "Graduation")
	_, err := env.RosterSvc.CreateStudent(context.Background(), evt.ID, roster.StudentRow{
		StudentID:     "s1",
		StudentName:   "Sara",
		StudentEmail:  "fam@family.test",
		Parent1:       "FAM@family.test",
		Parent2:       "dad@family.test",
		NumberOfSeats: 1,
	})
	require.NoError(t, err)
	_, err = env.RosterSvc.CreateStudent(context.Background(), evt.ID, roster.StudentRow{
		StudentID:     "s2",
		StudentName:   "Omar",
		StudentEmail:  "omar@students.test",
		Parent1:       "home@family.test",
		Parent2:       "Home@family.test",
		NumberOfSeats: 1,
	})
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{
			name:     "every ticket is sent once per address",
			method:   http.MethodPost,
			path:     eventPath(evt.ID, "/send-emails"),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SendEmailsResponse{Message: "Successfully sent 2 emails. 0 failed.", Success: true, Sent: 2}),
		},
	})

	cc := make(map[string][]string)
	for _, msg := range env.Mailer.SentMessages() {
		for _, addr := range msg.Cc {
			cc[msg.To[0].Address] = append(cc[msg.To[0].Address], addr.Address)
		}
	}
	assert.Equal(t, map[string][]string{
		"fam@family.test":    {"dad@family.test"},
		"omar@students.test": {"home@family.test"},
	}, cc)
}

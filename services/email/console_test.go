package emailsvc

import (
	"bytes"
	"context"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Mohammed01doitesky/bed/core"
)

func TestConsoleService_Send(t *testing.T) {
	conf := core.NewTestConfig()
	out := new(bytes.Buffer)
	svc := &consoleService{from: conf.DefaultFromAddress(), subjPrefix: "[Bed] ", out: out}

	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: "Jane", Address: "jane@test.com"}},
		Cc:      []mail.Address{{Address: "parent@test.com"}},
		Subject: "Hello",
		BodyStr: "plain body",
	}
	msg.Embed([]byte("\x89PNG\r\n\x1a\nfake"), "qrcode.png", "qrcode")

	if assert.NoError(t, svc.Send(context.Background(), msg)) {
		body := out.String()
		assert.Contains(t, body, "Subject: [Bed] Hello")
		assert.Contains(t, body, "CC: <parent@test.com>")
		assert.Contains(t, body, "plain body")
		assert.Contains(t, body, "Content-Id: <qrcode>")
		assert.Contains(t, body, "multipart/mixed")
	}
}

func TestConsoleService_SendNothing(t *testing.T) {
	svc := &consoleService{}
	err := svc.Send(context.Background(), &core.EmailMessage{BodyStr: "no recipient"})
	assert.Equal(t, errNothingToSend, err)
}

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())
	svc.FailFor["bad@test.com"] = true
	ctx := context.Background()

	ok := &core.EmailMessage{To: []mail.Address{{Address: "ok@test.com"}}, Subject: "ok", BodyStr: "hi"}
	bad := &core.EmailMessage{To: []mail.Address{{Address: "bad@test.com"}}, Subject: "bad", BodyStr: "hi"}

	assert.NoError(t, svc.Send(ctx, ok))
	assert.Equal(t, ErrMockDelivery, svc.Send(ctx, bad))

	sent := svc.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "ok", sent[0].Subject)
		assert.Equal(t, "hi", sent[0].TextContent)
	}

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestGetSGAttachment(t *testing.T) {
	inline := getSGAttachment(core.Attachment{Content: []byte("abc"), ContentType: "image/png", Filename: "qr.png", ContentID: "qrcode"})
	assert.Equal(t, "inline", inline.Disposition)
	assert.Equal(t, "qrcode", inline.ContentID)
	assert.Equal(t, "YWJj", inline.Content)

	file := getSGAttachment(core.Attachment{Content: []byte("abc"), ContentType: "text/plain", Filename: "a.txt"})
	assert.Equal(t, "attachment", file.Disposition)
	assert.Empty(t, file.ContentID)
}

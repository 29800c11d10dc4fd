package emailsvc

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/Mohammed01doitesky/bed/core"
)

var errNothingToSend = errors.New("email has no recipient or content")

type consoleService struct {
	from       mail.Address
	subjPrefix string
	out        io.Writer // nil disables output
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService prints every email to stdout instead of delivering it.
func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		from:       conf.DefaultFromAddress(),
		subjPrefix: "[" + conf.AppName + "] ",
		out:        os.Stdout,
	}
}

func (svc *consoleService) Send(ctx context.Context, msg *core.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !msg.HasContent() {
		if err := msg.Render(); err != nil {
			return errors.Wrap(err, "rendering email")
		}
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return errNothingToSend
	}
	if svc.out == nil {
		return nil
	}
	body, err := svc.format(msg)
	if err != nil {
		return err
	}
	_, err = io.WriteString(svc.out, body)
	return err
}

func (svc *consoleService) format(msg *core.EmailMessage) (string, error) {
	body := new(strings.Builder)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.from.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", core.NowFunc().Format("Mon, 02 Jan 2006 15:04:05 -0700"))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	_, _ = fmt.Fprintf(body, "BCC: %s\r\n", joinAddresses(msg.Bcc))

	var mixedW *multipart.Writer
	altW := multipart.NewWriter(body)

	if msg.HasAttachments() {
		mixedW = multipart.NewWriter(body)
		_, _ = fmt.Fprintf(body, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mixedW.Boundary())
		if _, err := mixedW.CreatePart(textproto.MIMEHeader{
			"Content-Type": {"multipart/alternative; boundary=" + altW.Boundary()},
		}); err != nil {
			return "", errors.Wrap(err, "creating multipart/alternative part")
		}
	} else {
		_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())
	}

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return "", errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	_ = altW.Close()

	if mixedW != nil {
		for _, at := range msg.Attachments {
			hdr := textproto.MIMEHeader{
				"Content-Type":              {at.ContentType},
				"Content-Transfer-Encoding": {"base64"},
				"Content-Disposition":       {"attachment; filename=" + at.Filename},
			}
			if at.ContentID != "" {
				hdr.Set("Content-Disposition", "inline; filename="+at.Filename)
				hdr.Set("Content-ID", "<"+at.ContentID+">")
			}
			w, err = mixedW.CreatePart(hdr)
			if err != nil {
				return "", errors.Wrap(err, "creating "+at.ContentType+" part")
			}
			_, _ = fmt.Fprintf(w, "%s\r\n", base64.StdEncoding.EncodeToString(at.Content))
		}
		_ = mixedW.Close()
	}
	return body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// ConsoleServiceMock records sent messages without printing them.
// Deliveries to an address listed in FailFor fail with ErrMockDelivery.
type ConsoleServiceMock struct {
	consoleService

	mu      sync.Mutex
	sent    []core.EmailMessage
	FailFor map[string]bool
}

var (
	_ core.EmailService = (*ConsoleServiceMock)(nil)

	ErrMockDelivery = errors.New("mock delivery failure")
)

func NewConsoleServiceMock(conf *core.Config) *ConsoleServiceMock {
	return &ConsoleServiceMock{
		consoleService: consoleService{
			from:       conf.DefaultFromAddress(),
			subjPrefix: "[" + conf.AppName + "] ",
		},
		FailFor: make(map[string]bool),
	}
}

func (svc *ConsoleServiceMock) Send(ctx context.Context, msg *core.EmailMessage) error {
	for _, to := range msg.To {
		if svc.FailFor[to.Address] {
			return ErrMockDelivery
		}
	}
	if err := svc.consoleService.Send(ctx, msg); err != nil {
		return err
	}
	svc.mu.Lock()
	svc.sent = append(svc.sent, *msg)
	svc.mu.Unlock()
	return nil
}

func (svc *ConsoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}

func (svc *ConsoleServiceMock) Reset() {
	svc.mu.Lock()
	svc.sent = nil
	svc.mu.Unlock()
}

package core

import (
	"bytes"
	"context"
	"fmt"
	htmltmpl "html/template"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/Mohammed01doitesky/bed/fs"
)

var (
	templates       tmplCache
	tmplInit        sync.Once
	tmplStrict      bool
	frontendBaseURL string

	errTemplateNotFound = errors.New("email template not found")
)

const templatesDir = "templates/email"

type (
	tmplCacheEntry struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}
	tmplCache map[string]*tmplCacheEntry // {name: entry}

	Attachment struct {
		Content     []byte
		ContentType string
		Filename    string
		ContentID   string // set for inline parts referenced as cid:<ContentID>
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can deliver an email.
	// Send returns once the transport accepted or rejected the message.
	EmailService interface {
		Send(ctx context.Context, msg *EmailMessage) error
	}
)

func (m *EmailMessage) getContextData() ContextData {
	return ContextData{
		FrontendBaseURL: frontendBaseURL,
		Data:            m.TemplateData,
	}
}

func (m *EmailMessage) renderText(entry *tmplCacheEntry) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if entry == nil || entry.text == nil {
		return nil
	}

	var buff bytes.Buffer
	if err := entry.text.ExecuteTemplate(&buff, "base", m.getContextData()); err != nil {
		return errors.Wrap(err, "executing text template")
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML(entry *tmplCacheEntry) error {
	if entry == nil || entry.html == nil {
		return nil
	}

	var buff bytes.Buffer
	if err := entry.html.ExecuteTemplate(&buff, "base", m.getContextData()); err != nil {
		return errors.Wrap(err, "executing html template")
	}
	m.HTMLContent = buff.String()
	return nil
}

// Render fills TextContent and HTMLContent from the message template.
func (m *EmailMessage) Render() error {
	var entry *tmplCacheEntry
	if m.TemplateName != "" {
		tmplInit.Do(func() { _ = parseTemplates() })
		var ok bool
		if entry, ok = templates[m.TemplateName]; !ok {
			return errors.Wrap(errTemplateNotFound, m.TemplateName)
		}
	}
	if err := m.renderText(entry); err != nil {
		return err
	}
	return m.renderHTML(entry)
}

// Attach adds content as an attachment. The content type is sniffed when ct is not given.
func (m *EmailMessage) Attach(content []byte, filename string, ct ...string) {
	at := Attachment{Content: content, Filename: filename}
	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
}

// Embed adds an inline attachment that html content can reference as cid:<cid>.
func (m *EmailMessage) Embed(content []byte, filename, cid string) {
	m.Attach(content, filename)
	m.Attachments[len(m.Attachments)-1].ContentID = cid
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseEmailTemplates parses the embedded email templates once.
// Templates are also parsed lazily on first Render.
func ParseEmailTemplates(conf *Config, logger Logger) {
	frontendBaseURL = conf.FrontendBaseURL
	tmplStrict = conf.Debug || conf.TestMode
	tmplInit.Do(func() {
		if err := parseTemplates(); err != nil {
			logger.Error(fmt.Sprintf("parsing email templates: %v", err), err)
		}
	})
}

func parseTemplates() error {
	templates = make(tmplCache)

	fps, err := appfs.Glob(path.Join(templatesDir, "*"))
	if err != nil {
		return errors.Wrap(err, "listing email templates")
	}

	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}
	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := templates[name]
		if !ok {
			entry = new(tmplCacheEntry)
			templates[name] = entry
		}
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(appfs.FS, path.Join(templatesDir, "_base.txt"), fp)
			if err != nil {
				keep(errors.Wrap(err, fp))
				continue
			}
			if tmplStrict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry.text = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(appfs.FS, path.Join(templatesDir, "_base.gohtml"), fp)
			if err != nil {
				keep(errors.Wrap(err, fp))
				continue
			}
			if tmplStrict {
				tmpl = tmpl.Option("missingkey=error")
			}
			entry.html = tmpl
		}
	}
	return firstErr
}

package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const emailCSS = `
  body { font-family: Arial, sans-serif; color: #333; background-color: #f9f9f9; }
  .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; padding: 40px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
  .header { border-bottom: 3px solid #007bff; padding-bottom: 20px; margin-bottom: 30px; }
  .header h1 { margin: 0; color: #0a192f; font-size: 24px; }
  .section { margin-bottom: 25px; }
  .label { color: #6b7280; font-size: 12px; text-transform: uppercase; letter-spacing: 1px; font-weight: 600; margin-bottom: 8px; }
  .value { color: #1f2933; font-size: 14px; line-height: 1.6; }
  .message-box { background-color: #f3f4f6; border-left: 4px solid #007bff; padding: 16px; border-radius: 4px; margin-top: 10px; }
  .message-text { color: #1f2933; font-size: 14px; line-height: 1.8; white-space: pre-wrap; word-break: break-word; }
  .footer { border-top: 1px solid #e5e7eb; padding-top: 20px; margin-top: 30px; text-align: center; font-size: 12px; color: #6b7280; }
`

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
<head><style>{{.CSS}}</style></head>
<body>
  <div class="container">
    <div class="header"><h1>{{.Title}}</h1></div>
{{template "content" .}}
    <div class="footer">
{{template "footer" .}}
    </div>
  </div>
</body>
</html>{{end}}`

const ownerContent = `{{define "content"}}    <div class="section">
      <div class="label">From</div>
      <div class="value">{{.Name}}</div>
    </div>
    <div class="section">
      <div class="label">Contact Email</div>
      <div class="value"><a href="mailto:{{.Email}}" style="color: #007bff; text-decoration: none;">{{.Email}}</a></div>
    </div>
    <div class="section">
      <div class="label">Message</div>
      <div class="message-box">
        <div class="message-text">{{.Message}}</div>
      </div>
    </div>{{end}}
{{define "footer"}}      <div>Received on {{.Time}}</div>{{end}}`

const ackContent = `{{define "content"}}    <div class="section">
      <p class="value">Hi {{.Name}},</p>
      <p class="value">Thank you for visiting my portfolio and taking the time to send me a message. I have received your inquiry and will get back to you as soon as possible.</p>
      <p style="color: #1f2933; font-size: 14px; font-weight: 600;">Your Message:</p>
      <div class="message-box">
        <div class="message-text">{{.Message}}</div>
      </div>
      <p style="color: #1f2933; font-size: 14px; margin-top: 20px;">I appreciate your interest and will be in touch shortly.</p>
      <p style="color: #1f2933; font-size: 14px;">Best regards,{{if .Owner}}<br>{{.Owner}}{{end}}</p>
    </div>{{end}}
{{define "footer"}}      <p>This is an automated confirmation email. Please do not reply to this email.</p>{{end}}`

const visitContent = `{{define "content"}}    <div class="section">
      <div class="label">Visit Time</div>
      <div class="value">{{.Time}}</div>
    </div>
    <div class="section">
      <div class="label">Device Information</div>
      <div class="value">{{.UserAgent}}</div>
    </div>
    <div class="section">
      <div class="label">Source</div>
      <div class="value">{{.Referrer}}</div>
    </div>{{end}}
{{define "footer"}}      <p>This is an automated notification from your portfolio.</p>{{end}}`

var (
	ownerTmpl = mustTemplate("owner", ownerContent)
	ackTmpl   = mustTemplate("ack", ackContent)
	visitTmpl = mustTemplate("visit", visitContent)
)

func mustTemplate(name, content string) *template.Template {
	t := template.Must(template.New(name).Parse(layout))
	return template.Must(t.Parse(content))
}

// page carries the values for every template. Free-text fields hold output
// of EscapeHTML and are typed template.HTML to avoid a second escaping pass.
// Email stays a plain string so html/template escapes it for both the link
// target and the display text.
type page struct {
	CSS       template.CSS
	Title     string
	Name      template.HTML
	Email     string
	Message   template.HTML
	Time      template.HTML
	UserAgent template.HTML
	Referrer  template.HTML
	Owner     template.HTML
}

func render(t *template.Template, p page) (string, error) {
	p.CSS = template.CSS(emailCSS)
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\r\n", "<br>",
	"\n", "<br>",
)

// EscapeHTML escapes &, < and > and turns line breaks into <br>.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

var htmlUnescaper = strings.NewReplacer(
	"<br>", "\n",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
)

// UnescapeHTML reverses EscapeHTML, with CRLF collapsing to LF.
func UnescapeHTML(s string) string {
	return htmlUnescaper.Replace(s)
}

// DisplayTimeLayout formats timestamps in notification bodies.
const DisplayTimeLayout = "January 2, 2006 at 3:04 PM MST"

// FormatTimestamp renders an RFC 3339 timestamp in UTC for humans. Anything
// unparsable is shown escaped as received.
func FormatTimestamp(ts string) template.HTML {
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return template.HTML(t.UTC().Format(DisplayTimeLayout))
	}
	return template.HTML(EscapeHTML(ts))
}

func escaped(s string) template.HTML {
	return template.HTML(EscapeHTML(s))
}

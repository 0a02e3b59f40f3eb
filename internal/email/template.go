package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/nbeast/nbeast/internal/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

var signinTemplate = template.Must(template.ParseFS(templateFS, "templates/signin.html"))

type signinData struct {
	Preview           string
	Subject           string
	Hello             string
	Username          string
	Request           string
	URL               string
	Button            string
	OrCopyLink        string
	LinkExpires       string
	DidntRequest      string
	AllRightsReserved string
	ProductName       string
	Year              int
}

// renderSignin fills the sign-in email body with localized strings.
func renderSignin(dict *i18n.Dict, username, url, productName string, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := signinTemplate.Execute(&buf, signinData{
		Preview:           dict.T("email.signInPreview"),
		Subject:           dict.T("email.signInSubject"),
		Hello:             dict.T("email.hello"),
		Username:          username,
		Request:           dict.T("email.signInRequest"),
		URL:               url,
		Button:            dict.T("email.signInButton"),
		OrCopyLink:        dict.T("email.orCopyLink"),
		LinkExpires:       dict.T("email.linkExpires"),
		DidntRequest:      dict.T("email.didntRequest"),
		AllRightsReserved: dict.T("email.allRightsReserved"),
		ProductName:       productName,
		Year:              now.Year(),
	})
	if err != nil {
		return "", fmt.Errorf("render signin email: %w", err)
	}
	return buf.String(), nil
}

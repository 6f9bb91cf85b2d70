package mail

import (
	"bytes"
	"embed"
	"html/template"
)

const (
	ActivationTemplate  = "activation"
	NewPasswordTemplate = "password"

	ActivationSubject  = "Confirm your email"
	NewPasswordSubject = "Your new password"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type activationData struct {
	Code string
	Link string
}

type passwordData struct {
	Password string
}

// Activation builds the email carrying an activation code and the link that
// confirms it.
func Activation(to, code, baseURL string) (Message, error) {
	body, err := render(ActivationTemplate+".html", activationData{
		Code: code,
		Link: baseURL + "/auth/activate/" + code,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: ActivationSubject, HTMLBody: body, Template: ActivationTemplate}, nil
}

// NewPassword builds the email carrying a freshly generated password.
func NewPassword(to, password string) (Message, error) {
	body, err := render(NewPasswordTemplate+".html", passwordData{Password: password})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: NewPasswordSubject, HTMLBody: body, Template: NewPasswordTemplate}, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

package forms

import (
	"net/mail"
	"net/url"
	"strings"
)

// Validation messages shown next to the contact form fields
const (
	MsgNameRequired    = "Please enter your name."
	MsgEmailRequired   = "Please enter your email address."
	MsgEmailInvalid    = "Please enter a valid email address."
	MsgSubjectRequired = "Please enter a subject."
	MsgMessageRequired = "Please enter a message."
)

// ContactForm is the visitor-facing contact form
type ContactForm struct {
	Name    string
	Email   string
	Subject string
	Message string

	Errors map[string][]string
}

// ParseContactForm reads the form fields from submitted values
func ParseContactForm(values url.Values) *ContactForm {
	return &ContactForm{
		Name:    strings.TrimSpace(values.Get("name")),
		Email:   strings.TrimSpace(values.Get("email")),
		Subject: strings.TrimSpace(values.Get("subject")),
		Message: strings.TrimSpace(values.Get("message")),
	}
}

// Validate checks every field and records the failures in Errors
func (f *ContactForm) Validate() bool {
	f.Errors = make(map[string][]string)

	if f.Name == "" {
		f.addError("name", MsgNameRequired)
	}

	switch {
	case f.Email == "":
		f.addError("email", MsgEmailRequired)
	case !ValidEmail(f.Email):
		f.addError("email", MsgEmailInvalid)
	}

	if f.Subject == "" {
		f.addError("subject", MsgSubjectRequired)
	}

	if f.Message == "" {
		f.addError("message", MsgMessageRequired)
	}

	return len(f.Errors) == 0
}

func (f *ContactForm) addError(field, msg string) {
	f.Errors[field] = append(f.Errors[field], msg)
}

// FieldErrors returns the messages for one field, for templates
func (f *ContactForm) FieldErrors(field string) []string {
	if f == nil || f.Errors == nil {
		return nil
	}
	return f.Errors[field]
}

// ValidEmail accepts a bare address whose domain contains a dot
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}

	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") &&
		!strings.HasSuffix(domain, ".")
}

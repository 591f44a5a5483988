package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Adenrele/Web-Portfolio/internal/forms"
	"github.com/Adenrele/Web-Portfolio/internal/mailer"
	"github.com/Adenrele/Web-Portfolio/internal/store"
)

// Contact page flash messages
const (
	MsgFieldsRequired = "All fields are required."
	MsgInvalidToken   = "Failed to send the message due to an invalid access token."
	MsgSent           = "Your message has been sent successfully!"
	MsgSendFailed     = "Failed to send the message. Try again later."
	MsgFormExpired    = "Your session has expired. Please submit the form again."
)

const (
	csrfCookieName = "csrf_token"
	csrfFieldName  = "csrf_token"

	maxContactBody = 64 << 10
)

func (s *HTTPServer) handleContactForm(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Form: &forms.ContactForm{}}
	s.renderContact(w, http.StatusOK, data)
}

func (s *HTTPServer) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBody)
	if err := r.ParseForm(); err != nil {
		s.logger.Warning("Rejected contact form from %s: %v", r.RemoteAddr, err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := forms.ParseContactForm(r.PostForm)

	if s.cfg.Server.CSRFEnabled {
		cookie, _ := r.Cookie(csrfCookieName)
		sealed := ""
		if cookie != nil {
			sealed = cookie.Value
		}
		if err := s.csrf.Verify(r.PostForm.Get(csrfFieldName), sealed); err != nil {
			s.logger.Warning("CSRF check failed for %s: %v", r.RemoteAddr, err)
			data := &pageData{Form: form, Flashes: []flash{{flashDanger, MsgFormExpired}}}
			s.renderContact(w, http.StatusForbidden, data)
			return
		}
	}

	if !form.Validate() {
		s.logger.Debug("Contact form validation failed: %v", form.Errors)
		data := &pageData{Form: form, Flashes: []flash{{flashMessage, MsgFieldsRequired}}}
		s.renderContact(w, http.StatusOK, data)
		return
	}

	id := s.archive(r.Context(), form, r.RemoteAddr)

	err := s.deps.Mailer.Deliver(r.Context(), mailer.Envelope{
		ID:      id,
		Name:    form.Name,
		Email:   form.Email,
		Subject: form.Subject,
		Message: form.Message,
	})

	switch {
	case err == nil:
		s.logger.Info("Contact message %s delivered", id)
		s.markStatus(id, store.StatusSent, "")
		s.renderContact(w, http.StatusOK, &pageData{
			Success: true,
			Flashes: []flash{{flashSuccess, MsgSent}},
		})

	case errors.Is(err, mailer.ErrInvalidToken):
		s.logger.Error("Contact message %s rejected: %v", id, err)
		s.markStatus(id, store.StatusRejected, err.Error())
		data := &pageData{Form: form, Flashes: []flash{{flashDanger, MsgInvalidToken}}}
		s.renderContact(w, http.StatusOK, data)

	default:
		s.logger.Error("Contact message %s failed: %v", id, err)
		s.markStatus(id, store.StatusFailed, err.Error())
		s.renderContact(w, http.StatusOK, &pageData{
			Success: true,
			Flashes: []flash{{flashDanger, MsgSendFailed}},
		})
	}
}

// renderContact fills the common contact page fields and issues a fresh
// CSRF token whenever the form is shown
func (s *HTTPServer) renderContact(w http.ResponseWriter, status int, data *pageData) {
	data.Title = "Contact"
	data.Active = "contact"

	if !data.Success && s.cfg.Server.CSRFEnabled {
		token, sealed, err := s.csrf.Issue()
		if err != nil {
			s.logger.Error("Failed to issue CSRF token: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     csrfCookieName,
			Value:    sealed,
			Path:     "/contact",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		data.CSRFToken = token
	}

	s.render(w, status, "contact", data)
}

// archive stores the submission and returns its ID. Storage failures are
// logged and never block delivery.
func (s *HTTPServer) archive(ctx context.Context, form *forms.ContactForm, remoteAddr string) string {
	msg := &store.Message{
		ID:         uuid.NewString(),
		Name:       form.Name,
		Email:      form.Email,
		Subject:    form.Subject,
		Body:       form.Message,
		RemoteAddr: remoteAddr,
	}

	if s.deps.Store != nil {
		if err := s.deps.Store.SaveMessage(ctx, msg); err != nil {
			s.logger.Error("Failed to archive contact message: %v", err)
		}
	}
	return msg.ID
}

func (s *HTTPServer) markStatus(id string, status store.Status, detail string) {
	if s.deps.Store == nil {
		return
	}

	// The request context may already be cancelled once delivery returns
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.Store.MarkStatus(ctx, id, status, detail); err != nil {
		s.logger.Error("Failed to update contact message %s: %v", id, err)
	}
}

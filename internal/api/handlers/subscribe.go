package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/CryptoMainlyLee/cryptomainly-portal/internal/subscribe"
	"github.com/CryptoMainlyLee/cryptomainly-portal/pkg/models"
)

// SubscribeHandler serves the lead-capture and contact endpoints.
type SubscribeHandler struct {
	relay  *subscribe.Relay
	logger *logrus.Entry
}

// NewSubscribeHandler creates the handler.
func NewSubscribeHandler(relay *subscribe.Relay, logger *logrus.Logger) *SubscribeHandler {
	return &SubscribeHandler{
		relay:  relay,
		logger: logger.WithField("component", "subscribe-handler"),
	}
}

// RegisterRoutes configures the form routes
func (h *SubscribeHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/subscribe", h.handleSubscribe).Methods("POST")
	api.HandleFunc("/contact", h.handleContact).Methods("POST")
}

// handleSubscribe validates the email, hands the submission to the
// best-effort relay, and reports success. The relay outcome is never
// surfaced to the caller; a validation failure is the only non-200 path
// and happens before any relay attempt.
func (h *SubscribeHandler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var sub models.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !subscribe.ValidateEmail(sub.Email) {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	h.relay.Submit(sub, subscribe.ResolveClientIP(r))

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, models.SubscribeResponse{
		Success: true,
		OK:      true,
		Message: "Success / Subscribed",
	})
}

// handleContact accepts a contact payload and logs it for the operator.
func (h *SubscribeHandler) handleContact(w http.ResponseWriter, r *http.Request) {
	var msg models.ContactMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"name":  msg.Name,
		"email": msg.Email,
	}).Info("Contact form submission")

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anshulj/wa-checker/models"
	"github.com/anshulj/wa-checker/utils"
	"github.com/anshulj/wa-checker/whatsapp"
)

// MaxBatchSize caps the number of entries accepted by /check and /send.
const MaxBatchSize = 100

// sendGrace is the single bounded wait /send performs before giving up on a
// disconnected session, covering transient startup races.
const sendGrace = 2 * time.Second

// Supervisor is the connection lifecycle surface the handlers consume.
type Supervisor interface {
	Status() models.ConnectionStatus
	PairingCode() *models.PairingCode
	ClearSession() error
	Disconnect() error
}

// Checker checks registration for a batch of numbers.
type Checker interface {
	CheckMany(ctx context.Context, numbers []string) ([]models.RegistrationResult, error)
}

// Sender sends a text to a batch of numbers.
type Sender interface {
	SendMany(ctx context.Context, numbers []string, text string) ([]models.SendOutcome, error)
}

// History exposes the outbound message audit log.
type History interface {
	RecentMessages(limit int) ([]models.OutboundMessage, error)
	MessagesByNumber(number string, limit int) ([]models.OutboundMessage, error)
	Stats() (*models.MessageStats, error)
}

// Handler handles HTTP requests
type Handler struct {
	supervisor Supervisor
	checker    Checker
	sender     Sender
	history    History // may be nil
	startedAt  time.Time
	sendGrace  time.Duration
}

// NewHandler creates a new API handler. history may be nil when the audit
// log is not configured.
func NewHandler(supervisor Supervisor, checker Checker, sender Sender, history History) *Handler {
	return &Handler{
		supervisor: supervisor,
		checker:    checker,
		sender:     sender,
		history:    history,
		startedAt:  time.Now(),
		sendGrace:  sendGrace,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.APIResponse{
		Success:   false,
		Error:     message,
		Timestamp: time.Now(),
	})
}

// HandleStatus handles the GET /status endpoint. It reflects the latest
// observed state and never triggers a connection attempt.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.supervisor.Status()
	statusText := "disconnected"
	message := "WhatsApp is not connected"
	if status.Connected {
		statusText = "connected"
		message = "WhatsApp is connected and ready"
	}

	writeJSON(w, http.StatusOK, models.StatusResponse{
		Success:    true,
		Status:     statusText,
		Connected:  status.Connected,
		HasSession: status.HasSession,
		Attempts:   status.Attempts,
		User:       status.User,
		Message:    message,
		Timestamp:  time.Now(),
	})
}

// HandleQR handles the GET /qr endpoint, returning the live pairing code as
// both raw text and a base64 PNG.
func (h *Handler) HandleQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := h.supervisor.PairingCode()
	if code == nil {
		writeJSON(w, http.StatusOK, models.QRCodeResponse{
			Success:  false,
			Message:  "No QR code available. Either already connected or still connecting.",
			IssuedAt: time.Now(),
		})
		return
	}

	response := models.QRCodeResponse{
		Success:   true,
		QR:        code.Code,
		IssuedAt:  code.IssuedAt,
		ExpiresIn: code.ExpiresIn,
	}
	if png, err := whatsapp.QRCodePNGBase64(code.Code); err != nil {
		utils.Logger.Warn().Err(err).Msg("Failed to render QR code PNG")
	} else {
		response.QRPNG = png
	}
	writeJSON(w, http.StatusOK, response)
}

// HandleCheck handles the POST /check endpoint.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request models.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if msg := validateNumbers(request.Numbers); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if !h.supervisor.Status().Connected {
		writeError(w, http.StatusServiceUnavailable, "WhatsApp is not connected. Please try again later.")
		return
	}

	utils.Logger.Info().Int("count", len(request.Numbers)).Msg("Checking numbers")
	results, err := h.checker.CheckMany(r.Context(), request.Numbers)
	if err != nil {
		h.writeAcquireError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.CheckResponse{
		Success:      true,
		Results:      results,
		TotalChecked: len(results),
		Timestamp:    time.Now(),
	})
}

// HandleSend handles the POST /send endpoint. When disconnected it waits
// one bounded grace period and re-checks before failing with 503.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if msg := validateNumbers(request.Numbers); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(request.Message) == "" {
		writeError(w, http.StatusBadRequest, "Please provide a non-empty message")
		return
	}

	if !h.supervisor.Status().Connected {
		select {
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "Request cancelled")
			return
		case <-time.After(h.sendGrace):
		}
		if !h.supervisor.Status().Connected {
			writeError(w, http.StatusServiceUnavailable, "WhatsApp is not connected. Please try again later.")
			return
		}
	}

	utils.Logger.Info().Int("count", len(request.Numbers)).Msg("Sending messages")
	results, err := h.sender.SendMany(r.Context(), request.Numbers, request.Message)
	if err != nil {
		h.writeAcquireError(w, err)
		return
	}

	totalSent := 0
	for _, result := range results {
		if result.Status == models.StatusSent {
			totalSent++
		}
	}
	writeJSON(w, http.StatusOK, models.SendResponse{
		Success:     true,
		Results:     results,
		TotalSent:   totalSent,
		TotalFailed: len(results) - totalSent,
		Timestamp:   time.Now(),
	})
}

// HandleClearSession handles the POST /clear-session endpoint.
func (h *Handler) HandleClearSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	utils.Logger.Info().Msg("Clearing WhatsApp session")
	if err := h.supervisor.ClearSession(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.APIResponse{
		Success:   true,
		Message:   "Session cleared successfully",
		Timestamp: time.Now(),
	})
}

// HandleDisconnect handles the POST /disconnect endpoint: logout, reset,
// and start a fresh pairing.
func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	utils.Logger.Info().Msg("Disconnecting WhatsApp session")
	if err := h.supervisor.Disconnect(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.APIResponse{
		Success:   true,
		Message:   "Successfully disconnected and ready for new connection",
		Timestamp: time.Now(),
	})
}

// HandleHealth handles the GET /health endpoint. It always responds, even
// while disconnected.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Success:   true,
		Status:    "healthy",
		Uptime:    time.Since(h.startedAt).Seconds(),
		Timestamp: time.Now(),
	})
}

// HandleMessages handles the GET /messages endpoint.
func (h *Handler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "Message history is not configured")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	var messages []models.OutboundMessage
	var err error
	if number := r.URL.Query().Get("number"); number != "" {
		messages, err = h.history.MessagesByNumber(number, limit)
	} else {
		messages, err = h.history.RecentMessages(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// HandleStats handles the GET /stats endpoint.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "Message history is not configured")
		return
	}

	stats, err := h.history.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// writeAcquireError maps connection-level failures to 503 and everything
// else to 500.
func (h *Handler) writeAcquireError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, whatsapp.ErrConnectionTimeout) ||
		errors.Is(err, whatsapp.ErrSessionExpired) ||
		errors.Is(err, whatsapp.ErrReconnectExhausted) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, err.Error())
}

// validateNumbers enforces the shared batch constraints for /check and
// /send. Returns an error message, or empty when valid.
func validateNumbers(numbers []string) string {
	if len(numbers) == 0 {
		return "Please provide an array of phone numbers"
	}
	if len(numbers) > MaxBatchSize {
		return "Maximum " + strconv.Itoa(MaxBatchSize) + " numbers can be processed at once"
	}
	for _, number := range numbers {
		if strings.TrimSpace(number) == "" {
			return "Phone numbers must be non-empty strings"
		}
	}
	return ""
}

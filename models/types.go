package models

import "time"

// Send outcome statuses
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// ReasonNotOnWhatsApp marks a send that was skipped because the recipient
// is not registered on WhatsApp.
const ReasonNotOnWhatsApp = "not_on_whatsapp"

// CheckRequest represents a bulk number check request
type CheckRequest struct {
	Numbers []string `json:"numbers"`
}

// SendRequest represents a bulk message send request
type SendRequest struct {
	Numbers []string `json:"numbers"`
	Message string   `json:"message"`
}

// RegistrationInfo carries the registration metadata reported by WhatsApp
// for a matched number.
type RegistrationInfo struct {
	JID          string `json:"jid"`
	VerifiedName string `json:"verifiedName,omitempty"`
}

// RegistrationResult is the per-number outcome of a registration check.
// FormattedNumber is the candidate that matched, or the canonical format
// when nothing matched.
type RegistrationResult struct {
	Number          string            `json:"number"`
	FormattedNumber string            `json:"formattedNumber"`
	Exists          bool              `json:"isOnWhatsApp"`
	Info            *RegistrationInfo `json:"details,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// SendOutcome is the per-number outcome of a bulk send.
type SendOutcome struct {
	Number          string    `json:"number"`
	FormattedNumber string    `json:"formattedNumber"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// ConnectionStatus is a non-blocking snapshot of the supervisor state.
type ConnectionStatus struct {
	Connected  bool   `json:"connected"`
	HasSession bool   `json:"hasSession"`
	Attempts   int    `json:"attempts"`
	User       string `json:"user,omitempty"`
}

// PairingCode is a live QR pairing code with its remaining lifetime.
type PairingCode struct {
	Code      string    `json:"qr"`
	IssuedAt  time.Time `json:"timestamp"`
	ExpiresIn int64     `json:"expiresIn"` // milliseconds
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse is the /status response body
type StatusResponse struct {
	Success    bool      `json:"success"`
	Status     string    `json:"status"`
	Connected  bool      `json:"connected"`
	HasSession bool      `json:"hasSession"`
	Attempts   int       `json:"attempts"`
	User       string    `json:"user,omitempty"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// QRCodeResponse is the /qr response body
type QRCodeResponse struct {
	Success   bool      `json:"success"`
	QR        string    `json:"qr,omitempty"`
	QRPNG     string    `json:"qrPNG,omitempty"` // base64 encoded PNG
	IssuedAt  time.Time `json:"timestamp"`
	ExpiresIn int64     `json:"expiresIn,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// CheckResponse is the /check response body
type CheckResponse struct {
	Success      bool                 `json:"success"`
	Results      []RegistrationResult `json:"results"`
	TotalChecked int                  `json:"totalChecked"`
	Timestamp    time.Time            `json:"timestamp"`
}

// SendResponse is the /send response body
type SendResponse struct {
	Success     bool          `json:"success"`
	Results     []SendOutcome `json:"results"`
	TotalSent   int           `json:"totalSent"`
	TotalFailed int           `json:"totalFailed"`
	Timestamp   time.Time     `json:"timestamp"`
}

// HealthResponse is the /health response body
type HealthResponse struct {
	Success   bool      `json:"success"`
	Status    string    `json:"status"`
	Uptime    float64   `json:"uptime"` // seconds
	Timestamp time.Time `json:"timestamp"`
}

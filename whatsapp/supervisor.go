package whatsapp

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/anshulj/wa-checker/models"
	"github.com/anshulj/wa-checker/utils"
)

// QR pairing codes are only valid for a short window after issuance.
const qrCodeTTL = 120 * time.Second

type state int

const (
	stateIdle state = iota
	stateConnecting
	stateAuthenticated
	stateReconnecting
	stateLoggedOut
	stateExhausted
)

// attempt is a single logical connection attempt. Concurrent callers attach
// to the same attempt and observe exactly one resolution.
type attempt struct {
	once sync.Once
	done chan struct{}
	sess Session
	err  error
}

func newAttempt() *attempt {
	return &attempt{done: make(chan struct{})}
}

func (a *attempt) resolve(sess Session, err error) {
	a.once.Do(func() {
		a.sess = sess
		a.err = err
		close(a.done)
	})
}

// Supervisor owns the single WhatsApp session. It runs the
// connect/reconnect state machine, persists and clears credential state
// through its SessionFactory, and exposes a consistent snapshot of the
// connection and QR pairing state to concurrent callers.
type Supervisor struct {
	factory           SessionFactory
	log               zerolog.Logger
	connectTimeout    time.Duration
	reconnectInterval time.Duration
	maxAttempts       int

	// PrintQR renders freshly issued pairing codes to the terminal.
	PrintQR bool

	mu             sync.Mutex
	state          state
	sess           Session
	pending        *attempt
	attempts       int
	reconnectTimer *time.Timer
	qrCode         string
	qrIssuedAt     time.Time
	user           string

	now func() time.Time
}

// NewSupervisor creates a supervisor around the given credential-backed
// session factory.
func NewSupervisor(factory SessionFactory, connectTimeout, reconnectInterval time.Duration, maxAttempts int) *Supervisor {
	if connectTimeout <= 0 {
		connectTimeout = 60 * time.Second
	}
	if reconnectInterval <= 0 {
		reconnectInterval = 10 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Supervisor{
		factory:           factory,
		log:               utils.Logger.With().Str("component", "supervisor").Logger(),
		connectTimeout:    connectTimeout,
		reconnectInterval: reconnectInterval,
		maxAttempts:       maxAttempts,
		PrintQR:           true,
		now:               time.Now,
	}
}

// Acquire returns the current session if authenticated, otherwise joins or
// starts the single in-flight connection attempt and waits for its
// resolution, bounded by the connect timeout. A timeout fails only the
// waiting caller; the underlying attempt keeps going and may still populate
// the session for the next caller.
func (s *Supervisor) Acquire(ctx context.Context) (Session, error) {
	s.mu.Lock()
	if s.state == stateAuthenticated && s.sess != nil && s.sess.IsConnected() {
		sess := s.sess
		s.mu.Unlock()
		return sess, nil
	}
	att := s.pending
	if att == nil {
		att = s.startAttemptLocked()
	}
	s.mu.Unlock()

	timer := time.NewTimer(s.connectTimeout)
	defer timer.Stop()
	select {
	case <-att.done:
		return att.sess, att.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrConnectionTimeout
	}
}

// startAttemptLocked begins a fresh connection attempt. Terminal states
// reset the retry budget so the attempt sequence starts over. Caller holds
// the mutex.
func (s *Supervisor) startAttemptLocked() *attempt {
	if s.state == stateLoggedOut || s.state == stateExhausted {
		s.attempts = 0
	}
	s.state = stateConnecting
	att := newAttempt()
	s.pending = att
	go s.runAttempt(att)
	return att
}

func (s *Supervisor) runAttempt(att *attempt) {
	ctx := context.Background()

	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	if sess == nil {
		newSess, err := s.factory.NewSession(ctx)
		if err != nil {
			s.failAttempt(att, fmt.Errorf("failed to create session: %w", err), stateIdle)
			return
		}
		newSess.AddEventHandler(s.handleEvent)
		s.mu.Lock()
		s.sess = newSess
		s.mu.Unlock()
		sess = newSess
	}

	if !sess.HasCredentials() {
		// New login: pairing codes arrive on the QR channel, which must be
		// requested before connecting.
		qrChan, err := sess.QRChannel(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("Could not open QR channel")
		} else {
			go s.consumeQR(qrChan)
		}
		s.log.Info().Msg("No stored credentials, new login required")
	}

	if err := sess.Connect(); err != nil {
		s.failAttempt(att, fmt.Errorf("failed to connect: %w", err), stateIdle)
		return
	}
	// Resolution is delivered by the Connected / LoggedOut / Disconnected
	// event transitions.
}

// failAttempt resolves one attempt as failed. The state transition only
// applies while the attempt still owns the pending slot; a stale attempt's
// late failure must not clobber the state of a newer one.
func (s *Supervisor) failAttempt(att *attempt, err error, next state) {
	s.mu.Lock()
	if s.pending == att {
		s.pending = nil
		s.state = next
	}
	s.mu.Unlock()
	att.resolve(nil, err)
}

// handleEvent consumes connection lifecycle events from the session and
// drives the state machine. An update carrying both a drop reason and a
// fresh pairing code applies as two independent updates, so ordering does
// not matter.
func (s *Supervisor) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		s.handleConnected()
	case *events.PairSuccess:
		s.log.Info().Msg("Device paired successfully")
	case *events.LoggedOut:
		s.log.Warn().Msg("Device was logged out, clearing session data")
		s.handleLoggedOut()
	case *events.StreamReplaced:
		s.log.Warn().Msg("Stream replaced by another client, clearing session data")
		s.handleLoggedOut()
	case *events.Disconnected:
		s.handleDrop()
	case *events.ConnectFailure:
		// Rejections do not emit a Disconnected event, so they must free
		// the attempt slot themselves.
		s.log.Warn().Str("message", e.Message).Msg("Server rejected the connection")
		s.handleDrop()
	case *events.TemporaryBan:
		s.log.Warn().Dur("expire", e.Expire).Msg("Temporarily banned from connecting")
		s.handleDrop()
	case *events.ClientOutdated:
		s.log.Warn().Msg("Server rejected the client version as outdated")
		s.handleDrop()
	}
}

func (s *Supervisor) handleConnected() {
	s.mu.Lock()
	s.state = stateAuthenticated
	s.attempts = 0
	s.qrCode = ""
	s.qrIssuedAt = time.Time{}
	if s.sess != nil {
		s.user = s.sess.UserID()
	}
	att := s.pending
	s.pending = nil
	sess := s.sess
	s.stopReconnectTimerLocked()
	s.mu.Unlock()

	s.log.Info().Str("user", s.user).Msg("Connected to WhatsApp")
	if att != nil {
		att.resolve(sess, nil)
	}
}

// handleLoggedOut handles a terminal drop: the credentials are invalid, so
// the persisted store and any live pairing code are wiped synchronously and
// the in-flight acquisition fails. It does not auto-retry; the next Acquire
// starts a brand-new pairing flow.
func (s *Supervisor) handleLoggedOut() {
	s.mu.Lock()
	s.state = stateLoggedOut
	s.qrCode = ""
	s.qrIssuedAt = time.Time{}
	s.user = ""
	sess := s.sess
	s.sess = nil
	att := s.pending
	s.pending = nil
	s.stopReconnectTimerLocked()
	s.mu.Unlock()

	if sess != nil {
		sess.Disconnect()
	}
	if err := s.factory.Wipe(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("Failed to wipe credential store")
	}
	if att != nil {
		att.resolve(nil, ErrSessionExpired)
	}
}

// handleDrop handles a transient disconnect: schedule exactly one reconnect
// after the backoff interval, up to the attempt budget.
func (s *Supervisor) handleDrop() {
	s.mu.Lock()
	if s.state == stateLoggedOut || s.state == stateIdle || s.state == stateExhausted {
		s.mu.Unlock()
		return
	}
	if s.reconnectTimer != nil {
		// A reconnect is already scheduled.
		s.mu.Unlock()
		return
	}
	if s.attempts >= s.maxAttempts {
		s.state = stateExhausted
		att := s.pending
		s.pending = nil
		s.mu.Unlock()
		s.log.Error().Int("attempts", s.maxAttempts).Msg("Reconnect budget exhausted")
		if att != nil {
			att.resolve(nil, ErrReconnectExhausted)
		}
		return
	}
	s.attempts++
	s.state = stateReconnecting
	n := s.attempts
	s.reconnectTimer = time.AfterFunc(s.reconnectInterval, s.retryConnect)
	s.mu.Unlock()

	s.log.Warn().
		Int("attempt", n).
		Int("max", s.maxAttempts).
		Dur("backoff", s.reconnectInterval).
		Msg("Disconnected from WhatsApp, scheduling reconnect")
}

func (s *Supervisor) retryConnect() {
	s.mu.Lock()
	s.reconnectTimer = nil
	if s.state != stateReconnecting {
		s.mu.Unlock()
		return
	}
	sess := s.sess
	s.mu.Unlock()

	if sess == nil {
		return
	}
	s.log.Info().Msg("Attempting to reconnect")
	if err := sess.Connect(); err != nil {
		s.log.Warn().Err(err).Msg("Reconnect attempt failed")
		s.handleDrop()
	}
}

func (s *Supervisor) stopReconnectTimerLocked() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
}

func (s *Supervisor) consumeQR(ch <-chan whatsmeow.QRChannelItem) {
	for evt := range ch {
		switch evt.Event {
		case "code":
			s.setPairingCode(evt.Code)
		case "timeout":
			s.log.Warn().Msg("QR code timed out before it was scanned")
		case "success":
			s.log.Debug().Msg("QR pairing succeeded")
		}
	}
}

func (s *Supervisor) setPairingCode(code string) {
	s.mu.Lock()
	s.qrCode = code
	s.qrIssuedAt = s.now()
	s.mu.Unlock()

	s.log.Info().Msg("New QR pairing code issued")
	if s.PrintQR {
		qrterminal.GenerateHalfBlock(code, qrterminal.H, os.Stdout)
	}
}

// Status returns a non-blocking snapshot of the connection state. It never
// triggers a connection attempt.
func (s *Supervisor) Status() models.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	connected := s.state == stateAuthenticated && s.sess != nil && s.sess.IsConnected()
	return models.ConnectionStatus{
		Connected:  connected,
		HasSession: s.sess != nil,
		Attempts:   s.attempts,
		User:       s.user,
	}
}

// PairingCode returns the current QR code while it is within its TTL, or
// nil once expired. Expiry is lazy; no background timer is involved.
func (s *Supervisor) PairingCode() *models.PairingCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.qrCode == "" {
		return nil
	}
	age := s.now().Sub(s.qrIssuedAt)
	if age >= qrCodeTTL {
		return nil
	}
	return &models.PairingCode{
		Code:      s.qrCode,
		IssuedAt:  s.qrIssuedAt,
		ExpiresIn: (qrCodeTTL - age).Milliseconds(),
	}
}

// ClearSession wipes the persisted credentials and the in-memory session
// and pairing state, returning the supervisor to idle.
func (s *Supervisor) ClearSession() error {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	att := s.pending
	s.pending = nil
	s.state = stateIdle
	s.attempts = 0
	s.qrCode = ""
	s.qrIssuedAt = time.Time{}
	s.user = ""
	s.stopReconnectTimerLocked()
	s.mu.Unlock()

	if sess != nil {
		sess.Disconnect()
	}
	if att != nil {
		att.resolve(nil, ErrSessionExpired)
	}
	if err := s.factory.Wipe(context.Background()); err != nil {
		return fmt.Errorf("failed to wipe credential store: %w", err)
	}
	s.log.Info().Msg("Session data cleared")
	return nil
}

// Disconnect logs out the current session best-effort, clears all local
// and persisted session state, and immediately starts a new connection
// attempt so a fresh pairing code becomes available. A server-side logout
// failure is reported but does not block the local reset.
func (s *Supervisor) Disconnect() error {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	var logoutErr error
	if sess != nil {
		if err := sess.Logout(context.Background()); err != nil {
			s.log.Warn().Err(err).Msg("Logout failed, resetting local state anyway")
			logoutErr = fmt.Errorf("logout failed: %w", err)
		}
	}

	if err := s.ClearSession(); err != nil {
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.connectTimeout)
		defer cancel()
		if _, err := s.Acquire(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Re-connect after disconnect did not complete")
		}
	}()

	return logoutErr
}

// Shutdown disconnects the live session without touching persisted
// credentials. Used on process exit.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.state = stateIdle
	att := s.pending
	s.pending = nil
	s.stopReconnectTimerLocked()
	s.mu.Unlock()

	if att != nil {
		att.resolve(nil, ErrConnectionTimeout)
	}
	if sess != nil {
		sess.Disconnect()
	}
	s.log.Info().Msg("WhatsApp session disconnected")
}

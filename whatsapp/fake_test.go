package whatsapp

import (
	"context"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/anshulj/wa-checker/utils"
)

func init() {
	utils.Init("error")
}

// fakeSession scripts the protocol surface for supervisor and worker tests.
type fakeSession struct {
	mu            sync.Mutex
	handler       func(evt interface{})
	connectErr    error
	connectDelay  time.Duration
	notifyConnect bool
	logoutErr     error
	creds         bool
	user          string
	connected     bool

	connectCalls int
	logoutCalls  int
	disconnects  int

	onWhatsApp func(numbers []string) ([]types.IsOnWhatsAppResponse, error)
	sendErr    error
	sentTo     []string
	sentTexts  []string
}

func (f *fakeSession) Connect() error {
	f.mu.Lock()
	f.connectCalls++
	err := f.connectErr
	delay := f.connectDelay
	notify := f.notifyConnect
	handler := f.handler
	if err == nil {
		f.connected = true
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if notify && handler != nil {
		handler(&events.Connected{})
	}
	return nil
}

func (f *fakeSession) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.connected = false
}

func (f *fakeSession) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeSession) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSession) IsLoggedIn() bool {
	return f.IsConnected()
}

func (f *fakeSession) HasCredentials() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds
}

func (f *fakeSession) UserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeSession) QRChannel(ctx context.Context) (<-chan whatsmeow.QRChannelItem, error) {
	ch := make(chan whatsmeow.QRChannelItem)
	close(ch)
	return ch, nil
}

func (f *fakeSession) AddEventHandler(handler func(evt interface{})) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

func (f *fakeSession) IsOnWhatsApp(numbers []string) ([]types.IsOnWhatsAppResponse, error) {
	f.mu.Lock()
	fn := f.onWhatsApp
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(numbers)
}

func (f *fakeSession) SendText(ctx context.Context, to types.JID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentTo = append(f.sentTo, to.User)
	f.sentTexts = append(f.sentTexts, text)
	return nil
}

// emit dispatches a lifecycle event through the registered handler.
func (f *fakeSession) emit(evt interface{}) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(evt)
	}
}

// fakeFactory hands out a scripted session and records wipes.
type fakeFactory struct {
	mu       sync.Mutex
	sess     *fakeSession
	newErr   error
	newCalls int
	wipes    int
}

func (f *fakeFactory) NewSession(ctx context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newCalls++
	if f.newErr != nil {
		return nil, f.newErr
	}
	return f.sess, nil
}

func (f *fakeFactory) Wipe(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wipes++
	return nil
}

func (f *fakeFactory) wipeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wipes
}

func (f *fakeFactory) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newCalls
}

// fixedProvider hands out a fixed session without a supervisor.
type fixedProvider struct {
	sess Session
	err  error
}

func (p *fixedProvider) Acquire(ctx context.Context) (Session, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.sess, nil
}

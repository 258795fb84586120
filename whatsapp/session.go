package whatsapp

import (
	"context"
	"strings"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

// Session is the protocol-level surface the supervisor and the bulk workers
// drive. It wraps the underlying WhatsApp client as an opaque capability:
// connect, query registration, send a text, emit lifecycle events.
type Session interface {
	Connect() error
	Disconnect()
	Logout(ctx context.Context) error
	IsConnected() bool
	IsLoggedIn() bool
	HasCredentials() bool
	UserID() string
	QRChannel(ctx context.Context) (<-chan whatsmeow.QRChannelItem, error)
	AddEventHandler(handler func(evt interface{}))
	IsOnWhatsApp(numbers []string) ([]types.IsOnWhatsAppResponse, error)
	SendText(ctx context.Context, to types.JID, text string) error
}

// SessionFactory creates sessions bound to the persisted credential store
// and wipes that store when the session is invalidated.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
	Wipe(ctx context.Context) error
}

type waSession struct {
	client *whatsmeow.Client
}

// WrapClient adapts a whatsmeow client to the Session interface.
func WrapClient(client *whatsmeow.Client) Session {
	return &waSession{client: client}
}

func (s *waSession) Connect() error {
	return s.client.Connect()
}

func (s *waSession) Disconnect() {
	s.client.Disconnect()
}

func (s *waSession) Logout(ctx context.Context) error {
	return s.client.Logout(ctx)
}

func (s *waSession) IsConnected() bool {
	return s.client.IsConnected()
}

func (s *waSession) IsLoggedIn() bool {
	return s.client.IsLoggedIn()
}

func (s *waSession) HasCredentials() bool {
	return s.client.Store.ID != nil
}

func (s *waSession) UserID() string {
	if s.client.Store.ID == nil {
		return ""
	}
	return s.client.Store.ID.User
}

func (s *waSession) QRChannel(ctx context.Context) (<-chan whatsmeow.QRChannelItem, error) {
	return s.client.GetQRChannel(ctx)
}

func (s *waSession) AddEventHandler(handler func(evt interface{})) {
	s.client.AddEventHandler(handler)
}

func (s *waSession) IsOnWhatsApp(numbers []string) ([]types.IsOnWhatsAppResponse, error) {
	return s.client.IsOnWhatsApp(numbers)
}

func (s *waSession) SendText(ctx context.Context, to types.JID, text string) error {
	_, err := s.client.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(text),
	})
	return err
}

// ToJID converts a formatted international number (e.g. +919876543210) to a
// WhatsApp user JID.
func ToJID(formattedNumber string) types.JID {
	return types.NewJID(strings.TrimPrefix(formattedNumber, "+"), types.DefaultUserServer)
}

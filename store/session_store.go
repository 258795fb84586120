package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"

	"github.com/anshulj/wa-checker/utils"
	"github.com/anshulj/wa-checker/whatsapp"
)

// CredentialStore persists WhatsApp device credentials in a sqlite-backed
// whatsmeow container. Exactly one device is kept per process instance;
// wiping it deletes every stored device.
type CredentialStore struct {
	path string

	mu        sync.Mutex
	container *sqlstore.Container
}

// NewCredentialStore creates a credential store at the given sqlite path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

func (cs *CredentialStore) open(ctx context.Context) (*sqlstore.Container, error) {
	if cs.container != nil {
		return cs.container, nil
	}
	if dir := filepath.Dir(cs.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}
	dbLog := whatsapp.NewWALogger(utils.Logger, "Database")
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", cs.path), dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	cs.container = container
	return container, nil
}

// NewSession creates a session bound to the stored device, creating a fresh
// device when none exists yet. The session is not connected.
func (cs *CredentialStore) NewSession(ctx context.Context) (whatsapp.Session, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	container, err := cs.open(ctx)
	if err != nil {
		return nil, err
	}

	// GetFirstDevice creates a fresh device when none is stored, so an
	// error here is a real store failure.
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	client := whatsmeow.NewClient(device, whatsapp.NewWALogger(utils.Logger, "Client"))
	client.EnableAutoReconnect = false
	return whatsapp.WrapClient(client), nil
}

// Wipe deletes every persisted device from the store.
func (cs *CredentialStore) Wipe(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	container, err := cs.open(ctx)
	if err != nil {
		return err
	}

	devices, err := container.GetAllDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	for _, device := range devices {
		if err := container.DeleteDevice(ctx, device); err != nil {
			return fmt.Errorf("failed to delete device: %w", err)
		}
	}
	return nil
}

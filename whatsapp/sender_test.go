package whatsapp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anshulj/wa-checker/models"
	"github.com/anshulj/wa-checker/phone"
)

type memoryHistory struct {
	mu       sync.Mutex
	batchIDs []string
	contents []string
	outcomes []models.SendOutcome
	err      error
}

func (m *memoryHistory) RecordOutcome(batchID, content string, outcome models.SendOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchIDs = append(m.batchIDs, batchID)
	m.contents = append(m.contents, content)
	m.outcomes = append(m.outcomes, outcome)
	return m.err
}

func newTestSender(sess Session, history HistoryStore) *Sender {
	s := NewSender(&fixedProvider{sess: sess}, phone.NewFormatter("91"), history)
	s.SendDelay = 0
	return s
}

func TestSendManySkipsUnregisteredNumbers(t *testing.T) {
	sess := &fakeSession{onWhatsApp: registeredOn("+919876543210")}
	s := newTestSender(sess, nil)

	outcomes, err := s.SendMany(context.Background(), []string{"9876543210", "9123456780"}, "hello")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, models.StatusSent, outcomes[0].Status)
	assert.Equal(t, "9876543210", outcomes[0].Number)
	assert.False(t, outcomes[0].Timestamp.IsZero())

	assert.Equal(t, models.StatusFailed, outcomes[1].Status)
	assert.Equal(t, models.ReasonNotOnWhatsApp, outcomes[1].Reason)

	// The unregistered number must never reach the wire.
	require.Len(t, sess.sentTo, 1)
	assert.Equal(t, "919876543210", sess.sentTo[0])
	assert.Equal(t, []string{"hello"}, sess.sentTexts)
}

func TestSendManySendFailureIsPerNumber(t *testing.T) {
	sess := &fakeSession{
		onWhatsApp: registeredOn("+919876543210", "+919123456780"),
		sendErr:    assert.AnError,
	}
	s := newTestSender(sess, nil)

	outcomes, err := s.SendMany(context.Background(), []string{"9876543210", "9123456780"}, "hi")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, models.StatusFailed, outcomes[0].Status)
	assert.Equal(t, assert.AnError.Error(), outcomes[0].Reason)
	assert.Equal(t, models.StatusFailed, outcomes[1].Status)
}

func TestSendManyPropagatesAcquisitionFailure(t *testing.T) {
	s := NewSender(&fixedProvider{err: ErrConnectionTimeout}, phone.NewFormatter("91"), nil)

	_, err := s.SendMany(context.Background(), []string{"9876543210"}, "hi")
	require.ErrorIs(t, err, ErrConnectionTimeout)
}

func TestSendManyRecordsEveryOutcome(t *testing.T) {
	sess := &fakeSession{onWhatsApp: registeredOn("+919876543210")}
	history := &memoryHistory{}
	s := newTestSender(sess, history)

	outcomes, err := s.SendMany(context.Background(), []string{"9876543210", "9123456780"}, "hello")
	require.NoError(t, err)

	require.Len(t, history.outcomes, len(outcomes))
	assert.Equal(t, history.batchIDs[0], history.batchIDs[1], "one batch id per call")
	assert.Equal(t, "hello", history.contents[0])
	assert.Equal(t, models.StatusSent, history.outcomes[0].Status)
	assert.Equal(t, models.StatusFailed, history.outcomes[1].Status)
}

func TestSendManyHistoryErrorsDoNotFailTheBatch(t *testing.T) {
	sess := &fakeSession{onWhatsApp: registeredOn("+919876543210")}
	history := &memoryHistory{err: assert.AnError}
	s := newTestSender(sess, history)

	outcomes, err := s.SendMany(context.Background(), []string{"9876543210"}, "hello")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.StatusSent, outcomes[0].Status)
}

func TestSendManyCancelledMidBatchFailsRemaining(t *testing.T) {
	sess := &fakeSession{onWhatsApp: registeredOn("+919876543210")}
	history := &memoryHistory{}
	s := newTestSender(sess, history)
	s.SendDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := s.SendMany(ctx, []string{"9876543210", "9123456780"}, "hello")
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, models.StatusFailed, outcomes[1].Status)
	assert.Len(t, history.outcomes, 2, "skipped entries are still recorded")
}

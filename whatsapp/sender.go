package whatsapp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anshulj/wa-checker/models"
	"github.com/anshulj/wa-checker/phone"
	"github.com/anshulj/wa-checker/utils"
)

const defaultSendDelay = 800 * time.Millisecond

// HistoryStore records bulk-send outcomes for later reporting. Optional.
type HistoryStore interface {
	RecordOutcome(batchID, content string, outcome models.SendOutcome) error
}

// Sender delivers a text message to many numbers, one at a time, verifying
// registration before each send. Sends are strictly sequential with a
// fixed delay between them to respect upstream rate limits.
type Sender struct {
	provider  SessionProvider
	formatter *phone.Formatter
	history   HistoryStore // may be nil

	SendDelay time.Duration
}

// NewSender creates a bulk messenger. history may be nil to disable the
// outbound audit log.
func NewSender(provider SessionProvider, formatter *phone.Formatter, history HistoryStore) *Sender {
	return &Sender{
		provider:  provider,
		formatter: formatter,
		history:   history,
		SendDelay: defaultSendDelay,
	}
}

// SendOne verifies the number is registered and then makes exactly one send
// attempt. Unregistered numbers fail with not_on_whatsapp and are never
// sent to.
func (s *Sender) SendOne(ctx context.Context, sess Session, number, text string) models.SendOutcome {
	formatted := s.formatter.Format(number)
	outcome := models.SendOutcome{
		Number:          number,
		FormattedNumber: formatted,
	}

	resp, err := sess.IsOnWhatsApp([]string{formatted})
	switch {
	case err != nil:
		outcome.Status = models.StatusFailed
		outcome.Reason = err.Error()
	case len(resp) == 0 || !resp[0].IsIn:
		outcome.Status = models.StatusFailed
		outcome.Reason = models.ReasonNotOnWhatsApp
	default:
		if err := sess.SendText(ctx, ToJID(formatted), text); err != nil {
			outcome.Status = models.StatusFailed
			outcome.Reason = err.Error()
		} else {
			outcome.Status = models.StatusSent
		}
	}

	outcome.Timestamp = time.Now()
	return outcome
}

// SendMany acquires one session for the whole batch and sends sequentially,
// returning outcomes 1:1 with the input order. Aggregate counts are left to
// the caller.
func (s *Sender) SendMany(ctx context.Context, numbers []string, text string) ([]models.SendOutcome, error) {
	sess, err := s.provider.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	log := utils.Logger.With().Str("batch", batchID).Logger()
	log.Info().Int("count", len(numbers)).Msg("Starting bulk send")

	outcomes := make([]models.SendOutcome, 0, len(numbers))
	for i, number := range numbers {
		if i > 0 {
			if err := sleep(ctx, s.SendDelay); err != nil {
				for _, rest := range numbers[i:] {
					outcome := models.SendOutcome{
						Number:          rest,
						FormattedNumber: s.formatter.Format(rest),
						Status:          models.StatusFailed,
						Reason:          err.Error(),
						Timestamp:       time.Now(),
					}
					outcomes = append(outcomes, outcome)
					s.record(log, batchID, text, outcome)
				}
				return outcomes, nil
			}
		}
		outcome := s.SendOne(ctx, sess, number, text)
		outcomes = append(outcomes, outcome)
		s.record(log, batchID, text, outcome)
	}

	log.Info().Int("count", len(outcomes)).Msg("Bulk send finished")
	return outcomes, nil
}

// record persists one outcome to the history store when it is configured.
// History failures are logged and never fail the send itself.
func (s *Sender) record(log zerolog.Logger, batchID, content string, outcome models.SendOutcome) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordOutcome(batchID, content, outcome); err != nil {
		log.Warn().Err(err).Str("number", outcome.Number).Msg("Failed to record send outcome")
	}
}

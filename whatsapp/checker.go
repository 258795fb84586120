package whatsapp

import (
	"context"
	"time"

	"go.mau.fi/whatsmeow/types"

	"github.com/anshulj/wa-checker/models"
	"github.com/anshulj/wa-checker/phone"
	"github.com/anshulj/wa-checker/utils"
)

// Upstream rate limits require spacing between registration probes.
const (
	defaultProbeDelay  = 500 * time.Millisecond
	defaultNumberDelay = time.Second
)

// SessionProvider hands out the single authenticated session, establishing
// it first if necessary.
type SessionProvider interface {
	Acquire(ctx context.Context) (Session, error)
}

// Checker probes whether phone numbers are registered on WhatsApp. Probes
// run strictly sequentially; the inter-probe delays are part of the
// contract with the upstream rate limiter, not an optimization.
type Checker struct {
	provider  SessionProvider
	formatter *phone.Formatter

	ProbeDelay  time.Duration
	NumberDelay time.Duration
}

// NewChecker creates a registration checker with the default throttling.
func NewChecker(provider SessionProvider, formatter *phone.Formatter) *Checker {
	return &Checker{
		provider:    provider,
		formatter:   formatter,
		ProbeDelay:  defaultProbeDelay,
		NumberDelay: defaultNumberDelay,
	}
}

// CheckOne probes each candidate encoding of a raw number in order and
// returns the first match. Individual probe failures are treated as
// non-matches; when nothing matched the result carries the canonical format
// with exists=false.
func (c *Checker) CheckOne(ctx context.Context, sess Session, number string) models.RegistrationResult {
	candidates := c.formatter.Candidates(number)
	log := utils.Logger.With().Str("number", number).Logger()
	log.Debug().Strs("candidates", candidates).Msg("Checking number")

	var lastErr error
	failed := 0
	for i, candidate := range candidates {
		if i > 0 {
			if err := sleep(ctx, c.ProbeDelay); err != nil {
				lastErr = err
				failed = len(candidates)
				break
			}
		}
		resp, err := sess.IsOnWhatsApp([]string{candidate})
		if err != nil {
			log.Debug().Err(err).Str("candidate", candidate).Msg("Probe failed")
			lastErr = err
			failed++
			continue
		}
		if len(resp) > 0 && resp[0].IsIn {
			return models.RegistrationResult{
				Number:          number,
				FormattedNumber: candidate,
				Exists:          true,
				Info:            registrationInfo(resp[0]),
			}
		}
	}

	result := models.RegistrationResult{
		Number:          number,
		FormattedNumber: c.formatter.Format(number),
	}
	// Only report an error when no candidate could be probed at all, e.g.
	// the session was lost mid-batch.
	if lastErr != nil && failed >= len(candidates) {
		result.Error = lastErr.Error()
	}
	return result
}

// CheckMany checks a batch of numbers sequentially against one acquired
// session, results ordered 1:1 with the input. Per-number failures are
// captured into that entry and never abort the batch; only the initial
// session acquisition can fail the call.
func (c *Checker) CheckMany(ctx context.Context, numbers []string) ([]models.RegistrationResult, error) {
	sess, err := c.provider.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.RegistrationResult, 0, len(numbers))
	for i, number := range numbers {
		if i > 0 {
			if err := sleep(ctx, c.NumberDelay); err != nil {
				// Request cancelled: keep the 1:1 result ordering by
				// recording the remaining entries as failed.
				for _, rest := range numbers[i:] {
					results = append(results, models.RegistrationResult{
						Number:          rest,
						FormattedNumber: c.formatter.Format(rest),
						Error:           err.Error(),
					})
				}
				return results, nil
			}
		}
		results = append(results, c.CheckOne(ctx, sess, number))
	}
	return results, nil
}

func registrationInfo(resp types.IsOnWhatsAppResponse) *models.RegistrationInfo {
	info := &models.RegistrationInfo{JID: resp.JID.String()}
	if resp.VerifiedName != nil && resp.VerifiedName.Details != nil {
		info.VerifiedName = resp.VerifiedName.Details.GetVerifiedName()
	}
	return info
}

// sleep waits for the given duration unless the context is cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

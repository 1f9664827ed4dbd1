package sherpa

import (
	"context"
	"fmt"
	"time"

	"github.com/sherpa-assist/sherpa-backend/internal/models"
	"github.com/sherpa-assist/sherpa-backend/internal/services/ai"
	"github.com/sherpa-assist/sherpa-backend/internal/validation"
	"go.uber.org/zap"
)

// ExtractionError indicates the extraction call failed or returned output
// that could not be used. Retrying is the caller's decision.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// KeepPolicy decides whether an extracted payload should survive filtering.
// It runs before validation, on the raw payload.
type KeepPolicy func(p models.ItemPayload) bool

// DropConversational is the default keep policy: item types that describe the
// user's state of mind rather than actionable work are filtered out.
func DropConversational(p models.ItemPayload) bool {
	return !models.ItemType(p.Type).IsConversational()
}

// KeepAll keeps every extracted payload, conversational or not
func KeepAll(models.ItemPayload) bool {
	return true
}

// Extractor turns free text into validated focus drafts
type Extractor struct {
	provider ai.Provider
	keep     KeepPolicy
	logger   *zap.Logger
}

// NewExtractor creates an extractor with the default keep policy
func NewExtractor(provider ai.Provider, logger *zap.Logger) *Extractor {
	return &Extractor{
		provider: provider,
		keep:     DropConversational,
		logger:   logger,
	}
}

// WithKeepPolicy overrides the filtering policy
func (e *Extractor) WithKeepPolicy(keep KeepPolicy) *Extractor {
	e.keep = keep
	return e
}

// Extract asks the provider to break input into items, filters them through
// the keep policy, and validates the survivors. A surviving item that fails
// validation fails the whole call with ExtractionError: an empty result must
// always mean the model found nothing, never that output was discarded.
func (e *Extractor) Extract(ctx context.Context, input string, now time.Time, exclusions []string) ([]models.FocusDraft, error) {
	payloads, err := e.provider.ExtractItems(ctx, input, now, exclusions)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	drafts := make([]models.FocusDraft, 0, len(payloads))
	for _, p := range payloads {
		if !e.keep(p) {
			e.logger.Debug("dropped conversational item",
				zap.String("type", p.Type),
			)
			continue
		}

		draft, err := validation.ValidateItem(p, now)
		if err != nil {
			e.logger.Warn("extracted item failed validation",
				zap.String("type", p.Type),
				zap.Error(err),
			)
			return nil, &ExtractionError{Err: err}
		}

		drafts = append(drafts, *draft)
	}

	return drafts, nil
}

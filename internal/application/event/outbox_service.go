// Package event exposes operational views of the event outbox: delivery
// statistics and dead letter recovery.
package event

import (
	"context"
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxEntryDTO is the API view of an outbox entry
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxStatsDTO counts outbox entries per delivery status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// OutboxService inspects the outbox and requeues dead letters
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger}
}

// ListDeadLetters pages through entries that exhausted their retries
func (s *OutboxService) ListDeadLetters(ctx context.Context, page, pageSize int) (shared.Paginated[OutboxEntryDTO], error) {
	filter := shared.Filter{Page: page, PageSize: pageSize}.Normalize()
	entries, total, err := s.repo.FindDead(ctx, filter)
	if err != nil {
		return shared.Paginated[OutboxEntryDTO]{}, err
	}

	items := make([]OutboxEntryDTO, len(entries))
	for i, entry := range entries {
		items[i] = toOutboxEntryDTO(entry)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// RetryDeadLetter puts one dead letter back into the pending queue
func (s *OutboxService) RetryDeadLetter(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.NewDomainError(shared.CodeValidation, err.Error()).
			WithDetail("status", string(entry.Status))
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("dead letter requeued",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDeadLetters requeues every dead letter and returns how many were requeued
func (s *OutboxService) RetryAllDeadLetters(ctx context.Context) (int64, error) {
	var requeued int64
	for {
		// requeued entries leave the dead set, so the first page is always the next batch
		entries, _, err := s.repo.FindDead(ctx, shared.Filter{Page: 1, PageSize: 100})
		if err != nil {
			return requeued, err
		}
		if len(entries) == 0 {
			break
		}

		progressed := false
		for _, entry := range entries {
			if entry.ResetForRetry() != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("failed to requeue dead letter", zap.String("id", entry.ID.String()), zap.Error(err))
				continue
			}
			requeued++
			progressed = true
		}
		if !progressed {
			break
		}
	}

	s.logger.Info("dead letters requeued", zap.Int64("count", requeued))
	return requeued, nil
}

// GetStats counts entries per status
func (s *OutboxService) GetStats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}

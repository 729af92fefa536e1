package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
)

// EventKind names a lifecycle transition recorded to the operations ledger.
type EventKind string

const (
	EventPublished       EventKind = "published"
	EventFunded          EventKind = "funded"
	EventPartiallyFunded EventKind = "partially_funded"
	EventWithdrawn       EventKind = "withdrawn"
	EventRefunded        EventKind = "refunded"
	EventTokenRecovered  EventKind = "token_recovered"
)

// Event is a single append-only ledger entry.
type Event struct {
	IntentHash [32]byte
	Kind       EventKind
	Detail     map[string]interface{}
}

// EventRepository persists the lifecycle's operations ledger, following
// the teacher's repository-per-entity split (database/repository_batch.go).
type EventRepository struct {
	client *Client
}

// NewEventRepository builds a repository over client.
func NewEventRepository(client *Client) *EventRepository {
	return &EventRepository{client: client}
}

// Record appends ev to the ledger.
func (r *EventRepository) Record(ctx context.Context, ev Event) error {
	detail, err := json.Marshal(ev.Detail)
	if err != nil {
		return fmt.Errorf("lifecycle: marshal event detail: %w", err)
	}
	_, err = r.client.DB().ExecContext(ctx,
		`INSERT INTO lifecycle_events (intent_hash, kind, detail) VALUES ($1, $2, $3)`,
		ev.IntentHash[:], string(ev.Kind), detail)
	if err != nil {
		return fmt.Errorf("lifecycle: recording event: %w", err)
	}
	return nil
}

// ListByIntent returns every recorded event for intentHash, oldest first.
func (r *EventRepository) ListByIntent(ctx context.Context, intentHash [32]byte) ([]Event, error) {
	rows, err := r.client.DB().QueryContext(ctx,
		`SELECT kind, detail FROM lifecycle_events WHERE intent_hash = $1 ORDER BY id ASC`,
		intentHash[:])
	if err != nil {
		return nil, fmt.Errorf("lifecycle: listing events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var kind string
		var detailRaw []byte
		if err := rows.Scan(&kind, &detailRaw); err != nil {
			return nil, fmt.Errorf("lifecycle: scanning event: %w", err)
		}
		var detail map[string]interface{}
		if err := json.Unmarshal(detailRaw, &detail); err != nil {
			return nil, fmt.Errorf("lifecycle: unmarshal event detail: %w", err)
		}
		out = append(out, Event{IntentHash: intentHash, Kind: EventKind(kind), Detail: detail})
	}
	return out, rows.Err()
}

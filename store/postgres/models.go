package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/shelf/account"
	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/item"
	"github.com/xraph/shelf/snapshot"
)

// ==================== Event models ====================

type eventModel struct {
	grove.BaseModel `grove:"table:shelf_events"`

	Sequence   int64           `grove:"sequence,pk"`
	ID         string          `grove:"id"`
	Kind       string          `grove:"kind"`
	Caller     string          `grove:"caller"`
	Payload    json.RawMessage `grove:"payload,type:jsonb"`
	OccurredAt time.Time       `grove:"occurred_at"`
}

func toEventModel(rec *event.Record) (*eventModel, error) {
	payload, err := event.Encode(rec.Event)
	if err != nil {
		return nil, err
	}

	return &eventModel{
		Sequence:   int64(rec.Sequence), //nolint:gosec // sequences stay far below MaxInt64
		ID:         rec.ID.String(),
		Kind:       string(rec.Kind()),
		Caller:     rec.Caller.String(),
		Payload:    payload,
		OccurredAt: rec.OccurredAt,
	}, nil
}

func fromEventModel(m *eventModel) (*event.Record, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}
	var caller id.AccountID
	if err := caller.UnmarshalText([]byte(m.Caller)); err != nil {
		return nil, fmt.Errorf("shelf/postgres: record %d caller: %w", m.Sequence, err)
	}
	e, err := event.Decode(event.Kind(m.Kind), m.Payload)
	if err != nil {
		return nil, err
	}

	return &event.Record{
		ID:         evtID,
		Sequence:   uint64(m.Sequence), //nolint:gosec // column is never negative
		Caller:     caller,
		Event:      e,
		OccurredAt: m.OccurredAt.UTC(),
	}, nil
}

// ==================== Snapshot models ====================

type snapshotModel struct {
	grove.BaseModel `grove:"table:shelf_snapshots"`

	ID       string          `grove:"id,pk"`
	Sequence int64           `grove:"sequence"`
	Owner    string          `grove:"owner"`
	Items    json.RawMessage `grove:"items,type:jsonb"`
	Accounts json.RawMessage `grove:"accounts,type:jsonb"`
	TakenAt  time.Time       `grove:"taken_at"`
}

func toSnapshotModel(s *snapshot.Snapshot) (*snapshotModel, error) {
	items, err := json.Marshal(s.Items)
	if err != nil {
		return nil, fmt.Errorf("shelf/postgres: encode snapshot items: %w", err)
	}
	accounts, err := json.Marshal(s.Accounts)
	if err != nil {
		return nil, fmt.Errorf("shelf/postgres: encode snapshot accounts: %w", err)
	}

	return &snapshotModel{
		ID:       s.ID.String(),
		Sequence: int64(s.Sequence), //nolint:gosec // sequences stay far below MaxInt64
		Owner:    s.Owner.String(),
		Items:    items,
		Accounts: accounts,
		TakenAt:  s.TakenAt,
	}, nil
}

func fromSnapshotModel(m *snapshotModel) (*snapshot.Snapshot, error) {
	snapID, err := id.ParseSnapshotID(m.ID)
	if err != nil {
		return nil, err
	}
	owner, err := id.ParseAccountID(m.Owner)
	if err != nil {
		return nil, err
	}

	var items []item.Item
	if err := json.Unmarshal(m.Items, &items); err != nil {
		return nil, fmt.Errorf("shelf/postgres: decode snapshot items: %w", err)
	}
	var accounts []account.Account
	if err := json.Unmarshal(m.Accounts, &accounts); err != nil {
		return nil, fmt.Errorf("shelf/postgres: decode snapshot accounts: %w", err)
	}

	return &snapshot.Snapshot{
		ID:       snapID,
		Sequence: uint64(m.Sequence), //nolint:gosec // column is never negative
		Owner:    owner,
		Items:    items,
		Accounts: accounts,
		TakenAt:  m.TakenAt.UTC(),
	}, nil
}

package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/shelf/account"
	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/item"
	"github.com/xraph/shelf/snapshot"
	"github.com/xraph/shelf/types"
)

// ==================== Event models ====================

// eventModel keys journal documents by sequence, so the _id index rejects
// a second append at the same position.
type eventModel struct {
	grove.BaseModel `grove:"table:shelf_events"`

	Sequence   int64     `grove:"sequence,pk" bson:"_id"`
	ID         string    `grove:"id"          bson:"event_id"`
	Kind       string    `grove:"kind"        bson:"kind"`
	Caller     string    `grove:"caller"      bson:"caller"`
	Payload    string    `grove:"payload"     bson:"payload"`
	OccurredAt time.Time `grove:"occurred_at" bson:"occurred_at"`
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
		Payload:    string(payload),
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
		return nil, fmt.Errorf("shelf/mongo: record %d caller: %w", m.Sequence, err)
	}
	e, err := event.Decode(event.Kind(m.Kind), []byte(m.Payload))
	if err != nil {
		return nil, err
	}

	return &event.Record{
		ID:         evtID,
		Sequence:   uint64(m.Sequence), //nolint:gosec // _id is never negative
		Caller:     caller,
		Event:      e,
		OccurredAt: m.OccurredAt.UTC(),
	}, nil
}

// ==================== Snapshot models ====================

type snapshotModel struct {
	grove.BaseModel `grove:"table:shelf_snapshots"`

	ID       string         `grove:"id,pk"    bson:"_id"`
	Sequence int64          `grove:"sequence" bson:"sequence"`
	Owner    string         `grove:"owner"    bson:"owner"`
	Items    []itemModel    `grove:"items"    bson:"items"`
	Accounts []accountModel `grove:"accounts" bson:"accounts"`
	TakenAt  time.Time      `grove:"taken_at" bson:"taken_at"`
}

// Amounts are stored as decimal strings; BSON has no 256-bit integer.
type itemModel struct {
	ID        string    `bson:"id"`
	Title     string    `bson:"title"`
	Author    string    `bson:"author"`
	Price     string    `bson:"price"`
	Stock     int64     `bson:"stock"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type accountModel struct {
	ID        string    `bson:"id"`
	Balance   string    `bson:"balance"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toSnapshotModel(s *snapshot.Snapshot) *snapshotModel {
	items := make([]itemModel, len(s.Items))
	for i, it := range s.Items {
		items[i] = itemModel{
			ID:        it.ID.String(),
			Title:     it.Title,
			Author:    it.Author,
			Price:     it.Price.String(),
			Stock:     int64(it.Stock),
			CreatedAt: it.CreatedAt,
			UpdatedAt: it.UpdatedAt,
		}
	}
	accounts := make([]accountModel, len(s.Accounts))
	for i, a := range s.Accounts {
		accounts[i] = accountModel{
			ID:        a.ID.String(),
			Balance:   a.Balance.String(),
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		}
	}

	return &snapshotModel{
		ID:       s.ID.String(),
		Sequence: int64(s.Sequence), //nolint:gosec // sequences stay far below MaxInt64
		Owner:    s.Owner.String(),
		Items:    items,
		Accounts: accounts,
		TakenAt:  s.TakenAt,
	}
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

	items := make([]item.Item, len(m.Items))
	for i, im := range m.Items {
		itemID, err := id.ParseItemID(im.ID)
		if err != nil {
			return nil, err
		}
		price, err := types.ParseAmount(im.Price)
		if err != nil {
			return nil, fmt.Errorf("shelf/mongo: item %s price: %w", im.ID, err)
		}
		items[i] = item.Item{
			Entity: types.Entity{CreatedAt: im.CreatedAt.UTC(), UpdatedAt: im.UpdatedAt.UTC()},
			ID:     itemID,
			Title:  im.Title,
			Author: im.Author,
			Price:  price,
			Stock:  uint32(im.Stock), //nolint:gosec // written from a uint32
		}
	}

	accounts := make([]account.Account, len(m.Accounts))
	for i, am := range m.Accounts {
		acctID, err := id.ParseAccountID(am.ID)
		if err != nil {
			return nil, err
		}
		balance, err := types.ParseAmount(am.Balance)
		if err != nil {
			return nil, fmt.Errorf("shelf/mongo: account %s balance: %w", am.ID, err)
		}
		accounts[i] = account.Account{
			Entity:  types.Entity{CreatedAt: am.CreatedAt.UTC(), UpdatedAt: am.UpdatedAt.UTC()},
			ID:      acctID,
			Balance: balance,
		}
	}

	return &snapshot.Snapshot{
		ID:       snapID,
		Sequence: uint64(m.Sequence), //nolint:gosec // never negative
		Owner:    owner,
		Items:    items,
		Accounts: accounts,
		TakenAt:  m.TakenAt.UTC(),
	}, nil
}

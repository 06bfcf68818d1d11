package shelf

import (
	"fmt"
	"slices"
	"time"

	"github.com/xraph/shelf/account"
	"github.com/xraph/shelf/event"
	"github.com/xraph/shelf/id"
	"github.com/xraph/shelf/item"
	"github.com/xraph/shelf/snapshot"
	"github.com/xraph/shelf/types"
)

// State is the ledger's aggregate: inventory, balances, the owner and the
// sequence of the last applied record.
//
// State changes only through Apply. The decide* methods read State and
// return the event an operation would produce, or the reason it is
// rejected; they never mutate. Together they make every operation a pure
// function of (state, input).
type State struct {
	owner    id.AccountID
	items    map[id.ItemID]item.Item
	accounts map[id.AccountID]account.Account
	sequence uint64
}

// NewState returns an empty state owned by owner.
func NewState(owner id.AccountID) *State {
	return &State{
		owner:    owner,
		items:    make(map[id.ItemID]item.Item),
		accounts: make(map[id.AccountID]account.Account),
	}
}

// Owner returns the identity allowed to administer inventory.
func (s *State) Owner() id.AccountID { return s.owner }

// Sequence returns the sequence of the last applied record.
func (s *State) Sequence() uint64 { return s.sequence }

// Item returns a copy of the item at itemID and whether it is present.
func (s *State) Item(itemID id.ItemID) (item.Item, bool) {
	it, ok := s.items[itemID]
	return it, ok
}

// Balance returns the balance of acct, zero when it was never credited.
func (s *State) Balance(acct id.AccountID) types.Amount {
	return s.accounts[acct].Balance
}

// Items returns present items ordered by ID.
func (s *State) Items(opts item.ListOpts) []item.Item {
	result := make([]item.Item, 0, len(s.items))
	for _, it := range s.items {
		result = append(result, it)
	}
	slices.SortFunc(result, func(a, b item.Item) int { return a.ID.Compare(b.ID) })

	start := min(max(opts.Offset, 0), len(result))
	end := len(result)
	if opts.Limit > 0 && opts.Limit < end-start {
		end = start + opts.Limit
	}
	return result[start:end]
}

// ──────────────────────────────────────────────────
// Decisions
// ──────────────────────────────────────────────────

// policy carries the configurable answers to behaviors the ledger leaves
// open: whether re-adding a present item is an error, and whether crediting
// an account requires the owner.
type policy struct {
	strictAdd        bool
	ownerOnlyFunding bool
}

func (s *State) authorize(caller id.AccountID) error {
	if caller != s.owner {
		return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, caller)
	}
	return nil
}

func (s *State) decideAddItem(p policy, caller id.AccountID, itemID id.ItemID, title, author string, price types.Amount, stock uint32) (event.Event, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	if itemID.IsNil() {
		return nil, ValidationError{Field: "item_id", Message: "must be set"}
	}
	if title == "" {
		return nil, ValidationError{Field: "title", Message: "must not be empty"}
	}
	if _, exists := s.items[itemID]; exists && p.strictAdd {
		return nil, fmt.Errorf("%w: item %s", ErrAlreadyExists, itemID)
	}

	return event.ItemAdded{
		ItemID: itemID,
		Title:  title,
		Author: author,
		Price:  price,
		Stock:  stock,
	}, nil
}

func (s *State) decideUpdateItem(caller id.AccountID, itemID id.ItemID, newPrice types.Amount, newStock uint32) (event.Event, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	if _, ok := s.items[itemID]; !ok {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}

	return event.ItemUpdated{
		ItemID:   itemID,
		NewPrice: newPrice,
		NewStock: newStock,
	}, nil
}

func (s *State) decideRemoveItem(caller id.AccountID, itemID id.ItemID) (event.Event, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	if _, ok := s.items[itemID]; !ok {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}

	return event.ItemRemoved{ItemID: itemID}, nil
}

func (s *State) decideAddFunds(p policy, caller, acct id.AccountID, amount types.Amount) (event.Event, error) {
	if p.ownerOnlyFunding {
		if err := s.authorize(caller); err != nil {
			return nil, err
		}
	}
	if acct.IsNil() {
		return nil, ValidationError{Field: "account", Message: "must be set"}
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	if _, overflow := s.Balance(acct).Add(amount); overflow {
		return nil, fmt.Errorf("%w: crediting %s to account %s", ErrOverflow, amount, acct)
	}

	return event.FundsAdded{Account: acct, Amount: amount}, nil
}

func (s *State) decidePurchase(buyer id.AccountID, itemID id.ItemID, quantity uint32) (event.Event, error) {
	it, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if it.Stock < quantity {
		return nil, fmt.Errorf("%w: item %s has %d, requested %d", ErrInsufficientStock, itemID, it.Stock, quantity)
	}
	total, overflow := it.Price.MulUint32(quantity)
	if overflow {
		return nil, fmt.Errorf("%w: %s x %d", ErrOverflow, it.Price, quantity)
	}
	if balance := s.Balance(buyer); balance.LessThan(total) {
		return nil, fmt.Errorf("%w: balance %s, cost %s", ErrInsufficientFunds, balance, total)
	}

	return event.ItemPurchased{
		Buyer:     buyer,
		ItemID:    itemID,
		Quantity:  quantity,
		TotalCost: total,
	}, nil
}

// ──────────────────────────────────────────────────
// Apply
// ──────────────────────────────────────────────────

// Apply advances the state by one record. It validates the whole
// transition before writing, so a record that cannot apply leaves the
// state unchanged and reports ErrCorruptJournal.
func (s *State) Apply(rec *event.Record) error {
	if rec.Sequence != s.sequence+1 {
		return fmt.Errorf("%w: expected sequence %d, got %d", ErrCorruptJournal, s.sequence+1, rec.Sequence)
	}

	var err error
	switch e := rec.Event.(type) {
	case event.ItemAdded:
		s.applyItemAdded(e, rec.OccurredAt)
	case event.ItemUpdated:
		err = s.applyItemUpdated(e, rec.OccurredAt)
	case event.ItemRemoved:
		err = s.applyItemRemoved(e)
	case event.FundsAdded:
		err = s.applyFundsAdded(e, rec.OccurredAt)
	case event.ItemPurchased:
		err = s.applyItemPurchased(e, rec.OccurredAt)
	default:
		err = fmt.Errorf("unknown event %T", rec.Event)
	}
	if err != nil {
		return fmt.Errorf("%w: record %d: %w", ErrCorruptJournal, rec.Sequence, err)
	}

	s.sequence = rec.Sequence
	return nil
}

func (s *State) applyItemAdded(e event.ItemAdded, at time.Time) {
	s.items[e.ItemID] = item.Item{
		Entity: types.NewEntity(at),
		ID:     e.ItemID,
		Title:  e.Title,
		Author: e.Author,
		Price:  e.Price,
		Stock:  e.Stock,
	}
}

func (s *State) applyItemUpdated(e event.ItemUpdated, at time.Time) error {
	it, ok := s.items[e.ItemID]
	if !ok {
		return fmt.Errorf("update of absent item %s", e.ItemID)
	}
	it.Price = e.NewPrice
	it.Stock = e.NewStock
	it.Touch(at)
	s.items[e.ItemID] = it
	return nil
}

func (s *State) applyItemRemoved(e event.ItemRemoved) error {
	if _, ok := s.items[e.ItemID]; !ok {
		return fmt.Errorf("removal of absent item %s", e.ItemID)
	}
	delete(s.items, e.ItemID)
	return nil
}

func (s *State) applyFundsAdded(e event.FundsAdded, at time.Time) error {
	acct, ok := s.accounts[e.Account]
	if !ok {
		acct = account.Account{Entity: types.NewEntity(at), ID: e.Account}
	}
	balance, overflow := acct.Balance.Add(e.Amount)
	if overflow {
		return fmt.Errorf("credit overflows account %s", e.Account)
	}
	acct.Balance = balance
	acct.Touch(at)
	s.accounts[e.Account] = acct
	return nil
}

func (s *State) applyItemPurchased(e event.ItemPurchased, at time.Time) error {
	it, ok := s.items[e.ItemID]
	if !ok {
		return fmt.Errorf("purchase of absent item %s", e.ItemID)
	}
	if it.Stock < e.Quantity {
		return fmt.Errorf("purchase of %d exceeds stock %d of item %s", e.Quantity, it.Stock, e.ItemID)
	}
	if cost, overflow := it.Price.MulUint32(e.Quantity); overflow || !cost.Equal(e.TotalCost) {
		return fmt.Errorf("purchase cost %s does not match price %s x %d", e.TotalCost, it.Price, e.Quantity)
	}
	acct, ok := s.accounts[e.Buyer]
	if !ok {
		acct = account.Account{Entity: types.NewEntity(at), ID: e.Buyer}
	}
	balance, underflow := acct.Balance.Sub(e.TotalCost)
	if underflow {
		return fmt.Errorf("purchase cost %s exceeds balance of %s", e.TotalCost, e.Buyer)
	}

	// Both writes happen together, after every check has passed.
	it.Stock -= e.Quantity
	it.Touch(at)
	acct.Balance = balance
	acct.Touch(at)
	s.items[e.ItemID] = it
	s.accounts[e.Buyer] = acct
	return nil
}

// ──────────────────────────────────────────────────
// Snapshots
// ──────────────────────────────────────────────────

// snapshot copies the state into a Snapshot with deterministic ordering.
func (s *State) snapshot(takenAt time.Time) *snapshot.Snapshot {
	accounts := make([]account.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a)
	}
	slices.SortFunc(accounts, func(a, b account.Account) int { return a.ID.Compare(b.ID) })

	return &snapshot.Snapshot{
		ID:       id.NewSnapshotID(),
		Sequence: s.sequence,
		Owner:    s.owner,
		Items:    s.Items(item.ListOpts{}),
		Accounts: accounts,
		TakenAt:  takenAt.UTC(),
	}
}

// restoreState rebuilds a State from a snapshot taken for owner.
func restoreState(snap *snapshot.Snapshot, owner id.AccountID) (*State, error) {
	if snap.Owner != owner {
		return nil, fmt.Errorf("%w: snapshot %s belongs to %s", ErrOwnerMismatch, snap.ID, snap.Owner)
	}

	s := NewState(owner)
	for _, it := range snap.Items {
		s.items[it.ID] = it
	}
	for _, a := range snap.Accounts {
		s.accounts[a.ID] = a
	}
	s.sequence = snap.Sequence
	return s, nil
}

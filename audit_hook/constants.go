package audithook

// Action constants for audit events.
const (
	// Inventory actions
	ActionItemAdded   = "item.added"
	ActionItemUpdated = "item.updated"
	ActionItemRemoved = "item.removed"

	// Balance actions
	ActionFundsAdded    = "funds.added"
	ActionItemPurchased = "item.purchased"

	// Rejections
	ActionUnauthorized      = "operation.unauthorized"
	ActionOperationRejected = "operation.rejected"

	// Journal actions
	ActionSnapshotTaken = "snapshot.taken"
)

// Resource constants for audit events.
const (
	ResourceItem    = "item"
	ResourceAccount = "account"
	ResourceJournal = "journal"
)

// Category constants for audit events.
const (
	CategoryInventory = "inventory"
	CategoryPayment   = "payment"
	CategoryAccess    = "access"
	CategorySystem    = "system"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

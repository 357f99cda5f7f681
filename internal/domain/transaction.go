package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the side of an executed trade
type TransactionKind string

const (
	TransactionKindBuy  TransactionKind = "BUY"
	TransactionKindSell TransactionKind = "SELL"
	// TransactionKindLoad marks a history entry restored from a snapshot.
	// Snapshots keep only the rendered line, so its content is not recovered.
	TransactionKindLoad TransactionKind = "LOAD"
)

// RestoredSymbol is the symbol carried by restored history entries
const RestoredSymbol = "UNKNOWN"

// TimestampLayout is the layout of the timestamp in a rendered transaction line
const TimestampLayout = "Mon Jan 02 15:04:05 MST 2006"

// Currency is the currency code printed in rendered transaction lines
const Currency = "INR"

// Transaction represents an executed trade in the domain layer
// A transaction is immutable once appended to a TransactionLog
type Transaction struct {
	ID        uuid.UUID
	Kind      TransactionKind
	Symbol    string
	Quantity  int64
	Price     decimal.Decimal // Registry price at execution time
	Timestamp time.Time
}

// NewTransaction creates a trade record with a fresh ID
func NewTransaction(kind TransactionKind, symbol string, quantity int64, price decimal.Decimal, at time.Time) *Transaction {
	return &Transaction{
		ID:        uuid.New(),
		Kind:      kind,
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     price,
		Timestamp: at,
	}
}

// NewRestoredTransaction creates the placeholder appended for each history line of a snapshot
func NewRestoredTransaction(at time.Time) *Transaction {
	return NewTransaction(TransactionKindLoad, RestoredSymbol, 0, decimal.Zero, at)
}

// Validate ensures the transaction adheres to domain rules
func (t *Transaction) Validate() error {
	switch t.Kind {
	case TransactionKindBuy, TransactionKindSell:
	case TransactionKindLoad:
		return nil
	default:
		return errors.New("transaction kind must be BUY or SELL")
	}

	if t.Symbol == "" {
		return errors.New("transaction symbol cannot be empty")
	}
	if t.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if t.Price.IsNegative() {
		return errors.New("transaction price cannot be negative")
	}
	return nil
}

// String renders the transaction as a single line.
// This is the only form in which transactions are persisted.
func (t *Transaction) String() string {
	return fmt.Sprintf("%s: %s %d shares at %s %s on %s",
		t.Kind, t.Symbol, t.Quantity, Currency, t.Price.StringFixed(2), t.Timestamp.Format(TimestampLayout))
}

// TransactionLog is the append-only, chronological trade history of one user
type TransactionLog struct {
	entries []*Transaction
}

// NewTransactionLog creates an empty log
func NewTransactionLog() *TransactionLog {
	return &TransactionLog{}
}

// Append adds tx at the end of the log
func (l *TransactionLog) Append(tx *Transaction) {
	l.entries = append(l.entries, tx)
}

// Len returns the number of entries
func (l *TransactionLog) Len() int {
	return len(l.entries)
}

// Entries returns the entries in chronological order.
// The returned slice is a copy; the log itself cannot be edited through it.
func (l *TransactionLog) Entries() []*Transaction {
	out := make([]*Transaction, len(l.entries))
	copy(out, l.entries)
	return out
}

// Lines returns the rendered form of every entry
func (l *TransactionLog) Lines() []string {
	lines := make([]string, len(l.entries))
	for i, tx := range l.entries {
		lines[i] = tx.String()
	}
	return lines
}

// Package snapshot implements the line-oriented text format the user directory is persisted in:
//
//	USER:<username>
//	CASH:<cash balance>
//	HOLDINGS:
//	<symbol>:<quantity>
//	TRANSACTIONS:
//	<rendered transaction>
//	END_USER
//
// Transactions are written in their rendered form only. Decoding restores one placeholder
// entry per line, so the number of past transactions survives a restart but their content does not.
package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

const (
	prefixUser         = "USER:"
	prefixCash         = "CASH:"
	markerHoldings     = "HOLDINGS:"
	markerTransactions = "TRANSACTIONS:"
	markerEndUser      = "END_USER"

	holdingSeparator = ":"
	maxLineSize      = 1 << 20
)

// RecordError reports a user record that could not be restored
type RecordError struct {
	Username string
	Line     int // Line the problem was detected on, 1-based
	Reason   string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: user %q at line %d: %s", domain.ErrMalformedSnapshot, e.Username, e.Line, e.Reason)
}

func (e *RecordError) Unwrap() error {
	return domain.ErrMalformedSnapshot
}

// Encode writes every user of dir, ordered by username
func Encode(w io.Writer, dir *domain.Directory) error {
	bw := bufio.NewWriter(w)

	for _, user := range dir.Users() {
		fmt.Fprintf(bw, "%s%s\n", prefixUser, user.Username)
		fmt.Fprintf(bw, "%s%s\n", prefixCash, user.Portfolio.CashBalance.String())
		fmt.Fprintln(bw, markerHoldings)
		for _, symbol := range user.Portfolio.Holdings.Symbols() {
			fmt.Fprintf(bw, "%s%s%d\n", symbol, holdingSeparator, user.Portfolio.Holdings[symbol])
		}
		fmt.Fprintln(bw, markerTransactions)
		for _, line := range user.Log.Lines() {
			fmt.Fprintln(bw, line)
		}
		fmt.Fprintln(bw, markerEndUser)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceIO, err)
	}
	return nil
}

type section int

const (
	sectionNone section = iota
	sectionRecord
	sectionHoldings
	sectionTransactions
)

// decoder holds the state of a single Decode call
type decoder struct {
	registry   domain.StockRegistry
	restoredAt time.Time

	dir     *domain.Directory
	skipped []error

	section section
	current *domain.User
	broken  bool // current record failed and is skipped up to its end
	lineNo  int
}

// Decode restores a directory from r.
//
// A record is only added to the directory once its END_USER line is read. Records that are
// truncated or malformed are skipped and reported in skipped; decoding continues with the next
// USER: line. Holding lines that are not exactly symbol:quantity are ignored.
// Holdings are credited at zero cost, against a placeholder stock when registry does not list the symbol.
// The returned error is only set when r itself fails.
func Decode(r io.Reader, registry domain.StockRegistry, restoredAt time.Time) (dir *domain.Directory, skipped []error, err error) {
	d := &decoder{
		registry:   registry,
		restoredAt: restoredAt,
		dir:        domain.NewDirectory(),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		d.lineNo++
		d.consume(strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrPersistenceIO, err)
	}

	if d.section != sectionNone {
		d.fail("missing " + markerEndUser + " before end of snapshot")
	}
	return d.dir, d.skipped, nil
}

func (d *decoder) consume(line string) {
	if strings.HasPrefix(line, prefixUser) {
		if d.section != sectionNone {
			d.fail("missing " + markerEndUser + " before next user")
		}
		d.open(strings.TrimPrefix(line, prefixUser))
		return
	}

	switch d.section {
	case sectionNone:
		// Lines outside a record carry nothing to restore
	case sectionRecord:
		d.consumeRecordLine(line)
	case sectionHoldings:
		if strings.HasPrefix(line, markerTransactions) {
			d.section = sectionTransactions
			return
		}
		if line == markerEndUser {
			d.commit()
			return
		}
		d.restoreHolding(line)
	case sectionTransactions:
		if strings.HasPrefix(line, markerEndUser) {
			d.commit()
			return
		}
		if !d.broken {
			d.current.Log.Append(domain.NewRestoredTransaction(d.restoredAt))
		}
	}
}

func (d *decoder) consumeRecordLine(line string) {
	switch {
	case strings.HasPrefix(line, prefixCash):
		d.restoreCash(strings.TrimPrefix(line, prefixCash))
	case strings.HasPrefix(line, markerHoldings):
		d.section = sectionHoldings
	case strings.HasPrefix(line, markerTransactions):
		d.section = sectionTransactions
	case strings.HasPrefix(line, markerEndUser):
		d.commit()
	}
}

func (d *decoder) open(username string) {
	d.section = sectionRecord
	d.broken = false

	user, err := domain.NewUser(username, decimal.Zero)
	if err != nil {
		d.current = &domain.User{Username: username}
		d.fail(err.Error())
		return
	}
	d.current = user
}

func (d *decoder) restoreCash(value string) {
	if d.broken {
		return
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		d.fail(fmt.Sprintf("invalid cash balance %q", value))
		return
	}

	// A cash line starts the portfolio over
	d.current.Portfolio = domain.NewPortfolio(decimal.Zero)
	if err := d.current.Portfolio.Deposit(amount); err != nil {
		d.fail(err.Error())
	}
}

func (d *decoder) restoreHolding(line string) {
	if d.broken {
		return
	}
	parts := strings.Split(line, holdingSeparator)
	if len(parts) != 2 || parts[0] == "" {
		return
	}
	quantity, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || quantity <= 0 {
		return
	}

	if err := d.current.Portfolio.DepositShares(d.restoreStock(parts[0]), quantity); err != nil {
		d.fail(fmt.Sprintf("restore holding %q: %v", line, err))
	}
}

// restoreStock returns a zero-price record for symbol, named after the listing when there is one
func (d *decoder) restoreStock(symbol string) *domain.Stock {
	stock := domain.NewPlaceholderStock(symbol)
	if d.registry == nil {
		return stock
	}
	if listed, ok := d.registry.Lookup(symbol); ok {
		stock.Name = listed.Name
	}
	return stock
}

func (d *decoder) commit() {
	if !d.broken {
		d.dir.Put(d.current)
	}
	d.section = sectionNone
	d.current = nil
	d.broken = false
}

// fail marks the open record as skipped. A record is reported once.
func (d *decoder) fail(reason string) {
	if d.broken {
		return
	}
	d.broken = true

	var username string
	if d.current != nil {
		username = d.current.Username
	}
	d.skipped = append(d.skipped, &RecordError{Username: username, Line: d.lineNo, Reason: reason})
}

// IsMalformed reports whether err describes a skipped record
func IsMalformed(err error) bool {
	var recordErr *RecordError
	return errors.As(err, &recordErr)
}

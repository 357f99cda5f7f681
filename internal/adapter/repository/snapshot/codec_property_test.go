package snapshot

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

func drawDirectory(t *rapid.T) *domain.Directory {
	dir := domain.NewDirectory()
	names := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z][a-z0-9_]{0,11}`), 0, 5, rapid.ID[string]).Draw(t, "names")

	for _, name := range names {
		cash := decimal.New(rapid.Int64Range(0, 1_000_000_000).Draw(t, "cashCents"), -2)
		user, err := domain.NewUser(name, cash)
		if err != nil {
			t.Fatalf("NewUser(%q): %v", name, err)
		}

		symbols := rapid.SliceOfNDistinct(rapid.StringMatching(`[A-Z]{1,5}`), 0, 4, rapid.ID[string]).Draw(t, "symbols")
		for _, symbol := range symbols {
			qty := rapid.Int64Range(1, 100_000).Draw(t, "qty")
			if err := user.Portfolio.DepositShares(domain.NewPlaceholderStock(symbol), qty); err != nil {
				t.Fatalf("DepositShares: %v", err)
			}
		}

		trades := rapid.IntRange(0, 5).Draw(t, "trades")
		for i := 0; i < trades; i++ {
			user.Log.Append(domain.NewTransaction(domain.TransactionKindBuy, "AAPL", int64(i+1), decimal.NewFromInt(1), tradeTime))
		}
		dir.Put(user)
	}
	return dir
}

// decode(encode(D)) keeps usernames, cash, holdings and transaction counts

func TestProperty_RoundTripPreservesLedger(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dir := drawDirectory(t)

		var buf bytes.Buffer
		if err := Encode(&buf, dir); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		restored, skipped, err := Decode(bytes.NewReader(buf.Bytes()), stubRegistry{}, restoreTime)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if len(skipped) != 0 {
			t.Fatalf("unexpected skipped records: %v", skipped)
		}
		if restored.Len() != dir.Len() {
			t.Fatalf("restored %d users, want %d", restored.Len(), dir.Len())
		}

		for _, want := range dir.Users() {
			got, ok := restored.Get(want.Username)
			if !ok {
				t.Fatalf("user %q lost", want.Username)
			}
			if !got.Portfolio.CashBalance.Equal(want.Portfolio.CashBalance) {
				t.Fatalf("%s cash = %s, want %s", want.Username, got.Portfolio.CashBalance, want.Portfolio.CashBalance)
			}
			if len(got.Portfolio.Holdings) != len(want.Portfolio.Holdings) {
				t.Fatalf("%s holdings = %v, want %v", want.Username, got.Portfolio.Holdings, want.Portfolio.Holdings)
			}
			for symbol, qty := range want.Portfolio.Holdings {
				if got.Portfolio.Holdings[symbol] != qty {
					t.Fatalf("%s %s = %d, want %d", want.Username, symbol, got.Portfolio.Holdings[symbol], qty)
				}
			}
			if got.Log.Len() != want.Log.Len() {
				t.Fatalf("%s log length = %d, want %d", want.Username, got.Log.Len(), want.Log.Len())
			}
		}

		// Encoding the restored directory again is stable apart from the history lines
		var again bytes.Buffer
		if err := Encode(&again, restored); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		twice, _, err := Decode(bytes.NewReader(again.Bytes()), stubRegistry{}, restoreTime)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		var third bytes.Buffer
		if err := Encode(&third, twice); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if again.String() != third.String() {
			t.Fatalf("decode is not idempotent:\n%s\nvs\n%s", again.String(), third.String())
		}
	})
}

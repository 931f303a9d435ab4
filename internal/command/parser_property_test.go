// Property-based tests for the /add and /result parsers.
package command

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

var decimalHundred = decimal.NewFromInt(100)

var textField = rapid.StringMatching(`[A-Za-z][A-Za-z0-9 .]{0,20}`)

// TestParseAddValidPayloadProperty checks that any well-formed payload with
// five or six fields parses and round-trips its fields.
func TestParseAddValidPayloadProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		match := textField.Draw(t, "match")
		market := textField.Draw(t, "market")
		pick := textField.Draw(t, "pick")
		oddsCents := rapid.IntRange(100, 5000).Draw(t, "oddsCents")
		stakeTenths := rapid.IntRange(0, 1000).Draw(t, "stakeTenths")
		useComma := rapid.Bool().Draw(t, "useComma")
		withNote := rapid.Bool().Draw(t, "withNote")

		odds := fmt.Sprintf("%d.%02d", oddsCents/100, oddsCents%100)
		stake := fmt.Sprintf("%d.%d", stakeTenths/10, stakeTenths%10)
		if useComma {
			odds = strings.Replace(odds, ".", ",", 1)
			stake = strings.Replace(stake, ".", ",", 1)
		}

		fields := []string{match, market, pick, odds, stake}
		note := ""
		if withNote {
			note = textField.Draw(t, "note")
			fields = append(fields, note)
		}

		req, err := ParseAdd(strings.Join(fields, " | "))
		if err != nil {
			t.Fatalf("valid payload rejected: %v", err)
		}
		if req.Match != strings.TrimSpace(match) || req.Market != strings.TrimSpace(market) || req.Pick != strings.TrimSpace(pick) {
			t.Fatalf("text fields mismatch: %+v", req)
		}
		if req.Note != strings.TrimSpace(note) {
			t.Fatalf("note = %q, want %q", req.Note, note)
		}
		if got := req.Odds.Mul(decimalHundred).IntPart(); got != int64(oddsCents) {
			t.Fatalf("odds = %s, want %d cents", req.Odds, oddsCents)
		}
	})
}

// TestParseAddTooFewFieldsProperty checks that fewer than five fields always fail.
func TestParseAddTooFewFieldsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(t, "n")
		fields := make([]string, n)
		for i := range fields {
			fields[i] = rapid.StringMatching(`[A-Za-z0-9 .]{0,10}`).Draw(t, "field")
		}

		if _, err := ParseAdd(strings.Join(fields, "|")); err == nil {
			t.Fatalf("payload with %d fields accepted", n)
		}
	})
}

// TestParseAddNonNumericProperty checks that a non-numeric odds or stake always fails.
func TestParseAddNonNumericProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bad := rapid.StringMatching(`[a-zA-Z]{1,8}`).Draw(t, "bad")
		inOdds := rapid.Bool().Draw(t, "inOdds")

		odds, stake := "1.80", "2"
		if inOdds {
			odds = bad
		} else {
			stake = bad
		}

		payload := strings.Join([]string{"A vs B", "1X2", "1", odds, stake}, " | ")
		if _, err := ParseAdd(payload); err == nil {
			t.Fatalf("non-numeric payload accepted: %q", payload)
		}
	})
}

// TestParseResultStatusProperty checks case-insensitive status matching.
func TestParseResultStatusProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		status := rapid.SampledFrom([]string{"win", "loss", "void"}).Draw(t, "status")
		upper := rapid.SliceOfN(rapid.Bool(), len(status), len(status)).Draw(t, "upper")

		var b strings.Builder
		for i, r := range status {
			if upper[i] {
				b.WriteString(strings.ToUpper(string(r)))
			} else {
				b.WriteRune(r)
			}
		}

		id := rapid.IntRange(1, 100000).Draw(t, "id")
		req, err := ParseResult(fmt.Sprintf("/result %d %s", id, b.String()))
		if err != nil {
			t.Fatalf("valid result command rejected: %v", err)
		}
		if string(req.Status) != status {
			t.Fatalf("status = %s, want %s", req.Status, status)
		}
	})
}

// Package command parses the text commands understood by the bot.
package command

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"betlog-bot/internal/model"
)

// Parsing errors. They are user-facing validation failures, not internal errors.
var (
	ErrInvalidFormat = errors.New("invalid format")
	ErrUsage         = errors.New("invalid usage")
	ErrInvalidStatus = errors.New("invalid status")
)

// Kind identifies a command family.
type Kind int

const (
	KindUnknown Kind = iota
	KindStart
	KindAdd
	KindOpen
	KindResult
	KindStats
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindStart:   "start",
	KindAdd:     "add",
	KindOpen:    "open",
	KindResult:  "result",
	KindStats:   "stats",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// prefixes are checked in order against the start of the message.
var prefixes = []struct {
	prefix string
	kind   Kind
}{
	{"/start", KindStart},
	{"/add", KindAdd},
	{"/open", KindOpen},
	{"/result", KindResult},
	{"/stats", KindStats},
}

// Command is a recognized command with the raw text that follows it.
type Command struct {
	Kind    Kind
	Payload string
	Text    string
}

// Detect classifies a message by its command prefix.
// Unrecognized text yields KindUnknown.
func Detect(text string) Command {
	text = strings.TrimSpace(text)
	for _, p := range prefixes {
		if strings.HasPrefix(text, p.prefix) {
			return Command{
				Kind:    p.kind,
				Payload: stripMention(text[len(p.prefix):]),
				Text:    text,
			}
		}
	}
	return Command{Kind: KindUnknown, Text: text}
}

// stripMention removes the "@botname" suffix Telegram appends to commands in groups.
func stripMention(rest string) string {
	if strings.HasPrefix(rest, "@") {
		if i := strings.IndexAny(rest, " \t\n"); i >= 0 {
			rest = rest[i:]
		} else {
			rest = ""
		}
	}
	return strings.TrimSpace(rest)
}

// AddRequest is a parsed /add payload.
type AddRequest struct {
	Match    string
	Market   string
	Pick     string
	Odds     decimal.Decimal
	StakePct decimal.Decimal
	Note     string
}

// ParseAdd parses "match | market | pick | odds | stake [| note]".
// Fields past the sixth are ignored.
func ParseAdd(payload string) (*AddRequest, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrInvalidFormat
	}

	parts := strings.Split(payload, "|")
	if len(parts) < 5 {
		return nil, ErrInvalidFormat
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	req := &AddRequest{
		Match:  parts[0],
		Market: parts[1],
		Pick:   parts[2],
	}
	if req.Match == "" || req.Market == "" || req.Pick == "" {
		return nil, ErrInvalidFormat
	}

	var err error
	if req.Odds, err = ParseNumber(parts[3]); err != nil {
		return nil, ErrInvalidFormat
	}
	if req.StakePct, err = ParseNumber(parts[4]); err != nil {
		return nil, ErrInvalidFormat
	}
	if len(parts) > 5 {
		req.Note = parts[5]
	}

	return req, nil
}

// maxNumberLen bounds the digits accepted for odds and stake.
const maxNumberLen = 32

// ParseNumber parses a plain decimal number, accepting ',' as the decimal
// separator. Exponent notation is rejected.
func ParseNumber(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || len(s) > maxNumberLen || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidFormat
	}
	return decimal.NewFromString(s)
}

// ResultRequest is a parsed /result command.
type ResultRequest struct {
	// BetID is passed through as typed; the store decides whether it matches a bet.
	BetID  string
	Status model.Status
}

// ParseResult parses "/result <id> <win|loss|void>".
func ParseResult(text string) (*ResultRequest, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return nil, ErrUsage
	}

	status, ok := model.ParseStatus(fields[2])
	if !ok {
		return nil, ErrInvalidStatus
	}

	return &ResultRequest{BetID: fields[1], Status: status}, nil
}

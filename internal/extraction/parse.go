package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"expensy/internal/core"
)

type payload struct {
	Amount   json.RawMessage `json:"amount"`
	Category *string         `json:"category"`
	Date     *string         `json:"date"`
}

// parseResponse validates the model output against the closed field set.
// Malformed JSON or wrongly typed fields make the whole answer unusable;
// values that are well typed but out of range are dropped one by one.
func parseResponse(text string) (core.Extraction, error) {
	text = stripFence(text)

	var p payload
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&p); err != nil {
		return core.Extraction{}, fmt.Errorf("decode response: %w", err)
	}

	var x core.Extraction
	if raw := bytes.TrimSpace(p.Amount); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if raw[0] == '"' {
			return core.Extraction{}, fmt.Errorf("amount is not a number: %s", raw)
		}
		d, err := decimal.NewFromString(string(raw))
		if err != nil {
			return core.Extraction{}, fmt.Errorf("amount is not a number: %s", raw)
		}
		if m, err := core.MoneyFromDecimal(d); err == nil && m.Validate() == nil {
			x.Amount = &m
		}
	}
	if p.Category != nil {
		if c, ok := core.ParseCategory(*p.Category); ok {
			x.Category = &c
		}
	}
	if p.Date != nil {
		if d, err := core.ParseDate(*p.Date); err == nil {
			x.Date = &d
		}
	}
	return x, nil
}

// stripFence removes a surrounding ```json fence some models add despite
// the JSON response type.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"expensy/internal/core"
)

const (
	maxJSONBody  = 1 << 20
	maxImageBody = 20 << 20
	// A JSON body may carry a base64 receipt.
	maxExpenseBody = maxImageBody * 4 / 3
)

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(err)
	}
	return nil
}

// expenseInput is the editable part of a draft. Absent fields are left alone.
type expenseInput struct {
	Date            *string         `json:"date"`
	Amount          json.RawMessage `json:"amount"`
	Category        *string         `json:"category"`
	Description     *string         `json:"description"`
	IsPersonalMoney *bool           `json:"isPersonalMoney"`
	ReceiptImage    *string         `json:"receiptImage"`
}

// parse converts the input into a function that edits a draft, so that
// bad input is rejected before the draft is touched.
func (in expenseInput) parse() (func(*core.Draft), error) {
	var edits []func(*core.Draft)

	if in.Date != nil {
		d, err := core.ParseDate(*in.Date)
		if err != nil {
			return nil, &core.ValidationError{Field: "date", Err: err}
		}
		edits = append(edits, func(dr *core.Draft) { dr.Date = d })
	}
	if len(in.Amount) > 0 {
		m, err := parseMoney(in.Amount, "amount")
		if err != nil {
			return nil, err
		}
		edits = append(edits, func(dr *core.Draft) { dr.Amount = m })
	}
	if in.Category != nil {
		c, ok := core.ParseCategory(*in.Category)
		if !ok {
			return nil, &core.ValidationError{Field: "category", Err: core.ErrInvalidCategory}
		}
		edits = append(edits, func(dr *core.Draft) { dr.Category = c })
	}
	if in.Description != nil {
		desc := *in.Description
		edits = append(edits, func(dr *core.Draft) { dr.Description = desc })
	}
	if in.IsPersonalMoney != nil {
		p := *in.IsPersonalMoney
		edits = append(edits, func(dr *core.Draft) { dr.IsPersonalMoney = p })
	}

	return func(dr *core.Draft) {
		for _, e := range edits {
			e(dr)
		}
	}, nil
}

// parseMoney accepts a JSON number or a string such as "45,90" or "R$ 45.90".
// An empty string or null reads as zero.
func parseMoney(raw json.RawMessage, field string) (core.Money, error) {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		return core.Money{}, nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return core.Money{}, &core.ValidationError{Field: field, Err: core.ErrInvalidAmount}
		}
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
		if s == "" {
			return core.Money{}, nil
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: field, Err: fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)}
	}
	m, err := core.MoneyFromDecimal(d)
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: field, Err: err}
	}
	return m, nil
}

type settingsInput struct {
	UserName       *string         `json:"userName"`
	MonthlyAdvance json.RawMessage `json:"monthlyAdvance"`
}

// readImage takes an upload as multipart field "image", a JSON body
// {"image": "<data uri>"} or the raw request body.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBody)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch ct {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxImageBody); err != nil {
			return nil, badRequest(err)
		}
		f, _, err := r.FormFile("image")
		if err != nil {
			return nil, badRequest(err)
		}
		defer f.Close()
		return readAll(f)
	case "application/json":
		var body struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, badRequest(err)
		}
		img, err := core.ParseDataURI(body.Image)
		if err != nil {
			return nil, err
		}
		return img.Data, nil
	default:
		return readAll(r.Body)
	}
}

func readAll(rd io.Reader) ([]byte, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, badRequest(fmt.Errorf("image larger than %d bytes", tooBig.Limit))
		}
		return nil, badRequest(err)
	}
	return data, nil
}

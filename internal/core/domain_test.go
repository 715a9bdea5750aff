package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Alimentação", CategoryFood, true},
		{"alimentacao", CategoryFood, true},
		{" COMBUSTIVEL ", CategoryFuel, true},
		{"Lodging", CategoryLodging, true},
		{"others", CategoryOther, true},
		{"Estacionamento", CategoryParking, true},
		{"Pedágio", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseCategory(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseCategory(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2025, 3, 7)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2025-03-07"` {
		t.Fatalf("marshal = %s", b)
	}
	var back Date
	if err := json.Unmarshal([]byte(`"2025-03-07T10:00:00.000Z"`), &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("got %v want %v", back, d)
	}
	if d.Display() != "07/03/2025" {
		t.Fatalf("display = %s", d.Display())
	}
	if _, err := ParseDate("07/03/2025"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
}

func TestSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	s := Settings{MonthlyAdvance: Money{Cents: -1}}
	err := s.Validate()
	if !errors.Is(err, ErrNegativeAdvance) || !IsValidation(err) {
		t.Fatalf("expected negative advance validation error, got %v", err)
	}
}

func TestExpenseJSONRoundTrip(t *testing.T) {
	e := Expense{
		ID:              "ID-1-abc",
		Timestamp:       time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC),
		Date:            NewDate(2025, 3, 6),
		Amount:          Money{Cents: 4590},
		Category:        CategoryFood,
		Description:     "almoço",
		ReceiptImage:    &Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}},
		IsPersonalMoney: true,
	}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var back Expense
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.ID != e.ID || back.Amount != e.Amount || back.Category != e.Category ||
		!back.Date.Equal(e.Date.Time) || !back.IsPersonalMoney || !back.HasReceipt() {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if !back.Timestamp.Equal(e.Timestamp) {
		t.Fatalf("timestamp = %v want %v", back.Timestamp, e.Timestamp)
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["timestamp"].(float64) != float64(e.Timestamp.UnixMilli()) {
		t.Fatalf("timestamp on the wire = %v", raw["timestamp"])
	}
	if raw["amount"].(float64) != 45.9 {
		t.Fatalf("amount on the wire = %v", raw["amount"])
	}
}

func TestExpenseValidate(t *testing.T) {
	if err := (Expense{ID: "x", Amount: Money{Cents: 1}}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Expense{ID: "x"}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := (Expense{Amount: Money{Cents: 1}}).Validate(); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestParseDataURI(t *testing.T) {
	img, err := ParseDataURI("data:image/png;base64,AQID")
	if err != nil {
		t.Fatal(err)
	}
	if img.MIMEType != "image/png" || len(img.Data) != 3 {
		t.Fatalf("got %+v", img)
	}
	if img.DataURI() != "data:image/png;base64,AQID" {
		t.Fatalf("data uri = %s", img.DataURI())
	}
	if StripDataURIPrefix(img.DataURI()) != "AQID" {
		t.Fatal("prefix not stripped")
	}
	if _, err := ParseDataURI("data:image/png;base64,@@@"); !errors.Is(err, ErrImageDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

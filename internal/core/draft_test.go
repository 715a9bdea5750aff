package core

import (
	"errors"
	"testing"
	"time"
)

func TestNewDraftDefaults(t *testing.T) {
	now := time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC)
	d := NewDraft(now)
	if d.Date.ISO() != "2025-05-10" || d.Category != CategoryParking || !d.Amount.IsZero() {
		t.Fatalf("got %+v", d)
	}
	if err := d.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("blank draft should fail on amount, got %v", err)
	}
}

func TestDraftMergeKeepsAbsentFields(t *testing.T) {
	userDate := NewDate(2025, 5, 1)
	d := Draft{
		Date:        userDate,
		Amount:      Money{Cents: 1000},
		Category:    CategoryParking,
		Description: "typed",
	}
	amt := Money{Cents: 4590}
	cat := CategoryFood
	merged := d.Merge(Extraction{Amount: &amt, Category: &cat})

	if merged.Amount.Cents != 4590 || merged.Category != CategoryFood {
		t.Fatalf("extracted fields not applied: %+v", merged)
	}
	if !merged.Date.Equal(userDate.Time) || merged.Description != "typed" {
		t.Fatalf("user fields lost: %+v", merged)
	}
	if !merged.Suggested.Has(FieldAmount) || !merged.Suggested.Has(FieldCategory) || merged.Suggested.Has(FieldDate) {
		t.Fatalf("provenance = %v", merged.Suggested.Names())
	}
}

func TestDraftMergeIgnoresInvalidCategory(t *testing.T) {
	bad := Category("Pedágio")
	d := NewDraft(time.Now()).Merge(Extraction{Category: &bad})
	if d.Category != CategoryParking || d.Suggested != 0 {
		t.Fatalf("got %+v", d)
	}
}

func TestFieldSet(t *testing.T) {
	var s FieldSet
	s.Add(FieldDate)
	s.Add(FieldAmount)
	s.Remove(FieldDate)
	if names := s.Names(); len(names) != 1 || names[0] != "amount" {
		t.Fatalf("names = %v", names)
	}
}

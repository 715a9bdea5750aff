package http

import (
	"net/http"
	"strings"

	"expensy/internal/imaging"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Settings())
}

// handleUpdateSettings replaces the user name and monthly advance. The PIX
// QR code has its own endpoint.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in settingsInput
	if err := decodeJSON(w, r, maxJSONBody, &in); err != nil {
		fail(w, r, err)
		return
	}
	next := s.ledger.Settings()
	if in.UserName != nil {
		next.UserName = strings.TrimSpace(*in.UserName)
	}
	if len(in.MonthlyAdvance) > 0 {
		m, err := parseMoney(in.MonthlyAdvance, "monthlyAdvance")
		if err != nil {
			fail(w, r, err)
			return
		}
		next.MonthlyAdvance = m
	}
	if err := s.ledger.UpdateSettings(r.Context(), next); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Settings())
}

func (s *Server) handleSetPix(w http.ResponseWriter, r *http.Request) {
	raw, err := readImage(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	img, err := imaging.NormalizeBytes(raw, imaging.QRCodeProfile)
	if err != nil {
		fail(w, r, err)
		return
	}
	next := s.ledger.Settings()
	next.PixQRCode = &img
	if err := s.ledger.UpdateSettings(r.Context(), next); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Settings())
}

func (s *Server) handleDeletePix(w http.ResponseWriter, r *http.Request) {
	next := s.ledger.Settings()
	next.PixQRCode = nil
	if err := s.ledger.UpdateSettings(r.Context(), next); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Settings())
}

package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"expensy/internal/capture"
	"expensy/internal/core"
)

// maxDraftWait bounds GET /api/drafts/{id}?wait=1.
const maxDraftWait = 35 * time.Second

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*capture.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.captures.Get(id)
	if !ok {
		fail(w, r, fmt.Errorf("%w: %s", core.ErrDraftNotFound, id))
		return nil, false
	}
	return sess, true
}

func (s *Server) handleOpenDraft(w http.ResponseWriter, r *http.Request) {
	sess := s.captures.Open()
	w.Header().Set("Location", "/api/drafts/"+sess.ID)
	writeJSON(w, http.StatusCreated, newDraftView(sess.View()))
}

// handleGetDraft returns the draft. With ?wait=1 it first waits for a
// running extraction to finish.
func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("wait") != "" {
		ctx, cancel := context.WithTimeout(r.Context(), maxDraftWait)
		_ = sess.Wait(ctx)
		cancel()
	}
	writeJSON(w, http.StatusOK, newDraftView(sess.View()))
}

func (s *Server) handleEditDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var in expenseInput
	if err := decodeJSON(w, r, maxJSONBody, &in); err != nil {
		fail(w, r, err)
		return
	}
	if in.ReceiptImage != nil {
		fail(w, r, badRequest(errors.New("receipts are uploaded to /api/drafts/{id}/receipt")))
		return
	}
	edit, err := in.parse()
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := sess.Edit(edit); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(sess.View()))
}

func (s *Server) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(w, r); !ok {
		return
	}
	s.captures.Discard(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleAttachReceipt stores the photo and answers at once; suggestions
// arrive in the draft later.
func (s *Server) handleAttachReceipt(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	raw, err := readImage(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.captures.AttachReceipt(r.Context(), sess, raw); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newDraftView(sess.View()))
}

func (s *Server) handleRemoveReceipt(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.RemoveReceipt(); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDraftView(sess.View()))
}

func (s *Server) handleSubmitDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	e, err := s.captures.Submit(r.Context(), sess)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/expenses/"+e.ID)
	writeJSON(w, http.StatusCreated, newExpenseView(e))
}

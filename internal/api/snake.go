package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/tidwall/gjson"

	"github.com/seantiz/snakebridge/internal/bridge"
	"github.com/seantiz/snakebridge/internal/model"
)

const maxBodySize = 1 << 20 // 1 MB

var emptyObject = map[string]any{}

// handleCall forwards a /start or /move body to the engine and writes its
// reply verbatim.
func (s *Server) handleCall(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		payload, ok := s.readPayload(w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.callTimeout)
		defer cancel()

		reply, err := s.bridge.Call(ctx, kind, payload)
		s.journal(r, kind, payload, start, err)
		if err != nil {
			s.writeBridgeError(w, kind, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(reply); err != nil {
			s.logger.Error("write reply", "kind", kind, "error", err)
		}
	}
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	payload, ok := s.readPayload(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.callTimeout)
	defer cancel()

	err := s.bridge.Notify(ctx, model.KindEnd, payload)
	s.journal(r, model.KindEnd, payload, start, err)
	if err != nil {
		s.writeBridgeError(w, model.KindEnd, err)
		return
	}

	s.writeJSON(w, http.StatusOK, emptyObject)
}

// handlePing answers without involving the engine.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	err := s.bridge.Ping()
	s.journal(r, model.KindPing, nil, start, err)
	if err != nil {
		s.writeBridgeError(w, model.KindPing, err)
		return
	}

	s.writeJSON(w, http.StatusOK, emptyObject)
}

// readPayload reads and validates a JSON request body. An empty body is
// treated as an empty object.
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []byte("{}"), true
	}
	if !json.Valid(body) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return body, true
}

// writeBridgeError maps bridge failures onto HTTP statuses.
func (s *Server) writeBridgeError(w http.ResponseWriter, kind model.Kind, err error) {
	var status int
	switch {
	case errors.Is(err, bridge.ErrCancelled):
		status = http.StatusGatewayTimeout
	case errors.Is(err, bridge.ErrEngineUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, bridge.ErrProtocolViolation):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	level := s.logger.Error
	if status == http.StatusGatewayTimeout {
		level = s.logger.Warn
	}
	level("bridge call failed", "kind", kind, "status", status, "error", err)

	s.writeError(w, status, err.Error())
}

// journal records the outcome of a handled call. Failures are logged and
// never affect the response.
func (s *Server) journal(r *http.Request, kind model.Kind, payload []byte, start time.Time, callErr error) {
	c := &model.Call{
		ID:         model.NewID(),
		Kind:       kind,
		Status:     journalStatus(kind, callErr),
		GameID:     gjson.GetBytes(payload, "game.id").String(),
		RequestID:  middleware.GetReqID(r.Context()),
		DurationMS: int(time.Since(start).Milliseconds()),
		CreatedAt:  time.Now().UTC(),
	}
	if turn := gjson.GetBytes(payload, "turn"); turn.Exists() {
		t := int(turn.Int())
		c.Turn = &t
	}
	if callErr != nil {
		c.Error = callErr.Error()
	}

	if err := s.store.RecordCall(context.WithoutCancel(r.Context()), c); err != nil {
		s.logger.Error("record call", "kind", kind, "error", err)
	}
}

func journalStatus(kind model.Kind, err error) string {
	switch {
	case err == nil && kind.ExpectsReply():
		return model.CallResolved
	case err == nil:
		return model.StatusAccepted
	case errors.Is(err, bridge.ErrCancelled):
		return model.CallCancelled
	default:
		return model.CallFailed
	}
}

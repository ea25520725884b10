package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	bferrors "github.com/randalmurphal/botflow/pkg/botflow/errors"
	"github.com/randalmurphal/botflow/pkg/botflow/inbound"
)

// webhookResponse is the body of POST /webhook.
type webhookResponse struct {
	DeliveryID string                   `json:"delivery_id"`
	Events     []inbound.ProcessedEvent `json:"events"`
}

// handleWebhook handles POST /webhook. Every readable body gets 200, even
// when it yields no events, so the platform does not redeliver it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	ctx := r.Context()
	resp := webhookResponse{Events: []inbound.ProcessedEvent{}}

	criteria, err := s.criteria.Criteria(ctx)
	if err != nil {
		s.logger.Error("load filter criteria, emitting no events", "error", err)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	res := s.pipeline.Process(ctx, body, criteria)
	resp.DeliveryID = res.DeliveryID
	for _, pe := range res.Events {
		if s.sink != nil {
			if err := s.sink.Emit(ctx, pe); err != nil {
				s.logger.Error("emit event", "event_id", pe.EventID, "error", err)
				continue
			}
		}
		resp.Events = append(resp.Events, pe)
	}
	writeJSON(w, http.StatusOK, resp)
}

// classifyRequest is the body of POST /errors/classify.
type classifyRequest struct {
	Error       any    `json:"error"`
	Operation   string `json:"operation"`
	Attempt     int    `json:"attempt"`
	MaxAttempts *int   `json:"max_attempts"`
}

type decisionResponse struct {
	ShouldRetry       bool  `json:"should_retry"`
	DelayMs           int64 `json:"delay_ms"`
	AttemptsRemaining int   `json:"attempts_remaining"`
}

type envelopeResponse struct {
	Category string         `json:"category"`
	TextCode string         `json:"text_code"`
	Code     int            `json:"code,omitempty"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type classifyResponse struct {
	Category   string           `json:"category"`
	Status     *int             `json:"status,omitempty"`
	RetryAfter *int             `json:"retry_after,omitempty"`
	Decision   decisionResponse `json:"decision"`
	Message    string           `json:"message"`
	Error      envelopeResponse `json:"error"`
}

// handleClassify handles POST /errors/classify.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[classifyRequest](w, r, s.maxBody)
	if !ok {
		return
	}
	if req.Attempt < 0 {
		writeError(w, http.StatusBadRequest, "attempt must not be negative")
		return
	}
	maxAttempts := s.maxRetries
	if req.MaxAttempts != nil {
		maxAttempts = *req.MaxAttempts
	}

	c := bferrors.Classify(req.Error)
	decision := s.policy.Decide(c, req.Attempt, maxAttempts)
	f := bferrors.Format(c, bferrors.Operation{
		Name:        req.Operation,
		Attempt:     req.Attempt,
		MaxAttempts: maxAttempts,
	})

	writeJSON(w, http.StatusOK, classifyResponse{
		Category:   c.Category.String(),
		Status:     c.Status,
		RetryAfter: c.RetryAfter,
		Decision: decisionResponse{
			ShouldRetry:       decision.ShouldRetry,
			DelayMs:           decision.DelayMs(),
			AttemptsRemaining: decision.AttemptsRemaining,
		},
		Message: f.Message,
		Error: envelopeResponse{
			Category: fmt.Sprint(f.Err.Category),
			TextCode: f.Err.TextCode,
			Code:     f.Err.Code,
			Message:  f.Message,
			Metadata: f.Err.Metadata,
		},
	})
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

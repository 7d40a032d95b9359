package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mailsift/phishing-detector/internal/textproc"
)

type predictRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Sender  string `json:"sender"`
}

type predictResponse struct {
	ID             string  `json:"id"`
	Label          string  `json:"label"`
	FinalScore     float64 `json:"final_score"`
	MLScore        float64 `json:"ml_score"`
	RuleScore      float64 `json:"rule_score"`
	Confidence     string  `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	AlreadySeen    bool    `json:"already_seen"`
	AlreadyLabeled bool    `json:"already_labeled"`
	LabelSource    string  `json:"label_source"`
	ScanCount      int     `json:"scan_count"`
	FirstSeenAt    string  `json:"first_seen_at"`
	LastSeenAt     string  `json:"last_seen_at"`
}

type feedbackRequest struct {
	ID         *string         `json:"id"`
	IsPhishing json.RawMessage `json:"is_phishing"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	subject := strings.TrimSpace(req.Subject)
	body := strings.TrimSpace(req.Body)
	sender := strings.TrimSpace(req.Sender)

	if subject == "" && body == "" {
		s.writeError(w, http.StatusBadRequest, "subject/body cannot both be empty")
		return
	}

	subject = textproc.TruncateRunes(subject, s.cfg.MaxSubjectChars)
	body = textproc.TruncateRunes(body, s.cfg.MaxBodyChars)
	sender = textproc.TruncateRunes(sender, s.cfg.MaxSenderChars)

	classified, err := s.svc.Scan(r.Context(), subject, body, sender, s.cfg.DefaultSource)
	if err != nil {
		s.logger.Error("Scan failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	s.writeJSON(w, http.StatusOK, predictResponse{
		ID:             classified.RecordID,
		Label:          classified.Prediction.Label,
		FinalScore:     classified.Prediction.FinalScore,
		MLScore:        classified.Prediction.MLScore,
		RuleScore:      classified.Prediction.RuleScore,
		Confidence:     classified.Prediction.Confidence,
		Reasoning:      classified.Prediction.Reasoning,
		AlreadySeen:    classified.Audit.AlreadySeen,
		AlreadyLabeled: classified.Audit.AlreadyLabeled,
		LabelSource:    classified.Audit.LabelSource,
		ScanCount:      classified.Audit.ScanCount,
		FirstSeenAt:    classified.Audit.FirstSeenAt,
		LastSeenAt:     classified.Audit.LastSeenAt,
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if req.ID == nil || strings.TrimSpace(*req.ID) == "" {
		s.writeError(w, http.StatusBadRequest, "Missing id")
		return
	}

	isPhishing, ok := parseBoolStrict(req.IsPhishing)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "is_phishing must be a real boolean (true/false)")
		return
	}

	updated, err := s.svc.Feedback(r.Context(), strings.TrimSpace(*req.ID), isPhishing)
	if err != nil {
		s.logger.Error("Feedback failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "feedback failed")
		return
	}
	if !updated {
		s.writeError(w, http.StatusNotFound, "Email ID not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Feedback received",
	})
}

// parseBoolStrict accepts real booleans, 0/1 numbers and a small set of
// boolean-ish strings; anything else is rejected rather than coerced.
func parseBoolStrict(raw json.RawMessage) (bool, bool) {
	if len(raw) == 0 {
		return false, false
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return false, false
	}

	switch v := value.(type) {
	case bool:
		return v, true
	case float64:
		if v == 0 || v == 1 {
			return v == 1, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "y":
			return true, true
		case "false", "0", "no", "n":
			return false, true
		}
	}
	return false, false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

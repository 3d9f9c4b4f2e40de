package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jask/finlink/internal/aa"
	"github.com/jask/finlink/internal/database/repository"
	"github.com/jask/finlink/internal/logger"
	"github.com/jask/finlink/internal/service"
)

// Handler bundles the services the API fronts.
type Handler struct {
	auth     *service.AuthService
	consents *service.ConsentService
	sessions *service.SessionService
	ingestor *service.Ingestor
	txns     *service.TransactionService
	log      zerolog.Logger
}

func NewHandler(auth *service.AuthService, consents *service.ConsentService,
	sessions *service.SessionService, ingestor *service.Ingestor,
	txns *service.TransactionService, log zerolog.Logger) *Handler {
	return &Handler{
		auth:     auth,
		consents: consents,
		sessions: sessions,
		ingestor: ingestor,
		txns:     txns,
		log:      log,
	}
}

// Routes builds the full router with middleware applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /auth/otp/request", h.requestOTP)
	mux.HandleFunc("POST /auth/otp/verify", h.verifyOTP)

	api := http.NewServeMux()
	api.HandleFunc("POST /api/consents", h.createConsent)
	api.HandleFunc("GET /api/consents", h.listConsents)
	api.HandleFunc("GET /api/consents/{id}", h.pollConsent)
	api.HandleFunc("POST /api/sessions", h.createSession)
	api.HandleFunc("POST /api/sessions/{id}/fetch", h.fetchSession)
	api.HandleFunc("POST /api/sms", h.ingestSMS)
	api.HandleFunc("POST /api/inbox", h.ingestInbox)
	api.HandleFunc("GET /api/transactions", h.listTransactions)
	mux.Handle("/api/", Auth(h.auth)(api))

	var root http.Handler = mux
	root = CORS(root)
	root = RequestID(root)
	root = Logger(h.log)(root)
	root = Recovery(h.log)(root)
	return root
}

func (h *Handler) requestOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mobile string `json:"mobile"`
	}
	if !decode(w, r, &req) {
		return
	}
	code, err := h.auth.RequestOTP(r.Context(), req.Mobile)
	if err != nil {
		WriteFault(w, logger.FromContext(r.Context()), err)
		return
	}
	// sandbox behavior: the code is returned instead of sent over SMS
	WriteJSON(w, http.StatusOK, map[string]string{"mobile": req.Mobile, "otp": code})
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mobile string `json:"mobile"`
		OTP    string `json:"otp"`
	}
	if !decode(w, r, &req) {
		return
	}
	token, err := h.auth.VerifyOTP(r.Context(), req.Mobile, req.OTP)
	if err != nil {
		WriteFault(w, logger.FromContext(r.Context()), err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) createConsent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VUA            string    `json:"vua"`
		From           time.Time `json:"from"`
		To             time.Time `json:"to"`
		DurationMonths int       `json:"duration_months"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.To.IsZero() {
		req.To = time.Now()
	}
	if req.From.IsZero() {
		req.From = req.To.AddDate(-1, 0, 0)
	}
	c, err := h.consents.Create(r.Context(), UserID(r.Context()), req.VUA,
		aa.DateRange{From: req.From, To: req.To}, req.DurationMonths)
	if err != nil {
		WriteFault(w, logger.FromContext(r.Context()), err)
		return
	}
	WriteJSON(w, http.StatusCreated, consentJSON(*c))
}

func (h *Handler) listConsents(w http.ResponseWriter, r *http.Request) {
	list, err := h.consents.List(r.Context(), UserID(r.Context()))
	if err != nil {
		WriteFault(w, logger.FromContext(r.Context()), err)
		return
	}
	out := make([]map[string]any, 0, len(list))
	for _, c := range list {
		out = append(out, consentJSON(c))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"consents": out, "count": len(out)})
}

// pollConsent refreshes the consent from the provider before returning it.
func (h *Handler) pollConsent(w http.ResponseWriter, r *http.Request) {
	c, err := h.consents.Poll(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteFault(w, logger.FromContext(r.Context()), err)
		return
	}
	WriteJSON(w, http.StatusOK, consentJSON(*c))
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConsentID string    `json:"consent_id"`
		From      time.Time `json:"from"`
		To        time.Time `json:"to"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.To.IsZero() {
		req.To = time.Now()
	}
	if req.From.IsZero() {
		req.From = req.To.AddDate(-1, 0, 0)
	}
	sess, err := h.sessions.Create(r.Context(), UserID(r.Context()), req.ConsentID,
		aa.DateRange{From: req.From, To: req.To})
	if err != nil {
		WriteFault(w, logger.FromContext(r.Context()), err)
		return
	}
	WriteJSON(w, http.StatusCreated, sessionJSON(*sess))
}

func (h *Handler) fetchSession(w http.ResponseWriter, r *http.Request) {
	res, err := h.sessions.Poll(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteFault(w, logger.FromContext(r.Context()), err)
		return
	}
	failures := res.Failures
	if failures == nil {
		failures = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"session":  sessionJSON(res.Session),
		"ingested": res.Ingested,
		"matched":  res.Matched,
		"failures": failures,
	})
}

func (h *Handler) ingestSMS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SMSText   string    `json:"sms_text"`
		Timestamp time.Time `json:"timestamp"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.ingestDevice(w, r, req.SMSText, req.Timestamp, repository.SourceSMS)
}

func (h *Handler) ingestInbox(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmailText string    `json:"email_text"`
		Timestamp time.Time `json:"timestamp"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.ingestDevice(w, r, req.EmailText, req.Timestamp, repository.SourceEmail)
}

func (h *Handler) ingestDevice(w http.ResponseWriter, r *http.Request, text string, ts time.Time, source string) {
	txn, err := h.ingestor.IngestDevice(r.Context(), UserID(r.Context()), text, ts, source)
	if err != nil {
		WriteFault(w, logger.FromContext(r.Context()), err)
		return
	}
	if txn == nil {
		WriteJSON(w, http.StatusAccepted, map[string]any{"is_transaction": false})
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{
		"is_transaction": true,
		"transaction":    txnJSON(*txn),
	})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := h.txns.List(r.Context(), UserID(r.Context()), r.URL.Query().Get("source"))
	if err != nil {
		WriteFault(w, logger.FromContext(r.Context()), err)
		return
	}
	out := make([]map[string]any, 0, len(list))
	for _, t := range list {
		out = append(out, txnJSON(t))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"transactions": out, "count": len(out)})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func consentJSON(c repository.Consent) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"vua":        c.VUA,
		"status":     c.Status,
		"created_at": c.CreatedAt,
		"updated_at": c.UpdatedAt,
	}
}

func sessionJSON(s repository.DataSession) map[string]any {
	return map[string]any{
		"id":         s.ID,
		"consent_id": s.ConsentID,
		"status":     s.Status,
		"created_at": s.CreatedAt,
		"updated_at": s.UpdatedAt,
	}
}

func txnJSON(t repository.Transaction) map[string]any {
	out := map[string]any{
		"id":         t.ID,
		"source":     t.Source,
		"narration":  t.Narration,
		"created_at": t.CreatedAt,
	}
	if t.ConsentID != nil {
		out["consent_id"] = *t.ConsentID
	}
	if t.Amount != nil {
		out["amount"] = amountJSON(*t.Amount)
	}
	if t.TxnTime != nil {
		out["txn_time"] = t.TxnTime.Format(time.RFC3339)
	}
	if t.TxnType != nil {
		out["txn_type"] = *t.TxnType
	}
	if t.PaymentMode != nil {
		out["payment_mode"] = *t.PaymentMode
	}
	if t.MerchantName != nil {
		out["merchant_name"] = *t.MerchantName
	}
	if t.MainCategory != nil {
		out["main_category"] = *t.MainCategory
	}
	if t.SubCategory != nil {
		out["sub_category"] = *t.SubCategory
	}
	if t.MatchedTxnID != nil {
		out["matched_txn_id"] = *t.MatchedTxnID
	}
	return out
}

func amountJSON(d decimal.Decimal) string { return d.StringFixed(2) }

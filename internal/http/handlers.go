package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"thuchi/internal/core"
	applog "thuchi/internal/log"
	"thuchi/internal/store"
)

type categoryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

type transactionJSON struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	AmountCents int64        `json:"amount_cents"`
	Category    categoryJSON `json:"category"`
	Note        string       `json:"note,omitempty"`
	Date        time.Time    `json:"date"`
	CreatedAt   time.Time    `json:"created_at"`
}

type dayGroupJSON struct {
	Date              string            `json:"date"`
	TotalExpenseCents int64             `json:"total_expense_cents"`
	TotalIncomeCents  int64             `json:"total_income_cents"`
	Transactions      []transactionJSON `json:"transactions"`
}

type summaryJSON struct {
	Year              int            `json:"year"`
	Month             int            `json:"month"`
	TotalExpenseCents int64          `json:"total_expense_cents"`
	TotalIncomeCents  int64          `json:"total_income_cents"`
	TotalBalanceCents int64          `json:"total_balance_cents"`
	Groups            []dayGroupJSON `json:"groups"`
	SkippedRecords    int            `json:"skipped_records,omitempty"`
}

type calendarCellJSON struct {
	Day     int  `json:"day"`
	InMonth bool `json:"in_month"`
}

type calendarJSON struct {
	Year  int                `json:"year"`
	Month int                `json:"month"`
	Cells []calendarCellJSON `json:"cells"`
}

type createTransactionRequest struct {
	Type string `json:"type"`
	// Amount is accepted either as integer cents or as a decimal string
	// ("12.34"). When both are present the cents value wins.
	AmountCents int64        `json:"amount_cents"`
	Amount      string       `json:"amount,omitempty"`
	Category    categoryJSON `json:"category"`
	Note        string       `json:"note"`
	Date        time.Time    `json:"date"`
}

func (req createTransactionRequest) amountCents() (int64, error) {
	if req.AmountCents != 0 {
		// Legacy producers negate expense amounts. The sign is absorbed
		// here, same as the decimal path; Type is the only sign source.
		cents := req.AmountCents
		if cents < 0 {
			cents = -cents
		}
		return cents, nil
	}
	if req.Amount == "" {
		return 0, nil
	}
	return core.ParseDecimalToCents(req.Amount)
}

type createTransactionResponse struct {
	ID string `json:"id"`
}

type profileJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          tx.ID,
		Type:        string(tx.Type),
		AmountCents: tx.Amount.Cents,
		Category: categoryJSON{
			ID:   tx.Category.ID,
			Name: tx.Category.Name,
			Icon: tx.Category.Icon,
		},
		Note:      tx.Note,
		Date:      tx.Date,
		CreatedAt: tx.CreatedAt,
	}
}

func toSummaryJSON(s core.Summary) summaryJSON {
	out := summaryJSON{
		Year:              s.Period.Year,
		Month:             s.Period.Month,
		TotalExpenseCents: s.TotalExpense.Cents,
		TotalIncomeCents:  s.TotalIncome.Cents,
		TotalBalanceCents: s.TotalBalance.Cents,
		Groups:            make([]dayGroupJSON, 0, len(s.Groups)),
		SkippedRecords:    len(s.Skipped),
	}
	for _, g := range s.Groups {
		group := dayGroupJSON{
			Date:              g.Key.String(),
			TotalExpenseCents: g.TotalExpense.Cents,
			TotalIncomeCents:  g.TotalIncome.Cents,
			Transactions:      make([]transactionJSON, 0, len(g.Transactions)),
		}
		for _, tx := range g.Transactions {
			group.Transactions = append(group.Transactions, toTransactionJSON(tx))
		}
		out.Groups = append(out.Groups, group)
	}
	return out
}

// handleSummary returns the aggregated month view: totals plus the
// date-grouped breakdown, newest day first.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, userID string) {
	period, err := parsePeriod(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := s.summaryCacheKey(userID, period)
	if cached, found := s.summaryCache.Get(key); found {
		writeJSON(w, http.StatusOK, toSummaryJSON(cached))
		return
	}

	summary, err := s.ledger.Summarize(r.Context(), userID, period)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, toSummaryJSON(summary))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	period, err := parsePeriod(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.ledger.ListTransactions(r.Context(), userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		if tx.Date.IsZero() || !period.Contains(tx.Date) {
			continue
		}
		out = append(out, toTransactionJSON(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	cents, err := req.amountCents()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	tx := core.Transaction{
		Type:   core.TransactionType(req.Type),
		Amount: core.Money{Cents: cents},
		Category: core.Category{
			ID:   sanitizeInput(req.Category.ID),
			Name: sanitizeInput(req.Category.Name),
			Icon: sanitizeInput(req.Category.Icon),
		},
		Note: sanitizeInput(req.Note),
		Date: req.Date,
	}

	id, err := s.ledger.CreateTransaction(r.Context(), userID, tx)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateSummaries(userID)
	slog.InfoContext(r.Context(), "Transaction created",
		applog.FieldUserID, userID,
		applog.FieldTransactionID, id,
		applog.FieldTxType, req.Type,
		applog.FieldAmountCents, cents)

	writeJSON(w, http.StatusCreated, createTransactionResponse{ID: id})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	if err := s.ledger.DeleteTransaction(r.Context(), userID, id); err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateSummaries(userID)
	slog.InfoContext(r.Context(), "Transaction deleted",
		applog.FieldUserID, userID,
		applog.FieldTransactionID, id)

	w.WriteHeader(http.StatusNoContent)
}

// handleCalendar returns the fixed 6x7 grid of the requested month. It needs
// no identity: the grid depends only on year and month.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cells, err := core.MonthGrid(period.GridMonth(), period.Year)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out := calendarJSON{
		Year:  period.Year,
		Month: period.Month,
		Cells: make([]calendarCellJSON, 0, len(cells)),
	}
	for _, c := range cells {
		out.Cells = append(out.Cells, calendarCellJSON{Day: c.Day, InMonth: c.InMonth})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, userID string) {
	profile, err := s.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileJSON{
		ID:        profile.ID,
		Name:      profile.Name,
		Email:     profile.Email,
		CreatedAt: profile.CreatedAt,
	})
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request, userID string) {
	var req profileJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	name := sanitizeInput(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}
	email := sanitizeInput(req.Email)

	// A body without an email is a rename of the existing profile; the
	// stored email is kept. Anything else replaces the whole profile.
	if email == "" {
		err := s.profiles.UpdateName(r.Context(), userID, name)
		if err == nil {
			profile, err := s.profiles.GetProfile(r.Context(), userID)
			if err != nil {
				writeStoreError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, profileJSON{
				ID:        profile.ID,
				Name:      profile.Name,
				Email:     profile.Email,
				CreatedAt: profile.CreatedAt,
			})
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			writeStoreError(w, r, err)
			return
		}
		// First write for this user, fall through and create the profile.
	}

	profile := core.Profile{
		ID:    userID,
		Name:  name,
		Email: email,
	}
	if err := s.profiles.PutProfile(r.Context(), profile); err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileJSON{
		ID:    profile.ID,
		Name:  profile.Name,
		Email: profile.Email,
	})
}

package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/replaybroker/internal/domain"
	"github.com/efreitasn/replaybroker/internal/service"
)

// QuoteHandler handles HTTP requests for market data endpoints.
type QuoteHandler struct {
	broker *service.Broker
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(broker *service.Broker) *QuoteHandler {
	return &QuoteHandler{broker: broker}
}

// ingestRequest is the JSON request body for POST /quotes.
type ingestRequest struct {
	Frequency string         `json:"frequency"`
	Quotes    []domain.Quote `json:"quotes"`
}

// ingestResponse reports how many streamed bars were new to the cache.
type ingestResponse struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
}

// quotesResponse is the JSON response for GET /quotes/{code}.
type quotesResponse struct {
	Code      string         `json:"code"`
	Market    string         `json:"market"`
	Frequency string         `json:"frequency"`
	Quotes    []domain.Quote `json:"quotes"`
}

// tradeListResponse is the JSON response for GET /trades/{code}.
type tradeListResponse struct {
	Code   string          `json:"code"`
	Trades []tradeResponse `json:"trades"`
}

// Ingest handles POST /quotes.
func (h *QuoteHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var freq domain.Frequency
	if req.Frequency != "" {
		var err error
		if freq, err = domain.ParseFrequency(req.Frequency); err != nil {
			mapError(w, err)
			return
		}
	}

	res, err := h.broker.Handle(r.Context(), service.IncomingQuotes{
		Quotes:    req.Quotes,
		Frequency: freq,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, ingestResponse{
		Received: len(req.Quotes),
		Inserted: res.Inserted,
	})
}

// Query handles GET /quotes/{code}?market=&frequency=&start=&end=. A
// missing end selects the single bar at start.
func (h *QuoteHandler) Query(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	q := r.URL.Query()

	market, err := domain.ParseMarketKind(q.Get("market"))
	if err != nil {
		mapError(w, err)
		return
	}
	freq := domain.FrequencyDay
	if f := q.Get("frequency"); f != "" {
		if freq, err = domain.ParseFrequency(f); err != nil {
			mapError(w, err)
			return
		}
	}

	start, err := parseQueryTime(q.Get("start"), "start")
	if err != nil {
		mapError(w, err)
		return
	}
	var end time.Time
	if e := q.Get("end"); e != "" {
		if end, err = parseQueryTime(e, "end"); err != nil {
			mapError(w, err)
			return
		}
		if end.Before(start) {
			WriteError(w, http.StatusBadRequest, "validation_error", "end must not be before start")
			return
		}
	}

	res, err := h.broker.Handle(r.Context(), service.QueryData{
		Code:      code,
		Start:     freq.BarTime(start),
		End:       freq.BarTime(end),
		Market:    market,
		Frequency: freq,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	if res.Err != nil {
		WriteError(w, http.StatusNotFound, domain.ErrQuoteNotFound.Error(),
			fmt.Sprintf("no %s bars for %s in the requested range", freq, code))
		return
	}

	WriteJSON(w, http.StatusOK, quotesResponse{
		Code:      code,
		Market:    string(market),
		Frequency: string(freq),
		Quotes:    res.Quotes,
	})
}

// ListTrades handles GET /trades/{code}.
func (h *QuoteHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	trades := h.broker.Trades(code)
	resp := tradeListResponse{Code: code, Trades: make([]tradeResponse, len(trades))}
	for i, t := range trades {
		resp.Trades[i] = buildTradeResponse(t)
	}

	WriteJSON(w, http.StatusOK, resp)
}

func parseQueryTime(s, name string) (time.Time, error) {
	if s == "" {
		return time.Time{}, &domain.ValidationError{Message: name + " query parameter is required"}
	}
	t, _, err := domain.ParseTimestamp(s)
	return t, err
}

package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
)

const maxJSONBody = 1 << 20

type Handlers struct {
	Bookings *app.BookingService
	Payments *app.PaymentService
	Q        *app.QueryService
	Catalog  *app.CatalogService
	Uploads  domain.ObjectStore // nil disables POST /upload
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
}

type idResponse struct {
	ID string `json:"id"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", h.health)

	s.mux.Post("/bookings", h.createBooking)
	s.mux.Get("/bookings", h.listBookings)
	s.mux.Get("/bookings/{id}", h.getBooking)

	s.mux.Post("/payments", h.createPayment)
	s.mux.Get("/payments", h.getPayment)

	s.mux.Get("/hotels", h.searchHotels)
	s.mux.Post("/hotels", h.createHotel)
	s.mux.Get("/hotels/{id}", h.getHotel)

	s.mux.Post("/upload", h.upload)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemJSON(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemJSON(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the domain error taxonomy onto HTTP. Internal causes are logged,
// never echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeProblemJSON(w, problem{Type: "about:blank", Title: "Invalid request", Status: http.StatusBadRequest,
			Detail: ve.Error(), Field: ve.Field})
	case errors.Is(err, domain.ErrAlreadyProcessed):
		writeProblem(w, http.StatusNotFound, "Not Found", "booking not found or already processed")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrInsufficientAvailability):
		writeProblem(w, http.StatusConflict, "Insufficient availability", err.Error())
	case errors.Is(err, domain.ErrInFlight):
		writeProblem(w, http.StatusConflict, "Conflict", "a request with this idempotency key is already in progress")
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", "the request conflicts with existing data")
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("store deadline exceeded")
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", "the request could not be completed in time")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "something went wrong")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	return true
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.Q.Ping(r.Context()); err != nil {
		log.Warn().Err(err).Msg("health check failed")
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "store unreachable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

/********** bookings **********/

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.Bookings.CreateBooking(r.Context(), req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.ListBookingsForUser(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Q.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

/********** payments **********/

func (h *Handlers) createPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.Payments.CreatePayment(r.Context(), req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (h *Handlers) getPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Q.GetPaymentForBooking(r.Context(), r.URL.Query().Get("bookingId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

/********** hotels **********/

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Q.GetHotel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	etag, body := calcETagAndBody(resp)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getHotel body")
	}
}

func (h *Handlers) searchHotels(w http.ResponseWriter, r *http.Request) {
	q, err := parseHotelsQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Q.SearchHotels(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func parseHotelsQuery(r *http.Request) (domain.HotelsQuery, error) {
	v := r.URL.Query()
	q := domain.HotelsQuery{
		Location: strings.TrimSpace(v.Get("location")),
		Amenity:  strings.TrimSpace(v.Get("amenity")),
		Limit:    50,
	}
	floatParam := func(name string) (*float64, error) {
		s := v.Get(name)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 {
			return nil, domain.Invalid(name, "must be a non-negative number")
		}
		return &f, nil
	}
	var err error
	if q.MinPrice, err = floatParam("minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = floatParam("maxPrice"); err != nil {
		return q, err
	}
	if q.MinRating, err = floatParam("minRating"); err != nil {
		return q, err
	}
	if s := v.Get("guests"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return q, domain.Invalid("guests", "must be an integer of at least 1")
		}
		q.Guests = n
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 100 {
			return q, domain.Invalid("limit", "must be an integer between 1 and 100")
		}
		q.Limit = n
	}
	return q, nil
}

func (h *Handlers) createHotel(w http.ResponseWriter, r *http.Request) {
	var in domain.HotelInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ID = ""
	id, err := h.Catalog.CreateHotel(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

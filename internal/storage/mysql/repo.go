package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"hotel_booking/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return "[]"
	}
	return string(b)
}

func valTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// classify maps driver failures onto the domain taxonomy. ErrUnavailable is only
// used when the statement is known not to have reached the server, so callers may
// retry conditional writes on it.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	var oe *net.OpError
	if errors.Is(err, driver.ErrBadConn) || (errors.As(err, &oe) && oe.Op == "dial") {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return err
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Ping(ctx context.Context) error { return classify(r.db.PingContext(ctx)) }
func (r *Repo) Close() error                   { return r.db.Close() }

/********** inventory **********/

func (r *Repo) UpsertHotel(ctx context.Context, h domain.Hotel) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	created := h.CreatedAt
	if created.IsZero() {
		created = now
	}
	if _, err := tx.ExecContext(ctx, upsertHotelSQL,
		h.ID, h.Name, h.Location, valStr(h.Description), h.Price, h.Rating, valStr(h.Image),
		valJSON(h.Images), valJSON(h.Amenities), created, now,
	); err != nil {
		return classify(err)
	}
	for i, rm := range h.Rooms {
		if _, err := tx.ExecContext(ctx, upsertRoomSQL,
			rm.ID, h.ID, i, rm.Type, rm.Price, rm.Capacity, rm.Units, rm.Available, valJSON(rm.Amenities),
		); err != nil {
			return classify(err)
		}
	}
	if _, err := tx.ExecContext(ctx, deleteReviewsSQL, h.ID); err != nil {
		return classify(err)
	}
	for _, rv := range h.Reviews {
		if _, err := tx.ExecContext(ctx, insertReviewSQL,
			h.ID, valStr(rv.UserID), rv.Rating, valStr(rv.Comment), valTime(rv.CreatedAt),
		); err != nil {
			return classify(err)
		}
	}
	return classify(tx.Commit())
}

func (r *Repo) ReserveRoom(ctx context.Context, hotelID, roomID string, guests int) error {
	res, err := r.db.ExecContext(ctx, reserveRoomSQL, guests, roomID, hotelID, guests)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	// Nothing changed: tell "no such room" apart from "not enough left".
	var avail int
	err = r.db.QueryRowContext(ctx, roomAvailableSQL, roomID, hotelID).Scan(&avail)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return classify(err)
	}
	return domain.ErrInsufficientAvailability
}

func (r *Repo) ReleaseRoom(ctx context.Context, hotelID, roomID string, guests int) error {
	_, err := r.db.ExecContext(ctx, releaseRoomSQL, guests, roomID, hotelID)
	return classify(err)
}

func (r *Repo) GetHotel(ctx context.Context, id string) (domain.Hotel, error) {
	h, err := scanHotel(r.db.QueryRowContext(ctx, getHotelSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Hotel{}, domain.ErrNotFound
		}
		return domain.Hotel{}, classify(err)
	}
	rooms, err := r.roomsFor(ctx, []string{id})
	if err != nil {
		return domain.Hotel{}, err
	}
	h.Rooms = rooms[id]

	rows, err := r.db.QueryContext(ctx, reviewsForHotelSQL, id)
	if err != nil {
		return domain.Hotel{}, classify(err)
	}
	defer rows.Close()
	for rows.Next() {
		var rv domain.Review
		var userID, comment sql.NullString
		if err := rows.Scan(&userID, &rv.Rating, &comment, &rv.CreatedAt); err != nil {
			return domain.Hotel{}, err
		}
		rv.UserID, rv.Comment = userID.String, comment.String
		h.Reviews = append(h.Reviews, rv)
	}
	return h, classify(rows.Err())
}

func (r *Repo) ListHotels(ctx context.Context, q domain.HotelsQuery) ([]domain.Hotel, error) {
	where := []string{"1=1"}
	var args []any
	if q.Location != "" {
		where = append(where, "h.location LIKE CONCAT('%', ?, '%')")
		args = append(args, q.Location)
	}
	if q.MinPrice != nil {
		where = append(where, "h.price >= ?")
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		where = append(where, "h.price <= ?")
		args = append(args, *q.MaxPrice)
	}
	if q.MinRating != nil {
		where = append(where, "h.rating >= ?")
		args = append(args, *q.MinRating)
	}
	if q.Amenity != "" {
		where = append(where, "JSON_CONTAINS(h.amenities, JSON_QUOTE(?))")
		args = append(args, q.Amenity)
	}
	if q.Guests > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM rooms r WHERE r.hotel_id = h.id AND r.available >= ?)")
		args = append(args, q.Guests)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx,
		"SELECT"+hotelColumns+"FROM hotels h WHERE "+strings.Join(where, " AND ")+" ORDER BY h.created_at, h.id LIMIT ?",
		args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []domain.Hotel
	var ids []string
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
		ids = append(ids, h.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	if len(ids) == 0 {
		return out, nil
	}
	rooms, err := r.roomsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Rooms = rooms[out[i].ID]
	}
	return out, nil
}

func (r *Repo) roomsFor(ctx context.Context, hotelIDs []string) (map[string][]domain.Room, error) {
	marks := strings.TrimSuffix(strings.Repeat("?,", len(hotelIDs)), ",")
	args := make([]any, len(hotelIDs))
	for i, id := range hotelIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, roomsForHotelsPrefix+marks+") ORDER BY hotel_id, position", args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Room, len(hotelIDs))
	for rows.Next() {
		var rm domain.Room
		var amenities []byte
		if err := rows.Scan(&rm.ID, &rm.HotelID, &rm.Type, &rm.Price, &rm.Capacity, &rm.Units, &rm.Available, &amenities); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(amenities, &rm.Amenities)
		out[rm.HotelID] = append(out[rm.HotelID], rm)
	}
	return out, classify(rows.Err())
}

type scanner interface{ Scan(dest ...any) error }

func scanHotel(s scanner) (domain.Hotel, error) {
	var h domain.Hotel
	var desc, image sql.NullString
	var images, amenities []byte
	if err := s.Scan(&h.ID, &h.Name, &h.Location, &desc, &h.Price, &h.Rating, &image,
		&images, &amenities, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return domain.Hotel{}, err
	}
	h.Description, h.Image = desc.String, image.String
	_ = json.Unmarshal(images, &h.Images)
	_ = json.Unmarshal(amenities, &h.Amenities)
	return h, nil
}

/********** bookings **********/

func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, insertBookingSQL,
		b.ID, valStr(b.UserID), b.HotelID, b.RoomID,
		b.CheckIn.Format("2006-01-02"), b.CheckOut.Format("2006-01-02"),
		b.Guests, b.Nights, b.TotalPrice,
		mustJSON(b.GuestInfo), mustJSON(b.PaymentSummary), mustJSON(b.BillingAddress),
		b.Status, b.PaymentStatus, b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	return classify(err)
}

func (r *Repo) ConfirmBooking(ctx context.Context, bookingID, paymentID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, confirmBookingSQL, paymentID, at.UTC(), bookingID)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadyProcessed
	}
	return nil
}

func (r *Repo) RevertConfirmation(ctx context.Context, bookingID, paymentID string) error {
	res, err := r.db.ExecContext(ctx, revertConfirmationSQL, bookingID, paymentID)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, classify(err)
}

func (r *Repo) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, listBookingsByUserSQL, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, classify(rows.Err())
}

func scanBooking(s scanner) (domain.Booking, error) {
	var b domain.Booking
	var userID, paymentID sql.NullString
	var guest, payment, billing []byte
	if err := s.Scan(
		&b.ID, &userID, &b.HotelID, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.Guests, &b.Nights, &b.TotalPrice,
		&guest, &payment, &billing, &b.Status, &b.PaymentStatus, &paymentID,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return domain.Booking{}, err
	}
	b.UserID, b.PaymentID = userID.String, paymentID.String
	_ = json.Unmarshal(guest, &b.GuestInfo)
	_ = json.Unmarshal(payment, &b.PaymentSummary)
	_ = json.Unmarshal(billing, &b.BillingAddress)
	return b, nil
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

/********** payments **********/

func (r *Repo) CreatePayment(ctx context.Context, p domain.Payment) error {
	_, err := r.db.ExecContext(ctx, insertPaymentSQL,
		p.ID, p.BookingID, p.Amount, p.Method, p.Status, p.TransactionID, p.CreatedAt.UTC())
	return classify(err)
}

func (r *Repo) GetPaymentByBooking(ctx context.Context, bookingID string) (domain.Payment, error) {
	var p domain.Payment
	err := r.db.QueryRowContext(ctx, getPaymentByBookingSQL, bookingID).Scan(
		&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.Status, &p.TransactionID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, classify(err)
}

// Package mongo keeps hotels as documents with their rooms embedded, so a room
// counter update is a single-document write.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"hotel_booking/internal/domain"
)

const (
	hotelsColl   = "hotels"
	bookingsColl = "bookings"
	paymentsColl = "payments"
)

type Store struct {
	client   *mongo.Client
	hotels   *mongo.Collection
	bookings *mongo.Collection
	payments *mongo.Collection
}

func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	s := New(client.Database(dbName))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func New(db *mongo.Database) *Store {
	return &Store{
		client:   db.Client(),
		hotels:   db.Collection(hotelsColl),
		bookings: db.Collection(bookingsColl),
		payments: db.Collection(paymentsColl),
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.bookings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return classify(err)
	}
	_, err := s.payments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "bookingId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return classify(err)
}

func (s *Store) Ping(ctx context.Context) error { return classify(s.client.Ping(ctx, nil)) }
func (s *Store) Close() error                   { return s.client.Disconnect(context.Background()) }

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	case errors.Is(err, mongo.ErrClientDisconnected), errors.As(err, new(topology.ServerSelectionError)):
		// no server was selected, so nothing was written
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return err
}

/********** inventory **********/

// UpsertHotel replaces the catalog fields in one pipeline update. Counters already
// stored for a room are kept, clamped to the new capacity*units, so a reservation
// racing the write is never overwritten.
func (s *Store) UpsertHotel(ctx context.Context, h domain.Hotel) error {
	now := time.Now().UTC()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	rooms := h.Rooms
	if rooms == nil {
		rooms = []domain.Room{}
	}

	// literals keep "$"-prefixed catalog strings from being read as field paths
	lit := func(v any) bson.M { return bson.M{"$literal": v} }
	mergedRooms := bson.M{"$map": bson.M{
		"input": lit(rooms),
		"as":    "n",
		"in": bson.M{"$let": bson.M{
			"vars": bson.M{"old": bson.M{"$arrayElemAt": bson.A{
				bson.M{"$filter": bson.M{
					"input": bson.M{"$ifNull": bson.A{"$rooms", bson.A{}}},
					"as":    "o",
					"cond":  bson.M{"$eq": bson.A{"$$o.id", "$$n.id"}},
				}},
				0,
			}}},
			"in": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$$old", nil}}, nil}},
				"$$n",
				bson.M{"$mergeObjects": bson.A{"$$n", bson.M{"available": bson.M{"$min": bson.A{
					"$$old.available",
					bson.M{"$multiply": bson.A{"$$n.capacity", "$$n.units"}},
				}}}}},
			}},
		}},
	}}
	pipeline := mongo.Pipeline{{{Key: "$set", Value: bson.M{
		"name":        lit(h.Name),
		"location":    lit(h.Location),
		"description": lit(h.Description),
		"price":       lit(h.Price),
		"rating":      lit(h.Rating),
		"image":       lit(h.Image),
		"images":      lit(h.Images),
		"amenities":   lit(h.Amenities),
		"reviews":     lit(h.Reviews),
		"rooms":       mergedRooms,
		"createdAt":   bson.M{"$ifNull": bson.A{"$createdAt", lit(h.CreatedAt)}},
		"updatedAt":   lit(now),
	}}}}
	_, err := s.hotels.UpdateOne(ctx, bson.M{"_id": h.ID}, pipeline, options.Update().SetUpsert(true))
	return classify(err)
}

func (s *Store) ReserveRoom(ctx context.Context, hotelID, roomID string, guests int) error {
	res, err := s.hotels.UpdateOne(ctx,
		bson.M{"_id": hotelID, "rooms": bson.M{"$elemMatch": bson.M{"id": roomID, "available": bson.M{"$gte": guests}}}},
		bson.M{"$inc": bson.M{"rooms.$.available": -guests}},
	)
	if err != nil {
		return classify(err)
	}
	if res.ModifiedCount == 1 {
		return nil
	}
	n, err := s.hotels.CountDocuments(ctx, bson.M{"_id": hotelID, "rooms.id": roomID})
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientAvailability
}

// ReleaseRoom uses an update pipeline so the cap is applied in the same write.
func (s *Store) ReleaseRoom(ctx context.Context, hotelID, roomID string, guests int) error {
	pipeline := mongo.Pipeline{{{Key: "$set", Value: bson.M{
		"rooms": bson.M{"$map": bson.M{
			"input": "$rooms",
			"as":    "r",
			"in": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$$r.id", roomID}},
				bson.M{"$mergeObjects": bson.A{"$$r", bson.M{"available": bson.M{"$min": bson.A{
					bson.M{"$add": bson.A{"$$r.available", guests}},
					bson.M{"$multiply": bson.A{"$$r.capacity", "$$r.units"}},
				}}}}},
				"$$r",
			}},
		}},
	}}}}
	res, err := s.hotels.UpdateOne(ctx, bson.M{"_id": hotelID, "rooms.id": roomID}, pipeline)
	if err != nil {
		return classify(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) GetHotel(ctx context.Context, id string) (domain.Hotel, error) {
	var h domain.Hotel
	if err := s.hotels.FindOne(ctx, bson.M{"_id": id}).Decode(&h); err != nil {
		return domain.Hotel{}, classify(err)
	}
	return withHotelIDs(h), nil
}

func (s *Store) ListHotels(ctx context.Context, q domain.HotelsQuery) ([]domain.Hotel, error) {
	filter := bson.M{}
	if q.Location != "" {
		filter["location"] = bson.M{"$regex": regexp.QuoteMeta(q.Location), "$options": "i"}
	}
	price := bson.M{}
	if q.MinPrice != nil {
		price["$gte"] = *q.MinPrice
	}
	if q.MaxPrice != nil {
		price["$lte"] = *q.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	if q.MinRating != nil {
		filter["rating"] = bson.M{"$gte": *q.MinRating}
	}
	if q.Amenity != "" {
		filter["amenities"] = bson.M{"$regex": "^" + regexp.QuoteMeta(q.Amenity) + "$", "$options": "i"}
	}
	if q.Guests > 0 {
		filter["rooms"] = bson.M{"$elemMatch": bson.M{"available": bson.M{"$gte": q.Guests}}}
	}
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 50
	}
	cur, err := s.hotels.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit))
	if err != nil {
		return nil, classify(err)
	}
	var out []domain.Hotel
	if err := cur.All(ctx, &out); err != nil {
		return nil, classify(err)
	}
	for i := range out {
		out[i] = withHotelIDs(out[i])
	}
	return out, nil
}

func withHotelIDs(h domain.Hotel) domain.Hotel {
	for i := range h.Rooms {
		h.Rooms[i].HotelID = h.ID
	}
	return h
}

/********** bookings **********/

func (s *Store) CreateBooking(ctx context.Context, b domain.Booking) error {
	_, err := s.bookings.InsertOne(ctx, b)
	return classify(err)
}

func (s *Store) ConfirmBooking(ctx context.Context, bookingID, paymentID string, at time.Time) error {
	res, err := s.bookings.UpdateOne(ctx,
		bson.M{"_id": bookingID, "status": domain.BookingPending, "paymentStatus": domain.PaymentPending},
		bson.M{"$set": bson.M{
			"status":        domain.BookingConfirmed,
			"paymentStatus": domain.PaymentCompleted,
			"paymentId":     paymentID,
			"updatedAt":     at.UTC(),
		}},
	)
	if err != nil {
		return classify(err)
	}
	if res.ModifiedCount == 0 {
		return domain.ErrAlreadyProcessed
	}
	return nil
}

func (s *Store) RevertConfirmation(ctx context.Context, bookingID, paymentID string) error {
	res, err := s.bookings.UpdateOne(ctx,
		bson.M{"_id": bookingID, "paymentId": paymentID, "status": domain.BookingConfirmed},
		bson.M{
			"$set":   bson.M{"status": domain.BookingPending, "paymentStatus": domain.PaymentPending},
			"$unset": bson.M{"paymentId": ""},
		},
	)
	if err != nil {
		return classify(err)
	}
	if res.ModifiedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	var b domain.Booking
	if err := s.bookings.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return domain.Booking{}, classify(err)
	}
	return b, nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	cur, err := s.bookings.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, classify(err)
	}
	out := []domain.Booking{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

/********** payments **********/

func (s *Store) CreatePayment(ctx context.Context, p domain.Payment) error {
	_, err := s.payments.InsertOne(ctx, p)
	return classify(err)
}

func (s *Store) GetPaymentByBooking(ctx context.Context, bookingID string) (domain.Payment, error) {
	var p domain.Payment
	if err := s.payments.FindOne(ctx, bson.M{"bookingId": bookingID}).Decode(&p); err != nil {
		return domain.Payment{}, classify(err)
	}
	return p, nil
}

package domain

import (
	"strings"
	"time"
)

type Hotel struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Location    string    `json:"location" bson:"location"`
	Description string    `json:"description,omitempty" bson:"description"`
	Price       float64   `json:"price" bson:"price"` // nightly
	Rating      float64   `json:"rating" bson:"rating"`
	Image       string    `json:"image,omitempty" bson:"image"`
	Images      []string  `json:"images,omitempty" bson:"images"`
	Amenities   []string  `json:"amenities,omitempty" bson:"amenities"`
	Rooms       []Room    `json:"rooms" bson:"rooms"`
	Reviews     []Review  `json:"reviews,omitempty" bson:"reviews"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Room counters are measured in guest slots: Available may never drop below zero
// nor exceed Capacity*Units.
type Room struct {
	ID        string   `json:"id" bson:"id"`
	HotelID   string   `json:"hotelId" bson:"-"`
	Type      string   `json:"type" bson:"type"`
	Price     float64  `json:"price" bson:"price"`
	Capacity  int      `json:"capacity" bson:"capacity"`
	Units     int      `json:"units" bson:"units"`
	Available int      `json:"available" bson:"available"`
	Amenities []string `json:"amenities,omitempty" bson:"amenities"`
}

type Review struct {
	UserID    string    `json:"userId" bson:"userId"`
	Rating    float64   `json:"rating" bson:"rating"`
	Comment   string    `json:"comment" bson:"comment"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

func (r Room) MaxAvailable() int { return r.Capacity * r.Units }

// RoomInput is a room as submitted for creation. A nil Available starts the room
// fully available; an explicit zero creates it sold out.
type RoomInput struct {
	Room
	Available *int `json:"available,omitempty"`
}

// HotelInput is a hotel as submitted by an admin or a catalog record.
type HotelInput struct {
	Hotel
	Rooms []RoomInput `json:"rooms"`
}

// Room returns the room with the given id, or false when the hotel does not own it.
func (h Hotel) Room(id string) (Room, bool) {
	for _, r := range h.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}

// NightlyRate is the room price when set, else the hotel's base price.
func (h Hotel) NightlyRate(roomID string) float64 {
	if r, ok := h.Room(roomID); ok && r.Price > 0 {
		return r.Price
	}
	return h.Price
}

// Validate checks the administrative create contract: name, location and a positive
// price, plus the room counter bounds.
func (h Hotel) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return Invalid("name", "is required")
	}
	if strings.TrimSpace(h.Location) == "" {
		return Invalid("location", "is required")
	}
	if h.Price <= 0 {
		return Invalid("price", "must be greater than zero")
	}
	if h.Rating < 0 || h.Rating > 5 {
		return Invalid("rating", "must be between 0 and 5")
	}
	for _, r := range h.Rooms {
		if strings.TrimSpace(r.Type) == "" {
			return Invalid("rooms.type", "is required")
		}
		if r.Capacity < 1 || r.Units < 1 {
			return Invalid("rooms.capacity", "capacity and units must be at least 1")
		}
		if r.Available < 0 || r.Available > r.MaxAvailable() {
			return Invalid("rooms.available", "must be between 0 and capacity*units")
		}
	}
	return nil
}

type HotelsQuery struct {
	Location  string
	MinPrice  *float64
	MaxPrice  *float64
	MinRating *float64
	Amenity   string
	Guests    int
	Limit     int
}

// Matches applies the query filters in memory; SQL and Mongo stores push the same
// predicates down to the database.
func (q HotelsQuery) Matches(h Hotel) bool {
	if q.Location != "" && !strings.Contains(strings.ToLower(h.Location), strings.ToLower(q.Location)) {
		return false
	}
	if q.MinPrice != nil && h.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && h.Price > *q.MaxPrice {
		return false
	}
	if q.MinRating != nil && h.Rating < *q.MinRating {
		return false
	}
	if q.Amenity != "" && !containsFold(h.Amenities, q.Amenity) {
		return false
	}
	if q.Guests > 0 {
		fits := false
		for _, r := range h.Rooms {
			if r.Available >= q.Guests {
				fits = true
				break
			}
		}
		if !fits {
			return false
		}
	}
	return true
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

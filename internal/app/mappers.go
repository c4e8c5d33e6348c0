package app

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/domain"
)

/********** alias registries (single source of truth) **********/

var hotelAliases = map[string][]string{
	"id":          {"id", "_id", "hotel_id", "hotelId"},
	"name":        {"name", "hotel_name", "title"},
	"location":    {"location", "address.city", "city", "address", "location.city"},
	"description": {"description", "summary", "about"},
	"price":       {"price", "nightly_price", "price_per_night", "pricePerNight", "rate"},
	"rating":      {"rating", "stars", "score", "rating.value"},
	"image":       {"image", "thumbnail", "cover"},
	"images":      {"images", "photos", "gallery"},
	"amenities":   {"amenities", "facilities", "tags"},
	"rooms":       {"rooms", "room_types", "roomTypes"},
}

var roomAliases = map[string][]string{
	"id":        {"id", "room_id", "roomId"},
	"type":      {"type", "name", "room_type", "label"},
	"price":     {"price", "rate", "nightly_price"},
	"capacity":  {"capacity", "max_guests", "maxGuests", "occupancy"},
	"units":     {"units", "count", "quantity", "unit_count"},
	"available": {"available", "availability"},
	"amenities": {"amenities", "facilities", "tags"},
}

// catalogNS seeds derived ids so a re-import of the same record updates in place.
var catalogNS = uuid.MustParse("6f1f7c3e-2b8a-4d55-9a63-0c1b7e2f5a10")

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// firstAlias: first non-empty string for a named alias set.
func firstAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) (float64, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			s = strings.TrimPrefix(s, "$")
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func getIntFlexible(m map[string]any, paths ...string) int {
	if f, ok := getFloatFlexible(m, paths...); ok {
		return int(f)
	}
	return 0
}

// firstSliceStrings: accept []any with either strings or {url/src/name}, or a
// comma separated string.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		switch raw := lookupAny(m, k).(type) {
		case []any:
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t = strings.TrimSpace(t); t != "" {
						out = append(out, t)
					}
				case map[string]any:
					for _, f := range []string{"url", "src", "name"} {
						if u, ok := t[f].(string); ok && u != "" {
							out = append(out, u)
							break
						}
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			var out []string
			for _, p := range strings.Split(raw, ",") {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func firstRecords(m map[string]any, paths ...string) []map[string]any {
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		out := make([]map[string]any, 0, len(raw))
		for _, it := range raw {
			if rec, ok := it.(map[string]any); ok {
				out = append(out, rec)
			}
		}
		return out
	}
	return nil
}

/********** hotel mapper **********/

func mapHotelRecord(rec map[string]any) domain.HotelInput {
	h := domain.HotelInput{Hotel: domain.Hotel{
		ID:          firstAlias(rec, hotelAliases, "id"),
		Name:        firstAlias(rec, hotelAliases, "name"),
		Location:    firstAlias(rec, hotelAliases, "location"),
		Description: firstAlias(rec, hotelAliases, "description"),
		Image:       firstAlias(rec, hotelAliases, "image"),
		Images:      firstSliceStrings(rec, hotelAliases["images"]...),
		Amenities:   firstSliceStrings(rec, hotelAliases["amenities"]...),
	}}
	if h.ID == "" {
		h.ID = uuid.NewSHA1(catalogNS, []byte(strings.ToLower(h.Name+"|"+h.Location))).String()
	}
	h.Price, _ = getFloatFlexible(rec, hotelAliases["price"]...)
	h.Rating, _ = getFloatFlexible(rec, hotelAliases["rating"]...)

	for i, r := range firstRecords(rec, hotelAliases["rooms"]...) {
		room := domain.RoomInput{Room: domain.Room{
			ID:        firstAlias(r, roomAliases, "id"),
			Type:      firstAlias(r, roomAliases, "type"),
			Capacity:  getIntFlexible(r, roomAliases["capacity"]...),
			Units:     getIntFlexible(r, roomAliases["units"]...),
			Amenities: firstSliceStrings(r, roomAliases["amenities"]...),
		}}
		room.Price, _ = getFloatFlexible(r, roomAliases["price"]...)
		if avail, ok := getFloatFlexible(r, roomAliases["available"]...); ok {
			n := int(avail)
			room.Available = &n
		}
		if room.ID == "" {
			room.ID = uuid.NewSHA1(catalogNS, []byte(h.ID+"/"+strconv.Itoa(i)+"/"+room.Type)).String()
		}
		h.Rooms = append(h.Rooms, room)
	}

	if len(h.Rooms) == 0 {
		log.Debug().Str("hotel_id", h.ID).Str("name", h.Name).Msg("catalog record has no rooms")
	}
	return h
}

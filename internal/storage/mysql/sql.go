package mysql

const upsertHotelSQL = `
INSERT INTO hotels
  (id, name, location, description, price, rating, image, images, amenities, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name        = VALUES(name),
  location    = VALUES(location),
  description = VALUES(description),
  price       = VALUES(price),
  rating      = VALUES(rating),
  image       = VALUES(image),
  images      = VALUES(images),
  amenities   = VALUES(amenities),
  updated_at  = VALUES(updated_at)
`

// Rooms are keyed by (hotel_id, id). A catalog re-import must not reset live
// counters: keep the current value, clamped to the new bound.
const upsertRoomSQL = `
INSERT INTO rooms
  (id, hotel_id, position, type, price, capacity, units, available, amenities)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  position  = VALUES(position),
  type      = VALUES(type),
  price     = VALUES(price),
  capacity  = VALUES(capacity),
  units     = VALUES(units),
  available = LEAST(rooms.available, VALUES(capacity) * VALUES(units)),
  amenities = VALUES(amenities)
`

const deleteReviewsSQL = `DELETE FROM reviews WHERE hotel_id = ?`

const insertReviewSQL = `
INSERT INTO reviews (hotel_id, user_id, rating, comment, created_at)
VALUES (?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP(6)))
`

// -----------------------------------------------------------------------------
// COUNTERS
// -----------------------------------------------------------------------------

// The availability predicate and the decrement are one statement; InnoDB row locks
// serialise concurrent reservations on the same room.
const reserveRoomSQL = `
UPDATE rooms
SET available = available - ?
WHERE id = ? AND hotel_id = ? AND available >= ?
`

const releaseRoomSQL = `
UPDATE rooms
SET available = LEAST(available + ?, capacity * units)
WHERE id = ? AND hotel_id = ?
`

const roomAvailableSQL = `SELECT available FROM rooms WHERE id = ? AND hotel_id = ?`

// -----------------------------------------------------------------------------
// BOOKINGS / PAYMENTS
// -----------------------------------------------------------------------------

const insertBookingSQL = `
INSERT INTO bookings
  (id, user_id, hotel_id, room_id, check_in, check_out, guests, nights, total_price,
   guest_info, payment_info, billing_address, status, payment_status, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const confirmBookingSQL = `
UPDATE bookings
SET status = 'confirmed', payment_status = 'completed', payment_id = ?, updated_at = ?
WHERE id = ? AND status = 'pending' AND payment_status = 'pending'
`

const revertConfirmationSQL = `
UPDATE bookings
SET status = 'pending', payment_status = 'pending', payment_id = NULL
WHERE id = ? AND payment_id = ? AND status = 'confirmed'
`

const bookingColumns = `
  id, user_id, hotel_id, room_id, check_in, check_out, guests, nights, total_price,
  guest_info, payment_info, billing_address, status, payment_status, payment_id,
  created_at, updated_at
`

const getBookingSQL = `SELECT` + bookingColumns + `FROM bookings WHERE id = ?`

const listBookingsByUserSQL = `SELECT` + bookingColumns + `FROM bookings
WHERE user_id = ?
ORDER BY created_at DESC, id DESC`

const insertPaymentSQL = `
INSERT INTO payments (id, booking_id, amount, method, status, transaction_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const getPaymentByBookingSQL = `
SELECT id, booking_id, amount, method, status, transaction_id, created_at
FROM payments
WHERE booking_id = ?
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const hotelColumns = `
  h.id, h.name, h.location, h.description, h.price, h.rating, h.image,
  h.images, h.amenities, h.created_at, h.updated_at
`

const getHotelSQL = `SELECT` + hotelColumns + `FROM hotels h WHERE h.id = ?`

const roomsForHotelsPrefix = `
SELECT id, hotel_id, type, price, capacity, units, available, amenities
FROM rooms
WHERE hotel_id IN (`

const reviewsForHotelSQL = `
SELECT user_id, rating, comment, created_at
FROM reviews
WHERE hotel_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 50
`

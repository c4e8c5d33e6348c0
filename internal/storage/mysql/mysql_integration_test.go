//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"hotel_booking/internal/domain"
	mysqlrepo "hotel_booking/internal/storage/mysql"
)

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Skipf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	mustEnv(t, "MIGRATIONS_DIR")

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=hotels"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Skipf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/hotels?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func TestRepo_MySQL_BookingLifecycle(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	h := domain.Hotel{
		ID: "h-1", Name: "Grand Plaza", Location: "New York, USA", Price: 199, Rating: 4.5,
		Amenities: []string{"Spa", "Pool"},
		Rooms:     []domain.Room{{ID: "r-1", Type: "Double", Price: 199, Capacity: 2, Units: 2, Available: 4}},
		Reviews:   []domain.Review{{UserID: "u-9", Rating: 5, Comment: "lovely"}},
	}
	if err := repo.UpsertHotel(ctx, h); err != nil {
		t.Fatalf("UpsertHotel: %v", err)
	}

	if err := repo.ReserveRoom(ctx, "h-1", "r-1", 3); err != nil {
		t.Fatalf("ReserveRoom: %v", err)
	}
	if err := repo.ReserveRoom(ctx, "h-1", "r-1", 2); !errors.Is(err, domain.ErrInsufficientAvailability) {
		t.Fatalf("want insufficient availability, got %v", err)
	}
	if err := repo.ReserveRoom(ctx, "h-1", "r-404", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	b := domain.Booking{
		ID: "b-1", UserID: "u-1", HotelID: "h-1", RoomID: "r-1",
		CheckIn: now.AddDate(0, 0, 7), CheckOut: now.AddDate(0, 0, 9), Guests: 3, Nights: 2, TotalPrice: 398,
		GuestInfo:      domain.GuestInfo{FirstName: "Ada", LastName: "L", Email: "ada@example.com", Phone: "1"},
		PaymentSummary: domain.PaymentSummary{Method: "credit-card", CardLast4: "4242"},
		Status:         domain.BookingPending, PaymentStatus: domain.PaymentPending,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.CreateBooking(ctx, b); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if err := repo.ConfirmBooking(ctx, "b-1", "p-1", now); err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	if err := repo.ConfirmBooking(ctx, "b-1", "p-2", now); !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("second confirm: want already processed, got %v", err)
	}
	if err := repo.CreatePayment(ctx, domain.Payment{ID: "p-1", BookingID: "b-1", Amount: 398, Method: "credit-card",
		Status: domain.PaymentCompleted, TransactionID: "TXN-1", CreatedAt: now}); err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if err := repo.CreatePayment(ctx, domain.Payment{ID: "p-2", BookingID: "b-1", Amount: 1, Method: "x",
		Status: domain.PaymentCompleted, TransactionID: "TXN-2", CreatedAt: now}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate payment: want conflict, got %v", err)
	}

	got, err := repo.GetBooking(ctx, "b-1")
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if got.Status != domain.BookingConfirmed || got.PaymentID != "p-1" || got.PaymentSummary.CardLast4 != "4242" {
		t.Fatalf("unexpected booking: %+v", got)
	}

	list, err := repo.ListBookingsByUser(ctx, "u-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListBookingsByUser: %v %d", err, len(list))
	}

	hv, err := repo.GetHotel(ctx, "h-1")
	if err != nil {
		t.Fatalf("GetHotel: %v", err)
	}
	if hv.Rooms[0].Available != 1 || len(hv.Reviews) != 1 {
		t.Fatalf("unexpected hotel view: %+v", hv)
	}

	guests := 2
	found, err := repo.ListHotels(ctx, domain.HotelsQuery{Location: "york", Amenity: "Spa", Guests: guests})
	if err != nil {
		t.Fatalf("ListHotels: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("only one slot left, want no match for %d guests", guests)
	}
}

func TestRepo_MySQL_ConcurrentReserveNeverOversells(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	if err := repo.UpsertHotel(ctx, domain.Hotel{
		ID: "h-c", Name: "Race", Location: "Nowhere", Price: 10,
		Rooms: []domain.Room{{ID: "r-c", Type: "Dorm", Capacity: 5, Units: 1, Available: 5}},
	}); err != nil {
		t.Fatalf("UpsertHotel: %v", err)
	}

	var ok int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if repo.ReserveRoom(ctx, "h-c", "r-c", 1) == nil {
				atomic.AddInt64(&ok, 1)
			}
		}()
	}
	wg.Wait()

	if ok != 5 {
		t.Fatalf("want 5 successful reservations, got %d", ok)
	}
	h, err := repo.GetHotel(ctx, "h-c")
	if err != nil {
		t.Fatalf("GetHotel: %v", err)
	}
	if h.Rooms[0].Available != 0 {
		t.Fatalf("want counter at 0, got %d", h.Rooms[0].Available)
	}
}

func TestRepo_MySQL_RoomIDsAreScopedPerHotel(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	a := domain.Hotel{ID: "h-a", Name: "Alpha", Location: "Oslo", Price: 100,
		Rooms: []domain.Room{{ID: "r1", Type: "Single", Price: 100, Capacity: 1, Units: 3, Available: 3}}}
	b := domain.Hotel{ID: "h-b", Name: "Beta", Location: "Bergen", Price: 300,
		Rooms: []domain.Room{{ID: "r1", Type: "Suite", Price: 300, Capacity: 4, Units: 1, Available: 4}}}
	for _, h := range []domain.Hotel{a, b} {
		if err := repo.UpsertHotel(ctx, h); err != nil {
			t.Fatalf("UpsertHotel %s: %v", h.ID, err)
		}
	}

	if err := repo.ReserveRoom(ctx, "h-b", "r1", 4); err != nil {
		t.Fatalf("ReserveRoom h-b: %v", err)
	}

	gotA, err := repo.GetHotel(ctx, "h-a")
	if err != nil {
		t.Fatalf("GetHotel h-a: %v", err)
	}
	gotB, err := repo.GetHotel(ctx, "h-b")
	if err != nil {
		t.Fatalf("GetHotel h-b: %v", err)
	}
	if len(gotA.Rooms) != 1 || gotA.Rooms[0].Type != "Single" || gotA.Rooms[0].Available != 3 {
		t.Fatalf("hotel A rooms changed: %+v", gotA.Rooms)
	}
	if len(gotB.Rooms) != 1 || gotB.Rooms[0].Type != "Suite" || gotB.Rooms[0].Available != 0 {
		t.Fatalf("hotel B rooms: %+v", gotB.Rooms)
	}

	// re-importing B must not touch A's counter
	if err := repo.UpsertHotel(ctx, b); err != nil {
		t.Fatalf("re-upsert h-b: %v", err)
	}
	if err := repo.ReserveRoom(ctx, "h-a", "r1", 3); err != nil {
		t.Fatalf("ReserveRoom h-a: %v", err)
	}
	if err := repo.ReleaseRoom(ctx, "h-a", "r1", 1); err != nil {
		t.Fatalf("ReleaseRoom h-a: %v", err)
	}
	gotB, err = repo.GetHotel(ctx, "h-b")
	if err != nil {
		t.Fatalf("GetHotel h-b: %v", err)
	}
	if gotB.Rooms[0].Available != 0 {
		t.Fatalf("hotel B counter moved with hotel A: %+v", gotB.Rooms)
	}
}

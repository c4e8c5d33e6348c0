//go:build integration || !unit

package integration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"

	httpserver "hotel_booking/internal/adapters/http_server"
	redisad "hotel_booking/internal/adapters/redis"
	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	mysqlrepo "hotel_booking/internal/storage/mysql"
)

// ---------- helpers ----------

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

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/hotels?parseTime=true&multiStatements=true&charset=utf8mb4&loc=UTC",
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

func post(t *testing.T, url, body string, out any) int {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer res.Body.Close()
	if out != nil && res.StatusCode < 300 {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return res.StatusCode
}

func get(t *testing.T, url string, out any) int {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	if out != nil && res.StatusCode == http.StatusOK {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return res.StatusCode
}

// ---------- the test ----------

func TestHTTP_EndToEnd_BookAndPay(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	cache := redisad.NewFromClient(rc)
	idem := redisad.NewIdempotency(rc)

	opts := app.Options{StoreTimeout: 5 * time.Second}
	srv := httpserver.New(10 * time.Second)
	srv.MountHandlers(&httpserver.Handlers{
		Bookings: app.NewBookingService(repo, cache, nil, idem, opts),
		Payments: app.NewPaymentService(repo, nil, idem, opts),
		Q:        app.NewQueryService(repo, cache, opts),
		Catalog:  app.NewCatalogService(repo, cache, opts),
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	var created struct {
		ID string `json:"id"`
	}
	if code := post(t, ts.URL+"/hotels",
		`{"name":"Hôtel E2E","location":"Istanbul, TR","price":120,"rating":4.2,"amenities":["Hammam"],
		  "rooms":[{"type":"Double","capacity":2,"units":1}]}`, &created); code != http.StatusCreated {
		t.Fatalf("create hotel status %d", code)
	}

	var hotel domain.Hotel
	if code := get(t, ts.URL+"/hotels/"+created.ID, &hotel); code != http.StatusOK {
		t.Fatalf("get hotel status %d", code)
	}
	if len(hotel.Rooms) != 1 || hotel.Rooms[0].Available != 2 {
		t.Fatalf("unexpected rooms: %+v", hotel.Rooms)
	}
	if !mr.Exists("hotel:" + created.ID) {
		t.Fatalf("hotel view was not cached")
	}

	checkIn := time.Now().UTC().AddDate(0, 1, 0)
	booking := fmt.Sprintf(`{"userId":"u-e2e","hotelId":%q,"checkIn":%q,"checkOut":%q,"guests":2,
	  "guestInfo":{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","phone":"+90 212 000"},
	  "paymentInfo":{"method":"credit-card","cardNumber":"4242424242424242","cardName":"Ada","expiry":"12/30","cvv":"123"},
	  "billingAddress":{"address":"1 Main St","city":"Istanbul","state":"IST","zip":"34000"}}`,
		created.ID, checkIn.Format("2006-01-02"), checkIn.AddDate(0, 0, 2).Format("2006-01-02"))

	var b struct {
		ID string `json:"id"`
	}
	if code := post(t, ts.URL+"/bookings", booking, &b); code != http.StatusCreated {
		t.Fatalf("create booking status %d", code)
	}
	if mr.Exists("hotel:" + created.ID) {
		t.Fatalf("hotel view should be evicted after a booking")
	}
	if code := post(t, ts.URL+"/bookings", booking, nil); code != http.StatusConflict {
		t.Fatalf("second booking status %d, want 409", code)
	}

	pay := fmt.Sprintf(`{"bookingId":%q,"amount":240,"paymentMethod":"credit-card"}`, b.ID)
	if code := post(t, ts.URL+"/payments", pay, nil); code != http.StatusOK {
		t.Fatalf("payment status %d", code)
	}
	if code := post(t, ts.URL+"/payments", pay, nil); code != http.StatusNotFound {
		t.Fatalf("repeat payment status %d, want 404", code)
	}

	var stored domain.Booking
	if code := get(t, ts.URL+"/bookings/"+b.ID, &stored); code != http.StatusOK {
		t.Fatalf("get booking status %d", code)
	}
	if stored.Status != domain.BookingConfirmed || stored.PaymentStatus != domain.PaymentCompleted {
		t.Fatalf("unexpected booking state: %s/%s", stored.Status, stored.PaymentStatus)
	}
	if stored.PaymentSummary.CardLast4 != "4242" {
		t.Fatalf("card not masked: %+v", stored.PaymentSummary)
	}
}

package connectivity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/taptarget/dbopen"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	return dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
}

func echo(_ context.Context, p []byte) ([]byte, error) { return p, nil }

func TestCall_Local(t *testing.T) {
	r := New()
	r.RegisterLocal("echo", echo)

	got, err := r.Call(context.Background(), "echo", []byte("hi"))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(got) != "hi" {
		t.Errorf("got %q, want %q", got, "hi")
	}
}

func TestCall_NotFound(t *testing.T) {
	_, err := New().Call(context.Background(), "missing", nil)
	var nf *ErrServiceNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("got %v, want ErrServiceNotFound", err)
	}
	if nf.Service != "missing" {
		t.Errorf("service: got %q", nf.Service)
	}
}

func TestReload_Noop(t *testing.T) {
	db := testDB(t)
	r := New()
	r.RegisterLocal("echo", echo)

	db.Exec(`INSERT INTO routes (service_name, strategy) VALUES ('echo', 'noop')`)
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	got, err := r.Call(context.Background(), "echo", []byte("hi"))
	if err != nil || got != nil {
		t.Errorf("noop: got %q, %v; want nil, nil", got, err)
	}
}

func TestReload_HTTPRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		w.Write(append([]byte("remote:"), body...))
	}))
	defer srv.Close()

	db := testDB(t)
	r := New()
	r.RegisterLocal("echo", echo)
	r.RegisterTransport("http", HTTPFactory(HTTPOptions{AllowPrivate: true}))
	defer r.Close()

	if _, err := db.Exec(`INSERT INTO routes (service_name, strategy, endpoint) VALUES ('echo', 'http', ?)`, srv.URL); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	got, err := r.Call(context.Background(), "echo", []byte("x"))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(got) != "remote:x" {
		t.Errorf("got %q, want %q", got, "remote:x")
	}

	// Switching back to local takes effect on the next reload.
	db.Exec(`UPDATE routes SET strategy = 'local', endpoint = NULL WHERE service_name = 'echo'`)
	if err := r.Reload(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	got, _ = r.Call(context.Background(), "echo", []byte("x"))
	if string(got) != "x" {
		t.Errorf("after switch: got %q, want %q", got, "x")
	}
}

func TestReload_KeepsUnchangedHandler(t *testing.T) {
	db := testDB(t)
	builds := 0
	closes := 0
	r := New()
	r.RegisterTransport("http", func(string, json.RawMessage) (Handler, func(), error) {
		builds++
		return echo, func() { closes++ }, nil
	})
	db.Exec(`INSERT INTO routes (service_name, strategy, endpoint) VALUES ('svc', 'http', 'http://a')`)

	ctx := context.Background()
	r.Reload(ctx, db)
	r.Reload(ctx, db)
	if builds != 1 || closes != 0 {
		t.Fatalf("unchanged: builds=%d closes=%d, want 1/0", builds, closes)
	}

	db.Exec(`UPDATE routes SET endpoint = 'http://b' WHERE service_name = 'svc'`)
	r.Reload(ctx, db)
	if builds != 2 || closes != 1 {
		t.Fatalf("changed: builds=%d closes=%d, want 2/1", builds, closes)
	}

	db.Exec(`DELETE FROM routes`)
	r.Reload(ctx, db)
	if closes != 2 {
		t.Fatalf("removed: closes=%d, want 2", closes)
	}
}

func TestHTTPFactory_BlocksPrivate(t *testing.T) {
	_, _, err := HTTPFactory(HTTPOptions{})("http://127.0.0.1:9/", nil)
	if err == nil {
		t.Fatal("expected loopback endpoint to be rejected")
	}
}

func TestHTTPFactory_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer srv.Close()

	h, closeFn, err := HTTPFactory(HTTPOptions{AllowPrivate: true})(srv.URL, []byte(`{"timeout_ms": 500}`))
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	if _, err := h(context.Background(), nil); err == nil {
		t.Error("expected error on 400")
	}
}

func TestMiddleware(t *testing.T) {
	logger := discardLogger()

	t.Run("recovery", func(t *testing.T) {
		h := Recovery(logger)(func(context.Context, []byte) ([]byte, error) { panic("boom") })
		_, err := h(context.Background(), nil)
		var p *ErrPanic
		if !errors.As(err, &p) {
			t.Fatalf("got %v, want ErrPanic", err)
		}
		if p.Value != "boom" {
			t.Errorf("value: got %v", p.Value)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		h := Timeout(10 * time.Millisecond)(func(ctx context.Context, _ []byte) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		_, err := h(context.Background(), nil)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("got %v, want DeadlineExceeded", err)
		}
	})

	t.Run("chain", func(t *testing.T) {
		h := Chain(Logging(logger, "echo"), Recovery(logger))(echo)
		got, err := h(context.Background(), []byte("ok"))
		if err != nil || string(got) != "ok" {
			t.Errorf("got %q, %v", got, err)
		}
	})
}

func TestWatch_PicksUpChanges(t *testing.T) {
	path := t.TempDir() + "/routes.db"
	db, err := dbopen.Open(path, dbopen.WithSchema(Schema))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	r := New(WithLogger(discardLogger()))
	r.RegisterLocal("echo", echo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { r.Watch(ctx, db, 10*time.Millisecond); close(done) }()
	defer func() { cancel(); <-done }()

	// A second connection makes data_version move for the watcher.
	writer, err := dbopen.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Close()
	if _, err := writer.Exec(`INSERT INTO routes (service_name, strategy) VALUES ('echo', 'noop')`); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := r.Call(context.Background(), "echo", []byte("x"))
		if err == nil && got == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("watcher never applied the noop route")
}

package store

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/taptarget/dbopen"
	"github.com/hazyhaar/taptarget/tapaudit"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return &Store{DB: dbopen.OpenMemory(t, dbopen.WithSchema(Schema))}
}

func failingRun(id, page string, at int64) *Run {
	score := 0.5
	return &Run{
		ID:        id,
		PageURL:   page,
		AuditID:   "tap-targets",
		CreatedAt: at,
		Result: tapaudit.Result{
			Score:        &score,
			DisplayValue: "50% appropriately sized tap targets",
			TargetCount:  2,
			FailingCount: 1,
			Rows: []tapaudit.TableRow{{
				TapTarget:         tapaudit.Node{Selector: "a.nav", NodeLabel: "Home"},
				Size:              "20x20",
				Width:             20,
				Height:            20,
				OverlappingTarget: tapaudit.Node{Selector: "button#menu"},
				OverlapScoreRatio: 0.9,
			}},
		},
	}
}

func TestRunRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.InsertRun(ctx, failingRun("run-1", "https://example.com/", 1000)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("run not found")
	}
	if got.PageURL != "https://example.com/" || got.AuditID != "tap-targets" {
		t.Errorf("run: got %+v", got)
	}
	if got.Result.Score == nil || *got.Result.Score != 0.5 {
		t.Errorf("score: got %v", got.Result.Score)
	}
	if len(got.Result.Rows) != 1 || got.Result.Rows[0].Size != "20x20" {
		t.Errorf("rows: got %+v", got.Result.Rows)
	}
}

func TestGetRun_Missing(t *testing.T) {
	got, err := testStore(t).GetRun(context.Background(), "nope")
	if err != nil || got != nil {
		t.Errorf("got %v, %v; want nil, nil", got, err)
	}
}

func TestListRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	s.InsertRun(ctx, failingRun("r1", "https://a.example/", 1000))
	s.InsertRun(ctx, failingRun("r2", "https://b.example/", 2000))
	s.InsertRun(ctx, &Run{
		ID: "r3", PageURL: "https://a.example/", AuditID: "tap-targets", CreatedAt: 3000,
		Result: tapaudit.Result{Skipped: true, Explanation: "no viewport"},
	})

	all, err := s.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "r3" || all[2].ID != "r1" {
		t.Fatalf("order: got %d runs, first %q", len(all), all[0].ID)
	}
	if all[0].Score != nil || !all[0].Skipped {
		t.Errorf("skipped run: got %+v", all[0])
	}

	pageA, _ := s.ListRuns(ctx, "https://a.example/", 10)
	if len(pageA) != 2 {
		t.Errorf("page filter: got %d, want 2", len(pageA))
	}

	one, _ := s.ListRuns(ctx, "", 1)
	if len(one) != 1 {
		t.Errorf("limit: got %d, want 1", len(one))
	}
}

func TestCountAndOffenders(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	s.InsertRun(ctx, failingRun("r1", "https://a.example/", 1000))
	s.InsertRun(ctx, failingRun("r2", "https://b.example/", 2000))

	c, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c.Runs != 2 || c.Pages != 2 || c.Passed != 0 || c.FailedRows != 2 {
		t.Errorf("counts: got %+v", c)
	}
	if c.MeanScore != 0.5 {
		t.Errorf("mean score: got %v", c.MeanScore)
	}

	off, err := s.TopOffenders(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(off) != 1 || off[0].Selector != "a.nav" || off[0].Failures != 2 || off[0].Label != "Home" {
		t.Errorf("offenders: got %+v", off)
	}
}

func TestDeleteRunsBefore_Cascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	s.InsertRun(ctx, failingRun("old", "https://a.example/", 1000))
	s.InsertRun(ctx, failingRun("new", "https://a.example/", 5000))

	n, err := s.DeleteRunsBefore(ctx, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted: got %d, want 1", n)
	}
	var rows int
	s.DB.QueryRow(`SELECT COUNT(*) FROM run_rows`).Scan(&rows)
	if rows != 1 {
		t.Errorf("rows after cascade: got %d, want 1", rows)
	}
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seantiz/snakebridge/internal/model"
)

func seedCalls(t *testing.T, srv *Server) []*model.Call {
	t.Helper()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	turn := 4
	calls := []*model.Call{
		{ID: model.NewID(), Kind: model.KindStart, Status: model.CallResolved, GameID: "g", DurationMS: 10, CreatedAt: base},
		{ID: model.NewID(), Kind: model.KindMove, Status: model.CallResolved, GameID: "g", Turn: &turn, DurationMS: 20, CreatedAt: base.Add(time.Second)},
		{ID: model.NewID(), Kind: model.KindMove, Status: model.CallCancelled, GameID: "g", DurationMS: 450, Error: "call cancelled: context deadline exceeded", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, c := range calls {
		if err := srv.store.RecordCall(context.Background(), c); err != nil {
			t.Fatalf("RecordCall: %v", err)
		}
	}
	return calls
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestListCalls(t *testing.T) {
	srv := newTestServer(t)
	calls := seedCalls(t, srv)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var all listCallsResponse
	if status := getJSON(t, ts.URL+"/v1/calls", &all); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if all.Total != 3 || len(all.Calls) != 3 {
		t.Fatalf("total = %d len = %d, want 3", all.Total, len(all.Calls))
	}
	if all.Calls[0].ID != calls[2].ID {
		t.Errorf("first call = %s, want newest %s", all.Calls[0].ID, calls[2].ID)
	}
	if all.Limit != defaultListLimit {
		t.Errorf("limit = %d, want %d", all.Limit, defaultListLimit)
	}

	var moves listCallsResponse
	getJSON(t, ts.URL+"/v1/calls?kind=move&limit=1&offset=1", &moves)
	if moves.Total != 2 {
		t.Errorf("move total = %d, want 2", moves.Total)
	}
	if len(moves.Calls) != 1 || moves.Calls[0].ID != calls[1].ID {
		t.Errorf("paged moves = %+v, want %s", moves.Calls, calls[1].ID)
	}
	if moves.Calls[0].Turn == nil || *moves.Calls[0].Turn != 4 {
		t.Errorf("turn = %v, want 4", moves.Calls[0].Turn)
	}
}

func TestListCallsEmpty(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/calls?limit=1000&offset=-3")
	if err != nil {
		t.Fatalf("GET /v1/calls: %v", err)
	}
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["calls"]) != "[]" {
		t.Errorf("calls = %s, want []", raw["calls"])
	}
	if string(raw["limit"]) != "20" || string(raw["offset"]) != "0" {
		t.Errorf("limit/offset = %s/%s, want 20/0", raw["limit"], raw["offset"])
	}
}

func TestListCallsUnknownKind(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var body map[string]string
	if status := getJSON(t, ts.URL+"/v1/calls?kind=teleport", &body); status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if body["error"] != `unknown kind "teleport"` {
		t.Errorf("error = %q", body["error"])
	}
}

func TestGetCall(t *testing.T) {
	srv := newTestServer(t)
	calls := seedCalls(t, srv)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var got model.Call
	if status := getJSON(t, ts.URL+"/v1/calls/"+calls[2].ID, &got); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if got.Status != model.CallCancelled || got.Error == "" {
		t.Errorf("call = %+v, want cancelled with error", got)
	}

	var body map[string]string
	if status := getJSON(t, ts.URL+"/v1/calls/does-not-exist", &body); status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
	if body["error"] != "call not found" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestGetStats(t *testing.T) {
	srv := newTestServer(t)
	seedCalls(t, srv)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var stats statsResponse
	if status := getJSON(t, ts.URL+"/v1/stats", &stats); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByKind["move"] != 2 || stats.ByKind["start"] != 1 {
		t.Errorf("by_kind = %v", stats.ByKind)
	}
	if stats.ByStatus[model.CallResolved] != 2 || stats.ByStatus[model.CallCancelled] != 1 {
		t.Errorf("by_status = %v", stats.ByStatus)
	}
	if stats.AvgDurationMS != 160 {
		t.Errorf("avg_duration_ms = %v, want 160", stats.AvgDurationMS)
	}
}

func TestBridgeStatus(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var body bridgeStatusResponse
	if status := getJSON(t, ts.URL+"/v1/bridge", &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if len(body.Kinds) != len(model.ReplyKinds) {
		t.Fatalf("kinds = %d, want %d", len(body.Kinds), len(model.ReplyKinds))
	}
	for _, k := range body.Kinds {
		if k.Listeners != 0 || k.Pending != nil {
			t.Errorf("%s: idle bridge reports listeners=%d pending=%v", k.Kind, k.Listeners, k.Pending)
		}
	}
}

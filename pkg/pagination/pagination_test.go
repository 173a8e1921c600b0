package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/docs"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	return FromContext(c)
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Limit: DefaultLimit, Offset: 0}},
		{"?limit=5&offset=10", Params{Limit: 5, Offset: 10}},
		{"?limit=500", Params{Limit: MaxLimit, Offset: 0}},
		{"?limit=-1&offset=-5", Params{Limit: DefaultLimit, Offset: 0}},
		{"?limit=abc", Params{Limit: DefaultLimit, Offset: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := paramsFor(t, tt.query); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParams_Window(t *testing.T) {
	tests := []struct {
		p          Params
		n          int
		start, end int
	}{
		{Params{Limit: 10, Offset: 0}, 25, 0, 10},
		{Params{Limit: 10, Offset: 20}, 25, 20, 25},
		{Params{Limit: 10, Offset: 30}, 25, 25, 25},
		{Params{Limit: 10, Offset: 0}, 0, 0, 0},
	}
	for _, tt := range tests {
		start, end := tt.p.Window(tt.n)
		if start != tt.start || end != tt.end {
			t.Errorf("%+v over %d: got [%d,%d), want [%d,%d)", tt.p, tt.n, start, end, tt.start, tt.end)
		}
	}
}

func TestParams_Navigation(t *testing.T) {
	p := Params{Limit: 10, Offset: 5}
	if !p.HasNext(20) || p.HasNext(15) {
		t.Error("unexpected HasNext")
	}
	if !p.HasPrevious() || (Params{Limit: 10}).HasPrevious() {
		t.Error("unexpected HasPrevious")
	}
	if p.NextOffset() != 15 {
		t.Errorf("expected next offset 15, got %d", p.NextOffset())
	}
	if p.PreviousOffset() != 0 {
		t.Errorf("expected previous offset clamped to 0, got %d", p.PreviousOffset())
	}
}

func TestParams_Links(t *testing.T) {
	first := Params{Limit: 10, Offset: 0}.Links("/api/docs", 25)
	if len(first) != 2 || first[1].Relation != "next" || first[1].URL != "/api/docs?offset=10&limit=10" {
		t.Errorf("unexpected first page links %+v", first)
	}

	middle := Params{Limit: 10, Offset: 10}.Links("/api/docs", 25)
	if len(middle) != 3 || middle[2].Relation != "previous" || middle[2].URL != "/api/docs?offset=0&limit=10" {
		t.Errorf("unexpected middle page links %+v", middle)
	}

	last := Params{Limit: 10, Offset: 20}.Links("/api/docs", 25)
	if len(last) != 2 || last[1].Relation != "previous" {
		t.Errorf("unexpected last page links %+v", last)
	}

	none := Params{Limit: 10}.Links("/api/docs", 0)
	if len(none) != 1 || none[0].Relation != "self" {
		t.Errorf("expected only self link, got %+v", none)
	}
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]string{"a"}, 25, Params{Limit: 10, Offset: 10})
	if r.Total != 25 || r.Limit != 10 || r.Offset != 10 || !r.HasMore {
		t.Errorf("unexpected response %+v", r)
	}
	if NewResponse(nil, 5, Params{Limit: 10}).HasMore {
		t.Error("expected no more results")
	}
}

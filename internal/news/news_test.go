package news

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"AShareSentinel/internal/model"
)

var testNow = time.Date(2026, 2, 27, 10, 30, 0, 0, time.UTC)

func duplicatePayload() *SearchResult {
	return &SearchResult{Organic: []OrganicResult{
		{Title: "沪电股份订单增长", Link: "https://www.eastmoney.com/a/123", Date: "2026-02-27 10:10:00"},
		{Title: "沪电股份订单增长(重复)", Link: "https://www.eastmoney.com/a/123", Date: "2026-02-27 10:50:00"},
	}}
}

func TestBuildNewsItems_SourceAndDedupeKey(t *testing.T) {
	items := BuildNewsItems("002463", duplicatePayload(), testNow, 48*time.Hour)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Source != "eastmoney.com" {
		t.Errorf("expected eastmoney.com, got %s", items[0].Source)
	}
	h1, b1 := DedupeKey(items[0])
	h2, b2 := DedupeKey(items[1])
	if h1 != h2 || b1 != b2 {
		t.Error("expected the same dedupe key within one hour")
	}
	if items[0].ID == items[1].ID {
		t.Error("expected distinct ids for distinct titles")
	}
	if got := Dedupe(items); len(got) != 1 || got[0].Title != "沪电股份订单增长" {
		t.Errorf("expected the first item kept, got %+v", got)
	}
}

func TestBuildNewsItems_Filters(t *testing.T) {
	res := &SearchResult{Organic: []OrganicResult{
		{Title: "", Link: "https://a.example.com/1"},
		{Title: "no link"},
		{Title: "old", Link: "https://a.example.com/old", Date: "2026-02-20"},
		{Title: "relative date", Link: "https://a.example.com/rel", Date: "3 小时前"},
		{Title: "<b>公司</b> 回购 &amp; 增持", Link: "https://a.example.com/html", Date: "2026/02/26"},
	}}
	items := BuildNewsItems("600000", res, testNow, 48*time.Hour)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	if !items[0].Time.Equal(testNow) {
		t.Errorf("expected undated item stamped now, got %v", items[0].Time)
	}
	if items[1].Title != "公司 回购 & 增持" {
		t.Errorf("expected cleaned title, got %q", items[1].Title)
	}
	if BuildNewsItems("600000", nil, testNow, time.Hour) != nil {
		t.Error("expected nil for nil result")
	}
}

func TestBuildAnnouncements(t *testing.T) {
	items := BuildAnnouncements("002463", duplicatePayload(), testNow, 7*24*time.Hour)
	if len(items) != 2 {
		t.Fatalf("expected 2, got %d", len(items))
	}
	if items[0].Source != "cninfo" {
		t.Errorf("expected cninfo source, got %s", items[0].Source)
	}
	want := StableHash("ann|002463|https://www.eastmoney.com/a/123|沪电股份订单增长")
	if items[0].ID != want {
		t.Errorf("unexpected announcement id %s", items[0].ID)
	}
}

func TestParseTime(t *testing.T) {
	def := testNow
	tests := map[string]time.Time{
		"2026-02-27 10:10:00": time.Date(2026, 2, 27, 10, 10, 0, 0, time.UTC),
		"2026-02-27":          time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC),
		"2026/02/26":          time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC),
		"2026/02/26 08:00:01": time.Date(2026, 2, 26, 8, 0, 1, 0, time.UTC),
		"":                    def,
		"yesterday":           def,
	}
	for in, want := range tests {
		if got := ParseTime(in, def); !got.Equal(want) {
			t.Errorf("ParseTime(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestSourceFromURL(t *testing.T) {
	tests := map[string]string{
		"https://www.EastMoney.com/a/1": "eastmoney.com",
		"https://cninfo.com.cn/x":       "cninfo.com.cn",
		"not a url":                     "unknown",
		"://bad":                        "unknown",
	}
	for in, want := range tests {
		if got := SourceFromURL(in); got != want {
			t.Errorf("SourceFromURL(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestSerperClient_SearchNews(t *testing.T) {
	calls := 0
	var gotReq searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("X-API-KEY") != "k" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotReq)
		json.NewEncoder(w).Encode(duplicatePayload())
	}))
	defer srv.Close()

	c := NewSerperClient("k", "", NewMemoryCache(), time.Hour)
	c.BaseURL = srv.URL
	c.Now = func() time.Time { return testNow }

	items, err := c.SearchNews(context.Background(), "002463", 48*time.Hour)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 2 || items[0].Symbol != "002463" {
		t.Fatalf("unexpected items %+v", items)
	}
	if gotReq.Q != "002463 A股 最新 新闻 财经" || gotReq.HL != "zh-cn" || gotReq.GL != "cn" || gotReq.Num != 10 {
		t.Errorf("unexpected request %+v", gotReq)
	}

	if _, err := c.SearchNews(context.Background(), "002463", 48*time.Hour); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("expected the second search served from cache, got %d calls", calls)
	}

	anns, err := NewAnnouncementClient(c).Announcements(context.Background(), "002463", 7*24*time.Hour)
	if err != nil || len(anns) != 2 {
		t.Fatalf("announcements: %v %d", err, len(anns))
	}
	if gotReq.Q != "site:cninfo.com.cn 002463 公告" {
		t.Errorf("unexpected announcement query %q", gotReq.Q)
	}
}

func TestSerperClient_Errors(t *testing.T) {
	c := NewSerperClient("", "", nil, 0)
	if _, err := c.SearchNews(context.Background(), "600000", time.Hour); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	}))
	defer srv.Close()
	c = NewSerperClient("k", "", nil, 0)
	c.BaseURL = srv.URL
	if _, err := c.SearchNews(context.Background(), "600000", time.Hour); err == nil {
		t.Error("expected error on 403")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := testNow
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []model.NewsItem{{ID: "x"}}, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got []model.NewsItem
	if err := c.Get(ctx, "k", &got); err != nil || len(got) != 1 || got[0].ID != "x" {
		t.Fatalf("expected hit, got %v %v", got, err)
	}

	now = now.Add(2 * time.Minute)
	if err := c.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected miss after ttl, got %v", err)
	}
	c.Cleanup()
	if len(c.data) != 0 {
		t.Errorf("expected expired entry removed, %d left", len(c.data))
	}
	if err := c.Get(ctx, "absent", &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected miss, got %v", err)
	}
}

func TestCleanTitle(t *testing.T) {
	tests := map[string]string{
		"  plain   title ":  "plain title",
		"<em>贵州茅台</em>发布公告": "贵州茅台发布公告",
		"A &amp; B":         "A & B",
		"":                  "",
	}
	for in, want := range tests {
		if got := CleanTitle(in); got != want {
			t.Errorf("CleanTitle(%q): expected %q, got %q", in, want, got)
		}
	}
}

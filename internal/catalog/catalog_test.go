package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"coursectl/internal/api"
	"coursectl/internal/shared"
	tu "coursectl/internal/testing"
)

func newTestCatalog(rt http.RoundTripper) *Catalog {
	logger := shared.NewLogger(io.Discard)
	client := api.NewClient(api.ClientOpts{
		BaseURL:    "http://api.test",
		HTTPClient: &http.Client{Transport: rt},
		RateLimit:  1000,
		Logger:     logger,
	})
	return NewCatalog(client, logger)
}

func TestNormalizeSort(t *testing.T) {
	cases := []struct {
		in   string
		want SortKey
	}{
		{"newest", SortNewest},
		{"oldest", SortOldest},
		{"price-low", SortPriceLow},
		{"price-high", SortPriceHigh},
		{"rating", SortRating},
		{"popularity", SortPopularity},
		{"", SortNewest},
		{"bogus", SortNewest},
	}
	for _, tc := range cases {
		if got := NormalizeSort(tc.in); got != tc.want {
			t.Errorf("NormalizeSort(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFiltersParams(t *testing.T) {
	t.Run("sortBy is always present", func(t *testing.T) {
		v := Filters{}.Params()
		if got := v.Get("sortBy"); got != "newest" {
			t.Errorf("sortBy = %q, want newest", got)
		}
	})

	t.Run("unknown sort normalizes instead of passing through", func(t *testing.T) {
		v := Filters{Sort: "trending"}.Params()
		if got := v.Get("sortBy"); got != "newest" {
			t.Errorf("sortBy = %q, want newest", got)
		}
	})

	t.Run("pagination is normalized", func(t *testing.T) {
		v := Filters{Page: 0, Limit: -3}.Params()
		if got := v.Get("page"); got != "1" {
			t.Errorf("page = %q, want 1", got)
		}
		if got := v.Get("limit"); got != "12" {
			t.Errorf("limit = %q, want 12", got)
		}
	})

	t.Run("zero-valued optional filters are omitted", func(t *testing.T) {
		v := Filters{}.Params()
		for _, key := range []string{"search", "category", "level", "minPrice", "maxPrice", "rating"} {
			if v.Has(key) {
				t.Errorf("expected %q omitted, got %q", key, v.Get(key))
			}
		}
	})

	t.Run("set filters are carried", func(t *testing.T) {
		f := Filters{
			Page: 2, Limit: 24, Search: "go", Category: "programming",
			Level: "beginner", MinPrice: 5, MaxPrice: 50, MinRating: 4, Sort: "rating",
		}
		v := f.Params()
		if v.Get("search") != "go" || v.Get("category") != "programming" || v.Get("level") != "beginner" {
			t.Errorf("unexpected params: %v", v)
		}
		if v.Get("minPrice") != "5" || v.Get("maxPrice") != "50" || v.Get("rating") != "4" {
			t.Errorf("unexpected price params: %v", v)
		}
		if v.Get("sortBy") != "rating" {
			t.Errorf("sortBy = %q, want rating", v.Get("sortBy"))
		}
	})
}

const coursePageJSON = `{
	"items": [{"id": "c1", "title": "Intro to Go"}, {"id": "c2", "title": "Advanced Go"}],
	"pagination": {"page": 1, "limit": 12, "total": 2, "totalPages": 1}
}`

func TestCatalogQueries(t *testing.T) {
	t.Run("Courses sends sortBy and decodes the page", func(t *testing.T) {
		var query string
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			query = req.URL.RawQuery
			return tu.JSONResponse(200, tu.Envelope(coursePageJSON)), nil
		})
		catalog := newTestCatalog(rt)

		page, err := catalog.Courses(context.Background(), Filters{Search: "go"})
		if err != nil {
			t.Fatalf("Courses failed: %v", err)
		}
		if len(page.Items) != 2 || page.Items[0].ID != "c1" {
			t.Errorf("unexpected page: %+v", page)
		}
		if page.Pagination.Total != 2 {
			t.Errorf("Pagination.Total = %d, want 2", page.Pagination.Total)
		}

		values, err := url.ParseQuery(query)
		if err != nil {
			t.Fatal(err)
		}
		if values.Get("sortBy") != "newest" {
			t.Errorf("sortBy = %q, want newest", values.Get("sortBy"))
		}
		if values.Get("search") != "go" {
			t.Errorf("search = %q, want go", values.Get("search"))
		}
	})

	t.Run("legacy courses field name is tolerated", func(t *testing.T) {
		body := `{"courses": [{"id": "c1", "title": "Intro"}], "pagination": {"page": 1, "limit": 12, "total": 1}}`
		rt := tu.NewMockRoundTripper(tu.JSONResponse(200, tu.Envelope(body)), nil)
		catalog := newTestCatalog(rt)

		page, err := catalog.Courses(context.Background(), Filters{})
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Items) != 1 || page.Items[0].ID != "c1" {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("empty listing yields an empty non-nil slice", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(tu.JSONResponse(200, tu.Envelope(`{"pagination": {"page": 1}}`)), nil)
		catalog := newTestCatalog(rt)

		page, err := catalog.Courses(context.Background(), Filters{})
		if err != nil {
			t.Fatal(err)
		}
		if page.Items == nil {
			t.Error("expected non-nil Items")
		}
		if len(page.Items) != 0 {
			t.Errorf("expected empty Items, got %d", len(page.Items))
		}
	})

	t.Run("a changed query supersedes the in-flight one", func(t *testing.T) {
		firstStarted := make(chan struct{})
		firstRelease := make(chan struct{})
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			if req.URL.Query().Get("search") == "old" {
				close(firstStarted)
				<-firstRelease
			}
			return tu.JSONResponse(200, tu.Envelope(coursePageJSON)), nil
		})
		catalog := newTestCatalog(rt)

		var wg sync.WaitGroup
		var firstErr error
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, firstErr = catalog.Courses(context.Background(), Filters{Search: "old"})
		}()
		<-firstStarted

		var secondErr error
		var secondLen int
		wg.Add(1)
		go func() {
			defer wg.Done()
			page, err := catalog.Courses(context.Background(), Filters{Search: "new"})
			secondErr = err
			if page != nil {
				secondLen = len(page.Items)
			}
		}()

		time.Sleep(20 * time.Millisecond)
		close(firstRelease)
		wg.Wait()

		if !Superseded(firstErr) {
			t.Errorf("first query: expected superseded, got %v", firstErr)
		}
		if secondErr != nil {
			t.Fatalf("second query failed: %v", secondErr)
		}
		if secondLen != 2 {
			t.Errorf("second query: got %d items, want 2", secondLen)
		}
	})

	t.Run("Course fetches detail by id", func(t *testing.T) {
		body := `{"id": "c1", "title": "Intro", "sections": [{"id": "s1", "lessons": [{"id": "l1"}]}]}`
		var path string
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			path = req.URL.Path
			return tu.JSONResponse(200, tu.Envelope(body)), nil
		})
		catalog := newTestCatalog(rt)

		course, err := catalog.Course(context.Background(), "c1")
		if err != nil {
			t.Fatalf("Course failed: %v", err)
		}
		if path != "/courses/c1" {
			t.Errorf("path = %q", path)
		}
		if course.ID != "c1" || course.TotalLessons() != 1 {
			t.Errorf("unexpected course: %+v", course)
		}
	})

	t.Run("Categories decodes the list", func(t *testing.T) {
		body := `[{"name": "programming", "courseCount": 12}, {"name": "design", "courseCount": 4}]`
		rt := tu.NewMockRoundTripper(tu.JSONResponse(200, tu.Envelope(body)), nil)
		catalog := newTestCatalog(rt)

		categories, err := catalog.Categories(context.Background())
		if err != nil {
			t.Fatalf("Categories failed: %v", err)
		}
		if len(categories) != 2 || categories[0].Name != "programming" || categories[0].CourseCount != 12 {
			t.Errorf("unexpected categories: %+v", categories)
		}
	})

	t.Run("Enroll posts the payment method", func(t *testing.T) {
		var path string
		var body []byte
		rt := tu.FuncRoundTripper(func(req *http.Request) (*http.Response, error) {
			path = req.URL.Path
			body, _ = io.ReadAll(req.Body)
			return tu.JSONResponse(200, tu.Envelope(`{}`)), nil
		})
		catalog := newTestCatalog(rt)

		if err := catalog.Enroll(context.Background(), "c1", "card"); err != nil {
			t.Fatalf("Enroll failed: %v", err)
		}
		if path != "/courses/c1/enroll" {
			t.Errorf("path = %q", path)
		}
		if !strings.Contains(string(body), `"paymentMethod":"card"`) {
			t.Errorf("body = %s", body)
		}
	})

	t.Run("backend failures surface typed errors", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(nil, errors.New("connection refused"))
		catalog := newTestCatalog(rt)

		_, err := catalog.Courses(context.Background(), Filters{})
		if !api.IsNetwork(err) {
			t.Errorf("expected network error, got %v", err)
		}
		if Superseded(err) {
			t.Error("a network failure is not a supersession")
		}
	})
}

// Package catalog builds collection queries against the course catalog and
// normalizes their paginated responses.
//
// Every listing request carries an explicit sortBy parameter. Omitting it
// has repeatedly produced wrong orderings against this backend, so the sort
// key is treated as a hard invariant: unknown or empty sort keys normalize
// to "newest" and the parameter is always sent.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"

	"coursectl/internal/api"
	"coursectl/internal/models"
)

// SortKey enumerates the sort orders the backend accepts.
type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortPriceLow   SortKey = "price-low"
	SortPriceHigh  SortKey = "price-high"
	SortRating     SortKey = "rating"
	SortPopularity SortKey = "popularity"
)

// NormalizeSort maps unknown or empty sort keys to [SortNewest].
func NormalizeSort(s string) SortKey {
	switch SortKey(s) {
	case SortNewest, SortOldest, SortPriceLow, SortPriceHigh, SortRating, SortPopularity:
		return SortKey(s)
	default:
		return SortNewest
	}
}

// Filters describes a course listing query. Zero-valued optional fields are
// omitted from the request; page, limit, and sortBy are always sent.
type Filters struct {
	Page      int
	Limit     int
	Search    string
	Category  string
	Level     string
	MinPrice  float64
	MaxPrice  float64
	MinRating float64
	Sort      string
}

// Params builds the request query parameters. sortBy is always present.
func (f Filters) Params() url.Values {
	v := url.Values{}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 12
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	v.Set("sortBy", string(NormalizeSort(f.Sort)))

	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.Level != "" {
		v.Set("level", f.Level)
	}
	if f.MinPrice > 0 {
		v.Set("minPrice", strconv.FormatFloat(f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice > 0 {
		v.Set("maxPrice", strconv.FormatFloat(f.MaxPrice, 'f', -1, 64))
	}
	if f.MinRating > 0 {
		v.Set("rating", strconv.FormatFloat(f.MinRating, 'f', -1, 64))
	}
	return v
}

// Logical query names for the in-flight registry.
const (
	queryCourses    = "courses"
	queryCourse     = "course-detail"
	queryCategories = "categories"
	queryInstructor = "instructor-courses"
	queryEnrolled   = "enrolled-courses"
)

// listEnvelope tolerates the field-name drift between listing endpoints:
// some return "items", older ones "courses".
type listEnvelope struct {
	Items      []models.Course   `json:"items"`
	Courses    []models.Course   `json:"courses"`
	Pagination models.Pagination `json:"pagination"`
}

func (e listEnvelope) normalize() *models.CoursePage {
	items := e.Items
	if items == nil {
		items = e.Courses
	}
	if items == nil {
		items = []models.Course{}
	}
	return &models.CoursePage{Items: items, Pagination: e.Pagination}
}

// Catalog issues collection queries through the in-flight registry.
type Catalog struct {
	client   *api.Client
	registry *api.Registry
	logger   *log.Logger
}

// NewCatalog creates a Catalog over the given API client.
func NewCatalog(client *api.Client, logger *log.Logger) *Catalog {
	return &Catalog{client: client, registry: api.NewRegistry(), logger: logger}
}

// Superseded reports whether err means the query was replaced by a newer
// one and its result intentionally discarded.
func Superseded(err error) bool {
	return errors.Is(err, api.ErrSuperseded)
}

// list fetches a listing endpoint through the registry slot named by query.
func (c *Catalog) list(query, path string, params url.Values) (*models.CoursePage, error) {
	v, err := c.registry.Do(query, api.ParamsKey(params), func(ctx context.Context) (any, error) {
		var env listEnvelope
		if err := c.client.Get(ctx, path, params, &env); err != nil {
			return nil, err
		}
		return env.normalize(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.CoursePage), nil
}

// Courses returns a page of the public catalog matching the filters.
func (c *Catalog) Courses(ctx context.Context, f Filters) (*models.CoursePage, error) {
	return c.list(queryCourses, "/courses", f.Params())
}

// InstructorCourses returns the authenticated instructor's own courses.
func (c *Catalog) InstructorCourses(ctx context.Context, f Filters) (*models.CoursePage, error) {
	return c.list(queryInstructor, "/courses/instructor/my-courses", f.Params())
}

// EnrolledCourses returns the authenticated student's enrollments.
func (c *Catalog) EnrolledCourses(ctx context.Context, f Filters) (*models.CoursePage, error) {
	return c.list(queryEnrolled, "/student/enrolled-courses", f.Params())
}

// Course returns one course with its full section and lesson structure.
func (c *Catalog) Course(ctx context.Context, id string) (*models.Course, error) {
	params := url.Values{"id": {id}}
	v, err := c.registry.Do(queryCourse, api.ParamsKey(params), func(fctx context.Context) (any, error) {
		var course models.Course
		if err := c.client.Get(fctx, "/courses/"+id, nil, &course); err != nil {
			return nil, err
		}
		return &course, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Course), nil
}

// Categories returns the catalog's category list.
func (c *Catalog) Categories(ctx context.Context) ([]models.Category, error) {
	v, err := c.registry.Do(queryCategories, "", func(fctx context.Context) (any, error) {
		var categories []models.Category
		if err := c.client.Get(fctx, "/courses/categories", nil, &categories); err != nil {
			return nil, err
		}
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Category), nil
}

// Enroll enrolls the current user in a course. Mutations bypass the
// registry: they are never deduplicated or superseded.
func (c *Catalog) Enroll(ctx context.Context, courseID, paymentMethod string) error {
	body := map[string]string{"paymentMethod": paymentMethod}
	if err := c.client.Post(ctx, fmt.Sprintf("/courses/%s/enroll", courseID), body, nil); err != nil {
		return err
	}
	c.logger.Info("enrolled", "course", courseID)
	return nil
}

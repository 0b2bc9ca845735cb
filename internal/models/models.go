package models

import (
	"sort"
	"time"
)

// User represents the authenticated account as returned by the login and
// token verification endpoints.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"` // student, instructor, admin
}

// Video is the playable asset optionally attached to a lesson.
type Video struct {
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Lesson is a single unit of course content.
type Lesson struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Video *Video `json:"video,omitempty"`
}

// Section groups lessons within a course.
type Section struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

// Course is the catalog projection used by this client.
type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Level        string    `json:"level"`
	Price        float64   `json:"price"`
	Rating       float64   `json:"rating"`
	Enrolled     int       `json:"enrolledCount"`
	InstructorID string    `json:"instructorId"`
	Sections     []Section `json:"sections,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LessonIDs returns the ids of every lesson across all sections.
func (c Course) LessonIDs() []string {
	var ids []string
	for _, s := range c.Sections {
		for _, l := range s.Lessons {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// TotalLessons counts lessons across all sections.
func (c Course) TotalLessons() int {
	n := 0
	for _, s := range c.Sections {
		n += len(s.Lessons)
	}
	return n
}

// Category is a catalog category with its course count.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CourseCount int    `json:"courseCount"`
}

// Pagination describes the position of a page within a collection.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// CoursePage is the normalized shape every paginated course listing is
// reduced to, regardless of which endpoint produced it.
type CoursePage struct {
	Items      []Course   `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// ProgressState is the derived lifecycle state of a course's progress.
type ProgressState int

const (
	NotStarted ProgressState = iota
	InProgress
	Completed
)

func (s ProgressState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return ""
	}
}

// CourseProgress tracks lesson completion for one (user, course) pair.
//
// CompletedLessons is kept sorted and duplicate-free; use [CourseProgress.WithCompleted]
// rather than appending directly. Values are replaced, never mutated in place.
type CourseProgress struct {
	CourseID         string    `json:"courseId"`
	CompletedLessons []string  `json:"completedLessons"`
	TotalLessons     int       `json:"totalLessons"`
	TimeSpentSeconds float64   `json:"timeSpentSeconds"`
	LastAccessed     time.Time `json:"lastAccessed"`
}

// NewCourseProgress returns the zeroed (NotStarted) progress for a course.
func NewCourseProgress(courseID string, totalLessons int) CourseProgress {
	return CourseProgress{CourseID: courseID, TotalLessons: totalLessons}
}

// LessonCompleted reports whether the lesson is in the completed set.
func (p CourseProgress) LessonCompleted(lessonID string) bool {
	i := sort.SearchStrings(p.CompletedLessons, lessonID)
	return i < len(p.CompletedLessons) && p.CompletedLessons[i] == lessonID
}

// WithCompleted returns a copy with the lesson added to the completed set.
// Adding an already-completed lesson returns an equal copy (set semantics).
func (p CourseProgress) WithCompleted(lessonID string) CourseProgress {
	out := p
	out.CompletedLessons = append([]string(nil), p.CompletedLessons...)
	if !p.LessonCompleted(lessonID) {
		out.CompletedLessons = append(out.CompletedLessons, lessonID)
		sort.Strings(out.CompletedLessons)
	}
	return out
}

// WithTimeSpent returns a copy with additional watch time accumulated and
// the access timestamp advanced.
func (p CourseProgress) WithTimeSpent(seconds float64, at time.Time) CourseProgress {
	out := p
	out.CompletedLessons = append([]string(nil), p.CompletedLessons...)
	out.TimeSpentSeconds += seconds
	out.LastAccessed = at
	return out
}

// CompletedCount returns the size of the completed set.
func (p CourseProgress) CompletedCount() int { return len(p.CompletedLessons) }

// State derives the lifecycle state from the completed set.
func (p CourseProgress) State() ProgressState {
	switch {
	case len(p.CompletedLessons) == 0:
		return NotStarted
	case p.TotalLessons > 0 && len(p.CompletedLessons) >= p.TotalLessons:
		return Completed
	default:
		return InProgress
	}
}

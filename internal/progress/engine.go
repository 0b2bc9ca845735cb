// Package progress tracks per-course lesson completion and watch time.
//
// The engine reconciles optimistic local state against an authoritative
// backend that may be unreachable. Fetch failures fall back to the last
// local snapshot (or a zeroed default) because progress is display data,
// never a gate; mutation failures propagate so the caller can retry.
// Completion is optimistic and deliberately not rolled back on a failed
// persist: eventual consistency beats visible flicker.
package progress

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"coursectl/internal/api"
	"coursectl/internal/models"
	"coursectl/internal/repositories"
	"coursectl/internal/shared"
)

// CompletionThreshold is the watched percentage at which a lesson counts as
// finished. This is a domain rule, not a configuration knob.
const CompletionThreshold = 90

// Stats is the derived per-course summary. Computed purely from local
// state, no I/O.
type Stats struct {
	CompletedCount int
	TotalLessons   int
	Percentage     int
	Remaining      int
}

// LessonProgress is the derived view of a single lesson.
type LessonProgress struct {
	LessonID          string
	Completed         bool
	WatchedPercentage int
}

// watchState is the ephemeral playhead for the one currently playing lesson.
type watchState struct {
	courseID   string
	lessonID   string
	position   float64
	percentage int
}

// updatePayload is the canonical persistence body for lesson progress.
type updatePayload struct {
	LessonID          string  `json:"lessonId"`
	Completed         bool    `json:"completed"`
	WatchedPercentage int     `json:"watchedPercentage"`
	TimeSpentSeconds  float64 `json:"timeSpentSeconds"`
}

// Engine is the per-course progress state machine.
//
// All shared state is replaced wholesale on mutation; a [models.CourseProgress]
// snapshot handed out earlier never changes underneath its holder.
type Engine struct {
	mu       sync.Mutex
	byCourse map[string]models.CourseProgress
	lessons  map[string]map[string]struct{} // known lesson ids per course
	watching *watchState

	client    *api.Client
	snapshots *repositories.ProgressSnapshotRepository
	logger    *log.Logger
	now       func() time.Time
}

// EngineOpts contains configuration options for creating an Engine.
type EngineOpts struct {
	Client *api.Client
	// Snapshots is optional; without it the offline fallback is a zeroed
	// default instead of the last known state.
	Snapshots *repositories.ProgressSnapshotRepository
	Logger    *log.Logger
}

// NewEngine creates an Engine with no local state.
func NewEngine(opts EngineOpts) *Engine {
	return &Engine{
		byCourse:  make(map[string]models.CourseProgress),
		lessons:   make(map[string]map[string]struct{}),
		client:    opts.Client,
		snapshots: opts.Snapshots,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// SetCourse records a course's lesson structure so the completed set can be
// validated against it and totals stay accurate.
func (e *Engine) SetCourse(course models.Course) {
	ids := make(map[string]struct{})
	for _, id := range course.LessonIDs() {
		ids[id] = struct{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lessons[course.ID] = ids

	p, ok := e.byCourse[course.ID]
	if !ok {
		p = models.NewCourseProgress(course.ID, len(ids))
	}
	p.TotalLessons = len(ids)
	e.byCourse[course.ID] = p
}

// FetchProgress retrieves authoritative progress from the backend. On any
// failure it falls back to the local snapshot, then to a zeroed default; it
// never blocks the caller with an error.
func (e *Engine) FetchProgress(ctx context.Context, courseID string) models.CourseProgress {
	var fetched models.CourseProgress
	err := e.client.Get(ctx, "/progress/course/"+courseID, nil, &fetched)
	if err == nil {
		fetched.CourseID = courseID
		e.replace(courseID, fetched)
		return fetched
	}
	e.logger.Debug("progress fetch failed, using local fallback", "course", courseID, "err", err)

	if e.snapshots != nil {
		if snap, snapErr := e.snapshots.Get(courseID); snapErr == nil && snap != nil {
			e.mu.Lock()
			e.byCourse[courseID] = *snap
			e.mu.Unlock()
			return *snap
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.byCourse[courseID]; ok {
		return p
	}
	p := models.NewCourseProgress(courseID, e.totalLessonsLocked(courseID))
	e.byCourse[courseID] = p
	return p
}

// MarkLessonComplete optimistically adds the lesson to the completed set and
// persists it. The optimistic flag is kept even when the persist fails; the
// returned error exists so the caller can offer a retry. Marking an already
// completed lesson is a no-op.
func (e *Engine) MarkLessonComplete(ctx context.Context, courseID, lessonID string) error {
	e.mu.Lock()
	if known, ok := e.lessons[courseID]; ok {
		if _, exists := known[lessonID]; !exists {
			e.mu.Unlock()
			return fmt.Errorf("%w: %s in course %s", shared.ErrLessonNotFound, lessonID, courseID)
		}
	}

	p, ok := e.byCourse[courseID]
	if !ok {
		p = models.NewCourseProgress(courseID, e.totalLessonsLocked(courseID))
	}
	if p.LessonCompleted(lessonID) {
		e.mu.Unlock()
		return nil
	}
	updated := p.WithCompleted(lessonID)
	updated.LastAccessed = e.now()
	e.mu.Unlock()

	e.replace(courseID, updated)

	payload := updatePayload{LessonID: lessonID, Completed: true, WatchedPercentage: 100}
	if err := e.client.Put(ctx, "/progress/course/"+courseID, payload, nil); err != nil {
		e.logger.Warn("completion persist failed, keeping optimistic state", "course", courseID, "lesson", lessonID, "err", err)
		return err
	}
	return nil
}

// UpdateWatchTime records the playhead for the currently playing lesson and
// persists the partial percentage. At or beyond [CompletionThreshold]
// percent the lesson is marked complete instead.
func (e *Engine) UpdateWatchTime(ctx context.Context, courseID, lessonID string, watchedSeconds, totalSeconds float64) error {
	if totalSeconds <= 0 || math.IsNaN(totalSeconds) || math.IsNaN(watchedSeconds) {
		return fmt.Errorf("%w: unusable media duration", shared.ErrInvalidInput)
	}

	percentage := int(math.Round(100 * watchedSeconds / totalSeconds))
	if percentage > 100 {
		percentage = 100
	}

	e.mu.Lock()
	delta := watchedSeconds
	if w := e.watching; w != nil && w.courseID == courseID && w.lessonID == lessonID && watchedSeconds > w.position {
		delta = watchedSeconds - w.position
	}
	e.watching = &watchState{courseID: courseID, lessonID: lessonID, position: watchedSeconds, percentage: percentage}

	p, ok := e.byCourse[courseID]
	if !ok {
		p = models.NewCourseProgress(courseID, e.totalLessonsLocked(courseID))
	}
	updated := p.WithTimeSpent(delta, e.now())
	e.mu.Unlock()

	e.replace(courseID, updated)

	if percentage >= CompletionThreshold {
		return e.MarkLessonComplete(ctx, courseID, lessonID)
	}

	payload := updatePayload{LessonID: lessonID, WatchedPercentage: percentage, TimeSpentSeconds: delta}
	if err := e.client.Put(ctx, "/progress/course/"+courseID, payload, nil); err != nil {
		return err
	}
	return nil
}

// ResetCourse zeroes progress for the course remotely and locally.
func (e *Engine) ResetCourse(ctx context.Context, courseID string) error {
	if err := e.client.Post(ctx, fmt.Sprintf("/progress/course/%s/reset", courseID), nil, nil); err != nil {
		return err
	}

	e.mu.Lock()
	total := e.totalLessonsLocked(courseID)
	if p, ok := e.byCourse[courseID]; ok && p.TotalLessons > 0 {
		total = p.TotalLessons
	}
	e.byCourse[courseID] = models.NewCourseProgress(courseID, total)
	if e.watching != nil && e.watching.courseID == courseID {
		e.watching = nil
	}
	e.mu.Unlock()

	if e.snapshots != nil {
		if err := e.snapshots.Delete(courseID); err != nil {
			e.logger.Warn("snapshot delete failed", "course", courseID, "err", err)
		}
	}
	return nil
}

// Progress returns a snapshot of the local progress for the course.
func (e *Engine) Progress(courseID string) models.CourseProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.byCourse[courseID]; ok {
		return p
	}
	return models.NewCourseProgress(courseID, e.totalLessonsLocked(courseID))
}

// GetProgressStats derives the course summary from current state. No I/O.
func (e *Engine) GetProgressStats(courseID string) Stats {
	p := e.Progress(courseID)
	s := Stats{
		CompletedCount: p.CompletedCount(),
		TotalLessons:   p.TotalLessons,
		Remaining:      p.TotalLessons - p.CompletedCount(),
	}
	if s.Remaining < 0 {
		s.Remaining = 0
	}
	if p.TotalLessons > 0 {
		s.Percentage = int(math.Round(100 * float64(s.CompletedCount) / float64(p.TotalLessons)))
	}
	return s
}

// LessonProgress derives one lesson's view. The watched percentage is only
// known for the currently playing lesson; completed lessons report 100.
func (e *Engine) LessonProgress(courseID, lessonID string) LessonProgress {
	e.mu.Lock()
	defer e.mu.Unlock()

	lp := LessonProgress{LessonID: lessonID}
	if p, ok := e.byCourse[courseID]; ok && p.LessonCompleted(lessonID) {
		lp.Completed = true
		lp.WatchedPercentage = 100
		return lp
	}
	if w := e.watching; w != nil && w.courseID == courseID && w.lessonID == lessonID {
		lp.WatchedPercentage = w.percentage
	}
	return lp
}

// State derives the course lifecycle state from local progress.
func (e *Engine) State(courseID string) models.ProgressState {
	return e.Progress(courseID).State()
}

// replace swaps in the new progress value and writes through to the
// snapshot cache best-effort.
func (e *Engine) replace(courseID string, p models.CourseProgress) {
	e.mu.Lock()
	e.byCourse[courseID] = p
	e.mu.Unlock()

	if e.snapshots != nil {
		if err := e.snapshots.Upsert(p); err != nil {
			e.logger.Warn("snapshot write failed", "course", courseID, "err", err)
		}
	}
}

// totalLessonsLocked returns the known lesson count for the course, or zero.
// Callers must hold e.mu.
func (e *Engine) totalLessonsLocked(courseID string) int {
	return len(e.lessons[courseID])
}

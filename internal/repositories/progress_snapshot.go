package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"coursectl/internal/models"
)

// ProgressSnapshotRepository caches the last known progress per course.
//
// The progress engine writes through after every successful fetch or
// mutation and reads the snapshot back when the progress endpoint is
// unreachable. Snapshots are display data, never a gate.
type ProgressSnapshotRepository struct {
	db *sql.DB
}

// NewProgressSnapshotRepository creates a new [ProgressSnapshotRepository] with the given database connection
func NewProgressSnapshotRepository(db *sql.DB) *ProgressSnapshotRepository {
	return &ProgressSnapshotRepository{db: db}
}

// Upsert inserts or replaces the snapshot for progress.CourseID.
func (r *ProgressSnapshotRepository) Upsert(progress models.CourseProgress) error {
	completed, err := json.Marshal(progress.CompletedLessons)
	if err != nil {
		return fmt.Errorf("failed to encode completed lessons: %w", err)
	}

	query := `
		INSERT INTO progress_snapshots (course_id, completed_lessons, total_lessons, time_spent_seconds, last_accessed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(course_id) DO UPDATE SET
			completed_lessons = excluded.completed_lessons,
			total_lessons = excluded.total_lessons,
			time_spent_seconds = excluded.time_spent_seconds,
			last_accessed = excluded.last_accessed
	`
	_, err = r.db.Exec(query,
		progress.CourseID,
		string(completed),
		progress.TotalLessons,
		progress.TimeSpentSeconds,
		progress.LastAccessed,
	)
	if err != nil {
		return fmt.Errorf("failed to store progress snapshot: %w", err)
	}
	return nil
}

// Get returns the snapshot for courseID, or (nil, nil) when none exists.
func (r *ProgressSnapshotRepository) Get(courseID string) (*models.CourseProgress, error) {
	query := `
		SELECT completed_lessons, total_lessons, time_spent_seconds, last_accessed
		FROM progress_snapshots
		WHERE course_id = ?
	`

	var (
		completedJSON string
		totalLessons  int
		timeSpent     float64
		lastAccessed  sql.NullTime
	)

	err := r.db.QueryRow(query, courseID).Scan(&completedJSON, &totalLessons, &timeSpent, &lastAccessed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query progress snapshot: %w", err)
	}

	var completed []string
	if err := json.Unmarshal([]byte(completedJSON), &completed); err != nil {
		return nil, fmt.Errorf("failed to decode completed lessons: %w", err)
	}

	progress := models.CourseProgress{
		CourseID:         courseID,
		CompletedLessons: completed,
		TotalLessons:     totalLessons,
		TimeSpentSeconds: timeSpent,
	}
	if lastAccessed.Valid {
		progress.LastAccessed = lastAccessed.Time
	}
	return &progress, nil
}

// Delete removes the snapshot for courseID. Missing rows are not an error.
func (r *ProgressSnapshotRepository) Delete(courseID string) error {
	if _, err := r.db.Exec("DELETE FROM progress_snapshots WHERE course_id = ?", courseID); err != nil {
		return fmt.Errorf("failed to delete progress snapshot: %w", err)
	}
	return nil
}

// Touch updates only the last_accessed timestamp for courseID.
func (r *ProgressSnapshotRepository) Touch(courseID string, at time.Time) error {
	if _, err := r.db.Exec("UPDATE progress_snapshots SET last_accessed = ? WHERE course_id = ?", at, courseID); err != nil {
		return fmt.Errorf("failed to touch progress snapshot: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"coursectl/internal/formatter"
	"coursectl/internal/shared"
)

// loadCourse fetches a course and primes the engine with its lesson
// structure so completion and totals validate against it.
func (r *Runner) loadCourse(ctx context.Context, courseID string) error {
	course, err := r.catalog.Course(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to fetch course: %w", err)
	}
	r.engine.SetCourse(*course)
	return nil
}

// ProgressShow prints the progress summary for a course.
func (r *Runner) ProgressShow(ctx context.Context, cmd *cli.Command) error {
	courseID := cmd.StringArg("course-id")
	if courseID == "" {
		return fmt.Errorf("%w: course id", shared.ErrMissingArgument)
	}

	if err := r.requireAuth(ctx); err != nil {
		return err
	}
	if err := r.loadCourse(ctx, courseID); err != nil {
		return err
	}

	prog := r.engine.FetchProgress(ctx, courseID)
	stats := r.engine.GetProgressStats(courseID)

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"progress": prog, "stats": stats}, true)
	}
	return r.writeBytes(formatter.ProgressSummary(courseID, prog.State(), stats, prog.TimeSpentSeconds))
}

// ProgressComplete marks a lesson as completed. The local flag is kept even
// when the persist fails, so a retry is cheap.
func (r *Runner) ProgressComplete(ctx context.Context, cmd *cli.Command) error {
	courseID := cmd.StringArg("course-id")
	lessonID := cmd.StringArg("lesson-id")
	if courseID == "" || lessonID == "" {
		return fmt.Errorf("%w: course id and lesson id", shared.ErrMissingArgument)
	}

	if err := r.requireAuth(ctx); err != nil {
		return err
	}
	if err := r.loadCourse(ctx, courseID); err != nil {
		return err
	}
	r.engine.FetchProgress(ctx, courseID)

	if err := r.engine.MarkLessonComplete(ctx, courseID, lessonID); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}

	stats := r.engine.GetProgressStats(courseID)
	return r.writePlain("✓ Lesson %s completed (%d/%d, %d%%)\n",
		lessonID, stats.CompletedCount, stats.TotalLessons, stats.Percentage)
}

// ProgressReset clears all progress for a course, locally and remotely.
func (r *Runner) ProgressReset(ctx context.Context, cmd *cli.Command) error {
	courseID := cmd.StringArg("course-id")
	if courseID == "" {
		return fmt.Errorf("%w: course id", shared.ErrMissingArgument)
	}

	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	if err := r.engine.ResetCourse(ctx, courseID); err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}

	return r.writePlain("✓ Progress reset for course %s\n", courseID)
}

// Watch records the playhead position for a lesson. Reaching the completion
// threshold marks the lesson completed automatically.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	courseID := cmd.StringArg("course-id")
	lessonID := cmd.StringArg("lesson-id")
	if courseID == "" || lessonID == "" {
		return fmt.Errorf("%w: course id and lesson id", shared.ErrMissingArgument)
	}

	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	course, err := r.catalog.Course(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to fetch course: %w", err)
	}
	r.engine.SetCourse(*course)
	r.engine.FetchProgress(ctx, courseID)

	var total float64
	for _, section := range course.Sections {
		for _, lesson := range section.Lessons {
			if lesson.ID == lessonID && lesson.Video != nil {
				total = lesson.Video.DurationSeconds
			}
		}
	}
	if total <= 0 {
		return fmt.Errorf("%w: lesson %s has no playable video", shared.ErrLessonNotFound, lessonID)
	}

	watched := cmd.Float("seconds")
	if err := r.engine.UpdateWatchTime(ctx, courseID, lessonID, watched, total); err != nil {
		return fmt.Errorf("failed to record watch time: %w", err)
	}

	lp := r.engine.LessonProgress(courseID, lessonID)
	if lp.Completed {
		return r.writePlain("✓ Lesson %s completed\n", lessonID)
	}
	return r.writePlain("Recorded %d%% of lesson %s\n", lp.WatchedPercentage, lessonID)
}

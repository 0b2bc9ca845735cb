package ui

import (
	"time"

	"coursectl/internal/models"
)

// coursesFetchedMsg delivers a catalog page, or the error that replaced it.
type coursesFetchedMsg struct {
	page *models.CoursePage
	err  error
}

// courseLoadedMsg delivers a course detail plus its progress.
type courseLoadedMsg struct {
	course   *models.Course
	progress models.CourseProgress
	err      error
}

// lessonMarkedMsg reports a completion persist outcome.
type lessonMarkedMsg struct {
	lessonID string
	err      error
}

// resetDoneMsg reports a course progress reset outcome.
type resetDoneMsg struct {
	err error
}

// watchTickMsg advances the simulated playback clock.
type watchTickMsg time.Time

package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"coursectl/internal/models"
)

var (
	_ list.Item = courseItem{}
	_ list.Item = lessonItem{}
)

// courseItem wraps [models.Course] to implement [list.Item].
type courseItem struct {
	course models.Course
}

func (i courseItem) FilterValue() string { return i.course.Title }
func (i courseItem) Title() string       { return i.course.Title }
func (i courseItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.course.Category, i.course.Level)
	if i.course.Rating > 0 {
		desc = fmt.Sprintf("%s • %.1f★", desc, i.course.Rating)
	}
	return desc
}

// lessonItem wraps [models.Lesson] with its section and completion state to
// implement [list.Item].
type lessonItem struct {
	lesson    models.Lesson
	section   string
	completed bool
}

func (i lessonItem) FilterValue() string { return i.lesson.Title }
func (i lessonItem) Title() string {
	mark := "[ ]"
	if i.completed {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s", mark, i.lesson.Title)
}
func (i lessonItem) Description() string {
	desc := i.section
	if i.lesson.Video != nil {
		desc = fmt.Sprintf("%s • %.0fs video", desc, i.lesson.Video.DurationSeconds)
	}
	return desc
}

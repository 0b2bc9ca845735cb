// package formatter renders catalog and progress data for CLI output
package formatter

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"coursectl/internal/models"
	"coursectl/internal/progress"
	"coursectl/internal/shared"
)

// CourseTable renders a course page as an aligned text table.
func CourseTable(page *models.CoursePage) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tLEVEL\tPRICE\tRATING")
	for _, c := range page.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.1f\n",
			c.ID, c.Title, c.Category, c.Level, c.Price, c.Rating)
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to render course table: %w", err)
	}

	p := page.Pagination
	if p.TotalPages > 0 {
		buf.WriteString(fmt.Sprintf("\npage %d of %d (%d courses)\n", p.Page, p.TotalPages, p.Total))
	}
	return buf.Bytes(), nil
}

// CategoryList renders the catalog categories as plain text.
func CategoryList(categories []models.Category) []byte {
	var buf bytes.Buffer
	for _, c := range categories {
		buf.WriteString(fmt.Sprintf("%s (%d courses)\n", c.Name, c.CourseCount))
	}
	return buf.Bytes()
}

// CourseDetail renders a course's sections and lessons, marking completed
// lessons from the given progress snapshot.
func CourseDetail(course *models.Course, p models.CourseProgress) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s [%s]\n", course.Title, course.ID))
	if course.Description != "" {
		buf.WriteString(course.Description + "\n")
	}
	buf.WriteString(fmt.Sprintf("Category: %s  Level: %s  Price: %.2f  Rating: %.1f\n\n",
		course.Category, course.Level, course.Price, course.Rating))

	for _, section := range course.Sections {
		buf.WriteString(fmt.Sprintf("## %s\n", section.Title))
		for _, lesson := range section.Lessons {
			mark := "[ ]"
			if p.LessonCompleted(lesson.ID) {
				mark = "[x]"
			}
			line := fmt.Sprintf("  %s %s (%s)", mark, lesson.Title, lesson.ID)
			if lesson.Video != nil {
				line += " " + shared.FormatDuration(int(lesson.Video.DurationSeconds))
			}
			buf.WriteString(line + "\n")
		}
	}
	return buf.Bytes()
}

// ProgressSummary renders the derived per-course stats block.
func ProgressSummary(courseID string, state models.ProgressState, stats progress.Stats, timeSpentSeconds float64) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Course %s: %s\n", courseID, state))
	buf.WriteString(fmt.Sprintf("  completed: %d/%d (%d%%)\n", stats.CompletedCount, stats.TotalLessons, stats.Percentage))
	buf.WriteString(fmt.Sprintf("  remaining: %d\n", stats.Remaining))
	buf.WriteString(fmt.Sprintf("  time spent: %s\n", shared.FormatDuration(int(timeSpentSeconds))))
	return buf.Bytes()
}

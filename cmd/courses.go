package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"coursectl/internal/catalog"
	"coursectl/internal/formatter"
	"coursectl/internal/shared"
)

// filtersFrom collects catalog filters from the shared listing flags.
func filtersFrom(cmd *cli.Command) catalog.Filters {
	return catalog.Filters{
		Page:      int(cmd.Int("page")),
		Limit:     int(cmd.Int("limit")),
		Search:    cmd.String("search"),
		Category:  cmd.String("category"),
		Level:     cmd.String("level"),
		MinPrice:  cmd.Float("min-price"),
		MaxPrice:  cmd.Float("max-price"),
		MinRating: cmd.Float("min-rating"),
		Sort:      cmd.String("sort"),
	}
}

// CoursesList prints a page of the public catalog.
func (r *Runner) CoursesList(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	page, err := r.catalog.Courses(ctx, filtersFrom(cmd))
	if err != nil {
		return fmt.Errorf("failed to fetch courses: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	table, err := formatter.CourseTable(page)
	if err != nil {
		return err
	}
	return r.writeBytes(table)
}

// CoursesShow prints a course's sections, lessons, and progress marks.
func (r *Runner) CoursesShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: course id", shared.ErrMissingArgument)
	}

	// Progress is personal; verify quietly so anonymous browsing still works.
	if _, err := r.restore(ctx); err != nil {
		return err
	}

	course, err := r.catalog.Course(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch course: %w", err)
	}

	r.engine.SetCourse(*course)
	prog := r.engine.FetchProgress(ctx, course.ID)

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"course": course, "progress": prog}, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.CourseDetail(course, prog))
}

// CoursesCategories prints catalog categories with course counts.
func (r *Runner) CoursesCategories(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	categories, err := r.catalog.Categories(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch categories: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(categories, true)
	}
	return r.writeBytes(formatter.CategoryList(categories))
}

// CoursesMine prints courses the current user teaches.
func (r *Runner) CoursesMine(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	page, err := r.catalog.InstructorCourses(ctx, filtersFrom(cmd))
	if err != nil {
		return fmt.Errorf("failed to fetch instructor courses: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	table, err := formatter.CourseTable(page)
	if err != nil {
		return err
	}
	return r.writeBytes(table)
}

// CoursesEnrolled prints courses the current user is enrolled in.
func (r *Runner) CoursesEnrolled(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	page, err := r.catalog.EnrolledCourses(ctx, filtersFrom(cmd))
	if err != nil {
		return fmt.Errorf("failed to fetch enrolled courses: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	table, err := formatter.CourseTable(page)
	if err != nil {
		return err
	}
	return r.writeBytes(table)
}

// Enroll enrolls the current user into a course.
func (r *Runner) Enroll(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: course id", shared.ErrMissingArgument)
	}

	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	if err := r.catalog.Enroll(ctx, id, cmd.String("payment-method")); err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}

	return r.writePlain("✓ Enrolled in course %s\n", id)
}

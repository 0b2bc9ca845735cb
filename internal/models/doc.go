// Package models defines domain entities for the coursectl client.
//
// The package contains two categories of types:
//
// 1. Read-only projections of backend resources:
//   - [User] : the authenticated account returned by login/verification
//   - [Course], [Section], [Lesson], [Video] : catalog structure
//   - [CoursePage], [Pagination] : normalized paginated listings
//   - [Category] : catalog categories
//
// 2. Client-owned state:
//   - [CourseProgress] : per-course completion set and accumulated watch time.
//     Values are treated as immutable; mutation helpers return a modified copy
//     so callers holding a snapshot never observe a partial update.
//
// Courses are fetched, never mutated, by this client.
package models

// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for course browsing and lesson playback:
//  1. [CourseListView] : Browse, search, and sort the course catalog
//  2. [LessonListView] : Inspect a course's sections with completion marks
//  3. [WatchView] : Play a lesson with live watch-progress reporting
//  4. [StatsView] : Per-course completion summary
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Search keystrokes are debounced before dispatch, and a superseded catalog
// query is silently dropped rather than rendered as an error.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, space, q)
// with contextual help displayed via charmbracelet/bubbles/help.
package ui

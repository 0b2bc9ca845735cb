// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in and persist the session token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Required: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create a new account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Display name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Required: true,
					},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Log out and clear stored credentials everywhere",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Verify the stored credential and show the session",
				Action: r.AuthStatus,
			},
		},
	}
}

func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "page", Usage: "Page number", Value: 1},
		&cli.IntFlag{Name: "limit", Usage: "Results per page", Value: 12},
		&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "Search term"},
		&cli.StringFlag{Name: "category", Usage: "Filter by category"},
		&cli.StringFlag{Name: "level", Usage: "Filter by level (beginner, intermediate, advanced)"},
		&cli.FloatFlag{Name: "min-price", Usage: "Minimum price"},
		&cli.FloatFlag{Name: "max-price", Usage: "Maximum price"},
		&cli.FloatFlag{Name: "min-rating", Usage: "Minimum rating"},
		&cli.StringFlag{Name: "sort", Usage: "Sort order (newest, oldest, price-low, price-high, rating, popularity)"},
		&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output", Value: true},
	}
}

// coursesCommand handles catalog browsing operations
func coursesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "courses",
		Aliases: []string{"course"},
		Usage:   "Browse the course catalog",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List published courses",
				Flags:  listFlags(),
				Action: r.CoursesList,
			},
			{
				Name:  "show",
				Usage: "Show course detail with sections, lessons, and progress",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output", Value: true},
				},
				Action: r.CoursesShow,
			},
			{
				Name:    "categories",
				Aliases: []string{"cats"},
				Usage:   "List catalog categories with course counts",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.CoursesCategories,
			},
			{
				Name:   "mine",
				Usage:  "List courses you teach",
				Flags:  listFlags(),
				Action: r.CoursesMine,
			},
			{
				Name:   "enrolled",
				Usage:  "List courses you are enrolled in",
				Flags:  listFlags(),
				Action: r.CoursesEnrolled,
			},
		},
	}
}

// enrollCommand enrolls the current user into a course.
func enrollCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "enroll",
		Usage: "Enroll in a course",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "payment-method",
				Usage: "Payment method identifier",
				Value: "free",
			},
		},
		Action: r.Enroll,
	}
}

// progressCommand handles learning progress operations
func progressCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "progress",
		Aliases: []string{"prog"},
		Usage:   "Track learning progress",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show progress for a course",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "course-id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.ProgressShow,
			},
			{
				Name:  "complete",
				Usage: "Mark a lesson as completed",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "course-id"},
					&cli.StringArg{Name: "lesson-id"},
				},
				Action: r.ProgressComplete,
			},
			{
				Name:  "reset",
				Usage: "Reset all progress for a course",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "course-id"},
				},
				Action: r.ProgressReset,
			},
		},
	}
}

// watchCommand records watch time for a lesson without the TUI.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Record watched time for a lesson",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "course-id"},
			&cli.StringArg{Name: "lesson-id"},
		},
		Flags: []cli.Flag{
			&cli.FloatFlag{
				Name:     "seconds",
				Aliases:  []string{"s"},
				Usage:    "Position reached in the lesson video, in seconds",
				Required: true,
			},
		},
		Action: r.Watch,
	}
}

// tuiCommand returns the top-level TUI command for interactive browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive course browser",
		Action:  r.TUI,
	}
}

package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "tasknote",
		Usage: "Daily task list with Markdown notes, a monthly calendar and full-text search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the REST backend",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve task tools over MCP on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:      "register",
				Usage:     "Create an account",
				ArgsUsage: "USERNAME",
				Flags:     []cli.Flag{passwordFlag()},
				Action:    register,
			},
			{
				Name:      "login",
				Usage:     "Sign in and store the session",
				ArgsUsage: "USERNAME",
				Flags: []cli.Flag{
					passwordFlag(),
					&cli.StringFlag{Name: "totp", Usage: "Six-digit code from the authenticator app"},
				},
				Action: login,
			},
			{
				Name:   "logout",
				Usage:  "Revoke and forget the stored session",
				Action: logout,
			},
			{
				Name:      "reset-password",
				Usage:     "Set a new password using a two-factor code",
				ArgsUsage: "USERNAME",
				Flags: []cli.Flag{
					passwordFlag(),
					&cli.StringFlag{Name: "totp", Usage: "Six-digit code from the authenticator app", Required: true},
				},
				Action: resetPassword,
			},
			{
				Name:  "2fa",
				Usage: "Manage two-factor authentication",
				Commands: []*cli.Command{
					{Name: "status", Usage: "Show whether two-factor is enabled", Action: totpStatus},
					{Name: "setup", Usage: "Generate a secret to add to an authenticator app", Action: totpSetup},
					{Name: "verify", Usage: "Confirm setup with a code", ArgsUsage: "CODE", Action: totpVerify},
				},
			},
			{
				Name:   "today",
				Usage:  "List today's tasks",
				Action: today,
			},
			{
				Name:      "day",
				Usage:     "List the tasks of a day",
				ArgsUsage: "YYYY-MM-DD",
				Action:    day,
			},
			{
				Name:      "calendar",
				Usage:     "Show a month with per-day progress",
				ArgsUsage: "[YYYY-MM]",
				Action:    calendar,
			},
			{
				Name:      "add",
				Usage:     "Add a task scheduled now",
				ArgsUsage: "TITLE",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "note", Usage: "First note (Markdown)"}},
				Action:    addTask,
			},
			{
				Name:      "toggle",
				Usage:     "Flip a task's completion",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{dayFlag()},
				Action:    toggleTask,
			},
			{
				Name:      "rm",
				Usage:     "Delete a task and its notes",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{dayFlag()},
				Action:    deleteTask,
			},
			{
				Name:      "edit",
				Usage:     "Rename, reschedule or record effort",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					dayFlag(),
					&cli.StringFlag{Name: "title", Usage: "New title"},
					&cli.StringFlag{Name: "date", Usage: "Move to YYYY-MM-DD, keeping the time of day"},
					&cli.FloatFlag{Name: "spent", Usage: "Time spent (requires --unit)"},
					&cli.StringFlag{Name: "unit", Usage: "minute, hour, day, week or month"},
				},
				Action: editTask,
			},
			{
				Name:  "note",
				Usage: "Manage the notes of a task",
				Commands: []*cli.Command{
					{Name: "add", ArgsUsage: "TASK_ID CONTENT", Usage: "Attach a note", Action: addNote},
					{Name: "edit", ArgsUsage: "TASK_ID NOTE_ID CONTENT", Usage: "Replace a note", Flags: []cli.Flag{dayFlag()}, Action: editNote},
					{Name: "rm", ArgsUsage: "TASK_ID NOTE_ID", Usage: "Delete a note", Action: deleteNote},
				},
			},
			{
				Name:      "show",
				Usage:     "Show a task with its notes in full",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{dayFlag()},
				Action:    showTask,
			},
			{
				Name:      "search",
				Usage:     "Search titles and notes",
				ArgsUsage: "QUERY",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "open", Usage: "Also show the first result in full"}},
				Action:    search,
			},
			{
				Name:      "reorder",
				Usage:     "Set the display order of a day's tasks",
				ArgsUsage: "ID...",
				Flags:     []cli.Flag{dayFlag()},
				Action:    reorder,
			},
			{
				Name:      "upload",
				Usage:     "Upload an image and print its Markdown reference",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "task", Usage: "Also attach the image as a note of this task"}},
				Action:    upload,
			},
			{
				Name:   "watch",
				Usage:  "Print today's tasks whenever another terminal logs in or out",
				Action: watch,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func passwordFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "password",
		Usage:   "Password (read from stdin when empty)",
		Sources: cli.EnvVars("TASKNOTE_PASSWORD"),
	}
}

func dayFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "day",
		Usage: "Day the task is scheduled on, YYYY-MM-DD (default today)",
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/tasknote/internal"
	"github.com/starford/tasknote/internal/apperr"
	"github.com/starford/tasknote/internal/coordinator"
	"github.com/starford/tasknote/internal/mcpserver"
	"github.com/starford/tasknote/internal/models"
	"github.com/starford/tasknote/internal/session"
	"github.com/starford/tasknote/internal/store"
	pkgconfig "github.com/starford/tasknote/pkg/config"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin

	errNotLoggedIn = errors.New("not logged in: run `tasknote login USERNAME`")
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func openWorkspace(cmd *cli.Command) (*internal.Workspace, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.OpenWorkspace(
		internal.WithConfig(cfg),
		internal.WithAlerter(coordinator.AlerterFunc(func(msg string) {
			fmt.Fprintln(os.Stderr, "!", msg)
		})),
	)
}

// signedIn opens the workspace and fails early without a stored session.
func signedIn(cmd *cli.Command) (*internal.Workspace, error) {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return nil, err
	}
	if ws.Session.Token() == "" {
		return nil, errNotLoggedIn
	}
	return ws, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(_ context.Context, cmd *cli.Command) error {
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	return mcpserver.New(ws.Coordinator).ServeStdio()
}

// Account commands.

func register(ctx context.Context, cmd *cli.Command) error {
	username, err := arg(cmd, 0, "USERNAME")
	if err != nil {
		return err
	}
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	if err := ws.Client.Register(ctx, username, password); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	fmt.Fprintf(stdout, "registered %s\n", username)
	return nil
}

func login(ctx context.Context, cmd *cli.Command) error {
	username, err := arg(cmd, 0, "USERNAME")
	if err != nil {
		return err
	}
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	err = ws.Login(ctx, username, password, cmd.String("totp"))
	if errors.Is(err, apperr.ErrTwoFactorRequired) {
		return errors.New("two-factor code required: rerun with --totp CODE")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "logged in as %s\n", ws.Session.Username())
	return nil
}

func logout(ctx context.Context, cmd *cli.Command) error {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	ws.Logout(ctx)
	fmt.Fprintln(stdout, "logged out")
	return nil
}

func resetPassword(ctx context.Context, cmd *cli.Command) error {
	username, err := arg(cmd, 0, "USERNAME")
	if err != nil {
		return err
	}
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	if err := ws.Client.ResetPassword(ctx, username, password, cmd.String("totp")); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	fmt.Fprintln(stdout, "password updated; all sessions were signed out")
	return nil
}

func totpStatus(ctx context.Context, cmd *cli.Command) error {
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	on, err := ws.Client.TOTPStatus(ctx)
	if err != nil {
		return err
	}
	state := "disabled"
	if on {
		state = "enabled"
	}
	fmt.Fprintf(stdout, "two-factor authentication is %s\n", state)
	return nil
}

func totpSetup(ctx context.Context, cmd *cli.Command) error {
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	secret, url, err := ws.Client.TOTPGenerate(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "secret: %s\nurl:    %s\n\nAdd it to your authenticator app, then run `tasknote 2fa verify CODE`.\n", secret, url)
	return nil
}

func totpVerify(ctx context.Context, cmd *cli.Command) error {
	code, err := arg(cmd, 0, "CODE")
	if err != nil {
		return err
	}
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	if err := ws.Client.TOTPVerify(ctx, code); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "two-factor authentication enabled")
	return nil
}

// Views.

func today(ctx context.Context, cmd *cli.Command) error {
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	c := ws.Coordinator
	if err := c.Load(ctx); err != nil {
		return err
	}
	printDay(stdout, time.Now().In(c.Location()), c.Store().Window(store.WindowToday))
	return nil
}

func day(ctx context.Context, cmd *cli.Command) error {
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	c := ws.Coordinator
	raw, err := arg(cmd, 0, "YYYY-MM-DD")
	if err != nil {
		return err
	}
	d, err := parseDay(raw, c.Location())
	if err != nil {
		return err
	}
	if err := c.SelectDate(ctx, d); err != nil {
		return err
	}
	printDay(stdout, d, c.Store().Window(store.WindowSelected))
	return nil
}

func calendar(ctx context.Context, cmd *cli.Command) error {
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	c := ws.Coordinator
	month := time.Now().In(c.Location())
	if raw := cmd.Args().First(); raw != "" {
		month, err = time.ParseInLocation(monthLayout, raw, c.Location())
		if err != nil {
			return fmt.Errorf("invalid month %q: want YYYY-MM", raw)
		}
	}
	if err := c.SetViewMonth(ctx, month); err != nil {
		return err
	}
	printCalendar(stdout, month, c.Store().Stats(), time.Now().In(c.Location()))
	return nil
}

func search(ctx context.Context, cmd *cli.Command) error {
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	results, err := ws.Coordinator.Search(ctx, strings.Join(cmd.Args().Slice(), " "))
	if err != nil {
		return err
	}
	printSearch(stdout, results, ws.Coordinator.Location())
	if cmd.Bool("open") && len(results) > 0 {
		ws.Coordinator.SelectSearchResult(results[0])
		showFocus(ws.Coordinator)
	}
	return nil
}

func showTask(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, 0, "ID")
	if err != nil {
		return err
	}
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	c := ws.Coordinator
	if _, err := prepare(ctx, cmd, c); err != nil {
		return err
	}
	if err := c.SelectTask(id); err != nil {
		return notLoaded(err, id)
	}
	showFocus(c)
	return nil
}

// showFocus prints the focused task and closes the detail view again.
func showFocus(c *coordinator.Coordinator) {
	defer c.CloseDetail()
	if task, ok := c.Store().Focus(); ok {
		fmt.Fprintln(stdout)
		printDetail(stdout, task, c.Location())
	}
}

// Mutations.

// prepare loads the windows the coordinator mutates, including the --day
// window when given, and returns the window the command acts on.
func prepare(ctx context.Context, cmd *cli.Command, c *coordinator.Coordinator) (store.Window, error) {
	if err := c.Load(ctx); err != nil {
		return "", err
	}
	raw := cmd.String("day")
	if raw == "" {
		return store.WindowToday, nil
	}
	d, err := parseDay(raw, c.Location())
	if err != nil {
		return "", err
	}
	if err := c.SelectDate(ctx, d); err != nil {
		return "", err
	}
	return store.WindowSelected, nil
}

func notLoaded(err error, id int64) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("task %d is not scheduled on that day (pass --day YYYY-MM-DD): %w", id, err)
	}
	return err
}

func addTask(ctx context.Context, cmd *cli.Command) error {
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	task, err := ws.Coordinator.AddTask(ctx, strings.Join(cmd.Args().Slice(), " "), cmd.String("note"))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "added #%d %s\n", task.ID, task.Title)
	return nil
}

func toggleTask(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, 0, "ID")
	if err != nil {
		return err
	}
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	if _, err := prepare(ctx, cmd, ws.Coordinator); err != nil {
		return err
	}
	task, err := ws.Coordinator.ToggleTask(ctx, id)
	if err != nil {
		return notLoaded(err, id)
	}
	fmt.Fprintln(stdout, taskLine(task, ws.Coordinator.Location()))
	return nil
}

func deleteTask(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, 0, "ID")
	if err != nil {
		return err
	}
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	if _, err := prepare(ctx, cmd, ws.Coordinator); err != nil {
		return err
	}
	if err := ws.Coordinator.DeleteTask(ctx, id); err != nil {
		return notLoaded(err, id)
	}
	fmt.Fprintf(stdout, "deleted #%d\n", id)
	return nil
}

func editTask(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, 0, "ID")
	if err != nil {
		return err
	}
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	c := ws.Coordinator
	if _, err := prepare(ctx, cmd, c); err != nil {
		return err
	}
	current, ok := c.Store().Find(id)
	if !ok {
		return notLoaded(apperr.ErrNotFound, id)
	}

	var u models.TaskUpdate
	if cmd.IsSet("title") {
		u.Identity = &models.IdentityFields{Title: cmd.String("title")}
	}
	if raw := cmd.String("date"); raw != "" {
		d, err := parseDay(raw, c.Location())
		if err != nil {
			return err
		}
		at := keepClock(d, current.Scheduled().In(c.Location()))
		u.Schedule = &models.ScheduleFields{TaskTime: &at}
	}
	if cmd.IsSet("spent") || cmd.IsSet("unit") {
		u.Effort = &models.EffortFields{
			TimeSpent: cmd.Float("spent"),
			TimeUnit:  models.TimeUnit(cmd.String("unit")),
		}
	}

	task, err := c.UpdateTask(ctx, id, u)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, taskLine(task, c.Location()))
	return nil
}

func reorder(ctx context.Context, cmd *cli.Command) error {
	ids := make([]int64, 0, cmd.Args().Len())
	for i := range cmd.Args().Len() {
		id, err := idArg(cmd, i, "ID")
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	c := ws.Coordinator
	w, err := prepare(ctx, cmd, c)
	if err != nil {
		return err
	}
	if err := c.ReorderTasks(ctx, w, ids); err != nil {
		return err
	}
	d := time.Now().In(c.Location())
	if w == store.WindowSelected {
		d = c.SelectedDate()
	}
	printDay(stdout, d, c.Store().Window(w))
	return nil
}

// Notes.

func addNote(ctx context.Context, cmd *cli.Command) error {
	taskID, err := idArg(cmd, 0, "TASK_ID")
	if err != nil {
		return err
	}
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	note, err := ws.Coordinator.AddNote(ctx, taskID, strings.Join(cmd.Args().Slice()[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "added note #%d to task #%d\n", note.ID, taskID)
	return nil
}

func editNote(ctx context.Context, cmd *cli.Command) error {
	taskID, err := idArg(cmd, 0, "TASK_ID")
	if err != nil {
		return err
	}
	noteID, err := idArg(cmd, 1, "NOTE_ID")
	if err != nil {
		return err
	}
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	if _, err := prepare(ctx, cmd, ws.Coordinator); err != nil {
		return err
	}
	if _, err := ws.Coordinator.UpdateNote(ctx, taskID, noteID, strings.Join(cmd.Args().Slice()[2:], " ")); err != nil {
		return notLoaded(err, taskID)
	}
	fmt.Fprintf(stdout, "updated note #%d\n", noteID)
	return nil
}

func deleteNote(ctx context.Context, cmd *cli.Command) error {
	taskID, err := idArg(cmd, 0, "TASK_ID")
	if err != nil {
		return err
	}
	noteID, err := idArg(cmd, 1, "NOTE_ID")
	if err != nil {
		return err
	}
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	if err := ws.Coordinator.DeleteNote(ctx, taskID, noteID); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deleted note #%d\n", noteID)
	return nil
}

func upload(ctx context.Context, cmd *cli.Command) error {
	path, err := arg(cmd, 0, "FILE")
	if err != nil {
		return err
	}
	ws, err := signedIn(cmd)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	md, err := ws.Coordinator.UploadImage(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	if raw := cmd.String("task"); raw != "" {
		taskID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", raw)
		}
		if _, err := ws.Coordinator.AddNote(ctx, taskID, md); err != nil {
			return err
		}
	}
	fmt.Fprintln(stdout, md)
	return nil
}

func watch(ctx context.Context, cmd *cli.Command) error {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := ws.Coordinator
	show := func() {
		printDay(stdout, time.Now().In(c.Location()), c.Store().Window(store.WindowToday))
	}
	if ws.Session.Token() != "" {
		if err := c.Load(ctx); err != nil {
			return err
		}
		show()
	} else {
		fmt.Fprintln(stdout, "waiting for login...")
	}

	return ws.Watch(ctx, func(st session.State) {
		switch st {
		case session.StateActive:
			fmt.Fprintf(stdout, "\nsigned in as %s\n", ws.Session.Username())
			show()
		case session.StateCleared:
			fmt.Fprintln(stdout, "\nsigned out")
		}
	})
}

// Argument helpers.

func arg(cmd *cli.Command, i int, name string) (string, error) {
	v := strings.TrimSpace(cmd.Args().Get(i))
	if v == "" {
		return "", fmt.Errorf("missing %s argument", name)
	}
	return v, nil
}

func idArg(cmd *cli.Command, i int, name string) (int64, error) {
	raw, err := arg(cmd, i, name)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func parseDay(raw string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", raw)
	}
	return d, nil
}

// keepClock returns day at the wall-clock time of clock.
func keepClock(day, clock time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, day.Location())
}

func readPassword(cmd *cli.Command) (string, error) {
	if p := cmd.String("password"); p != "" {
		return p, nil
	}
	fmt.Fprint(os.Stderr, "password: ")
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}

// Command taskdeck is a terminal client for the tracker: it manages the
// login session and credential store, and drives the project and task
// endpoints through paginated list controllers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/ganot/taskdeck/internal/api"
	"github.com/ganot/taskdeck/internal/bus"
	"github.com/ganot/taskdeck/internal/config"
	"github.com/ganot/taskdeck/internal/credstore"
	"github.com/ganot/taskdeck/internal/domain/project"
	"github.com/ganot/taskdeck/internal/domain/session"
	"github.com/ganot/taskdeck/internal/domain/task"
)

const usage = `Usage: taskdeck [--config PATH] <command> [flags]

Commands:
  login           Log in and store the credential
  signup          Register a new account
  logout          Log out and clear the credential
  whoami          Show the logged-in user
  projects        List projects
  project         Manage a project (create, update, delete)
  tasks           List a project's tasks
  task            Manage a task (create, update, delete)
  delete-account  Permanently delete the account
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := pflag.NewFlagSet("taskdeck", pflag.ContinueOnError)
	global.SetInterspersed(false)
	configPath := global.String("config", "", "path to config file")
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer a.close()

	ctx := context.Background()
	if err := a.dispatch(ctx, rest[0], rest[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   credstore.Store
	client  *api.Client
	manager *session.Manager
	events  *bus.Bus

	closers []func() error
}

func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, events: bus.New()}

	switch cfg.Store.Backend {
	case "sqlite":
		store, err := credstore.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening credential store: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
	default:
		a.store = credstore.NewFileStore(cfg.Store.Path)
	}

	var manager *session.Manager
	a.client = api.NewClient(cfg.API.BaseURL,
		func() string { return manager.Token() },
		api.WithLogger(logger),
	)
	manager = session.NewManager(a.client, a.store,
		session.WithLogger(logger),
		session.WithNotifier(stdoutNotifier{}),
		session.WithLifetime(cfg.Session.Lifetime),
		session.WithCheckInterval(cfg.Session.CheckInterval),
	)
	a.client.SetAuthRejectedHook(manager.HandleAuthRejected)
	a.manager = manager

	return a, nil
}

func (a *app) close() {
	a.manager.Close()
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.logger.Warn("closing resource", "error", err)
		}
	}
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "signup":
		return a.cmdSignup(ctx, args)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "projects":
		return a.cmdProjects(ctx, args)
	case "project":
		return a.cmdProject(ctx, args)
	case "tasks":
		return a.cmdTasks(ctx, args)
	case "task":
		return a.cmdTask(ctx, args)
	case "delete-account":
		return a.cmdDeleteAccount(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// restore brings the stored session back before an authenticated command.
func (a *app) restore(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	return nil
}

func (a *app) requireSession(ctx context.Context) error {
	if err := a.restore(ctx); err != nil {
		return err
	}
	if !a.manager.Snapshot().Authenticated() {
		return errors.New("not logged in, run `taskdeck login` first")
	}
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("login", pflag.ContinueOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login requires --email and --password")
	}

	token, err := a.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := a.manager.Login(ctx, token); err != nil {
		return err
	}
	fmt.Println("Logged in successfully")
	return nil
}

func (a *app) cmdSignup(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("signup", pflag.ContinueOnError)
	name := flags.String("name", "", "display name")
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	confirmation := flags.String("password-confirmation", "", "password again")
	gender := flags.String("gender", "", "optional gender")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *confirmation == "" {
		*confirmation = *password
	}

	err := a.client.Signup(ctx, api.SignupRequest{
		Name:                 *name,
		Email:                *email,
		Password:             *password,
		PasswordConfirmation: *confirmation,
		Gender:               *gender,
	})
	if err != nil {
		return err
	}
	fmt.Println("Account created, you can now log in")
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	if err := a.restore(ctx); err != nil {
		return err
	}
	a.manager.Logout(ctx)
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	if err := a.restore(ctx); err != nil {
		return err
	}
	snap := a.manager.Snapshot()
	if !snap.Authenticated() {
		fmt.Println("Not logged in")
		return nil
	}
	if snap.Principal == nil {
		principal, err := a.manager.RefreshPrincipal(ctx)
		if err != nil {
			return err
		}
		snap.Principal = principal
	}
	fmt.Printf("%s <%s>\n", snap.Principal.Name, snap.Principal.Email)
	return nil
}

func (a *app) cmdProjects(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("projects", pflag.ContinueOnError)
	page := flags.Int("page", 1, "page number")
	limit := flags.Int("limit", 10, "projects per page")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	ctrl := project.NewController(a.client, *limit, a.logger)
	if _, err := ctrl.FetchPage(ctx, *page); err != nil {
		return err
	}

	state := ctrl.State()
	if len(state.Projects) == 0 {
		fmt.Println("No projects")
		return nil
	}
	for _, p := range state.Projects {
		fmt.Printf("%d\t%s\t%s\t%d/%d tasks done\n",
			p.ID, p.Name, p.Domain, p.CompletedTasks, p.TotalTasks)
	}
	fmt.Printf("page %d, %d total\n", state.Page, state.Total)
	return nil
}

func (a *app) cmdProject(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("project requires a subcommand: create, update, delete")
	}
	sub, args := args[0], args[1:]

	flags := pflag.NewFlagSet("project "+sub, pflag.ContinueOnError)
	id := flags.Int64("id", 0, "project id")
	name := flags.String("name", "", "project name")
	domain := flags.String("domain", "", "project domain")
	description := flags.String("description", "", "project description")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	ctrl := project.NewController(a.client, 10, a.logger)

	switch sub {
	case "create":
		created, err := ctrl.Create(ctx, project.CreateRequest{
			Name:        *name,
			Domain:      *domain,
			Description: *description,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Project %d created\n", created.ID)
		return nil
	case "update":
		if *id == 0 {
			return errors.New("project update requires --id")
		}
		var req project.UpdateRequest
		if flags.Changed("name") {
			req.Name = name
		}
		if flags.Changed("domain") {
			req.Domain = domain
		}
		if flags.Changed("description") {
			req.Description = description
		}
		if _, err := ctrl.Update(ctx, *id, req); err != nil {
			return err
		}
		fmt.Println("Project updated")
		return nil
	case "delete":
		if *id == 0 {
			return errors.New("project delete requires --id")
		}
		if err := ctrl.Delete(ctx, *id); err != nil {
			return err
		}
		fmt.Println("Project deleted")
		return nil
	default:
		return fmt.Errorf("unknown project subcommand %q", sub)
	}
}

func (a *app) cmdTasks(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("tasks", pflag.ContinueOnError)
	page := flags.Int("page", 1, "page number")
	limit := flags.Int("limit", 10, "tasks per page")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return errors.New("tasks requires a project id")
	}
	projectID, err := strconv.ParseInt(flags.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid project id %q", flags.Arg(0))
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	ctrl := task.NewController(a.client, projectID, *limit, a.events, a.logger)
	if _, err := ctrl.FetchPage(ctx, *page); err != nil {
		return err
	}

	state := ctrl.State()
	if len(state.Tasks) == 0 {
		fmt.Println("No tasks")
		return nil
	}
	for _, item := range state.Tasks {
		fmt.Printf("%d\t[%s]\t%s\n", item.ID, item.Status, item.Title)
	}
	fmt.Printf("page %d, %d total\n", state.Page, state.Total)
	return nil
}

func (a *app) cmdTask(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("task requires a subcommand: create, update, delete")
	}
	sub, args := args[0], args[1:]

	flags := pflag.NewFlagSet("task "+sub, pflag.ContinueOnError)
	projectID := flags.Int64("project", 0, "project id")
	id := flags.Int64("id", 0, "task id")
	title := flags.String("title", "", "task title")
	description := flags.String("description", "", "task description")
	status := flags.String("status", "", "task status: pending, in_progress, completed")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *projectID == 0 {
		return fmt.Errorf("task %s requires --project", sub)
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	ctrl := task.NewController(a.client, *projectID, 10, a.events, a.logger)

	switch sub {
	case "create":
		created, err := ctrl.Create(ctx, task.CreateRequest{
			Title:       *title,
			Description: *description,
			Status:      task.Status(*status),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Task %d created\n", created.ID)
		return nil
	case "update":
		if *id == 0 {
			return errors.New("task update requires --id")
		}
		var req task.UpdateRequest
		if flags.Changed("title") {
			req.Title = title
		}
		if flags.Changed("description") {
			req.Description = description
		}
		if flags.Changed("status") {
			s := task.Status(*status)
			req.Status = &s
		}
		if _, err := ctrl.Update(ctx, *id, req); err != nil {
			return err
		}
		fmt.Println("Task updated")
		return nil
	case "delete":
		if *id == 0 {
			return errors.New("task delete requires --id")
		}
		if err := ctrl.Delete(ctx, *id); err != nil {
			return err
		}
		fmt.Println("Task deleted")
		return nil
	default:
		return fmt.Errorf("unknown task subcommand %q", sub)
	}
}

func (a *app) cmdDeleteAccount(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("delete-account", pflag.ContinueOnError)
	confirm := flags.String("confirm", "", `type "delete" to confirm`)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *confirm != "delete" {
		return errors.New(`account deletion requires --confirm delete`)
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	return a.manager.DeleteAccount(ctx)
}

// stdoutNotifier surfaces session notifications on the terminal.
type stdoutNotifier struct{}

func (stdoutNotifier) Info(msg string)    { fmt.Println(msg) }
func (stdoutNotifier) Success(msg string) { fmt.Println(msg) }
func (stdoutNotifier) Error(msg string)   { fmt.Fprintln(os.Stderr, msg) }

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

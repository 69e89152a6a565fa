package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/worksuite/identity-api/config"
	"github.com/worksuite/identity-api/internal/bootstrap"
	"github.com/worksuite/identity-api/internal/data"
	"github.com/worksuite/identity-api/internal/devseed"
	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
	"github.com/worksuite/identity-api/internal/domain/model"
	"github.com/worksuite/identity-api/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 2 * time.Minute
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"create-user": {
			name:        "create-user",
			description: "Create a user account with a hashed password",
			run:         runCreateUser,
		},
		"set-role": {
			name:        "set-role",
			description: "Change a user's role and drop their cached role",
			run:         runSetRole,
		},
		"set-active": {
			name:        "set-active",
			description: "Activate or deactivate a user account",
			run:         runSetActive,
		},
		"list-users": {
			name:        "list-users",
			description: "List user accounts with optional filters",
			run:         runListUsers,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Run migrations and seed a development user for every role",
			run:         runDBSeed,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: identity-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands()[name]
		if err := writef(os.Stdout, "  %-14s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

// ---- migrate ----

type migrateOptions struct {
	Timeout time.Duration
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{Timeout: defaultMigrationTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Migration timeout")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be positive")
	}
	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	db, _, err := connectInfra(&connectInfraOptions{
		Logger: cmdCtx.Logger,
		Config: &cmdCtx.Config,
		WantDB: true,
	})
	if err != nil {
		return err
	}
	defer closeInfra(cmdCtx.Logger, db, nil)

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

// ---- create-user ----

type createUserOptions struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

func parseCreateUserFlags(args []string) (createUserOptions, error) {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts createUserOptions
	fs.StringVar(&opts.Email, "email", "", "Email address (required)")
	fs.StringVar(&opts.Password, "password", "", "Password (required; min 8 characters)")
	fs.StringVar(&opts.FirstName, "first-name", "", "First name")
	fs.StringVar(&opts.LastName, "last-name", "", "Last name")
	fs.StringVar(&opts.Role, "role", string(domainauth.RoleClient), "Role (super_admin, admin, manager, client, employee)")

	if err := fs.Parse(args); err != nil {
		return createUserOptions{}, err
	}

	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return createUserOptions{}, errors.New("--email is required")
	}
	if opts.Password == "" {
		return createUserOptions{}, errors.New("--password is required")
	}
	if _, err := parseRole(opts.Role); err != nil {
		return createUserOptions{}, err
	}
	return opts, nil
}

func runCreateUser(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateUserFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, _, err := connectInfra(&connectInfraOptions{
		Logger: cmdCtx.Logger,
		Config: &cmdCtx.Config,
		WantDB: true,
	})
	if err != nil {
		return err
	}
	defer closeInfra(cmdCtx.Logger, db, nil)

	svc := service.NewAuthService(service.AuthServiceOptions{
		Users:  data.NewUserRepo(db),
		Hasher: newHasher(&cmdCtx.Config),
		Logger: cmdCtx.Logger,
	})

	user, err := svc.SignUp(ctx, model.RegisterUserRequest{
		Email:     opts.Email,
		Password:  opts.Password,
		FirstName: opts.FirstName,
		LastName:  opts.LastName,
		Role:      opts.Role,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	cmdCtx.Logger.Info("user created", "id", user.ID, "email", user.Email, "role", user.Role)
	return nil
}

// ---- set-role ----

type setRoleOptions struct {
	Email string
	Role  domainauth.Role
}

func parseSetRoleFlags(args []string) (setRoleOptions, error) {
	fs := flag.NewFlagSet("set-role", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts    setRoleOptions
		roleStr string
	)
	fs.StringVar(&opts.Email, "email", "", "Email of the account to change (required)")
	fs.StringVar(&roleStr, "role", "", "New role (required)")

	if err := fs.Parse(args); err != nil {
		return setRoleOptions{}, err
	}

	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return setRoleOptions{}, errors.New("--email is required")
	}
	role, err := parseRole(roleStr)
	if err != nil {
		return setRoleOptions{}, err
	}
	opts.Role = role
	return opts, nil
}

func runSetRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseSetRoleFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, redisClient, err := connectInfra(&connectInfraOptions{
		Logger:    cmdCtx.Logger,
		Config:    &cmdCtx.Config,
		WantDB:    true,
		WantRedis: true,
	})
	if err != nil {
		return err
	}
	defer closeInfra(cmdCtx.Logger, db, redisClient)

	repo := data.NewUserRepo(db)
	user, err := repo.GetByEmail(ctx, opts.Email)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if updateErr := repo.UpdateRole(ctx, user.ID, opts.Role); updateErr != nil {
		return fmt.Errorf("update role: %w", updateErr)
	}

	// Drop the cached role so the change applies on the next request rather
	// than after cache expiry.
	clearCachedRole(ctx, cmdCtx.Logger, redisClient, user.ID)

	cmdCtx.Logger.Info("role updated", "email", user.Email, "role", opts.Role)
	return nil
}

// ---- set-active ----

type setActiveOptions struct {
	Email  string
	Active bool
}

func parseSetActiveFlags(args []string) (setActiveOptions, error) {
	fs := flag.NewFlagSet("set-active", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts setActiveOptions
	fs.StringVar(&opts.Email, "email", "", "Email of the account to change (required)")
	fs.BoolVar(&opts.Active, "active", false, "Desired active state (true or false)")

	if err := fs.Parse(args); err != nil {
		return setActiveOptions{}, err
	}

	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return setActiveOptions{}, errors.New("--email is required")
	}
	return opts, nil
}

func runSetActive(cmdCtx *commandContext, args []string) error {
	opts, err := parseSetActiveFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, redisClient, err := connectInfra(&connectInfraOptions{
		Logger:    cmdCtx.Logger,
		Config:    &cmdCtx.Config,
		WantDB:    true,
		WantRedis: true,
	})
	if err != nil {
		return err
	}
	defer closeInfra(cmdCtx.Logger, db, redisClient)

	repo := data.NewUserRepo(db)
	user, err := repo.GetByEmail(ctx, opts.Email)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if setErr := repo.SetActive(ctx, user.ID, opts.Active); setErr != nil {
		return fmt.Errorf("set active: %w", setErr)
	}

	// A deactivated account must stop passing guards as soon as possible.
	clearCachedRole(ctx, cmdCtx.Logger, redisClient, user.ID)

	cmdCtx.Logger.Info("active state updated", "email", user.Email, "active", opts.Active)
	return nil
}

// ---- db-seed ----

func runDBSeed(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("db-seed takes no arguments, got %q", args)
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, _, err := connectInfra(&connectInfraOptions{
		Logger: cmdCtx.Logger,
		Config: &cmdCtx.Config,
		WantDB: true,
	})
	if err != nil {
		return err
	}
	defer closeInfra(cmdCtx.Logger, db, nil)

	if err = bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); err != nil {
		return err
	}
	return devseed.Run(ctx, db, cmdCtx.Logger)
}

// ---- list-users ----

type listUsersOptions struct {
	Q      string
	Role   string
	Active string
	Limit  int
	Offset int
}

func parseListUsersFlags(args []string) (listUsersOptions, error) {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts listUsersOptions
	fs.StringVar(&opts.Q, "q", "", "Filter by email substring")
	fs.StringVar(&opts.Role, "role", "", "Filter by role")
	fs.StringVar(&opts.Active, "active", "", "Filter by active state (true or false)")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum rows to display")
	fs.IntVar(&opts.Offset, "offset", 0, "Offset for query results")

	if err := fs.Parse(args); err != nil {
		return listUsersOptions{}, err
	}

	if opts.Role != "" {
		if _, err := parseRole(opts.Role); err != nil {
			return listUsersOptions{}, err
		}
	}
	if opts.Active != "" && opts.Active != "true" && opts.Active != "false" {
		return listUsersOptions{}, errors.New("--active must be true or false")
	}
	return opts, nil
}

func runListUsers(cmdCtx *commandContext, args []string) error {
	opts, err := parseListUsersFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	db, _, err := connectInfra(&connectInfraOptions{
		Logger: cmdCtx.Logger,
		Config: &cmdCtx.Config,
		WantDB: true,
	})
	if err != nil {
		return err
	}
	defer closeInfra(cmdCtx.Logger, db, nil)

	listOpts := data.UsersListOptions{
		Limit:  opts.Limit,
		Offset: opts.Offset,
		Sort:   "email",
		Dir:    "asc",
	}
	if opts.Q != "" {
		listOpts.Q = &opts.Q
	}
	if opts.Role != "" {
		role := domainauth.Role(opts.Role)
		listOpts.Role = &role
	}
	if opts.Active != "" {
		active := opts.Active == "true"
		listOpts.Active = &active
	}

	users, err := data.NewUserRepo(db).ListWithOptions(ctx, listOpts)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	return renderUsersTable(os.Stdout, users)
}

func renderUsersTable(w io.Writer, users []*model.User) error {
	if len(users) == 0 {
		return writeln(w, "(no users found)")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tACTIVE"); err != nil {
		return err
	}
	for _, u := range users {
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Email, name, u.Role, u.Active); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// ---- shared helpers ----

func parseRole(raw string) (domainauth.Role, error) {
	return domainauth.ParseRole(raw)
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}

package main

import (
	"context"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	gooseRunFunc     = goose.Run         // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sqlx.DB
	logger  core.Logger
	usrRepo user.Repository
	out     io.Writer
}

// run executes the command of args; args[0] is the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCommand()
	root.SetArgs(args[1:])
	return root.Execute()
}

func (cli *commandLine) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Shule administration",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(
		cli.migrateCommand(),
		cli.reconcileCommand(),
		cli.addUserCommand(),
		cli.resetPasswordCommand(),
	)
	return root
}

func (cli *commandLine) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:                "migrate COMMAND [ARGS...]",
		Short:              "Run a goose command against the data migrations",
		Example:            "  admin migrate up\n  admin migrate down-to 1\n  admin migrate create backfill_course sql",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			if err := database.PrepareMigrations(cli.db, cli.logger); err != nil {
				return err
			}
			return gooseRunFunc(args[0], cli.db.DB, database.MigrationsDir, args[1:]...)
		},
	}
}

func (cli *commandLine) reconcileCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Bring the database schema up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := database.Reconcile(context.Background(), cli.db, cli.logger, dryRun)
			if err != nil {
				return err
			}
			if !rep.Changed() {
				fmt.Fprintln(cli.out, "schema is up to date")
				return nil
			}
			if dryRun {
				fmt.Fprintln(cli.out, "pending statements:")
			}
			for _, stmt := range rep.Statements {
				fmt.Fprintf(cli.out, "  %s;\n", stmt)
			}
			for _, idx := range rep.SkippedIndexes {
				fmt.Fprintf(cli.out, "skipped index: %s\n", idx)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the statements without running them")
	return cmd
}

func (cli *commandLine) addUserCommand() *cobra.Command {
	var name, uname, email, role string
	cmd := &cobra.Command{
		Use:     "adduser",
		Short:   "Create a user, or update the one with the same username or email",
		Example: "  admin adduser --username awe --email awe@test.cd --role faculty",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" && email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.addUser(name, uname, email, role, pwd)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "The user's name (defaults to the username)")
	cmd.Flags().StringVar(&uname, "username", "", "The user's username")
	cmd.Flags().StringVar(&email, "email", "", "The user's email")
	cmd.Flags().StringVar(&role, "role", user.RoleAdmin, "One of admin, faculty or student")
	return cmd
}

func (cli *commandLine) resetPasswordCommand() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.resetPassword(uname, pwd)
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "The user's username or email. The password will be prompted next.")
	return cmd
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return string(pwd), err
}

// addUser updates or creates an active user.User.
func (cli *commandLine) addUser(name, uname, email, role, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)
	if user.RolePriority(role) == 0 {
		return errors.Errorf("%q: invalid role", role)
	}

	now := core.Now()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username:   uname,
			Email:      email,
			Appearance: user.Appearance{Theme: user.ThemeLight},
			CreatedAt:  now,
		}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = uname
	}
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{core.CleanString(uname, true /* lower */)}})
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = core.Now()
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}

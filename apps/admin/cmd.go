package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/creche/core/lifecycle"
	"github.com/trezcool/creche/core/record"
	"github.com/trezcool/creche/core/user"
	"github.com/trezcool/creche/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword      // mockable
	gooseRunFunc     = database.RunMigration // mockable

	errHelp             = errors.New("help provided")
	errPasswordMismatch = errors.New("passwords do not match")
)

type commandLine struct {
	db      *sql.DB
	recSvc  *record.Service
	usrRepo user.Repository
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, redo, version...)")
	fmt.Fprintln(cli.out, "  hashpassword - hash the platform admin password, to be set as ADMINPASSWORDHASH")
	fmt.Fprintln(cli.out, "  setstatus -daycare ID -status STATUS - move a daycare through its lifecycle")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset a dashboard user's password")
}

// needsDB reports whether the command in args talks to the database.
func needsDB(args []string) bool {
	return len(args) > 1 && args[1] != "hashpassword"
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	setStatusCmd := flag.NewFlagSet("setstatus", flag.ContinueOnError)
	setStatusCmd.SetOutput(cli.out)
	setStatusID := setStatusCmd.String("daycare", "", "The daycare's id.")
	setStatusTarget := setStatusCmd.String("status", "", "The target status: PENDING, ACTIVE, INACTIVE or ARCHIVED.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "hashpassword":
		pwd, err := cli.promptPassword(true)
		if err != nil {
			return err
		}
		return cli.hashPassword(pwd)
	case "setstatus":
		if err := setStatusCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setStatusID == "" || *setStatusTarget == "" {
			setStatusCmd.Usage()
			return errHelp
		}
		return cli.setStatus(*setStatusID, lifecycle.Status(*setStatusTarget))
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(false)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

// promptPassword reads a password from the terminal, twice when confirm is set.
func (cli *commandLine) promptPassword(confirm bool) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	if confirm {
		fmt.Fprint(cli.out, "Confirm password:")
		again, err := readPasswordFunc(syscall.Stdin)
		fmt.Fprintln(cli.out)
		if err != nil {
			return "", err
		}
		if string(again) != string(pwd) {
			return "", errPasswordMismatch
		}
	}
	return string(pwd), nil
}

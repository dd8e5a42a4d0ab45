package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/irsalhamdi/learnhub/core/claims"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	log     logrus.FieldLogger
	users   userStore
	migrate func() error
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate                               - apply all pending database migrations")
	fmt.Println("  adduser -email EMAIL -name NAME [-role instructor|student]")
	fmt.Println("                                        - create a user or reset its password and role")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's display name, used when creating.")
	addUserRole := addUserCmd.String("role", claims.RoleInstructor, "instructor or student")

	switch args[1] {
	case "migrate":
		if err := cli.migrate(); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		cli.log.Info("migrations applied")
		return nil

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserEmail == "" || !claims.ValidRole(*addUserRole) {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserEmail, *addUserName, *addUserRole, string(pwd))

	default:
		cli.printUsage()
		return errHelp
	}
}

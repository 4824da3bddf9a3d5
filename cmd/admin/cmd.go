package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/disha/internal/auth"
	"github.com/JonMunkholm/disha/internal/core"
	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	accounts core.AccountStore
	guard    *auth.Guard
	service  *core.Service
	out      io.Writer
}

func newCommandLine(accounts core.AccountStore, guard *auth.Guard, service *core.Service, out io.Writer) *commandLine {
	return &commandLine{accounts: accounts, guard: guard, service: service, out: out}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  bootstrap -username USERNAME                       - create the first admin account")
	fmt.Fprintln(cli.out, "  adduser -login ADMIN -username USERNAME [-role R]  - create an account (role user or admin)")
	fmt.Fprintln(cli.out, "  import -login ADMIN -file PATH [-format F]         - import students (csv, csv-legacy, xlsx)")
	fmt.Fprintln(cli.out, "  export -login USER [-out PATH] [-format F] [-district D] [-school S] [-search Q]")
	fmt.Fprintln(cli.out, "Passwords are prompted.")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "bootstrap":
		fs := cli.flagSet("bootstrap")
		username := fs.String("username", "", "Username of the first admin. The password will be prompted next.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *username == "" {
			fs.Usage()
			return errHelp
		}
		pwd, err := cli.prompt("Enter password:")
		if err != nil {
			return err
		}
		acct, err := auth.Bootstrap(ctx, cli.accounts, *username, pwd)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "created admin %s\n", acct.Username)
		return nil

	case "adduser":
		fs := cli.flagSet("adduser")
		login := fs.String("login", "", "Admin account to authenticate as.")
		username := fs.String("username", "", "Username of the new account.")
		role := fs.String("role", string(core.RoleUser), "Role of the new account: user or admin.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *login == "" || *username == "" {
			fs.Usage()
			return errHelp
		}
		if err := cli.login(ctx, *login); err != nil {
			return err
		}
		pwd, err := cli.prompt("Enter password for " + *username + ":")
		if err != nil {
			return err
		}
		acct, err := cli.guard.AddAccount(ctx, *username, pwd, core.Role(*role))
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "created %s %s\n", acct.Role, acct.Username)
		return nil

	case "import":
		fs := cli.flagSet("import")
		login := fs.String("login", "", "Admin account to authenticate as.")
		path := fs.String("file", "", "File to import.")
		format := fs.String("format", "", "csv, csv-legacy or xlsx. Defaults from the file extension.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *login == "" || *path == "" {
			fs.Usage()
			return errHelp
		}
		f, err := parseFormat(*format, *path)
		if err != nil {
			return err
		}
		if err := cli.login(ctx, *login); err != nil {
			return err
		}
		return cli.importFile(ctx, *path, f)

	case "export":
		fs := cli.flagSet("export")
		login := fs.String("login", "", "Account to authenticate as.")
		out := fs.String("out", "", "Output file. Defaults to stdout.")
		format := fs.String("format", "", "csv, csv-legacy or xlsx. Defaults from the output extension.")
		district := fs.String("district", "", "Only students in this district.")
		school := fs.String("school", "", "Only students in this school.")
		search := fs.String("search", "", "Only students whose name contains this text.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *login == "" {
			fs.Usage()
			return errHelp
		}
		f, err := parseFormat(*format, *out)
		if err != nil {
			return err
		}
		if err := cli.login(ctx, *login); err != nil {
			return err
		}
		criteria := core.FilterCriteria{District: *district, School: *school, SearchQuery: *search}
		return cli.export(ctx, *out, f, criteria)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// prompt reads a password without echo. An empty password is refused.
func (cli *commandLine) prompt(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) login(ctx context.Context, username string) error {
	pwd, err := cli.prompt("Password for " + username + ":")
	if err != nil {
		return err
	}
	_, err = cli.guard.Login(ctx, username, pwd)
	return err
}

// parseFormat resolves -format, falling back to the file extension.
func parseFormat(value, path string) (core.Format, error) {
	if value == "" && strings.EqualFold(filepath.Ext(path), ".xlsx") {
		value = string(core.FormatXLSX)
	}
	f, ok := core.ParseFormat(value)
	if !ok {
		return "", fmt.Errorf("unknown format %q: use csv, csv-legacy or xlsx", value)
	}
	return f, nil
}

// Command manage runs one-off database tasks against DATABASE_URL:
//
//	manage initdb                 create the schema
//	manage dropdb --yes           drop every table
//	manage populatedb             create the schema and load sample data
//	manage createuser --username  create an account, prompting for the password
package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/sakif/bucketlist/internal/auth"
	"github.com/sakif/bucketlist/internal/config"
	"github.com/sakif/bucketlist/internal/seed"
	"github.com/sakif/bucketlist/internal/service"
	"github.com/sakif/bucketlist/internal/storage"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := config.LoadDotEnv(); err != nil {
		logger.Error("failed to load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := newApp(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		logger.Error("manage failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newApp(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:      "manage",
		Usage:     "bucketlist database management",
		Reader:    in,
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database",
				Aliases:  []string{"d"},
				Usage:    "SQLite path or postgres:// URL",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
			&cli.IntFlag{
				Name:    "bcrypt-cost",
				Usage:   "bcrypt work factor for new passwords",
				EnvVars: []string{"BCRYPT_COST"},
				Value:   auth.DefaultCost,
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "initdb",
				Usage:  "create the database schema",
				Action: initDB,
			},
			{
				Name:  "dropdb",
				Usage: "drop every table, deleting all data",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "confirm the drop"},
				},
				Action: dropDB,
			},
			{
				Name:   "populatedb",
				Usage:  "create the schema and load sample users, bucketlists and items",
				Action: populateDB,
			},
			{
				Name:  "createuser",
				Usage: "create an account; the password is read from the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "first-name", Required: true},
					&cli.StringFlag{Name: "last-name", Required: true},
				},
				Action: createUser,
			},
		},
	}
}

func loggerFor(c *cli.Context) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: lvl}))
}

func initDB(c *cli.Context) error {
	logger := loggerFor(c)
	store, err := storage.Open(c.Context, c.String("database"), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintf(c.App.Writer, "Initialised the %s database\n", storage.Kind(c.String("database")))
	return nil
}

func dropDB(c *cli.Context) error {
	if !c.Bool("yes") {
		return errors.New("dropdb deletes all data; rerun with --yes to confirm")
	}

	logger := loggerFor(c)
	store, err := storage.Connect(c.Context, c.String("database"), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Reset(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Dropped the database")
	return nil
}

func populateDB(c *cli.Context) error {
	logger := loggerFor(c)
	store, err := storage.Open(c.Context, c.String("database"), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := services(c, store, logger)
	if err != nil {
		return err
	}

	sum, err := seed.Populate(c.Context, seed.Services{
		Auth:        svc.auth,
		Users:       svc.users,
		Bucketlists: svc.bucketlists,
		Items:       svc.items,
	}, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Created %d users, %d bucketlists and %d items (password %q)\n",
		sum.Users, sum.Bucketlists, sum.Items, seed.Password)
	return nil
}

func createUser(c *cli.Context) error {
	password, err := promptPassword(c.App.Reader, c.App.Writer)
	if err != nil {
		return err
	}

	logger := loggerFor(c)
	store, err := storage.Open(c.Context, c.String("database"), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := services(c, store, logger)
	if err != nil {
		return err
	}

	user, err := svc.auth.Register(c.Context, service.RegisterInput{
		FirstName: c.String("first-name"),
		LastName:  c.String("last-name"),
		Username:  c.String("username"),
		Email:     c.String("email"),
		Password:  password,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Created user %s with id %d\n", user.Username, user.ID)
	return nil
}

type manageServices struct {
	auth        *service.AuthService
	users       *service.UserService
	bucketlists *service.BucketlistService
	items       *service.ItemService
}

// services builds the service layer over store. No token is ever issued
// here, so the token service gets a throwaway secret.
func services(c *cli.Context, store storage.Backend, logger *slog.Logger) (*manageServices, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating secret: %w", err)
	}
	tokens, err := auth.NewTokenService(hex.EncodeToString(secret), time.Minute)
	if err != nil {
		return nil, err
	}
	passwords := auth.NewPasswordService(c.Int("bcrypt-cost"))
	repos := store.Repositories()

	return &manageServices{
		auth:        service.NewAuthService(repos.Users, tokens, passwords, logger),
		users:       service.NewUserService(repos.Users, repos.Bucketlists, passwords, logger),
		bucketlists: service.NewBucketlistService(repos.Bucketlists, logger),
		items:       service.NewItemService(repos.Items, repos.Bucketlists, logger),
	}, nil
}

// promptPassword reads the password twice without echo. When stdin is not a
// terminal it reads a single line instead, so scripts can pipe it in.
func promptPassword(in io.Reader, out io.Writer) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !isTerminal(int(f.Fd())) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fd := int(f.Fd())
	fmt.Fprint(out, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(out, "Repeat password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}


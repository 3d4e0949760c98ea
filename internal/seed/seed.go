// Package seed fills an empty database with sample accounts, bucketlists
// and items. Everything goes through the service layer, so seeded data
// obeys the same validation and hashing as data created over HTTP.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/service"
)

// Password is the password of every sample account.
const Password = "password"

// ErrAlreadySeeded is returned when a sample account already exists.
var ErrAlreadySeeded = errors.New("seed: database already holds sample data")

type sampleItem struct {
	name        string
	description string
}

type sampleUser struct {
	account    service.RegisterInput
	bucketlist string
	items      []sampleItem
}

var samples = []sampleUser{
	{
		account: service.RegisterInput{
			FirstName: "Eugene",
			LastName:  "Liyai",
			Username:  "liyai",
			Email:     "liyai@mail.com",
			Password:  Password,
		},
		bucketlist: "Liyai_list",
		items: []sampleItem{
			{"Sky diving", "Sign up for lake Naivasha sky diving on 23rd of May"},
			{"Water rafting", "Sign up for white water rafting at Sagana next week"},
			{"Give back to society", "Visit the children's home and help out where possible"},
		},
	},
	{
		account: service.RegisterInput{
			FirstName: "Mark",
			LastName:  "Maasai",
			Username:  "maasai",
			Email:     "maasai@mail.com",
			Password:  Password,
		},
		bucketlist: "Maasai_list",
		items: []sampleItem{
			{"Bungee jumping", "Find a place that offers this"},
			{"A kiss under the Eiffel tower", "Go to Paris on our anniversary"},
			{"Sing in a karaoke bar", "Sky lounge has karaoke night every Wednesday"},
		},
	},
}

// Services are the service-layer entry points Populate needs.
type Services struct {
	Auth        *service.AuthService
	Users       *service.UserService
	Bucketlists *service.BucketlistService
	Items       *service.ItemService
}

// Summary counts what Populate created.
type Summary struct {
	Users       int
	Bucketlists int
	Items       int
}

// Populate creates the sample data. If any sample username or email is
// already taken it returns ErrAlreadySeeded before writing anything.
// Otherwise it stops at the first failure.
func Populate(ctx context.Context, svc Services, logger *slog.Logger) (Summary, error) {
	var sum Summary

	if err := checkUnseeded(ctx, svc.Users); err != nil {
		return sum, err
	}

	for _, s := range samples {
		user, err := svc.Auth.Register(ctx, s.account)
		if err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				return sum, fmt.Errorf("%w: %s", ErrAlreadySeeded, s.account.Username)
			}
			return sum, fmt.Errorf("seed: creating user %s: %w", s.account.Username, err)
		}
		sum.Users++

		list, err := svc.Bucketlists.Create(ctx, user.ID, s.bucketlist)
		if err != nil {
			return sum, fmt.Errorf("seed: creating bucketlist %s: %w", s.bucketlist, err)
		}
		sum.Bucketlists++

		for _, it := range s.items {
			_, err := svc.Items.Create(ctx, user.ID, list.ID, service.CreateItemInput{
				Name:        it.name,
				Description: it.description,
			})
			if err != nil {
				return sum, fmt.Errorf("seed: creating item %q: %w", it.name, err)
			}
			sum.Items++
		}

		logger.Info("sample user created",
			slog.String("username", user.Username),
			slog.Int("items", len(s.items)),
		)
	}

	return sum, nil
}

func checkUnseeded(ctx context.Context, users *service.UserService) error {
	existing, err := users.List(ctx)
	if err != nil {
		return fmt.Errorf("seed: listing users: %w", err)
	}
	for _, u := range existing {
		for _, s := range samples {
			if strings.EqualFold(u.Username, s.account.Username) || strings.EqualFold(u.Email, s.account.Email) {
				return fmt.Errorf("%w: %s", ErrAlreadySeeded, s.account.Username)
			}
		}
	}
	return nil
}

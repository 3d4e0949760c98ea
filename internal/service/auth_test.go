package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/auth"
)

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	ts := newTestServices(t)

	u, err := ts.auth.Register(context.Background(), RegisterInput{
		FirstName: "  Liyai ",
		LastName:  "Moraa",
		Username:  " Liyai",
		Email:     "Liyai@Example.COM",
		Password:  "password",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.ID == 0 {
		t.Error("Register() did not assign an ID")
	}
	if u.FirstName != "Liyai" {
		t.Errorf("FirstName = %q, want trimmed %q", u.FirstName, "Liyai")
	}
	if u.Username != "liyai" {
		t.Errorf("Username = %q, want lowercased %q", u.Username, "liyai")
	}
	if u.Email != "liyai@example.com" {
		t.Errorf("Email = %q, want lowercased", u.Email)
	}
	if u.PasswordHash == "" || u.PasswordHash == "password" {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", u.PasswordHash)
	}
}

func TestRegister_Validation(t *testing.T) {
	valid := RegisterInput{
		FirstName: "Liyai",
		LastName:  "Moraa",
		Username:  "liyai",
		Email:     "liyai@example.com",
		Password:  "password",
	}

	tests := []struct {
		name      string
		mutate    func(in *RegisterInput)
		wantField string
	}{
		{"missing first name", func(in *RegisterInput) { in.FirstName = "  " }, "first_name"},
		{"missing last name", func(in *RegisterInput) { in.LastName = "" }, "last_name"},
		{"long first name", func(in *RegisterInput) { in.FirstName = strings.Repeat("a", MaxNameLength+1) }, "first_name"},
		{"missing username", func(in *RegisterInput) { in.Username = "" }, "username"},
		{"username with @", func(in *RegisterInput) { in.Username = "li@yai" }, "username"},
		{"username with space", func(in *RegisterInput) { in.Username = "li yai" }, "username"},
		{"missing email", func(in *RegisterInput) { in.Email = "" }, "email"},
		{"email without @", func(in *RegisterInput) { in.Email = "liyai.example.com" }, "email"},
		{"email with display name", func(in *RegisterInput) { in.Email = "Liyai <liyai@example.com>" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password = "abc" }, "password"},
		{"password over 72 bytes", func(in *RegisterInput) { in.Password = strings.Repeat("p", 73) }, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServices(t)
			in := valid
			tt.mutate(&in)

			_, err := ts.auth.Register(context.Background(), in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Register() error = %v, want ErrValidation", err)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
			if len(ts.store.users) != 0 {
				t.Error("invalid registration stored a user")
			}
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	ts := newTestServices(t)
	ts.register(t, "liyai")

	_, err := ts.auth.Register(context.Background(), RegisterInput{
		FirstName: "Other",
		LastName:  "Person",
		Username:  "liyai",
		Email:     "other@example.com",
		Password:  "password",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Register() error = %v, want ErrConflict", err)
	}
	if len(ts.store.users) != 1 {
		t.Errorf("stored users = %d, want 1", len(ts.store.users))
	}
}

func TestRegister_DuplicateIgnoresCase(t *testing.T) {
	ts := newTestServices(t)
	ts.register(t, "liyai")

	_, err := ts.auth.Register(context.Background(), RegisterInput{
		FirstName: "Other",
		LastName:  "Person",
		Username:  "LiYai",
		Email:     "other@example.com",
		Password:  "password",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Register() error = %v, want ErrConflict", err)
	}
	if len(ts.store.users) != 1 {
		t.Errorf("stored users = %d, want 1", len(ts.store.users))
	}
}

func TestRegister_RepoError(t *testing.T) {
	ts := newTestServices(t)
	ts.store.failWith = errDBDown

	_, err := ts.auth.Register(context.Background(), RegisterInput{
		FirstName: "Liyai", LastName: "Moraa", Username: "liyai",
		Email: "liyai@example.com", Password: "password",
	})
	if !errors.Is(err, errDBDown) {
		t.Fatalf("Register() error = %v, want wrapped errDBDown", err)
	}
}

// =========================================================================
// Authenticate / Login TESTS
// =========================================================================

func TestAuthenticate(t *testing.T) {
	ts := newTestServices(t)
	want := ts.register(t, "liyai")

	tests := []struct {
		name       string
		identifier string
		password   string
		wantOK     bool
	}{
		{"by username", "liyai", "password", true},
		{"by username any case", "LiYai", "password", true},
		{"by email", "liyai@example.com", "password", true},
		{"by email any case", "LIYAI@example.com", "password", true},
		{"wrong password", "liyai", "wrong-password", false},
		{"unknown user", "nobody", "password", false},
		{"unknown email", "nobody@example.com", "password", false},
		{"empty identifier", "", "password", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, ok, err := ts.auth.Authenticate(context.Background(), tt.identifier, tt.password)
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Authenticate() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && u.ID != want.ID {
				t.Errorf("Authenticate() user = %d, want %d", u.ID, want.ID)
			}
			if !ok && u != nil {
				t.Error("Authenticate() returned a user on failure")
			}
		})
	}
}

func TestAuthenticate_RepoError(t *testing.T) {
	ts := newTestServices(t)
	ts.register(t, "liyai")
	ts.store.failWith = errDBDown

	_, ok, err := ts.auth.Authenticate(context.Background(), "liyai", "password")
	if ok || !errors.Is(err, errDBDown) {
		t.Fatalf("Authenticate() = %v, %v; want false, errDBDown", ok, err)
	}
}

func TestLogin_IssuesValidToken(t *testing.T) {
	ts := newTestServices(t)
	u := ts.register(t, "liyai")

	res, err := ts.auth.Login(context.Background(), "liyai", "password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.User.ID != u.ID {
		t.Errorf("Login() user = %d, want %d", res.User.ID, u.ID)
	}
	if res.Token == nil || res.Token.Token == "" {
		t.Fatal("Login() returned no token")
	}

	claims, err := ts.auth.ValidateToken(res.Token.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != u.ID {
		t.Errorf("claims.UserID = %d, want %d", claims.UserID, u.ID)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	ts := newTestServices(t)
	ts.register(t, "liyai")

	_, errWrongPass := ts.auth.Login(context.Background(), "liyai", "nope-nope")
	_, errNoUser := ts.auth.Login(context.Background(), "ghost", "password")

	for _, err := range []error{errWrongPass, errNoUser} {
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrUnauthorized) {
			t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
		}
		if appErr.Code != "invalid_credentials" {
			t.Errorf("Code = %q, want invalid_credentials", appErr.Code)
		}
	}
	if errWrongPass.Error() != errNoUser.Error() {
		t.Errorf("messages differ: %q vs %q", errWrongPass, errNoUser)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	ts := newTestServices(t)

	_, err := ts.auth.ValidateToken("not-a-jwt")
	if !errors.Is(err, auth.ErrTokenInvalid) {
		t.Fatalf("ValidateToken() error = %v, want ErrTokenInvalid", err)
	}
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/auth"
	"github.com/sakif/bucketlist/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// =========================================================================
// FAKES
// =========================================================================

// fakeStore is an in-memory stand-in for one database. The three fake
// repositories share it so cascade deletes and ownership lookups behave
// like the real stores.
type fakeStore struct {
	users       map[int64]*model.User
	bucketlists map[int64]*model.Bucketlist
	items       map[int64]*model.Item
	nextID      int64

	// set to a non-nil error to simulate a database failure
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[int64]*model.User),
		bucketlists: make(map[int64]*model.Bucketlist),
		items:       make(map[int64]*model.Item),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

type fakeUserRepo struct{ s *fakeStore }

func (r fakeUserRepo) Create(_ context.Context, u *model.User) error {
	if r.s.failWith != nil {
		return r.s.failWith
	}
	if err := r.unique(u); err != nil {
		return err
	}
	u.ID = r.s.id()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	copied := *u
	r.s.users[u.ID] = &copied
	return nil
}

func (r fakeUserRepo) unique(u *model.User) error {
	for _, other := range r.s.users {
		if other.ID == u.ID {
			continue
		}
		if other.Username == u.Username {
			return apperror.Conflict("user", "username")
		}
		if other.Email == u.Email {
			return apperror.Conflict("user", "email")
		}
	}
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	copied := *u
	return &copied, nil
}

func (r fakeUserRepo) find(match func(*model.User) bool, key string) (*model.User, error) {
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	for _, u := range r.s.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (r fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Username == username }, username)
}

func (r fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email }, email)
}

func (r fakeUserRepo) List(_ context.Context) ([]model.User, error) {
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	out := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r fakeUserRepo) Update(_ context.Context, u *model.User) error {
	if r.s.failWith != nil {
		return r.s.failWith
	}
	if _, ok := r.s.users[u.ID]; !ok {
		return apperror.NotFound("user", strconv.FormatInt(u.ID, 10))
	}
	if err := r.unique(u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now()
	copied := *u
	copied.Bucketlists = nil
	r.s.users[u.ID] = &copied
	return nil
}

func (r fakeUserRepo) Delete(_ context.Context, id int64) error {
	if r.s.failWith != nil {
		return r.s.failWith
	}
	if _, ok := r.s.users[id]; !ok {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	delete(r.s.users, id)
	for bid, b := range r.s.bucketlists {
		if b.OwnerID == id {
			fakeBucketlistRepo(r).Delete(context.Background(), bid)
		}
	}
	return nil
}

type fakeBucketlistRepo struct{ s *fakeStore }

func (r fakeBucketlistRepo) Create(_ context.Context, b *model.Bucketlist) error {
	if r.s.failWith != nil {
		return r.s.failWith
	}
	if _, ok := r.s.users[b.OwnerID]; !ok {
		return apperror.NotFound("user", strconv.FormatInt(b.OwnerID, 10))
	}
	b.ID = r.s.id()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	copied := *b
	copied.Items = nil
	r.s.bucketlists[b.ID] = &copied
	return nil
}

func (r fakeBucketlistRepo) withItems(b model.Bucketlist) model.Bucketlist {
	b.Items = []model.Item{}
	for _, it := range sortedItems(r.s) {
		if it.BucketlistID == b.ID {
			b.Items = append(b.Items, it)
		}
	}
	return b
}

func (r fakeBucketlistRepo) GetByID(_ context.Context, id int64) (*model.Bucketlist, error) {
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	b, ok := r.s.bucketlists[id]
	if !ok {
		return nil, apperror.NotFound("bucketlist", strconv.FormatInt(id, 10))
	}
	out := r.withItems(*b)
	return &out, nil
}

func (r fakeBucketlistRepo) filter(match func(*model.Bucketlist) bool) ([]model.Bucketlist, error) {
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	out := []model.Bucketlist{}
	for _, b := range r.s.bucketlists {
		if match(b) {
			out = append(out, r.withItems(*b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeBucketlistRepo) ListByOwner(_ context.Context, ownerID int64) ([]model.Bucketlist, error) {
	return r.filter(func(b *model.Bucketlist) bool { return b.OwnerID == ownerID })
}

func (r fakeBucketlistRepo) Search(_ context.Context, ownerID int64, query string) ([]model.Bucketlist, error) {
	q := strings.ToLower(query)
	return r.filter(func(b *model.Bucketlist) bool {
		return b.OwnerID == ownerID && strings.Contains(strings.ToLower(b.Name), q)
	})
}

func (r fakeBucketlistRepo) Update(_ context.Context, b *model.Bucketlist) error {
	if r.s.failWith != nil {
		return r.s.failWith
	}
	stored, ok := r.s.bucketlists[b.ID]
	if !ok {
		return apperror.NotFound("bucketlist", strconv.FormatInt(b.ID, 10))
	}
	stored.Name = b.Name
	stored.UpdatedAt = time.Now()
	b.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r fakeBucketlistRepo) Delete(_ context.Context, id int64) error {
	if r.s.failWith != nil {
		return r.s.failWith
	}
	if _, ok := r.s.bucketlists[id]; !ok {
		return apperror.NotFound("bucketlist", strconv.FormatInt(id, 10))
	}
	delete(r.s.bucketlists, id)
	for iid, it := range r.s.items {
		if it.BucketlistID == id {
			delete(r.s.items, iid)
		}
	}
	return nil
}

type fakeItemRepo struct{ s *fakeStore }

func sortedItems(s *fakeStore) []model.Item {
	out := make([]model.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r fakeItemRepo) Create(_ context.Context, it *model.Item) error {
	if r.s.failWith != nil {
		return r.s.failWith
	}
	if _, ok := r.s.bucketlists[it.BucketlistID]; !ok {
		return apperror.NotFound("bucketlist", strconv.FormatInt(it.BucketlistID, 10))
	}
	it.ID = r.s.id()
	it.CreatedAt = time.Now()
	it.UpdatedAt = it.CreatedAt
	copied := *it
	r.s.items[it.ID] = &copied
	return nil
}

func (r fakeItemRepo) GetByID(_ context.Context, id int64) (*model.Item, error) {
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	it, ok := r.s.items[id]
	if !ok {
		return nil, apperror.NotFound("item", strconv.FormatInt(id, 10))
	}
	copied := *it
	return &copied, nil
}

func (r fakeItemRepo) ListByBucketlist(_ context.Context, bucketlistID int64) ([]model.Item, error) {
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	out := []model.Item{}
	for _, it := range sortedItems(r.s) {
		if it.BucketlistID == bucketlistID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r fakeItemRepo) ListByOwner(_ context.Context, ownerID int64) ([]model.Item, error) {
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	out := []model.Item{}
	for _, it := range sortedItems(r.s) {
		if b, ok := r.s.bucketlists[it.BucketlistID]; ok && b.OwnerID == ownerID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r fakeItemRepo) Update(_ context.Context, it *model.Item) error {
	if r.s.failWith != nil {
		return r.s.failWith
	}
	if _, ok := r.s.items[it.ID]; !ok {
		return apperror.NotFound("item", strconv.FormatInt(it.ID, 10))
	}
	it.UpdatedAt = time.Now()
	copied := *it
	r.s.items[it.ID] = &copied
	return nil
}

func (r fakeItemRepo) Delete(_ context.Context, id int64) error {
	if r.s.failWith != nil {
		return r.s.failWith
	}
	if _, ok := r.s.items[id]; !ok {
		return apperror.NotFound("item", strconv.FormatInt(id, 10))
	}
	delete(r.s.items, id)
	return nil
}

// =========================================================================
// HELPERS
// =========================================================================

var errDBDown = errors.New("database is down")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testServices bundles every service over one fake store.
type testServices struct {
	store       *fakeStore
	auth        *AuthService
	users       *UserService
	bucketlists *BucketlistService
	items       *ItemService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	// bcrypt minimum cost keeps the tests fast
	ps := auth.NewPasswordService(bcrypt.MinCost)

	store := newFakeStore()
	users := fakeUserRepo{store}
	lists := fakeBucketlistRepo{store}
	items := fakeItemRepo{store}
	logger := testLogger()

	return &testServices{
		store:       store,
		auth:        NewAuthService(users, ts, ps, logger),
		users:       NewUserService(users, lists, ps, logger),
		bucketlists: NewBucketlistService(lists, logger),
		items:       NewItemService(items, lists, logger),
	}
}

// register creates an account with password "password".
func (ts *testServices) register(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := ts.auth.Register(context.Background(), RegisterInput{
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		LastName:  "Tester",
		Username:  username,
		Email:     username + "@example.com",
		Password:  "password",
	})
	if err != nil {
		t.Fatalf("Register(%q): %v", username, err)
	}
	return u
}

func (ts *testServices) bucketlist(t *testing.T, ownerID int64, name string) *model.Bucketlist {
	t.Helper()
	b, err := ts.bucketlists.Create(context.Background(), ownerID, name)
	if err != nil {
		t.Fatalf("Create bucketlist %q: %v", name, err)
	}
	return b
}

func ptr[T any](v T) *T { return &v }

package users

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/operate360/operate360/internal/auth"
	"github.com/operate360/operate360/internal/shared"
)

const adminRole int64 = 1

var errStoreDown = errors.New("connection reset by peer")

type storedUser struct {
	User
	hash string
}

type stubRepo struct {
	mu    sync.Mutex
	users map[int64]*storedUser
	err   error
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: make(map[int64]*storedUser)}
}

func (s *stubRepo) add(id int64, username, email string, roleID int64, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.users[id] = &storedUser{
		User: User{ID: id, Username: username, Email: email, RoleID: roleID, CreatedAt: now, UpdatedAt: now},
		hash: hash,
	}
}

func (s *stubRepo) hashOf(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id].hash
}

func (s *stubRepo) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) GetUser(ctx context.Context, id int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := u.User
	return &copied, nil
}

func (s *stubRepo) UpdateProfile(ctx context.Context, id int64, in ProfileUpdate) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	for otherID, other := range s.users {
		if otherID != id && other.Email == in.Email {
			return nil, shared.ErrConflict
		}
	}
	u.Username, u.Email, u.RoleID = in.Username, in.Email, in.RoleID
	u.UpdatedAt = time.Now().UTC()
	copied := u.User
	return &copied, nil
}

func (s *stubRepo) ReplacePassword(ctx context.Context, id int64, fn func(string) (string, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	next, err := fn(u.hash)
	if err != nil {
		return err
	}
	u.hash = next
	return nil
}

func (s *stubRepo) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type fixture struct {
	repo    *stubRepo
	hasher  *auth.BcryptHasher
	service *Service
}

func newFixture(t interface{ Fatalf(string, ...any) }) *fixture {
	f := &fixture{repo: newStubRepo(), hasher: auth.NewBcryptHasher(bcrypt.MinCost)}
	for _, u := range []struct {
		id       int64
		name     string
		email    string
		role     int64
		password string
	}{
		{1, "root", "root@operate360.io", adminRole, "rootpw"},
		{2, "alice", "alice@x.io", 2, "alicepw"},
		{3, "bob", "bob@x.io", 2, "bobpw"},
	} {
		hash, err := f.hasher.Hash(u.password)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		f.repo.add(u.id, u.name, u.email, u.role, hash)
	}
	f.service = NewService(f.repo, f.hasher, adminRole)
	return f
}

var (
	rootActor  = shared.Principal{UserID: 1, Username: "root", RoleID: adminRole}
	aliceActor = shared.Principal{UserID: 2, Username: "alice", RoleID: 2}
)

package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/operate360/operate360/internal/shared"
)

var errStoreDown = errors.New("connection refused")

type stubRepo struct {
	mu     sync.Mutex
	byID   map[int64]*Credential
	nextID int64

	findErr   error
	createErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: make(map[int64]*Credential), nextID: 1}
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, c := range s.byID {
		if c.Email == email {
			copied := *c
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	c, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *stubRepo) Create(ctx context.Context, in NewCredential) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	for _, c := range s.byID {
		if c.Email == in.Email {
			return nil, shared.ErrConflict
		}
	}
	now := time.Now().UTC()
	c := &Credential{
		UserID:       s.nextID,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		RoleID:       in.RoleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[c.UserID] = c
	s.nextID++
	copied := *c
	return &copied, nil
}

type failingHasher struct{ PasswordHasher }

func (failingHasher) Hash(string) (string, error) { return "", errors.New("entropy exhausted") }

type failingRegistry struct{}

func (failingRegistry) Revoke(context.Context, string, time.Time) error { return errStoreDown }
func (failingRegistry) IsRevoked(context.Context, string) (bool, error) { return false, errStoreDown }

type recordedEvent struct{ event, outcome string }

type eventLog struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (l *eventLog) RecordAuthEvent(event, outcome string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recordedEvent{event, outcome})
}

func (l *eventLog) has(event, outcome string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.event == event && e.outcome == outcome {
			return true
		}
	}
	return false
}

const testSecret = "test-secret-with-enough-entropy-0123456789"

type fixture struct {
	repo        *stubRepo
	hasher      *BcryptHasher
	codec       *TokenCodec
	revocations *MemoryRegistry
	service     *Service
}

func newFixture(t interface{ Fatalf(string, ...any) }, opts ...CodecOption) *fixture {
	codec, err := NewTokenCodec(testSecret, opts...)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	f := &fixture{
		repo:        newStubRepo(),
		hasher:      NewBcryptHasher(bcrypt.MinCost),
		codec:       codec,
		revocations: NewMemoryRegistry(),
	}
	f.service = NewService(f.repo, f.hasher, f.codec, f.revocations)
	return f
}

func (f *fixture) seed(t interface{ Fatalf(string, ...any) }, username, email, password string, roleID int64) *Credential {
	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cred, err := f.repo.Create(context.Background(), NewCredential{Username: username, Email: email, PasswordHash: hash, RoleID: roleID})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return cred
}

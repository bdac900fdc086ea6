package handlers

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jamesash096/NATours/internal/apperror"
	"github.com/jamesash096/NATours/internal/models"
)

// fakeUserStore is an in-memory UserStore for handler tests.
type fakeUserStore struct {
	users map[primitive.ObjectID]*models.User

	deactivated     []primitive.ObjectID
	resetSetCalls   int
	resetClearCalls int
	profileUpdates  []bson.M
}

func newFakeUserStore(seed ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: map[primitive.ObjectID]*models.User{}}
	for _, u := range seed {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		s.users[u.ID] = u
	}
	return s
}

// swapUserStore installs the fake for the duration of a test.
func swapUserStore(fake *fakeUserStore) func() {
	prev := users
	users = fake
	return func() { users = prev }
}

func (s *fakeUserStore) Create(_ context.Context, user *models.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return apperror.Conflict("A user with this email already exists")
		}
	}
	user.ID = primitive.NewObjectID()
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) UserByID(_ context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	u := s.users[oid]
	if u == nil || !u.IsActive() {
		return nil, nil
	}
	return u, nil
}

func (s *fakeUserStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email && u.IsActive() {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) UserByResetToken(_ context.Context, hashedToken string) (*models.User, error) {
	for _, u := range s.users {
		if u.PasswordResetToken == hashedToken && u.PasswordResetExpires.After(time.Now()) && u.IsActive() {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) SetResetToken(_ context.Context, id primitive.ObjectID, hashedToken string, expires time.Time) error {
	s.resetSetCalls++
	if u := s.users[id]; u != nil {
		u.PasswordResetToken = hashedToken
		u.PasswordResetExpires = expires
	}
	return nil
}

func (s *fakeUserStore) ClearResetToken(_ context.Context, id primitive.ObjectID) error {
	s.resetClearCalls++
	if u := s.users[id]; u != nil {
		u.PasswordResetToken = ""
		u.PasswordResetExpires = time.Time{}
	}
	return nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id primitive.ObjectID, hashedPassword string, changedAt time.Time) error {
	u := s.users[id]
	if u == nil {
		return apperror.NotFound("No user found with that ID")
	}
	u.Password = hashedPassword
	u.PasswordChangedAt = changedAt
	u.PasswordResetToken = ""
	u.PasswordResetExpires = time.Time{}
	return nil
}

func (s *fakeUserStore) UpdateProfile(_ context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error) {
	u := s.users[id]
	if u == nil {
		return nil, apperror.NotFound("No user found with that ID")
	}
	s.profileUpdates = append(s.profileUpdates, fields)
	if v, ok := fields["name"].(string); ok {
		u.Name = v
	}
	if v, ok := fields["email"].(string); ok {
		u.Email = v
	}
	if v, ok := fields["photo"].(string); ok {
		u.Photo = v
	}
	if v, ok := fields["role"].(string); ok {
		u.Role = models.Role(v)
	}
	return u, nil
}

func (s *fakeUserStore) Deactivate(_ context.Context, id primitive.ObjectID) error {
	s.deactivated = append(s.deactivated, id)
	if u := s.users[id]; u != nil {
		inactive := false
		u.Active = &inactive
	}
	return nil
}

// fakeMailSender records sends and can be told to fail.
type fakeMailSender struct {
	fail       bool
	welcomes   []string
	resetURLs  []string
	resetAddrs []string
}

func (m *fakeMailSender) SendWelcome(_ context.Context, to, _, _ string) error {
	if m.fail {
		return context.DeadlineExceeded
	}
	m.welcomes = append(m.welcomes, to)
	return nil
}

func (m *fakeMailSender) SendPasswordReset(_ context.Context, to, _, resetURL string) error {
	if m.fail {
		return context.DeadlineExceeded
	}
	m.resetAddrs = append(m.resetAddrs, to)
	m.resetURLs = append(m.resetURLs, resetURL)
	return nil
}

package user

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"authapp/internal/auth/models"
	id "authapp/pkg/domain"
	"authapp/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = New()
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func newUser(email string) *models.User {
	return &models.User{
		ID:           id.NewUserID(),
		Email:        email,
		PasswordHash: "$2a$10$hash",
		CreatedAt:    time.Now(),
	}
}

func (s *InMemoryUserStoreSuite) TestLookupBehavior() {
	ctx := context.Background()

	s.Run("returns user by ID and by email", func() {
		store := New()
		u := newUser("jane.doe@example.com")
		s.Require().NoError(store.CreateIfEmailAvailable(ctx, u))

		byID, err := store.FindByID(ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(u, byID)

		byEmail, err := store.FindByEmail(ctx, u.Email)
		s.Require().NoError(err)
		s.Equal(u, byEmail)
	})

	s.Run("email lookup is case-sensitive", func() {
		store := New()
		s.Require().NoError(store.CreateIfEmailAvailable(ctx, newUser("Case@example.com")))

		_, err := store.FindByEmail(ctx, "case@example.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns ErrNotFound for unknown records", func() {
		_, err := s.store.FindByID(ctx, id.NewUserID())
		s.ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByEmail(ctx, "missing@example.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned users are copies", func() {
		store := New()
		u := newUser("copy@example.com")
		s.Require().NoError(store.CreateIfEmailAvailable(ctx, u))

		found, err := store.FindByEmail(ctx, u.Email)
		s.Require().NoError(err)
		found.PasswordHash = "tampered"

		again, err := store.FindByEmail(ctx, u.Email)
		s.Require().NoError(err)
		s.Equal("$2a$10$hash", again.PasswordHash)
	})
}

func (s *InMemoryUserStoreSuite) TestEmailUniqueness() {
	ctx := context.Background()

	s.Run("second create with same email conflicts and stores nothing", func() {
		store := New()
		s.Require().NoError(store.CreateIfEmailAvailable(ctx, newUser("a@example.com")))

		err := store.CreateIfEmailAvailable(ctx, newUser("a@example.com"))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)

		n, err := store.Count(ctx)
		s.Require().NoError(err)
		s.Equal(1, n)
	})

	s.Run("concurrent creates with same email yield exactly one success", func() {
		store := New()
		const goroutines = 50

		var (
			wg        sync.WaitGroup
			successes atomic.Int32
			conflicts atomic.Int32
		)
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.CreateIfEmailAvailable(ctx, newUser("race@example.com"))
				if err == nil {
					successes.Add(1)
				} else if errors.Is(err, sentinel.ErrAlreadyUsed) {
					conflicts.Add(1)
				}
			}()
		}
		wg.Wait()

		s.Equal(int32(1), successes.Load())
		s.Equal(int32(goroutines-1), conflicts.Load())
		n, err := store.Count(ctx)
		s.Require().NoError(err)
		s.Equal(1, n)
	})
}

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	user := &models.User{Email: "taken@example.com", ToneProfile: models.DefaultToneProfile()}
	err := repo.Create(context.Background(), user)
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}
	if user.ID == uuid.Nil {
		t.Error("Expected Create to assign an ID")
	}
}

func TestUserRepository_UpdateToneProfile_RejectsNegative(t *testing.T) {
	t.Parallel()

	db, _ := newMockDB(t)
	repo := NewUserRepository(db)

	err := repo.UpdateToneProfile(context.Background(), uuid.New(), models.ToneProfile{Formal: -5})
	if err == nil {
		t.Error("Expected negative weights to be rejected before touching the database")
	}
}

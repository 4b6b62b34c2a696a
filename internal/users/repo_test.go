package users

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func newRepo(t *testing.T) *Repository {
	t.Helper()
	repo := NewRepository(openTestDB(t))
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func TestCreateAndFind(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	email := gofakeit.Email()

	created, err := repo.Create(ctx, CreateUserDTO{Name: " Ana ", Email: "  " + email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Role != enums.RoleCustomer || created.Name != "Ana" {
		t.Fatalf("unexpected defaults %+v", created)
	}

	byEmail, err := repo.FindByEmail(ctx, email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("expected %s, got %s", created.ID, byEmail.ID)
	}

	byID, err := repo.FindByID(ctx, created.ID)
	if err != nil || byID.Email != NormalizeEmail(email) {
		t.Fatalf("find by id: %+v %v", byID, err)
	}

	wire := FromModel(byID)
	if wire.ID != created.ID.String() || wire.Email != byID.Email {
		t.Fatalf("unexpected wire user %+v", wire)
	}
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	if _, err := repo.Create(ctx, CreateUserDTO{Name: "Ana", Email: "ana@example.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := repo.Create(ctx, CreateUserDTO{Name: "Ana 2", Email: "ANA@example.com", PasswordHash: "h"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestFindMissingUser(t *testing.T) {
	repo := newRepo(t)
	if _, err := repo.FindByID(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateLastLogin(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	user, err := repo.Create(ctx, CreateUserDTO{Name: "Bia", Email: gofakeit.Email(), PasswordHash: "h"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.UpdateLastLogin(ctx, user.ID, at); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, _ := repo.FindByID(ctx, user.ID)
	if reloaded.LastLoginAt == nil || !reloaded.LastLoginAt.Equal(at) {
		t.Fatalf("expected last login %v, got %v", at, reloaded.LastLoginAt)
	}
}

package user

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/careerprep-backend/internal/data/repos/testutil"
	"github.com/yungbote/careerprep-backend/internal/domain"
)

func TestUserRepoUpsertBySubject(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()
	subject := "uid-" + uuid.NewString()

	first, created, err := repo.UpsertBySubject(ctx, tx, &domain.User{Subject: subject, Email: "a@example.com"})
	if err != nil {
		t.Fatalf("UpsertBySubject: %v", err)
	}
	if !created || first.ID == uuid.Nil {
		t.Fatalf("UpsertBySubject: expected a new user, got created=%v id=%s", created, first.ID)
	}

	second, created, err := repo.UpsertBySubject(ctx, tx, &domain.User{Subject: subject, Email: "b@example.com"})
	if err != nil {
		t.Fatalf("UpsertBySubject (again): %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("UpsertBySubject (again): expected same user, got created=%v id=%s", created, second.ID)
	}
	if second.Email != "b@example.com" {
		t.Fatalf("UpsertBySubject (again): email not refreshed: %q", second.Email)
	}

	if _, _, err := repo.UpsertBySubject(ctx, tx, &domain.User{}); err == nil {
		t.Fatalf("UpsertBySubject: expected error for blank subject")
	}
}

func TestUserRepoUpdateProfile(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()
	u := testutil.SeedUser(t, ctx, tx, "uid-"+uuid.NewString())

	linkedIn := " https://linkedin.com/in/jane "
	got, err := repo.UpdateProfile(ctx, tx, u.ID, domain.UserProfileUpdate{LinkedInProfile: &linkedIn})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.LinkedInProfile != "https://linkedin.com/in/jane" || got.FirstName != "A" {
		t.Fatalf("UpdateProfile: unexpected user: %+v", got)
	}

	gotByIDs, err := repo.GetByIDs(ctx, tx, []uuid.UUID{u.ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(gotByIDs) != 1 || gotByIDs[0].LinkedInProfile != got.LinkedInProfile {
		t.Fatalf("GetByIDs: unexpected result: %+v", gotByIDs)
	}

	_, err = repo.UpdateProfile(ctx, tx, uuid.New(), domain.UserProfileUpdate{LinkedInProfile: &linkedIn})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("UpdateProfile (missing): expected not found, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(errors.New("UNIQUE constraint failed: users.subject")) {
		t.Fatalf("expected sqlite message to match")
	}
	if isUniqueViolation(errors.New("boom")) || isUniqueViolation(nil) {
		t.Fatalf("unexpected match")
	}
}

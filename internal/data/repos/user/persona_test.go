package user

import (
	"context"
	"testing"

	"github.com/govairn/govairn-backend/internal/data/repos/testutil"
	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/platform/dbctx"
)

func TestPersonaRepoSingleActive(t *testing.T) {
	db := testutil.DB(t)
	repo := NewPersonaRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())
	u := testutil.SeedUser(t, db)

	if p, err := repo.GetActive(dbc, u.ID); err != nil || p != nil {
		t.Fatalf("GetActive on empty: p=%v err=%v", p, err)
	}
	first := testutil.SeedPersona(t, db, u.ID, types.PersonaValues{Risk: 20}, true)

	dup := &types.Persona{UserID: u.ID, Name: "second", IsActive: true}
	if err := repo.Create(dbc, dup); err == nil {
		t.Fatalf("a second active persona must violate the partial unique index")
	}

	second := &types.Persona{UserID: u.ID, Name: "second"}
	if err := repo.Create(dbc, second); err != nil {
		t.Fatalf("Create inactive: %v", err)
	}
	if err := repo.DeactivateAll(dbc, u.ID); err != nil {
		t.Fatalf("DeactivateAll: %v", err)
	}
	if err := repo.Activate(dbc, second.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	active, err := repo.GetActive(dbc, u.ID)
	if err != nil || active == nil || active.ID != second.ID {
		t.Fatalf("GetActive: got=%v err=%v", active, err)
	}
	all, _ := repo.ListByUser(dbc, u.ID)
	if len(all) != 2 {
		t.Fatalf("ListByUser: want=2 got=%d", len(all))
	}
	old, _ := repo.GetByID(dbc, first.ID)
	if old.IsActive {
		t.Fatalf("superseded persona still active")
	}
}

func TestUserRepoUpsertByWallet(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())
	wallet := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	a, err := repo.UpsertByWallet(dbc, wallet)
	if err != nil || a == nil {
		t.Fatalf("UpsertByWallet: %v", err)
	}
	b, err := repo.UpsertByWallet(dbc, wallet)
	if err != nil || b == nil || b.ID != a.ID {
		t.Fatalf("second upsert must return the same user: a=%v b=%v err=%v", a, b, err)
	}
}

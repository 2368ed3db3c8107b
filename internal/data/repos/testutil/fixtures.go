package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/govairn/govairn-backend/internal/domain"
	"github.com/govairn/govairn-backend/internal/domain/governance"
)

func SeedUser(tb testing.TB, db *gorm.DB) *types.User {
	tb.Helper()
	id := uuid.New()
	u := &types.User{
		ID:            id,
		WalletAddress: fmt.Sprintf("0x%040x", id.ID()),
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedPersona(tb testing.TB, db *gorm.DB, userID uuid.UUID, v types.PersonaValues, active bool) *types.Persona {
	tb.Helper()
	p := &types.Persona{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     "persona",
		IsActive: active,
	}
	p.SetValues(v)
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed persona: %v", err)
	}
	return p
}

func SeedDAO(tb testing.TB, db *gorm.DB, space string) *types.DAO {
	tb.Helper()
	d := &types.DAO{ID: uuid.New(), SnapshotSpace: space, Name: space}
	if err := db.Create(d).Error; err != nil {
		tb.Fatalf("seed dao: %v", err)
	}
	return d
}

func SeedProposal(tb testing.TB, db *gorm.DB, daoID uuid.UUID, status string) *types.Proposal {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.Proposal{
		ID:          uuid.New(),
		ExternalID:  "0x" + uuid.NewString(),
		DAOID:       daoID,
		Title:       "Increase the stablecoin reserve factor",
		Description: "Raise the reserve factor from 10% to 15% to grow the treasury.",
		Choices:     governance.EncodeChoices([]string{"For", "Against", "Abstain"}),
		Status:      status,
		StartTime:   now.Add(-24 * time.Hour),
		EndTime:     now.Add(48 * time.Hour),
		URL:         "https://snapshot.org/#/test.eth/proposal/x",
	}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed proposal: %v", err)
	}
	return p
}

func SeedDecision(tb testing.TB, db *gorm.DB, userID, proposalID, personaID uuid.UUID, decision string) *types.AIDecision {
	tb.Helper()
	d := &types.AIDecision{
		ID:           uuid.New(),
		UserID:       userID,
		ProposalID:   proposalID,
		PersonaID:    personaID,
		Decision:     decision,
		Confidence:   70,
		PersonaMatch: 65,
		Reasoning:    "seeded",
		Factors: []types.AIDecisionFactor{
			{FactorName: "Treasury impact", FactorValue: 40, FactorWeight: 60, Explanation: "grows reserves"},
		},
	}
	if err := db.Create(d).Error; err != nil {
		tb.Fatalf("seed decision: %v", err)
	}
	return d
}

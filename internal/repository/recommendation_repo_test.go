package repository

import (
	"context"
	"testing"
	"time"

	"GbfEventSync/internal/model"

	"gorm.io/datatypes"
)

func testRecommendation(uuid string, createdAt time.Time) *model.Recommendation {
	return &model.Recommendation{
		RecUUID:        uuid,
		Element:        string(model.ElementFire),
		RatingKind:     string(model.RatingKindGeneral),
		CharacterCount: 3,
		Characters:     datatypes.JSON([]byte(`[]`)),
		Reply:          "placeholder",
		CreatedAt:      createdAt,
	}
}

func TestRecommendationRepositoryListRecent(t *testing.T) {
	repo := NewRecommendationRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, uuid := range []string{"rec-a", "rec-b", "rec-c"} {
		if err := repo.Create(ctx, testRecommendation(uuid, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := repo.ListRecent(ctx, 0)
		if err != nil {
			t.Fatalf("ListRecent() unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("ListRecent() = %d records, want 3", len(got))
		}
		if got[0].RecUUID != "rec-c" || got[2].RecUUID != "rec-a" {
			t.Fatalf("ListRecent() order = [%s %s %s], want newest first",
				got[0].RecUUID, got[1].RecUUID, got[2].RecUUID)
		}
	})

	t.Run("limit", func(t *testing.T) {
		got, err := repo.ListRecent(ctx, 2)
		if err != nil {
			t.Fatalf("ListRecent() unexpected error: %v", err)
		}
		if len(got) != 2 || got[0].RecUUID != "rec-c" {
			t.Fatalf("ListRecent() = %d records first=%s, want 2 records rec-c first", len(got), got[0].RecUUID)
		}
	})
}

package store

import (
	"context"

	"github.com/pixelspace/views-core/internal/models"
	"gorm.io/gorm"
)

// ArtworkStore resolves content ownership and keeps the denormalized
// lifetime view counter.
type ArtworkStore struct {
	db *gorm.DB
}

func NewArtworkStore(db *gorm.DB) *ArtworkStore {
	return &ArtworkStore{db: db}
}

// ContentIDsByAuthor returns the full set of artwork ids owned by an author.
func (s *ArtworkStore) ContentIDsByAuthor(ctx context.Context, authorID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.ArtworkModel{}).
		Where("author_id = ?", authorID).
		Pluck("id", &ids).Error
	return ids, err
}

// IncrementViewCounts bumps the lifetime counter for each artwork by the
// given amount. Best-effort: the recorder ignores failures here because the
// authoritative numbers live in view_events.
func (s *ArtworkStore) IncrementViewCounts(ctx context.Context, counts map[string]int64) error {
	for id, n := range counts {
		if n <= 0 {
			continue
		}
		if err := s.db.WithContext(ctx).
			Model(&models.ArtworkModel{}).
			Where("id = ?", id).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", n)).Error; err != nil {
			return err
		}
	}
	return nil
}

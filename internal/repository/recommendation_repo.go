package repository

import (
	"context"
	"fmt"

	"GbfEventSync/internal/model"

	"gorm.io/gorm"
)

// RecommendationRepository 推荐结果留痕仓储
type RecommendationRepository struct {
	db *gorm.DB
}

// NewRecommendationRepository 创建RecommendationRepository实例
func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Create 保存一次推荐运行记录
func (r *RecommendationRepository) Create(ctx context.Context, rec *model.Recommendation) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("保存推荐记录失败: %w", err)
	}
	return nil
}

// ListRecent 按时间倒序查询最近的推荐记录
func (r *RecommendationRepository) ListRecent(ctx context.Context, limit int) ([]*model.Recommendation, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []*model.Recommendation
	if err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("查询推荐记录失败: %w", err)
	}
	return recs, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"GbfEventSync/internal/model"

	"gorm.io/gorm"
)

// CharacterRepository 角色表仓储，唯一性由uk_character_natural约束兜底
type CharacterRepository struct {
	db *gorm.DB
}

// NewCharacterRepository 创建CharacterRepository实例
func NewCharacterRepository(db *gorm.DB) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// RatingUpdate 评分可更新字段，nil表示该维度不修改
type RatingUpdate struct {
	General  *float64
	Grind    *float64
	FullAuto *float64
	HighLvl  *float64
}

// Create 插入角色；撞自然键返回ErrDuplicateCharacter
func (r *CharacterRepository) Create(ctx context.Context, character *model.Character) error {
	existing, err := r.FindByNaturalKey(ctx, character.Name, character.Element)
	if err != nil {
		return fmt.Errorf("查询角色自然键失败: %w", err)
	}
	if existing != nil {
		return model.ErrDuplicateCharacter
	}

	if err := r.db.WithContext(ctx).Create(character).Error; err != nil {
		if isDuplicateErr(err) {
			return model.ErrDuplicateCharacter
		}
		return fmt.Errorf("保存角色失败: %w, name: %s", err, character.Name)
	}
	return nil
}

// UpdateRatings 按ID合并评分：非nil维度覆盖，nil维度保持原值；ID不存在返回ErrCharacterNotFound
func (r *CharacterRepository) UpdateRatings(ctx context.Context, id uint64, ratings RatingUpdate) (*model.Character, error) {
	var character model.Character
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&character).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrCharacterNotFound
		}
		return nil, fmt.Errorf("查询角色失败: %w, id: %d", err, id)
	}

	if ratings.General != nil {
		character.RatingGeneral = ratings.General
	}
	if ratings.Grind != nil {
		character.RatingGrind = ratings.Grind
	}
	if ratings.FullAuto != nil {
		character.RatingFA = ratings.FullAuto
	}
	if ratings.HighLvl != nil {
		character.RatingHL = ratings.HighLvl
	}

	if err := r.db.WithContext(ctx).Save(&character).Error; err != nil {
		return nil, fmt.Errorf("更新角色评分失败: %w, id: %d", err, id)
	}
	return &character, nil
}

// Delete 按ID删除角色；返回是否实际删除了记录
func (r *CharacterRepository) Delete(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Character{})
	if res.Error != nil {
		return false, fmt.Errorf("删除角色失败: %w, id: %d", res.Error, id)
	}
	return res.RowsAffected > 0, nil
}

// List 查询全部角色（综合评分倒序，未评分的排最后）
func (r *CharacterRepository) List(ctx context.Context) ([]*model.Character, error) {
	var characters []*model.Character
	if err := r.db.WithContext(ctx).
		Order("gw_rating DESC NULLS LAST").
		Find(&characters).Error; err != nil {
		return nil, fmt.Errorf("查询角色列表失败: %w", err)
	}
	return characters, nil
}

// ListByRating 按属性与评分维度筛选（评分非空、对应列倒序、可限量），供推荐服务使用
func (r *CharacterRepository) ListByRating(ctx context.Context, element model.Element, kind model.RatingKind, limit int) ([]*model.Character, error) {
	db := r.db.WithContext(ctx).Model(&model.Character{})
	if element != "" {
		db = db.Where("element = ?", element)
	}

	column := "gw_rating"
	if kind != "" {
		col, ok := model.RatingColumn(kind)
		if !ok {
			return nil, model.NewValidationError("rating", fmt.Sprintf("unknown rating kind: %s", kind))
		}
		column = col
		db = db.Where(column + " IS NOT NULL")
	}
	db = db.Order(column + " DESC NULLS LAST")

	if limit > 0 {
		db = db.Limit(limit)
	}

	var characters []*model.Character
	if err := db.Find(&characters).Error; err != nil {
		return nil, fmt.Errorf("按评分查询角色失败: %w", err)
	}
	return characters, nil
}

// FindByNaturalKey 按自然键（名称+属性）查询；不存在返回nil
func (r *CharacterRepository) FindByNaturalKey(ctx context.Context, name string, element model.Element) (*model.Character, error) {
	var character model.Character
	err := r.db.WithContext(ctx).
		Where("name = ? AND element = ?", name, element).
		First(&character).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &character, nil
}

// DedupCharacters 按自然键去重，每组保留最小ID；返回删除行数（幂等）
func (r *CharacterRepository) DedupCharacters(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var characters []*model.Character
		if err := tx.Order("id ASC").Find(&characters).Error; err != nil {
			return fmt.Errorf("扫描角色表失败: %w", err)
		}

		type naturalKey struct {
			name    string
			element model.Element
		}
		seen := make(map[naturalKey]struct{}, len(characters))
		var toDelete []uint64
		for _, c := range characters {
			key := naturalKey{c.Name, c.Element}
			if _, ok := seen[key]; ok {
				toDelete = append(toDelete, c.ID)
				continue
			}
			seen[key] = struct{}{}
		}

		if len(toDelete) == 0 {
			return nil
		}
		res := tx.Where("id IN ?", toDelete).Delete(&model.Character{})
		if res.Error != nil {
			return fmt.Errorf("删除重复角色失败: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

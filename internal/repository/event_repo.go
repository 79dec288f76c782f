package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"GbfEventSync/internal/model"

	"gorm.io/gorm"
)

// EventRepository 活动表仓储，唯一性由uk_event_natural约束兜底
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建EventRepository实例
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// EventUpdate 活动可更新字段（nil表示不修改）
type EventUpdate struct {
	Name      *string
	StartTime *time.Time
	EndTime   *time.Time
}

// isDuplicateErr 判断是否为唯一约束冲突（兼容postgres与sqlite的报错文本）
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// Create 插入活动；撞自然键返回ErrDuplicateEvent（先查后插，约束为并发兜底）
func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	existing, err := r.FindByNaturalKey(ctx, event.Name, event.StartTime, event.EndTime)
	if err != nil {
		return fmt.Errorf("查询活动自然键失败: %w", err)
	}
	if existing != nil {
		return model.ErrDuplicateEvent
	}

	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if isDuplicateErr(err) {
			return model.ErrDuplicateEvent
		}
		return fmt.Errorf("保存活动失败: %w, name: %s", err, event.Name)
	}
	return nil
}

// Update 按ID更新活动字段；ID不存在返回ErrEventNotFound
func (r *EventRepository) Update(ctx context.Context, id uint64, fields EventUpdate) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("查询活动失败: %w, id: %d", err, id)
	}

	if fields.Name != nil {
		event.Name = *fields.Name
	}
	if fields.StartTime != nil {
		event.StartTime = *fields.StartTime
	}
	if fields.EndTime != nil {
		event.EndTime = *fields.EndTime
	}
	if event.Name == "" {
		return nil, model.NewValidationError("name", "name is required")
	}
	if event.EndTime.Before(event.StartTime) {
		return nil, model.NewValidationError("time_end", "end before start")
	}

	if err := r.db.WithContext(ctx).Save(&event).Error; err != nil {
		if isDuplicateErr(err) {
			return nil, model.ErrDuplicateEvent
		}
		return nil, fmt.Errorf("更新活动失败: %w, id: %d", err, id)
	}
	return &event, nil
}

// Delete 按ID删除活动；返回是否实际删除了记录
func (r *EventRepository) Delete(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Event{})
	if res.Error != nil {
		return false, fmt.Errorf("删除活动失败: %w, id: %d", res.Error, id)
	}
	return res.RowsAffected > 0, nil
}

// List 查询全部活动（按开始时间倒序，与前端展示一致）
func (r *EventRepository) List(ctx context.Context) ([]*model.Event, error) {
	var events []*model.Event
	if err := r.db.WithContext(ctx).
		Order("start_time DESC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("查询活动列表失败: %w", err)
	}
	return events, nil
}

// FindByNaturalKey 按自然键（名称+起止时间）查询；不存在返回nil
func (r *EventRepository) FindByNaturalKey(ctx context.Context, name string, start, end time.Time) (*model.Event, error) {
	var event model.Event
	err := r.db.WithContext(ctx).
		Where("name = ? AND start_time = ? AND end_time = ?", name, start, end).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// DedupEvents 扫描全表，按自然键分组，每组保留最小ID删除其余；返回删除行数（幂等）
func (r *EventRepository) DedupEvents(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var events []*model.Event
		if err := tx.Order("id ASC").Find(&events).Error; err != nil {
			return fmt.Errorf("扫描活动表失败: %w", err)
		}

		type naturalKey struct {
			name       string
			start, end int64
		}
		seen := make(map[naturalKey]struct{}, len(events))
		var toDelete []uint64
		for _, e := range events {
			key := naturalKey{e.Name, e.StartTime.Unix(), e.EndTime.Unix()}
			if _, ok := seen[key]; ok {
				toDelete = append(toDelete, e.ID)
				continue
			}
			seen[key] = struct{}{}
		}

		if len(toDelete) == 0 {
			return nil
		}
		res := tx.Where("id IN ?", toDelete).Delete(&model.Event{})
		if res.Error != nil {
			return fmt.Errorf("删除重复活动失败: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

package service

import (
	"context"
	"errors"
	"fmt"

	"GbfEventSync/internal/model"
	"GbfEventSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// EventCounts 活动批量调和结果统计
type EventCounts struct {
	Inserted int `json:"events_inserted"`
	Skipped  int `json:"events_skipped"`
	Rejected int `json:"events_rejected"`
}

// CharacterCounts 角色批量调和结果统计
type CharacterCounts struct {
	Inserted int `json:"characters_inserted"`
	Updated  int `json:"characters_updated"`
	Rejected int `json:"characters_rejected"`
}

// CleanupCounts 去重清理结果统计
type CleanupCounts struct {
	EventsDeleted     int64 `json:"events_deleted"`
	CharactersDeleted int64 `json:"characters_deleted"`
}

// ReconcileService 爬取结果入库调和：只插入真正的新记录，绝不制造重复行
type ReconcileService struct {
	eventRepo *repository.EventRepository
	charRepo  *repository.CharacterRepository
	logger    *logrus.Logger
}

// NewReconcileService 创建调和服务
func NewReconcileService(eventRepo *repository.EventRepository, charRepo *repository.CharacterRepository, logger *logrus.Logger) *ReconcileService {
	return &ReconcileService{
		eventRepo: eventRepo,
		charRepo:  charRepo,
		logger:    logger,
	}
}

// validateRawEvent 活动原始记录校验：名称必填、结束不得早于开始
func validateRawEvent(raw *model.RawEvent) error {
	if raw.Name == "" {
		return model.NewValidationError("name", "name is required")
	}
	if raw.StartTime.IsZero() {
		return model.NewValidationError("time_start", "start time is required")
	}
	if raw.EndTime.Before(raw.StartTime) {
		return model.NewValidationError("time_end", "end before start")
	}
	return nil
}

// validateRawCharacter 角色原始记录校验：名称必填、属性必须为已知枚举
func validateRawCharacter(raw *model.RawCharacter) error {
	if raw.Name == "" {
		return model.NewValidationError("name", "name is required")
	}
	if !model.ValidElement(raw.Element) {
		return model.NewValidationError("element", fmt.Sprintf("unknown element: %s", raw.Element))
	}
	return nil
}

// ReconcileEvents 活动批量入库：自然键已存在则跳过（有意保持首次爬取数据不被覆盖），
// 单条坏记录计入rejected并继续处理后续记录
func (s *ReconcileService) ReconcileEvents(ctx context.Context, batch []*model.RawEvent) (EventCounts, error) {
	var counts EventCounts
	for _, raw := range batch {
		if err := validateRawEvent(raw); err != nil {
			counts.Rejected++
			s.logger.WithError(err).WithField("name", raw.Name).Warn("活动记录校验失败，跳过")
			continue
		}

		event := &model.Event{
			Name:      raw.Name,
			StartTime: raw.StartTime,
			EndTime:   raw.EndTime,
		}
		err := s.eventRepo.Create(ctx, event)
		switch {
		case err == nil:
			counts.Inserted++
		case errors.Is(err, model.ErrDuplicateEvent):
			counts.Skipped++
		default:
			return counts, fmt.Errorf("活动入库失败: %w", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"inserted": counts.Inserted,
		"skipped":  counts.Skipped,
		"rejected": counts.Rejected,
	}).Info("活动调和完成")
	return counts, nil
}

// mergeRatings 按自然键合并评分到既有角色：非nil维度覆盖，nil维度保持原值
func (s *ReconcileService) mergeRatings(ctx context.Context, id uint64, raw *model.RawCharacter) error {
	_, err := s.charRepo.UpdateRatings(ctx, id, repository.RatingUpdate{
		General:  raw.RatingGeneral,
		Grind:    raw.RatingGrind,
		FullAuto: raw.RatingFA,
		HighLvl:  raw.RatingHL,
	})
	return err
}

// ReconcileCharacters 角色批量入库：自然键已存在则合并评分（非nil维度覆盖），否则新增
func (s *ReconcileService) ReconcileCharacters(ctx context.Context, batch []*model.RawCharacter) (CharacterCounts, error) {
	var counts CharacterCounts
	for _, raw := range batch {
		if err := validateRawCharacter(raw); err != nil {
			counts.Rejected++
			s.logger.WithError(err).WithField("name", raw.Name).Warn("角色记录校验失败，跳过")
			continue
		}

		existing, err := s.charRepo.FindByNaturalKey(ctx, raw.Name, raw.Element)
		if err != nil {
			return counts, fmt.Errorf("查询角色自然键失败: %w", err)
		}

		if existing != nil {
			if err := s.mergeRatings(ctx, existing.ID, raw); err != nil {
				return counts, fmt.Errorf("合并角色评分失败: %w", err)
			}
			counts.Updated++
			continue
		}

		character := &model.Character{
			Name:          raw.Name,
			Element:       raw.Element,
			RatingGeneral: raw.RatingGeneral,
			RatingGrind:   raw.RatingGrind,
			RatingFA:      raw.RatingFA,
			RatingHL:      raw.RatingHL,
		}
		err = s.charRepo.Create(ctx, character)
		switch {
		case err == nil:
			counts.Inserted++
		case errors.Is(err, model.ErrDuplicateCharacter):
			// 并发插入被约束拦下：改走评分合并，不丢弃本条评分
			winner, ferr := s.charRepo.FindByNaturalKey(ctx, raw.Name, raw.Element)
			if ferr != nil {
				return counts, fmt.Errorf("查询角色自然键失败: %w", ferr)
			}
			if winner != nil {
				if merr := s.mergeRatings(ctx, winner.ID, raw); merr != nil {
					return counts, fmt.Errorf("合并角色评分失败: %w", merr)
				}
			}
			counts.Updated++
		default:
			return counts, fmt.Errorf("角色入库失败: %w", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"inserted": counts.Inserted,
		"updated":  counts.Updated,
		"rejected": counts.Rejected,
	}).Info("角色调和完成")
	return counts, nil
}

// CleanupDuplicates 维护入口：两表按自然键去重，每组保留最小ID；幂等，二次运行删除0行
func (s *ReconcileService) CleanupDuplicates(ctx context.Context) (CleanupCounts, error) {
	var counts CleanupCounts

	eventsDeleted, err := s.eventRepo.DedupEvents(ctx)
	if err != nil {
		return counts, fmt.Errorf("活动去重失败: %w", err)
	}
	counts.EventsDeleted = eventsDeleted

	charsDeleted, err := s.charRepo.DedupCharacters(ctx)
	if err != nil {
		return counts, fmt.Errorf("角色去重失败: %w", err)
	}
	counts.CharactersDeleted = charsDeleted

	if counts.EventsDeleted > 0 || counts.CharactersDeleted > 0 {
		s.logger.WithFields(logrus.Fields{
			"events_deleted":     counts.EventsDeleted,
			"characters_deleted": counts.CharactersDeleted,
		}).Info("去重清理完成")
	}
	return counts, nil
}

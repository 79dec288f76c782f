package service

import (
	"context"
	"fmt"

	"GbfEventSync/internal/model"

	"github.com/sirupsen/logrus"
)

// WikiSource Wiki数据源接口（由adapter/wiki实现，测试可替换）
type WikiSource interface {
	FetchEvents(ctx context.Context) ([]*model.RawEvent, error)
	FetchCharacters(ctx context.Context) ([]*model.RawCharacter, error)
}

// SyncService Wiki同步：爬取原始记录交给调和服务入库
type SyncService struct {
	source    WikiSource
	reconcile *ReconcileService
	logger    *logrus.Logger
}

// NewSyncService 创建同步服务
func NewSyncService(source WikiSource, reconcile *ReconcileService, logger *logrus.Logger) *SyncService {
	return &SyncService{
		source:    source,
		reconcile: reconcile,
		logger:    logger,
	}
}

// SyncEvents 拉取活动并调和入库
func (s *SyncService) SyncEvents(ctx context.Context) (EventCounts, error) {
	raws, err := s.source.FetchEvents(ctx)
	if err != nil {
		return EventCounts{}, fmt.Errorf("爬取活动失败: %w", err)
	}
	if len(raws) == 0 {
		s.logger.Warn("Wiki未返回任何活动")
		return EventCounts{}, nil
	}
	return s.reconcile.ReconcileEvents(ctx, raws)
}

// SyncCharacters 拉取角色并调和入库
func (s *SyncService) SyncCharacters(ctx context.Context) (CharacterCounts, error) {
	raws, err := s.source.FetchCharacters(ctx)
	if err != nil {
		return CharacterCounts{}, fmt.Errorf("爬取角色失败: %w", err)
	}
	if len(raws) == 0 {
		s.logger.Warn("Wiki未返回任何角色")
		return CharacterCounts{}, nil
	}
	return s.reconcile.ReconcileCharacters(ctx, raws)
}

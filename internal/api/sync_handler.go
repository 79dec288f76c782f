package api

import (
	"net/http"

	"GbfEventSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SyncHandler Wiki同步与去重维护接口
type SyncHandler struct {
	syncService      *service.SyncService
	reconcileService *service.ReconcileService
	notifier         ChangeNotifier
	logger           *logrus.Logger
}

// NewSyncHandler 创建SyncHandler
func NewSyncHandler(syncService *service.SyncService, reconcileService *service.ReconcileService, notifier ChangeNotifier, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		syncService:      syncService,
		reconcileService: reconcileService,
		notifier:         notifier,
		logger:           logger,
	}
}

// UpdateEvents 从Wiki拉取活动并入库
// POST /update-events
func (h *SyncHandler) UpdateEvents(c *gin.Context) {
	counts, err := h.syncService.SyncEvents(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("活动同步失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if counts.Inserted > 0 {
		h.notifier.NotifyChanged()
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Events updated!",
		"counts":  counts,
	})
}

// UpdateCharacters 从Wiki拉取角色并入库
// POST /update-characters
func (h *SyncHandler) UpdateCharacters(c *gin.Context) {
	counts, err := h.syncService.SyncCharacters(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("角色同步失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Characters updated!",
		"counts":  counts,
	})
}

// CleanupDuplicates 两表按自然键去重（维护入口，可重复执行）
// POST /cleanup-duplicates
func (h *SyncHandler) CleanupDuplicates(c *gin.Context) {
	counts, err := h.reconcileService.CleanupDuplicates(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("去重清理失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if counts.EventsDeleted > 0 {
		h.notifier.NotifyChanged()
	}
	c.JSON(http.StatusOK, gin.H{
		"message":            "Cleanup completed",
		"events_deleted":     counts.EventsDeleted,
		"characters_deleted": counts.CharactersDeleted,
	})
}

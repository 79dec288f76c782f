package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"GbfEventSync/internal/model"
	"GbfEventSync/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ChangeNotifier 数据变更信号接收方（通知服务实现）
type ChangeNotifier interface {
	NotifyChanged()
}

// EventHandler 活动CRUD接口
type EventHandler struct {
	eventRepo *repository.EventRepository
	notifier  ChangeNotifier
	logger    *logrus.Logger
}

// NewEventHandler 创建EventHandler
func NewEventHandler(db *gorm.DB, notifier ChangeNotifier, logger *logrus.Logger) *EventHandler {
	return &EventHandler{
		eventRepo: repository.NewEventRepository(db),
		notifier:  notifier,
		logger:    logger,
	}
}

// eventView 活动响应对象（字段名与前端约定一致）
type eventView struct {
	EventID   uint64 `json:"event_id"`
	Name      string `json:"name"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
}

func toEventView(e *model.Event) eventView {
	timeEnd := e.EndTime.UTC().Format(time.RFC3339)
	if model.IsOpenEnd(e.EndTime) {
		timeEnd = "Ongoing"
	}
	return eventView{
		EventID:   e.ID,
		Name:      e.Name,
		TimeStart: e.StartTime.UTC().Format(time.RFC3339),
		TimeEnd:   timeEnd,
	}
}

// parseAPITime 解析请求里的时间文本（RFC3339或常见日期写法）
func parseAPITime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间: %q", s)
}

type eventRequest struct {
	Name      string `json:"name"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
}

// ListEvents 活动列表
// GET /events
func (h *EventHandler) ListEvents(c *gin.Context) {
	events, err := h.eventRepo.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("查询活动列表失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, toEventView(e))
	}
	c.JSON(http.StatusOK, views)
}

// AddEvent 手动新增活动
// POST /add-event
func (h *EventHandler) AddEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" || req.TimeStart == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields (name, time_start)."})
		return
	}

	start, err := parseAPITime(req.TimeStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// 结束时间缺省视为Ongoing，写入固定哨兵值（重复提交同一活动才能被识别为重复）
	var end time.Time
	if req.TimeEnd == "" || strings.EqualFold(req.TimeEnd, "Ongoing") {
		end = model.OpenEndTime
	} else {
		end, err = parseAPITime(req.TimeEnd)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time_end before time_start"})
		return
	}

	event := &model.Event{Name: req.Name, StartTime: start, EndTime: end}
	if err := h.eventRepo.Create(c.Request.Context(), event); err != nil {
		if errors.Is(err, model.ErrDuplicateEvent) {
			c.JSON(http.StatusConflict, gin.H{"error": "event already exists"})
			return
		}
		h.logger.WithError(err).Error("新增活动失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.notifier.NotifyChanged()
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Event added successfully!",
		"event_id": event.ID,
	})
}

// UpdateEvent 更新既有活动
// PUT /update-event/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var fields repository.EventUpdate
	if req.Name != "" {
		fields.Name = &req.Name
	}
	if req.TimeStart != "" {
		start, err := parseAPITime(req.TimeStart)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fields.StartTime = &start
	}
	if req.TimeEnd != "" {
		if strings.EqualFold(req.TimeEnd, "Ongoing") {
			open := model.OpenEndTime
			fields.EndTime = &open
		} else {
			end, err := parseAPITime(req.TimeEnd)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			fields.EndTime = &end
		}
	}

	event, err := h.eventRepo.Update(c.Request.Context(), id, fields)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrEventNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Event with ID %d not found.", id)})
		case model.IsValidation(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, model.ErrDuplicateEvent):
			c.JSON(http.StatusConflict, gin.H{"error": "event already exists"})
		default:
			h.logger.WithError(err).Error("更新活动失败")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	h.notifier.NotifyChanged()
	c.JSON(http.StatusOK, gin.H{
		"message": "Event updated successfully!",
		"event":   toEventView(event),
	})
}

// DeleteEvent 删除活动
// DELETE /delete-event/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	deleted, err := h.eventRepo.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("删除活动失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Event with ID %d not found.", id)})
		return
	}

	h.notifier.NotifyChanged()
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Event %d deleted successfully.", id)})
}

package api

import (
	"net/http"
	"strconv"

	"GbfEventSync/internal/model"
	"GbfEventSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RecommendHandler 角色推荐接口
type RecommendHandler struct {
	recommendService *service.RecommendService
	logger           *logrus.Logger
}

// NewRecommendHandler 创建RecommendHandler
func NewRecommendHandler(recommendService *service.RecommendService, logger *logrus.Logger) *RecommendHandler {
	return &RecommendHandler{
		recommendService: recommendService,
		logger:           logger,
	}
}

// Recommend 按属性/评分维度生成角色推荐
// GET /recommendations?element=Fire&rating=full-auto&limit=10
func (h *RecommendHandler) Recommend(c *gin.Context) {
	element := model.Element(c.Query("element"))
	kind := model.RatingKind(c.Query("rating"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	rec, err := h.recommendService.Recommend(c.Request.Context(), element, kind, limit)
	if err != nil {
		if model.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("生成推荐失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rec_uuid":        rec.RecUUID,
		"character_count": rec.CharacterCount,
		"recommendations": rec.Reply,
	})
}

// History 最近的推荐历史
// GET /recommendations/history?limit=20
func (h *RecommendHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	recs, err := h.recommendService.History(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("查询推荐历史失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]gin.H, 0, len(recs))
	for _, rec := range recs {
		views = append(views, gin.H{
			"rec_uuid":        rec.RecUUID,
			"element":         rec.Element,
			"rating":          rec.RatingKind,
			"character_count": rec.CharacterCount,
			"recommendations": rec.Reply,
			"created_at":      rec.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, views)
}

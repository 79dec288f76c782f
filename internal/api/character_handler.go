package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"GbfEventSync/internal/model"
	"GbfEventSync/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CharacterHandler 角色CRUD接口
type CharacterHandler struct {
	charRepo *repository.CharacterRepository
	logger   *logrus.Logger
}

// NewCharacterHandler 创建CharacterHandler
func NewCharacterHandler(db *gorm.DB, logger *logrus.Logger) *CharacterHandler {
	return &CharacterHandler{
		charRepo: repository.NewCharacterRepository(db),
		logger:   logger,
	}
}

// characterView 角色响应对象（列名与原始表结构一致）
type characterView struct {
	ID            uint64        `json:"id"`
	Name          string        `json:"name"`
	Element       model.Element `json:"element"`
	RatingGeneral *float64      `json:"gw_rating"`
	RatingGrind   *float64      `json:"gw_rating_grind"`
	RatingFA      *float64      `json:"gw_rating_fa"`
	RatingHL      *float64      `json:"gw_rating_hl"`
}

func toCharacterView(c *model.Character) characterView {
	return characterView{
		ID:            c.ID,
		Name:          c.Name,
		Element:       c.Element,
		RatingGeneral: c.RatingGeneral,
		RatingGrind:   c.RatingGrind,
		RatingFA:      c.RatingFA,
		RatingHL:      c.RatingHL,
	}
}

type characterRequest struct {
	Name          string        `json:"name"`
	Element       model.Element `json:"element"`
	RatingGeneral *float64      `json:"gw_rating"`
	RatingGrind   *float64      `json:"gw_rating_grind"`
	RatingFA      *float64      `json:"gw_rating_fa"`
	RatingHL      *float64      `json:"gw_rating_hl"`
}

// ListCharacters 角色列表
// GET /characters
func (h *CharacterHandler) ListCharacters(c *gin.Context) {
	characters, err := h.charRepo.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("查询角色列表失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]characterView, 0, len(characters))
	for _, ch := range characters {
		views = append(views, toCharacterView(ch))
	}
	c.JSON(http.StatusOK, views)
}

// AddCharacter 手动新增角色
// POST /add-character
func (h *CharacterHandler) AddCharacter(c *gin.Context) {
	var req characterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required field (name)."})
		return
	}
	if !model.ValidElement(req.Element) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown element: %s", req.Element)})
		return
	}

	character := &model.Character{
		Name:          req.Name,
		Element:       req.Element,
		RatingGeneral: req.RatingGeneral,
		RatingGrind:   req.RatingGrind,
		RatingFA:      req.RatingFA,
		RatingHL:      req.RatingHL,
	}
	if err := h.charRepo.Create(c.Request.Context(), character); err != nil {
		if errors.Is(err, model.ErrDuplicateCharacter) {
			c.JSON(http.StatusConflict, gin.H{"error": "character already exists"})
			return
		}
		h.logger.WithError(err).Error("新增角色失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Character added successfully!",
		"character_id": character.ID,
	})
}

// UpdateCharacter 更新角色评分（仅覆盖请求里出现的维度）
// PUT /update-character/:id
func (h *CharacterHandler) UpdateCharacter(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid character id"})
		return
	}

	var req characterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	character, err := h.charRepo.UpdateRatings(c.Request.Context(), id, repository.RatingUpdate{
		General:  req.RatingGeneral,
		Grind:    req.RatingGrind,
		FullAuto: req.RatingFA,
		HighLvl:  req.RatingHL,
	})
	if err != nil {
		if errors.Is(err, model.ErrCharacterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Character with ID %d not found.", id)})
			return
		}
		h.logger.WithError(err).Error("更新角色失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Character updated successfully!",
		"character": toCharacterView(character),
	})
}

// DeleteCharacter 删除角色
// DELETE /delete-character/:id
func (h *CharacterHandler) DeleteCharacter(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid character id"})
		return
	}

	deleted, err := h.charRepo.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("删除角色失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Character with ID %d not found.", id)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Character %d deleted successfully.", id)})
}

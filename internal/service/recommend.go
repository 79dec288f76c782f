package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"GbfEventSync/internal/config"
	"GbfEventSync/internal/model"
	"GbfEventSync/internal/repository"
	"GbfEventSync/internal/utils/httpclient"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ratingExplanations 各评分维度的提示词说明（喂给模型的上下文）
var ratingExplanations = map[model.RatingKind]string{
	model.RatingKindGeneral:  "General rating represents the character's overall usefulness in most content.",
	model.RatingKindGrind:    "Grind rating represents how effective the character is for grinding repetitive content efficiently.",
	model.RatingKindFullAuto: "Full-auto rating represents how well the character performs when the game is played on automatic mode without manual inputs.",
	model.RatingKindHighLvl:  "High-level rating represents how valuable the character is for difficult endgame content.",
}

const systemPrompt = "You are a helpful assistant that provides character recommendations for Granblue Fantasy based on game data. The ratings are on a scale from 1-10, with 10 being the best."

// characterView 喂给模型的角色数据视图
type characterView struct {
	Name          string        `json:"name"`
	Element       model.Element `json:"element"`
	RatingGeneral *float64      `json:"gw_rating"`
	RatingGrind   *float64      `json:"gw_rating_grind"`
	RatingFA      *float64      `json:"gw_rating_fa"`
	RatingHL      *float64      `json:"gw_rating_hl"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// RecommendService 基于角色评分的LLM推荐（Ollama风格chat接口），每次运行留痕入库
type RecommendService struct {
	charRepo   *repository.CharacterRepository
	recRepo    *repository.RecommendationRepository
	cfg        *config.RecommenderConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewRecommendService 创建推荐服务
func NewRecommendService(charRepo *repository.CharacterRepository, recRepo *repository.RecommendationRepository, cfg *config.RecommenderConfig, logger *logrus.Logger) *RecommendService {
	return &RecommendService{
		charRepo: charRepo,
		recRepo:  recRepo,
		cfg:      cfg,
		httpClient: httpclient.New(httpclient.Options{
			Timeout: cfg.Timeout,
		}, logger),
		logger: logger,
	}
}

// buildPrompt 按评分维度构造提示词（与维度说明一起），无维度时按综合评分推荐
func buildPrompt(charactersJSON []byte, kind model.RatingKind) string {
	if kind != "" {
		column, _ := model.RatingColumn(kind)
		return fmt.Sprintf(`Here is the character data: %s.

I need recommendations for the top 3 characters specifically focusing on their '%s' values.

%s

Please prioritize characters with higher values in this specific rating category and explain why they excel in this area.`,
			charactersJSON, column, ratingExplanations[kind])
	}
	return fmt.Sprintf(`Here is the character data: %s.

Please recommend the top 3 characters based on their overall ratings (gw_rating).

The general rating represents a character's overall usefulness across different content types.`, charactersJSON)
}

// Recommend 按属性/评分维度筛选角色，请求模型并返回推荐记录
func (s *RecommendService) Recommend(ctx context.Context, element model.Element, kind model.RatingKind, limit int) (*model.Recommendation, error) {
	if element != "" && !model.ValidElement(element) {
		return nil, model.NewValidationError("element", fmt.Sprintf("unknown element: %s", element))
	}
	if kind != "" {
		if _, ok := model.RatingColumn(kind); !ok {
			return nil, model.NewValidationError("rating", fmt.Sprintf("unknown rating kind: %s", kind))
		}
	}

	characters, err := s.charRepo.ListByRating(ctx, element, kind, limit)
	if err != nil {
		return nil, err
	}

	views := make([]characterView, 0, len(characters))
	for _, c := range characters {
		views = append(views, characterView{
			Name:          c.Name,
			Element:       c.Element,
			RatingGeneral: c.RatingGeneral,
			RatingGrind:   c.RatingGrind,
			RatingFA:      c.RatingFA,
			RatingHL:      c.RatingHL,
		})
	}
	charactersJSON, err := json.Marshal(views)
	if err != nil {
		return nil, fmt.Errorf("序列化角色数据失败: %w", err)
	}

	reply, err := s.chat(ctx, buildPrompt(charactersJSON, kind))
	if err != nil {
		return nil, err
	}

	rec := &model.Recommendation{
		RecUUID:        uuid.NewString(),
		Element:        string(element),
		RatingKind:     string(kind),
		CharacterCount: len(views),
		Characters:     datatypes.JSON(charactersJSON),
		Reply:          reply,
	}
	if err := s.recRepo.Create(ctx, rec); err != nil {
		// 留痕失败不影响返回推荐结果
		s.logger.WithError(err).Warn("推荐记录留痕失败")
	}
	return rec, nil
}

// History 按时间倒序返回最近的推荐留痕记录
func (s *RecommendService) History(ctx context.Context, limit int) ([]*model.Recommendation, error) {
	return s.recRepo.ListRecent(ctx, limit)
}

// chat 调用chat接口并清洗回复（去掉推理模型的think标记）
func (s *RecommendService) chat(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("构造chat请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("构造chat请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求推荐模型失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("推荐模型返回异常状态码: %d, body: %s", resp.StatusCode, body)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("解析chat响应失败: %w", err)
	}
	return cleanReply(chatResp.Message.Content), nil
}

// cleanReply 去除推理模型回复中的think标记，原文照原样返回
func cleanReply(s string) string {
	s = strings.ReplaceAll(s, "<think>", "")
	s = strings.ReplaceAll(s, "</think>", "")
	return strings.TrimSpace(s)
}

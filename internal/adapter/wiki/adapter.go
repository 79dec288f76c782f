package wiki

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"GbfEventSync/internal/config"
	"GbfEventSync/internal/model"
	"GbfEventSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// jst Wiki时间均为日本时区
var jst = mustLoadJST()

func mustLoadJST() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		// tzdata缺失时退回固定偏移
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// Adapter GBF Wiki cargoquery数据源适配器
type Adapter struct {
	cfg        *config.WikiConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewAdapter 创建Wiki适配器
func NewAdapter(cfg *config.WikiConfig, logger *logrus.Logger) *Adapter {
	return &Adapter{
		cfg: cfg,
		httpClient: httpclient.New(httpclient.Options{
			Timeout:    cfg.Timeout,
			RetryCount: cfg.RetryCount,
			Proxy:      cfg.Proxy,
		}, logger),
		logger: logger,
	}
}

// query 调用cargoquery接口，返回响应原文
func (a *Adapter) query(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("action", "cargoquery")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("构造Wiki请求失败: %w", err)
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求Wiki失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Wiki返回异常状态码: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取Wiki响应失败: %w", err)
	}
	return body, nil
}

// parseWikiTime 解析Wiki时间文本。空串/Ongoing映射为固定的开放结束哨兵，
// 与爬取时刻无关，同一活动反复爬取得到相同自然键
func parseWikiTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "Ongoing") {
		return model.OpenEndTime, nil
	}

	s = strings.TrimSuffix(s, " JST")
	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, jst); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析Wiki时间: %q", s)
}

// FetchEvents 拉取最近的活动记录（event_history表，按开始时间倒序）
func (a *Adapter) FetchEvents(ctx context.Context) ([]*model.RawEvent, error) {
	params := url.Values{}
	params.Set("tables", "event_history")
	params.Set("fields", "name, time_start, time_end")
	params.Set("order_by", "time_start DESC")
	params.Set("limit", strconv.Itoa(a.cfg.EventLimit))

	body, err := a.query(ctx, params)
	if err != nil {
		return nil, err
	}
	return a.parseEvents(body), nil
}

// parseEvents 解析cargoquery活动响应；单条解析失败记日志跳过，不中断整批
func (a *Adapter) parseEvents(body []byte) []*model.RawEvent {
	var raws []*model.RawEvent
	gjson.GetBytes(body, "cargoquery").ForEach(func(_, row gjson.Result) bool {
		title := row.Get("title")
		name := title.Get("name").String()

		start, err := parseWikiTime(title.Get("time start").String())
		if err != nil {
			a.logger.WithError(err).WithField("name", name).Warn("活动开始时间解析失败，跳过")
			return true
		}
		// 结束时间缺失视为Ongoing（Wiki对进行中活动不回填time end）
		end, err := parseWikiTime(title.Get("time end").String())
		if err != nil {
			a.logger.WithError(err).WithField("name", name).Warn("活动结束时间解析失败，按Ongoing兜底")
			end = model.OpenEndTime
		}

		raws = append(raws, &model.RawEvent{
			Name:      name,
			StartTime: start,
			EndTime:   end,
		})
		return true
	})
	return raws
}

// FetchCharacters 拉取SSR角色与四维评分（characters与character_ratings按id连接）
func (a *Adapter) FetchCharacters(ctx context.Context) ([]*model.RawCharacter, error) {
	params := url.Values{}
	params.Set("tables", "characters, character_ratings")
	params.Set("fields", "characters.name, characters.element, character_ratings.gw_rating, "+
		"character_ratings.gw_rating_grind, character_ratings.gw_rating_fa, "+
		"character_ratings.gw_rating_hl")
	params.Set("where", "characters.rarity='SSR'")
	params.Set("join_on", "characters.id=character_ratings.id")
	params.Set("order_by", "character_ratings.gw_rating+0 DESC")
	params.Set("limit", strconv.Itoa(a.cfg.CharacterLimit))

	body, err := a.query(ctx, params)
	if err != nil {
		return nil, err
	}
	return a.parseCharacters(body), nil
}

// parseCharacters 解析cargoquery角色响应
func (a *Adapter) parseCharacters(body []byte) []*model.RawCharacter {
	var raws []*model.RawCharacter
	gjson.GetBytes(body, "cargoquery").ForEach(func(_, row gjson.Result) bool {
		title := row.Get("title")
		raws = append(raws, &model.RawCharacter{
			Name:          title.Get("name").String(),
			Element:       model.Element(title.Get("element").String()),
			RatingGeneral: ratingPtr(title.Get("gw rating")),
			RatingGrind:   ratingPtr(title.Get("gw rating grind")),
			RatingFA:      ratingPtr(title.Get("gw rating fa")),
			RatingHL:      ratingPtr(title.Get("gw rating hl")),
		})
		return true
	})
	return raws
}

// ratingPtr 评分文本转指针：缺失/空串/非数字一律nil（Wiki对未评分角色返回空值）
func ratingPtr(v gjson.Result) *float64 {
	if !v.Exists() {
		return nil
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

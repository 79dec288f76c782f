package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GbfEventSync/internal/model"
	"GbfEventSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// 四个固定发布主题（前缀来自配置，默认gbf/events/）
const (
	TopicCurrent      = "current"
	TopicUpcoming     = "upcoming"
	TopicEndingSoon   = "ending_soon"
	TopicStartingSoon = "starting_soon"
)

// Publisher 通知传输接口，由mqttclient实现
type Publisher interface {
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// eventPayload 发布到主题的活动JSON对象，字段顺序固定保证序列化确定性
type eventPayload struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// PublishState 每主题上次成功发布的序列化内容。进程内状态，重启清零，
// 代价仅是重启后整体重发一次
type PublishState struct {
	last map[string]string
}

// NewPublishState 创建空发布状态
func NewPublishState() *PublishState {
	return &PublishState{last: make(map[string]string)}
}

// NotifierService 周期评估活动分桶并按需发布：仅当桶的序列化内容变化才推送，
// retained语义保证晚到订阅者拿到各主题的最新状态
type NotifierService struct {
	eventRepo   *repository.EventRepository
	pub         Publisher
	topicPrefix string
	interval    time.Duration
	state       *PublishState
	changed     chan struct{}
	logger      *logrus.Logger
	now         func() time.Time // 测试注入时钟
}

// NewNotifierService 创建通知服务
func NewNotifierService(eventRepo *repository.EventRepository, pub Publisher, topicPrefix string, interval time.Duration, logger *logrus.Logger) *NotifierService {
	return &NotifierService{
		eventRepo:   eventRepo,
		pub:         pub,
		topicPrefix: topicPrefix,
		interval:    interval,
		state:       NewPublishState(),
		changed:     make(chan struct{}, 1),
		logger:      logger,
		now:         time.Now,
	}
}

// NotifyChanged CRUD层/同步层的数据变更信号：触发一次立即评估，不阻塞调用方
func (s *NotifierService) NotifyChanged() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// serializeBucket 桶序列化：按ID升序的JSON数组（Classify已保证有序）
func serializeBucket(events []*model.Event) (string, error) {
	payload := make([]eventPayload, 0, len(events))
	for _, e := range events {
		payload = append(payload, eventPayload{
			ID:    e.ID,
			Name:  e.Name,
			Start: e.StartTime.UTC().Format(time.RFC3339),
			End:   e.EndTime.UTC().Format(time.RFC3339),
		})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("序列化桶内容失败: %w", err)
	}
	return string(data), nil
}

// Tick 单次评估：读取全量活动→分桶→逐桶比对上次发布内容→仅发布有变化的桶。
// 传输不可用时整体跳过，下一轮自然携带全量最新状态，无需补发
func (s *NotifierService) Tick(ctx context.Context) error {
	if !s.pub.IsConnected() {
		s.logger.Warn("MQTT未连接，跳过本轮评估")
		return nil
	}

	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("读取活动失败: %w", err)
	}

	snap := Classify(events, s.now())
	buckets := []struct {
		topic  string
		events []*model.Event
	}{
		{TopicCurrent, snap.Current},
		{TopicUpcoming, snap.Upcoming},
		{TopicEndingSoon, snap.EndingSoon},
		{TopicStartingSoon, snap.StartingSoon},
	}

	published := 0
	for _, b := range buckets {
		serialized, err := serializeBucket(b.events)
		if err != nil {
			return err
		}
		topic := s.topicPrefix + b.topic
		if s.state.last[topic] == serialized {
			continue
		}
		if err := s.pub.Publish(topic, []byte(serialized)); err != nil {
			// 发布失败不更新状态，下一轮重试
			s.logger.WithError(err).WithField("topic", topic).Warn("发布失败，下轮重试")
			continue
		}
		s.state.last[topic] = serialized
		published++
		s.logger.WithFields(logrus.Fields{
			"topic": topic,
			"count": len(b.events),
		}).Info("已发布桶更新")
	}

	if published == 0 {
		s.logger.Debug("各桶内容无变化，本轮未发布")
	}
	return nil
}

// Run 周期循环：定时tick，数据变更信号触发立即tick；单轮失败只记日志不退出
func (s *NotifierService) Run(ctx context.Context) {
	s.logger.WithField("interval", s.interval.String()).Info("通知服务启动")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// 启动即评估一次，让retained主题尽快有值
	if err := s.Tick(ctx); err != nil {
		s.logger.WithError(err).Error("评估失败")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("通知服务退出")
			return
		case <-ticker.C:
		case <-s.changed:
		}
		if err := s.Tick(ctx); err != nil {
			s.logger.WithError(err).Error("评估失败")
		}
	}
}

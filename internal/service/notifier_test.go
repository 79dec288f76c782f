package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"GbfEventSync/internal/model"
	"GbfEventSync/internal/repository"

	"gorm.io/gorm"
)

// fakePublisher 测试用传输替身：记录每次发布，可模拟断连与发布失败
type fakePublisher struct {
	connected bool
	failNext  bool
	published []struct {
		topic   string
		payload string
	}
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	if f.failNext {
		f.failNext = false
		return errors.New("broker unreachable")
	}
	f.published = append(f.published, struct {
		topic   string
		payload string
	}{topic, string(payload)})
	return nil
}

func (f *fakePublisher) IsConnected() bool { return f.connected }

func (f *fakePublisher) reset() { f.published = nil }

func (f *fakePublisher) topics() []string {
	var out []string
	for _, p := range f.published {
		out = append(out, p.topic)
	}
	return out
}

func newTestNotifier(t *testing.T, now time.Time) (*NotifierService, *fakePublisher, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	pub := &fakePublisher{connected: true}
	n := NewNotifierService(repository.NewEventRepository(db), pub, "gbf/events/", time.Hour, testLogger())
	n.now = func() time.Time { return now }
	return n, pub, db
}

func seedEvent(t *testing.T, db *gorm.DB, name string, start, end time.Time) {
	t.Helper()
	if err := repository.NewEventRepository(db).Create(context.Background(), &model.Event{
		Name: name, StartTime: start, EndTime: end,
	}); err != nil {
		t.Fatalf("插入测试活动失败: %v", err)
	}
}

func TestNotifierSuppressesUnchanged(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	n, pub, db := newTestNotifier(t, now)
	ctx := context.Background()

	seedEvent(t, db, "Siege", now.Add(-time.Hour), now.Add(48*time.Hour))

	// 首轮：四个主题都没有历史状态，全部发布（含空桶的[]）
	if err := n.Tick(ctx); err != nil {
		t.Fatalf("Tick() unexpected error: %v", err)
	}
	if len(pub.published) != 4 {
		t.Fatalf("first tick published %d, want 4: %v", len(pub.published), pub.topics())
	}

	// 数据不变的后续轮次：零发布
	pub.reset()
	if err := n.Tick(ctx); err != nil {
		t.Fatalf("Tick() unexpected error: %v", err)
	}
	if len(pub.published) != 0 {
		t.Fatalf("second tick published %d, want 0: %v", len(pub.published), pub.topics())
	}
}

func TestNotifierPublishesOnlyAffectedBuckets(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	n, pub, db := newTestNotifier(t, now)
	ctx := context.Background()

	seedEvent(t, db, "Siege", now.Add(-time.Hour), now.Add(48*time.Hour))
	if err := n.Tick(ctx); err != nil {
		t.Fatalf("Tick() unexpected error: %v", err)
	}
	pub.reset()

	// 新增一个48h后开始的活动：只影响upcoming与starting_soon两个桶
	seedEvent(t, db, "Guild War", now.Add(48*time.Hour), now.Add(120*time.Hour))
	if err := n.Tick(ctx); err != nil {
		t.Fatalf("Tick() unexpected error: %v", err)
	}
	if len(pub.published) != 2 {
		t.Fatalf("published %d, want 2: %v", len(pub.published), pub.topics())
	}
	got := map[string]bool{}
	for _, p := range pub.published {
		got[p.topic] = true
	}
	if !got["gbf/events/upcoming"] || !got["gbf/events/starting_soon"] {
		t.Fatalf("published topics = %v, want upcoming与starting_soon", pub.topics())
	}
}

func TestNotifierSkipsWhenDisconnected(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	n, pub, db := newTestNotifier(t, now)
	ctx := context.Background()

	seedEvent(t, db, "Siege", now.Add(-time.Hour), now.Add(48*time.Hour))

	pub.connected = false
	if err := n.Tick(ctx); err != nil {
		t.Fatalf("Tick() unexpected error: %v", err)
	}
	if len(pub.published) != 0 {
		t.Fatalf("published %d while disconnected, want 0", len(pub.published))
	}

	// 恢复连接后的下一轮携带全量最新状态
	pub.connected = true
	if err := n.Tick(ctx); err != nil {
		t.Fatalf("Tick() unexpected error: %v", err)
	}
	if len(pub.published) != 4 {
		t.Fatalf("published %d after reconnect, want 4", len(pub.published))
	}
}

func TestNotifierRetriesFailedPublish(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	n, pub, db := newTestNotifier(t, now)
	ctx := context.Background()

	seedEvent(t, db, "Siege", now.Add(-time.Hour), now.Add(48*time.Hour))

	// 第一个主题发布失败：状态不得更新，其余主题继续发布
	pub.failNext = true
	if err := n.Tick(ctx); err != nil {
		t.Fatalf("Tick() unexpected error: %v", err)
	}
	if len(pub.published) != 3 {
		t.Fatalf("published %d, want 3", len(pub.published))
	}

	// 下一轮补发失败的主题
	pub.reset()
	if err := n.Tick(ctx); err != nil {
		t.Fatalf("Tick() unexpected error: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d, want 1 retried: %v", len(pub.published), pub.topics())
	}
	if pub.published[0].topic != "gbf/events/current" {
		t.Fatalf("retried topic = %s, want gbf/events/current", pub.published[0].topic)
	}
}

func TestNotifierEndToEndScenario(t *testing.T) {
	// Siege活动(2024-01-01 ~ 2024-01-03)，评估时刻2024-01-02：只在current桶，
	// 距结束恰好24h不算ending_soon
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	n, pub, db := newTestNotifier(t, now)
	ctx := context.Background()

	reconcile := NewReconcileService(
		repository.NewEventRepository(db),
		repository.NewCharacterRepository(db),
		testLogger(),
	)
	batch := []*model.RawEvent{{
		Name:      "Siege",
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}}
	if _, err := reconcile.ReconcileEvents(ctx, batch); err != nil {
		t.Fatalf("ReconcileEvents() unexpected error: %v", err)
	}

	if err := n.Tick(ctx); err != nil {
		t.Fatalf("Tick() unexpected error: %v", err)
	}
	for _, p := range pub.published {
		if p.topic == "gbf/events/current" {
			if !strings.Contains(p.payload, "Siege") {
				t.Fatalf("current payload = %s, want Siege", p.payload)
			}
			continue
		}
		if p.payload != "[]" {
			t.Fatalf("topic %s payload = %s, want empty bucket", p.topic, p.payload)
		}
	}

	// 重放同一批次：存量不变，下一轮零发布
	if _, err := reconcile.ReconcileEvents(ctx, batch); err != nil {
		t.Fatalf("ReconcileEvents() unexpected error: %v", err)
	}
	var count int64
	db.Model(&model.Event{}).Count(&count)
	if count != 1 {
		t.Fatalf("stored events = %d, want exactly 1", count)
	}

	pub.reset()
	if err := n.Tick(ctx); err != nil {
		t.Fatalf("Tick() unexpected error: %v", err)
	}
	if len(pub.published) != 0 {
		t.Fatalf("published %d after identical re-ingestion, want 0", len(pub.published))
	}
}

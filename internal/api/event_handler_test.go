package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"GbfEventSync/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeNotifier 记录变更信号次数
type fakeNotifier struct {
	notified int
}

func (f *fakeNotifier) NotifyChanged() { f.notified++ }

func newTestRouter(t *testing.T) (*gin.Engine, *fakeNotifier, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Event{}); err != nil {
		t.Fatalf("迁移测试表结构失败: %v", err)
	}

	l := logrus.New()
	l.SetOutput(io.Discard)
	notifier := &fakeNotifier{}
	h := NewEventHandler(db, notifier, l)

	r := gin.New()
	r.GET("/events", h.ListEvents)
	r.POST("/add-event", h.AddEvent)
	r.PUT("/update-event/:id", h.UpdateEvent)
	r.DELETE("/delete-event/:id", h.DeleteEvent)
	return r, notifier, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("序列化请求体失败: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAddEvent(t *testing.T) {
	r, notifier, db := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/add-event", gin.H{
		"name":       "Siege",
		"time_start": "2024-01-01T00:00:00Z",
		"time_end":   "2024-01-03T00:00:00Z",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if notifier.notified != 1 {
		t.Fatalf("notified = %d, want 1", notifier.notified)
	}

	var count int64
	db.Model(&model.Event{}).Count(&count)
	if count != 1 {
		t.Fatalf("stored events = %d, want 1", count)
	}

	t.Run("duplicate returns conflict", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/add-event", gin.H{
			"name":       "Siege",
			"time_start": "2024-01-01T00:00:00Z",
			"time_end":   "2024-01-03T00:00:00Z",
		})
		if w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", w.Code)
		}
	})

	t.Run("ongoing resubmission rejected as duplicate", func(t *testing.T) {
		body := gin.H{
			"name":       "Ongoing Fest",
			"time_start": "2024-05-01T00:00:00Z",
			"time_end":   "Ongoing",
		}
		w := doJSON(t, r, http.MethodPost, "/add-event", body)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
		}
		// 再次提交同一进行中活动：结束时间哨兵固定，必须识别为重复
		w = doJSON(t, r, http.MethodPost, "/add-event", body)
		if w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", w.Code)
		}
	})

	t.Run("missing name rejected", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/add-event", gin.H{
			"time_start": "2024-01-01T00:00:00Z",
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("end before start rejected", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/add-event", gin.H{
			"name":       "Backwards",
			"time_start": "2024-01-03T00:00:00Z",
			"time_end":   "2024-01-01T00:00:00Z",
		})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}

func TestListEvents(t *testing.T) {
	r, _, db := newTestRouter(t)

	events := []*model.Event{
		{Name: "Older", StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), EndTime: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Name: "Newer", StartTime: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), EndTime: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, e := range events {
		if err := db.Create(e).Error; err != nil {
			t.Fatalf("插入测试活动失败: %v", err)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/events", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got []struct {
		EventID uint64 `json:"event_id"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	// 按开始时间倒序
	if got[0].Name != "Newer" {
		t.Fatalf("got[0].Name = %s, want Newer", got[0].Name)
	}
}

func TestUpdateEvent(t *testing.T) {
	r, notifier, db := newTestRouter(t)

	event := &model.Event{
		Name:      "Guild War",
		StartTime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("插入测试活动失败: %v", err)
	}

	w := doJSON(t, r, http.MethodPut, "/update-event/1", gin.H{"name": "Guild War Redux"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if notifier.notified != 1 {
		t.Fatalf("notified = %d, want 1", notifier.notified)
	}

	t.Run("missing id returns 404", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPut, "/update-event/9999", gin.H{"name": "x"})
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})
}

func TestDeleteEvent(t *testing.T) {
	r, notifier, db := newTestRouter(t)

	event := &model.Event{
		Name:      "Proving Grounds",
		StartTime: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("插入测试活动失败: %v", err)
	}

	w := doJSON(t, r, http.MethodDelete, "/delete-event/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if notifier.notified != 1 {
		t.Fatalf("notified = %d, want 1", notifier.notified)
	}

	t.Run("second delete returns 404", func(t *testing.T) {
		w := doJSON(t, r, http.MethodDelete, "/delete-event/1", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})
}

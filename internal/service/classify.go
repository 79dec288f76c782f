package service

import (
	"sort"
	"time"

	"GbfEventSync/internal/model"
)

// 临近阈值：结束前24小时、开始前72小时（整点边界不计入soon桶）
const (
	endingSoonWindow   = 24 * time.Hour
	startingSoonWindow = 72 * time.Hour
)

// Snapshot 某一评估时刻的活动四分桶结果（派生数据，不落库）
type Snapshot struct {
	Current      []*model.Event // 进行中：start ≤ T ≤ end
	Upcoming     []*model.Event // 未开始：start > T
	EndingSoon   []*model.Event // 进行中且距结束不足24h
	StartingSoon []*model.Event // 未开始且距开始不足72h
}

// Classify 纯函数：按评估时刻now对活动分桶。桶内按ID升序，保证相同输入产出逐字节相同
func Classify(events []*model.Event, now time.Time) *Snapshot {
	sorted := make([]*model.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	snap := &Snapshot{
		Current:      []*model.Event{},
		Upcoming:     []*model.Event{},
		EndingSoon:   []*model.Event{},
		StartingSoon: []*model.Event{},
	}

	for _, e := range sorted {
		switch {
		case !e.StartTime.After(now) && !e.EndTime.Before(now):
			// 进行中（起止边界均含）
			snap.Current = append(snap.Current, e)
			if e.EndTime.Sub(now) < endingSoonWindow {
				snap.EndingSoon = append(snap.EndingSoon, e)
			}
		case e.StartTime.After(now):
			// 未开始
			snap.Upcoming = append(snap.Upcoming, e)
			if e.StartTime.Sub(now) < startingSoonWindow {
				snap.StartingSoon = append(snap.StartingSoon, e)
			}
		}
	}

	return snap
}

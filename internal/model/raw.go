package model

import "time"

// RawEvent Wiki爬取到的原始活动记录（未入库，无ID）
type RawEvent struct {
	Name      string    // 活动名称
	StartTime time.Time // 开始时间
	EndTime   time.Time // 结束时间（Wiki返回Ongoing时为远期兜底时间）
}

// RawCharacter Wiki爬取到的原始角色记录（未入库，无ID）
type RawCharacter struct {
	Name          string   // 角色名称
	Element       Element  // 属性
	RatingGeneral *float64 // 综合评分（Wiki未给出时为nil）
	RatingGrind   *float64 // 周回评分
	RatingFA      *float64 // 全自动评分
	RatingHL      *float64 // 高难评分
}

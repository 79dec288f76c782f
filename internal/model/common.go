package model

import "time"

// OpenEndTime 开放结束时间哨兵：Wiki标记Ongoing或缺失结束时间的活动统一写入该固定值。
// 固定值保证同一活动每次爬取自然键一致，重复入库会被正常跳过
var OpenEndTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// IsOpenEnd 判断是否为开放结束时间
func IsOpenEnd(t time.Time) bool {
	return t.Equal(OpenEndTime)
}

// Element 角色属性枚举
type Element string

const (
	ElementFire  Element = "Fire"
	ElementWater Element = "Water"
	ElementEarth Element = "Earth"
	ElementWind  Element = "Wind"
	ElementLight Element = "Light"
	ElementDark  Element = "Dark"
)

// ValidElement 判断属性是否为已知枚举值
func ValidElement(e Element) bool {
	switch e {
	case ElementFire, ElementWater, ElementEarth, ElementWind, ElementLight, ElementDark:
		return true
	}
	return false
}

// RatingKind 评分维度枚举（对应characters表的四个评分列）
type RatingKind string

const (
	RatingKindGeneral  RatingKind = "general"
	RatingKindGrind    RatingKind = "grind"
	RatingKindFullAuto RatingKind = "full-auto"
	RatingKindHighLvl  RatingKind = "high-level"
)

// RatingColumn 评分维度→数据库列名映射
func RatingColumn(k RatingKind) (string, bool) {
	switch k {
	case RatingKindGeneral:
		return "gw_rating", true
	case RatingKindGrind:
		return "gw_rating_grind", true
	case RatingKindFullAuto:
		return "gw_rating_fa", true
	case RatingKindHighLvl:
		return "gw_rating_hl", true
	}
	return "", false
}

package model

import (
	"time"

	"gorm.io/datatypes"
)

type Event struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Name      string    `gorm:"column:name;type:varchar(256);not null;uniqueIndex:uk_event_natural;comment:活动名称"`
	StartTime time.Time `gorm:"column:start_time;type:timestamp;not null;uniqueIndex:uk_event_natural;comment:开始时间"`
	EndTime   time.Time `gorm:"column:end_time;type:timestamp;not null;uniqueIndex:uk_event_natural;comment:结束时间"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;comment:创建时间"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;comment:更新时间"`
}

type Character struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Name          string    `gorm:"column:name;type:varchar(128);not null;uniqueIndex:uk_character_natural;comment:角色名称"`
	Element       Element   `gorm:"column:element;type:varchar(16);not null;uniqueIndex:uk_character_natural;comment:属性"`
	RatingGeneral *float64  `gorm:"column:gw_rating;type:numeric(4,2);comment:综合评分"`
	RatingGrind   *float64  `gorm:"column:gw_rating_grind;type:numeric(4,2);comment:周回评分"`
	RatingFA      *float64  `gorm:"column:gw_rating_fa;type:numeric(4,2);comment:全自动评分"`
	RatingHL      *float64  `gorm:"column:gw_rating_hl;type:numeric(4,2);comment:高难评分"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamp;comment:创建时间"`
	UpdatedAt     time.Time `gorm:"column:updated_at;type:timestamp;comment:更新时间"`
}

type Recommendation struct {
	ID             uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	RecUUID        string         `gorm:"column:rec_uuid;type:varchar(64);uniqueIndex;not null;comment:全局唯一ID"`
	Element        string         `gorm:"column:element;type:varchar(16);comment:属性过滤条件"`
	RatingKind     string         `gorm:"column:rating_kind;type:varchar(16);comment:评分维度过滤条件"`
	CharacterCount int            `gorm:"column:character_count;type:int;not null;comment:参与分析的角色数"`
	Characters     datatypes.JSON `gorm:"column:characters;type:jsonb;not null;comment:角色数据快照"`
	Reply          string         `gorm:"column:reply;type:text;not null;comment:模型回复"`
	CreatedAt      time.Time      `gorm:"column:created_at;type:timestamp;comment:创建时间"`
}

func (Event) TableName() string          { return "events" }
func (Character) TableName() string      { return "characters" }
func (Recommendation) TableName() string { return "recommendations" }

package tour

// 线路事件类型
const (
	EventCreated  = "tour.created"
	EventUpdated  = "tour.updated"
	EventDeleted  = "tour.deleted"
	EventImported = "tour.imported"
	EventPurged   = "tour.purged"
)

// EventTypes 全部线路事件
var EventTypes = []string{EventCreated, EventUpdated, EventDeleted, EventImported, EventPurged}

// Event 线路变更事件
type Event struct {
	Type   string `json:"type"`
	TourID int64  `json:"tourId,string,omitempty"`
	Name   string `json:"name,omitempty"`
	// Count 导入或清空的条数
	Count int64 `json:"count,omitempty"`
}

// EventType 实现 domain.IDomainEvent
func (e Event) EventType() string { return e.Type }

// Created 创建事件
func Created(t *Tour) Event {
	return Event{Type: EventCreated, TourID: t.ID, Name: t.Name}
}

// Updated 更新事件
func Updated(t *Tour) Event {
	return Event{Type: EventUpdated, TourID: t.ID, Name: t.Name}
}

// Deleted 删除事件
func Deleted(id int64) Event {
	return Event{Type: EventDeleted, TourID: id}
}

// Imported 批量导入事件
func Imported(n int) Event {
	return Event{Type: EventImported, Count: int64(n)}
}

// Purged 清空事件
func Purged(n int64) Event {
	return Event{Type: EventPurged, Count: n}
}

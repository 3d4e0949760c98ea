package model

import "time"

// Bucketlist is a named collection of goals owned by one user.
type Bucketlist struct {
	ID        int64     `json:"id"            gorm:"primaryKey"`
	Name      string    `json:"name"          gorm:"size:100;not null"`
	OwnerID   int64     `json:"owner_id"      gorm:"not null;index"`
	CreatedAt time.Time `json:"date_created"`
	UpdatedAt time.Time `json:"date_modified"`

	Items []Item `json:"items" gorm:"foreignKey:BucketlistID;constraint:OnDelete:CASCADE"`
}

// Item is a single goal inside a bucketlist.
//
// CompletedAt is nil unless Done is true. Use MarkDone to change Done so the
// two fields never disagree.
type Item struct {
	ID           int64      `json:"id"             gorm:"primaryKey"`
	Name         string     `json:"name"           gorm:"size:100;not null"`
	Description  string     `json:"description"    gorm:"size:500;not null;default:''"`
	Done         bool       `json:"done"           gorm:"not null;default:false"`
	CompletedAt  *time.Time `json:"date_completed" gorm:"column:completed_at"`
	BucketlistID int64      `json:"bucketlist_id"  gorm:"not null;index"`
	CreatedAt    time.Time  `json:"date_created"`
	UpdatedAt    time.Time  `json:"date_modified"`
}

// MarkDone sets the completion state. Marking an already-done item done again
// keeps the original completion time; marking it not done clears the time.
func (i *Item) MarkDone(done bool, now time.Time) {
	switch {
	case done && (!i.Done || i.CompletedAt == nil):
		t := now
		i.CompletedAt = &t
	case !done:
		i.CompletedAt = nil
	}
	i.Done = done
}

package neos

import "time"

// NEO is one near-Earth object as surfaced to the frontend: name plus the
// rounded physical and trajectory numbers from the feed.
type NEO struct {
	Name         string  `json:"name"`
	Diameter     float64 `json:"diameter"`      // meters, whole
	Speed        float64 `json:"speed"`         // km/s, 2 decimals
	MissDistance float64 `json:"miss_distance"` // lunar distances, 1 decimal
	Date         string  `json:"date"`          // ISO calendar date
}

// FavoriteNEO is a user's saved NEO. The physical attributes are a snapshot
// taken at save time so the favorite stays viewable after the feed stops
// returning the object.
type FavoriteNEO struct {
	UserEmail    string    `gorm:"column:user_email;primaryKey;size:320;not null"`
	Name         string    `gorm:"column:name;primaryKey;size:100;not null"`
	Diameter     float64   `gorm:"column:diameter;not null"`
	Speed        float64   `gorm:"column:speed;not null"`
	MissDistance float64   `gorm:"column:miss_distance;not null"`
	Date         string    `gorm:"column:date;size:50;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (FavoriteNEO) TableName() string {
	return "favorite_neos"
}

// Record converts the stored snapshot back into a feed-shaped value.
func (f FavoriteNEO) Record() NEO {
	return NEO{
		Name:         f.Name,
		Diameter:     f.Diameter,
		Speed:        f.Speed,
		MissDistance: f.MissDistance,
		Date:         f.Date,
	}
}

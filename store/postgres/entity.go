package postgres

import (
	"time"

	mediarouter "github.com/shoraid/go-media-router"
)

// mediaRecord is the persisted row of a mediarouter.MediaRecord.
type mediaRecord struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	MediaID         string    `gorm:"type:varchar(32);not null"`
	OwnerID         string    `gorm:"type:varchar(128);not null;index:idx_media_records_owner_created,priority:1"`
	ObjectKey       string    `gorm:"type:varchar(512);not null"`
	ThumbnailKey    *string   `gorm:"type:varchar(512)"`
	MediaKind       string    `gorm:"type:varchar(16);not null"`
	ByteSize        int64     `gorm:"not null"`
	MimeType        string    `gorm:"type:varchar(128);not null"`
	Width           int       `gorm:"not null;default:0"`
	Height          int       `gorm:"not null;default:0"`
	DurationSeconds *float64  `gorm:"type:double precision"`
	ProviderID      int       `gorm:"type:smallint;not null;index"`
	Title           string    `gorm:"type:varchar(255);not null;default:''"`
	Description     string    `gorm:"type:text;not null;default:''"`
	CreatedAt       time.Time `gorm:"not null;index:idx_media_records_owner_created,priority:2,sort:desc"`
}

func (mediaRecord) TableName() string {
	return "media_records"
}

func toEntity(r *mediarouter.MediaRecord) mediaRecord {
	return mediaRecord{
		ID:              r.ID,
		MediaID:         r.MediaID,
		OwnerID:         r.OwnerID,
		ObjectKey:       r.ObjectKey,
		ThumbnailKey:    r.ThumbnailKey,
		MediaKind:       string(r.Kind),
		ByteSize:        r.ByteSize,
		MimeType:        r.MimeType,
		Width:           r.Width,
		Height:          r.Height,
		DurationSeconds: r.DurationSeconds,
		ProviderID:      int(r.ProviderID),
		Title:           r.Title,
		Description:     r.Description,
		CreatedAt:       r.CreatedAt,
	}
}

func mapEntity(e mediaRecord) mediarouter.MediaRecord {
	return mediarouter.MediaRecord{
		ID:              e.ID,
		MediaID:         e.MediaID,
		OwnerID:         e.OwnerID,
		ObjectKey:       e.ObjectKey,
		ThumbnailKey:    e.ThumbnailKey,
		Kind:            mediarouter.MediaKind(e.MediaKind),
		ByteSize:        e.ByteSize,
		MimeType:        e.MimeType,
		Width:           e.Width,
		Height:          e.Height,
		DurationSeconds: e.DurationSeconds,
		ProviderID:      mediarouter.ProviderID(e.ProviderID),
		Title:           e.Title,
		Description:     e.Description,
		CreatedAt:       e.CreatedAt.UTC(),
	}
}

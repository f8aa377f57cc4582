// Package postgres persists MediaRecords in PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	mediarouter "github.com/shoraid/go-media-router"
)

// Store implements mediarouter.MetadataStore.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ mediarouter.MetadataStore = (*Store)(nil)

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string, log zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	s := New(db)
	if err := s.AutoMigrate(ctx, log); err != nil {
		return nil, err
	}
	return s, nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// AutoMigrate applies database schema changes.
func (s *Store) AutoMigrate(ctx context.Context, log zerolog.Logger) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&mediaRecord{}); err != nil {
		return fmt.Errorf("migrate media records: %w", err)
	}
	log.Info().Msg("applied media record migrations")
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Insert(ctx context.Context, record *mediarouter.MediaRecord) error {
	entity := toEntity(record)
	entity.ID = uuid.NewString()
	entity.CreatedAt = s.now().UTC()

	if err := s.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return fmt.Errorf("insert media record: %w", err)
	}

	record.ID = entity.ID
	record.CreatedAt = entity.CreatedAt
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*mediarouter.MediaRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, mediarouter.ErrRecordNotFound
	}

	var entity mediaRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mediarouter.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get media record: %w", err)
	}

	record := mapEntity(entity)
	return &record, nil
}

func (s *Store) UpdateDetails(ctx context.Context, id, title, description string) (*mediarouter.MediaRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, mediarouter.ErrRecordNotFound
	}

	res := s.db.WithContext(ctx).
		Model(&mediaRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{"title": title, "description": description})
	if res.Error != nil {
		return nil, fmt.Errorf("update media record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, mediarouter.ErrRecordNotFound
	}

	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return mediarouter.ErrRecordNotFound
	}

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&mediaRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete media record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return mediarouter.ErrRecordNotFound
	}
	return nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]mediarouter.MediaRecord, error) {
	var entities []mediaRecord
	if err := listQuery(s.db.WithContext(ctx), ownerID, limit, offset).Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("list media records: %w", err)
	}

	records := make([]mediarouter.MediaRecord, 0, len(entities))
	for _, e := range entities {
		records = append(records, mapEntity(e))
	}
	return records, nil
}

func listQuery(db *gorm.DB, ownerID string, limit, offset int) *gorm.DB {
	return db.Model(&mediaRecord{}).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
}

type usageRow struct {
	ProviderID int
	Objects    int64
	Bytes      int64
}

func (s *Store) UsageByProvider(ctx context.Context) ([]mediarouter.ProviderUsage, error) {
	var rows []usageRow
	if err := usageQuery(s.db.WithContext(ctx)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate storage usage: %w", err)
	}

	usage := make([]mediarouter.ProviderUsage, 0, len(rows))
	for _, r := range rows {
		usage = append(usage, mediarouter.ProviderUsage{
			ProviderID: mediarouter.ProviderID(r.ProviderID),
			Objects:    r.Objects,
			Bytes:      r.Bytes,
		})
	}
	return usage, nil
}

// usageQuery counts thumbnails as objects; their bytes are not tracked.
func usageQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&mediaRecord{}).
		Select("provider_id, COUNT(*) + COUNT(thumbnail_key) AS objects, COALESCE(SUM(byte_size), 0) AS bytes").
		Group("provider_id").
		Order("provider_id")
}

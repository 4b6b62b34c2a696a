package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-client/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// snapshotRecord is one persisted value, scoped by shopper profile.
type snapshotRecord struct {
	Namespace string `gorm:"primaryKey;size:128"`
	Key       string `gorm:"column:snapshot_key;primaryKey;size:128"`
	Value     []byte
	UpdatedAt time.Time
}

func (snapshotRecord) TableName() string { return "storefront_snapshots" }

// GormStore persists snapshots in a sqlite file or a shared postgres database.
type GormStore struct {
	client    *db.Client
	namespace string
}

// NewGormStore migrates the snapshot table and scopes every key to namespace.
func NewGormStore(ctx context.Context, client *db.Client, namespace string) (*GormStore, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if err := client.DB().WithContext(ctx).AutoMigrate(&snapshotRecord{}); err != nil {
		return nil, fmt.Errorf("migrate snapshot table: %w", err)
	}
	return &GormStore{client: client, namespace: namespace}, nil
}

func (g *GormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec snapshotRecord
	err := g.client.DB().WithContext(ctx).
		Where("namespace = ? AND snapshot_key = ?", g.namespace, key).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", key, err)
	}
	return rec.Value, nil
}

func (g *GormStore) Put(ctx context.Context, key string, value []byte) error {
	rec := snapshotRecord{
		Namespace: g.namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	return g.client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "snapshot_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rec).Error
	})
}

func (g *GormStore) Delete(ctx context.Context, key string) error {
	return g.client.DB().WithContext(ctx).
		Where("namespace = ? AND snapshot_key = ?", g.namespace, key).
		Delete(&snapshotRecord{}).Error
}

func (g *GormStore) Close() error {
	return g.client.Close()
}

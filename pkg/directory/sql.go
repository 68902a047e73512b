package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/contactpic/pkg/avatar"
)

// ContactRecord is the GORM model behind the SQL backends.
type ContactRecord struct {
	ID          uint   `gorm:"primaryKey"`
	Address     string `gorm:"uniqueIndex;size:320;not null"`
	DisplayName string `gorm:"size:255"`
	PhotoURI    string `gorm:"size:2048"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the contacts table name.
func (ContactRecord) TableName() string { return "contacts" }

func (r *ContactRecord) toContact() Contact {
	return Contact{Address: r.Address, DisplayName: r.DisplayName, Photo: r.PhotoURI}
}

// SQLProvider keeps contacts in SQLite or PostgreSQL. Both use the same
// GORM code path.
type SQLProvider struct {
	db  *gorm.DB
	typ Type
}

// NewSQLProvider opens the database selected by cfg.Type (sqlite or
// postgres) and migrates the contacts table.
func NewSQLProvider(cfg *Config) (*SQLProvider, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case TypeSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// WAL for concurrent readers, and wait instead of failing on a
		// locked database.
		dsn := cfg.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)

	case TypePostgres:
		dialector = postgres.Open(cfg.Postgres.DSN())

	default:
		return nil, fmt.Errorf("unsupported sql directory type: %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Type == TypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}

	if err := db.AutoMigrate(&ContactRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	return &SQLProvider{db: db, typ: cfg.Type}, nil
}

// Type implements Provider.
func (p *SQLProvider) Type() Type { return p.typ }

// LocatePhoto implements Provider.
func (p *SQLProvider) LocatePhoto(ctx context.Context, address string) (avatar.Locator, bool, error) {
	var rec ContactRecord
	err := p.db.WithContext(ctx).
		Select("photo_uri").
		Where("address = ?", NormalizeAddress(address)).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up contact: %w", err)
	}
	if rec.PhotoURI == "" {
		return "", false, nil
	}
	return avatar.Locator(rec.PhotoURI), true, nil
}

// List implements Lister.
func (p *SQLProvider) List(ctx context.Context) ([]Contact, error) {
	var recs []ContactRecord
	if err := p.db.WithContext(ctx).Order("address").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	out := make([]Contact, len(recs))
	for i := range recs {
		out[i] = recs[i].toContact()
	}
	return out, nil
}

// Put implements Writer.
func (p *SQLProvider) Put(ctx context.Context, c Contact) error {
	c, err := c.normalize()
	if err != nil {
		return err
	}

	rec := ContactRecord{Address: c.Address, DisplayName: c.DisplayName, PhotoURI: c.Photo}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "photo_uri", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to store contact: %w", err)
	}
	return nil
}

// Delete implements Writer.
func (p *SQLProvider) Delete(ctx context.Context, address string) error {
	addr := NormalizeAddress(address)
	result := p.db.WithContext(ctx).Where("address = ?", addr).Delete(&ContactRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete contact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrContactNotFound, addr)
	}
	return nil
}

// Healthcheck pings the database.
func (p *SQLProvider) Healthcheck(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close implements Provider.
func (p *SQLProvider) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package archive

import (
	"context"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"sjsage522/lotteryworker/internal/lottery"
	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

// DrawRow is one archived draw
type DrawRow struct {
	ID        uint      `gorm:"primaryKey"`
	Game      string    `gorm:"size:64;not null;uniqueIndex:idx_draw_key"`
	State     string    `gorm:"size:32;not null"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_draw_key"`
	DrawTime  string    `gorm:"size:10;not null;uniqueIndex:idx_draw_key"`
	Numbers   string    `gorm:"size:64;not null"`
	Extra     string    `gorm:"size:8"`
	UpdatedAt time.Time
}

// TableName pins the table name
func (DrawRow) TableName() string {
	return "lottery_draws"
}

// Archive mirrors each refreshed history into PostgreSQL
type Archive struct {
	db *gorm.DB
}

// Open connects and migrates the draws table
func Open(dsn string) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, pkgerrors.NewStorage("postgres", "failed to connect to database", err)
	}
	if err := db.AutoMigrate(&DrawRow{}); err != nil {
		return nil, pkgerrors.NewStorage("postgres", "auto migrate failed", err)
	}
	return &Archive{db: db}, nil
}

// Replace swaps a game's archived draws for the history's draws in one transaction
func (a *Archive) Replace(ctx context.Context, h *lottery.GameHistory) error {
	rows := Rows(h)
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game = ?", h.Game).Delete(&DrawRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		return pkgerrors.NewStorage("postgres", "failed to archive "+h.Game, err)
	}
	return nil
}

// Count returns how many draws are archived for a game
func (a *Archive) Count(ctx context.Context, game string) (int64, error) {
	var n int64
	err := a.db.WithContext(ctx).Model(&DrawRow{}).Where("game = ?", game).Count(&n).Error
	return n, err
}

// Close closes the underlying connection pool
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Rows converts a history to archive rows, numbers comma-joined
func Rows(h *lottery.GameHistory) []DrawRow {
	rows := make([]DrawRow, 0, len(h.Draws))
	for _, d := range h.Draws {
		rows = append(rows, DrawRow{
			Game:      h.Game,
			State:     h.State,
			Date:      d.Date,
			DrawTime:  string(d.DrawTime),
			Numbers:   strings.Join(d.Numbers, ","),
			Extra:     d.Extra,
			UpdatedAt: h.LastUpdated,
		})
	}
	return rows
}

package repository

import (
	"context"
	"fmt"

	"order_ledger/internal/models"

	"gorm.io/gorm"
)

type archiveRepository struct {
	db *gorm.DB
}

func NewArchiveRepository(db *gorm.DB) ArchiveRepository {
	return &archiveRepository{db: db}
}

func (r *archiveRepository) Columns(kind ArchiveKind) ([]string, error) {
	model := kind.Model()
	if model == nil {
		return nil, fmt.Errorf("unknown archive %q", kind)
	}
	return models.ColumnNames(model)
}

func (r *archiveRepository) Insert(ctx context.Context, kind ArchiveKind, row map[string]any) error {
	table := kind.Table()
	if table == "" {
		return fmt.Errorf("unknown archive %q", kind)
	}
	return mapError(r.db.WithContext(ctx).Table(table).Create(row).Error)
}

func (r *archiveRepository) Get(ctx context.Context, kind ArchiveKind, id int64) (map[string]any, error) {
	table := kind.Table()
	if table == "" {
		return nil, fmt.Errorf("unknown archive %q", kind)
	}
	var rows []map[string]any
	if err := r.db.WithContext(ctx).Table(table).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *archiveRepository) List(ctx context.Context, kind ArchiveKind, limit, offset int) ([]map[string]any, int64, error) {
	table := kind.Table()
	if table == "" {
		return nil, 0, fmt.Errorf("unknown archive %q", kind)
	}
	q := r.db.WithContext(ctx).Table(table)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []map[string]any
	err := paginate(q, limit, offset).Order("id DESC").Find(&rows).Error
	return rows, total, err
}

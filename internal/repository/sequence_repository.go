package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// sequencedTables are the tables whose ids come from NextID. The name is
// interpolated into SQL, so it must stay a fixed whitelist.
var sequencedTables = map[string]bool{
	"orders":         true,
	"order_expired":  true,
	"order_canceled": true,
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewIDAllocator(db *gorm.DB) IDAllocator {
	return &sequenceRepository{db: db}
}

// NextID bumps the counter row of table, never going below the table's
// current MAX(id). The upsert holds the counter row lock until commit, so
// concurrent transactions allocating for the same table queue behind it.
func (r *sequenceRepository) NextID(ctx context.Context, table string) (int64, error) {
	if !sequencedTables[table] {
		return 0, fmt.Errorf("table %q has no id sequence", table)
	}

	query := fmt.Sprintf(`INSERT INTO id_sequences (table_name, last_value)
VALUES (?, (SELECT COALESCE(MAX(id), 0) FROM %[1]s) + 1)
ON CONFLICT (table_name) DO UPDATE
SET last_value = GREATEST(id_sequences.last_value, (SELECT COALESCE(MAX(id), 0) FROM %[1]s)) + 1
RETURNING last_value`, table)

	var next int64
	if err := r.db.WithContext(ctx).Raw(query, table).Scan(&next).Error; err != nil {
		return 0, fmt.Errorf("failed to allocate id for %s: %w", table, err)
	}
	return next, nil
}

package models

import (
	"fmt"
	"sync"

	"gorm.io/gorm/schema"
)

var schemaCache sync.Map

// ColumnNames returns the database column names gorm maps for model.
func ColumnNames(model any) ([]string, error) {
	s, err := schema.Parse(model, &schemaCache, schema.NamingStrategy{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return s.DBNames, nil
}

package counters

import (
	"errors"
	"fmt"

	"estate-backend/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Next increments the named counter and returns the new value.
// tx must be a transaction; the row lock taken by the update serializes concurrent callers
// until that transaction ends, so committed values are unique and gap-free.
func Next(tx *gorm.DB, name string) (int64, error) {
	if name == "" {
		return 0, errors.New("counter name is required")
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.Counter{ID: name, Count: 0}).Error; err != nil {
		return 0, fmt.Errorf("init counter %s: %w", name, err)
	}
	res := tx.Model(&domain.Counter{}).Where("id = ?", name).UpdateColumn("count", gorm.Expr(`"count" + ?`, 1))
	if res.Error != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("increment counter %s: no row", name)
	}
	var c domain.Counter
	if err := tx.Where("id = ?", name).First(&c).Error; err != nil {
		return 0, fmt.Errorf("read counter %s: %w", name, err)
	}
	return c.Count, nil
}

// Current returns the last issued value, 0 when the counter was never used.
func Current(db *gorm.DB, name string) (int64, error) {
	var c domain.Counter
	err := db.Where("id = ?", name).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.Count, nil
}

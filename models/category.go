package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/config"
	mysqlDriver "github.com/go-sql-driver/mysql"
)

// Category is the local authority list of merchandise categories. Rows are
// owned by the BOS reconciliation job; nothing else creates or deletes them.
type Category struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Number    int       `gorm:"uniqueIndex;not null" json:"number"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func AllCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("number").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func FindCategoryByNumber(ctx context.Context, number int) (*Category, error) {
	var category Category
	db := config.GetDB()
	err := db.WithContext(ctx).Where("number = ?", number).Take(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ApplyCategoryChanges applies the registry diff as one unordered bulk.
// A failed op is recorded and the rest still run.
func ApplyCategoryChanges(ctx context.Context, inserts []Category, updates []Category, deleteNumbers []int) BulkWriteResult {
	db := config.GetDB().WithContext(ctx)
	var result BulkWriteResult
	opIndex := 0

	for i := range inserts {
		err := db.Create(&inserts[i]).Error
		if isDuplicateKeyErr(err) {
			// A replayed run already inserted the number; converge on the
			// new name instead of failing the op.
			res := db.Model(&Category{}).
				Where("number = ?", inserts[i].Number).
				Update("name", inserts[i].Name)
			err = res.Error
		}
		if err != nil {
			result.addError(opIndex, err)
		} else {
			result.Matched++
			result.Modified++
		}
		opIndex++
	}

	for i := range updates {
		res := db.Model(&Category{}).
			Where("number = ?", updates[i].Number).
			Update("name", updates[i].Name)
		if res.Error != nil {
			result.addError(opIndex, res.Error)
		} else {
			result.Matched += res.RowsAffected
			result.Modified += res.RowsAffected
		}
		opIndex++
	}

	for _, number := range deleteNumbers {
		res := db.Where("number = ?", number).Delete(&Category{})
		if res.Error != nil {
			result.addError(opIndex, res.Error)
		} else {
			result.Matched += res.RowsAffected
			result.Modified += res.RowsAffected
		}
		opIndex++
	}

	return result
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

package models

import (
	"bitbucket.org/mmdatafocus/station_backend/config"
	"bitbucket.org/mmdatafocus/station_backend/utils"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Category{},
		&Item{},
		&PurchaseOrder{},
		&Site{},
		&CategorySyncRun{}, &CategorySyncError{},
	)
	utils.ErrorPanic(err)
}

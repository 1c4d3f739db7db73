package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/config"
)

// Site maps a human-readable site name to the BOS station key used in
// external lookups.
type Site struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	Name       string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	StationKey string    `gorm:"size:50;not null" json:"station_key"`
	Timezone   string    `gorm:"size:64" json:"timezone"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func AllSites(ctx context.Context) ([]Site, error) {
	var sites []Site
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("name").Find(&sites).Error; err != nil {
		return nil, err
	}
	return sites, nil
}

// FindSiteByName resolves a site, consulting the Redis cache first. Station
// keys change roughly never, so a long TTL is fine.
func FindSiteByName(ctx context.Context, name string) (*Site, error) {
	cacheKey := fmt.Sprintf("site:%s", name)

	var cached Site
	if found, err := config.GetRedisObject(cacheKey, &cached); err == nil && found {
		return &cached, nil
	}

	var site Site
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("name = ?", name).Take(&site).Error; err != nil {
		return nil, err
	}

	_ = config.SetRedisObject(cacheKey, site, 12*time.Hour)
	return &site, nil
}

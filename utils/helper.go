package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/config"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
)

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]bool)
	result := []T{}

	for _, val := range slice {
		if _, ok := seen[val]; !ok {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

func ConvertToLocalTime(utcTime time.Time, timezone string) time.Time {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return utcTime
	}
	return utcTime.In(loc)
}

func GenerateUniqueFilename() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

// ObtainRunLease takes the named Redis lease guarding a pipeline run.
// The caller must Release the returned lock when the run finishes; if the
// process dies the lease expires on its own after ttl.
func ObtainRunLease(ctx context.Context, name string, ttl time.Duration, moduleName string, functionName string) (*redislock.Lock, error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Avoid nil-pointer panics when Redis lock isn't initialized yet.
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized", name, errors.New("redis lock is nil"))
		return nil, errors.New("service not ready (redis lock not initialized)")
	}

	lockKey := fmt.Sprintf("sync-lease:%s", name)
	lock, err := locker.Obtain(ctx, lockKey, ttl, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain run lease", name, err)
		return nil, ErrorRunInProgress
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining run lease", name, err)
		return nil, err
	}
	return lock, nil
}

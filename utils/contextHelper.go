package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/station_backend/appctx"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeySiteName      = appctx.ContextKeySiteName
	ContextKeyRunId         = appctx.ContextKeyRunId
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetSiteNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeySiteName)
}

func GetRunIdFromContext(ctx context.Context) (uint, bool) {
	return appctx.GetUint(ctx, ContextKeyRunId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetSiteNameInContext(ctx context.Context, siteName string) context.Context {
	return appctx.Set(ctx, ContextKeySiteName, siteName)
}

func SetRunIdInContext(ctx context.Context, runId uint) context.Context {
	return appctx.Set(ctx, ContextKeyRunId, runId)
}

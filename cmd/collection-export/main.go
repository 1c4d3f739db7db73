package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/config"
	"bitbucket.org/mmdatafocus/station_backend/export"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// One-shot exporter: snapshots a collection to a fixed CSV object in GCS.
// Scheduled via Cloud Scheduler + Cloud Run jobs; each run replaces the
// previous object so downstream consumers always read a complete file.
func main() {
	table := flag.String("table", "", "table to export (required)")
	columns := flag.String("columns", "", "comma separated column order for the CSV header (required)")
	object := flag.String("object", "", "destination object name (default exports/<table>.csv)")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall export timeout")
	flag.Parse()

	_ = godotenv.Load()
	logger := config.GetLogger()

	if *table == "" || *columns == "" {
		flag.Usage()
		os.Exit(2)
	}
	objectName := *object
	if objectName == "" {
		objectName = fmt.Sprintf("exports/%s.csv", *table)
	}

	job := export.CollectionExportJob{
		Table:      *table,
		Columns:    splitColumns(*columns),
		ObjectName: objectName,
	}
	if err := job.Validate(); err != nil {
		logger.WithFields(logrus.Fields{"field": "flags"}).Error(err)
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := export.RunCollectionExport(ctx, job); err != nil {
		logger.WithFields(logrus.Fields{
			"field":  "export",
			"table":  job.Table,
			"object": job.ObjectName,
		}).Error(err)
		os.Exit(1)
	}
}

func splitColumns(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

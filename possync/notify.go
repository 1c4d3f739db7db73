package possync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/config"
	"bitbucket.org/mmdatafocus/station_backend/models"
	"bitbucket.org/mmdatafocus/station_backend/utils"
	"github.com/xuri/excelize/v2"
)

// NotificationSink receives the finished run report. The production sink
// renders an Excel summary, parks it in GCS, and publishes the subject/body
// envelope for the mailer service.
type NotificationSink interface {
	Notify(ctx context.Context, report *RunReport, run *models.CategorySyncRun) error
}

type pubSubNotifier struct{}

func NewPubSubNotifier() NotificationSink {
	return pubSubNotifier{}
}

func (pubSubNotifier) Notify(ctx context.Context, report *RunReport, run *models.CategorySyncRun) error {
	logger := config.GetLogger()

	attachmentURI := ""
	workbook, err := BuildRunWorkbook(report, run)
	if err != nil {
		config.LogError(logger, "possync", "Notify", "workbook render failed", run.ID, err)
	} else {
		var buf bytes.Buffer
		if err := workbook.Write(&buf); err != nil {
			config.LogError(logger, "possync", "Notify", "workbook write failed", run.ID, err)
		} else {
			// One object per notification; a rerun never clobbers the
			// report an operator already has open.
			objectName := fmt.Sprintf("sync-reports/category-sync-run-%d-%s.xlsx", run.ID, utils.GenerateUniqueFilename())
			if err := utils.UploadBytesToGCS(ctx, objectName, buf.Bytes(),
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
				config.LogError(logger, "possync", "Notify", "workbook upload failed", run.ID, err)
			} else {
				attachmentURI = objectName
			}
		}
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	msg := config.NotificationMessage{
		Subject:       renderSubject(report, run),
		Body:          renderBody(report, run),
		AttachmentURI: attachmentURI,
		SentAt:        time.Now(),
		CorrelationId: correlationId,
	}
	return config.PublishNotification(ctx, msg)
}

func renderSubject(report *RunReport, run *models.CategorySyncRun) string {
	return fmt.Sprintf("Category sync run #%d %s (%d changes, %d errors)",
		run.ID, run.Status, report.RecordsChanged(), len(report.Errors))
}

func renderBody(report *RunReport, run *models.CategorySyncRun) string {
	var b strings.Builder
	finished := utils.ConvertToLocalTime(report.Timestamp, os.Getenv("REPORT_TIMEZONE"))
	fmt.Fprintf(&b, "Category/inventory reconciliation finished at %s.\n\n", finished.Format(time.RFC1123))
	fmt.Fprintf(&b, "Categories: %d added, %d renamed, %d deleted\n",
		len(report.CategoryChanges.Added), len(report.CategoryChanges.Updated), len(report.CategoryChanges.Deleted))
	fmt.Fprintf(&b, "Items: %d recategorized, %d not found in BOS\n",
		report.ItemChanges.Updated, report.ItemChanges.NotFound)
	fmt.Fprintf(&b, "Orders: %d lines moved, %d skipped, %d orders updated\n",
		report.OrderChanges.Moved, report.OrderChanges.Skipped, report.OrderChanges.OrdersUpdated)
	fmt.Fprintf(&b, "Inactive: %d flagged, %d still had inventory, %d inventory flags cleared\n",
		report.InactiveFlags.Marked, report.InactiveFlags.HadInventory, report.InactiveFlags.InventoryCleared)

	if len(report.Errors) > 0 {
		fmt.Fprintf(&b, "\n%d error(s), rerun manually after checking:\n", len(report.Errors))
		for _, runErr := range report.Errors {
			fmt.Fprintf(&b, "  [%s] %s\n", runErr.Stage, runErr.Message)
		}
	}
	return b.String()
}

// BuildRunWorkbook renders the run summary as a two-sheet workbook, one
// sheet of counters and one of errors.
func BuildRunWorkbook(report *RunReport, run *models.CategorySyncRun) (*excelize.File, error) {
	f := excelize.NewFile()
	sheetName := "Summary"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	rows := [][]interface{}{
		{"Run", run.ID},
		{"Status", run.Status},
		{"Finished", report.Timestamp.Format(time.RFC3339)},
		{"Categories added", len(report.CategoryChanges.Added)},
		{"Categories renamed", len(report.CategoryChanges.Updated)},
		{"Categories deleted", len(report.CategoryChanges.Deleted)},
		{"Items recategorized", report.ItemChanges.Updated},
		{"Items not found", report.ItemChanges.NotFound},
		{"Order lines moved", report.OrderChanges.Moved},
		{"Order lines skipped", report.OrderChanges.Skipped},
		{"Orders updated", report.OrderChanges.OrdersUpdated},
		{"Items flagged inactive", report.InactiveFlags.Marked},
		{"Inactive with inventory", report.InactiveFlags.HadInventory},
		{"Inventory flags cleared", report.InactiveFlags.InventoryCleared},
		{"Errors", len(report.Errors)},
	}
	for i, row := range rows {
		f.SetCellValue(sheetName, "A"+fmt.Sprint(i+1), row[0])
		f.SetCellValue(sheetName, "B"+fmt.Sprint(i+1), row[1])
	}

	if len(report.Errors) > 0 {
		errorSheet := "Errors"
		if _, err := f.NewSheet(errorSheet); err != nil {
			return nil, err
		}
		f.SetCellValue(errorSheet, "A1", "Stage")
		f.SetCellValue(errorSheet, "B1", "Message")
		for i, runErr := range report.Errors {
			f.SetCellValue(errorSheet, "A"+fmt.Sprint(i+2), runErr.Stage)
			f.SetCellValue(errorSheet, "B"+fmt.Sprint(i+2), runErr.Message)
		}
	}

	return f, nil
}

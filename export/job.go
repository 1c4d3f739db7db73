package export

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/station_backend/config"
	"bitbucket.org/mmdatafocus/station_backend/utils"
)

// CollectionExportJob streams one table through the flattener into a CSV
// object. The object name is fixed (no timestamp), so each run replaces
// the previous export in place.
type CollectionExportJob struct {
	Table      string
	Columns    []string
	ObjectName string
}

func (j CollectionExportJob) Validate() error {
	if j.Table == "" {
		return fmt.Errorf("table is required")
	}
	if len(j.Columns) == 0 {
		return fmt.Errorf("column list is required")
	}
	if j.ObjectName == "" {
		return fmt.Errorf("object name is required")
	}
	return nil
}

// RunCollectionExport executes the job against the app database. Rows are
// scanned generically (no model struct), lifted into Value, flattened, and
// streamed row by row; nothing is buffered beyond the CSV writer.
func RunCollectionExport(ctx context.Context, job CollectionExportJob) error {
	if err := job.Validate(); err != nil {
		return err
	}

	db := config.GetDB()
	rows, err := db.WithContext(ctx).Table(job.Table).Order("id").Rows()
	if err != nil {
		return fmt.Errorf("open %s: %w", job.Table, err)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return err
	}

	sink, cleanup, err := utils.NewGCSObjectWriter(ctx, job.ObjectName, "text/csv")
	if err != nil {
		return err
	}
	defer cleanup()

	exporter := NewTabularExporter(sink, job.Columns)

	values := make([]interface{}, len(columnNames))
	pointers := make([]interface{}, len(columnNames))
	for i := range values {
		pointers[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return fmt.Errorf("scan %s row: %w", job.Table, err)
		}

		fields := make([]Field, 0, len(columnNames))
		for i, name := range columnNames {
			fields = append(fields, Field{Key: name, Value: valueFromColumn(values[i])})
		}
		if err := exporter.WriteDocument(Object(fields...)); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if err := exporter.Close(); err != nil {
		return err
	}
	// Closing the object writer is what makes the replacement visible.
	if err := sink.Close(); err != nil {
		return err
	}

	config.GetLogger().WithField("table", job.Table).WithField("rows", count).
		WithField("object", job.ObjectName).Info("collection export complete")
	return nil
}

// valueFromColumn lifts a database/sql scan value into the document
// variant. JSON columns decode into real structure so the flattener can
// apply its object/list rules instead of dumping raw bytes.
func valueFromColumn(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case int64:
		return Number(float64(t))
	case float64:
		return Number(t)
	case time.Time:
		return Temporal(t)
	case string:
		return Text(t)
	case []byte:
		if len(t) > 0 && (t[0] == '{' || t[0] == '[') {
			if decoded, err := DecodeJSONValue(t); err == nil {
				return decoded
			}
		}
		return Text(string(t))
	default:
		return Text(fmt.Sprint(t))
	}
}

package csvexport

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/match-export/internal/domain/match"
	"github.com/riskibarqy/match-export/internal/platform/logging"
	"github.com/valyala/bytebufferpool"
)

const DefaultPath = "max_api_test.csv"

var cellEncoder = sonic.Config{SortMapKeys: true}.Froze()

// Writer exports a match.Table as CSV. An existing file at path is replaced.
type Writer struct {
	path   string
	logger *logging.Logger
}

func NewWriter(path string, logger *logging.Logger) *Writer {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Writer{path: path, logger: logger}
}

func (w *Writer) Path() string {
	return w.path
}

func (w *Writer) WriteTable(ctx context.Context, table match.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := renderTable(buf, table); err != nil {
		return crerr.Wrap(err, "render csv")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.replaceFile(buf.B); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "csv written",
		"path", w.path,
		"rows", len(table.Rows),
		"columns", len(table.Columns),
		"bytes", buf.Len(),
	)
	return nil
}

func (w *Writer) replaceFile(data []byte) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return crerr.Wrapf(err, "create output dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return crerr.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return crerr.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return crerr.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return crerr.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return crerr.Wrap(err, "chmod temp file")
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return crerr.Wrapf(err, "replace %s", w.path)
	}
	return nil
}

func renderTable(buf *bytebufferpool.ByteBuffer, table match.Table) error {
	cw := csv.NewWriter(buf)

	header := make([]string, 0, len(table.Columns)+1)
	header = append(header, "")
	header = append(header, table.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(table.Columns)+1)
	for i, row := range table.Rows {
		record[0] = strconv.Itoa(i)
		for j, column := range table.Columns {
			cell, err := renderCell(row[column])
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", i, column, err)
			}
			record[j+1] = cell
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func renderCell(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case []any, map[string]any, match.Record:
		raw, err := cellEncoder.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	default:
		return fmt.Sprint(v), nil
	}
}

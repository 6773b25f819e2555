package storage

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"weather-observer/src/helpers"
	"weather-observer/src/logger"
	"weather-observer/src/models"
)

// -----------------------------------------------------------------------------
// HistoryArchive
//
// Each location keeps its history in a zip archive within the weather
// directory, one deflate-compressed JSON document per date. The entry name
// encodes the location alias and the date; the archive is the source of
// truth for which dates a location holds.
// -----------------------------------------------------------------------------

type HistoryArchive struct {
	Alias  string
	file   WeatherFile
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

// OpenArchive opens the existing history archive of a location.
func OpenArchive(dir *WeatherDir, alias string, log *logger.Logger) (*HistoryArchive, error) {
	file := dir.Archive(alias)
	if !file.Exists() {
		return nil, helpers.NewStorageError(fmt.Sprintf("archive for '%s' does not exist", alias), nil)
	}
	return &HistoryArchive{Alias: alias, file: file, logger: log}, nil
}

// -----------------------------------------------------------------------------

// CreateArchive creates an empty history archive for a new location.
func CreateArchive(dir *WeatherDir, alias string, log *logger.Logger) (*HistoryArchive, error) {
	file := dir.Archive(alias)
	if file.Exists() {
		return nil, helpers.NewStorageError(fmt.Sprintf("archive for '%s' already exists", alias), nil)
	}

	out, err := file.Writer()
	if err != nil {
		return nil, helpers.NewStorageError(fmt.Sprintf("archive for '%s' create failed", alias), err)
	}
	zw := zip.NewWriter(out)
	if err := zw.Close(); err != nil {
		out.Close()
		return nil, helpers.NewStorageError(fmt.Sprintf("archive for '%s' create failed", alias), err)
	}
	if err := out.Close(); err != nil {
		return nil, helpers.NewStorageError(fmt.Sprintf("archive for '%s' create failed", alias), err)
	}
	return &HistoryArchive{Alias: alias, file: file, logger: log}, nil
}

// -----------------------------------------------------------------------------

// entryName builds the archive entry name for a date.
func entryName(alias string, date time.Time) string {
	return fmt.Sprintf("%s/%s-%s.json", alias, alias, date.Format("20060102"))
}

// -----------------------------------------------------------------------------

// entryDate recovers the date from an archive entry name. An entry that does
// not round-trip means the archive is inconsistent.
func entryDate(name string) (time.Time, error) {
	base := path.Base(name)
	stem, ok := strings.CutSuffix(base, ".json")
	if !ok || len(stem) < 8 {
		return time.Time{}, fmt.Errorf("archive entry '%s' has no date", name)
	}
	date, err := time.ParseInLocation("20060102", stem[len(stem)-8:], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("archive entry '%s' has no date: %w", name, err)
	}
	return date, nil
}

// -----------------------------------------------------------------------------

// Dates returns the dates held by the archive, ascending.
func (a *HistoryArchive) Dates() ([]time.Time, error) {
	reader, err := a.open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	dates := make([]time.Time, 0, len(reader.File))
	for _, entry := range reader.File {
		date, err := entryDate(entry.Name)
		if err != nil {
			return nil, helpers.NewStorageError(fmt.Sprintf("archive for '%s' is inconsistent", a.Alias), err)
		}
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// -----------------------------------------------------------------------------

// Summary walks the archive entries and returns the history count together
// with the raw and compressed byte totals. The overall size is the archive
// file itself.
func (a *HistoryArchive) Summary() (models.MHistorySummaries, error) {
	reader, err := a.open()
	if err != nil {
		return models.MHistorySummaries{}, err
	}
	defer reader.Close()

	summary := models.MHistorySummaries{OverallSize: a.file.Size()}
	for _, entry := range reader.File {
		summary.Count++
		summary.RawSize += int64(entry.UncompressedSize64)
		summary.StoreSize += int64(entry.CompressedSize64)
	}
	return summary, nil
}

// -----------------------------------------------------------------------------

// Histories returns the histories whose dates fall within the range,
// ascending by date.
func (a *HistoryArchive) Histories(dateRange models.MDateRange) ([]models.MHistory, error) {
	reader, err := a.open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var histories []models.MHistory
	for _, entry := range reader.File {
		date, err := entryDate(entry.Name)
		if err != nil {
			return nil, helpers.NewStorageError(fmt.Sprintf("archive for '%s' is inconsistent", a.Alias), err)
		}
		if !dateRange.Covers(date) {
			continue
		}
		history, err := a.readEntry(entry)
		if err != nil {
			return nil, err
		}
		histories = append(histories, history)
	}
	sort.Slice(histories, func(i, j int) bool { return histories[i].Date.Before(histories[j].Date) })
	return histories, nil
}

// -----------------------------------------------------------------------------

// Documents walks every history document in the archive, ascending by date.
// It is used to replay an archive into the relational store.
func (a *HistoryArchive) Documents(visit func(date time.Time, document []byte) error) error {
	reader, err := a.open()
	if err != nil {
		return err
	}
	defer reader.Close()

	entries := make([]*zip.File, len(reader.File))
	copy(entries, reader.File)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	for _, entry := range entries {
		date, err := entryDate(entry.Name)
		if err != nil {
			return helpers.NewStorageError(fmt.Sprintf("archive for '%s' is inconsistent", a.Alias), err)
		}
		document, err := a.readDocument(entry)
		if err != nil {
			return err
		}
		if err := visit(date, document); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// Append stores the histories, one entry per date. A history for a date the
// archive already holds replaces the stored one; within the batch the last
// history for a date wins. The written dates are returned.
func (a *HistoryArchive) Append(histories []models.MHistory) ([]time.Time, error) {
	if len(histories) == 0 {
		return nil, nil
	}

	entries := make(map[string][]byte, len(histories))
	byDate := make(map[time.Time]struct{}, len(histories))
	for _, history := range histories {
		date := models.TruncateDate(history.Date)
		history.Date = date
		document, err := EncodeHistory(history)
		if err != nil {
			return nil, helpers.NewStorageError(fmt.Sprintf("archive for '%s' append failed", a.Alias), err)
		}
		entries[entryName(a.Alias, date)] = document
		byDate[date] = struct{}{}
	}

	writer := newArchiveWriter(a.Alias, a.file, a.logger)
	if err := writer.Write(entries); err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// -----------------------------------------------------------------------------

func (a *HistoryArchive) open() (*zip.ReadCloser, error) {
	reader, err := zip.OpenReader(a.file.Path())
	if err != nil {
		return nil, helpers.NewStorageError(fmt.Sprintf("archive for '%s' open failed", a.Alias), err)
	}
	return reader, nil
}

// -----------------------------------------------------------------------------

func (a *HistoryArchive) readDocument(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, helpers.NewStorageError(fmt.Sprintf("archive entry '%s' open failed", entry.Name), err)
	}
	defer rc.Close()

	document, err := io.ReadAll(rc)
	if err != nil {
		return nil, helpers.NewStorageError(fmt.Sprintf("archive entry '%s' read failed", entry.Name), err)
	}
	return document, nil
}

// -----------------------------------------------------------------------------

func (a *HistoryArchive) readEntry(entry *zip.File) (models.MHistory, error) {
	document, err := a.readDocument(entry)
	if err != nil {
		return models.MHistory{}, err
	}
	history, err := DecodeHistory(a.Alias, document)
	if err != nil {
		return models.MHistory{}, helpers.NewStorageError(fmt.Sprintf("archive entry '%s' decode failed", entry.Name), err)
	}
	return history, nil
}

package storage

import (
	"archive/zip"
	"fmt"
	"sort"
	"time"

	"weather-observer/src/helpers"
	"weather-observer/src/logger"
)

// -----------------------------------------------------------------------------
// archiveWriter
//
// Archives are never written in place. An update is staged as a sibling
// `.upd` file holding the retained entries plus the new ones, the live
// archive is copied to a `.bu` backup, the staged file is renamed over the
// live one and the backup is dropped. A crash at any point leaves either the
// old or the new archive intact; stray `.upd`/`.bu` files are removed on the
// way out.
// -----------------------------------------------------------------------------

const (
	updateExt = "upd"
	backupExt = "bu"
)

type archiveWriter struct {
	alias  string
	live   WeatherFile
	update WeatherFile
	backup WeatherFile
	rename func(from, to WeatherFile) error
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

func newArchiveWriter(alias string, live WeatherFile, log *logger.Logger) *archiveWriter {
	return &archiveWriter{
		alias:  alias,
		live:   live,
		update: live.WithExtension(updateExt),
		backup: live.WithExtension(backupExt),
		rename: WeatherFile.Rename,
		logger: log,
	}
}

// -----------------------------------------------------------------------------

// Write replaces the live archive with one holding the retained entries plus
// the given ones. Entry names in the map replace live entries of the same
// name.
func (w *archiveWriter) Write(entries map[string][]byte) error {
	defer w.cleanup()

	if err := w.stage(entries); err != nil {
		return err
	}
	return w.commit()
}

// -----------------------------------------------------------------------------

// stage builds the update archive: live entries not being replaced are
// raw-copied without recompression, then the new entries are written.
func (w *archiveWriter) stage(entries map[string][]byte) error {
	reader, err := zip.OpenReader(w.live.Path())
	if err != nil {
		return helpers.NewStorageError(fmt.Sprintf("archive for '%s' open failed", w.alias), err)
	}
	defer reader.Close()

	out, err := w.update.Writer()
	if err != nil {
		return helpers.NewStorageError(fmt.Sprintf("archive update for '%s' create failed", w.alias), err)
	}
	zw := zip.NewWriter(out)

	fail := func(context string, cause error) error {
		zw.Close()
		out.Close()
		return helpers.NewStorageError(fmt.Sprintf("archive update for '%s' %s", w.alias, context), cause)
	}

	for _, entry := range reader.File {
		if _, replaced := entries[entry.Name]; replaced {
			continue
		}
		if err := zw.Copy(entry); err != nil {
			return fail(fmt.Sprintf("copy of '%s' failed", entry.Name), err)
		}
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: time.Now().UTC(),
		}
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fail(fmt.Sprintf("entry '%s' create failed", name), err)
		}
		if _, err := entry.Write(entries[name]); err != nil {
			return fail(fmt.Sprintf("entry '%s' write failed", name), err)
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return helpers.NewStorageError(fmt.Sprintf("archive update for '%s' finalize failed", w.alias), err)
	}
	if err := out.Close(); err != nil {
		return helpers.NewStorageError(fmt.Sprintf("archive update for '%s' finalize failed", w.alias), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// commit swaps the staged archive in: back up the live file, rename the
// staged file over it, drop the backup. A failed swap restores the backup;
// a failed restore leaves the archive unusable and is reported as such.
func (w *archiveWriter) commit() error {
	if err := w.live.Copy(w.backup); err != nil {
		return helpers.NewStorageError(fmt.Sprintf("archive backup for '%s' failed", w.alias), err)
	}

	if err := w.rename(w.update, w.live); err != nil {
		if restoreErr := w.rename(w.backup, w.live); restoreErr != nil {
			w.logger.Error("archive for '%s' was not recovered: %v", w.alias, restoreErr)
			return helpers.NewUnrecoverableStorageError(
				fmt.Sprintf("archive for '%s' was not recovered", w.alias), restoreErr)
		}
		w.logger.Warning("archive update for '%s' failed, previous archive restored", w.alias)
		return helpers.NewStorageError(fmt.Sprintf("archive update for '%s' failed", w.alias), err)
	}

	if err := w.backup.Remove(); err != nil {
		w.logger.Warning("archive backup for '%s' was not removed: %v", w.alias, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// cleanup removes staging leftovers. It runs on every exit path.
func (w *archiveWriter) cleanup() {
	for _, file := range []WeatherFile{w.update, w.backup} {
		if !file.Exists() {
			continue
		}
		if err := file.Remove(); err != nil {
			w.logger.Warning("leftover %s was not removed: %v", file.Filename, err)
		}
	}
}

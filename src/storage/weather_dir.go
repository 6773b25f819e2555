package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// -----------------------------------------------------------------------------
// WeatherDir
// -----------------------------------------------------------------------------

// WeatherDir is the directory holding every weather data file: the location
// catalog, the per-location archives and the relational database files.
type WeatherDir struct {
	path string
}

// -----------------------------------------------------------------------------

// NewWeatherDir opens the weather directory. The directory must exist.
func NewWeatherDir(path string) (*WeatherDir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("weather directory '%s': %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("weather directory '%s' is not a directory", path)
	}
	return &WeatherDir{path: path}, nil
}

// -----------------------------------------------------------------------------

func (d *WeatherDir) Path() string {
	return d.path
}

// -----------------------------------------------------------------------------

// File returns the manager for a file within the weather directory.
func (d *WeatherDir) File(name string) WeatherFile {
	return NewWeatherFile(filepath.Join(d.path, name))
}

// -----------------------------------------------------------------------------

// Archive returns the manager for a location's history archive.
func (d *WeatherDir) Archive(alias string) WeatherFile {
	return d.File(alias + ".zip")
}

// -----------------------------------------------------------------------------

// ArchiveAliases lists the aliases of every archive file in the directory.
func (d *WeatherDir) ArchiveAliases() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("weather directory '%s': %w", d.path, err)
	}
	var aliases []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, ".zip") {
			aliases = append(aliases, strings.TrimSuffix(name, ".zip"))
		}
	}
	return aliases, nil
}

// -----------------------------------------------------------------------------
// WeatherFile
// -----------------------------------------------------------------------------

// WeatherFile is the manager of one file within the weather directory.
type WeatherFile struct {
	Filename string
	path     string
}

// -----------------------------------------------------------------------------

// NewWeatherFile creates the manager for a file in the weather directory.
func NewWeatherFile(path string) WeatherFile {
	return WeatherFile{Filename: filepath.Base(path), path: path}
}

// -----------------------------------------------------------------------------

func (f WeatherFile) String() string {
	return f.path
}

// -----------------------------------------------------------------------------

func (f WeatherFile) Path() string {
	return f.path
}

// -----------------------------------------------------------------------------

// WithExtension returns the weather file with a new file extension.
func (f WeatherFile) WithExtension(extension string) WeatherFile {
	trimmed := strings.TrimSuffix(f.path, filepath.Ext(f.path))
	return NewWeatherFile(trimmed + "." + extension)
}

// -----------------------------------------------------------------------------

// Exists indicates if the file exists or does not.
func (f WeatherFile) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// -----------------------------------------------------------------------------

// Size returns the size of the file, 0 when it does not exist.
func (f WeatherFile) Size() int64 {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// -----------------------------------------------------------------------------

// Reader opens the file for reading.
func (f WeatherFile) Reader() (*os.File, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("weather file %s: open read error: %w", f.Filename, err)
	}
	return file, nil
}

// -----------------------------------------------------------------------------

// Writer opens the file for writing, creating or truncating it.
func (f WeatherFile) Writer() (*os.File, error) {
	file, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("weather file %s: open write error: %w", f.Filename, err)
	}
	return file, nil
}

// -----------------------------------------------------------------------------

// Touch creates the file when it does not exist.
func (f WeatherFile) Touch() error {
	if f.Exists() {
		return nil
	}
	file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("weather file %s: touch error: %w", f.Filename, err)
	}
	return file.Close()
}

// -----------------------------------------------------------------------------

// Remove deletes the file. Removing a file that does not exist is not an
// error.
func (f WeatherFile) Remove() error {
	if !f.Exists() {
		return nil
	}
	if err := os.Remove(f.path); err != nil {
		return fmt.Errorf("weather file %s: remove error: %w", f.Filename, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Rename renames the weather file to another weather file.
func (f WeatherFile) Rename(to WeatherFile) error {
	if err := os.Rename(f.path, to.path); err != nil {
		return fmt.Errorf("weather file %s: rename to %s error: %w", f.Filename, to.Filename, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Copy copies the weather file contents to another weather file.
func (f WeatherFile) Copy(to WeatherFile) error {
	src, err := f.Reader()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := to.Writer()
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("weather file %s: copy to %s error: %w", f.Filename, to.Filename, err)
	}
	return dst.Close()
}

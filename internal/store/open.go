package store

import "fmt"

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open creates the repository for a configured driver. path is a directory
// for the file driver and a database file for sqlite.
func Open(driver, path string) (Repository, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryRepository(), nil
	case DriverFile:
		if path == "" {
			return nil, fmt.Errorf("file store requires a path")
		}
		return NewFileRepository(path)
	case DriverSQLite:
		if path == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		return NewSQLiteRepository(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

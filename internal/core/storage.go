package core

import (
	"fmt"
	"os"

	"dockcore/internal/infra/persistence/memory"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	DOCKCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	DOCKCORE_SQLITE_PATH: path to sqlite file (default ./dockcore.db)
//	DOCKCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("DOCKCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		path := os.Getenv("DOCKCORE_SQLITE_PATH")
		return NewSQLiteStore(path, engine)
	case StoragePostgres:
		dsn := os.Getenv("DOCKCORE_POSTGRES_DSN")
		return NewPostgresStore(dsn, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

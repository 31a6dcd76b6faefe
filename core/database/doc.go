// Package database handles state database connections.
//
// It provides a wrapper around GORM to configure either a local SQLite file
// (the default; a single on-disk state file written by one process at a time)
// or a MySQL server for deployments that centralize sync state.
//
// # Connect
//
// The generic Connect function establishes a connection based on the
// configured driver. The rest of the application is driver agnostic and
// operates through GORM models in feature/state.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("State database connection failed", err)
//	}
package database

/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomoncle/rdb/utils"
)

var (
	globalMu sync.RWMutex
	globalDB *DB
)

// GetDB returns the global database, or nil before InitDB.
func GetDB() *DB {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalDB
}

// SetDB installs db as the global database.
func SetDB(db *DB) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalDB = db
}

// InitDB opens the global database using the provided configuration and, if
// configured, runs the SQL scripts for the configured environment.
func InitDB(ctx context.Context, cfg *Config) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if cfg.LogConfig.Format != "" {
		utils.ConfigureConsoleLogFormat(cfg.LogConfig.Format)
	}
	if cfg.LogConfig.Level != "" {
		GetLogger().SetLevel(ParseLogLevel(cfg.LogConfig.Level))
	}

	db, err := Open(ctx, &cfg.ConnectionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.ScriptConfig.RunOnStartup {
		runner := NewScriptRunner(db, cfg.ScriptConfig.Environment)
		if cfg.ScriptConfig.Filepath != "" {
			runner.SetRootPath(cfg.ScriptConfig.Filepath)
		}
		if err := runner.Run(ctx); err != nil {
			_ = db.End()
			return nil, fmt.Errorf("failed to run sql scripts: %w", err)
		}
	}

	SetDB(db)
	GetLogger().Info("Database initialization completed!")
	return db, nil
}

// CloseDB closes the global database.
func CloseDB() error {
	globalMu.Lock()
	db := globalDB
	globalDB = nil
	globalMu.Unlock()
	if db == nil {
		return nil
	}
	return db.End()
}

// GetHealthStatus returns the health of the global database.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if db := GetDB(); db != nil {
		return db.HealthCheck(ctx)
	}
	return &HealthStatus{LastError: "Database not initialized"}
}

// GetDatabaseStats returns pool statistics of the global database.
func GetDatabaseStats() *DBStats {
	if db := GetDB(); db != nil {
		return db.Stats()
	}
	return &DBStats{}
}

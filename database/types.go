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
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats of the pool.
type DBStats struct {
	OpenConns    int           `json:"open_conns"`
	InUse        int           `json:"in_use"`
	Idle         int           `json:"idle"`
	WaitCount    int64         `json:"wait_count"`
	WaitDuration time.Duration `json:"wait_duration"`
}

// ConnectionConfig describes how to open the connection pool.
type ConnectionConfig struct {
	Type           string        `json:"type" yaml:"type"` // mysql、postgres、pgx、sqlite
	DSN            string        `json:"dsn" yaml:"dsn"`   // overrides the fields below when set
	Host           string        `json:"host" yaml:"host"`
	Port           int           `json:"port" yaml:"port"`
	Username       string        `json:"username" yaml:"username"`
	Password       string        `json:"password" yaml:"password"`
	DBName         string        `json:"dbname" yaml:"dbname"`
	SSLMode        string        `json:"sslmode" yaml:"sslmode"`
	Charset        string        `json:"charset" yaml:"charset"` // MySQL:utf8mb4
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	EnableQueryLog bool          `json:"enable_query_log" yaml:"enable_query_log"`
	SlowQueryTime  time.Duration `json:"slow_query_time" yaml:"slow_query_time"`
}

// ScriptConfig controls the SQL script runner.
type ScriptConfig struct {
	RunOnStartup bool   `json:"run_on_startup" yaml:"run_on_startup"`
	Filepath     string `json:"filepath" yaml:"filepath"`
	Environment  string `json:"environment" yaml:"environment"`
}

// LogConfig controls the database logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text、json
}

// Config aggregates connection, script and logging settings.
type Config struct {
	ConnectionConfig ConnectionConfig `json:"connection_config" yaml:"connection"`
	ScriptConfig     ScriptConfig     `json:"script_config" yaml:"scripts"`
	LogConfig        LogConfig        `json:"log_config" yaml:"log"`
}

// DefaultConnectionConfig returns a MySQL connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Type:           "mysql",
		Host:           "127.0.0.1",
		Port:           3306,
		Charset:        "utf8mb4",
		ConnectTimeout: time.Second * 10,
		EnableQueryLog: false,
		SlowQueryTime:  time.Second * 2,
	}
}

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep the values of DefaultConnectionConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration document.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{ConnectionConfig: *DefaultConnectionConfig()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

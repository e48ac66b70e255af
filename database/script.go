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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const commonScripts = "common"

var scriptOrderRe = regexp.MustCompile(`^(\d+)_`)

// ScriptRunner executes the SQL files under a root directory: first
// <root>/common, then <root>/environments/<env>. Files run in the order of
// their numeric prefix (01_schema.sql, 02_seed.sql). Each file runs inside
// its own transaction scope, so a failing statement rolls back the whole file.
type ScriptRunner struct {
	db          *DB
	environment string
	rootPath    string
	logger      Logger
}

// ScriptFile describes one discovered SQL file.
type ScriptFile struct {
	Path        string
	Name        string
	Order       int
	Environment string
}

// ScriptResult is the outcome of running one SQL file.
type ScriptResult struct {
	File         string
	Statements   int
	RowsAffected int64
	Duration     time.Duration
	Err          error
}

func NewScriptRunner(db *DB, environment string) *ScriptRunner {
	return &ScriptRunner{
		db:          db,
		environment: environment,
		rootPath:    "configs/sql",
		logger:      GetLogger(),
	}
}

// SetRootPath sets the directory scripts are loaded from.
func (r *ScriptRunner) SetRootPath(path string) *ScriptRunner {
	r.rootPath = path
	return r
}

// Run executes every discovered file and stops at the first failure.
func (r *ScriptRunner) Run(ctx context.Context) error {
	_, err := r.RunWithResults(ctx)
	return err
}

// RunWithResults is Run returning the per-file results.
func (r *ScriptRunner) RunWithResults(ctx context.Context) ([]ScriptResult, error) {
	r.logger.Info("Starting SQL scripts", "environment", r.environment, "path", r.rootPath)

	files, err := r.Files()
	if err != nil {
		return nil, fmt.Errorf("failed to list sql scripts: %w", err)
	}
	if len(files) == 0 {
		r.logger.Info("No SQL scripts found")
		return nil, nil
	}

	results := make([]ScriptResult, 0, len(files))
	for _, file := range files {
		result := r.runFile(ctx, file)
		results = append(results, result)
		if result.Err != nil {
			r.logger.Error("SQL script failed", "file", result.File, "error", result.Err)
			return results, fmt.Errorf("sql script %s: %w", result.File, result.Err)
		}
		r.logger.Info("SQL script executed",
			"file", result.File,
			"statements", result.Statements,
			"rows_affected", result.RowsAffected,
			"duration", result.Duration)
	}

	r.logger.Info("SQL scripts completed", "files", len(results), "environment", r.environment)
	return results, nil
}

// Files lists the scripts in execution order.
func (r *ScriptRunner) Files() ([]ScriptFile, error) {
	files, err := r.filesIn(filepath.Join(r.rootPath, commonScripts), commonScripts)
	if err != nil {
		return nil, err
	}

	if r.environment != "" {
		envFiles, err := r.filesIn(filepath.Join(r.rootPath, "environments", r.environment), r.environment)
		if err != nil {
			return nil, err
		}
		files = append(files, envFiles...)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Environment != files[j].Environment {
			return files[i].Environment == commonScripts
		}
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func (r *ScriptRunner) filesIn(dir, environment string) ([]ScriptFile, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var files []ScriptFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}
		files = append(files, ScriptFile{
			Path:        path,
			Name:        d.Name(),
			Order:       scriptOrder(d.Name()),
			Environment: environment,
		})
		return nil
	})
	return files, err
}

func scriptOrder(name string) int {
	if m := scriptOrderRe.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 999
}

func (r *ScriptRunner) runFile(ctx context.Context, file ScriptFile) ScriptResult {
	start := time.Now()
	result := ScriptResult{File: file.Path}

	content, err := os.ReadFile(file.Path)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}
	rendered, err := r.render(string(content))
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	statements := splitStatements(rendered)
	result.Statements = len(statements)
	if len(statements) == 0 {
		result.Duration = time.Since(start)
		return result
	}

	_, result.Err = r.db.BeginTransactionScope(ctx, func(ctx context.Context, tx *Transaction) (any, error) {
		for _, stmt := range statements {
			res, err := tx.Exec(ctx, stmt, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to execute %q: %w", stmt, err)
			}
			n, _ := res.RowsAffected()
			result.RowsAffected += n
		}
		return nil, nil
	}, nil)
	result.Duration = time.Since(start)
	return result
}

// render expands {{.NAME}} placeholders from the process environment plus
// ENVIRONMENT and TIMESTAMP. Content without placeholders is returned as is.
func (r *ScriptRunner) render(content string) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}
	tmpl, err := template.New("sql").Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse script template: %w", err)
	}

	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	vars["ENVIRONMENT"] = r.environment
	vars["TIMESTAMP"] = time.Now().Format(time.DateTime)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to render script template: %w", err)
	}
	return buf.String(), nil
}

// splitStatements splits on lines ending with ';'. Blank lines and '--'
// comment lines are dropped.
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(line)
		if strings.HasSuffix(line, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		statements = append(statements, current.String())
	}
	return statements
}

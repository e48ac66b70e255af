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

package builder

import (
	"fmt"
	"strings"

	"github.com/uptrace/bun/dialect/feature"
)

// Upsert renders a multi-row Insert that overwrites update on key conflicts.
// Dialects with ON CONFLICT use conflictKeys, "id" when empty; MySQL uses
// ON DUPLICATE KEY UPDATE and ignores conflictKeys.
func (b *Builder) Upsert(table string, rows []Row, update []string, conflictKeys []string) (string, error) {
	if len(update) == 0 {
		return "", fmt.Errorf("%w: upsert into %s has no columns to update", ErrInvalidArgument, table)
	}
	query, err := b.Insert(table, rows, nil)
	if err != nil {
		return "", err
	}

	sets := make([]string, len(update))
	features := b.Dialect().Features()
	switch {
	case features.Has(feature.InsertOnConflict):
		if len(conflictKeys) == 0 {
			conflictKeys = []string{"id"}
		}
		keys := make([]string, len(conflictKeys))
		for i, key := range conflictKeys {
			keys[i] = b.EscapeID(key)
		}
		for i, col := range update {
			id := b.EscapeID(col)
			sets[i] = id + " = EXCLUDED." + id
		}
		return query + " ON CONFLICT (" + strings.Join(keys, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", "), nil
	case features.Has(feature.InsertOnDuplicateKey):
		for i, col := range update {
			id := b.EscapeID(col)
			sets[i] = id + " = VALUES(" + id + ")"
		}
		return query + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", "), nil
	}
	return "", fmt.Errorf("%w: %s does not support upsert", ErrInvalidArgument, b.Dialect().Name())
}

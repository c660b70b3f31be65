// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package postgres

import (
	"fmt"
	"sync/atomic"

	"github.com/poiesic/manualflow/storage"
	"gorm.io/driver/sqlite"
)

var memStoreSeq atomic.Int64

// NewMemoryStore creates an in-memory SQLite-backed store for testing.
// Each call gets its own named memory database so stores never share state;
// cache=shared keeps the pooled connections of one store on the same data.
// The schema is identical to the production one apart from the vector
// column type; vector similarity queries are not available in tests.
// Caller must close the store when done.
func NewMemoryStore() (storage.Store, error) {
	name := fmt.Sprintf("file:memstore%d?mode=memory&cache=shared", memStoreSeq.Add(1))
	backend, err := openWithDialector(sqlite.Open(name))
	if err != nil {
		return nil, err
	}
	return backend, nil
}

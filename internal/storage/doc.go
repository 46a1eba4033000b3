/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements network document persistence and the local catalog.
// It loads and saves network documents (YAML or JSON) with schema validation,
// transactional writes and timestamped backups.
// It also manages the SQLite catalog at <dir>/pathnet.sqlite that lists imported
// networks, keeps their document history, caches computed routes and serves
// full-text search over node and path ids. The catalog is derived data and can
// be deleted and re-imported at any time.
package storage

// Copyright 2026 Tesserae Systems
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


package core

import "fmt"

// ValidateWorkItem validates a WorkItem according to domain rules.
//
// Validation rules:
//   - Source must not be empty
//   - Path must not be empty
//
// NOT validated:
//   - Fkey (the catalog key is opaque and may legitimately be absent for
//     datasources that are not catalog-indexed)
func ValidateWorkItem(item *WorkItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidWorkItem)
	}

	if item.Source == "" {
		return fmt.Errorf("%w: %w", ErrInvalidWorkItem, ErrEmptySource)
	}

	if item.Path == "" {
		return fmt.Errorf("%w: %w", ErrInvalidWorkItem, ErrEmptyPath)
	}

	return nil
}

// ValidateWorkBatch validates a WorkBatch according to domain rules.
//
// Validation rules:
//   - CorrelationID must not be empty (the reply could not be correlated)
//   - RequestedTags must not be empty (no item could be scored)
//   - every item must pass ValidateWorkItem
//
// An empty item list is valid; the reply is simply empty.
func ValidateWorkBatch(batch *WorkBatch) error {
	if batch == nil {
		return fmt.Errorf("%w: batch is nil", ErrInvalidBatch)
	}

	if batch.CorrelationID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBatch, ErrEmptyCorrelationID)
	}

	if len(batch.RequestedTags) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidBatch, ErrNoRequestedTags)
	}

	for i := range batch.Items {
		if err := ValidateWorkItem(&batch.Items[i]); err != nil {
			return fmt.Errorf("%w: item %d: %w", ErrInvalidBatch, i, err)
		}
	}

	return nil
}

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


// Package tagmap assigns extracted field values to caller-named tags.
//
// Matching is substring containment: a requested tag receives the value of
// the first field whose canonical name is contained in the tag name. Field
// order is the tie-break and is part of the contract: a tag like
// "inference_model_version_result" gets whichever candidate the enricher
// lists first. Tags matching no field are assigned the empty string, never
// omitted: the reply always enumerates every requested tag.
package tagmap

import (
	"strings"

	"github.com/tesserae/deepinspect/core"
)

// Map produces the tag-to-value mapping for one item.
// Deterministic: the same tag list and field list always yield the same map.
// Fields with empty names never match.
func Map(requestedTags []string, fields core.Fields) map[string]string {
	tags := make(map[string]string, len(requestedTags))
	for _, tag := range requestedTags {
		tags[tag] = match(tag, fields)
	}
	return tags
}

func match(tag string, fields core.Fields) string {
	for _, field := range fields {
		if field.Name == "" {
			continue
		}
		if strings.Contains(tag, field.Name) {
			return field.Value
		}
	}
	return ""
}

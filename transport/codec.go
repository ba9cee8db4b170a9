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


package transport

import (
	"encoding/json"
	"fmt"

	"github.com/tesserae/deepinspect/core"
)

// ActionID identifies this worker's action in the agent protocol.
const ActionID = "DEEPINSPECT"

type workDoc struct {
	Connection string `json:"connection"`
	Path       string `json:"path"`
	Fkey       string `json:"fkey"`
}

type workActionParams struct {
	ExtractTags []string `json:"extract_tags"`
}

type workMessage struct {
	MessageID    string           `json:"mq_message_id"`
	ActionID     string           `json:"action_id"`
	ActionParams workActionParams `json:"action_params"`
	Docs         []workDoc        `json:"docs"`
}

type replyDoc struct {
	Fkey   string            `json:"fkey"`
	Path   string            `json:"path"`
	Status string            `json:"status"`
	Tags   map[string]string `json:"tags,omitempty"`
}

type replyMessage struct {
	MessageID string     `json:"mq_message_id"`
	ActionID  string     `json:"action_id"`
	Docs      []replyDoc `json:"docs"`
}

// DecodeWorkBatch parses one raw work message into a domain batch.
// Shape violations are ErrDecode; an empty extract_tags list decodes fine
// and is the loop's mapping-error case, not a transport failure.
func DecodeWorkBatch(raw []byte) (*core.WorkBatch, error) {
	var wire workMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if wire.MessageID == "" {
		return nil, fmt.Errorf("%w: missing mq_message_id", ErrDecode)
	}

	items := make([]core.WorkItem, len(wire.Docs))
	for i, doc := range wire.Docs {
		item := core.WorkItem{
			Source: core.SourceID(doc.Connection),
			Path:   doc.Path,
			Fkey:   doc.Fkey,
		}
		if err := core.ValidateWorkItem(&item); err != nil {
			return nil, fmt.Errorf("%w: doc %d: %w", ErrDecode, i, err)
		}
		items[i] = item
	}

	return &core.WorkBatch{
		CorrelationID: wire.MessageID,
		RequestedTags: wire.ActionParams.ExtractTags,
		Items:         items,
	}, nil
}

// EncodeBatchReply serializes a batch reply, one doc per outcome, preserving
// outcome order.
func EncodeBatchReply(reply *core.BatchReply) ([]byte, error) {
	wire := replyMessage{
		MessageID: reply.CorrelationID,
		ActionID:  ActionID,
		Docs:      make([]replyDoc, len(reply.Outcomes)),
	}
	for i, outcome := range reply.Outcomes {
		wire.Docs[i] = replyDoc{
			Fkey:   outcome.Item.Fkey,
			Path:   outcome.Item.Path,
			Status: outcome.Status.String(),
			Tags:   outcome.Tags,
		}
	}

	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return raw, nil
}

// DecodeBatchReply parses an encoded reply back into domain form. Used by
// the journal listing path; item sources are not carried on the reply wire
// and come back empty.
func DecodeBatchReply(raw []byte) (*core.BatchReply, error) {
	var wire replyMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	reply := &core.BatchReply{
		CorrelationID: wire.MessageID,
		Outcomes:      make([]core.ItemOutcome, len(wire.Docs)),
	}
	for i, doc := range wire.Docs {
		status, err := core.ParseStatus(doc.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: doc %d: %w", ErrDecode, i, err)
		}
		reply.Outcomes[i] = core.ItemOutcome{
			Item:   core.WorkItem{Path: doc.Path, Fkey: doc.Fkey},
			Status: status,
			Tags:   doc.Tags,
		}
	}
	return reply, nil
}

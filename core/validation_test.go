package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateWorkItem(t *testing.T) {
	tests := []struct {
		name    string
		item    *WorkItem
		wantErr error
	}{
		{
			name: "valid item",
			item: &WorkItem{Source: "scale1", Path: "/scans/a.dcm", Fkey: "fkey-1"},
		},
		{
			name: "valid item without fkey",
			item: &WorkItem{Source: "scale1", Path: "/scans/a.dcm"},
		},
		{
			name:    "nil item",
			item:    nil,
			wantErr: ErrInvalidWorkItem,
		},
		{
			name:    "empty source",
			item:    &WorkItem{Path: "/scans/a.dcm"},
			wantErr: ErrEmptySource,
		},
		{
			name:    "empty path",
			item:    &WorkItem{Source: "scale1"},
			wantErr: ErrEmptyPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWorkItem(tt.item)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateWorkBatch(t *testing.T) {
	valid := func() *WorkBatch {
		return &WorkBatch{
			CorrelationID: "corr-1",
			RequestedTags: []string{"inference_model_version"},
			Items: []WorkItem{
				{Source: "scale1", Path: "/scans/a.dcm"},
			},
		}
	}

	t.Run("valid batch", func(t *testing.T) {
		assert.NoError(t, ValidateWorkBatch(valid()))
	})

	t.Run("empty item list is valid", func(t *testing.T) {
		batch := valid()
		batch.Items = nil
		assert.NoError(t, ValidateWorkBatch(batch))
	})

	t.Run("nil batch", func(t *testing.T) {
		assert.ErrorIs(t, ValidateWorkBatch(nil), ErrInvalidBatch)
	})

	t.Run("missing correlation id", func(t *testing.T) {
		batch := valid()
		batch.CorrelationID = ""
		assert.ErrorIs(t, ValidateWorkBatch(batch), ErrEmptyCorrelationID)
	})

	t.Run("no requested tags", func(t *testing.T) {
		batch := valid()
		batch.RequestedTags = nil
		assert.ErrorIs(t, ValidateWorkBatch(batch), ErrNoRequestedTags)
	})

	t.Run("bad item surfaces with batch sentinel", func(t *testing.T) {
		batch := valid()
		batch.Items = append(batch.Items, WorkItem{Source: "scale1"})
		err := ValidateWorkBatch(batch)
		assert.ErrorIs(t, err, ErrInvalidBatch)
		assert.ErrorIs(t, err, ErrEmptyPath)
	})
}

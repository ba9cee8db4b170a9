package tagmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tesserae/deepinspect/core"
)

func TestMap_CatalogFields(t *testing.T) {
	fields := core.Fields{
		{Name: "blood_group", Value: "O+"},
		{Name: "email", Value: "a@b.com"},
		{Name: "smoker", Value: "no"},
	}

	tags := Map([]string{"dicom_blood_group", "dicom_email", "dicom_foo"}, fields)

	assert.Equal(t, map[string]string{
		"dicom_blood_group": "O+",
		"dicom_email":       "a@b.com",
		"dicom_foo":         "",
	}, tags)
}

func TestMap_EveryRequestedTagAppears(t *testing.T) {
	tags := Map([]string{"a", "b", "c"}, nil)
	assert.Len(t, tags, 3)
	for _, v := range tags {
		assert.Empty(t, v)
	}
}

func TestMap_FirstMatchWins(t *testing.T) {
	fields := core.Fields{
		{Name: "segfile", Value: "scan_seg.nii"},
		{Name: "model_version", Value: "1.4.0"},
		{Name: "result", Value: "{}"},
	}

	// Tag name contains two candidate field names; declaration order decides.
	tags := Map([]string{"model_version_result"}, fields)
	assert.Equal(t, "1.4.0", tags["model_version_result"])

	// Reversing field order flips the winner.
	reversed := core.Fields{fields[2], fields[1], fields[0]}
	tags = Map([]string{"model_version_result"}, reversed)
	assert.Equal(t, "{}", tags["model_version_result"])
}

func TestMap_Deterministic(t *testing.T) {
	fields := core.Fields{
		{Name: "obj_count", Value: "3"},
		{Name: "result", Value: "{}"},
	}
	requested := []string{"inference_obj_count", "inference_result", "other"}

	first := Map(requested, fields)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Map(requested, fields))
	}
}

func TestMap_EmptyFieldNameNeverMatches(t *testing.T) {
	fields := core.Fields{
		{Name: "", Value: "poison"},
		{Name: "email", Value: "a@b.com"},
	}

	tags := Map([]string{"dicom_email"}, fields)
	assert.Equal(t, "a@b.com", tags["dicom_email"])
}

func TestMap_NoRequestedTags(t *testing.T) {
	tags := Map(nil, core.Fields{{Name: "email", Value: "a@b.com"}})
	assert.Empty(t, tags)
}

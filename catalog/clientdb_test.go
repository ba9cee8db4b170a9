package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tesserae/deepinspect/core"
)

const sampleDB = `123-45-6789,Ada Smith,O+,ada@example.com,54,F,no
987-65-4321,Bo Jones,AB-,bo@example.com,61,M,yes
`

func TestReadClientDB(t *testing.T) {
	db, err := ReadClientDB(strings.NewReader(sampleDB))
	require.NoError(t, err)
	assert.Equal(t, 2, db.Len())

	record, ok := db.Lookup("123-45-6789")
	require.True(t, ok)
	assert.Equal(t, "Ada Smith", record.Name)
	assert.Equal(t, "O+", record.BloodGroup)
	assert.Equal(t, "ada@example.com", record.Email)
	assert.Equal(t, "no", record.Smoker)

	_, ok = db.Lookup("000-00-0000")
	assert.False(t, ok)
}

func TestReadClientDB_BadRow(t *testing.T) {
	_, err := ReadClientDB(strings.NewReader("only,three,columns\n"))
	assert.Error(t, err)
}

func TestLoadClientDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleDB), 0644))

	db, err := LoadClientDB(path)
	require.NoError(t, err)
	assert.Equal(t, 2, db.Len())

	_, err = LoadClientDB(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestEnricher(t *testing.T) {
	stub := &catalogStub{rows: `[{"fkey":"f-1","dicom_pid":"123-45-6789"}]`}
	client, _ := stubClient(t, stub)
	db, err := ReadClientDB(strings.NewReader(sampleDB))
	require.NoError(t, err)

	enricher := NewEnricher(client, db)
	assert.Equal(t, "catalog", enricher.Name())
	assert.False(t, enricher.NeedsDocument())

	fields, err := enricher.Enrich(context.Background(), core.WorkItem{Source: "scale1", Path: "/a", Fkey: "f-1"}, "")
	require.NoError(t, err)

	assert.Equal(t, core.Fields{
		{Name: "blood_group", Value: "O+"},
		{Name: "email", Value: "ada@example.com"},
		{Name: "smoker", Value: "no"},
	}, fields)
}

func TestEnricher_ClientRecordMissing(t *testing.T) {
	// Catalog row exists but the pid has no client-database record.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"rows": `[{"dicom_pid":"000-00-0000"}]`})
	}))
	defer server.Close()

	session, err := NewSession(server.URL, "agent", "secret")
	require.NoError(t, err)
	client, err := NewClient(session)
	require.NoError(t, err)
	db, err := ReadClientDB(strings.NewReader(sampleDB))
	require.NoError(t, err)

	enricher := NewEnricher(client, db)
	_, err = enricher.Enrich(context.Background(), core.WorkItem{Source: "scale1", Path: "/a", Fkey: "f-1"}, "")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

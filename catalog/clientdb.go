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


package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ClientRecord is one row of the side client database.
type ClientRecord struct {
	Name       string
	BloodGroup string
	Email      string
	Age        string
	Sex        string
	Smoker     string
}

// ClientDB is the in-memory client database, loaded once at startup from a
// headerless CSV of id,name,blood_group,email,age,sex,smoker rows.
type ClientDB struct {
	records map[string]ClientRecord
}

// LoadClientDB reads the CSV database at path.
func LoadClientDB(path string) (*ClientDB, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadClientDB(file)
}

// ReadClientDB parses CSV rows from a reader.
func ReadClientDB(r io.Reader) (*ClientDB, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 7

	records := make(map[string]ClientRecord)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("client database: %w", err)
		}

		records[row[0]] = ClientRecord{
			Name:       row[1],
			BloodGroup: row[2],
			Email:      row[3],
			Age:        row[4],
			Sex:        row[5],
			Smoker:     row[6],
		}
	}

	return &ClientDB{records: records}, nil
}

// Lookup returns the record for an id.
func (db *ClientDB) Lookup(id string) (ClientRecord, bool) {
	record, ok := db.records[id]
	return record, ok
}

// Len returns the number of loaded records.
func (db *ClientDB) Len() int {
	return len(db.records)
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/aipdfchat/docchat/internal/models"
)

// normalizeDocuments decodes the three document-list shapes the backend has
// produced, in priority order:
//
//  1. a direct array: [{...}, ...]
//  2. an object with a "documents" array
//  3. an object whose first array-valued field (in key order) holds the list
//
// Anything else is a MalformedResponseError.
func normalizeDocuments(raw []byte) ([]models.Document, error) {
	var direct []models.Document
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	if docs, ok := wrapper["documents"]; ok {
		var out []models.Document
		if err := json.Unmarshal(docs, &out); err == nil {
			return out, nil
		}
	}

	// Key iteration order of the decoded object is not stable, so decode the
	// object a second time preserving the wire order of its keys.
	for _, key := range objectKeys(raw) {
		var out []models.Document
		if err := json.Unmarshal(wrapper[key], &out); err == nil {
			return out, nil
		}
	}

	return nil, &MalformedResponseError{Err: errNoDocumentArray}
}

var errNoDocumentArray = errors.New("no array-valued field in response")

// objectKeys returns a JSON object's top-level keys in wire order.
func objectKeys(raw []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}

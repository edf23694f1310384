// Package corpus loads document collections and relevance judgments from
// JSON and keeps the mapping between external document ids and the ordinals
// the index works with.
package corpus

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/zeebo/blake3"

	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/errors"
)

// Document is one entry of a collection file.
type Document struct {
	ID   string `json:"doc_id"`
	Text string `json:"text"`
}

// UnmarshalJSON accepts doc_id as a JSON string or number and "id" as an
// alias for it.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		DocID json.RawMessage `json:"doc_id"`
		ID    json.RawMessage `json:"id"`
		Text  string          `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	idField := raw.DocID
	if len(idField) == 0 {
		idField = raw.ID
	}
	id, err := parseID(idField)
	if err != nil {
		return err
	}
	d.ID = id
	d.Text = raw.Text
	return nil
}

func parseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("document has no doc_id")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decoding doc_id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("doc_id must be a string or number: %w", err)
	}
	return n.String(), nil
}

// LoadDocuments decodes a JSON array of documents.
func LoadDocuments(r io.Reader) ([]Document, error) {
	var docs []Document
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "decoding documents: %v", err)
	}
	return docs, nil
}

// LoadDocumentsFile reads a documents file and builds its Collection.
func LoadDocumentsFile(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening documents %s: %w", path, err)
	}
	defer f.Close()

	docs, err := LoadDocuments(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	c, err := NewCollection(docs)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	slog.Info("collection loaded", "component", "corpus", "path", path, "docs", c.Len(), "fingerprint", c.Fingerprint())
	return c, nil
}

// LoadGroundTruth decodes an object mapping query text to the ids of its
// relevant documents. Ids may be strings or numbers.
func LoadGroundTruth(r io.Reader) (map[string][]string, error) {
	var raw map[string][]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "decoding ground truth: %v", err)
	}
	truth := make(map[string][]string, len(raw))
	for query, ids := range raw {
		if strings.TrimSpace(query) == "" {
			return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "ground truth has an empty query")
		}
		relevant := make([]string, 0, len(ids))
		for _, id := range ids {
			s, err := parseID(id)
			if err != nil {
				return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "query %q: %v", query, err)
			}
			relevant = append(relevant, s)
		}
		truth[query] = relevant
	}
	return truth, nil
}

// LoadGroundTruthFile reads a ground truth file.
func LoadGroundTruthFile(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ground truth %s: %w", path, err)
	}
	defer f.Close()

	truth, err := LoadGroundTruth(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return truth, nil
}

// Collection is an ordered, immutable set of documents. The ordinal of a
// document is its position in the source list.
type Collection struct {
	ids         []string
	texts       []string
	ordinals    map[string]int
	fingerprint string
}

// NewCollection validates docs and indexes their ids. Duplicate or empty ids
// and an empty list are rejected.
func NewCollection(docs []Document) (*Collection, error) {
	if len(docs) == 0 {
		return nil, apperrors.New(apperrors.ErrEmptyCollection, http.StatusUnprocessableEntity, "collection has no documents")
	}
	c := &Collection{
		ids:      make([]string, len(docs)),
		texts:    make([]string, len(docs)),
		ordinals: make(map[string]int, len(docs)),
	}
	hasher := blake3.New()
	var length [8]byte
	for i, doc := range docs {
		if doc.ID == "" {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "document %d has an empty id", i)
		}
		if prev, dup := c.ordinals[doc.ID]; dup {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"duplicate doc_id %q at positions %d and %d", doc.ID, prev, i)
		}
		c.ordinals[doc.ID] = i
		c.ids[i] = doc.ID
		c.texts[i] = doc.Text

		for _, field := range []string{doc.ID, doc.Text} {
			binary.BigEndian.PutUint64(length[:], uint64(len(field)))
			hasher.Write(length[:])
			hasher.Write([]byte(field))
		}
	}
	c.fingerprint = hex.EncodeToString(hasher.Sum(nil)[:16])
	return c, nil
}

// Len is the number of documents.
func (c *Collection) Len() int {
	return len(c.ids)
}

// IDs returns the document ids in ordinal order. The slice must not be
// modified.
func (c *Collection) IDs() []string {
	return c.ids
}

// Texts returns the document texts in ordinal order. The slice must not be
// modified.
func (c *Collection) Texts() []string {
	return c.texts
}

func (c *Collection) ID(ordinal int) string {
	return c.ids[ordinal]
}

func (c *Collection) Text(ordinal int) string {
	return c.texts[ordinal]
}

// Ordinal looks up a document by id.
func (c *Collection) Ordinal(id string) (int, bool) {
	i, ok := c.ordinals[id]
	return i, ok
}

// Fingerprint is a content hash of every id and text in order. Collections
// with equal fingerprints index identically.
func (c *Collection) Fingerprint() string {
	return c.fingerprint
}

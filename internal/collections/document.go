package collections

import (
	"errors"
	"fmt"

	"estate-backend/internal/pkg/validation"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

// Document is one record of a collection: its id under "id" plus every field.
type Document map[string]interface{}

// ID returns the document id.
func (d Document) ID() string {
	s, _ := d["id"].(string)
	return s
}

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Identified is implemented by typed records that live in a collection.
type Identified interface {
	DocumentID() string
}

// ToDocument converts a typed record into a document tagged with its id.
func ToDocument(v Identified) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	d["id"] = v.DocumentID()
	return d, nil
}

// ToDocuments converts a slice of typed records.
func ToDocuments[T Identified](rows []T) ([]Document, error) {
	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		d, err := ToDocument(r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// SchemaError reports a document whose data does not fit the expected shape.
type SchemaError struct {
	Collection string
	DocumentID string
	Field      string
	Rule       string
	Err        error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("collections: %s/%s: field %q violates %s", e.Collection, e.DocumentID, e.Field, e.Rule)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// DecodeOne converts a document into T and validates it.
func DecodeOne[T any](collection string, doc Document) (T, error) {
	var out T
	b, err := json.Marshal(doc)
	if err != nil {
		return out, &SchemaError{Collection: collection, DocumentID: doc.ID(), Field: "*", Rule: "encodable", Err: err}
	}
	if err := json.Unmarshal(b, &out); err != nil {
		field := "*"
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			field = te.Field
		}
		return out, &SchemaError{Collection: collection, DocumentID: doc.ID(), Field: field, Rule: "type", Err: err}
	}
	if err := validation.Validator().Struct(&out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return out, &SchemaError{Collection: collection, DocumentID: doc.ID(), Field: verrs[0].Field(), Rule: verrs[0].Tag(), Err: err}
		}
		return out, &SchemaError{Collection: collection, DocumentID: doc.ID(), Field: "*", Rule: "valid", Err: err}
	}
	return out, nil
}

// Decode converts every document of a snapshot, stopping at the first SchemaError.
func Decode[T any](snap Snapshot) ([]T, error) {
	out := make([]T, 0, len(snap.Docs))
	for _, d := range snap.Docs {
		v, err := DecodeOne[T](snap.Collection, d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Package ident turns the identifier encodings found in mission documents
// into ObjectIDs. Missions are written by more than one producer, so the same
// reference may arrive as a native ObjectID, an extended-JSON wrapper
// ({"$oid": "<hex>"}) or a bare hex string.
package ident

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const wrappedKey = "$oid"

// Normalize returns the canonical ObjectID for v, or false when v is not a
// recognised identifier shape.
func Normalize(v interface{}) (primitive.ObjectID, bool) {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id, !id.IsZero()
	case *primitive.ObjectID:
		if id == nil {
			return primitive.NilObjectID, false
		}
		return *id, !id.IsZero()
	case string:
		return fromHex(id)
	case *string:
		if id == nil {
			return primitive.NilObjectID, false
		}
		return fromHex(*id)
	case primitive.M:
		return fromWrapped(id[wrappedKey])
	case map[string]interface{}:
		return fromWrapped(id[wrappedKey])
	case map[string]string:
		return fromHex(id[wrappedKey])
	case primitive.D:
		for _, e := range id {
			if e.Key == wrappedKey {
				return fromWrapped(e.Value)
			}
		}
	case bson.Raw:
		return fromRawDocument(id)
	case bson.RawValue:
		return fromRawValue(id)
	}
	return primitive.NilObjectID, false
}

// NormalizeAll normalizes a list, dropping unrecognised entries and repeats.
// It returns the canonical ids in first-seen order and how many entries were
// dropped as unrecognised.
func NormalizeAll(values []interface{}) ([]primitive.ObjectID, int) {
	ids := make([]primitive.ObjectID, 0, len(values))
	seen := make(map[primitive.ObjectID]struct{}, len(values))
	dropped := 0
	for _, v := range values {
		id, ok := Normalize(v)
		if !ok {
			dropped++
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, dropped
}

// Hexes renders normalized ids for API output
func Hexes(values []interface{}) []string {
	ids, _ := NormalizeAll(values)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

// ParseHex validates a path or body identifier
func ParseHex(s string) (primitive.ObjectID, bool) {
	return fromHex(s)
}

func fromHex(s string) (primitive.ObjectID, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 24 {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil || id.IsZero() {
		return primitive.NilObjectID, false
	}
	return id, true
}

// fromWrapped accepts the value under "$oid", which some writers store as a
// string and others as a nested ObjectID.
func fromWrapped(v interface{}) (primitive.ObjectID, bool) {
	switch inner := v.(type) {
	case string:
		return fromHex(inner)
	case primitive.ObjectID:
		return inner, !inner.IsZero()
	}
	return primitive.NilObjectID, false
}

func fromRawDocument(raw bson.Raw) (primitive.ObjectID, bool) {
	val, err := raw.LookupErr(wrappedKey)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return fromRawValue(val)
}

func fromRawValue(val bson.RawValue) (primitive.ObjectID, bool) {
	switch val.Type {
	case bsontype.ObjectID:
		id, ok := val.ObjectIDOK()
		return id, ok && !id.IsZero()
	case bsontype.String:
		s, ok := val.StringValueOK()
		if !ok {
			return primitive.NilObjectID, false
		}
		return fromHex(s)
	case bsontype.EmbeddedDocument:
		doc, ok := val.DocumentOK()
		if !ok {
			return primitive.NilObjectID, false
		}
		return fromRawDocument(doc)
	}
	return primitive.NilObjectID, false
}

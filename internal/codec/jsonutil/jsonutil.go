// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package jsonutil holds the order-preserving JSON object decoding
// shared by the jsonenc and jsonl codecs, adapted from the teacher's
// token-walking style in ion/json.go.
package jsonutil

import (
	"encoding/json"
	"errors"

	"github.com/dkcore/dk/internal/record"
)

var (
	ErrNotObject = errors.New("expected json object record")
)

// DecodeObject reads one '{'...'}' value from dec into a Record,
// preserving source field order. dec must have UseNumber enabled.
func DecodeObject(dec *json.Decoder) (*record.Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok || d != '{' {
		return nil, ErrNotObject
	}
	rec := record.New()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		rec.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeValue(dec *json.Decoder) (record.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return record.Null, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m, err := decodeRawObject(dec)
			if err != nil {
				return record.Null, err
			}
			raw, err := json.Marshal(m)
			if err != nil {
				return record.Null, err
			}
			return record.String(string(raw)), nil
		case '[':
			arr, err := decodeRawArray(dec)
			if err != nil {
				return record.Null, err
			}
			raw, err := json.Marshal(arr)
			if err != nil {
				return record.Null, err
			}
			return record.String(string(raw)), nil
		}
	case nil:
		return record.Null, nil
	case bool:
		return record.Bool(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return record.Int(i), nil
		}
		f, _ := t.Float64()
		return record.Float(f), nil
	case string:
		return record.String(t), nil
	}
	return record.Null, nil
}

func decodeRawObject(dec *json.Decoder) (map[string]any, error) {
	out := map[string]any{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		v, err := decodeRawValue(dec)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeRawArray(dec *json.Decoder) ([]any, error) {
	var out []any
	for dec.More() {
		v, err := decodeRawValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeRawValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); ok {
		switch d {
		case '{':
			return decodeRawObject(dec)
		case '[':
			return decodeRawArray(dec)
		}
	}
	return tok, nil
}

// EncodeOrdered marshals values for names in the given order into a
// JSON object, since map iteration order is unspecified.
func EncodeOrdered(names []string, values map[string]any) ([]byte, error) {
	buf := []byte{'{'}
	for i, n := range names {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := json.Marshal(values[n])
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

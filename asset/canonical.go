// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package asset

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/bitmark-inc/assetcommit/fault"
)

// Canonical - serialise metadata with keys sorted at every level
//
// values are first round tripped through encoding/json with
// UseNumber so that numbers keep their textual form and any Go value
// is reduced to maps, slices and scalars
func Canonical(m Metadata) ([]byte, error) {
	raw, err := json.Marshal(m)
	if nil != err {
		return nil, fault.Wrap(fault.ErrMetadataInvalid, "%s", err)
	}

	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	var generic interface{}
	if err := d.Decode(&generic); nil != err {
		return nil, fault.Wrap(fault.ErrMetadataInvalid, "%s", err)
	}

	buffer := &bytes.Buffer{}
	if err := writeCanonical(buffer, generic); nil != err {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func writeCanonical(buffer *bytes.Buffer, v interface{}) error {
	switch value := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buffer.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buffer.WriteByte(',')
			}
			if err := writeScalar(buffer, k); nil != err {
				return err
			}
			buffer.WriteByte(':')
			if err := writeCanonical(buffer, value[k]); nil != err {
				return err
			}
		}
		buffer.WriteByte('}')

	case []interface{}:
		buffer.WriteByte('[')
		for i, item := range value {
			if i > 0 {
				buffer.WriteByte(',')
			}
			if err := writeCanonical(buffer, item); nil != err {
				return err
			}
		}
		buffer.WriteByte(']')

	default:
		return writeScalar(buffer, value)
	}
	return nil
}

// strings, json.Number, booleans and null
func writeScalar(buffer *bytes.Buffer, v interface{}) error {
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); nil != err {
		return fault.Wrap(fault.ErrMetadataInvalid, "%s", err)
	}
	// Encode always appends a newline
	buffer.Truncate(buffer.Len() - 1)
	return nil
}

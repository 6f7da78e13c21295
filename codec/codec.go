/*
 *	hellorpc demonstrates swapping the wire codec of an RPC client.
 *	Copyright (C) 2022 Arsen Musayelyan
 *
 *	This program is free software: you can redistribute it and/or modify
 *	it under the terms of the GNU General Public License as published by
 *	the Free Software Foundation, either version 3 of the License, or
 *	(at your option) any later version.
 *
 *	This program is distributed in the hope that it will be useful,
 *	but WITHOUT ANY WARRANTY; without even the implied warranty of
 *	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *	GNU General Public License for more details.
 *
 *	You should have received a copy of the GNU General Public License
 *	along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package codec defines the swappable serialization strategy used
// by clients and servers. A codec is chosen at construction time
// and bound to a connection; both ends must agree on the format.
package codec

import (
	"encoding/gob"
	"encoding/json"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// CodecFunc is a function that returns a new Codec
// bound to the given io.ReadWriter
type CodecFunc func(io.ReadWriter) Codec

// Codec is able to encode and decode messages to/from
// the given io.ReadWriter
type Codec interface {
	Encode(val any) error
	Decode(val any) error
}

// Default is the default CodecFunc
var Default = JSON

// JSON is a CodecFunc that creates a JSON Codec
func JSON(rw io.ReadWriter) Codec {
	type jsonCodec struct {
		*json.Encoder
		*json.Decoder
	}
	return jsonCodec{
		Encoder: json.NewEncoder(rw),
		Decoder: json.NewDecoder(rw),
	}
}

// Msgpack is a CodecFunc that creates a Msgpack Codec
func Msgpack(rw io.ReadWriter) Codec {
	type msgpackCodec struct {
		*msgpack.Encoder
		*msgpack.Decoder
	}
	return msgpackCodec{
		Encoder: msgpack.NewEncoder(rw),
		Decoder: msgpack.NewDecoder(rw),
	}
}

// Gob is a CodecFunc that creates a Gob Codec
func Gob(rw io.ReadWriter) Codec {
	type gobCodec struct {
		*gob.Encoder
		*gob.Decoder
	}
	return gobCodec{
		Encoder: gob.NewEncoder(rw),
		Decoder: gob.NewDecoder(rw),
	}
}

// EncodeError reports that a value could not be rendered in the
// codec's format. It is distinct from call failures so callers can
// tell "we couldn't speak the format" from "the peer rejected us".
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return "encode: " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError reports that incoming bytes could not be read
// as the codec's format
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

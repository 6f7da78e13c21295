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

package reflectutil

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

var ErrDecodeNotPointer = errors.New("decode target must be a non-nil pointer")

// Convert attempts to convert the given value to the given type.
// Codecs decode payloads of unknown schema loosely (JSON and msgpack
// produce maps), so values coming off the wire usually need to be
// converted before they can be used as typed messages.
func Convert(in reflect.Value, toType reflect.Type) (reflect.Value, error) {
	// Get input type
	inType := in.Type()

	// If input is already the desired type, return
	if inType == toType {
		return in, nil
	}

	// If the output type is a pointer to the input type
	if reflect.PtrTo(inType) == toType {
		if in.CanAddr() {
			// Return pointer to input
			return in.Addr(), nil
		}

		inPtrVal := reflect.New(inType)
		inPtrVal.Elem().Set(in)
		return inPtrVal, nil
	}

	// If input is a pointer pointing to the output type
	if inType.Kind() == reflect.Ptr && inType.Elem() == toType {
		// Return value being pointed at by input
		return reflect.Indirect(in), nil
	}

	// If input can be converted to desired type, convert and return
	if in.CanConvert(toType) {
		return in.Convert(toType), nil
	}

	// If input is a map, use mapstructure to decode it
	// into the desired type
	if in.Kind() == reflect.Map {
		to := reflect.New(toType).Elem()
		err := mapstructure.Decode(in.Interface(), to.Addr().Interface())
		if err == nil {
			return to, nil
		}
	}

	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", inType, toType)
}

// Decode converts in to the type pointed to by out
// and stores the result in out
func Decode(in any, out any) error {
	outVal := reflect.ValueOf(out)
	if outVal.Kind() != reflect.Ptr || outVal.IsNil() {
		return ErrDecodeNotPointer
	}

	if in == nil {
		return fmt.Errorf("cannot decode nil into %s", outVal.Type().Elem())
	}

	val, err := Convert(reflect.ValueOf(in), outVal.Type().Elem())
	if err != nil {
		return err
	}

	outVal.Elem().Set(val)
	return nil
}

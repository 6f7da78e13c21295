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

// Package hello defines the message schema for the Greeter service.
package hello

// Identifiers of the single unary method this module speaks
const (
	Receiver       = "Greeter"
	MethodSayHello = "SayHello"
)

// Request asks the Greeter to greet Name
type Request struct {
	Name string
}

// Reply carries the greeting returned by the Greeter
type Reply struct {
	Message string
}

// Package envelope implements the JSON envelope protocol spoken by internal
// services:
//
//	{"errno": 0, "error": "", "data": {...}}
//	{"errno": 0, "error": "", "data": {"body": [...]}}
//	{"errno": 0, "error": "", "data": {"body": [...], "paging": {"total": 1, "page": 1, "pageSize": 10}}}
//	{"errno": 404, "error": "not found"}
//
// Parse, FromResponse, and FromError turn raw bodies or transport errors into
// a Result, which is either a success of one of three shapes (object, list,
// paging list) or a Failure. A Result never changes after construction.
//
// Builder produces the outbound side of the same protocol so that every
// envelope a service writes can be read back by Parse unchanged.
package envelope

// Package domain defines the core types for the sensing garden backend.
//
// Everything the platform stores or exports is modeled as a Record: a map
// of field names to Values. Value is a small tagged union mirroring what
// JSON and DynamoDB can both express (null, bool, number, string, list,
// record). Numbers keep their original decimal text end to end, so a
// reading ingested as -74.006 renders as -74.006 in every export, never a
// re-rounded float.
//
// Rules for this package:
//   - No storage clients, no http.Request, no other internal/ imports
//   - Value implements the json and dynamodb attributevalue codec
//     interfaces because Records are the wire format in both directions
//   - Table identity (TableType) and its request-parameter spellings
//     belong here; table name configuration does not
package domain

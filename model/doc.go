// Package model defines stable boundary types for API layers.
//
// Ledger identity (snapshot canonical bytes and CIDs) is derived from these
// structs. They are the only types intended for direct JSON/YAML
// serialization by consumers. Amounts are decimal strings so that no
// precision is lost in transit.
package model

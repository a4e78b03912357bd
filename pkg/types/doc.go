// Package types defines the typegraph entities, the component interfaces
// (TypeRegistry, EntityStore, RuleEngine, RelationGraph, Store), the
// configuration consumed by Store.Attach, and the error taxonomy shared by
// every backend.
//
// Object types and their fields are runtime configuration; objects carry
// their values as an attribute map keyed by field name. Relations between
// objects are governed by relation types and by the per-pair rule matrix.
package types

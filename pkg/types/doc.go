// Package types defines the entity variants, the LocalStore and Remote
// boundaries, configuration, and the standard errors shared by every layer
// of the petcare data engine.
//
// Each entity kind (pet, task, meal, medication, health record, activity
// session, user) is a concrete struct that implements Entity through a
// pointer receiver. Field names in JSON follow the local camelCase
// convention; the remote snake_case convention lives in internal/translate.
package types

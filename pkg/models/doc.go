// Package models defines the entities shared by the local store, the cloud
// API and the services that route between them.
//
// # Identity
//
// Every entity is identified by a typed UUID ([ProfileID], [DatasetID], ...).
// The local store mints ids on the device; the server mints its own when the
// same entity is created in the cloud, which is why migration has to remap
// foreign keys through a [MigrationMapping] table.
//
// # Workspace scoping
//
// Each row carries the id of the workspace it belongs to. Top level entities
// (profiles, datasets, annotated datasets) get it from the caller; children
// inherit it from their parent when stored. The on-device workspace has the
// fixed id [LocalWorkspaceID].
//
// # Wire format
//
// JSON field names are snake_case. Zero ids encode as null, and a data point
// match encodes as a two element array [start, end].
package models

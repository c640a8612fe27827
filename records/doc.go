// Package records implements the repository layer of the scaffold.
//
// A Repository wraps a go-repository-bun repository for one model type and
// adds the rules every resource shares:
//
//   - only fillable fields are written from request data
//   - a supplied id is ignored on store and a new UUID is generated
//   - relation keys ending in _id that carry 0 are stored as null
//   - is_enabled=false stamps disabled_at (on update, only when the record
//     was enabled)
//   - foreign key violations on delete surface as *ConstraintError
//
// Reads go through the query package: FindBy compiles request criteria into
// bun select criteria and returns either a bounded list or a page with
// pagination metadata.
//
// Operations return the affected record. The repository keeps no record
// between calls.
package records

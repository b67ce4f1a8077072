package repository

import "errors"

// Sentinel errors the storage layer reports so the service layer can map
// them onto the API error taxonomy.
var (
	// ErrDuplicateMember is returned when an insert hits the partial unique
	// index on (workspace_id, email) over live rows.
	ErrDuplicateMember = errors.New("member already exists for this email")

	// ErrDuplicateCode is returned when a generated invite code collides.
	ErrDuplicateCode = errors.New("invite code already exists")

	// ErrLinkUsed is returned when the conditional use-marking update
	// matched no row, i.e. the link was redeemed concurrently.
	ErrLinkUsed = errors.New("invite link already used")
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the caller did not pick one. Postgres
// would default the column, sqlite (local runs and tests) would not.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

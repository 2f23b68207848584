/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package docstore

import "errors"

// Errors returned by collections.
var (
	ErrNotFound         = errors.New("document not found")
	ErrAlreadyExists    = errors.New("document already exists")
	ErrSchemaValidation = errors.New("document failed schema validation")
	ErrInvalidID        = errors.New("invalid document id")
	ErrInvalidName      = errors.New("invalid collection name")
	ErrClosed           = errors.New("database is closed")
)

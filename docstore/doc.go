/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package docstore provides file-backed collections of JSON documents.
// Every collection lives in its own directory, one file per document,
// and is fronted by a ttlcache.Cache so repeated reads avoid disk I/O.
package docstore

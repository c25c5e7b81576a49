// Package db embeds the database schema for the order mirror.
package db

import _ "embed"

// Schema contains the DDL for the orders table and its indexes.
//
//go:embed migrations/001_schema.sql
var Schema string

// Package db embeds the storefront database schema.
package db

import _ "embed"

// Schema holds the idempotent DDL for categories, products, coupons and orders.
//
//go:embed migrations/001_schema.sql
var Schema string

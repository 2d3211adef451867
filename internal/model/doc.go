// Package model defines shared data types used across the market data gatherer.
//
// All types mirror the reference database schema.
//
// Conventions:
//   - Prices: integer credits
//   - Timestamps: time.Time in UTC
//   - IDs: int64 database identifiers; 0 means "not yet persisted"
package model

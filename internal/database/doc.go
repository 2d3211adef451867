// Package database provides connection pool management for the market
// reference database.
//
// A single PostgreSQL instance holds everything: commodities, systems,
// stations, factions, live and historic listings, and the best-price
// key/value cache.
package database

// Package ves provides the exchange rate source clients for the Venezuelan Bolivar (VES).
//
// Every client is an independent, timeout-bounded HTTP fetch. Failures are returned
// as errors and are never retried by the client itself; the caller decides which
// fallback applies.
//
// # Clients
//
// ## P2P (USDT)
//
// Default URL: https://criptoya.com/api/binancep2p/USDT/VES/1
// Timeout: 10 seconds per attempt
//
// Queries a P2P aggregator for the USDT/VES market. The aggregator is tried
// directly, then through each configured CORS relay, in order. The first
// attempt with a usable payload wins.
//
// The payload carries "ask" and "bid" sides, each either a flat number or an
// array of numbers or {"price"} objects, pre-sorted by price. The price is the
// mean of the top 3 ads of each side, averaged across both sides when both
// are present.
//
// ## Official
//
// Timeout: 8 seconds
//
// Queries a private aggregator returning the official USD ("bcv" or "usd") and
// EUR ("euro" or "eur") rates. Each field is a flat value or a
// {"price", "change"} object, where change is the upstream percent change.
//
// ## Public fallback
//
// Default URL: https://ve.dolarapi.com/v1/dolares
// Timeout: 8 seconds
//
// Queries a public dollar API returning a list of entries. The entry whose
// "fuente" (or "nombre") is "oficial" carries the official rate in "promedio".
//
// ## Cross rate
//
// Default URL: https://open.er-api.com/v6/latest/USD
// Timeout: 8 seconds
//
// Returns the USD per EUR ratio, as the reciprocal of "conversion_rates.EUR".
//
// ## BCV website
//
// Default URL: https://www.bcv.org.ve/
// Timeout: 10 seconds
//
// Scrapes the official USD and EUR rates from the central bank website.
package ves

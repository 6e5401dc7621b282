// Package tokens reads the instrument token lists produced by the universe
// filtering job.
//
// Each file is a CSV with a header row followed by rows of
// (token, symbol, name, expiry, strike, lotsize, instrumenttype). Only the
// token column is used, in file order.
package tokens

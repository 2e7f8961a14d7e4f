package domain

import "time"

// Comment is an append-only document scoped to a coin. No edit or
// delete exists. CreatedAt holds the server timestamp on reads; the
// local echo of a freshly posted comment carries a client timestamp
// until the next reload.
type Comment struct {
	ID        string
	CoinID    string
	UserID    string
	UserName  string
	Body      string
	CreatedAt time.Time
}

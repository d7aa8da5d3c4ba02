package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux registers the operational routes. Feature modules add their own.
func NewMux(db *sql.DB, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}

package httpapi

import (
	"net/http"

	"github.com/sberahim/sqlalchemy-challenge/internal/config"
)

func NewServer(cfg config.Config, handler http.Handler, observer RequestObserver) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(handler, observer),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

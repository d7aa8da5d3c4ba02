package climate

import (
	"database/sql"
	"net/http"

	"github.com/sberahim/sqlalchemy-challenge/internal/config"
	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/controller"
	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/repository"
	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/service"
)

const breakerName = "record-store"

func RegisterFeature(mux *http.ServeMux, db *sql.DB, cfg config.Config, observer repository.QueryObserver) {
	climateRepository := repository.NewBreakerRepository(
		breakerName,
		repository.BreakerConfig{
			MaxFailures: cfg.BreakerMaxFailures,
			Timeout:     cfg.BreakerTimeout,
			Interval:    cfg.BreakerInterval,
		},
		repository.NewRepository(db),
		observer,
	)
	climateService := service.NewService(climateRepository, service.Options{
		LookbackDays:  cfg.LookbackDays,
		ReferenceDate: cfg.ReferenceDate,
	})
	climateController := controller.NewClimateController(climateService)
	climateController.RegisterRoutes(mux)
}

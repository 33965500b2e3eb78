package controllers

import (
	"net/http"

	"github.com/hubfood/ifood-erp-sync/api/responses"
	"github.com/hubfood/ifood-erp-sync/pkg/config"
	"github.com/hubfood/ifood-erp-sync/pkg/db"
	pkgerrors "github.com/hubfood/ifood-erp-sync/pkg/errors"
	"github.com/hubfood/ifood-erp-sync/pkg/logger"
	"github.com/hubfood/ifood-erp-sync/pkg/redis"
)

const envHeader = "X-Ifoodsync-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set(envHeader, cfg.App.Env)

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

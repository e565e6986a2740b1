package controllers

import (
	"net/http"

	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/api/responses"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/config"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/db"
	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/logger"
	"github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live", "env": cfg.App.Env})
	}
}

// HealthReady reports ready only when every wired dependency responds to a
// ping. Optional dependencies that were never configured are skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database not ready"))
				return
			}
			checks["database"] = "ok"
		}

		if redisClient != nil {
			if err := redisClient.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis not ready"))
				return
			}
			checks["redis"] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{
			"status": "ready",
			"env":    cfg.App.Env,
			"checks": checks,
		})
	}
}

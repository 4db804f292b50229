// cmd/checkout-service/main.go
package main

import (
	"context"

	"storefront/internal/app"
	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/database"
	"storefront/internal/pkg/logger"
)

const serviceName = "checkout-service"

// main 函数是应用的"组装根" (Composition Root)
func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) (func(ctx context.Context), error) {
			db, err := database.Open(appCtx.Config.Infra.Database)
			if err != nil {
				return nil, err
			}
			if err := app.Migrate(db); err != nil {
				return nil, err
			}

			c, err := app.New(context.Background(), appCtx.Config, db)
			if err != nil {
				return nil, err
			}
			c.RegisterRoutes(appCtx.Mux)

			return func(ctx context.Context) {
				if err := c.Close(); err != nil {
					logger.Ctx(ctx).Error().Err(err).Msg("error closing service dependencies")
				}
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}, nil
		},
	})
}

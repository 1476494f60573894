package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/inkwell-labs/inkwell-back/internal/config"
	"github.com/inkwell-labs/inkwell-back/internal/db"
	"github.com/inkwell-labs/inkwell-back/internal/service"
	"github.com/inkwell-labs/inkwell-back/internal/token"
	"github.com/inkwell-labs/inkwell-back/internal/transport"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			NewLogger,
			db.NewGormClient,
			token.NewManager,
			service.NewAuth,
			service.NewPost,
			service.NewBookmark,
			transport.NewHTTPServer,
		),
		fx.Invoke(func(server *transport.HTTPServer) {}),
	)

	app.Run()
}

func NewLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if cfg.IsProduction() {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// Package server assembles the HTTP surface.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"dronewerx/internal/config"
	"dronewerx/internal/domain/fileobject"
	"dronewerx/internal/domain/health"
	"dronewerx/internal/domain/profile"
	"dronewerx/internal/middleware"
	"dronewerx/internal/storage"
)

const healthTimeout = 5 * time.Second

type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Blobs  *storage.Local
	Log    logrus.FieldLogger

	// Optional overrides, used by tests.
	ServiceOptions []fileobject.Option
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.AccessLogger(d.Log),
		middleware.ErrorLogger(d.Log),
		middleware.CORS(d.Config.CORSAllowedOrigins),
		middleware.Timeout(d.Config.RequestTimeout),
	)

	healthHandler := health.NewHandler(d.DB, healthTimeout)
	health.RegisterRoutes(r, healthHandler)

	profileHandler := profile.NewHandler(profile.NewRepository(d.DB))
	profile.RegisterRoutes(r, profileHandler)

	fileService := fileobject.NewService(
		fileobject.NewRepository(d.DB),
		d.Blobs,
		d.Log.WithField("component", "fileobject"),
		d.ServiceOptions...,
	)
	fileHandler := fileobject.NewHandler(fileService, d.Config.Storage.MaxBytes)
	fileobject.RegisterRoutes(r, fileHandler)

	return r
}

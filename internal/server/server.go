// Package server implements the inference HTTP service. All served state --
// the artifact bundle and the dataset store -- is loaded once at startup into
// an immutable Server and shared by every request handler without locking.
package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"incidentcast/internal/artifact"
	"incidentcast/internal/dataset"
	"incidentcast/pkg/errors"
)

// Server is the fully constructed service context. It is never mutated after
// New returns.
type Server struct {
	cfg    Config
	logger zerolog.Logger
	app    *fiber.App

	bundle *artifact.Bundle
	store  *dataset.Store

	// Computed views over the immutable dataset, built once at startup.
	metadata   *dataset.Metadata
	globe      []dataset.CountryStat
	countryIDs map[string]int
	regionIDs  map[string]int

	history *lru.Cache[string, []dataset.YearCount]
}

// New loads the artifacts and dataset and wires the routes. Any failure here
// is fatal by design: the service never starts without a valid model.
func New(cfg Config, logger zerolog.Logger) (*Server, error) {
	bundle, err := artifact.Load(cfg.ArtifactsDir)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("run_id", bundle.Manifest.RunID).
		Int("trees", bundle.Model.NumTrees()).
		Msg("artifacts loaded")

	incidents, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	store, err := dataset.NewStore(incidents)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("incidents", store.Count()).Msg("dataset loaded")

	metadata, err := store.Metadata()
	if err != nil {
		return nil, err
	}
	globe, err := store.GlobeStats()
	if err != nil {
		return nil, err
	}

	history, err := lru.New[string, []dataset.YearCount](cfg.HistoryCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "server: history cache")
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		bundle:     bundle,
		store:      store,
		metadata:   metadata,
		globe:      globe,
		countryIDs: lowerNameIndex(metadata.Countries),
		regionIDs:  lowerNameIndex(metadata.Regions),
		history:    history,
	}

	app := fiber.New(fiber.Config{
		AppName:               "incidentcast",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	app.Use(fiberrecover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
	}))
	app.Use(fiberlogger.New())

	app.Post("/predict", s.handlePredict)
	app.Get("/history", s.handleHistory)
	app.Get("/similar", s.handleSimilar)
	app.Get("/metadata", s.handleMetadata)
	app.Get("/globe", s.handleGlobe)
	app.Get("/health", s.handleHealth)

	s.app = app
	return s, nil
}

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	s.logger.Info().Str("addr", s.cfg.Addr).Msg("listening")
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown drains in-flight requests and closes the dataset store.
func (s *Server) Shutdown() error {
	err := s.app.ShutdownWithTimeout(5 * time.Second)
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// errorHandler turns request errors into structured JSON responses. Request
// errors never crash the process; validation failures map to 400.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	var validationErr *errors.ValidationError
	var unknownErr *errors.UnknownCategoryError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &unknownErr):
		status = fiber.StatusBadRequest
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
	}

	if status >= 500 {
		s.logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func lowerNameIndex(byID map[int]string) map[string]int {
	index := make(map[string]int, len(byID))
	for id, name := range byID {
		index[strings.ToLower(name)] = id
	}
	return index
}

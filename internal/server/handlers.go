package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"incidentcast/internal/artifact"
	"incidentcast/pkg/errors"
)

// predictRequest is the feature tuple for one prediction. Year and country
// are required; the rest default to the dataset's unknown markers.
type predictRequest struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`

	Country string `json:"country"`
	Region  string `json:"region"`

	AttackType string `json:"attack_type"`
	TargetType string `json:"target_type"`
	WeaponType string `json:"weapon_type"`
}

type predictResponse struct {
	Fatalities float64 `json:"fatalities"`

	// UnknownCategories names the categorical fields whose values were not
	// seen during training and were encoded to the reserved sentinel.
	UnknownCategories []string `json:"unknown_categories,omitempty"`
}

func (s *Server) handlePredict(c *fiber.Ctx) error {
	var req predictRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.NewValidationError("body", "malformed JSON", err.Error())
	}

	if req.Year == nil {
		return errors.NewValidationError("year", "required", nil)
	}
	if *req.Year < 1900 || *req.Year > 2100 {
		return errors.NewValidationError("year", "out of range", *req.Year)
	}

	month := 0
	if req.Month != nil {
		if *req.Month < 0 || *req.Month > 12 {
			return errors.NewValidationError("month", "out of range", *req.Month)
		}
		month = *req.Month
	}
	day := 0
	if req.Day != nil {
		if *req.Day < 0 || *req.Day > 31 {
			return errors.NewValidationError("day", "out of range", *req.Day)
		}
		day = *req.Day
	}

	if req.Country == "" {
		return errors.NewValidationError("country", "required", nil)
	}
	countryID, ok := s.countryIDs[strings.ToLower(req.Country)]
	if !ok {
		return errors.NewValidationError("country", "not present in the dataset", req.Country)
	}

	regionID := 0
	if req.Region != "" {
		regionID, ok = s.regionIDs[strings.ToLower(req.Region)]
		if !ok {
			return errors.NewValidationError("region", "not present in the dataset", req.Region)
		}
	}

	estimate, unknown, err := s.bundle.Estimate(artifact.Observation{
		Year:       *req.Year,
		Month:      month,
		Day:        day,
		CountryID:  countryID,
		RegionID:   regionID,
		AttackType: textOrUnknown(req.AttackType),
		TargetType: textOrUnknown(req.TargetType),
		WeaponType: textOrUnknown(req.WeaponType),
	})
	if err != nil {
		return err
	}

	return c.JSON(predictResponse{
		Fatalities:        math.Round(estimate*100) / 100,
		UnknownCategories: unknown,
	})
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	country := c.Query("country")
	if country == "" {
		return errors.NewValidationError("country", "required query parameter", nil)
	}

	key := strings.ToLower(country)
	if cached, ok := s.history.Get(key); ok {
		return c.JSON(cached)
	}

	history, err := s.store.History(country)
	if err != nil {
		return err
	}
	s.history.Add(key, history)
	return c.JSON(history)
}

func (s *Server) handleSimilar(c *fiber.Ctx) error {
	region := c.Query("region")
	if region == "" {
		return errors.NewValidationError("region", "required query parameter", nil)
	}
	lat, err := parseCoord(c.Query("lat"), "lat", 90)
	if err != nil {
		return err
	}
	lon, err := parseCoord(c.Query("lon"), "lon", 180)
	if err != nil {
		return err
	}

	nearby, err := s.store.Similar(region, lat, lon, s.cfg.SimilarLimit)
	if err != nil {
		return err
	}
	return c.JSON(nearby)
}

func (s *Server) handleMetadata(c *fiber.Ctx) error {
	return c.JSON(s.metadata)
}

func (s *Server) handleGlobe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"stats": s.globe})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"run_id":    s.bundle.Manifest.RunID,
		"incidents": s.store.Count(),
	})
}

func parseCoord(raw, field string, bound float64) (float64, error) {
	if raw == "" {
		return 0, errors.NewValidationError(field, "required query parameter", nil)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewValidationError(field, "not a number", raw)
	}
	if math.Abs(v) > bound {
		return 0, errors.NewValidationError(field, "out of range", v)
	}
	return v, nil
}

func textOrUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

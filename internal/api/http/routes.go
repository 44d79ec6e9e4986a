package httpapi

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/air-quality-monitor/internal/airquality"
	"github.com/i474232898/air-quality-monitor/internal/dashboard"
)

var validate = validator.New()

// now is replaced in tests.
var now = time.Now

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *airquality.Service, cities []string) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")

	v1.Get("/cities", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"cities": cities,
		})
	})

	v1.Get("/air-quality", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		table, err := service.Get(c.UserContext(), q.City)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"city":      q.City,
			"dashboard": dashboard.Build(q.City, table, now().UTC()),
			"rows":      table.Rows,
			"columns":   table.Columns,
		})
	})

	v1.Get("/air-quality/export", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		table, err := service.Get(c.UserContext(), q.City)
		if err != nil {
			return err
		}
		if table.Empty() {
			return fiber.NewError(fiber.StatusNotFound, "no air quality data for "+q.City)
		}

		var buf bytes.Buffer
		if err := dashboard.WriteCSV(&buf, table); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to export air quality data")
		}

		c.Attachment(dashboard.ExportFilename(q.City, now()))
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Send(buf.Bytes())
	})
}

// ErrorHandler renders errors as JSON. Pipeline errors carry a kind so
// clients can tell configuration problems from upstream failures.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		cfgErr *airquality.ConfigError
		upErr  *airquality.UpstreamError
		fe     *fiber.Error
	)

	switch {
	case errors.As(err, &cfgErr):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"kind":    "configuration",
			"message": cfgErr.Error(),
		})
	case errors.As(err, &upErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":    true,
			"kind":     "upstream",
			"message":  upErr.Error(),
			"status":   upErr.StatusCode,
			"params":   upErr.Params,
			"traceId":  upErr.TraceID,
			"attempts": upErr.Attempts,
		})
	case errors.As(err, &fe):
		return c.Status(fe.Code).JSON(fiber.Map{
			"error":   true,
			"message": fe.Message,
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": err.Error(),
		})
	}
}

// cityQuery holds the query parameters identifying a city.
type cityQuery struct {
	City string `validate:"required,max=100"`
}

func parseCityQuery(c *fiber.Ctx) (cityQuery, error) {
	var q cityQuery

	// Query values alias fiber's request buffer; the city outlives the
	// request as a cache key.
	q.City = strings.TrimSpace(utils.CopyString(c.Query("city")))

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

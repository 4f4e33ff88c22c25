package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/couchcryptid/synop-dashboard/internal/adapter/history"
	"github.com/couchcryptid/synop-dashboard/internal/domain"
)

var validate = validator.New()

const (
	defaultAnomalyDelta = 5.0
	fieldStation        = "station"
)

// SnapshotReader returns the latest derived snapshot.
type SnapshotReader interface {
	Latest() (domain.Snapshot, error)
}

// Refresher rebuilds the snapshot on demand.
type Refresher interface {
	Refresh(ctx context.Context) (domain.Snapshot, error)
}

// HistoryReader serves per-station trend windows.
type HistoryReader interface {
	Load(ctx context.Context, station string, since time.Time) history.Result
}

// Handler holds the collaborators the routes read from.
type Handler struct {
	snapshots SnapshotReader
	refresher Refresher
	history   HistoryReader
	window    time.Duration
	logger    *slog.Logger
}

// NewHandler creates a Handler. window is the default history span.
func NewHandler(snapshots SnapshotReader, refresher Refresher, hist HistoryReader, window time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		snapshots: snapshots,
		refresher: refresher,
		history:   hist,
		window:    window,
		logger:    logger,
	}
}

// RegisterRoutes wires the dashboard handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, h *Handler) {
	v1 := app.Group("/api/v1")

	v1.Get("/observations", h.observations)
	v1.Get("/stations", h.stations)
	v1.Get("/stations/:name", h.station)
	v1.Get("/summary", h.summary)
	v1.Get("/anomalies", h.anomalies)
	v1.Get("/extremes", h.extremes)
	v1.Get("/deviations", h.deviations)
	v1.Get("/rankings/:field", h.rankings)
	v1.Get("/compare", h.compare)
	v1.Get("/map/:field", h.mapPoints)
	v1.Get("/correlations", h.correlations)
	v1.Get("/history/:station", h.stationHistory)
	v1.Post("/refresh", h.refresh)
}

// latest loads the current snapshot or fails with 503.
func (h *Handler) latest() (domain.Snapshot, error) {
	snap, err := h.snapshots.Latest()
	if err != nil {
		return domain.Snapshot{}, fiber.NewError(fiber.StatusServiceUnavailable, "no data: "+err.Error())
	}
	return snap, nil
}

type tableQuery struct {
	Sort  string `validate:"omitempty,oneof=station temperature relative_humidity pressure wind_speed wind_direction precipitation feels_like_temperature"`
	Order string `validate:"omitempty,oneof=asc desc"`
}

func (h *Handler) observations(c *fiber.Ctx) error {
	q := tableQuery{Sort: c.Query("sort"), Order: c.Query("order")}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	snap, err := h.latest()
	if err != nil {
		return err
	}

	desc := q.Order == "desc"
	rows := snap.Observations
	switch q.Sort {
	case "":
	case fieldStation:
		if desc {
			rows = slices.Clone(rows)
			slices.Reverse(rows)
		}
	default:
		rows = domain.Rank(rows, domain.Field(q.Sort), desc)
	}

	return c.JSON(fiber.Map{
		"run_id":       snap.RunID,
		"fetched_at":   snap.FetchedAt,
		"count":        len(rows),
		"observations": rows,
	})
}

func (h *Handler) stations(c *fiber.Ctx) error {
	snap, err := h.latest()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"stations": snap.Stations()})
}

type stationDetail struct {
	Observation domain.Observation `json:"observation"`
	Condition   domain.Condition   `json:"condition"`
	Compass     string             `json:"wind_compass"`
	Deviation   float64            `json:"deviation_from_mean"`
}

func (h *Handler) station(c *fiber.Ctx) error {
	snap, err := h.latest()
	if err != nil {
		return err
	}

	name := pathParam(c, "name")
	obs, ok := snap.Find(name)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown station: "+name)
	}

	mean := domain.Summarize(snap.Observations, domain.FieldTemperature).Mean
	return c.JSON(stationDetail{
		Observation: obs,
		Condition:   domain.Describe(obs),
		Compass:     domain.CompassDirection(obs.WindDirection),
		Deviation:   domain.Round2(obs.Temperature - mean),
	})
}

func (h *Handler) summary(c *fiber.Ctx) error {
	snap, err := h.latest()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"temperature": domain.Summarize(snap.Observations, domain.FieldTemperature),
		"feels_like":  domain.Summarize(snap.Observations, domain.FieldFeelsLike),
	})
}

type anomalyQuery struct {
	Delta float64 `validate:"gte=0,lte=50"`
}

func (h *Handler) anomalies(c *fiber.Ctx) error {
	q := anomalyQuery{Delta: defaultAnomalyDelta}
	if raw := c.Query("delta"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "delta must be a number")
		}
		q.Delta = d
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	snap, err := h.latest()
	if err != nil {
		return err
	}

	hot, cold := domain.Anomalies(snap.Observations, q.Delta)
	return c.JSON(fiber.Map{
		"mean":  domain.Summarize(snap.Observations, domain.FieldTemperature).Mean,
		"delta": q.Delta,
		"hot":   hot,
		"cold":  cold,
	})
}

func (h *Handler) extremes(c *fiber.Ctx) error {
	snap, err := h.latest()
	if err != nil {
		return err
	}
	ext, ok := domain.FindExtremes(snap.Observations)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no stations in the current snapshot")
	}
	return c.JSON(ext)
}

func (h *Handler) deviations(c *fiber.Ctx) error {
	snap, err := h.latest()
	if err != nil {
		return err
	}
	devs := domain.Deviations(snap.Observations)
	for i := range devs {
		devs[i].Delta = domain.Round2(devs[i].Delta)
	}
	return c.JSON(fiber.Map{"deviations": devs})
}

func (h *Handler) rankings(c *fiber.Ctx) error {
	field, err := domain.ParseField(pathParam(c, "field"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q := tableQuery{Order: c.Query("order", "desc")}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	snap, err := h.latest()
	if err != nil {
		return err
	}

	ranked := domain.Rank(snap.Observations, field, q.Order == "desc")
	return c.JSON(fiber.Map{"field": field, "order": q.Order, "observations": ranked})
}

type compareQuery struct {
	A string `validate:"required"`
	B string `validate:"required"`
}

func (h *Handler) compare(c *fiber.Ctx) error {
	q := compareQuery{A: c.Query("a"), B: c.Query("b")}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "query parameters a and b are required")
	}

	snap, err := h.latest()
	if err != nil {
		return err
	}

	pair, err := domain.Compare(snap.Observations, q.A, q.B)
	if errors.Is(err, domain.ErrStationNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}

	diff := make(map[domain.Field]float64, len(domain.Fields))
	for _, f := range domain.Fields {
		diff[f] = domain.Round2(pair[0].Value(f) - pair[1].Value(f))
	}
	return c.JSON(fiber.Map{"stations": pair, "difference": diff})
}

func (h *Handler) mapPoints(c *fiber.Ctx) error {
	field, err := domain.ParseField(pathParam(c, "field"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	snap, err := h.latest()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"field": field, "points": domain.MapPoints(snap.Observations, field)})
}

func (h *Handler) correlations(c *fiber.Ctx) error {
	snap, err := h.latest()
	if err != nil {
		return err
	}
	return c.JSON(domain.Correlations(snap.Observations, domain.CorrelationFields))
}

type historyQuery struct {
	Station string `validate:"required"`
	Days    *int   `validate:"omitempty,gte=1,lte=366"`
}

func (h *Handler) stationHistory(c *fiber.Ctx) error {
	q := historyQuery{Station: pathParam(c, "station")}
	if raw := c.Query("days"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "days must be an integer")
		}
		q.Days = &d
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	// Without ?days the configured window applies as is, including partial days.
	span := h.window
	if q.Days != nil {
		span = time.Duration(*q.Days) * 24 * time.Hour
	}

	since := history.Window(domain.Now(), span)
	res := h.history.Load(c.UserContext(), q.Station, since)
	if res.Status == history.StatusUnavailable {
		h.logger.Warn("history unavailable", "station", q.Station, "reason", res.Reason)
	}

	return c.JSON(fiber.Map{
		"station": q.Station,
		"window":  span.String(),
		"since":   since,
		"status":  res.Status,
		"reason":  res.Reason,
		"entries": res.Entries,
	})
}

func (h *Handler) refresh(c *fiber.Ctx) error {
	snap, err := h.refresher.Refresh(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{
		"run_id":     snap.RunID,
		"fetched_at": snap.FetchedAt,
		"stations":   len(snap.Observations),
		"dropped":    snap.Dropped,
	})
}

// pathParam returns a decoded route parameter; station names arrive percent-encoded.
func pathParam(c *fiber.Ctx, key string) string {
	raw := c.Params(key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

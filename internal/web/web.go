package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotistats/internal/formatter"
	"github.com/desertthunder/spotistats/internal/models"
	"github.com/desertthunder/spotistats/internal/shared"
	"github.com/gin-gonic/gin"
)

const defaultRunLimit = 20

// DatasetStore is the read side of repositories.DatasetRepository.
type DatasetStore interface {
	Get(id string) (*models.Dataset, error)
	Latest(name string) (*models.Dataset, error)
	List(criteria map[string]any) ([]*models.Dataset, error)
	Names() ([]string, error)
}

// RunStore is the read side of repositories.RunRepository.
type RunStore interface {
	Get(id string) (*models.Run, error)
	List(limit int) ([]*models.Run, error)
}

// API holds the stores behind the HTTP handlers.
type API struct {
	datasets DatasetStore
	runs     RunStore
	logger   *log.Logger
}

// New returns an API over the given stores.
func New(datasets DatasetStore, runs RunStore, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{datasets: datasets, runs: runs, logger: logger}
}

// Engine builds the gin engine with every route registered.
func (a *API) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), a.requestLogger())

	r.GET("/health", a.health)
	r.GET("/datasets", a.listDatasets)
	r.GET("/datasets/:id", a.getDataset)
	r.GET("/names", a.names)
	r.GET("/names/:name/latest", a.latest)
	r.GET("/runs", a.listRuns)
	r.GET("/runs/:id", a.getRun)

	return r
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "duration", time.Since(start))
	}
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) listDatasets(c *gin.Context) {
	criteria := map[string]any{}
	if name := c.Query("name"); name != "" {
		criteria["name"] = name
	}
	if runID := c.Query("run_id"); runID != "" {
		criteria["run_id"] = runID
	}

	list, err := a.datasets.List(criteria)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": list, "count": len(list)})
}

func (a *API) getDataset(c *gin.Context) {
	ds, err := a.datasets.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	a.render(c, ds)
}

func (a *API) latest(c *gin.Context) {
	ds, err := a.datasets.Latest(c.Param("name"))
	if err != nil {
		a.fail(c, err)
		return
	}
	a.render(c, ds)
}

// render writes the dataset as JSON, or just its table in another export format.
func (a *API) render(c *gin.Context, ds *models.Dataset) {
	format := c.DefaultQuery("format", "json")
	if format == "json" {
		c.JSON(http.StatusOK, ds)
		return
	}

	data, err := formatter.Export(ds.Table, format, false)
	if err != nil {
		a.fail(c, err)
		return
	}

	contentType := "text/plain; charset=utf-8"
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
	case "markdown":
		contentType = "text/markdown; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, data)
}

func (a *API) names(c *gin.Context) {
	names, err := a.datasets.Names()
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"names": names})
}

func (a *API) listRuns(c *gin.Context) {
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			a.fail(c, fmt.Errorf("%w: limit must be a positive integer", shared.ErrInvalidArgument))
			return
		}
		limit = n
	}

	runs, err := a.runs.List(limit)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (a *API) getRun(c *gin.Context) {
	run, err := a.runs.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (a *API) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrDatasetNotFound), errors.Is(err, shared.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrMissingArgument):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// Package server exposes stored runs read-only over HTTP.
package server

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/san-kum/krotov/internal/analysis"
	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/history"
	"github.com/san-kum/krotov/internal/pulse"
	"github.com/san-kum/krotov/internal/storage"
)

type Options struct {
	Store *storage.Store
	// History is optional; without it the /history routes are not mounted.
	History  *history.DB
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(opts.Logger.With().Str("component", "server").Logger()))

	r.GET("/runs", listRuns(opts.Store))
	r.GET("/runs/:id", getRun(opts.Store))
	r.GET("/runs/:id/history", getHistory(opts.Store))
	r.GET("/runs/:id/pulses", getPulses(opts.Store))
	r.GET("/runs/:id/spectrum", getSpectrum(opts.Store))
	r.GET("/presets", listPresets())

	if opts.History != nil {
		r.GET("/history", listRecorded(opts.History))
		r.GET("/history/:id", getRecorded(opts.History))
	}
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// runID rejects ids that could leave the store directory.
func runID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return "", false
	}
	return id, true
}

func fail(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrInvalidID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if errors.Is(err, fs.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func listRuns(st *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := st.List()
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, runs)
	}
}

func getRun(st *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := runID(c)
		if !ok {
			return
		}
		meta, err := st.Load(id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, meta)
	}
}

func getHistory(st *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := runID(c)
		if !ok {
			return
		}
		rows, err := st.LoadHistory(id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func getPulses(st *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := runID(c)
		if !ok {
			return
		}
		times, table, err := st.LoadPulses(id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"midpoints": times, "controls": table})
	}
}

func getSpectrum(st *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := runID(c)
		if !ok {
			return
		}
		cp, err := st.Checkpoint(id)
		if err != nil {
			fail(c, err)
			return
		}
		g, err := cp.TimeGrid()
		if err != nil {
			fail(c, err)
			return
		}
		name := c.Query("control")
		if name == "" {
			names := pulse.Table(cp.Controls).Names()
			if len(names) == 0 {
				c.JSON(http.StatusNotFound, gin.H{"error": "run has no controls"})
				return
			}
			name = names[0]
		}
		values, ok := cp.Controls[name]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown control " + name})
			return
		}
		s, err := analysis.PowerSpectrum(values, g)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"control": name, "spectrum": s, "summary": analysis.Summarize(name, values, g)})
	}
}

func listPresets() gin.HandlerFunc {
	return func(c *gin.Context) {
		out := make(map[string][]string, len(config.Presets))
		for model := range config.Presets {
			out[model] = config.ListPresets(model)
		}
		c.JSON(http.StatusOK, out)
	}
}

func listRecorded(db *history.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := db.Runs()
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, runs)
	}
}

func getRecorded(db *history.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := runID(c)
		if !ok {
			return
		}
		rows, err := db.Rows(id)
		if err != nil {
			fail(c, err)
			return
		}
		if len(rows) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

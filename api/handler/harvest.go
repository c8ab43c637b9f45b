package handler

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/harvester/harvest"
	"github.com/use-agent/harvester/models"
	"github.com/use-agent/harvester/output"
)

// PostHarvest returns a handler for POST /api/v1/harvest.
//
// The crawl runs synchronously on the request context, so a client that
// disconnects cancels it. format=json returns the schema, rows, records and
// report; csv and markdown return the rendered table. A crawl stopped by
// the abort policy still returns what it harvested, with success=false.
func PostHarvest(hv *harvest.Harvester, outOpts output.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.HarvestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.Defaults()
		if req.IndexURL == "" && len(req.Locators) == 0 {
			badRequest(c, errors.New("index_url or locators is required"))
			return
		}

		start := time.Now()
		res, err := hv.Harvest(c.Request.Context(), toHarvestRequest(req))
		if res == nil {
			respondError(c, err)
			return
		}
		resp := buildResponse(res, err, start)

		if req.Format == "json" {
			status := http.StatusOK
			if err != nil {
				status = mapErrorToStatus(models.AsHarvestError(err))
			}
			c.JSON(status, resp)
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}

		format := output.Format(req.Format)
		var buf bytes.Buffer
		if err := output.Write(&buf, format, harvest.Table{Schema: resp.Schema, Rows: resp.Rows}, outOpts); err != nil {
			respondError(c, models.NewHarvestError(models.ErrCodeWrite, "rendering table failed", err))
			return
		}
		c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
	}
}

func toHarvestRequest(req models.HarvestRequest) harvest.Request {
	return harvest.Request{
		IndexURL:      req.IndexURL,
		Locators:      req.Locators,
		LocatorRules:  req.LocatorRules,
		RecordRules:   req.RecordRules,
		MaxIndexPages: req.MaxIndexPages,
		Limit:         req.Limit,
		Delay:         time.Duration(req.DelayMs) * time.Millisecond,
	}
}

// buildResponse turns a crawl result into the API response. err is the
// error the crawl stopped with, if any.
func buildResponse(res *harvest.Result, err error, start time.Time) *models.HarvestResponse {
	table := harvest.Tabulate(res.Batch)
	report := res.Report

	resp := &models.HarvestResponse{
		Success: err == nil,
		Schema:  table.Schema,
		Rows:    table.Rows,
		Records: res.Batch,
		Report:  &report,
		Timing: models.TimingInfo{
			TotalMs:   time.Since(start).Milliseconds(),
			LocatorMs: res.LocatorDuration.Milliseconds(),
			HarvestMs: res.HarvestDuration.Milliseconds(),
		},
	}
	if err != nil {
		resp.Error = models.AsHarvestError(err).ToDetail()
	}
	return resp
}

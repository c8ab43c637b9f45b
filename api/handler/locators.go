package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/harvester/harvest"
	"github.com/use-agent/harvester/models"
)

// PostLocators returns a handler for POST /api/v1/locators. It scans the
// index page and returns the links it found without visiting them.
func PostLocators(hv *harvest.Harvester) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LocatorsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		locators, err := hv.CollectLocators(c.Request.Context(), req.IndexURL, req.Rules, req.MaxIndexPages, req.Limit)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.LocatorsResponse{
			Success:  true,
			Locators: locators,
			Total:    len(locators),
		})
	}
}

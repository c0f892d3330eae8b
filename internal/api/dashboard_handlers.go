package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"funnel-workers/internal/models"
	"funnel-workers/internal/search"
)

func (s *Server) dashboardHome(c *gin.Context) {
	view, err := s.deps.Dashboard.Home(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) dashboardToday(c *gin.Context) {
	rows, err := s.deps.Dashboard.Today(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": rows})
}

func (s *Server) dashboardHotLeads(c *gin.Context) {
	rows, err := s.deps.Dashboard.HotLeads(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": rows})
}

func (s *Server) dashboardByIntent(c *gin.Context) {
	in := models.Intent(c.Param("intent"))
	if !in.Valid() {
		s.abort(c, badRequest("unknown intent: "+string(in)))
		return
	}
	rows, err := s.deps.Dashboard.ByIntent(c.Request.Context(), in)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"intent": in, "conversations": rows})
}

func (s *Server) dashboardDrilldown(c *gin.Context) {
	d, err := s.deps.Dashboard.Drilldown(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// searchLeads maps query parameters onto a lead index query.
func (s *Server) searchLeads(c *gin.Context) {
	q := search.Query{
		Band:   models.LeadBand(c.Query("band")),
		Intent: models.Intent(c.Query("intent")),
		Text:   c.Query("q"),
	}
	var err error
	if v := c.Query("min_score"); v != "" {
		if q.MinScore, err = strconv.ParseFloat(v, 64); err != nil {
			s.abort(c, badRequest("min_score must be a number"))
			return
		}
	}
	if v := c.Query("from"); v != "" {
		if q.From, err = strconv.Atoi(v); err != nil {
			s.abort(c, badRequest("from must be an integer"))
			return
		}
	}
	if v := c.Query("size"); v != "" {
		if q.Size, err = strconv.Atoi(v); err != nil {
			s.abort(c, badRequest("size must be an integer"))
			return
		}
	}

	res, err := s.deps.Leads.SearchLeads(c.Request.Context(), q)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "funnel-workers/internal/common/errors"
	"funnel-workers/internal/live"
)

type liveMessageRequest struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
}

type urgentRequest struct {
	Urgent *bool `json:"urgent"`
}

type exceptionRequest struct {
	ExceptionAmount float64 `json:"exception_amount"`
}

func (s *Server) liveStart(c *gin.Context) {
	res, err := s.deps.Live.Start(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// liveMessage answers an expired session with the restart prompt as the bot reply.
func (s *Server) liveMessage(c *gin.Context) {
	var req liveMessageRequest
	if err := bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	if req.SessionID == "" {
		s.abort(c, badRequest("session_id required"))
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		s.abort(c, badRequest("user_message required"))
		return
	}

	res, err := s.deps.Live.Turn(c.Request.Context(), req.SessionID, req.UserMessage)
	if appErrors.IsCode(err, appErrors.ErrCodeSessionNotFound) {
		stdErr := appErrors.Normalize(err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"session_id": req.SessionID,
			"bot_reply":  stdErr.Message,
			"error":      toBody(stdErr),
		})
		return
	}
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) liveSession(c *gin.Context) {
	sess, err := s.deps.Live.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) liveEnd(c *gin.Context) {
	if err := s.deps.Live.End(c.Request.Context(), c.Param("id")); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listQuotations(c *gin.Context) {
	urgentOnly, _ := strconv.ParseBool(c.Query("urgent"))
	items, err := s.deps.Live.ListQuotations(c.Request.Context(), urgentOnly)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotations": items})
}

func (s *Server) getQuotation(c *gin.Context) {
	id, err := quotationID(c)
	if err != nil {
		s.abort(c, err)
		return
	}
	q, err := s.deps.Live.Quotation(c.Request.Context(), id)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) submitQuote(c *gin.Context) {
	id, err := quotationID(c)
	if err != nil {
		s.abort(c, err)
		return
	}
	var p live.QuotePayload
	if err := bind(c, &p); err != nil {
		s.abort(c, err)
		return
	}
	q, err := s.deps.Live.SubmitQuote(c.Request.Context(), id, p)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "quotation": q})
}

// setUrgent marks a quotation urgent; an empty body means urgent.
func (s *Server) setUrgent(c *gin.Context) {
	id, err := quotationID(c)
	if err != nil {
		s.abort(c, err)
		return
	}
	var req urgentRequest
	if err := bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	urgent := req.Urgent == nil || *req.Urgent

	q, err := s.deps.Live.SetUrgent(c.Request.Context(), id, urgent)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "is_urgent": urgent, "quotation": q})
}

func (s *Server) setException(c *gin.Context) {
	id, err := quotationID(c)
	if err != nil {
		s.abort(c, err)
		return
	}
	var req exceptionRequest
	if err := bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	q, err := s.deps.Live.SetException(c.Request.Context(), id, req.ExceptionAmount)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "quotation": q})
}

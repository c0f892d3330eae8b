package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"funnel-workers/internal/intake"
)

type messageRequest struct {
	Text      string `json:"text"`
	SpeakerID string `json:"speaker_id,omitempty"`
}

type takeoverRequest struct {
	TriggerReason string `json:"trigger_reason"`
}

func (s *Server) ingestChat(c *gin.Context) {
	var p intake.ChatPayload
	if err := bind(c, &p); err != nil {
		s.abort(c, err)
		return
	}
	res, err := s.deps.Intake.IngestChat(c.Request.Context(), &p)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) ingestVoice(c *gin.Context) {
	var p intake.VoicePayload
	if err := bind(c, &p); err != nil {
		s.abort(c, err)
		return
	}
	res, err := s.deps.Intake.IngestVoice(c.Request.Context(), &p)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) getConversation(c *gin.Context) {
	conv, err := s.deps.Intake.Conversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) processConversation(c *gin.Context) {
	res, err := s.deps.Intake.ProcessNLP(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) getState(c *gin.Context) {
	res, err := s.deps.Intake.GetState(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) buildState(c *gin.Context) {
	res, err := s.deps.Intake.BuildState(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) applyMessage(c *gin.Context) {
	var req messageRequest
	if err := bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.abort(c, badRequest("text required"))
		return
	}
	res, err := s.deps.Intake.ApplyMessage(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) qualification(c *gin.Context) {
	res, err := s.deps.Intake.Qualification(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handoff(c *gin.Context) {
	res, err := s.deps.Intake.CheckHandoff(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) humanTakeover(c *gin.Context) {
	var req takeoverRequest
	if err := bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	res, err := s.deps.Intake.HumanTakeover(c.Request.Context(), c.Param("id"), req.TriggerReason)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) humanActions(c *gin.Context) {
	var p intake.HumanActionPayload
	if err := bind(c, &p); err != nil {
		s.abort(c, err)
		return
	}
	res, err := s.deps.Intake.HumanAction(c.Request.Context(), c.Param("id"), &p)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

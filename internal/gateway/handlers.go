package gateway

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/set-night/coworker/internal/domain"
)

const invalidBody = "request body must be valid JSON"

// bind decodes and validates the JSON body into req. It writes the 400
// response itself and reports whether the handler may continue.
func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, invalidBody)
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		badRequest(c, validationMessage(err))
		return false
	}
	return true
}

func (s *Server) handleAnswer(c *gin.Context) {
	var req domain.RagRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.api.AnswerRaw(c.Request.Context(), req)
	if err != nil {
		backendFailure(c, "automated_answer", err)
		return
	}
	passThrough(c, resp)
}

func (s *Server) handleEmployees(c *gin.Context) {
	miamID := c.Query("MIAMID")
	if miamID == "" {
		badRequest(c, "MIAMID query parameter is required")
		return
	}
	resp, err := s.api.GetEmployee(c.Request.Context(), miamID)
	if err != nil {
		backendFailure(c, "get_employee", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMannedCounters(c *gin.Context) {
	var req domain.GetMannedCounterRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.api.GetMannedCounters(c.Request.Context(), req)
	if err != nil {
		backendFailure(c, "get_manned_counter", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSendMail(c *gin.Context) {
	var req domain.SendMailRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.api.SendMail(c.Request.Context(), req)
	if err != nil {
		backendFailure(c, "send_mail", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	var req domain.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBody)
		return
	}
	if req.Feedback != "" && !req.Feedback.Valid() {
		badRequest(c, fmt.Sprintf("feedback must be 'good' or 'bad', got: %s", req.Feedback))
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		badRequest(c, validationMessage(err))
		return
	}
	resp, err := s.api.SubmitFeedback(c.Request.Context(), req)
	if err != nil {
		backendFailure(c, "submit_feedback", err)
		return
	}
	passThrough(c, resp)
}

func (s *Server) handleDeleteFeedback(c *gin.Context) {
	var req domain.DeleteFeedbackRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.api.DeleteFeedback(c.Request.Context(), req)
	if err != nil {
		backendFailure(c, "delete_feedback", err)
		return
	}
	passThrough(c, resp)
}

func (s *Server) handleChunkHighlighter(c *gin.Context) {
	var req domain.ChunkHighlighterRequest
	if !s.bind(c, &req) {
		return
	}
	if len(req.SourceFileList) != len(req.ChunkList) {
		badRequest(c, fmt.Sprintf("chunk_listとsource_file_listの要素数が一致していません。 chunk_list:%d source_file_list:%d",
			len(req.ChunkList), len(req.SourceFileList)))
		return
	}
	resp, err := s.api.HighlightChunks(c.Request.Context(), req)
	if err != nil {
		backendFailure(c, "chunk_highlighter", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func passThrough(c *gin.Context, body []byte) {
	if len(body) == 0 {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

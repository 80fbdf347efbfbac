package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"alert-relay/internal/extract"
	"alert-relay/internal/relay"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// handleWebhook adapts whatever encoding the producer chose into an
// extract.Inbound. Decode failures leave the structured/form views empty
// so the extractor falls through to the raw body.
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read request body")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "detail": "read body"})
		return
	}

	in := extract.Inbound{Raw: body}

	contentType := c.ContentType()
	switch {
	case strings.Contains(contentType, "json"):
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err == nil {
			in.Structured = fields
		}
	case strings.Contains(contentType, "form"):
		if values, err := url.ParseQuery(string(body)); err == nil {
			in.Form = values
		}
	}

	out := s.relay.Process(c.Request.Context(), in)

	resp := gin.H{"status": out.Kind}
	if out.Detail != "" {
		resp["detail"] = out.Detail
	}
	if out.Attempts > 0 {
		resp["attempts"] = out.Attempts
	}

	status := http.StatusOK
	if out.Kind == relay.OutcomeDeliveryFailed {
		status = http.StatusBadGateway
	}
	c.JSON(status, resp)
}

func (s *Server) handleListBuckets(c *gin.Context) {
	names, err := s.store.ListBuckets()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list buckets")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "detail": "list buckets"})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"files": names})
}

func (s *Server) handleDownloadBucket(c *gin.Context) {
	path, err := s.store.BucketPath(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "detail": "invalid bucket name"})
		return
	}
	c.FileAttachment(path, c.Param("name"))
}

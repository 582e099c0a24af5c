package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/agenthands/medscan/internal/core/archive"
	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/render"
	"github.com/gin-gonic/gin"
)

// save archives a finished analysis when the request named a patient.
// Failures are logged and leave the response untouched.
func (s *Server) save(c *gin.Context, a *model.ArchivedAnalysis) string {
	if s.svc.Archive == nil || a == nil || a.PatientID == "" {
		return ""
	}
	id, err := s.svc.Archive.Save(c.Request.Context(), a)
	if err != nil {
		s.logger.Warn("failed to archive analysis", "kind", a.Kind, "patient_id", a.PatientID, "error", err)
		return ""
	}
	return id
}

func (s *Server) GetAnalysis(c *gin.Context) {
	a, err := s.svc.Archive.Get(c.Request.Context(), c.Param("uuid"))
	if errors.Is(err, archive.ErrNotFound) {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("failed to load analysis", "uuid", c.Param("uuid"), "error", err)
		fail(c, http.StatusInternalServerError, "Failed to load analysis")
		return
	}

	if c.Query("format") == "markdown" {
		var buf bytes.Buffer
		if err := render.Markdown(&buf, a); err != nil {
			s.logger.Error("failed to render analysis", "uuid", a.UUID, "error", err)
			fail(c, http.StatusInternalServerError, "Failed to render analysis")
			return
		}
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", buf.Bytes())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": a})
}

func (s *Server) ListPatientAnalyses(c *gin.Context) {
	limit := archive.DefaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	patientID := c.Param("id")
	list, err := s.svc.Archive.ListByPatient(c.Request.Context(), patientID, limit)
	if err != nil {
		s.logger.Error("failed to list analyses", "patient_id", patientID, "error", err)
		fail(c, http.StatusInternalServerError, "Failed to list analyses")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"patient_id": patientID,
		"analyses":   list,
	})
}

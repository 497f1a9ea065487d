package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qtc-mcp-server/internal/domain"
	"github.com/qtc-mcp-server/internal/health"
	"github.com/qtc-mcp-server/internal/middleware"
)

func (s *Server) handleHealth(c *gin.Context) {
	status := s.checker.Check(c.Request.Context())
	code := http.StatusOK
	if status.Status == health.StateUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (s *Server) handleListFormulas(c *gin.Context) {
	formulas := s.service.ListFormulas()
	c.JSON(http.StatusOK, gin.H{"formulas": formulas, "count": len(formulas)})
}

func (s *Server) handleGetFormula(c *gin.Context) {
	formula, err := s.service.Formula(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, formula)
}

func (s *Server) handleListCriteria(c *gin.Context) {
	criteria := s.service.ListCriteria()
	c.JSON(http.StatusOK, gin.H{"criteria": criteria, "count": len(criteria)})
}

func (s *Server) handleGetCriterion(c *gin.Context) {
	detail, err := s.service.Criterion(c.Param("id"), c.Query("units"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) handleCalculate(c *gin.Context) {
	var req domain.CalculateRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.service.Calculate(c.Request.Context(), &req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleClassify(c *gin.Context) {
	var req domain.ClassifyRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.service.Classify(c.Request.Context(), &req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req domain.EvaluateRequest
	if !s.bind(c, &req) {
		return
	}
	record, err := s.service.Evaluate(c.Request.Context(), &req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (s *Server) handleListEvaluations(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		s.respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		s.respondError(c, err)
		return
	}

	list, err := s.service.ListEvaluations(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetEvaluation(c *gin.Context) {
	record, err := s.service.GetEvaluation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// bind decodes the JSON body into req and reports malformed bodies as invalid input.
func (s *Server) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.respondError(c, domain.NewValidationError("body", "must be a valid JSON object", err.Error()))
		return false
	}
	return true
}

func (s *Server) respondError(c *gin.Context, err error) {
	svcErr := domain.ToServiceError(err, middleware.GetCorrelationID(c))
	status := domain.HTTPStatus(svcErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("correlation_id", svcErr.RequestID).Error("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, svcErr)
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer", raw)
	}
	return v, nil
}

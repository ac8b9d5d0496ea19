package web

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sales-predictor/internal/common/errors"
	"sales-predictor/internal/models"
	"sales-predictor/internal/services/prediction"
)

func (s *Server) apiPredict(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, errors.NewValidationFailedError("could not read request body: "+err.Error()))
		return
	}

	req, err := s.deps.Service.ParseRequest(body)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := s.deps.Service.Predict(c.Request.Context(), req, prediction.RequestMeta{
		Source:    prediction.SourceAPI,
		RequestID: requestID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(res.Display, res))
}

func (s *Server) apiForm(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse("form definition", gin.H{
		"title":       PageTitle,
		"description": PageDescription,
		"button":      SubmitLabel,
		"fields":      models.FormFields,
		"defaults":    models.NewPredictionRequest(),
	}))
}

func (s *Server) apiModel(c *gin.Context) {
	if s.deps.Model == nil {
		respondError(c, errors.NewModelUnavailableError("no model loaded"))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("model info", s.deps.Model.Info()))
}

func (s *Server) apiHistory(c *gin.Context) {
	if s.deps.History == nil {
		c.JSON(http.StatusNotFound, ErrorResponse(http.StatusNotFound, "prediction history is disabled", nil))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := s.deps.History.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("prediction history", entries))
}

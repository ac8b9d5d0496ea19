package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"sales-predictor/internal/common/errors"
	"sales-predictor/internal/models"
	"sales-predictor/internal/services/prediction"
)

type formView struct {
	Title       string
	Description string
	Button      string
	Fields      []models.FormField
	Values      map[string]string
	Success     string
	Error       string
}

func newFormView(req models.PredictionRequest) formView {
	values := make(map[string]string, len(models.Columns))
	for _, f := range req.Record() {
		switch v := f.Value.(type) {
		case float64:
			values[f.Name] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			values[f.Name] = fmt.Sprint(v)
		}
	}
	return formView{
		Title:       PageTitle,
		Description: PageDescription,
		Button:      SubmitLabel,
		Fields:      models.FormFields,
		Values:      values,
	}
}

func (s *Server) showForm(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", newFormView(models.NewPredictionRequest()))
}

func (s *Server) submitForm(c *gin.Context) {
	req, err := parseForm(c)
	view := newFormView(req)
	if err != nil {
		view.Values = rawValues(c)
		view.Error = prediction.FormatError(err)
		c.HTML(http.StatusBadRequest, "index.html", view)
		return
	}

	res, err := s.deps.Service.Predict(c.Request.Context(), req, prediction.RequestMeta{
		Source:    prediction.SourceForm,
		RequestID: requestID(c),
	})
	if err != nil {
		view.Error = prediction.FormatError(err)
		c.HTML(errors.HTTPStatus(errors.AsStandardError(err).Code), "index.html", view)
		return
	}

	view.Success = res.Display
	c.HTML(http.StatusOK, "index.html", view)
}

// parseForm reads the posted inputs. Values the browser sends as text are
// converted here; range and option checks are left to the service.
func parseForm(c *gin.Context) (models.PredictionRequest, error) {
	req := models.NewPredictionRequest()
	var problems []string

	number := func(name string, dst *float64) {
		raw := strings.TrimSpace(c.PostForm(name))
		if raw == "" {
			problems = append(problems, name+": value is required")
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %q is not a number", name, raw))
			return
		}
		*dst = v
	}
	choice := func(name string, dst *string) {
		if v, ok := c.GetPostForm(name); ok {
			*dst = v
		}
	}

	number(models.ColItemWeight, &req.ItemWeight)
	choice(models.ColItemFatContent, &req.ItemFatContent)
	number(models.ColItemVisibility, &req.ItemVisibility)
	choice(models.ColItemType, &req.ItemType)
	number(models.ColItemMRP, &req.ItemMRP)

	rawYear := strings.TrimSpace(c.PostForm(models.ColOutletEstablishmentYear))
	if year, err := strconv.Atoi(rawYear); err != nil {
		problems = append(problems, fmt.Sprintf("%s: %q is not a whole year", models.ColOutletEstablishmentYear, rawYear))
	} else {
		req.OutletEstablishmentYear = year
	}

	choice(models.ColOutletSize, &req.OutletSize)
	choice(models.ColOutletLocationType, &req.OutletLocationType)
	choice(models.ColOutletType, &req.OutletType)

	if len(problems) > 0 {
		return req, errors.NewValidationFailedError(strings.Join(problems, "; "))
	}
	return req, nil
}

func rawValues(c *gin.Context) map[string]string {
	values := make(map[string]string, len(models.Columns))
	for _, name := range models.Columns {
		values[name] = c.PostForm(name)
	}
	return values
}

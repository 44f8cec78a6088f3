package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lshigami/labsignoff/config"
	"github.com/lshigami/labsignoff/internal/dto"
	"github.com/lshigami/labsignoff/internal/model"
	"github.com/lshigami/labsignoff/internal/service"
	"github.com/rs/zerolog/log"
)

const (
	defaultCSRFCookie = "csrftoken"
	defaultCSRFHeader = "X-CSRFToken"
	fixtureTA         = "fixture-ta"
)

// LabController serves the six grading endpoints from a FixtureStore. It
// stands in for the real server in offline runs and tests.
type LabController struct {
	store      *FixtureStore
	converter  service.ScoreConverterService
	csrfCookie string
	csrfHeader string
}

// NewLabController uses the same anti-forgery cookie and header names as the
// API client so offline runs agree with it.
func NewLabController(store *FixtureStore, converter service.ScoreConverterService, api config.API) *LabController {
	ctrl := &LabController{
		store:      store,
		converter:  converter,
		csrfCookie: api.CSRFCookieName,
		csrfHeader: api.CSRFHeaderName,
	}
	if ctrl.csrfCookie == "" {
		ctrl.csrfCookie = defaultCSRFCookie
	}
	if ctrl.csrfHeader == "" {
		ctrl.csrfHeader = defaultCSRFHeader
	}
	return ctrl
}

func (ctrl *LabController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(ctrl.ensureCSRFCookie)
	{
		api.GET("/student-name-search/", ctrl.SearchStudents)
		api.GET("/get-parts/", ctrl.GetParts)
		api.GET("/get-criteria/", ctrl.GetCriteria)
		api.GET("/get-signoffs/", ctrl.GetSignoffs)
		api.GET("/get-signoff-details/", ctrl.GetSignoffDetails)
		api.POST("/quick-signoff/", ctrl.requireCSRF, ctrl.QuickSignoff)
	}
}

// ensureCSRFCookie hands out an anti-forgery cookie on first contact.
func (ctrl *LabController) ensureCSRFCookie(c *gin.Context) {
	if _, err := c.Cookie(ctrl.csrfCookie); err != nil {
		c.SetCookie(ctrl.csrfCookie, uuid.NewString(), 0, "/", "", false, false)
	}
	c.Next()
}

func (ctrl *LabController) requireCSRF(c *gin.Context) {
	cookie, err := c.Cookie(ctrl.csrfCookie)
	if err != nil || cookie == "" || c.GetHeader(ctrl.csrfHeader) != cookie {
		log.Warn().Str("path", c.Request.URL.Path).Msg("Fixture: CSRF verification failed")
		c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Error: "CSRF verification failed"})
		return
	}
	c.Next()
}

func queryID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}

func (ctrl *LabController) SearchStudents(c *gin.Context) {
	students := ctrl.store.SearchStudents(c.Query("query"))
	resp := dto.StudentSearchResponse{Students: make([]dto.StudentDTO, 0, len(students))}
	for _, st := range students {
		resp.Students = append(resp.Students, dto.StudentDTO(st))
	}
	c.JSON(http.StatusOK, resp)
}

func (ctrl *LabController) GetParts(c *gin.Context) {
	labID, ok := queryID(c, "lab_id")
	if !ok {
		c.JSON(http.StatusOK, []dto.PartDTO{})
		return
	}
	parts := ctrl.store.PartsForLab(labID)
	out := make([]dto.PartDTO, 0, len(parts))
	for _, p := range parts {
		out = append(out, dto.PartDTO(p))
	}
	c.JSON(http.StatusOK, out)
}

func (ctrl *LabController) GetCriteria(c *gin.Context) {
	partID, ok := queryID(c, "part_id")
	if !ok {
		c.JSON(http.StatusOK, []dto.CriterionDTO{})
		return
	}
	part, found := ctrl.store.Part(partID)
	if !found {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Part not found"})
		return
	}

	resp := dto.CriteriaResponse{Wrapped: part.Wrapped}
	for _, cr := range part.Criteria {
		resp.Criteria = append(resp.Criteria, dto.CriterionDTO{ID: dto.FlexibleID(cr.ID), Name: cr.Name, MaxPoints: dto.FlexibleFloat(cr.MaxPoints)})
	}
	for _, ev := range part.Evaluation {
		resp.RubricCriteria = append(resp.RubricCriteria, dto.RubricCriterionDTO{Key: ev.Key, Name: ev.Name, MaxMarks: dto.FlexibleFloat(ev.MaxMarks)})
	}
	c.JSON(http.StatusOK, resp)
}

func (ctrl *LabController) GetSignoffs(c *gin.Context) {
	studentID, okS := queryID(c, "student_id")
	labID, okL := queryID(c, "lab_id")
	if !okS || !okL {
		c.JSON(http.StatusOK, []dto.PartSignoffDTO{})
		return
	}
	c.JSON(http.StatusOK, ctrl.store.StatusesForLab(studentID, labID))
}

func (ctrl *LabController) GetSignoffDetails(c *gin.Context) {
	studentID, okS := queryID(c, "student_id")
	partID, okP := queryID(c, "part_id")
	if !okS || !okP {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "student_id and part_id are required"})
		return
	}
	c.JSON(http.StatusOK, ctrl.store.Details(studentID, partID))
}

func (ctrl *LabController) QuickSignoff(c *gin.Context) {
	var req dto.QuickSignoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Fixture QuickSignoff: Failed to bind JSON")
		c.JSON(http.StatusBadRequest, dto.QuickSignoffResponse{Success: false, Error: "Invalid request body: " + err.Error()})
		return
	}

	part, found := ctrl.store.Part(req.PartID)
	if !found || !ctrl.store.HasStudent(req.StudentID) {
		c.JSON(http.StatusOK, dto.QuickSignoffResponse{Success: false, Message: "Student or Part not found"})
		return
	}

	status := ctrl.converter.StatusForOverall(model.QualityLevel(req.OverallScore))
	rec := signoffRecord{
		Status:       status,
		Comments:     req.Comments,
		OverallScore: req.OverallScore,
		Quality:      make(map[string]float64),
		Evaluation:   make(map[string]dto.EvaluationValueDTO),
	}
	for _, cr := range part.Criteria {
		if level, ok := req.CriteriaScores[cr.ID]; ok {
			rec.Quality[cr.ID] = ctrl.converter.PointsForLevel(model.QualityLevel(level), cr.MaxPoints)
		}
	}
	evalMax := make(map[string]float64)
	for _, ev := range model.DefaultEvaluationCriteria() {
		evalMax[ev.Key] = ev.MaxMarks
	}
	for _, ev := range part.Evaluation {
		evalMax[ev.Key] = ev.MaxMarks
	}
	for key, value := range req.RubricEvaluations {
		rec.Evaluation[key] = dto.EvaluationValueDTO{Value: value, MaxMarks: dto.FlexibleFloat(evalMax[key])}
	}

	id, created := ctrl.store.Upsert(req.StudentID, req.PartID, fixtureTA, rec)
	verb := "updated"
	if created {
		verb = "created"
	}
	log.Info().Uint("studentID", req.StudentID).Uint("partID", req.PartID).Str("status", string(status)).Msg("Fixture: signoff " + verb)
	c.JSON(http.StatusOK, dto.QuickSignoffResponse{
		Success:   true,
		Status:    string(status),
		Message:   "Signoff " + verb + " successfully",
		SignoffID: id,
	})
}

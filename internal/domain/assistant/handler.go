package assistant

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the collaborator endpoints. Responses are always 200:
// degradation is served as a fallback body, never as an error status.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/assistant/medicines/suggest", h.handleSuggestMedicines)
	g.POST("/assistant/medicines/dosage", h.handleSuggestDosage)
	g.POST("/assistant/medicines/interactions", h.handleCheckInteractions)
	g.POST("/assistant/health-tips", h.handleHealthTips)
	g.POST("/assistant/questions", h.handleAnswerQuestion)
}

func (h *Handler) handleSuggestMedicines(c echo.Context) error {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	suggestions := h.svc.SuggestMedicines(c.Request().Context(), req.Query)
	return c.JSON(http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

func (h *Handler) handleSuggestDosage(c echo.Context) error {
	var req struct {
		Medicine string `json:"medicine"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	dosage := h.svc.SuggestDosage(c.Request().Context(), req.Medicine)
	return c.JSON(http.StatusOK, map[string]string{"dosage": dosage})
}

func (h *Handler) handleCheckInteractions(c echo.Context) error {
	var req struct {
		Medicines []string `json:"medicines"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	interactions := h.svc.CheckInteractions(c.Request().Context(), req.Medicines)
	return c.JSON(http.StatusOK, map[string]interface{}{"interactions": interactions})
}

func (h *Handler) handleHealthTips(c echo.Context) error {
	var req struct {
		Patient string `json:"patient"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	tips := h.svc.HealthTips(c.Request().Context(), req.Patient)
	return c.JSON(http.StatusOK, map[string]interface{}{"tips": tips})
}

func (h *Handler) handleAnswerQuestion(c echo.Context) error {
	var req struct {
		Patient  string `json:"patient"`
		Question string `json:"question"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	answer := h.svc.AnswerQuestion(c.Request().Context(), req.Patient, req.Question)
	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}

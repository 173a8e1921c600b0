package apidoc

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/fhir2swagger/internal/platform/openapi"
	"github.com/ehr/fhir2swagger/pkg/pagination"
)

const docsPath = "/api/docs"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	g := e.Group(docsPath, mw...)
	g.GET("", h.ListDocuments)
	g.GET("/:name", h.GetDocument)
	g.GET("/:name/ui", h.DocumentUI)
}

func (h *Handler) ListDocuments(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := pagination.NewResponse(items, total, pg)
	resp.Links = pg.Links(docsPath, total)
	return c.JSON(http.StatusOK, resp)
}

// GetDocument serves the stored document as JSON, or as YAML with
// ?format=yaml.
func (h *Handler) GetDocument(c echo.Context) error {
	doc, err := h.svc.Get(c.Request().Context(), c.Param("name"))
	if IsNotFound(err) {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	data, err := doc.JSON()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	format := FormatJSON
	if q := c.QueryParam("format"); q != "" {
		if format, err = ParseFormat(q); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if format == FormatYAML {
		if data, err = Encode(data, FormatYAML); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Blob(http.StatusOK, format.ContentType(), data)
}

func (h *Handler) DocumentUI(c echo.Context) error {
	name := c.Param("name")
	if _, err := h.svc.Get(c.Request().Context(), name); err != nil {
		if IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	page, err := openapi.RenderUI(name, docsPath+"/"+name)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTML(http.StatusOK, page)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"plantpulse/internal/domain"
	"plantpulse/internal/engine"
	"plantpulse/internal/export"
	"plantpulse/internal/importer"
	"plantpulse/internal/layout"
	"plantpulse/internal/render"
	"plantpulse/internal/shift"
	"plantpulse/internal/store"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Logger   *log.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"conflict"`
	Message string         `json:"message" example:"snapshot at revision 4, expected 3: revision conflict"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"surface\":\"wallboard\"}"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the PlantPulse API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the requested envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		router.Use(requestLogger(cfg.Logger))
	}
	hcfg := huma.DefaultConfig("PlantPulse API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	e := cfg.Engine
	registerDocs(router, basePath)
	registerHealth(group)
	registerSurfaces(group, e)
	registerScene(group, e)
	registerShift(group, e)
	registerCalendar(group, e)
	registerSnapshot(group, e)
	registerChains(group, e)
	registerNight(group, e)
	registerEvents(group, e)
	registerRenders(group, e)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func requestLogger(l *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			l.Printf("http: %s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, render.ErrUnknownSurface):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, store.ErrConflict), errors.Is(err, engine.ErrSnapshotExists):
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid"),
		strings.Contains(lowered, "duplicate"),
		strings.Contains(lowered, "empty id"),
		strings.Contains(lowered, "must"),
		strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	if oas.Components != nil && oas.Components.Schemas != nil {
		oas.Components.Schemas.Schema(reflect.TypeOf(apiError{}), true, "ApiError")
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>PlantPulse API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

// RenderQuery is shared by every operation that paints or lays out.
type RenderQuery struct {
	Width  int      `query:"width" minimum:"0" doc:"Viewport width in pixels; defaults to render.width"`
	Height int      `query:"height" minimum:"0"`
	Scale  float64  `query:"scale" minimum:"0" doc:"Device pixel ratio"`
	Groups []string `query:"groups" doc:"Display group allowlist; all groups when omitted"`
	Theme  string   `query:"theme" enum:"day,night,auto" doc:"Theme override; auto follows the stored preference and clock"`
	Start  string   `query:"start" doc:"View start, RFC 3339 or YYYY-MM-DD in facility time"`
	Days   int      `query:"days" minimum:"0"`
}

func (q RenderQuery) request(e engine.Engine, surfaceID string) (engine.RenderRequest, error) {
	req := engine.RenderRequest{
		SurfaceID: surfaceID,
		Width:     q.Width,
		Height:    q.Height,
		Scale:     q.Scale,
		Days:      q.Days,
	}
	if len(q.Groups) > 0 {
		req.Groups = q.Groups
	}
	switch q.Theme {
	case "day", "night":
		night := q.Theme == "night"
		req.Night = &night
	}
	if q.Start != "" {
		start, err := parseInstant(q.Start, e.Location())
		if err != nil {
			return req, err
		}
		req.Start = start
	}
	return req, nil
}

func parseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

type pngOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	CacheControl       string `header:"Cache-Control"`
	Body               []byte
}

func pngResponse(data []byte, filename string) *pngOutput {
	out := &pngOutput{ContentType: "image/png", CacheControl: "no-store", Body: data}
	if filename != "" {
		out.ContentDisposition = fmt.Sprintf("attachment; filename=%q", filename)
	}
	return out
}

func pngResponses() map[string]*huma.Response {
	return map[string]*huma.Response{
		"200": {
			Description: "PNG image",
			Content: map[string]*huma.MediaType{
				"image/png": {Schema: &huma.Schema{Type: "string", Format: "binary"}},
			},
		},
	}
}

func registerSurfaces(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "wallboard-png",
		Method:      http.MethodGet,
		Path:        "/wallboard.png",
		Summary:     "Paint the wallboard and return it as PNG",
		Responses:   pngResponses(),
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RenderQuery
		Surface string `query:"surface" default:"wallboard" doc:"Id the painted image is registered under"`
	}) (*pngOutput, error) {
		req, err := input.request(e, input.Surface)
		if err != nil {
			return nil, handleError(err)
		}
		if _, _, err := e.Render(ctx, req); err != nil {
			return nil, handleError(err)
		}
		var buf bytes.Buffer
		if err := export.PNG(&buf, e.Registry, req.SurfaceID); err != nil {
			return nil, handleError(err)
		}
		return pngResponse(buf.Bytes(), ""), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-surfaces",
		Method:      http.MethodGet,
		Path:        "/surfaces",
		Summary:     "List painted surfaces",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SurfacesResponse `json:"body"`
	}, error) {
		return &struct {
			Body SurfacesResponse `json:"body"`
		}{Body: SurfacesResponse{IDs: e.Registry.IDs()}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "render-surface",
		Method:      http.MethodPost,
		Path:        "/surfaces/{surface_id}/render",
		Summary:     "Paint a surface and register it",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SurfaceID string `path:"surface_id"`
		Body      RenderSurfaceRequest
	}) (*struct {
		Body PaintResponse `json:"body"`
	}, error) {
		q := RenderQuery{
			Width:  input.Body.Width,
			Height: input.Body.Height,
			Scale:  input.Body.Scale,
			Groups: input.Body.Groups,
			Start:  input.Body.Start,
			Days:   input.Body.Days,
		}
		req, err := q.request(e, input.SurfaceID)
		if err != nil {
			return nil, handleError(err)
		}
		req.Night = input.Body.Night
		_, res, err := e.Render(ctx, req)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PaintResponse `json:"body"`
		}{Body: paintResponse(req.SurfaceID, res)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "surface-image",
		Method:      http.MethodGet,
		Path:        "/surfaces/{surface_id}/image",
		Summary:     "Latest painted image of a surface",
		Responses:   pngResponses(),
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SurfaceID string `path:"surface_id"`
	}) (*pngOutput, error) {
		var buf bytes.Buffer
		if err := export.PNG(&buf, e.Registry, input.SurfaceID); err != nil {
			return nil, handleError(err)
		}
		return pngResponse(buf.Bytes(), ""), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "surface-page",
		Method:      http.MethodGet,
		Path:        "/surfaces/{surface_id}/page",
		Summary:     "Latest painted image laid out on a printable A4 page",
		Responses:   pngResponses(),
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SurfaceID string  `path:"surface_id"`
		DPI       float64 `query:"dpi" minimum:"0" maximum:"600"`
	}) (*pngOutput, error) {
		now := time.Now()
		if e.Now != nil {
			now = e.Now()
		}
		var buf bytes.Buffer
		if err := export.WritePage(&buf, e.Registry, input.SurfaceID, export.PageOptions{
			DPI:       input.DPI,
			PrintedAt: now,
			Location:  e.Location(),
		}); err != nil {
			return nil, handleError(err)
		}
		return pngResponse(buf.Bytes(), export.FileName(now.In(e.Location()))), nil
	})
}

func registerScene(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "scene",
		Method:      http.MethodGet,
		Path:        "/scene",
		Summary:     "Computed wallboard geometry",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RenderQuery
	}) (*struct {
		Body render.Scene `json:"body"`
	}, error) {
		req, err := input.request(e, "")
		if err != nil {
			return nil, handleError(err)
		}
		sc, err := e.Scene(ctx, req)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body render.Scene `json:"body"`
		}{Body: sc}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "layout-rows",
		Method:      http.MethodGet,
		Path:        "/layout/rows",
		Summary:     "Timeline rows for the stored roster and display groups",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Groups []string `query:"groups"`
	}) (*struct {
		Body RowsResponse `json:"body"`
	}, error) {
		snap, _, err := e.Snapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		var allow []string
		if len(input.Groups) > 0 {
			allow = input.Groups
		}
		m := e.Painter.Metrics
		res := layout.Build(snap.Equipment, layout.FilterGroups(snap.DisplayGroups, allow), m)
		out := RowsResponse{Rows: res.Rows, Diagnostics: res.Diagnostics, ContentHeight: layout.ContentHeight(res.Rows, m)}
		if out.Rows == nil {
			out.Rows = []layout.Row{}
		}
		if out.Diagnostics == nil {
			out.Diagnostics = []layout.Diagnostic{}
		}
		return &struct {
			Body RowsResponse `json:"body"`
		}{Body: out}, nil
	})
}

func registerShift(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "shift-current",
		Method:      http.MethodGet,
		Path:        "/shift/current",
		Summary:     "Team on duty",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		At string `query:"at" doc:"Instant, RFC 3339; now when omitted"`
	}) (*struct {
		Body TeamResponse `json:"body"`
	}, error) {
		at := time.Now()
		if e.Now != nil {
			at = e.Now()
		}
		if input.At != "" {
			t, err := time.Parse(time.RFC3339, input.At)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid at", map[string]any{"at": input.At})
			}
			at = t
		}
		rot := e.Painter.Rotation
		team, name := e.Team(at)
		start := rot.BlockStart(rot.BlockIndex(at))
		return &struct {
			Body TeamResponse `json:"body"`
		}{Body: TeamResponse{At: at, Team: team, Name: name, BlockStart: start, BlockEnd: start.Add(shift.BlockLength)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "shift-bands",
		Method:      http.MethodGet,
		Path:        "/shift/bands",
		Summary:     "Shift blocks covering a view",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Start string `query:"start"`
		Days  int    `query:"days" minimum:"0" maximum:"366"`
	}) (*struct {
		Body BandsResponse `json:"body"`
	}, error) {
		view := e.DefaultView()
		if input.Start != "" {
			start, err := parseInstant(input.Start, e.Location())
			if err != nil {
				return nil, handleError(err)
			}
			view.Start = start
		}
		if input.Days > 0 {
			view.Days = input.Days
		}
		bands := e.Painter.Rotation.Bands(view.Start, view.Days)
		if bands == nil {
			bands = []shift.Band{}
		}
		return &struct {
			Body BandsResponse `json:"body"`
		}{Body: BandsResponse{Start: view.Start, Days: view.Days, Bands: bands}}, nil
	})
}

func registerCalendar(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "calendar-holidays",
		Method:      http.MethodGet,
		Path:        "/calendar/holidays",
		Summary:     "Public holidays of a year",
	}, func(ctx context.Context, input *struct {
		Year int `query:"year" minimum:"0" maximum:"9999"`
	}) (*struct {
		Body HolidaysResponse `json:"body"`
	}, error) {
		year := input.Year
		if year == 0 {
			year = e.Today().Year()
		}
		cal := e.Painter.Calendar
		return &struct {
			Body HolidaysResponse `json:"body"`
		}{Body: HolidaysResponse{
			Year:         year,
			Jurisdiction: cal.Jurisdiction().Name,
			Holidays:     cal.Holidays(year, e.Location()),
		}}, nil
	})
}

func registerSnapshot(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-snapshot",
		Method:      http.MethodGet,
		Path:        "/snapshot",
		Summary:     "Stored snapshot",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SnapshotResponse `json:"body"`
	}, error) {
		snap, rev, err := e.Snapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SnapshotResponse `json:"body"`
		}{Body: SnapshotResponse{Revision: rev, Snapshot: snap}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-snapshot",
		Method:      http.MethodPut,
		Path:        "/snapshot",
		Summary:     "Replace the snapshot",
		Errors:      []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body PutSnapshotRequest
	}) (*struct {
		Body RevisionResponse `json:"body"`
	}, error) {
		rev, err := e.SaveSnapshot(ctx, input.Body.Snapshot, input.Body.ExpectedRevision)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RevisionResponse `json:"body"`
		}{Body: RevisionResponse{Revision: rev}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "seed-demo",
		Method:        http.MethodPost,
		Path:          "/snapshot/demo",
		Summary:       "Store the demo plant",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Force bool `query:"force"`
	}) (*struct {
		Body SnapshotResponse `json:"body"`
	}, error) {
		snap, rev, err := e.SeedDemo(ctx, input.Force)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SnapshotResponse `json:"body"`
		}{Body: SnapshotResponse{Revision: rev, Snapshot: snap}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "import-stages",
		Method:      http.MethodPost,
		Path:        "/snapshot/stages",
		Summary:     "Upsert stages by id",
		Errors:      []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body ImportStagesRequest
	}) (*struct {
		Body ImportStagesResponse `json:"body"`
	}, error) {
		stages := input.Body.Stages
		for i, st := range stages {
			if st.EquipmentID == "" || st.BatchChainID == "" {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "equipment_id and batch_chain_id are required", map[string]any{"index": i})
			}
			if st.ID == "" {
				stages[i].ID = importer.StageID(st.EquipmentID, st.BatchChainID, st.Start, st.End)
			}
		}
		res, rev, err := e.ImportStages(ctx, stages)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ImportStagesResponse `json:"body"`
		}{Body: ImportStagesResponse{Revision: rev, Result: res}}, nil
	})
}

func registerChains(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "chain-stages",
		Method:      http.MethodGet,
		Path:        "/snapshot/chains/{chain_id}/stages",
		Summary:     "Stages owned by a batch chain",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ChainID string `path:"chain_id"`
	}) (*struct {
		Body ImportStagesRequest `json:"body"`
	}, error) {
		snap, _, err := e.Snapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		stages := snap.StagesOf(input.ChainID)
		if stages == nil {
			stages = []domain.Stage{}
		}
		return &struct {
			Body ImportStagesRequest `json:"body"`
		}{Body: ImportStagesRequest{Stages: stages}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-chain",
		Method:      http.MethodDelete,
		Path:        "/snapshot/chains/{chain_id}",
		Summary:     "Delete a batch chain and its stages",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ChainID string `path:"chain_id"`
	}) (*struct {
		Body RevisionResponse `json:"body"`
	}, error) {
		rev, err := e.RemoveChain(ctx, input.ChainID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RevisionResponse `json:"body"`
		}{Body: RevisionResponse{Revision: rev}}, nil
	})
}

func registerNight(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-night",
		Method:      http.MethodGet,
		Path:        "/night",
		Summary:     "Current theme mode",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body NightResponse `json:"body"`
	}, error) {
		night, err := e.Night(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body NightResponse `json:"body"`
		}{Body: NightResponse{Night: night}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-night",
		Method:      http.MethodPut,
		Path:        "/night",
		Summary:     "Store the theme mode preference",
	}, func(ctx context.Context, input *struct {
		Body NightRequest
	}) (*struct {
		Body NightResponse `json:"body"`
	}, error) {
		if err := e.SetNight(ctx, input.Body.Night); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body NightResponse `json:"body"`
		}{Body: NightResponse{Night: input.Body.Night}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := e.Store.LatestEvents(ctx, limit+1, store.EventFilter{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Before:     cursorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			resp.NextCursor = fmt.Sprintf("%d", items[limit-1].ID)
			items = items[:limit]
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerRenders(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-renders",
		Method:      http.MethodGet,
		Path:        "/renders",
		Summary:     "Recent paints",
	}, func(ctx context.Context, input *struct {
		SurfaceID string `query:"surface_id"`
		Limit     int    `query:"limit" default:"20"`
	}) (*struct {
		Body RendersResponse `json:"body"`
	}, error) {
		items, err := e.Store.LatestRenders(ctx, input.SurfaceID, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.RenderRecord{}
		}
		return &struct {
			Body RendersResponse `json:"body"`
		}{Body: RendersResponse{Items: items}}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}

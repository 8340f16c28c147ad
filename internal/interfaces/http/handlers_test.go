package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/approvals/internal/application/service"
	"github.com/tallyhq/approvals/internal/domain/apperr"
	"github.com/tallyhq/approvals/internal/domain/entity"
	"github.com/tallyhq/approvals/internal/domain/status"
)

type stubReportService struct {
	createReportFunc func(ctx context.Context, caller *entity.Employee, title, periodLabel string) (*entity.Report, error)
	getReportFunc    func(ctx context.Context, reportID int64, caller *entity.Employee) (*entity.Report, []*entity.LineItem, error)
	listReportsFunc  func(ctx context.Context, caller *entity.Employee, limit, offset int) ([]*entity.Report, error)
	addLineFunc      func(ctx context.Context, reportID int64, caller *entity.Employee, input service.NewLineInput) (*entity.LineItem, error)
	updateLineFunc   func(ctx context.Context, reportID, lineID int64, caller *entity.Employee, input service.NewLineInput) (*entity.LineItem, error)
	deleteLineFunc   func(ctx context.Context, reportID, lineID int64, caller *entity.Employee) error
}

func (s *stubReportService) CreateReport(ctx context.Context, caller *entity.Employee, title, periodLabel string) (*entity.Report, error) {
	return s.createReportFunc(ctx, caller, title, periodLabel)
}

func (s *stubReportService) GetReport(ctx context.Context, reportID int64, caller *entity.Employee) (*entity.Report, []*entity.LineItem, error) {
	return s.getReportFunc(ctx, reportID, caller)
}

func (s *stubReportService) ListReports(ctx context.Context, caller *entity.Employee, limit, offset int) ([]*entity.Report, error) {
	return s.listReportsFunc(ctx, caller, limit, offset)
}

func (s *stubReportService) AddLine(ctx context.Context, reportID int64, caller *entity.Employee, input service.NewLineInput) (*entity.LineItem, error) {
	return s.addLineFunc(ctx, reportID, caller, input)
}

func (s *stubReportService) UpdateLine(ctx context.Context, reportID, lineID int64, caller *entity.Employee, input service.NewLineInput) (*entity.LineItem, error) {
	return s.updateLineFunc(ctx, reportID, lineID, caller, input)
}

func (s *stubReportService) DeleteLine(ctx context.Context, reportID, lineID int64, caller *entity.Employee) error {
	return s.deleteLineFunc(ctx, reportID, lineID, caller)
}

type stubTransitionService struct {
	submitFunc     func(ctx context.Context, reportID int64, caller *entity.Employee) (*entity.Report, error)
	finalizeFunc   func(ctx context.Context, reportID int64, caller *entity.Employee, action, reason string) (*entity.Report, error)
	reviewLineFunc func(ctx context.Context, reportID, lineID int64, caller *entity.Employee, decision string) (*entity.LineItem, error)
}

func (s *stubTransitionService) Submit(ctx context.Context, reportID int64, caller *entity.Employee) (*entity.Report, error) {
	return s.submitFunc(ctx, reportID, caller)
}

func (s *stubTransitionService) Finalize(ctx context.Context, reportID int64, caller *entity.Employee, action, reason string) (*entity.Report, error) {
	return s.finalizeFunc(ctx, reportID, caller, action, reason)
}

func (s *stubTransitionService) ReviewLine(ctx context.Context, reportID, lineID int64, caller *entity.Employee, decision string) (*entity.LineItem, error) {
	return s.reviewLineFunc(ctx, reportID, lineID, caller, decision)
}

type stubExportService struct {
	exportFunc func(ctx context.Context, reportID int64, caller *entity.Employee) (string, []byte, error)
}

func (s *stubExportService) ExportReport(ctx context.Context, reportID int64, caller *entity.Employee) (string, []byte, error) {
	return s.exportFunc(ctx, reportID, caller)
}

type stubEmployees struct {
	byToken map[string]*entity.Employee
}

func (s *stubEmployees) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	return nil, nil
}

func (s *stubEmployees) GetByToken(ctx context.Context, token string) (*entity.Employee, error) {
	return s.byToken[token], nil
}

type testLogger struct{}

func (l *testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *testLogger) Error(msg string, keysAndValues ...interface{}) {}

func testServer(reports *stubReportService, transitions *stubTransitionService, exports *stubExportService) *Server {
	employees := &stubEmployees{byToken: map[string]*entity.Employee{
		"alice-token": {ID: 1, Name: "Alice", Role: entity.RoleEmployee},
		"bob-token":   {ID: 2, Name: "Bob", Role: entity.RoleManager},
	}}
	return NewServer(DefaultServerConfig(), reports, transitions, exports, employees, &testLogger{})
}

func doRequest(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	srv := testServer(&stubReportService{}, &stubTransitionService{}, &stubExportService{})

	rec := doRequest(t, srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestAuthMiddleware(t *testing.T) {
	srv := testServer(&stubReportService{
		listReportsFunc: func(ctx context.Context, caller *entity.Employee, limit, offset int) ([]*entity.Report, error) {
			return nil, nil
		},
	}, &stubTransitionService{}, &stubExportService{})

	t.Run("missing token", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/reports", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/reports", "nobody-token", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/reports", "alice-token", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCreateReport(t *testing.T) {
	var gotCaller *entity.Employee
	srv := testServer(&stubReportService{
		createReportFunc: func(ctx context.Context, caller *entity.Employee, title, periodLabel string) (*entity.Report, error) {
			gotCaller = caller
			return &entity.Report{ID: 10, Reference: "ref-123", EmployeeID: caller.ID, Title: title, PeriodLabel: periodLabel, Status: status.Draft}, nil
		},
	}, &stubTransitionService{}, &stubExportService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/reports", "alice-token",
		`{"title":"March expenses","period_label":"2026-03"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	require.NotNil(t, gotCaller)
	assert.Equal(t, int64(1), gotCaller.ID)

	t.Run("missing title", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/reports", "alice-token", `{"period_label":"2026-03"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.New(apperr.KindValidation, "no lines to submit"), http.StatusBadRequest},
		{"forbidden", apperr.New(apperr.KindForbidden, "only the report owner can submit it"), http.StatusForbidden},
		{"not found", apperr.New(apperr.KindNotFound, "report not found"), http.StatusNotFound},
		{"conflict", apperr.New(apperr.KindConflict, "report was modified concurrently"), http.StatusConflict},
		{"store", apperr.New(apperr.KindStore, "update report failed"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(&stubReportService{}, &stubTransitionService{
				submitFunc: func(ctx context.Context, reportID int64, caller *entity.Employee) (*entity.Report, error) {
					return nil, tt.err
				},
			}, &stubExportService{})

			rec := doRequest(t, srv, http.MethodPost, "/api/v1/reports/10/submit", "alice-token", "")
			assert.Equal(t, tt.want, rec.Code)

			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, apperr.MessageOf(tt.err), resp.Error)
		})
	}
}

func TestSubmit(t *testing.T) {
	srv := testServer(&stubReportService{}, &stubTransitionService{
		submitFunc: func(ctx context.Context, reportID int64, caller *entity.Employee) (*entity.Report, error) {
			return &entity.Report{ID: reportID, Status: status.Submitted}, nil
		},
	}, &stubExportService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/reports/10/submit", "alice-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	t.Run("non numeric id", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/reports/abc/submit", "alice-token", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFinalize(t *testing.T) {
	var gotAction, gotReason string
	srv := testServer(&stubReportService{}, &stubTransitionService{
		finalizeFunc: func(ctx context.Context, reportID int64, caller *entity.Employee, action, reason string) (*entity.Report, error) {
			gotAction = action
			gotReason = reason
			return &entity.Report{ID: reportID, Status: status.Rejected}, nil
		},
	}, &stubExportService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/reports/10/finalize", "bob-token",
		`{"action":"reject","reason":"over budget"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reject", gotAction)
	assert.Equal(t, "over budget", gotReason)

	t.Run("missing action", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/reports/10/finalize", "bob-token", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReviewLine(t *testing.T) {
	srv := testServer(&stubReportService{}, &stubTransitionService{
		reviewLineFunc: func(ctx context.Context, reportID, lineID int64, caller *entity.Employee, decision string) (*entity.LineItem, error) {
			return &entity.LineItem{ID: lineID, ReportID: reportID, Status: status.Approved}, nil
		},
	}, &stubExportService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/reports/10/lines/3/review", "bob-token",
		`{"decision":"approve"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestAddLine(t *testing.T) {
	var gotInput service.NewLineInput
	srv := testServer(&stubReportService{
		addLineFunc: func(ctx context.Context, reportID int64, caller *entity.Employee, input service.NewLineInput) (*entity.LineItem, error) {
			gotInput = input
			return &entity.LineItem{ID: 3, ReportID: reportID, Status: status.Draft, EntryDate: input.EntryDate, Amount: input.Amount}, nil
		},
	}, &stubTransitionService{}, &stubExportService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/reports/10/lines", "alice-token",
		`{"entry_date":"2026-03-02","category":"travel","project_code":"PRJ-7","amount":"25.50"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "travel", gotInput.Category)
	assert.Equal(t, "25.5", gotInput.Amount.String())

	t.Run("bad date format", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/reports/10/lines", "alice-token",
			`{"entry_date":"03/02/2026","category":"travel","project_code":"PRJ-7","amount":"25.50"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad amount", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/reports/10/lines", "alice-token",
			`{"entry_date":"2026-03-02","category":"travel","project_code":"PRJ-7","amount":"lots"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExportReport(t *testing.T) {
	srv := testServer(&stubReportService{}, &stubTransitionService{}, &stubExportService{
		exportFunc: func(ctx context.Context, reportID int64, caller *entity.Employee) (string, []byte, error) {
			return "report-ref-123-20260301.xlsx", []byte("workbook"), nil
		},
	})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/reports/10/export", "alice-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report-ref-123-20260301.xlsx")
	assert.Equal(t, "workbook", rec.Body.String())
}

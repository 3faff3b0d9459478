package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ssebin/pandagrad-sub000/internal/dto"
	"github.com/ssebin/pandagrad-sub000/internal/service"
	"github.com/ssebin/pandagrad-sub000/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	intakeA   = "3f2b8c1a-6d4e-4c7a-9b1f-2a5e8d7c6b01"
	intakeB   = "3f2b8c1a-6d4e-4c7a-9b1f-2a5e8d7c6b02"
	intakeC   = "3f2b8c1a-6d4e-4c7a-9b1f-2a5e8d7c6b03"
	lineage1  = "0b6a9d4e-2f3c-4f6b-8a1d-7c9e5b3a2d10"
	student1  = "6f1c2b1e-3c55-4a5d-9b8e-0d5f3f0a6b11"
	unknownID = "9d7e1f00-0000-4000-8000-000000000000"
)

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock TaskService ──

type mockTaskService struct {
	createResult *dto.PropagationResponse
	createErr    error
	amendResult  *dto.PropagationResponse
	amendErr     error
	deleteResult *dto.PropagationResponse
	deleteErr    error
	revertResult *dto.TaskVersionResponse
	revertErr    error
	history      []dto.TaskVersionResponse
	historyErr   error
	task         *dto.TaskResponse
	taskErr      error
	tasks        []dto.TaskResponse
	tasksErr     error

	lastActor  string
	lastDelete *dto.DeleteTaskRequest
	lastAmend  *dto.AmendTaskRequest
}

func (m *mockTaskService) CreateTask(_ context.Context, _ string, _ *dto.CreateTaskRequest, actor string) (*dto.PropagationResponse, error) {
	m.lastActor = actor
	return m.createResult, m.createErr
}
func (m *mockTaskService) AmendTask(_ context.Context, _ string, req *dto.AmendTaskRequest, actor string) (*dto.PropagationResponse, error) {
	m.lastActor, m.lastAmend = actor, req
	return m.amendResult, m.amendErr
}
func (m *mockTaskService) DeleteTask(_ context.Context, _ string, req *dto.DeleteTaskRequest, actor string) (*dto.PropagationResponse, error) {
	m.lastActor, m.lastDelete = actor, req
	return m.deleteResult, m.deleteErr
}
func (m *mockTaskService) RevertTask(_ context.Context, _ string, _ *dto.RevertTaskRequest, _ string) (*dto.TaskVersionResponse, error) {
	return m.revertResult, m.revertErr
}
func (m *mockTaskService) GetHistory(_ context.Context, _ string) ([]dto.TaskVersionResponse, error) {
	return m.history, m.historyErr
}
func (m *mockTaskService) GetTask(_ context.Context, _ string) (*dto.TaskResponse, error) {
	return m.task, m.taskErr
}
func (m *mockTaskService) ListTasks(_ context.Context, _ string) ([]dto.TaskResponse, error) {
	return m.tasks, m.tasksErr
}

// ── Mock StatusService ──

type mockStatusService struct {
	status     *dto.TaskStatusResponse
	statusErr  error
	statuses   []dto.TaskStatusResponse
	semester   *dto.StudentSemesterResponse
	semErr     error
	appended   *dto.ProgressUpdateResponse
	appendErr  error
	progress   []dto.ProgressUpdateResponse
	lastActor  string
	lastAppend *dto.AppendProgressRequest
}

func (m *mockStatusService) GetStatus(_ context.Context, _, _ string) (*dto.TaskStatusResponse, error) {
	return m.status, m.statusErr
}
func (m *mockStatusService) ListLineageStatuses(_ context.Context, _ string) ([]dto.TaskStatusResponse, error) {
	return m.statuses, nil
}
func (m *mockStatusService) CurrentSemester(_ context.Context, _ string) (*dto.StudentSemesterResponse, error) {
	return m.semester, m.semErr
}
func (m *mockStatusService) AppendProgress(_ context.Context, req *dto.AppendProgressRequest, actor string) (*dto.ProgressUpdateResponse, error) {
	m.lastActor, m.lastAppend = actor, req
	return m.appended, m.appendErr
}
func (m *mockStatusService) ListProgress(_ context.Context, _, _ string) ([]dto.ProgressUpdateResponse, error) {
	return m.progress, nil
}

// ── Mock IntakeService ──

type mockIntakeService struct {
	intake    *dto.IntakeResponse
	err       error
	list      []dto.IntakeResponse
	lastQuery string
}

func (m *mockIntakeService) Create(_ context.Context, _ *dto.CreateIntakeRequest, _ string) (*dto.IntakeResponse, error) {
	return m.intake, m.err
}
func (m *mockIntakeService) GetByID(_ context.Context, _ string) (*dto.IntakeResponse, error) {
	return m.intake, m.err
}
func (m *mockIntakeService) List(_ context.Context, programID string) ([]dto.IntakeResponse, error) {
	m.lastQuery = programID
	return m.list, m.err
}
func (m *mockIntakeService) UpdateLabel(_ context.Context, _ string, _ *dto.UpdateIntakeRequest, _ string) (*dto.IntakeResponse, error) {
	return m.intake, m.err
}

// ── Mock CalendarService ──

type mockCalendarService struct {
	entries    []dto.CalendarEntryResponse
	upserted   *dto.CalendarEntryResponse
	upsertErr  error
	importResp *dto.CalendarImportResponse
	importErr  error
	imported   string
}

func (m *mockCalendarService) List(_ context.Context) ([]dto.CalendarEntryResponse, error) {
	return m.entries, nil
}
func (m *mockCalendarService) Upsert(_ context.Context, _ *dto.UpsertCalendarEntryRequest) (*dto.CalendarEntryResponse, error) {
	return m.upserted, m.upsertErr
}
func (m *mockCalendarService) ImportICS(_ context.Context, r io.Reader) (*dto.CalendarImportResponse, error) {
	b, _ := io.ReadAll(r)
	m.imported = string(b)
	return m.importResp, m.importErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportCatalog(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

// newEngine 创建测试路由；actor 非空时模拟 Actor 中间件注入操作人
func newEngine(actor string) *gin.Engine {
	r := gin.New()
	if actor != "" {
		r.Use(func(c *gin.Context) {
			c.Set(ActorKey, actor)
			c.Next()
		})
	}
	return r
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func serve(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// TaskHandler Tests
// ═══════════════════════════════════════════════════════════

func TestTaskHandler_CreateTask_Success(t *testing.T) {
	mock := &mockTaskService{createResult: &dto.PropagationResponse{
		Results: map[string]dto.IntakeResultResponse{
			"intake-a": {IntakeID: "intake-a", Outcome: "created", LineageID: "l-1", VersionNumber: 1},
		},
		Succeeded: 1,
	}}
	h := NewTaskHandler(mock)
	r := newEngine("Dr. Lim")
	r.POST("/intakes/:id/tasks", h.CreateTask)

	weight := 10
	w := serve(r, http.MethodPost, "/intakes/"+intakeA+"/tasks", jsonBody(dto.CreateTaskRequest{
		Name: "Proposal Defense", Category: "Milestone", Weight: &weight,
	}))

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际: %d %s", w.Code, w.Body.String())
	}
	if mock.lastActor != "Dr. Lim" {
		t.Errorf("期望操作人 Dr. Lim，实际: %q", mock.lastActor)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("期望 code 0，实际: %d", resp.Code)
	}
}

func TestTaskHandler_CreateTask_BadJSON(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})
	r := newEngine("admin")
	r.POST("/intakes/:id/tasks", h.CreateTask)

	w := serve(r, http.MethodPost, "/intakes/"+intakeA+"/tasks", strings.NewReader("invalid json"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
}

func TestTaskHandler_CreateTask_MissingWeight(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})
	r := newEngine("admin")
	r.POST("/intakes/:id/tasks", h.CreateTask)

	w := serve(r, http.MethodPost, "/intakes/"+intakeA+"/tasks", jsonBody(map[string]string{
		"name": "Proposal Defense", "category": "Milestone",
	}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
}

func TestTaskHandler_CreateTask_MissingActor(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})
	r := newEngine("")
	r.POST("/intakes/:id/tasks", h.CreateTask)

	weight := 0
	w := serve(r, http.MethodPost, "/intakes/"+intakeA+"/tasks", jsonBody(dto.CreateTaskRequest{
		Name: "Ethics Form", Category: "Admin", Weight: &weight,
	}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际: %d", w.Code)
	}
}

func TestTaskHandler_CreateTask_Errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   int
		kind   string
	}{
		{"批次不存在", fmt.Errorf("%w: intake-x", service.ErrIntakeNotFound), http.StatusNotFound, 22001, "intake_not_found"},
		{"同名任务", service.ErrDuplicateLineage, http.StatusConflict, 20003, "duplicate_lineage"},
		{"范围无效", fmt.Errorf("%w: \"bogus\"", service.ErrInvalidScope), http.StatusBadRequest, 20005, "invalid_scope"},
		{"并发修改", service.ErrConcurrentModification, http.StatusConflict, 20004, "concurrent_modification"},
		{"内部错误", io.ErrUnexpectedEOF, http.StatusInternalServerError, 50000, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewTaskHandler(&mockTaskService{createErr: tc.err})
			r := newEngine("admin")
			r.POST("/intakes/:id/tasks", h.CreateTask)

			weight := 5
			w := serve(r, http.MethodPost, "/intakes/"+intakeA+"/tasks", jsonBody(dto.CreateTaskRequest{
				Name: "Viva", Category: "Milestone", Weight: &weight,
			}))
			if w.Code != tc.status {
				t.Fatalf("期望 %d，实际: %d", tc.status, w.Code)
			}
			resp := parseResponse(w)
			if resp.Code != tc.code {
				t.Errorf("期望 code %d，实际: %d", tc.code, resp.Code)
			}
			if resp.Kind != tc.kind {
				t.Errorf("期望 kind %q，实际: %q", tc.kind, resp.Kind)
			}
		})
	}
}

func TestTaskHandler_AmendTask_PartialFields(t *testing.T) {
	mock := &mockTaskService{amendResult: &dto.PropagationResponse{}}
	h := NewTaskHandler(mock)
	r := newEngine("admin")
	r.PUT("/tasks/:id", h.AmendTask)

	w := serve(r, http.MethodPut, "/tasks/"+lineage1, strings.NewReader(`{"weight": 15, "apply_scope": {"kind": "all_intakes_of_program"}}`))
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d %s", w.Code, w.Body.String())
	}
	if mock.lastAmend.Name != nil || mock.lastAmend.Category != nil {
		t.Error("期望未提供的字段保持 nil")
	}
	if mock.lastAmend.Weight == nil || *mock.lastAmend.Weight != 15 {
		t.Errorf("期望 weight=15，实际: %v", mock.lastAmend.Weight)
	}
	if mock.lastAmend.ApplyScope == nil || mock.lastAmend.ApplyScope.Kind != "all_intakes_of_program" {
		t.Errorf("期望范围 all_intakes_of_program，实际: %+v", mock.lastAmend.ApplyScope)
	}
}

func TestTaskHandler_AmendTask_UnknownScopeKind(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})
	r := newEngine("admin")
	r.PUT("/tasks/:id", h.AmendTask)

	w := serve(r, http.MethodPut, "/tasks/"+lineage1, strings.NewReader(`{"weight": 15, "apply_scope": {"kind": "everything"}}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
}

func TestTaskHandler_DeleteTask_ScopeFromQuery(t *testing.T) {
	mock := &mockTaskService{deleteResult: &dto.PropagationResponse{}}
	h := NewTaskHandler(mock)
	r := newEngine("admin")
	r.DELETE("/tasks/:id", h.DeleteTask)

	w := serve(r, http.MethodDelete, "/tasks/"+lineage1+"?scope=custom&intake_ids="+intakeB+",%20"+intakeC, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d %s", w.Code, w.Body.String())
	}
	scope := mock.lastDelete.ApplyScope
	if scope == nil || scope.Kind != "custom" {
		t.Fatalf("期望 custom 范围，实际: %+v", scope)
	}
	if len(scope.IntakeIDs) != 2 || scope.IntakeIDs[0] != intakeB || scope.IntakeIDs[1] != intakeC {
		t.Errorf("期望 intake_ids [B C]，实际: %v", scope.IntakeIDs)
	}
}

func TestTaskHandler_DeleteTask_NoScope(t *testing.T) {
	mock := &mockTaskService{deleteResult: &dto.PropagationResponse{}}
	h := NewTaskHandler(mock)
	r := newEngine("admin")
	r.DELETE("/tasks/:id", h.DeleteTask)

	w := serve(r, http.MethodDelete, "/tasks/"+lineage1, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d", w.Code)
	}
	if mock.lastDelete == nil || mock.lastDelete.ApplyScope != nil {
		t.Errorf("期望空范围（默认仅本批次），实际: %+v", mock.lastDelete)
	}
}

func TestTaskHandler_RevertTask_VersionNotFound(t *testing.T) {
	mock := &mockTaskService{revertErr: fmt.Errorf("%w: v9", service.ErrVersionNotFound)}
	h := NewTaskHandler(mock)
	r := newEngine("admin")
	r.POST("/tasks/:id/revert", h.RevertTask)

	w := serve(r, http.MethodPost, "/tasks/"+lineage1+"/revert", jsonBody(dto.RevertTaskRequest{VersionNumber: 9}))
	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际: %d", w.Code)
	}
	if resp := parseResponse(w); resp.Kind != "version_not_found" {
		t.Errorf("期望 kind version_not_found，实际: %q", resp.Kind)
	}
}

func TestTaskHandler_RevertTask_ZeroVersion(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})
	r := newEngine("admin")
	r.POST("/tasks/:id/revert", h.RevertTask)

	w := serve(r, http.MethodPost, "/tasks/"+lineage1+"/revert", jsonBody(dto.RevertTaskRequest{VersionNumber: 0}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
}

func TestTaskHandler_GetHistory(t *testing.T) {
	mock := &mockTaskService{history: []dto.TaskVersionResponse{
		{LineageID: "l-1", VersionNumber: 2, Action: "amend"},
		{LineageID: "l-1", VersionNumber: 1, Action: "create"},
	}}
	h := NewTaskHandler(mock)
	r := newEngine("")
	r.GET("/tasks/:id/history", h.GetHistory)

	w := serve(r, http.MethodGet, "/tasks/"+lineage1+"/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d", w.Code)
	}
	var body struct {
		Data struct {
			List  []dto.TaskVersionResponse `json:"list"`
			Total int                       `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if body.Data.Total != 2 || body.Data.List[0].VersionNumber != 2 {
		t.Errorf("期望 2 条且新版本在前，实际: %+v", body.Data)
	}
}

func TestTaskHandler_GetTask_NotFound(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{taskErr: service.ErrLineageNotFound})
	r := newEngine("")
	r.GET("/tasks/:id", h.GetTask)

	w := serve(r, http.MethodGet, "/tasks/"+unknownID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际: %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// StatusHandler Tests
// ═══════════════════════════════════════════════════════════

func TestStatusHandler_GetStatus_Success(t *testing.T) {
	mock := &mockStatusService{status: &dto.TaskStatusResponse{
		StudentID: "s-1", LineageID: "l-1", Status: "pending_overdue", DueSemester: 2,
	}}
	h := NewStatusHandler(mock)
	r := newEngine("")
	r.GET("/students/:id/tasks/:lineage_id/status", h.GetStatus)

	w := serve(r, http.MethodGet, "/students/"+student1+"/tasks/"+lineage1+"/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "pending_overdue") {
		t.Errorf("期望响应包含状态，实际: %s", w.Body.String())
	}
}

func TestStatusHandler_GetStatus_StudentNotFound(t *testing.T) {
	h := NewStatusHandler(&mockStatusService{statusErr: service.ErrStudentNotFound})
	r := newEngine("")
	r.GET("/students/:id/tasks/:lineage_id/status", h.GetStatus)

	w := serve(r, http.MethodGet, "/students/"+unknownID+"/tasks/"+lineage1+"/status", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际: %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 21001 {
		t.Errorf("期望 code 21001，实际: %d", resp.Code)
	}
}

func TestStatusHandler_AppendProgress(t *testing.T) {
	mock := &mockStatusService{appended: &dto.ProgressUpdateResponse{EventID: 7}}
	h := NewStatusHandler(mock)
	r := newEngine("Dr. Tan")
	r.POST("/progress-updates", h.AppendProgress)

	w := serve(r, http.MethodPost, "/progress-updates", strings.NewReader(`{
		"student_id": "6f1c2b1e-3c55-4a5d-9b8e-0d5f3f0a6b11",
		"lineage_id": "0b6a9d4e-2f3c-4f6b-8a1d-7c9e5b3a2d10",
		"update_type": "completion",
		"completion_date": "2024-03-01"
	}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际: %d %s", w.Code, w.Body.String())
	}
	if mock.lastActor != "Dr. Tan" {
		t.Errorf("期望操作人 Dr. Tan，实际: %q", mock.lastActor)
	}
	if mock.lastAppend.CompletionDate == nil || *mock.lastAppend.CompletionDate != "2024-03-01" {
		t.Errorf("期望 completion_date 透传，实际: %v", mock.lastAppend.CompletionDate)
	}
}

func TestStatusHandler_AppendProgress_BadDate(t *testing.T) {
	h := NewStatusHandler(&mockStatusService{})
	r := newEngine("admin")
	r.POST("/progress-updates", h.AppendProgress)

	w := serve(r, http.MethodPost, "/progress-updates", strings.NewReader(`{
		"student_id": "6f1c2b1e-3c55-4a5d-9b8e-0d5f3f0a6b11",
		"lineage_id": "0b6a9d4e-2f3c-4f6b-8a1d-7c9e5b3a2d10",
		"update_type": "completion",
		"completion_date": "01/03/2024"
	}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
}

func TestStatusHandler_AppendProgress_Invalid(t *testing.T) {
	h := NewStatusHandler(&mockStatusService{appendErr: fmt.Errorf("%w: update_type", service.ErrInvalidProgressUpdate)})
	r := newEngine("admin")
	r.POST("/progress-updates", h.AppendProgress)

	w := serve(r, http.MethodPost, "/progress-updates", strings.NewReader(`{
		"student_id": "6f1c2b1e-3c55-4a5d-9b8e-0d5f3f0a6b11",
		"lineage_id": "0b6a9d4e-2f3c-4f6b-8a1d-7c9e5b3a2d10",
		"update_type": "nonsense"
	}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
	if resp := parseResponse(w); resp.Kind != "invalid_progress_update" {
		t.Errorf("期望 kind invalid_progress_update，实际: %q", resp.Kind)
	}
}

func TestStatusHandler_CurrentSemester(t *testing.T) {
	mock := &mockStatusService{semester: &dto.StudentSemesterResponse{StudentID: "s-1", Semester: 3}}
	h := NewStatusHandler(mock)
	r := newEngine("")
	r.GET("/students/:id/semester", h.CurrentSemester)

	w := serve(r, http.MethodGet, "/students/"+student1+"/semester", nil)
	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际: %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// IntakeHandler Tests
// ═══════════════════════════════════════════════════════════

func TestIntakeHandler_ListIntakes_ProgramFilter(t *testing.T) {
	mock := &mockIntakeService{list: []dto.IntakeResponse{{ID: "intake-a"}}}
	h := NewIntakeHandler(mock)
	r := newEngine("")
	r.GET("/intakes", h.ListIntakes)

	w := serve(r, http.MethodGet, "/intakes?program_id=MSE", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d", w.Code)
	}
	if mock.lastQuery != "MSE" {
		t.Errorf("期望 program_id=MSE，实际: %q", mock.lastQuery)
	}
}

func TestIntakeHandler_CreateIntake_InvalidParity(t *testing.T) {
	h := NewIntakeHandler(&mockIntakeService{})
	r := newEngine("admin")
	r.POST("/intakes", h.CreateIntake)

	w := serve(r, http.MethodPost, "/intakes", jsonBody(dto.CreateIntakeRequest{
		ProgramID: "MSE", SemesterParity: 3, AcademicYear: "2023/2024",
	}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
}

func TestIntakeHandler_CreateIntake_InvalidYear(t *testing.T) {
	h := NewIntakeHandler(&mockIntakeService{err: service.ErrInvalidIntake})
	r := newEngine("admin")
	r.POST("/intakes", h.CreateIntake)

	w := serve(r, http.MethodPost, "/intakes", jsonBody(dto.CreateIntakeRequest{
		ProgramID: "MSE", SemesterParity: 1, AcademicYear: "2023/2025",
	}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 22002 {
		t.Errorf("期望 code 22002，实际: %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// CalendarHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCalendarHandler_ImportICS_File(t *testing.T) {
	mock := &mockCalendarService{importResp: &dto.CalendarImportResponse{Imported: 2}}
	h := NewCalendarHandler(mock)
	r := newEngine("admin")
	r.POST("/calendar/import", h.ImportICS)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "calendar.ics")
	fw.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/calendar/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际: %d %s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(mock.imported, "BEGIN:VCALENDAR") {
		t.Errorf("期望上传内容透传给服务，实际: %q", mock.imported)
	}
}

func TestCalendarHandler_ImportICS_NoSource(t *testing.T) {
	h := NewCalendarHandler(&mockCalendarService{})
	r := newEngine("admin")
	r.POST("/calendar/import", h.ImportICS)

	w := serve(r, http.MethodPost, "/calendar/import", strings.NewReader(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 22004 {
		t.Errorf("期望 code 22004，实际: %d", resp.Code)
	}
}

func TestCalendarHandler_UpsertEntry_InvalidWindow(t *testing.T) {
	h := NewCalendarHandler(&mockCalendarService{upsertErr: service.ErrInvalidCalendarEntry})
	r := newEngine("admin")
	r.PUT("/calendar", h.UpsertEntry)

	w := serve(r, http.MethodPut, "/calendar", jsonBody(dto.UpsertCalendarEntryRequest{
		AcademicYear: "2023/2024", SemesterParity: 1, StartDate: "2024-02-01", EndDate: "2023-10-01",
	}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportCatalog(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("xlsx"), filename: "任务目录_MSE_2023-2024-1.xlsx"}
	h := NewExportHandler(mock)
	r := newEngine("")
	r.GET("/export/intakes/:id/catalog", h.ExportCatalog)

	w := serve(r, http.MethodGet, "/export/intakes/"+intakeA+"/catalog", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("期望 xlsx Content-Type，实际: %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "filename*=UTF-8''") {
		t.Errorf("期望 UTF-8 文件名，实际: %q", cd)
	}
	if w.Body.String() != "xlsx" {
		t.Errorf("期望文件内容透传，实际: %q", w.Body.String())
	}
}

func TestExportHandler_ExportCatalog_NoTasks(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoTasks})
	r := newEngine("")
	r.GET("/export/intakes/:id/catalog", h.ExportCatalog)

	w := serve(r, http.MethodGet, "/export/intakes/"+intakeA+"/catalog", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际: %d", w.Code)
	}
}

func TestTaskHandler_InvalidIDParam(t *testing.T) {
	mock := &mockTaskService{taskErr: service.ErrLineageNotFound}
	h := NewTaskHandler(mock)
	r := newEngine("admin")
	r.GET("/tasks/:id", h.GetTask)
	r.DELETE("/tasks/:id", h.DeleteTask)

	w := serve(r, http.MethodGet, "/tasks/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10003 {
		t.Errorf("期望 code 10003，实际: %d", resp.Code)
	}

	w = serve(r, http.MethodDelete, "/tasks/"+lineage1+"?scope=custom&intake_ids=b", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法 intake_ids 期望 400，实际: %d", w.Code)
	}
	if mock.lastDelete != nil {
		t.Error("非法 ID 不应调用服务")
	}
}

func TestStatusHandler_InvalidIDParam(t *testing.T) {
	h := NewStatusHandler(&mockStatusService{})
	r := newEngine("")
	r.GET("/students/:id/tasks/:lineage_id/status", h.GetStatus)

	w := serve(r, http.MethodGet, "/students/"+student1+"/tasks/l-1/status", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
}

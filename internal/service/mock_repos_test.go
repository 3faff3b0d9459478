package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ssebin/pandagrad-sub000/config"
	"github.com/ssebin/pandagrad-sub000/internal/model"
	pkgerrors "github.com/ssebin/pandagrad-sub000/pkg/errors"
)

// ── Mock IntakeRepository ──

type mockIntakeRepo struct {
	mu      sync.Mutex
	intakes map[string]*model.Intake
	seq     int
}

func newMockIntakeRepo() *mockIntakeRepo {
	return &mockIntakeRepo{intakes: make(map[string]*model.Intake)}
}

func (m *mockIntakeRepo) Create(_ context.Context, intake *model.Intake) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if intake.IntakeID == "" {
		m.seq++
		intake.IntakeID = fmt.Sprintf("intake-%d", m.seq)
	}
	intake.CreatedAt = time.Now()
	cp := *intake
	m.intakes[intake.IntakeID] = &cp
	return nil
}

func (m *mockIntakeRepo) GetByID(_ context.Context, id string) (*model.Intake, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in, ok := m.intakes[id]; ok {
		cp := *in
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockIntakeRepo) List(_ context.Context) ([]model.Intake, error) {
	return m.filter(func(*model.Intake) bool { return true }), nil
}

func (m *mockIntakeRepo) ListByProgram(_ context.Context, programID string) ([]model.Intake, error) {
	return m.filter(func(in *model.Intake) bool { return in.ProgramID == programID }), nil
}

func (m *mockIntakeRepo) UpdateLabel(_ context.Context, id, label, updatedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intakes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	in.Label = label
	in.UpdatedBy = updatedBy
	return nil
}

func (m *mockIntakeRepo) filter(keep func(*model.Intake) bool) []model.Intake {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Intake
	for _, in := range m.intakes {
		if keep(in) {
			result = append(result, *in)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].IntakeID < result[j].IntakeID })
	return result
}

// ── Mock TaskRepository ──
//
// 行为与 Postgres 实现一致：活跃谱系 (intake, name_key) 唯一、
// head 推进以 version 做乐观锁、版本号 (lineage, number) 唯一。

type mockTaskRepo struct {
	mu       sync.Mutex
	lineages map[string]*model.TaskLineage
	versions map[string][]model.TaskVersion
	seq      int

	// 注入的乐观锁冲突次数
	conflicts int
	// 追加成功次数
	appends int
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{
		lineages: make(map[string]*model.TaskLineage),
		versions: make(map[string][]model.TaskVersion),
	}
}

func (m *mockTaskRepo) CreateLineage(_ context.Context, lineage *model.TaskLineage, first *model.TaskVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeByName(lineage.IntakeID, lineage.Name) != nil {
		return gorm.ErrDuplicatedKey
	}
	m.seq++
	lineage.LineageID = fmt.Sprintf("lineage-%d", m.seq)
	now := time.Now()
	lineage.CreatedAt = now
	lineage.UpdatedAt = now
	cp := *lineage
	m.lineages[lineage.LineageID] = &cp

	first.LineageID = lineage.LineageID
	first.CreatedAt = now
	m.versions[lineage.LineageID] = append(m.versions[lineage.LineageID], *first)
	return nil
}

func (m *mockTaskRepo) GetLineage(_ context.Context, id string) (*model.TaskLineage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lineages[id]
	if !ok || l.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *mockTaskRepo) GetLineageUnscoped(_ context.Context, id string) (*model.TaskLineage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lineages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *mockTaskRepo) FindActiveByName(_ context.Context, intakeID, name string) (*model.TaskLineage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l := m.activeByName(intakeID, name); l != nil {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaskRepo) ListByIntake(_ context.Context, intakeID string) ([]model.TaskLineage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.TaskLineage
	for _, l := range m.lineages {
		if l.IntakeID == intakeID && !l.DeletedAt.Valid {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockTaskRepo) AppendVersion(_ context.Context, lineage *model.TaskLineage, version *model.TaskVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts > 0 {
		m.conflicts--
		return pkgerrors.ErrOptimisticLock
	}
	stored, ok := m.lineages[lineage.LineageID]
	if !ok || stored.DeletedAt.Valid || stored.Version != lineage.Version {
		return pkgerrors.ErrOptimisticLock
	}
	for _, v := range m.versions[lineage.LineageID] {
		if v.VersionNumber == version.VersionNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	if other := m.activeByName(stored.IntakeID, version.Name); other != nil && other.LineageID != stored.LineageID {
		return gorm.ErrDuplicatedKey
	}

	stored.Name = version.Name
	stored.Category = version.Category
	stored.Weight = version.Weight
	stored.UpdatedBy = version.CreatedBy
	stored.UpdatedAt = time.Now()
	stored.Version++

	version.LineageID = lineage.LineageID
	version.CreatedAt = stored.UpdatedAt
	m.versions[lineage.LineageID] = append(m.versions[lineage.LineageID], *version)
	m.appends++

	*lineage = *stored
	return nil
}

func (m *mockTaskRepo) SoftDelete(_ context.Context, lineage *model.TaskLineage, deletedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.lineages[lineage.LineageID]
	if !ok || stored.DeletedAt.Valid || stored.Version != lineage.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	stored.DeletedBy = &deletedBy
	return nil
}

func (m *mockTaskRepo) GetVersion(_ context.Context, lineageID string, number int) (*model.TaskVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions[lineageID] {
		if v.VersionNumber == number {
			cp := v
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaskRepo) ListVersions(_ context.Context, lineageID string) ([]model.TaskVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := append([]model.TaskVersion(nil), m.versions[lineageID]...)
	sort.Slice(result, func(i, j int) bool { return result[i].VersionNumber > result[j].VersionNumber })
	return result, nil
}

func (m *mockTaskRepo) activeByName(intakeID, name string) *model.TaskLineage {
	key := model.TaskNameKey(name)
	for _, l := range m.lineages {
		if l.IntakeID == intakeID && !l.DeletedAt.Valid && model.TaskNameKey(l.Name) == key {
			return l
		}
	}
	return nil
}

// head 测试辅助：读取谱系当前状态
func (m *mockTaskRepo) head(id string) model.TaskLineage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.lineages[id]
}

// ── Mock CalendarRepository ──

type mockCalendarRepo struct {
	mu      sync.Mutex
	entries []model.CalendarEntry
	lists   int
}

func newMockCalendarRepo() *mockCalendarRepo { return &mockCalendarRepo{} }

func (m *mockCalendarRepo) List(_ context.Context) ([]model.CalendarEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	return append([]model.CalendarEntry(nil), m.entries...), nil
}

func (m *mockCalendarRepo) Upsert(_ context.Context, entries []model.CalendarEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		replaced := false
		for i := range m.entries {
			if m.entries[i].AcademicYear == e.AcademicYear && m.entries[i].SemesterParity == e.SemesterParity {
				m.entries[i] = e
				replaced = true
			}
		}
		if !replaced {
			m.entries = append(m.entries, e)
		}
	}
	return nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students map[string]*model.Student
	plans    map[string][]model.StudyPlanEntry
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{
		students: make(map[string]*model.Student),
		plans:    make(map[string][]model.StudyPlanEntry),
	}
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if s, ok := m.students[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) ListByLineage(_ context.Context, lineageID string) ([]model.Student, error) {
	seen := make(map[string]bool)
	var result []model.Student
	for studentID, plan := range m.plans {
		for _, e := range plan {
			if e.LineageID == lineageID && !seen[studentID] {
				seen[studentID] = true
				result = append(result, *m.students[studentID])
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

func (m *mockStudentRepo) ListPlan(_ context.Context, studentID string) ([]model.StudyPlanEntry, error) {
	return m.plans[studentID], nil
}

func (m *mockStudentRepo) enroll(s model.Student, lineageID string, semesters ...int) {
	cp := s
	m.students[s.StudentID] = &cp
	for _, sem := range semesters {
		m.plans[s.StudentID] = append(m.plans[s.StudentID], model.StudyPlanEntry{
			StudentID: s.StudentID,
			LineageID: lineageID,
			Semester:  sem,
		})
	}
}

// ── Mock ProgressRepository ──

type mockProgressRepo struct {
	mu      sync.Mutex
	updates []model.ProgressUpdate
	seq     int64
}

func newMockProgressRepo() *mockProgressRepo { return &mockProgressRepo{} }

func (m *mockProgressRepo) Append(_ context.Context, update *model.ProgressUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	update.EventID = m.seq
	m.updates = append(m.updates, *update)
	return nil
}

func (m *mockProgressRepo) ListByStudentLineage(_ context.Context, studentID, lineageID string) ([]model.ProgressUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ProgressUpdate
	for _, u := range m.updates {
		if u.StudentID == studentID && u.LineageID == lineageID {
			result = append(result, u)
		}
	}
	return result, nil
}

// ── Mock CalendarCache ──

type mockCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{items: make(map[string][]byte)} }

func (m *mockCache) GetJSON(_ context.Context, key string, dst interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return fmt.Errorf("miss: %s", key)
	}
	return json.Unmarshal(raw, dst)
}

func (m *mockCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *mockCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

// ── 测试装配 ──

type testEnv struct {
	intakes  *mockIntakeRepo
	tasks    *mockTaskRepo
	calendar *mockCalendarRepo
	students *mockStudentRepo
	progress *mockProgressRepo

	directory  *RepoDirectory
	store      *LineageStore
	propagator *Propagator
	taskSvc    TaskService
	statusSvc  *statusService
}

func testCatalogConfig() *config.CatalogConfig {
	return &config.CatalogConfig{
		PropagationWorkers: 4,
		LockWait:           2 * time.Second,
		MaxRetries:         3,
	}
}

func newTestEnv() *testEnv {
	logger := zap.NewNop()
	env := &testEnv{
		intakes:  newMockIntakeRepo(),
		tasks:    newMockTaskRepo(),
		calendar: newMockCalendarRepo(),
		students: newMockStudentRepo(),
		progress: newMockProgressRepo(),
	}
	env.directory = NewIntakeDirectory(env.intakes, env.calendar, nil, time.Minute, logger)
	env.store = NewLineageStore(env.tasks, env.directory, testCatalogConfig(), logger)
	env.propagator = NewPropagator(env.store, env.directory, 4, logger)
	roster := NewStudentRoster(env.students)
	env.taskSvc = NewTaskService(env.tasks, env.store, env.propagator, env.directory, roster, logger)
	env.statusSvc = NewStatusService(env.store, env.directory, roster, NewProgressLedger(env.progress), time.UTC, logger).(*statusService)
	return env
}

// addIntake 创建批次并返回 ID
func (e *testEnv) addIntake(programID string, parity int, year string) string {
	in := &model.Intake{ProgramID: programID, SemesterParity: parity, AcademicYear: year}
	_ = e.intakes.Create(context.Background(), in)
	return in.IntakeID
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"name-rotation/backend/internal/model"
	"name-rotation/backend/internal/repository"
	pkgerrors "name-rotation/backend/pkg/errors"
)

// ── 内存存储 ──
//
// 成员与任务共用一个 memStore，mockTxManager 通过快照/回滚模拟事务。

type memStore struct {
	mu           sync.Mutex
	participants map[string]*model.Participant
	order        []string
	assignments  []*model.Assignment
	seq          int
	// fail 按操作名注入错误，用于验证事务回滚
	fail map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		participants: make(map[string]*model.Participant),
		fail:         make(map[string]error),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%03d", prefix, s.seq)
}

func (s *memStore) injected(op string) error {
	return s.fail[op]
}

type memSnapshot struct {
	participants map[string]*model.Participant
	order        []string
	assignments  []*model.Assignment
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		participants: make(map[string]*model.Participant, len(s.participants)),
		order:        append([]string(nil), s.order...),
		assignments:  make([]*model.Assignment, 0, len(s.assignments)),
	}
	for id, p := range s.participants {
		cp := *p
		snap.participants[id] = &cp
	}
	for _, a := range s.assignments {
		cp := *a
		snap.assignments = append(snap.assignments, &cp)
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = snap.participants
	s.order = snap.order
	s.assignments = snap.assignments
}

// seedParticipant 直接写入成员（按调用顺序作为存储自然顺序）
func (s *memStore) seedParticipant(id, name string, active bool, last *time.Time, count int) *model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &model.Participant{
		ParticipantID:    id,
		Name:             name,
		IsActive:         active,
		LastSelectedDate: last,
		SelectionCount:   count,
		Version:          1,
	}
	s.participants[id] = p
	s.order = append(s.order, id)
	return p
}

// seedAssignment 直接写入任务分配
func (s *memStore) seedAssignment(id, participantID string, label *string, special bool, date time.Time) *model.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &model.Assignment{
		AssignmentID:  id,
		ParticipantID: participantID,
		Label:         label,
		IsSpecial:     special,
		SessionDate:   model.SessionDate(date),
	}
	s.assignments = append(s.assignments, a)
	return a
}

func (s *memStore) participant(id string) model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.participants[id]
}

func (s *memStore) sessionItems(date time.Time, special bool) []model.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Assignment
	for _, a := range s.assignments {
		if a.SessionDate.Equal(model.SessionDate(date)) && a.IsSpecial == special {
			out = append(out, *a)
		}
	}
	return out
}

func (s *memStore) assignment(id string) model.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.AssignmentID == id {
			return *a
		}
	}
	return model.Assignment{}
}

func (s *memStore) withParticipant(a model.Assignment) model.Assignment {
	if p, ok := s.participants[a.ParticipantID]; ok {
		cp := *p
		a.Participant = &cp
	}
	return a
}

// ── Mock ParticipantRepository ──

type mockParticipantRepo struct {
	store *memStore
}

func (m *mockParticipantRepo) Create(_ context.Context, p *model.Participant) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("participant.Create"); err != nil {
		return err
	}
	if p.ParticipantID == "" {
		p.ParticipantID = s.nextID("p")
	}
	p.Version = 1
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.participants[p.ParticipantID] = &cp
	s.order = append(s.order, p.ParticipantID)
	return nil
}

func (m *mockParticipantRepo) GetByID(_ context.Context, id string) (*model.Participant, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.participants[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockParticipantRepo) List(_ context.Context, activeOnly bool, offset, limit int) ([]model.Participant, int64, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.Participant
	for _, id := range s.order {
		p := s.participants[id]
		if activeOnly && !p.IsActive {
			continue
		}
		all = append(all, *p)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (m *mockParticipantRepo) ListActive(_ context.Context) ([]model.Participant, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("participant.ListActive"); err != nil {
		return nil, err
	}
	var out []model.Participant
	for _, id := range s.order {
		if p := s.participants[id]; p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockParticipantRepo) ListNeverSelected(_ context.Context) ([]model.Participant, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Participant
	for _, id := range s.order {
		if p := s.participants[id]; p.IsActive && p.LastSelectedDate == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockParticipantRepo) CountActive(_ context.Context) (int64, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range s.participants {
		if p.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *mockParticipantRepo) Update(_ context.Context, p *model.Participant) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.participants[p.ParticipantID]
	if !ok || cur.Version != p.Version {
		return pkgerrors.ErrOptimisticLock
	}
	p.Version++
	cp := *p
	s.participants[p.ParticipantID] = &cp
	return nil
}

func (m *mockParticipantRepo) MarkSelected(_ context.Context, ids []string, date time.Time) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("participant.MarkSelected"); err != nil {
		return err
	}
	for _, id := range ids {
		p, ok := s.participants[id]
		if !ok {
			continue
		}
		d := date
		p.LastSelectedDate = &d
		p.SelectionCount++
		p.Version++
	}
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	store *memStore
	// batchCalls 记录 BatchCreate 调用次数；failBatchAt 指定第几次调用失败（从 1 计）
	batchCalls  int
	failBatchAt int
}

func (m *mockAssignmentRepo) BatchCreate(_ context.Context, items []model.Assignment) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	m.batchCalls++
	if m.failBatchAt > 0 && m.batchCalls == m.failBatchAt {
		return fmt.Errorf("模拟写入失败")
	}
	for i := range items {
		if items[i].AssignmentID == "" {
			items[i].AssignmentID = s.nextID("a")
		}
		cp := items[i]
		cp.Participant = nil
		s.assignments = append(s.assignments, &cp)
	}
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.Assignment, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.AssignmentID == id {
			cp := s.withParticipant(*a)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) ListBySession(_ context.Context, date time.Time, special *bool) ([]model.Assignment, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Assignment
	for _, a := range s.assignments {
		if !a.SessionDate.Equal(date) {
			continue
		}
		if special != nil && a.IsSpecial != *special {
			continue
		}
		out = append(out, s.withParticipant(*a))
	}
	sort.SliceStable(out, func(i, j int) bool { return !out[i].IsSpecial && out[j].IsSpecial })
	return out, nil
}

func (m *mockAssignmentRepo) FindSpecialByParticipant(_ context.Context, date time.Time, participantID string) (*model.Assignment, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.IsSpecial && a.ParticipantID == participantID && a.SessionDate.Equal(model.SessionDate(date)) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) ListByParticipant(_ context.Context, participantID string, from time.Time) ([]model.Assignment, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Assignment
	for _, a := range s.assignments {
		if a.ParticipantID == participantID && !a.SessionDate.Before(from) {
			out = append(out, s.withParticipant(*a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SessionDate.Before(out[j].SessionDate) })
	return out, nil
}

func (m *mockAssignmentRepo) UpdateFields(_ context.Context, item *model.Assignment) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("assignment.UpdateFields:" + item.AssignmentID); err != nil {
		return err
	}
	for _, a := range s.assignments {
		if a.AssignmentID == item.AssignmentID {
			a.Label = item.Label
			a.ParticipantID = item.ParticipantID
			a.UpdatedBy = item.UpdatedBy
			a.UpdatedAt = time.Now()
			return nil
		}
	}
	return nil
}

func (m *mockAssignmentRepo) DeleteBySession(_ context.Context, date time.Time) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.assignments[:0:0]
	for _, a := range s.assignments {
		if !a.SessionDate.Equal(date) {
			kept = append(kept, a)
		}
	}
	s.assignments = kept
	return nil
}

func (m *mockAssignmentRepo) ExistsForSession(_ context.Context, date time.Time) (bool, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assignments {
		if a.SessionDate.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAssignmentRepo) LatestSessionDate(_ context.Context) (*time.Time, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *time.Time
	for _, a := range s.assignments {
		if latest == nil || a.SessionDate.After(*latest) {
			d := a.SessionDate
			latest = &d
		}
	}
	return latest, nil
}

// ── Mock TxManager ──

// mockTxManager 串行执行事务；fn 失败时恢复到事务开始前的快照
type mockTxManager struct {
	mu    sync.Mutex
	store *memStore
	repo  *repository.Repository
}

func (m *mockTxManager) WithinTx(_ context.Context, fn func(tx *repository.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.store.snapshot()
	if err := fn(m.repo); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// ── 测试仓储聚合 ──

type testRepos struct {
	store       *memStore
	participant *mockParticipantRepo
	assignment  *mockAssignmentRepo
}

func newTestRepos() *testRepos {
	store := newMemStore()
	return &testRepos{
		store:       store,
		participant: &mockParticipantRepo{store: store},
		assignment:  &mockAssignmentRepo{store: store},
	}
}

func (r *testRepos) toRepository() *repository.Repository {
	agg := &repository.Repository{
		Participant: r.participant,
		Assignment:  r.assignment,
	}
	agg.Tx = &mockTxManager{store: r.store, repo: agg}
	return agg
}

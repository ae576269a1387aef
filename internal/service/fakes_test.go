package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/datatypes"
)

var errBackend = errors.New("backend unavailable")

// clone 通过 JSON 深拷贝，避免测试中共享指针
func clone(src, dst interface{}) {
	raw, err := json.Marshal(src)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		panic(err)
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

type fakeTemplates struct {
	mu          sync.Mutex
	items       map[string]*model.Template
	fail        map[string]error
	calls       int
	invalidated []string
	seq         int
}

func newFakeTemplates(ts ...*model.Template) *fakeTemplates {
	f := &fakeTemplates{items: map[string]*model.Template{}, fail: map[string]error{}}
	for _, t := range ts {
		f.items[t.ID] = t
	}
	return f
}

func (f *fakeTemplates) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	t, ok := f.items[id]
	if !ok {
		return nil, util.ErrTemplateNotFound
	}
	var out model.Template
	clone(t, &out)
	return &out, nil
}

func (f *fakeTemplates) ListTemplates(ctx context.Context) ([]model.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]model.Template, 0, len(ids))
	for _, id := range ids {
		var t model.Template
		clone(f.items[id], &t)
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTemplates) CreateTemplate(ctx context.Context, t *model.Template) (*model.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		f.seq++
		t.ID = fmt.Sprintf("tpl-%d", f.seq)
	}
	var stored model.Template
	clone(t, &stored)
	f.items[t.ID] = &stored
	return t, nil
}

func (f *fakeTemplates) UpdateTemplate(ctx context.Context, t *model.Template) (*model.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[t.ID]; !ok {
		return nil, util.ErrTemplateNotFound
	}
	var stored model.Template
	clone(t, &stored)
	f.items[t.ID] = &stored
	return t, nil
}

func (f *fakeTemplates) Invalidate(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, id)
	return nil
}

func tpl(id string, tipo model.ActivityType, data string) *model.Template {
	return &model.Template{
		UUIDBase: model.UUIDBase{ID: id},
		Nome:     "Template " + id,
		Tipo:     tipo,
		Data:     datatypes.JSON(data),
	}
}

type fakeContents struct {
	mu          sync.Mutex
	items       map[string]*model.Content
	order       []string
	submitErr   error
	concludeErr error
	gradeErr    error
	updateErr   error
	submits     int
	concludes   int
	grades      int
	updates     int
	seq         int
}

func newFakeContents(cs ...*model.Content) *fakeContents {
	f := &fakeContents{items: map[string]*model.Content{}}
	for _, c := range cs {
		f.put(c)
	}
	return f
}

func (f *fakeContents) put(c *model.Content) {
	var stored model.Content
	clone(c, &stored)
	if stored.Usuarios == nil {
		stored.Usuarios = map[string]*model.ProgressRecord{}
	}
	if _, ok := f.items[c.ID]; !ok {
		f.order = append(f.order, c.ID)
	}
	f.items[c.ID] = &stored
}

func (f *fakeContents) get(id string) (*model.Content, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, util.ErrContentNotFound
	}
	var out model.Content
	clone(c, &out)
	if out.Usuarios == nil {
		out.Usuarios = map[string]*model.ProgressRecord{}
	}
	return &out, nil
}

func (f *fakeContents) stored(id string) *model.Content {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, _ := f.get(id)
	return c
}

func (f *fakeContents) GetContent(ctx context.Context, id string) (*model.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(id)
}

func (f *fakeContents) ListContents(ctx context.Context) ([]model.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Content, 0, len(f.order))
	for _, id := range f.order {
		c, _ := f.get(id)
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeContents) CreateContent(ctx context.Context, c *model.Content) (*model.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		f.seq++
		c.ID = fmt.Sprintf("content-%d", f.seq)
	}
	f.put(c)
	return c, nil
}

func (f *fakeContents) SubmitAnswer(ctx context.Context, contentID string, sub model.AnswerSubmission) (*model.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	c, ok := f.items[contentID]
	if !ok {
		return nil, util.ErrContentNotFound
	}
	c.Assign(sub.UserID)
	if c.Usuarios[sub.UserID].AnswerFor(sub.TemplateID) != nil {
		if sub.Tipo.LocksAfterSubmit() {
			return nil, util.ErrActivityLocked
		}
		return f.get(contentID)
	}
	c.Usuarios[sub.UserID].UpsertAnswer(model.Answer{
		TemplateID:   sub.TemplateID,
		Tipo:         sub.Tipo,
		Resposta:     sub.Resposta,
		Correta:      sub.Correta,
		DataResposta: fixedClock(),
		Nota:         sub.Nota,
		Realizado:    sub.Realizado,
	})
	return f.get(contentID)
}

func (f *fakeContents) ConcludeContent(ctx context.Context, contentID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.concludes++
	if f.concludeErr != nil {
		return false, f.concludeErr
	}
	c, ok := f.items[contentID]
	if !ok {
		return false, util.ErrContentNotFound
	}
	c.Assign(userID)
	if c.Usuarios[userID].Realizado {
		return false, nil
	}
	now := fixedClock()
	c.Usuarios[userID].Realizado = true
	c.Usuarios[userID].DataConclusao = &now
	return true, nil
}

func (f *fakeContents) GradeContent(ctx context.Context, contentID string, g model.GradeSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grades++
	if f.gradeErr != nil {
		return f.gradeErr
	}
	c, ok := f.items[contentID]
	if !ok {
		return util.ErrContentNotFound
	}
	rec := c.Usuarios[g.UserID]
	if rec == nil {
		return util.ErrNotAssigned
	}
	status := g.Status
	rec.Status = &status
	rec.Nota = g.Nota
	return nil
}

func (f *fakeContents) UpdateContent(ctx context.Context, c *model.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.items[c.ID]; !ok {
		return util.ErrContentNotFound
	}
	f.put(c)
	return nil
}

type fakeUsers struct {
	mu       sync.Mutex
	items    map[string]*model.User
	awardErr error
	getErr   error
	awards   int
}

func newFakeUsers(us ...*model.User) *fakeUsers {
	f := &fakeUsers{items: map[string]*model.User{}}
	for _, u := range us {
		f.items[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetUser(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.items[id]
	if !ok {
		return nil, util.ErrUserNotFound
	}
	var out model.User
	clone(u, &out)
	return &out, nil
}

func (f *fakeUsers) ListUsersBySectors(ctx context.Context, setores []string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, s := range setores {
		want[s] = true
	}
	var out []model.User
	for _, u := range f.items {
		if want[u.Setor] {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) AwardCertificate(ctx context.Context, userID, certificateID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.awards++
	if f.awardErr != nil {
		return f.awardErr
	}
	u, ok := f.items[userID]
	if !ok {
		return util.ErrUserNotFound
	}
	if !u.HasCertificate(certificateID) {
		u.Certificados = append(u.Certificados, model.UserCertificate{ID: certificateID, DataConclusao: at})
	}
	return nil
}

func user(id, setor string, role model.UserRole) *model.User {
	return &model.User{UUIDBase: model.UUIDBase{ID: id}, Nome: "User " + id, Email: id + "@example.com", Setor: setor, Role: role}
}

type fakeCertificates struct {
	mu        sync.Mutex
	items     []model.Certificate
	getErr    error
	failOn    map[string]error
	getCalls  int
	failAfter int // 第 N 次 GetCertificates 之后失败，0 表示不启用
	updates   []string
	seq       int
}

func newFakeCertificates(cs ...model.Certificate) *fakeCertificates {
	return &fakeCertificates{items: cs, failOn: map[string]error{}}
}

func (f *fakeCertificates) GetCertificates(ctx context.Context) ([]model.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.failAfter > 0 && f.getCalls > f.failAfter {
		return nil, errBackend
	}
	var out []model.Certificate
	clone(f.items, &out)
	return out, nil
}

func (f *fakeCertificates) UpdateCertificate(ctx context.Context, cert *model.Certificate) (*model.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[cert.ID]; err != nil {
		return nil, err
	}
	for i := range f.items {
		if f.items[i].ID == cert.ID {
			clone(cert, &f.items[i])
			f.updates = append(f.updates, cert.ID)
			var out model.Certificate
			clone(cert, &out)
			return &out, nil
		}
	}
	return nil, util.ErrCertificateNotFound
}

func (f *fakeCertificates) CreateCertificate(ctx context.Context, cert *model.Certificate) (*model.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cert.ID == "" {
		f.seq++
		cert.ID = fmt.Sprintf("cert-new-%d", f.seq)
	}
	var stored model.Certificate
	clone(cert, &stored)
	f.items = append(f.items, stored)
	return cert, nil
}

func (f *fakeCertificates) byID(id string) model.Certificate {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.ID == id {
			return c
		}
	}
	return model.Certificate{}
}

func cert(id string, nivel *int, rel ...string) model.Certificate {
	return model.Certificate{UUIDBase: model.UUIDBase{ID: id}, Nome: "Cert " + id, Nivel: nivel, Relacionados: rel}
}

func lvl(n int) *int { return &n }

type fakeCursors struct {
	mu      sync.Mutex
	items   map[string]int
	loadErr error
}

func newFakeCursors() *fakeCursors {
	return &fakeCursors{items: map[string]int{}}
}

func (f *fakeCursors) LoadCursor(ctx context.Context, contentID, userID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return 0, false, f.loadErr
	}
	idx, ok := f.items[contentID+"/"+userID]
	return idx, ok, nil
}

func (f *fakeCursors) SaveCursor(ctx context.Context, contentID, userID string, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[contentID+"/"+userID] = index
	return nil
}

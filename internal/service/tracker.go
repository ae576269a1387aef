package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"

	"go.uber.org/zap"
)

type TrackerState string

const (
	StateNotStarted    TrackerState = "not_started"
	StateInProgress    TrackerState = "in_progress"
	StateAwaitingGrade TrackerState = "awaiting_grade"
	StateApproved      TrackerState = "approved"
	StateRejected      TrackerState = "rejected"
	StateCompleted     TrackerState = "completed"
)

// recordFinished 自动批改已完成，或人工批改已通过
func recordFinished(content *model.Content, rec *model.ProgressRecord) bool {
	if rec == nil {
		return false
	}
	if rec.Status != nil && *rec.Status == model.StatusApproved {
		return true
	}
	return content.Correcao == model.CorrectionAutomatic && rec.Realizado
}

// DeriveState 由进度记录推导状态
func DeriveState(content *model.Content, rec *model.ProgressRecord, holdsCertificate bool) TrackerState {
	if rec == nil || (!rec.Realizado && len(rec.Conteudo) == 0 && rec.Status == nil) {
		return StateNotStarted
	}
	if rec.Status != nil && *rec.Status == model.StatusRejected {
		return StateRejected
	}
	if recordFinished(content, rec) {
		if content.CertificadoID == nil || holdsCertificate {
			return StateCompleted
		}
		return StateApproved
	}
	if !rec.Realizado {
		return StateInProgress
	}
	return StateAwaitingGrade
}

// CertificateIssuer 完成内容后发放证书，已持有时不重复发放
type CertificateIssuer struct {
	users UserStore
	clock Clock
}

func NewCertificateIssuer(users UserStore, clock Clock) *CertificateIssuer {
	if clock == nil {
		clock = time.Now
	}
	return &CertificateIssuer{users: users, clock: clock}
}

func (i *CertificateIssuer) Issue(ctx context.Context, content *model.Content, userID string) (bool, error) {
	if content.CertificadoID == nil || *content.CertificadoID == "" {
		return false, nil
	}
	user, err := i.users.GetUser(ctx, userID)
	if err != nil {
		return false, util.WrapNetwork("getUser", err)
	}
	if user.HasCertificate(*content.CertificadoID) {
		return false, nil
	}
	if err := i.users.AwardCertificate(ctx, userID, *content.CertificadoID, i.clock()); err != nil {
		return false, util.WrapNetwork("awardCertificate", err)
	}
	logger.Log.Info("certificate issued",
		zap.String("content_id", content.ID),
		zap.String("user_id", userID),
		zap.String("certificate_id", *content.CertificadoID))
	return true, nil
}

// SubmitResult Recorded 为 false 表示本次未产生新作答
type SubmitResult struct {
	Recorded bool          `json:"recorded"`
	Answer   *model.Answer `json:"answer,omitempty"`
}

type NextResult struct {
	Moved             bool `json:"moved"`
	Concluded         bool `json:"concluded"`
	Closed            bool `json:"closed"`
	CertificateIssued bool `json:"certificate_issued"`
}

type ExitPrompt struct {
	NeedsConfirmation bool   `json:"needs_confirmation"`
	Progress          int    `json:"progress"`
	Remaining         int    `json:"remaining"`
	Message           string `json:"message,omitempty"`
}

// TrackerDeps 跟踪器依赖
type TrackerDeps struct {
	Contents ContentStore
	Registry *ActivityRegistry
	Issuer   *CertificateIssuer
	Clock    Clock
}

// ProgressTracker 单个用户在单个内容上的进度状态机
type ProgressTracker struct {
	mu         sync.Mutex
	deps       TrackerDeps
	identity   model.Identity
	content    *model.Content
	seq        *Sequence
	holdsCert  bool
	submitting bool
}

func NewProgressTracker(deps TrackerDeps, identity model.Identity, content *model.Content, seq *Sequence) *ProgressTracker {
	if deps.Registry == nil {
		deps.Registry = DefaultActivityRegistry()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &ProgressTracker{deps: deps, identity: identity, content: content, seq: seq}
}

// SetHoldsCertificate 用户已持有内容对应的证书
func (t *ProgressTracker) SetHoldsCertificate(v bool) {
	t.mu.Lock()
	t.holdsCert = v
	t.mu.Unlock()
}

func (t *ProgressTracker) Identity() model.Identity { return t.identity }

func (t *ProgressTracker) Sequence() *Sequence { return t.seq }

func (t *ProgressTracker) Content() *model.Content {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.content
}

func (t *ProgressTracker) Record() *model.ProgressRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.content.Record(t.identity.ID)
}

func (t *ProgressTracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return DeriveState(t.content, t.content.Record(t.identity.ID), t.holdsCert)
}

// Finished realizado 为真
func (t *ProgressTracker) Finished() bool {
	rec := t.Record()
	return rec != nil && rec.Realizado
}

// CurrentAnswer 当前活动已有的作答
func (t *ProgressTracker) CurrentAnswer() *model.Answer {
	t.mu.Lock()
	defer t.mu.Unlock()
	act, ok := t.seq.Current()
	if !ok {
		return nil
	}
	return t.content.Record(t.identity.ID).AnswerFor(act.ID)
}

// IsBlocked 必做活动未作答时不能前进
func (t *ProgressTracker) IsBlocked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.blockedLocked()
}

func (t *ProgressTracker) blockedLocked() bool {
	act, ok := t.seq.Current()
	if !ok || !act.Mandatory() {
		return false
	}
	return t.content.Record(t.identity.ID).AnswerFor(act.ID) == nil
}

func (t *ProgressTracker) begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.submitting {
		return util.ErrSubmissionInFlight
	}
	t.submitting = true
	return nil
}

func (t *ProgressTracker) end() {
	t.mu.Lock()
	t.submitting = false
	t.mu.Unlock()
}

// Submit 记录当前活动的作答，失败时状态不变
func (t *ProgressTracker) Submit(ctx context.Context, in ActivityInput) (SubmitResult, error) {
	if err := t.begin(); err != nil {
		return SubmitResult{}, err
	}
	defer t.end()

	t.mu.Lock()
	act, ok := t.seq.Current()
	existing := t.content.Record(t.identity.ID).AnswerFor(act.ID)
	contentID := t.content.ID
	t.mu.Unlock()
	if !ok {
		return SubmitResult{}, util.ErrEmptySequence
	}

	h, err := t.deps.Registry.Handler(act.Tipo)
	if err != nil {
		return SubmitResult{}, err
	}
	if in.Event == "" {
		in.Event = EventSubmit
	}

	if existing != nil {
		if h.Resubmit() == ResubmitIgnore {
			return SubmitResult{Recorded: false, Answer: existing}, nil
		}
		return SubmitResult{}, util.ErrActivityLocked
	}
	if err := h.Validate(act, in); err != nil {
		return SubmitResult{}, err
	}
	if !h.CanComplete(act, in) {
		return SubmitResult{Recorded: false}, nil
	}

	draft := h.BuildAnswer(act, in)
	sub := model.AnswerSubmission{
		UserID:     t.identity.ID,
		TemplateID: act.ID,
		Tipo:       act.Tipo,
		Resposta:   draft.Resposta,
		Correta:    draft.Correta,
		Realizado:  draft.Realizado,
		Nota:       draft.Nota,
	}
	updated, err := t.deps.Contents.SubmitAnswer(ctx, contentID, sub)
	if errors.Is(err, util.ErrActivityLocked) {
		// 另一个请求已先提交
		t.refresh(ctx)
		return SubmitResult{}, err
	}
	if err != nil {
		return SubmitResult{}, util.WrapNetwork("submitAnswer", err)
	}
	monitoring.AnswersSubmitted.WithLabelValues(string(act.Tipo)).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()
	if updated != nil && updated.Record(t.identity.ID).AnswerFor(act.ID) != nil {
		t.content = updated
	} else {
		t.applyLocally(sub)
	}
	return SubmitResult{Recorded: true, Answer: t.content.Record(t.identity.ID).AnswerFor(act.ID)}, nil
}

// refresh 重新读取内容，失败时保留本地状态
func (t *ProgressTracker) refresh(ctx context.Context) {
	t.mu.Lock()
	id := t.content.ID
	t.mu.Unlock()
	fresh, err := t.deps.Contents.GetContent(ctx, id)
	if err != nil {
		logger.Log.Warn("content refresh failed", zap.String("content_id", id), zap.Error(err))
		return
	}
	t.mu.Lock()
	t.content = fresh
	t.mu.Unlock()
}

func (t *ProgressTracker) applyLocally(sub model.AnswerSubmission) {
	t.content.Assign(t.identity.ID)
	t.content.Usuarios[t.identity.ID].UpsertAnswer(model.Answer{
		TemplateID:   sub.TemplateID,
		Tipo:         sub.Tipo,
		Resposta:     sub.Resposta,
		Correta:      sub.Correta,
		DataResposta: t.deps.Clock(),
		Nota:         sub.Nota,
		Realizado:    sub.Realizado,
	})
}

// Next 前进；在最后一项时请求完成内容，已完成则直接关闭
func (t *ProgressTracker) Next(ctx context.Context) (NextResult, error) {
	if err := t.begin(); err != nil {
		return NextResult{}, err
	}
	defer t.end()

	t.mu.Lock()
	if t.seq.Len() == 0 {
		t.mu.Unlock()
		return NextResult{}, util.ErrEmptySequence
	}
	if t.blockedLocked() {
		t.mu.Unlock()
		return NextResult{}, util.ErrActivityBlocked
	}
	if !t.seq.IsLast() {
		t.seq.Advance()
		t.mu.Unlock()
		return NextResult{Moved: true}, nil
	}
	rec := t.content.Record(t.identity.ID)
	if rec != nil && rec.Realizado {
		t.mu.Unlock()
		return NextResult{Closed: true}, nil
	}
	content := t.content
	t.mu.Unlock()

	concluded, err := t.deps.Contents.ConcludeContent(ctx, content.ID, t.identity.ID)
	if err != nil {
		return NextResult{}, util.WrapNetwork("concludeContent", err)
	}
	if !concluded {
		t.refresh(ctx)
		return NextResult{Closed: true}, nil
	}
	monitoring.ContentsConcluded.Inc()
	logger.Log.Info("content concluded",
		zap.String("content_id", content.ID),
		zap.String("user_id", t.identity.ID))

	t.mu.Lock()
	now := t.deps.Clock()
	t.content.Assign(t.identity.ID)
	rec = t.content.Usuarios[t.identity.ID]
	rec.Realizado = true
	rec.DataConclusao = &now
	finished := recordFinished(t.content, rec)
	t.mu.Unlock()

	res := NextResult{Concluded: true, Closed: true}
	if finished && t.deps.Issuer != nil {
		issued, err := t.deps.Issuer.Issue(ctx, content, t.identity.ID)
		if err != nil {
			monitoring.PartialCommits.WithLabelValues("conclusion", "2").Inc()
			return res, &util.PartialCommitError{
				Step:     2,
				StepName: "issue_certificate",
				Applied:  []string{"conclude_content"},
				Err:      err,
			}
		}
		res.CertificateIssued = issued
		if content.CertificadoID != nil {
			t.SetHoldsCertificate(true)
		}
	}
	return res, nil
}

// Previous 后退不受必做限制
func (t *ProgressTracker) Previous() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.submitting {
		return false, util.ErrSubmissionInFlight
	}
	return t.seq.Previous(), nil
}

// ExitCheck 未完成时需要用户确认，提示剩余百分比
func (t *ProgressTracker) ExitCheck() ExitPrompt {
	t.mu.Lock()
	defer t.mu.Unlock()
	pct := t.seq.ProgressPercent()
	prompt := ExitPrompt{
		Progress:  int(math.Round(pct)),
		Remaining: int(math.Round(100 - pct)),
	}
	rec := t.content.Record(t.identity.ID)
	if rec != nil && rec.Realizado {
		prompt.Remaining = 0
		return prompt
	}
	prompt.NeedsConfirmation = true
	prompt.Message = fmt.Sprintf("Você concluiu %d%% do conteúdo. Ainda falta %d%%. Tem certeza que deseja sair?", prompt.Progress, prompt.Remaining)
	return prompt
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	MinCertificateLevel = 1
	MaxCertificateLevel = 3
)

// CertificateDraft 证书表单
type CertificateDraft struct {
	ID           string   `json:"id,omitempty"`
	Nome         string   `json:"nome" validate:"required,max=200"`
	Descricao    string   `json:"descricao"`
	Insignia     string   `json:"insignia"`
	CargaHoraria int      `json:"carga_horaria" validate:"min=0"`
	Nivel        *int     `json:"nivel" validate:"omitempty,min=1,max=3"`
	Relacionados []string `json:"relacionados"`
}

// LevelConflict 与当前证书级别冲突的关联证书
type LevelConflict struct {
	CertificateID  string `json:"certificate_id"`
	Nome           string `json:"nome"`
	CurrentLevel   *int   `json:"current_level"`
	SuggestedLevel int    `json:"suggested_level"`
}

type SaveCertificateRequest struct {
	Certificate CertificateDraft `json:"certificate"`
	// Resolutions 用户确认后的级别，key 为冲突证书ID
	Resolutions map[string]int `json:"resolutions"`
}

type SaveCertificateResult struct {
	Certificate     *model.Certificate  `json:"certificate"`
	LevelChanges    map[string]int      `json:"level_changes,omitempty"`
	RelationsSynced []string            `json:"relations_synced,omitempty"`
	Certificates    []model.Certificate `json:"certificates"`
}

// IsConflict 级别相同或未设置级别即为冲突
func IsConflict(current *int, related *model.Certificate) bool {
	if related.Nivel == nil || *related.Nivel == 0 {
		return true
	}
	return current != nil && *related.Nivel == *current
}

// SuggestLevel 已有级别加一（最多到 3），没有级别时取当前级别加一
func SuggestLevel(existing, current *int) int {
	if existing != nil && *existing != 0 {
		if *existing < MaxCertificateLevel {
			return *existing + 1
		}
		return *existing
	}
	cur := 0
	if current != nil {
		cur = *current
	}
	if cur < MaxCertificateLevel {
		return cur + 1
	}
	return cur
}

func DetectConflicts(current *int, related []model.Certificate) []LevelConflict {
	var out []LevelConflict
	for i := range related {
		r := &related[i]
		if !IsConflict(current, r) {
			continue
		}
		out = append(out, LevelConflict{
			CertificateID:  r.ID,
			Nome:           r.Nome,
			CurrentLevel:   r.Nivel,
			SuggestedLevel: SuggestLevel(r.Nivel, current),
		})
	}
	return out
}

type CertificateService struct {
	certs CertificateStore
	clock Clock
}

func NewCertificateService(certs CertificateStore, clock Clock) *CertificateService {
	if clock == nil {
		clock = time.Now
	}
	return &CertificateService{certs: certs, clock: clock}
}

func (s *CertificateService) List(ctx context.Context) ([]model.Certificate, error) {
	list, err := s.certs.GetCertificates(ctx)
	if err != nil {
		return nil, util.WrapNetwork("getCertificates", err)
	}
	return list, nil
}

func indexCertificates(list []model.Certificate) map[string]*model.Certificate {
	idx := make(map[string]*model.Certificate, len(list))
	for i := range list {
		idx[list[i].ID] = &list[i]
	}
	return idx
}

// relatedOf 去重并排除自身，未知ID视为校验失败
func relatedOf(d *CertificateDraft, idx map[string]*model.Certificate) ([]model.Certificate, error) {
	seen := map[string]bool{}
	var ids []string
	var out []model.Certificate
	for _, id := range d.Relacionados {
		id = strings.TrimSpace(id)
		if id == "" || id == d.ID || seen[id] {
			continue
		}
		seen[id] = true
		c, ok := idx[id]
		if !ok {
			return nil, util.NewValidationError("relacionados", "certificate %s does not exist", id)
		}
		ids = append(ids, id)
		out = append(out, *c)
	}
	d.Relacionados = ids
	return out, nil
}

func (s *CertificateService) prepare(ctx context.Context, d *CertificateDraft) ([]model.Certificate, map[string]*model.Certificate, error) {
	d.Nome = strings.TrimSpace(d.Nome)
	if err := util.ValidateStruct(d); err != nil {
		return nil, nil, err
	}
	list, err := s.certs.GetCertificates(ctx)
	if err != nil {
		return nil, nil, util.WrapNetwork("getCertificates", err)
	}
	idx := indexCertificates(list)
	if d.ID != "" {
		if _, ok := idx[d.ID]; !ok {
			return nil, nil, util.ErrCertificateNotFound
		}
	}
	related, err := relatedOf(d, idx)
	if err != nil {
		return nil, nil, err
	}
	return related, idx, nil
}

// Preview 只计算冲突和建议级别，不写入
func (s *CertificateService) Preview(ctx context.Context, d CertificateDraft) ([]LevelConflict, error) {
	related, _, err := s.prepare(ctx, &d)
	if err != nil {
		return nil, err
	}
	conflicts := DetectConflicts(d.Nivel, related)
	if len(conflicts) > 0 {
		monitoring.CertificateConflicts.Add(float64(len(conflicts)))
	}
	return conflicts, nil
}

// commitLog 记录已生效的步骤
type commitLog struct {
	applied []string
}

func (c *commitLog) add(format string, args ...interface{}) {
	c.applied = append(c.applied, fmt.Sprintf(format, args...))
}

func (c *commitLog) fail(step int, name string, err error) error {
	monitoring.PartialCommits.WithLabelValues("certificate_save", fmt.Sprint(step)).Inc()
	logger.Log.Error("certificate save aborted",
		zap.Int("step", step),
		zap.String("step_name", name),
		zap.Strings("applied", c.applied),
		zap.Error(err))
	return &util.PartialCommitError{
		Step:     step,
		StepName: name,
		Applied:  append([]string(nil), c.applied...),
		Err:      err,
	}
}

// Save 按顺序提交：冲突级别 -> 重新拉取 -> 保存主证书 -> 双向关联 -> 刷新
// 不是事务，失败时之前的步骤不会回滚
func (s *CertificateService) Save(ctx context.Context, req SaveCertificateRequest) (res *SaveCertificateResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "certificate.save", attribute.String("certificate_id", req.Certificate.ID))
	defer func() { tracing.EndSpan(span, err) }()

	d := req.Certificate
	related, idx, err := s.prepare(ctx, &d)
	if err != nil {
		return nil, err
	}

	conflicts := DetectConflicts(d.Nivel, related)
	if len(conflicts) > 0 {
		monitoring.CertificateConflicts.Add(float64(len(conflicts)))
	}
	changes := make(map[string]int, len(conflicts))
	var pending []string
	for _, c := range conflicts {
		lvl, ok := req.Resolutions[c.CertificateID]
		if !ok {
			pending = append(pending, c.CertificateID)
			continue
		}
		if lvl < MinCertificateLevel || lvl > MaxCertificateLevel {
			return nil, util.NewValidationError("resolutions", "level for %s must be between %d and %d", c.CertificateID, MinCertificateLevel, MaxCertificateLevel)
		}
		changes[c.CertificateID] = lvl
	}
	if len(pending) > 0 {
		return nil, fmt.Errorf("%w: %s", util.ErrConflictsUnresolved, strings.Join(pending, ", "))
	}

	log := &commitLog{}
	res = &SaveCertificateResult{LevelChanges: changes}

	if len(d.Relacionados) > 0 {
		// 1. 逐个写入冲突证书的新级别，遇到第一个失败即停止
		for _, c := range conflicts {
			cert := *idx[c.CertificateID]
			lvl := changes[c.CertificateID]
			cert.Nivel = &lvl
			if _, err := s.certs.UpdateCertificate(ctx, &cert); err != nil {
				return nil, log.fail(1, "apply_levels", err)
			}
			log.add("level:%s=%d", cert.ID, lvl)
		}
		logger.Log.Info("certificate save step 1: levels applied", zap.Int("count", len(conflicts)))

		// 2. 重新拉取，观察刚写入的级别
		list, err := s.certs.GetCertificates(ctx)
		if err != nil {
			return nil, log.fail(2, "refetch", err)
		}
		idx = indexCertificates(list)
		logger.Log.Info("certificate save step 2: list refetched", zap.Int("count", len(list)))
	}

	// 3. 保存主证书
	primary, err := s.persistPrimary(ctx, d, idx)
	if err != nil {
		return nil, log.fail(3, "save_primary", err)
	}
	log.add("primary:%s", primary.ID)
	idx[primary.ID] = primary
	res.Certificate = primary
	logger.Log.Info("certificate save step 3: primary saved", zap.String("certificate_id", primary.ID))

	// 4. 双向关联：并集，只写有变化的证书
	if len(d.Relacionados) > 0 {
		group := append([]string{primary.ID}, d.Relacionados...)
		for _, id := range group {
			cur, ok := idx[id]
			if !ok {
				continue
			}
			next := unionRelations(cur.Relacionados, group, id)
			if sameSet(cur.Relacionados, next) {
				continue
			}
			cert := *cur
			cert.Relacionados = next
			if cert.Nivel == nil || *cert.Nivel == 0 {
				one := MinCertificateLevel
				cert.Nivel = &one
			}
			saved, err := s.certs.UpdateCertificate(ctx, &cert)
			if err != nil {
				return nil, log.fail(4, "sync_relations", err)
			}
			if saved == nil {
				saved = &cert
			}
			if id == primary.ID {
				res.Certificate = saved
			}
			log.add("relations:%s", id)
			res.RelationsSynced = append(res.RelationsSynced, id)
		}
		logger.Log.Info("certificate save step 4: relations synced", zap.Strings("certificates", res.RelationsSynced))
	}

	// 5. 刷新
	list, err := s.certs.GetCertificates(ctx)
	if err != nil {
		return nil, log.fail(5, "refresh", err)
	}
	res.Certificates = list
	logger.Log.Info("certificate save step 5: refreshed", zap.String("certificate_id", res.Certificate.ID))
	return res, nil
}

func (s *CertificateService) persistPrimary(ctx context.Context, d CertificateDraft, idx map[string]*model.Certificate) (*model.Certificate, error) {
	cert := model.Certificate{
		Nome:         d.Nome,
		Descricao:    d.Descricao,
		Insignia:     d.Insignia,
		CargaHoraria: d.CargaHoraria,
		Nivel:        d.Nivel,
		Relacionados: d.Relacionados,
	}
	if d.ID == "" {
		cert.DataCriacao = s.clock()
		return s.certs.CreateCertificate(ctx, &cert)
	}
	existing := idx[d.ID]
	cert.UUIDBase = existing.UUIDBase
	cert.DataCriacao = existing.DataCriacao
	cert.Relacionados = unionRelations(existing.Relacionados, d.Relacionados, d.ID)
	saved, err := s.certs.UpdateCertificate(ctx, &cert)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		saved = &cert
	}
	return saved, nil
}

// unionRelations (existing ∪ group) \ {self}，保持原有顺序
func unionRelations(existing, group []string, self string) []string {
	seen := map[string]bool{self: true}
	out := make([]string, 0, len(existing)+len(group))
	for _, list := range [][]string{existing, group} {
		for _, id := range list {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	as := make(map[string]bool, len(a))
	for _, id := range a {
		as[id] = true
	}
	bs := make(map[string]bool, len(b))
	for _, id := range b {
		bs[id] = true
	}
	if len(as) != len(bs) {
		return false
	}
	for id := range as {
		if !bs[id] {
			return false
		}
	}
	return true
}

package service

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
)

const (
	VideoSentinel    = "Vídeo assistido completo"
	DocumentSentinel = "Documento Visualizado"
	ArticleSentinel  = "Leitura Concluída"

	// 距离底部 50px 以内视为读完
	ScrollThreshold = 50
)

// syntheticHandler 视频和文档：触发事件即生成满分作答
type syntheticHandler struct {
	kind     model.ActivityType
	event    ActivityEvent
	sentinel string
}

func VideoHandler() ActivityHandler {
	return syntheticHandler{kind: model.ActivityVideo, event: EventEnded, sentinel: VideoSentinel}
}

func DocumentHandler() ActivityHandler {
	return syntheticHandler{kind: model.ActivityDocument, event: EventViewed, sentinel: DocumentSentinel}
}

func (h syntheticHandler) Kind() model.ActivityType { return h.kind }

func (h syntheticHandler) Validate(act Activity, in ActivityInput) error {
	if in.Event != h.event {
		return util.NewValidationError("event", "%s activities complete on %q", h.kind, h.event)
	}
	return nil
}

func (h syntheticHandler) CanComplete(act Activity, in ActivityInput) bool {
	return in.Event == h.event
}

func (h syntheticHandler) Resubmit() ResubmitPolicy { return ResubmitIgnore }

func (h syntheticHandler) BuildAnswer(act Activity, in ActivityInput) AnswerDraft {
	return fullScore(h.sentinel)
}

func fullScore(sentinel string) AnswerDraft {
	return AnswerDraft{
		Resposta:  mustJSON(sentinel),
		Correta:   boolPtr(true),
		Nota:      floatPtr(100),
		Realizado: true,
	}
}

type articlePayload struct {
	Titulo       string  `json:"titulo"`
	TempoLeitura flexInt `json:"tempoLeitura"`
}

// ArticleHandler 倒计时结束或滚动到底部，先到者生效
type ArticleHandler struct{}

func (ArticleHandler) Kind() model.ActivityType { return model.ActivityArticle }

// ReadingSeconds tempoLeitura 分钟数换算为秒，无法解析时为 0（不计时）
func (ArticleHandler) ReadingSeconds(act Activity) int {
	var p articlePayload
	if err := decodePayload(act, &p); err != nil {
		return 0
	}
	if p.TempoLeitura <= 0 {
		return 0
	}
	return int(p.TempoLeitura) * 60
}

func (h ArticleHandler) Validate(act Activity, in ActivityInput) error {
	switch in.Event {
	case EventTimer:
		if h.ReadingSeconds(act) == 0 {
			return util.NewValidationError("event", "article has no reading time")
		}
		return nil
	case EventScroll:
		if in.ScrollHeight <= 0 || in.ClientHeight <= 0 {
			return util.NewValidationError("scroll", "scroll event needs scroll_height and client_height")
		}
		return nil
	default:
		return util.NewValidationError("event", "article activities complete on %q or %q", EventTimer, EventScroll)
	}
}

func (h ArticleHandler) CanComplete(act Activity, in ActivityInput) bool {
	switch in.Event {
	case EventTimer:
		secs := h.ReadingSeconds(act)
		return secs > 0 && in.ElapsedSeconds >= secs
	case EventScroll:
		return in.ScrollHeight-in.ScrollTop <= in.ClientHeight+ScrollThreshold
	}
	return false
}

func (ArticleHandler) Resubmit() ResubmitPolicy { return ResubmitIgnore }

func (ArticleHandler) BuildAnswer(act Activity, in ActivityInput) AnswerDraft {
	return fullScore(ArticleSentinel)
}

func (h ArticleHandler) Details(act Activity, answer *model.Answer) map[string]interface{} {
	return map[string]interface{}{"reading_seconds": h.ReadingSeconds(act)}
}

type quizOption struct {
	Texto   string   `json:"texto"`
	Correta flexBool `json:"correta"`
}

// UnmarshalJSON 选项可能直接是字符串
func (o *quizOption) UnmarshalJSON(raw []byte) error {
	if len(raw) > 0 && raw[0] == '"' {
		return json.Unmarshal(raw, &o.Texto)
	}
	type plain quizOption
	var p plain
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	*o = quizOption(p)
	return nil
}

type quizPayload struct {
	Pergunta string       `json:"pergunta"`
	Opcoes   []quizOption `json:"opcoes"`
}

// QuizHandler 单选题，100/0 计分，提交后锁定
type QuizHandler struct{}

func (QuizHandler) Kind() model.ActivityType { return model.ActivityQuiz }

// CorrectIndex 没有正确选项时返回 -1，此时按问卷处理
func (QuizHandler) CorrectIndex(act Activity) int {
	var p quizPayload
	if err := decodePayload(act, &p); err != nil {
		return -1
	}
	for i, o := range p.Opcoes {
		if o.Correta {
			return i
		}
	}
	return -1
}

func (QuizHandler) Validate(act Activity, in ActivityInput) error {
	if in.Event != EventSubmit {
		return util.NewValidationError("event", "quiz answers are submitted with %q", EventSubmit)
	}
	if in.Selected == nil {
		return util.NewValidationError("selected", "an option must be selected")
	}
	var p quizPayload
	if err := decodePayload(act, &p); err != nil {
		return err
	}
	if *in.Selected < 0 || *in.Selected >= len(p.Opcoes) {
		return util.NewValidationError("selected", "option %d out of range", *in.Selected)
	}
	return nil
}

func (QuizHandler) CanComplete(act Activity, in ActivityInput) bool { return true }

func (QuizHandler) Resubmit() ResubmitPolicy { return ResubmitReject }

func (h QuizHandler) BuildAnswer(act Activity, in ActivityInput) AnswerDraft {
	draft := AnswerDraft{
		Resposta:  mustJSON(*in.Selected),
		Realizado: true,
	}
	correct := h.CorrectIndex(act)
	if correct < 0 {
		return draft
	}
	if *in.Selected == correct {
		draft.Correta, draft.Nota = boolPtr(true), floatPtr(100)
	} else {
		draft.Correta, draft.Nota = boolPtr(false), floatPtr(0)
	}
	return draft
}

// Details 提交后才公布正确选项
func (h QuizHandler) Details(act Activity, answer *model.Answer) map[string]interface{} {
	d := map[string]interface{}{"submitted": answer != nil}
	if answer != nil {
		if idx := h.CorrectIndex(act); idx >= 0 {
			d["correct_index"] = idx
		}
	}
	return d
}

type textPayload struct {
	Enunciado     string  `json:"enunciado"`
	MinCaracteres flexInt `json:"minCaracteres"`
	MaxCaracteres flexInt `json:"maxCaracteres"`
}

// TextHandler 自由文本，等待人工批改
type TextHandler struct{}

func (TextHandler) Kind() model.ActivityType { return model.ActivityText }

func (TextHandler) Validate(act Activity, in ActivityInput) error {
	if in.Event != EventSubmit {
		return util.NewValidationError("event", "text answers are submitted with %q", EventSubmit)
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return util.NewValidationError("text", "answer must not be empty")
	}
	var p textPayload
	if err := decodePayload(act, &p); err != nil {
		return err
	}
	n := utf8.RuneCountInString(text)
	if p.MinCaracteres > 0 && n < int(p.MinCaracteres) {
		return util.NewValidationError("text", "answer needs at least %d characters", p.MinCaracteres)
	}
	if p.MaxCaracteres > 0 && n > int(p.MaxCaracteres) {
		return util.NewValidationError("text", "answer exceeds %d characters", p.MaxCaracteres)
	}
	return nil
}

func (TextHandler) CanComplete(act Activity, in ActivityInput) bool { return true }

func (TextHandler) Resubmit() ResubmitPolicy { return ResubmitReject }

func (TextHandler) BuildAnswer(act Activity, in ActivityInput) AnswerDraft {
	return AnswerDraft{Resposta: mustJSON(strings.TrimSpace(in.Text)), Realizado: false}
}

type uploadPayload struct {
	Instrucoes    string      `json:"instrucoes"`
	TiposAceitos  flexStrings `json:"tiposAceitos"`
	TamanhoMaximo flexInt     `json:"tamanhoMaximo"`
}

// UploadHandler 文件地址作为答案，等待人工批改
type UploadHandler struct{}

func (UploadHandler) Kind() model.ActivityType { return model.ActivityUpload }

// Limits 允许的扩展名和大小上限（MB）
func (UploadHandler) Limits(act Activity) ([]string, int) {
	var p uploadPayload
	_ = decodePayload(act, &p)
	maxMB := int(p.TamanhoMaximo)
	if maxMB <= 0 {
		maxMB = util.DefaultUploadMaxMB
	}
	return p.TiposAceitos, maxMB
}

func (h UploadHandler) Validate(act Activity, in ActivityInput) error {
	if in.Event != EventSubmit {
		return util.NewValidationError("event", "uploads are submitted with %q", EventSubmit)
	}
	if strings.TrimSpace(in.FileURL) == "" {
		return util.NewValidationError("file_url", "a file must be uploaded first")
	}
	accepted, _ := h.Limits(act)
	if !util.ExtensionAllowed(in.FileURL, accepted) {
		return util.NewValidationError("file_url", "file type not accepted, expected one of %s", strings.Join(accepted, ", "))
	}
	return nil
}

func (UploadHandler) CanComplete(act Activity, in ActivityInput) bool { return true }

func (UploadHandler) Resubmit() ResubmitPolicy { return ResubmitReject }

func (UploadHandler) BuildAnswer(act Activity, in ActivityInput) AnswerDraft {
	return AnswerDraft{Resposta: mustJSON(strings.TrimSpace(in.FileURL)), Realizado: false}
}

func (h UploadHandler) Details(act Activity, answer *model.Answer) map[string]interface{} {
	accepted, maxMB := h.Limits(act)
	return map[string]interface{}{"tiposAceitos": accepted, "tamanhoMaximo": maxMB}
}

package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"lms_backend/internal/model"
	"lms_backend/internal/util"
)

// Activity 扁平化后的可播放单元
type Activity struct {
	ID           string             `json:"id"`
	TemplateID   string             `json:"template_id"`
	Tipo         model.ActivityType `json:"tipo"`
	Data         json.RawMessage    `json:"data"`
	TemplateName string             `json:"templateName"`
	Thumbnail    string             `json:"thumbnail,omitempty"`
}

// Mandatory data.obrigatorio 为真时阻止前进
func (a Activity) Mandatory() bool {
	var p struct {
		Obrigatorio flexBool `json:"obrigatorio"`
	}
	_ = json.Unmarshal(a.Data, &p)
	return bool(p.Obrigatorio)
}

type ActivityEvent string

const (
	EventSubmit ActivityEvent = "submit"
	EventEnded  ActivityEvent = "ended"
	EventViewed ActivityEvent = "viewed"
	EventTimer  ActivityEvent = "timer"
	EventScroll ActivityEvent = "scroll"
)

// ActivityInput 播放器上报的交互
type ActivityInput struct {
	Event          ActivityEvent `json:"event"`
	Selected       *int          `json:"selected,omitempty"`
	Text           string        `json:"text,omitempty"`
	FileURL        string        `json:"file_url,omitempty"`
	ElapsedSeconds int           `json:"elapsed_seconds,omitempty"`
	ScrollTop      float64       `json:"scroll_top,omitempty"`
	ScrollHeight   float64       `json:"scroll_height,omitempty"`
	ClientHeight   float64       `json:"client_height,omitempty"`
}

// AnswerDraft 处理器生成的作答内容
type AnswerDraft struct {
	Resposta  json.RawMessage
	Correta   *bool
	Nota      *float64
	Realizado bool
}

type ResubmitPolicy int

const (
	// ResubmitIgnore 重复完成不再提交
	ResubmitIgnore ResubmitPolicy = iota
	// ResubmitReject 提交后锁定
	ResubmitReject
)

// ActivityHandler 每种活动类型一个实现
type ActivityHandler interface {
	Kind() model.ActivityType
	Validate(act Activity, in ActivityInput) error
	CanComplete(act Activity, in ActivityInput) bool
	Resubmit() ResubmitPolicy
	BuildAnswer(act Activity, in ActivityInput) AnswerDraft
}

// ActivityDetailer 可选，为播放视图补充类型相关信息
type ActivityDetailer interface {
	Details(act Activity, answer *model.Answer) map[string]interface{}
}

type ActivityRegistry struct {
	mu       sync.RWMutex
	handlers map[model.ActivityType]ActivityHandler
}

func NewActivityRegistry(handlers ...ActivityHandler) *ActivityRegistry {
	r := &ActivityRegistry{handlers: make(map[model.ActivityType]ActivityHandler)}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// DefaultActivityRegistry 内置六种活动
func DefaultActivityRegistry() *ActivityRegistry {
	return NewActivityRegistry(
		VideoHandler(),
		DocumentHandler(),
		ArticleHandler{},
		QuizHandler{},
		TextHandler{},
		UploadHandler{},
	)
}

func (r *ActivityRegistry) Register(h ActivityHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Kind()] = h
}

func (r *ActivityRegistry) Handler(tipo model.ActivityType) (ActivityHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[tipo]
	if !ok {
		return nil, fmt.Errorf("%w: %s", util.ErrUnsupportedActivity, tipo)
	}
	return h, nil
}

// flexBool 兼容 true 与 "true"
type flexBool bool

func (b *flexBool) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(raw, []byte("true")):
		*b = true
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		s = strings.ToLower(strings.TrimSpace(s))
		*b = flexBool(s == "true" || s == "1" || s == "sim")
	case unicode.IsDigit(rune(raw[0])):
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return err
		}
		*b = f != 0
	default:
		*b = false
	}
	return nil
}

// flexInt 兼容数字和 "5 mins" 这类以整数开头的字符串
type flexInt int

func (n *flexInt) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*n = 0
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*n = flexInt(leadingInt(s))
		return nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return nil
	}
	*n = flexInt(int(f))
	return nil
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (unicode.IsDigit(rune(s[end])) || (end == 0 && (s[0] == '-' || s[0] == '+'))) {
		end++
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return v
}

// flexStrings 兼容 ["pdf","docx"] 与 "pdf,docx"
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*f = out
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return err
	}
	*f = list
	return nil
}

func decodePayload(act Activity, v interface{}) error {
	if len(act.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(act.Data, v); err != nil {
		return util.NewValidationError("data", "malformed %s payload: %v", act.Tipo, err)
	}
	return nil
}

func mustJSON(v interface{}) json.RawMessage {
	raw, _ := json.Marshal(v)
	return raw
}

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }

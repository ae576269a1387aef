package service

import (
	"encoding/json"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func act(tipo model.ActivityType, data string) Activity {
	return Activity{ID: "a1", TemplateID: "a1", Tipo: tipo, Data: json.RawMessage(data)}
}

func intPtr(v int) *int { return &v }

func TestRegistryUnknownType(t *testing.T) {
	r := DefaultActivityRegistry()
	for _, tipo := range model.ActivityTypes {
		h, err := r.Handler(tipo)
		require.NoError(t, err)
		assert.Equal(t, tipo, h.Kind())
	}
	_, err := r.Handler("podcast")
	assert.ErrorIs(t, err, util.ErrUnsupportedActivity)
}

func TestMandatoryAcceptsLooseBooleans(t *testing.T) {
	cases := map[string]bool{
		`{"obrigatorio":true}`:    true,
		`{"obrigatorio":"true"}`:  true,
		`{"obrigatorio":"sim"}`:   true,
		`{"obrigatorio":1}`:       true,
		`{"obrigatorio":false}`:   false,
		`{"obrigatorio":"false"}`: false,
		`{}`:                      false,
		``:                        false,
	}
	for data, want := range cases {
		assert.Equal(t, want, act(model.ActivityVideo, data).Mandatory(), data)
	}
}

func TestFlexInt(t *testing.T) {
	cases := map[string]int{
		`5`:        5,
		`"5"`:      5,
		`"5 mins"`: 5,
		`"abc"`:    0,
		`""`:       0,
		`null`:     0,
		`7.9`:      7,
		`"12min"`:  12,
	}
	for raw, want := range cases {
		var n flexInt
		require.NoError(t, json.Unmarshal([]byte(raw), &n), raw)
		assert.Equal(t, want, int(n), raw)
	}
}

func TestFlexStrings(t *testing.T) {
	var f flexStrings
	require.NoError(t, json.Unmarshal([]byte(`"pdf, docx,,png"`), &f))
	assert.Equal(t, flexStrings{"pdf", "docx", "png"}, f)

	require.NoError(t, json.Unmarshal([]byte(`["pdf","zip"]`), &f))
	assert.Equal(t, flexStrings{"pdf", "zip"}, f)
}

func TestSyntheticHandlers(t *testing.T) {
	video := VideoHandler()
	a := act(model.ActivityVideo, `{"url":"https://v"}`)

	assert.Error(t, video.Validate(a, ActivityInput{Event: EventSubmit}))
	require.NoError(t, video.Validate(a, ActivityInput{Event: EventEnded}))
	assert.True(t, video.CanComplete(a, ActivityInput{Event: EventEnded}))
	assert.Equal(t, ResubmitIgnore, video.Resubmit())

	d := video.BuildAnswer(a, ActivityInput{Event: EventEnded})
	assert.JSONEq(t, `"Vídeo assistido completo"`, string(d.Resposta))
	assert.True(t, *d.Correta)
	assert.Equal(t, 100.0, *d.Nota)
	assert.True(t, d.Realizado)

	doc := DocumentHandler()
	require.NoError(t, doc.Validate(act(model.ActivityDocument, `{}`), ActivityInput{Event: EventViewed}))
	assert.JSONEq(t, `"Documento Visualizado"`, string(doc.BuildAnswer(a, ActivityInput{}).Resposta))
}

func TestArticleCompletion(t *testing.T) {
	h := ArticleHandler{}
	timed := act(model.ActivityArticle, `{"tempoLeitura":"2 min"}`)
	untimed := act(model.ActivityArticle, `{"tempoLeitura":""}`)

	assert.Equal(t, 120, h.ReadingSeconds(timed))
	assert.Equal(t, 0, h.ReadingSeconds(untimed))

	require.NoError(t, h.Validate(timed, ActivityInput{Event: EventTimer}))
	assert.False(t, h.CanComplete(timed, ActivityInput{Event: EventTimer, ElapsedSeconds: 119}))
	assert.True(t, h.CanComplete(timed, ActivityInput{Event: EventTimer, ElapsedSeconds: 120}))

	// 无阅读时长时只能滚动完成
	assert.Error(t, h.Validate(untimed, ActivityInput{Event: EventTimer}))
	require.NoError(t, h.Validate(untimed, ActivityInput{Event: EventScroll, ScrollHeight: 2000, ClientHeight: 500}))
	// 没有滚动位置的事件不算读完
	assert.ErrorIs(t, h.Validate(untimed, ActivityInput{Event: EventScroll}), util.ErrValidation)
	assert.ErrorIs(t, h.Validate(untimed, ActivityInput{Event: EventScroll, ScrollHeight: 2000}), util.ErrValidation)
	assert.True(t, h.CanComplete(untimed, ActivityInput{Event: EventScroll, ScrollTop: 1450, ScrollHeight: 2000, ClientHeight: 500}))
	assert.False(t, h.CanComplete(untimed, ActivityInput{Event: EventScroll, ScrollTop: 1400, ScrollHeight: 2000, ClientHeight: 500}))

	assert.JSONEq(t, `"Leitura Concluída"`, string(h.BuildAnswer(timed, ActivityInput{}).Resposta))
	assert.Equal(t, 120, h.Details(timed, nil)["reading_seconds"])
}

func TestQuizGrading(t *testing.T) {
	h := QuizHandler{}
	graded := act(model.ActivityQuiz, `{"pergunta":"2+2?","opcoes":[{"texto":"3"},{"texto":"4","correta":"true"},"5"]}`)
	survey := act(model.ActivityQuiz, `{"pergunta":"Cor favorita?","opcoes":["azul","verde"]}`)

	assert.Equal(t, 1, h.CorrectIndex(graded))
	assert.Equal(t, -1, h.CorrectIndex(survey))

	right := h.BuildAnswer(graded, ActivityInput{Selected: intPtr(1)})
	assert.True(t, *right.Correta)
	assert.Equal(t, 100.0, *right.Nota)
	assert.JSONEq(t, `1`, string(right.Resposta))

	wrong := h.BuildAnswer(graded, ActivityInput{Selected: intPtr(2)})
	assert.False(t, *wrong.Correta)
	assert.Equal(t, 0.0, *wrong.Nota)

	ungraded := h.BuildAnswer(survey, ActivityInput{Selected: intPtr(0)})
	assert.Nil(t, ungraded.Correta)
	assert.Nil(t, ungraded.Nota)
	assert.True(t, ungraded.Realizado)

	assert.Equal(t, ResubmitReject, h.Resubmit())
}

func TestQuizValidation(t *testing.T) {
	h := QuizHandler{}
	a := act(model.ActivityQuiz, `{"opcoes":["a","b"]}`)

	assert.ErrorIs(t, h.Validate(a, ActivityInput{Event: EventSubmit}), util.ErrValidation)
	assert.ErrorIs(t, h.Validate(a, ActivityInput{Event: EventSubmit, Selected: intPtr(2)}), util.ErrValidation)
	assert.ErrorIs(t, h.Validate(a, ActivityInput{Event: EventSubmit, Selected: intPtr(-1)}), util.ErrValidation)
	assert.ErrorIs(t, h.Validate(a, ActivityInput{Event: EventEnded, Selected: intPtr(0)}), util.ErrValidation)
	assert.NoError(t, h.Validate(a, ActivityInput{Event: EventSubmit, Selected: intPtr(1)}))
}

func TestQuizDetailsRevealAfterSubmit(t *testing.T) {
	h := QuizHandler{}
	a := act(model.ActivityQuiz, `{"opcoes":[{"texto":"a","correta":true},"b"]}`)

	before := h.Details(a, nil)
	assert.Equal(t, false, before["submitted"])
	assert.NotContains(t, before, "correct_index")

	after := h.Details(a, &model.Answer{TemplateID: "a1"})
	assert.Equal(t, true, after["submitted"])
	assert.Equal(t, 0, after["correct_index"])
}

func TestTextValidation(t *testing.T) {
	h := TextHandler{}
	a := act(model.ActivityText, `{"enunciado":"Explique","minCaracteres":"5","maxCaracteres":10}`)

	assert.ErrorIs(t, h.Validate(a, ActivityInput{Event: EventSubmit, Text: "   "}), util.ErrValidation)
	assert.ErrorIs(t, h.Validate(a, ActivityInput{Event: EventSubmit, Text: "abcd"}), util.ErrValidation)
	assert.ErrorIs(t, h.Validate(a, ActivityInput{Event: EventSubmit, Text: "abcdefghijk"}), util.ErrValidation)
	// 按字符而不是字节计数
	assert.NoError(t, h.Validate(a, ActivityInput{Event: EventSubmit, Text: "ação é"}))

	d := h.BuildAnswer(a, ActivityInput{Text: "  resposta  "})
	assert.JSONEq(t, `"resposta"`, string(d.Resposta))
	assert.False(t, d.Realizado)
	assert.Nil(t, d.Nota)
}

func TestUploadValidation(t *testing.T) {
	h := UploadHandler{}
	a := act(model.ActivityUpload, `{"tiposAceitos":"pdf,docx","tamanhoMaximo":"5"}`)

	accepted, maxMB := h.Limits(a)
	assert.Equal(t, []string{"pdf", "docx"}, accepted)
	assert.Equal(t, 5, maxMB)

	_, def := h.Limits(act(model.ActivityUpload, `{}`))
	assert.Equal(t, util.DefaultUploadMaxMB, def)

	assert.ErrorIs(t, h.Validate(a, ActivityInput{Event: EventSubmit}), util.ErrValidation)
	assert.ErrorIs(t, h.Validate(a, ActivityInput{Event: EventSubmit, FileURL: "/uploads/x.exe"}), util.ErrValidation)
	assert.NoError(t, h.Validate(a, ActivityInput{Event: EventSubmit, FileURL: "/uploads/relatorio.PDF"}))

	d := h.BuildAnswer(a, ActivityInput{FileURL: "/uploads/relatorio.pdf"})
	assert.JSONEq(t, `"/uploads/relatorio.pdf"`, string(d.Resposta))
	assert.False(t, d.Realizado)
}

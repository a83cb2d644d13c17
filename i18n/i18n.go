package i18n

import (
	"embed"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/cppla/clipbot/utils"
)

var (
	//go:embed *.toml
	f embed.FS
)

// Localizer resolves message ids into bot texts.
type Localizer struct {
	bundle      *i18n.Bundle
	registry    map[string]*i18n.Localizer
	matcher     language.Matcher
	tags        []string
	defaultLang string
}

// NewLocalizer loads <lang>.toml for every language. The first language is the fallback.
func NewLocalizer(languages ...string) *Localizer {
	if len(languages) == 0 {
		languages = []string{DEFAULT_LANG}
	}
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	l := &Localizer{
		bundle:      bundle,
		registry:    make(map[string]*i18n.Localizer),
		defaultLang: languages[0],
	}
	var tags []language.Tag
	for _, lang := range languages {
		path := lang + ".toml"
		if _, err := bundle.LoadMessageFileFS(f, path); err != nil {
			utils.Logger.Error("failed to load i18n messages", zap.String("lang", lang), zap.String("file", path), zap.Error(err))
			continue
		}
		l.registry[lang] = i18n.NewLocalizer(bundle, lang)
		l.tags = append(l.tags, lang)
		tags = append(tags, language.Make(lang))
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
	} else if l.registry[l.defaultLang] == nil {
		l.defaultLang = l.tags[0]
	}
	l.matcher = language.NewMatcher(tags)
	return l
}

// Match maps a Telegram language_code such as "en-US" onto a loaded language.
func (l *Localizer) Match(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || len(l.tags) == 0 {
		return l.defaultLang
	}
	_, idx, conf := l.matcher.Match(language.Make(code))
	if conf == language.No || idx >= len(l.tags) {
		return l.defaultLang
	}
	return l.tags[idx]
}

// Get returns the message for id, or id itself when it is unknown.
func (l *Localizer) Get(lang string, id string) string {
	return l.GetWithData(lang, id, nil)
}

// GetWithData renders the message template for id with data.
func (l *Localizer) GetWithData(lang, id string, data map[string]interface{}) string {
	localizer := l.registry[lang]
	if localizer == nil {
		localizer = l.registry[l.defaultLang]
	}
	if localizer == nil {
		return id
	}
	str, err := localizer.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{ID: id, Other: id},
		TemplateData:   data,
	})
	if err != nil {
		utils.Logger.Debug("missing i18n message", zap.String("lang", lang), zap.String("id", id), zap.Error(err))
		return id
	}
	return str
}

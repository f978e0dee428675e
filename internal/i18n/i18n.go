package i18n

import (
	"io/fs"
	"path"

	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const FallbackLanguage = "en"

// Catalog holds the translations of a single language. Message keys are the
// English texts themselves, so a missing translation falls back to English.
type Catalog struct {
	lang         string
	translations map[string]string
}

// Load reads <dir>/<lang>.yml from fsys. English needs no file.
func Load(fsys fs.FS, dir string, lang string) (*Catalog, error) {
	c := &Catalog{lang: lang, translations: map[string]string{}}
	if lang == "" || lang == FallbackLanguage {
		c.lang = FallbackLanguage
		return c, nil
	}

	data, err := fs.ReadFile(fsys, path.Join(dir, lang+".yml"))
	if err != nil {
		return nil, errors.WithMessagef(err, "cant load i18n for %s", lang)
	}
	if err := yaml.Unmarshal(data, &c.translations); err != nil {
		return nil, errors.WithMessagef(err, "cant unmarshal i18n for %s", lang)
	}
	return c, nil
}

func (c *Catalog) Language() string {
	return c.lang
}

func (c *Catalog) Get(key string) string {
	if c == nil {
		return key
	}
	if res, ok := c.translations[key]; ok && res != "" {
		return res
	}
	if c.lang != FallbackLanguage {
		log.WithField("context", "i18n").Tracef(`no %s translation for key "%s"`, c.lang, key)
	}
	return key
}

// Render translates key and executes it as a text/template with vars.
func (c *Catalog) Render(key string, vars map[string]any) string {
	return tool.ExecTemplate(c.Get(key), vars)
}

func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.translations))
	for k := range c.translations {
		keys = append(keys, k)
	}
	return keys
}

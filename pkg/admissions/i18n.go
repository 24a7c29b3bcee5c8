package admissions

import (
	"embed"
	"encoding/json"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed i18n/*.json
var messageFiles embed.FS

// LoadLocalizer builds a localizer over the embedded reply catalog
func LoadLocalizer() (*i18n.Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	buf, err := messageFiles.ReadFile("i18n/en.json")
	if err != nil {
		return nil, err
	}
	if _, err := bundle.ParseMessageFileBytes(buf, "en.json"); err != nil {
		return nil, err
	}
	return i18n.NewLocalizer(bundle, "en"), nil
}

package utils

// Minimal server-side i18n for fixed keys.
// Product copy lives with the services; the server answers only essentials.

var translations = map[string]map[string]string{
	"de": {
		"health.ok": "ok",
	},
	"en": {
		"health.ok": "ok",
	},
}

// T returns the translated string for key in locale; falls back to German.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := translations["de"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

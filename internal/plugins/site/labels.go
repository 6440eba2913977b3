package site

import (
	"strconv"

	"github.com/keyxmakerx/folio/internal/plugins/content"
)

// labels holds the fixed UI strings of the public site.
type labels struct {
	all      string
	empty    string
	types    map[content.ContentType]string
	client   string
	year     string
	link     string
	category string
	download string
	source   string
}

var siteLabels = map[string]labels{
	"en": {
		all:   "Portfolio",
		empty: "Nothing published yet.",
		types: map[content.ContentType]string{
			content.TypeProject:  "Projects",
			content.TypeMaterial: "Materials",
			content.TypeNews:     "News",
		},
		client:   "Client",
		year:     "Year",
		link:     "Website",
		category: "Category",
		download: "Download",
		source:   "Source",
	},
	"ru": {
		all:   "Портфолио",
		empty: "Пока ничего не опубликовано.",
		types: map[content.ContentType]string{
			content.TypeProject:  "Проекты",
			content.TypeMaterial: "Материалы",
			content.TypeNews:     "Новости",
		},
		client:   "Клиент",
		year:     "Год",
		link:     "Сайт",
		category: "Категория",
		download: "Скачать",
		source:   "Источник",
	},
}

// labelsFor falls back to English for languages without UI strings.
func labelsFor(lang string) labels {
	if l, ok := siteLabels[lang]; ok {
		return l
	}
	return siteLabels["en"]
}

func itoa(n int) string { return strconv.Itoa(n) }

package handler

import (
	"github.com/hualin/rednote-studio/internal/domain"
)

// StyleRequest is the wire form of a card style. Unknown values fall back
// to the defaults instead of failing the request.
type StyleRequest struct {
	Layout     string `json:"layout"`
	Theme      string `json:"theme"`
	Ratio      string `json:"ratio"`
	FontFamily string `json:"fontFamily"`
	FontSize   string `json:"fontSize"`
}

// ToStyle resolves the wire strings into a style configuration.
func (r StyleRequest) ToStyle() domain.StyleConfiguration {
	style := domain.DefaultStyle()
	if r.Layout != "" {
		style.Layout = domain.ParseLayoutVariant(r.Layout)
	}
	if r.Theme != "" {
		style.Theme = domain.ColorTheme(r.Theme)
	}
	if r.Ratio != "" {
		style.Ratio = domain.ParseAspectRatio(r.Ratio)
	}
	if r.FontFamily != "" {
		style.FontFamily = domain.FontFamily(r.FontFamily)
	}
	if r.FontSize != "" {
		style.FontSize = domain.FontSize(r.FontSize)
	}
	return style
}

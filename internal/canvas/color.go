package canvas

// Color is a canvas node color code. Only the seven legend codes are known;
// any other code parsed from a document is kept verbatim and reported as unknown.
type Color string

const (
	ColorNone     Color = "0"
	ColorEntity   Color = "1"
	ColorExternal Color = "2"
	ColorYellow   Color = "3"
	ColorAction   Color = "4"
	ColorCyan     Color = "5"
	ColorTechSpec Color = "6"
)

// UnknownMeaning is the display string for codes outside the legend.
const UnknownMeaning = "Unknown"

// Colors lists the legend codes in order.
var Colors = []Color{
	ColorNone, ColorEntity, ColorExternal, ColorYellow, ColorAction, ColorCyan, ColorTechSpec,
}

var meanings = map[Color]string{
	ColorNone:     "Референс на переменную или блок информации (нет цвета)",
	ColorEntity:   "Сущность / Класс / Страница",
	ColorExternal: "Оранжевый — Внешние сервисы и API",
	ColorYellow:   "Желтый — ...",
	ColorAction:   "Действие / Кнопка / Переход",
	ColorCyan:     "Голубой — ...",
	ColorTechSpec: "Фиолетовый — Технические спецификации (фреймворки, библиотеки)",
}

// ParseColor normalizes a raw code. An empty code is ColorNone.
// ok is false for codes outside the legend; the returned Color keeps the raw value.
func ParseColor(raw string) (c Color, ok bool) {
	if raw == "" {
		return ColorNone, true
	}
	c = Color(raw)
	return c, c.Known()
}

// Known reports whether c is one of the legend codes.
func (c Color) Known() bool {
	_, ok := meanings[c]
	return ok
}

// Meaning returns the legend display string, or UnknownMeaning.
func (c Color) Meaning() string {
	if m, ok := meanings[c]; ok {
		return m
	}
	return UnknownMeaning
}

// Legend returns code -> meaning for all known colors.
func Legend() map[string]string {
	out := make(map[string]string, len(meanings))
	for c, m := range meanings {
		out[string(c)] = m
	}
	return out
}

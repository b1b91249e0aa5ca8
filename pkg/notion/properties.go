package notion

import (
	"strings"

	"github.com/jomei/notionapi"
)

// Property readers accept both pointer and value forms, since decoded pages
// carry pointers and hand-built ones often carry values.

// Title returns the plain text of a title property.
func Title(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.TitleProperty:
		return PlainText(p.Title)
	case notionapi.TitleProperty:
		return PlainText(p.Title)
	}
	return ""
}

// RichText returns the plain text of a rich text property.
func RichText(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.RichTextProperty:
		return PlainText(p.RichText)
	case notionapi.RichTextProperty:
		return PlainText(p.RichText)
	}
	return ""
}

// Select returns the selected option name.
func Select(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.SelectProperty:
		return p.Select.Name
	case notionapi.SelectProperty:
		return p.Select.Name
	}
	return ""
}

// Status returns the status option name.
func Status(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.StatusProperty:
		return p.Status.Name
	case notionapi.StatusProperty:
		return p.Status.Name
	}
	return ""
}

// Number returns a number property and whether it was present.
func Number(props notionapi.Properties, name string) (float64, bool) {
	switch p := props[name].(type) {
	case *notionapi.NumberProperty:
		return p.Number, true
	case notionapi.NumberProperty:
		return p.Number, true
	}
	return 0, false
}

// Checkbox returns a checkbox property, false when absent.
func Checkbox(props notionapi.Properties, name string) bool {
	switch p := props[name].(type) {
	case *notionapi.CheckboxProperty:
		return p.Checkbox
	case notionapi.CheckboxProperty:
		return p.Checkbox
	}
	return false
}

// PlainText concatenates the plain text of rich text segments. Segments
// built locally have no PlainText, so their content is used instead.
func PlainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		switch {
		case rt.PlainText != "":
			b.WriteString(rt.PlainText)
		case rt.Text != nil:
			b.WriteString(rt.Text.Content)
		}
	}
	return b.String()
}

// TitleValue builds a title property.
func TitleValue(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{Type: notionapi.PropertyTypeTitle, Title: textRuns(s)}
}

// RichTextValue builds a rich text property.
func RichTextValue(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{Type: notionapi.PropertyTypeRichText, RichText: textRuns(s)}
}

// SelectValue builds a select property.
func SelectValue(s string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Type: notionapi.PropertyTypeSelect, Select: notionapi.Option{Name: s}}
}

// StatusValue builds a status property.
func StatusValue(s string) notionapi.StatusProperty {
	return notionapi.StatusProperty{Type: notionapi.PropertyTypeStatus, Status: notionapi.Status{Name: s}}
}

// NumberValue builds a number property.
func NumberValue(n float64) notionapi.NumberProperty {
	return notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: n}
}

// CheckboxValue builds a checkbox property.
func CheckboxValue(b bool) notionapi.CheckboxProperty {
	return notionapi.CheckboxProperty{Type: notionapi.PropertyTypeCheckbox, Checkbox: b}
}

func textRuns(s string) []notionapi.RichText {
	if s == "" {
		return []notionapi.RichText{}
	}
	return []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}}}
}

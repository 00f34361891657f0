package anki

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Template is the card styling loaded from a note template directory.
type Template struct {
	Front string
	Back  string
	Style string
}

// LoadTemplateDir reads a template directory holding front.html, back.html
// and style.css.
func LoadTemplateDir(dir string) (Template, error) {
	var tmpl Template
	for _, part := range []struct {
		name string
		dst  *string
	}{
		{"front.html", &tmpl.Front},
		{"back.html", &tmpl.Back},
		{"style.css", &tmpl.Style},
	} {
		data, err := os.ReadFile(filepath.Join(dir, part.name))
		if err != nil {
			return Template{}, fmt.Errorf("anki: read note template: %w", err)
		}
		*part.dst = string(data)
	}
	return tmpl, nil
}

var fieldRe = regexp.MustCompile(`{{(.*?)}}`)

// Fields returns the note fields the card faces reference, in order of
// first appearance. The builtin FrontSide and BackSide references are not
// fields.
func (t Template) Fields() []string {
	var fields []string
	seen := make(map[string]bool)
	for _, match := range fieldRe.FindAllStringSubmatch(t.Front+t.Back, -1) {
		name := match[1]
		if name == "FrontSide" || name == "BackSide" || seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, name)
	}
	return fields
}

// Model builds a single card model rendering these templates.
func (t Template) Model(name string) *Model {
	return NewModel(name, t.Fields(), []CardTemplate{
		{Name: "card", Front: t.Front, Back: t.Back},
	}, t.Style)
}

package auditlog

import (
	"strings"
)

// Templates holds the message templates in effect for one handler.
type Templates struct {
	PropertyChanged   string
	CollectionAdded   string
	CollectionRemoved string
	Deleted           string
}

func (t Templates) withDefaults(l Localizer) Templates {
	if t.PropertyChanged == "" {
		t.PropertyChanged = l.PropertyChanged
	}
	if t.CollectionAdded == "" {
		t.CollectionAdded = l.CollectionAdded
	}
	if t.CollectionRemoved == "" {
		t.CollectionRemoved = l.CollectionRemoved
	}
	if t.Deleted == "" {
		t.Deleted = l.Deleted
	}
	return t
}

// render replaces {Key} placeholders literally. The replacement is a single pass,
// so braces inside substituted values are left alone.
func render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func renderPropertyChanged(t Templates, displayName, oldValue, newValue string) string {
	return render(t.PropertyChanged, map[string]string{
		"DisplayName": displayName,
		"Old":         oldValue,
		"New":         newValue,
	})
}

func renderCollection(template, title, singular, collection string) string {
	return render(template, map[string]string{
		"Title":             title,
		"EntitySingular":    singular,
		"CollectionDisplay": collection,
	})
}

func renderDeleted(t Templates, title, singular string) string {
	return render(t.Deleted, map[string]string{
		"Title":          title,
		"EntitySingular": singular,
	})
}

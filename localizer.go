package auditlog

import (
	"golang.org/x/text/language"
)

// Localizer bundles the default message templates and value words of one language.
type Localizer struct {
	Tag               language.Tag
	PropertyChanged   string // {DisplayName} {Old} {New}
	CollectionAdded   string // {Title} {EntitySingular} {CollectionDisplay}
	CollectionRemoved string // {Title} {EntitySingular} {CollectionDisplay}
	Deleted           string // {Title} {EntitySingular}
	NullSymbol        string
	Yes               string
	No                string
}

// FormatBool renders a boolean in the localizer's language.
func (l Localizer) FormatBool(b bool) string {
	if b {
		return l.Yes
	}
	return l.No
}

var (
	English = Localizer{
		Tag:               language.English,
		PropertyChanged:   "{DisplayName}: {Old} -> {New}",
		CollectionAdded:   "{Title} ({EntitySingular}) was added to {CollectionDisplay}",
		CollectionRemoved: "{Title} ({EntitySingular}) was removed from {CollectionDisplay}",
		Deleted:           "{Title} ({EntitySingular}) deleted",
		NullSymbol:        "∅",
		Yes:               "Yes",
		No:                "No",
	}

	German = Localizer{
		Tag:               language.German,
		PropertyChanged:   "{DisplayName}: {Old} -> {New}",
		CollectionAdded:   "{Title} ({EntitySingular}) wurde zu {CollectionDisplay} hinzugefügt",
		CollectionRemoved: "{Title} ({EntitySingular}) wurde von {CollectionDisplay} entfernt",
		Deleted:           "{Title} ({EntitySingular}) gelöscht",
		NullSymbol:        "∅",
		Yes:               "Ja",
		No:                "Nein",
	}
)

var localizers = []Localizer{English, German}

var localizerMatcher = language.NewMatcher([]language.Tag{English.Tag, German.Tag})

// LocalizerFor picks the built-in localizer closest to a BCP 47 tag such as "de-AT".
// Unknown or malformed tags fall back to English.
func LocalizerFor(tag string) Localizer {
	t, err := language.Parse(tag)
	if err != nil {
		return English
	}
	_, idx, conf := localizerMatcher.Match(t)
	if conf == language.No {
		return English
	}
	return localizers[idx]
}

package auditlog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/mickamy/auditlog/internal/ident"
)

// TableNamer provides a custom table name for a model.
type TableNamer interface {
	TableName() string
}

var tableNamerType = reflect.TypeOf((*TableNamer)(nil)).Elem()

// tableName resolves the table a record is stored in: EntityType.Table, then a
// TableNamer on the entity, then the snake_case plural of the type name.
func tableName(rec *Record) (string, error) {
	if rec.Type != nil && strings.TrimSpace(rec.Type.Table) != "" {
		return strings.TrimSpace(rec.Type.Table), nil
	}
	if rec.Entity != nil {
		val := reflect.ValueOf(rec.Entity)
		if namer, ok := rec.Entity.(TableNamer); ok && !(val.Kind() == reflect.Pointer && val.IsNil()) {
			return namedTable(namer, rec.Entity)
		}
		typ := indirectType(val.Type())
		if typ.Kind() == reflect.Struct && reflect.PointerTo(typ).Implements(tableNamerType) {
			return namedTable(reflect.New(typ).Interface().(TableNamer), rec.Entity)
		}
	}
	name := rec.TypeName()
	if name == "" {
		return "", errors.New("auditlog: cannot derive table name for anonymous record")
	}
	return inflection.Plural(ident.Snake(name)), nil
}

func namedTable(namer TableNamer, target any) (string, error) {
	name := strings.TrimSpace(namer.TableName())
	if name == "" {
		return "", fmt.Errorf("auditlog: TableName returned empty string. %T", target)
	}
	return name, nil
}

// columnName maps a member to its column: the `db` struct tag when present,
// else the snake_case member name.
func columnName(entity any, member string) string {
	if t := indirectType(reflect.TypeOf(entity)); t != nil && t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(member); ok {
			if tag, _, _ := strings.Cut(f.Tag.Get("db"), ","); tag != "" && tag != "-" {
				return tag
			}
		}
	}
	return ident.Snake(member)
}

func columnNames(entity any, members []string) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = columnName(entity, m)
	}
	return out
}

package emitter

import (
	"strconv"

	"github.com/jinzhu/inflection"

	"hrcore/pkg/platform/audit/value"
)

// inferEntityID picks a primary key out of the snapshots when the call site did
// not pass one: "id" first, then "<singular>Id" / "<singular>_id".
// It runs before redaction, so a masked id field is still usable here.
func inferEntityID(entityType string, snapshots ...value.Value) string {
	singular := inflection.Singular(entityType)
	candidates := []string{"id", singular + "Id", singular + "ID", singular + "_id"}
	for _, snapshot := range snapshots {
		rec, ok := snapshot.AsRecord()
		if !ok {
			continue
		}
		for _, name := range candidates {
			field, ok := rec.Get(name)
			if !ok {
				continue
			}
			if id := scalarString(field); id != "" {
				return id
			}
		}
	}
	return ""
}

func scalarString(v value.Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	if i, ok := v.AsInt(); ok {
		return strconv.FormatInt(i, 10)
	}
	if n, ok := v.AsNumber(); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

package goble

import (
	"strings"

	"github.com/go-ble/ble"
)

var propertyNames = []struct {
	value ble.Property
	name  string
}{
	{ble.CharBroadcast, "broadcast"},
	{ble.CharRead, "read"},
	{ble.CharWriteNR, "write-without-response"},
	{ble.CharWrite, "write"},
	{ble.CharNotify, "notify"},
	{ble.CharIndicate, "indicate"},
	{ble.CharSignedWrite, "authenticated-signed-writes"},
	{ble.CharExtended, "extended-properties"},
}

// PropertyString renders characteristic property flags as "read|write|notify".
func PropertyString(p ble.Property) string {
	names := make([]string, 0, len(propertyNames))
	for _, pn := range propertyNames {
		if p&pn.value != 0 {
			names = append(names, pn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

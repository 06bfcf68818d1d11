package event

import (
	"encoding/json"
	"fmt"
)

// Encode serializes an event payload for storage.
func Encode(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("event: encode: nil event")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("event: encode %s: %w", e.Kind(), err)
	}
	return data, nil
}

// Decode restores an event payload previously produced by Encode.
func Decode(kind Kind, data []byte) (Event, error) {
	var (
		e   Event
		err error
	)

	switch kind {
	case KindItemAdded:
		var v ItemAdded
		err = json.Unmarshal(data, &v)
		e = v
	case KindItemUpdated:
		var v ItemUpdated
		err = json.Unmarshal(data, &v)
		e = v
	case KindItemRemoved:
		var v ItemRemoved
		err = json.Unmarshal(data, &v)
		e = v
	case KindFundsAdded:
		var v FundsAdded
		err = json.Unmarshal(data, &v)
		e = v
	case KindItemPurchased:
		var v ItemPurchased
		err = json.Unmarshal(data, &v)
		e = v
	default:
		return nil, fmt.Errorf("event: decode: unknown kind %q", kind)
	}

	if err != nil {
		return nil, fmt.Errorf("event: decode %s: %w", kind, err)
	}
	return e, nil
}

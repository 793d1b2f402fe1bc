package router

import "encoding/json"

// Envelope field names.
const (
	FieldProtocol         = "protocol"
	FieldRoom             = "room"
	FieldEndpoint         = "endpoint"
	FieldFrom             = "from"
	FieldAction           = "action"
	FieldSubscriptionData = "subscriptionData"
)

// Envelope is the routing view of an inbound message. Only string-valued
// fields are visible; anything else reads as absent.
type Envelope struct {
	fields map[string]any
}

// ParseEnvelope decodes raw as a JSON object. Malformed input, or JSON that
// is not an object, yields an envelope with every field absent.
func ParseEnvelope(raw []byte) Envelope {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Envelope{}
	}
	return Envelope{fields: fields}
}

// Field returns the named field when it is present and a string.
func (e Envelope) Field(name string) (string, bool) {
	v, ok := e.fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

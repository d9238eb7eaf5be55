package realtime

import "encoding/json"

// Topic binds a message tag to the payload type carried under it.
type Topic[T any] struct {
	Name string
}

// NewTopic declares a typed topic.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{Name: name}
}

// Subscribe registers fn for topic, decoding each payload into T first.
// Payloads that do not decode are logged and skipped for this handler only.
func Subscribe[T any](c *Client, topic Topic[T], fn func(T)) (unsubscribe func()) {
	return c.On(topic.Name, func(raw json.RawMessage) {
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			c.logger.Warn("payload does not match topic",
				"type", topic.Name,
				"error", err,
			)
			return
		}
		fn(v)
	})
}

// Publish sends payload under topic.
func Publish[T any](c *Client, topic Topic[T], payload T) error {
	return c.Send(topic.Name, payload)
}

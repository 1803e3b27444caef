package protocol

import (
	"fmt"
	"strings"
)

// UnknownErrorMessage stands in for a `!trap` without a message attribute.
const UnknownErrorMessage = "Unknown error"

// TrapError is a command error reported by the device in a `!trap` sentence.
type TrapError struct {
	Message  string
	Category string
}

func (e *TrapError) Error() string {
	return e.Message
}

// FatalError is reported by the device in a `!fatal` sentence right before it
// closes the connection.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s", e.Reason)
}

// Reply is the decoded answer to one command.
type Reply struct {
	// Data holds one record per `!re` sentence, in the order they arrived.
	Data []map[string]string

	// Done holds the attributes of the `!done` sentence, e.g. `ret`.
	Done map[string]string

	Err   *TrapError
	Fatal *FatalError

	Raw []Sentence
}

// ErrorOrNil returns an error if the reply contains a trap or a fatal
// sentence. Otherwise it returns nil.
func (r *Reply) ErrorOrNil() error {
	if r.Fatal != nil {
		return r.Fatal
	}

	if r.Err != nil {
		return r.Err
	}

	return nil
}

// DecodeReply turns the sentences of one reply into records and errors. Only
// the first `!trap` is kept. Malformed attribute words and `!re` sentences
// without any attributes are skipped.
func DecodeReply(sentences []Sentence) *Reply {
	reply := &Reply{
		Data: make([]map[string]string, 0),
		Raw:  sentences,
	}

	for _, sentence := range sentences {
		switch sentence.Tag() {
		case TagRe:
			record := ParseAttributes(sentence[1:])
			if len(record) == 0 {
				continue
			}

			reply.Data = append(reply.Data, record)

		case TagTrap:
			if reply.Err != nil {
				continue
			}

			attrs := ParseAttributes(sentence[1:])

			message, ok := attrs["message"]
			if !ok {
				message = UnknownErrorMessage
			}

			reply.Err = &TrapError{Message: message, Category: attrs["category"]}

		case TagDone:
			if done := ParseAttributes(sentence[1:]); len(done) > 0 {
				reply.Done = done
			}

		case TagFatal:
			reason := strings.Join(sentence[1:], " ")
			if reason == "" {
				reason = UnknownErrorMessage
			}

			reply.Fatal = &FatalError{Reason: reason}
		}
	}

	return reply
}

// ParseAttributes collects the attribute words in words. Anything that is not
// an attribute word is ignored.
func ParseAttributes(words []string) map[string]string {
	attrs := make(map[string]string, len(words))

	for _, word := range words {
		if key, value, ok := ParseAttribute(word); ok {
			attrs[key] = value
		}
	}

	return attrs
}

// ParseAttribute splits `=key=value`. The value is everything after the second
// `=`.
func ParseAttribute(word string) (key, value string, ok bool) {
	if !strings.HasPrefix(word, "=") {
		return "", "", false
	}

	i := strings.IndexByte(word[1:], '=')
	if i < 0 {
		return "", "", false
	}

	return word[1 : i+1], word[i+2:], true
}

// Attribute builds the `=key=value` word.
func Attribute(key, value string) string {
	return "=" + key + "=" + value
}

// Query builds the `?key=value` word.
func Query(key, value string) string {
	return "?" + key + "=" + value
}

package platform

import "github.com/go-drift/filelab/pkg/errors"

// Stream is a typed view of an EventChannel. Every listener receives every
// event that the parser accepts; events it rejects are reported as parse
// errors and dropped.
type Stream[T any] struct {
	eventChannel *EventChannel
	channelName  string
	dataType     string
	parser       func(data any) (T, bool)
}

// NewStream wraps channel. dataType names the expected payload in parse
// error reports.
func NewStream[T any](channel *EventChannel, dataType string, parser func(data any) (T, bool)) *Stream[T] {
	return &Stream[T]{
		eventChannel: channel,
		channelName:  channel.Name(),
		dataType:     dataType,
		parser:       parser,
	}
}

// Listen subscribes handler and returns the function that cancels it.
func (s *Stream[T]) Listen(handler func(T)) (unsubscribe func()) {
	sub := s.eventChannel.Listen(EventHandler{
		OnEvent: func(data any) {
			val, ok := s.parser(data)
			if !ok {
				errors.Report(&errors.Error{
					Op:      "stream.parse",
					Kind:    errors.KindParsing,
					Channel: s.channelName,
					Err: &errors.ParseError{
						Channel:  s.channelName,
						DataType: s.dataType,
						Got:      data,
					},
				})
				return
			}
			handler(val)
		},
		OnError: func(err error) {
			errors.Report(&errors.Error{
				Op:      "stream.error",
				Kind:    errors.KindPlatform,
				Channel: s.channelName,
				Err:     err,
			})
		},
	})
	return sub.Cancel
}

package flamegraph

import (
	"fmt"
	"io"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodeError reports that a tree could not be written as JSON.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("flamegraph: json encoding failed: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Encode writes the tree as nested {"name","value","children"} objects.
// Children keep their stored order and the output is compact. Names are
// HTML-escaped so the document can be embedded in a script element.
func Encode(w io.Writer, t *Tree) error {
	stream := json.BorrowStream(w)
	defer json.ReturnStream(stream)

	if err := writeNode(stream, t, RootID); err != nil {
		return &EncodeError{Err: err}
	}
	if err := stream.Flush(); err != nil {
		return &EncodeError{Err: err}
	}
	if stream.Error != nil {
		return &EncodeError{Err: stream.Error}
	}
	return nil
}

// Serialize returns the JSON document for the tree.
func Serialize(t *Tree) (string, error) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)

	if err := writeNode(stream, t, RootID); err != nil {
		return "", &EncodeError{Err: err}
	}
	if stream.Error != nil {
		return "", &EncodeError{Err: stream.Error}
	}
	return string(stream.Buffer()), nil
}

// MarshalJSON implements json.Marshaler.
func (t *Tree) MarshalJSON() ([]byte, error) {
	s, err := Serialize(t)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func writeNode(stream *jsoniter.Stream, t *Tree, id NodeID) error {
	n := &t.nodes[id]
	if !utf8.ValidString(n.Name) {
		return fmt.Errorf("frame name %q is not valid UTF-8", n.Name)
	}

	stream.WriteObjectStart()
	stream.WriteObjectField("name")
	stream.WriteStringWithHTMLEscaped(n.Name)
	stream.WriteMore()
	stream.WriteObjectField("value")
	stream.WriteUint64(n.Value)
	stream.WriteMore()
	stream.WriteObjectField("children")
	if len(n.Children) == 0 {
		stream.WriteEmptyArray()
	} else {
		stream.WriteArrayStart()
		for i, c := range n.Children {
			if i > 0 {
				stream.WriteMore()
			}
			if err := writeNode(stream, t, c); err != nil {
				return err
			}
		}
		stream.WriteArrayEnd()
	}
	stream.WriteObjectEnd()

	// Flushing keeps the buffer bounded for writer-backed streams; streams
	// without a writer grow in memory.
	if stream.Buffered() > 64<<10 {
		if err := stream.Flush(); err != nil {
			return err
		}
	}
	return stream.Error
}

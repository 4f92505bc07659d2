package platform

import (
	"testing"

	"github.com/go-drift/filelab/pkg/errors"
)

type collectingHandler struct {
	errs []*errors.Error
}

func (h *collectingHandler) HandleError(err *errors.Error) { h.errs = append(h.errs, err) }
func (h *collectingHandler) HandlePanic(err *errors.PanicError) {}

func TestStreamDropsUnparsableEvents(t *testing.T) {
	SetupTestBridge(t.Cleanup, nil)
	h := &collectingHandler{}
	errors.SetHandler(h)
	t.Cleanup(func() { errors.SetHandler(nil) })

	ch := NewEventChannel("test/stream/changes")
	stream := NewStream(ch, "PermissionChange", parsePermissionChange)

	var got []permissionChange
	unsubscribe := stream.Listen(func(c permissionChange) { got = append(got, c) })

	data, err := DefaultCodec.Encode("not a map")
	if err != nil {
		t.Fatal(err)
	}
	if err := HandleEvent("test/stream/changes", data); err != nil {
		t.Fatal(err)
	}
	emit(t, "test/stream/changes", map[string]any{"permission": PermissionNameReadStorage, "status": "denied"})

	if len(got) != 1 || got[0].Result != PermissionDenied {
		t.Errorf("events = %+v", got)
	}
	if len(h.errs) != 1 || h.errs[0].Kind != errors.KindParsing || h.errs[0].Channel != "test/stream/changes" {
		t.Errorf("reported = %+v", h.errs)
	}

	unsubscribe()
	emit(t, "test/stream/changes", map[string]any{"permission": PermissionNameReadStorage, "status": "granted"})
	if len(got) != 1 {
		t.Errorf("event delivered after unsubscribe: %+v", got)
	}
}

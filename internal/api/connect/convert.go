package connect

import (
	"strconv"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/hifzbox/internal/app/notification"
	"github.com/osa030/hifzbox/internal/app/sequencer"
	"github.com/osa030/hifzbox/internal/app/studio"
	"github.com/osa030/hifzbox/internal/domain/session"
	"github.com/osa030/hifzbox/internal/domain/verse"
	"github.com/osa030/hifzbox/internal/infra/store"
)

// invalidArgumentErrors are reported as connect.CodeInvalidArgument.
var invalidArgumentErrors = []error{
	studio.ErrInvalidChapter,
	studio.ErrInvalidVerse,
	studio.ErrUnknownReciter,
	studio.ErrRepeatTooLarge,
	studio.ErrInvalidMode,
	studio.ErrInvalidLang,
	verse.ErrInvalidRange,
	sequencer.ErrInvalidRepeat,
	session.ErrInvalidSession,
	session.ErrNoSharedData,
}

// toConnectError maps errors that are the caller's fault to connect codes.
// It returns nil for failures reported in the response body.
func toConnectError(err error) *connect.Error {
	for _, target := range invalidArgumentErrors {
		if errors.Is(err, target) {
			return connect.NewError(connect.CodeInvalidArgument, err)
		}
	}
	if errors.Is(err, store.ErrSessionNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return nil
}

// resultFields builds the common {success, message, code} response fields.
func resultFields(message string, err error) map[string]any {
	if err == nil {
		return map[string]any{"success": true, "message": message}
	}
	fields := map[string]any{"success": false, "message": err.Error()}
	var rejected *studio.RejectedError
	if errors.As(err, &rejected) {
		fields["code"] = rejected.Code
	}
	return fields
}

func summaryMap(s store.Summary) map[string]any {
	return map[string]any{
		"id":          s.ID,
		"name":        s.Name,
		"chapter":     s.Chapter,
		"start_verse": s.StartVerse,
		"end_verse":   s.EndVerse,
		"reciter":     s.Reciter,
		"repeat":      s.Repeat,
		"created_at":  s.CreatedAt.Format(time.RFC3339),
		"updated_at":  s.UpdatedAt.Format(time.RFC3339),
	}
}

func chapterMap(ch verse.Chapter) map[string]any {
	return map[string]any{
		"id":              ch.ID,
		"name":            ch.Name,
		"transliteration": ch.Transliteration,
		"translation":     ch.Translation,
		"type":            ch.Type,
		"total_verses":    ch.TotalVerses,
	}
}

func marksMap(marks session.Marks) map[string]any {
	out := make(map[string]any, len(marks))
	for chapter, verses := range marks {
		vm := make(map[string]any, len(verses))
		for v, comment := range verses {
			vm[strconv.Itoa(v)] = comment
		}
		out[strconv.Itoa(chapter)] = vm
	}
	return out
}

func notificationStruct(n *notification.Notification) (*structpb.Struct, error) {
	fields := n.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return structpb.NewStruct(map[string]any{
		"sequence_no": n.SequenceNo,
		"type":        string(n.Type),
		"time":        n.Time.Format(time.RFC3339Nano),
		"message":     n.Message,
		"fields":      fields,
	})
}

// intField reads a numeric field from a request struct.
func intField(s *structpb.Struct, name string) (int, bool) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, false
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return 0, false
	}
	return int(v.GetNumberValue()), true
}
